// Package at24mac drives the Microchip (Atmel) AT24MAC402/602 2-Kbit I2C EEPROM.
//
// The part answers on two bus addresses: 0x50|A2A1A0 exposes the 256 byte
// array, 0x58|A2A1A0 exposes a factory-programmed EUI-48 (402) or EUI-64 (602)
// and a 128-bit serial number. The identity block is read once in New.
//
// Datasheet reference: AT24MAC402/602, Atmel-8807 (page size 16 bytes, tWR 5 ms).
//
// Example usage:
//
//	bus, _ := i2c.NewGenericBus("/dev/i2c-1")
//	e, err := at24mac.New(ctx, bus)
//	if err != nil { log.Fatal(err) }
//	fmt.Println(e.MAC(), e.SerialNumber())
//
//	err = e.WriteRange(ctx, 100, []byte{6, 7, 8, 9, 10})
//	data, _ := e.ReadRange(ctx, 100, 105)
//
// Writes are split at page boundaries and each page is compared with the
// current content first; pages that already hold the data are not rewritten.
// A handle is not safe for concurrent use.
package at24mac

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"net"
	"time"

	"github.com/mklimuk/eeprom"
)

// SleepFunc blocks for the write cycle time after a page write.
type SleepFunc func(d time.Duration)

// Identity is the factory-programmed, read-only block of the part.
type Identity struct {
	MAC    net.HardwareAddr
	Serial []byte
}

// SerialNumber interprets the serial as an unsigned big-endian integer.
func (id Identity) SerialNumber() *big.Int {
	return new(big.Int).SetBytes(id.Serial)
}

func (id Identity) SerialHex() string {
	return hex.EncodeToString(id.Serial)
}

type Config struct {
	Part        Part
	AddressPins byte
	WriteDelay  time.Duration
	Sleep       SleepFunc
}

type Option func(*Config)

func WithPart(part Part) Option {
	return func(c *Config) {
		c.Part = part
	}
}

// WithAddressPins sets the A2..A0 strapping (0-7).
func WithAddressPins(pins byte) Option {
	return func(c *Config) {
		c.AddressPins = pins
	}
}

// WithWriteDelay overrides the part's write cycle time. Zero keeps the part value.
func WithWriteDelay(delay time.Duration) Option {
	return func(c *Config) {
		c.WriteDelay = delay
	}
}

func WithSleep(sleep SleepFunc) Option {
	return func(c *Config) {
		c.Sleep = sleep
	}
}

// AT24MAC represents one AT24MACx02 part on an I2C bus.
type AT24MAC struct {
	transport  eeprom.I2CBus
	part       Part
	address    byte
	euiAddress byte
	writeDelay time.Duration
	sleep      SleepFunc
	identity   Identity
}

// New validates the configuration and fetches the identity block. The bus is
// borrowed, not owned; closing it is up to the caller.
func New(ctx context.Context, bus eeprom.I2CBus, opts ...Option) (*AT24MAC, error) {
	config := Config{
		Part:        AT24MAC402,
		AddressPins: DefaultAddressPins,
		Sleep:       time.Sleep,
	}
	for _, opt := range opts {
		opt(&config)
	}
	if bus == nil {
		return nil, fmt.Errorf("%w: nil bus", ErrInvalidArgument)
	}
	if config.AddressPins&^addressPinsMask != 0 {
		return nil, fmt.Errorf("%w: address pins %#b wider than 3 bits", ErrInvalidArgument, config.AddressPins)
	}
	if err := config.Part.Validate(); err != nil {
		return nil, err
	}
	if config.WriteDelay == 0 {
		config.WriteDelay = config.Part.WriteTime
	}
	if config.Sleep == nil {
		config.Sleep = time.Sleep
	}
	e := &AT24MAC{
		transport:  bus,
		part:       config.Part,
		address:    eepromBaseAddress | config.AddressPins,
		euiAddress: euiBaseAddress | config.AddressPins,
		writeDelay: config.WriteDelay,
		sleep:      config.Sleep,
	}
	mac, err := e.readIdentityBlock(ctx, e.part.EUIOffset, e.part.EUILength)
	if err != nil {
		return nil, fmt.Errorf("at24mac: could not read EUI: %w", err)
	}
	serial, err := e.readIdentityBlock(ctx, e.part.SerialOffset, e.part.SerialLength)
	if err != nil {
		return nil, fmt.Errorf("at24mac: could not read serial number: %w", err)
	}
	e.identity = Identity{MAC: net.HardwareAddr(mac), Serial: serial}
	return e, nil
}

func (e *AT24MAC) readIdentityBlock(ctx context.Context, offset byte, length int) ([]byte, error) {
	buf := make([]byte, length)
	err := e.transport.TxToAddr(ctx, e.euiAddress, []byte{offset}, buf)
	if err != nil {
		return nil, fmt.Errorf("%w: identity read at 0x%02x: %w", ErrTransport, offset, err)
	}
	return buf, nil
}

// Identity returns a copy of the identity block read at construction.
func (e *AT24MAC) Identity() Identity {
	return Identity{
		MAC:    append(net.HardwareAddr(nil), e.identity.MAC...),
		Serial: append([]byte(nil), e.identity.Serial...),
	}
}

func (e *AT24MAC) MAC() net.HardwareAddr {
	return append(net.HardwareAddr(nil), e.identity.MAC...)
}

func (e *AT24MAC) SerialNumber() *big.Int {
	return e.identity.SerialNumber()
}

// Addresses returns the 7-bit bus addresses of the array and the identity block.
func (e *AT24MAC) Addresses() (primary, secondary byte) {
	return e.address, e.euiAddress
}

func (e *AT24MAC) Part() Part {
	return e.part
}

// Len returns the capacity in bytes.
func (e *AT24MAC) Len() int {
	return e.part.Capacity
}

package adapter

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/karalabe/hid"

	"github.com/mklimuk/eeprom"
	"github.com/mklimuk/eeprom/eectx"
)

const VendorID = 0x04D8
const ProductID = 0x00DD

const (
	reportSize = 64
	// a single HID report carries at most 60 bytes of I2C payload
	maxChunk = 60
	// the engine rejects transfers longer than this
	maxTransfer = 0xFFFF

	cmdStatus           = 0x10
	cmdWriteData        = 0x90
	cmdReadData         = 0x91
	cmdReadRepeatStart  = 0x93
	cmdWriteDataNoStop  = 0x94
	cmdGetReadData      = 0x40
	statusCancel        = 0x10
	statusSetSpeed      = 0x20
	statusSpeedAccepted = 0x20
	readEngineError     = 0x41
	readSizeError       = 127
	baseClock           = 12_000_000
)

var ErrCommandUnsupported = errors.New("unsupported command")
var ErrCommandFailed = errors.New("command failed")
var ErrDeviceNotFound = errors.New("MCP2221 device not found")

var _ eeprom.I2CBus = &MCP2221{}

// MCP2221 is a Microchip USB-HID to I2C bridge. The HID device is opened for
// every report and closed right after, so several processes can share it.
type MCP2221 struct {
	mx           sync.Mutex
	request      []byte
	response     []byte
	responseWait time.Duration
	open         func() (io.ReadWriteCloser, error)
}

type MCP2221Status struct {
	I2CDataBufferCounter   int    `yaml:"i2c_data_buffer_counter"`
	I2CSpeedDivider        int    `yaml:"i2c_speed_divider"`
	I2CTimeout             int    `yaml:"i2c_timeout"`
	CurrentAddress         string `yaml:"current_address"`
	LastWriteRequestedSize uint16 `yaml:"last_write_requested_size"`
	LastWriteSentSize      uint16 `yaml:"last_write_sent_size"`
	ReadPending            int    `yaml:"read_pending"`
}

type Option func(*MCP2221)

// WithDeviceIndex selects one of several attached bridges by enumeration order.
func WithDeviceIndex(index int) Option {
	return func(d *MCP2221) {
		d.open = func() (io.ReadWriteCloser, error) {
			return openHID(index)
		}
	}
}

// WithResponseWait sets the pause between a request and reading its response.
func WithResponseWait(wait time.Duration) Option {
	return func(d *MCP2221) {
		d.responseWait = wait
	}
}

func NewMCP2221(opts ...Option) *MCP2221 {
	d := &MCP2221{
		request:      make([]byte, reportSize),
		response:     make([]byte, reportSize),
		responseWait: 50 * time.Millisecond,
		open: func() (io.ReadWriteCloser, error) {
			return openHID(-1)
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func openHID(index int) (io.ReadWriteCloser, error) {
	devs := hid.Enumerate(VendorID, ProductID)
	if len(devs) == 0 {
		return nil, ErrDeviceNotFound
	}
	if index < 0 {
		if len(devs) > 1 {
			return nil, fmt.Errorf("ambiguous device identification: %d devices attached", len(devs))
		}
		index = 0
	}
	if index >= len(devs) {
		return nil, fmt.Errorf("no device with index %d", index)
	}
	dev, err := devs[index].Open()
	if err != nil {
		return nil, fmt.Errorf("error opening device: %w", err)
	}
	return dev, nil
}

// Init checks that the bridge is attached and can be opened.
func (d *MCP2221) Init(ctx context.Context) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	dev, err := d.open()
	if err != nil {
		return err
	}
	return dev.Close()
}

func (d *MCP2221) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.write(ctx, cmdWriteData, address, buffer)
}

func (d *MCP2221) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.read(ctx, cmdReadData, address, buffer)
}

// TxToAddr writes w without a stop condition and reads r after a repeated start.
func (d *MCP2221) TxToAddr(ctx context.Context, address byte, w, r []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	switch {
	case len(r) == 0:
		return d.write(ctx, cmdWriteData, address, w)
	case len(w) == 0:
		return d.read(ctx, cmdReadData, address, r)
	}
	err := d.write(ctx, cmdWriteDataNoStop, address, w)
	if err != nil {
		return err
	}
	return d.read(ctx, cmdReadRepeatStart, address, r)
}

func (d *MCP2221) write(ctx context.Context, cmd byte, address byte, buffer []byte) error {
	if len(buffer) > maxChunk {
		return fmt.Errorf("write of %d bytes to %x exceeds a single report: %w", len(buffer), address, ErrCommandUnsupported)
	}
	d.resetBuffers()
	encodeTransfer(d.request, cmd, address<<1, len(buffer))
	copy(d.request[4:], buffer)
	err := d.send(ctx)
	if err != nil {
		return fmt.Errorf("write to %x failed: %w", address, err)
	}
	// write could not be performed
	if d.response[1] == 0x01 {
		slog.Debug("adapter busy", "address", address)
		return eeprom.ErrBusBusy
	}
	return nil
}

func (d *MCP2221) read(ctx context.Context, cmd byte, address byte, buffer []byte) error {
	if len(buffer) > maxTransfer {
		return fmt.Errorf("read of %d bytes from %x: %w", len(buffer), address, ErrCommandUnsupported)
	}
	d.resetBuffers()
	encodeTransfer(d.request, cmd, address<<1+1, len(buffer))
	err := d.send(ctx)
	if err != nil {
		return fmt.Errorf("bus read from %x failed: %w", address, err)
	}
	if d.response[1] == 0x01 {
		slog.Debug("adapter busy", "address", address)
		return eeprom.ErrBusBusy
	}
	for off := 0; off < len(buffer); {
		d.resetBuffers()
		d.request[0] = cmdGetReadData
		err = d.send(ctx)
		if err != nil {
			return fmt.Errorf("error getting read data from adapter: %w", err)
		}
		n, err := decodeChunk(d.response, min(maxChunk, len(buffer)-off))
		if err != nil {
			return fmt.Errorf("read from %x at offset %d: %w", address, off, err)
		}
		copy(buffer[off:], d.response[4:4+n])
		off += n
	}
	return nil
}

// encodeTransfer fills the common header of the I2C transfer commands.
func encodeTransfer(request []byte, cmd byte, addressByte byte, length int) {
	request[0] = cmd
	binary.LittleEndian.PutUint16(request[1:3], uint16(length))
	request[3] = addressByte
}

// decodeChunk validates a Get I2C Data response and returns its payload size.
func decodeChunk(response []byte, expected int) (int, error) {
	if response[1] == readEngineError {
		return 0, fmt.Errorf("error reading the I2C slave data from the I2C engine")
	}
	n := int(response[3])
	if n == readSizeError || n != expected {
		return 0, fmt.Errorf("invalid data size byte; expected %d, got %d", expected, n)
	}
	return n, nil
}

func (d *MCP2221) Status(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatus
	err := d.send(ctx)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

// SetSpeed sets the I2C clock in Hz (47 kHz to 400 kHz).
func (d *MCP2221) SetSpeed(ctx context.Context, hz int) error {
	divider, err := speedDivider(hz)
	if err != nil {
		return err
	}
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatus
	d.request[3] = statusSetSpeed
	d.request[4] = divider
	err = d.send(ctx)
	if err != nil {
		return fmt.Errorf("set speed request failed: %w", err)
	}
	// speed can't be changed while a transfer is in progress
	if d.response[3] != statusSpeedAccepted {
		return fmt.Errorf("speed %d Hz not accepted: %w", hz, ErrCommandFailed)
	}
	return nil
}

func speedDivider(hz int) (byte, error) {
	if hz <= 0 {
		return 0, fmt.Errorf("invalid i2c speed %d Hz", hz)
	}
	div := baseClock/hz - 3
	if div < 0 || div > 0xFF {
		return 0, fmt.Errorf("i2c speed %d Hz out of adapter range", hz)
	}
	return byte(div), nil
}

func bufferToStatus(buffer []byte) *MCP2221Status {
	/*
		9: Lower byte (16-bit value) of the requested I2C transfer length
		10: Higher byte (16-bit value) of the requested I2C transfer length
		11:	Lower byte (16-bit value) of the already transferred (through I2C) number of bytes
		12:	Higher byte (16-bit value) of the already transferred (through I2C) number of bytes
		13:	Internal I2C data buffer counter
		14: Current I2C communication speed divider value
		15: Current I2C timeout value
		16:	Lower byte (16-bit value) of the I2C address being used
		17:	Higher byte (16-bit value) of the I2C address being used
	*/
	status := &MCP2221Status{
		I2CDataBufferCounter: int(buffer[13]),
		I2CSpeedDivider:      int(buffer[14]),
		I2CTimeout:           int(buffer[15]),
		ReadPending:          int(buffer[25]),
		CurrentAddress:       hex.EncodeToString(buffer[16:18]),
	}
	status.LastWriteRequestedSize = binary.LittleEndian.Uint16(buffer[9:11])
	status.LastWriteSentSize = binary.LittleEndian.Uint16(buffer[11:13])
	return status
}

func (d *MCP2221) Release(ctx context.Context) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	_, err := d.releaseBus(ctx)
	return err
}

// ReleaseBus cancels the current transfer and frees the bus.
func (d *MCP2221) ReleaseBus(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.releaseBus(ctx)
}

func (d *MCP2221) releaseBus(ctx context.Context) (*MCP2221Status, error) {
	d.resetBuffers()
	d.request[0] = cmdStatus
	d.request[2] = statusCancel
	err := d.send(ctx)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

// send writes the request report and reads the response into d.response.
func (d *MCP2221) send(ctx context.Context) error {
	dev, err := d.open()
	if err != nil {
		return err
	}
	defer func() {
		err := dev.Close()
		if err != nil {
			slog.Debug("could not close adapter", "error", err)
		}
	}()
	verbose := eectx.IsVerbose(ctx)
	if verbose {
		slog.Debug("sending message to adapter", "op", eectx.Operation(ctx), "report", "\n"+hex.Dump(d.request))
	}
	n, err := dev.Write(d.request)
	if err != nil {
		return fmt.Errorf("could not write request: %w", err)
	}
	if n != reportSize {
		return fmt.Errorf("short write: %d", n)
	}
	time.Sleep(d.responseWait)
	n, err = dev.Read(d.response)
	if err != nil {
		return fmt.Errorf("could not read response: %w", err)
	}
	if n != reportSize {
		return fmt.Errorf("short read: %d", n)
	}
	if verbose {
		slog.Debug("read message from adapter", "op", eectx.Operation(ctx), "report", "\n"+hex.Dump(d.response))
	}
	if d.response[0] != d.request[0] {
		return fmt.Errorf("response to command 0x%02x echoes 0x%02x", d.request[0], d.response[0])
	}
	return nil
}

func (d *MCP2221) resetBuffers() {
	resetBuffer(d.request)
	resetBuffer(d.response)
}

func resetBuffer(buf []byte) {
	for i := range buf {
		buf[i] = 0x00
	}
}

package at24mac

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mklimuk/eeprom"
)

var _ eeprom.I2CBus = &MockDevice{}

var ErrNACK = fmt.Errorf("mock: address not acknowledged")

type TxKind int

const (
	TxRead TxKind = iota
	TxWrite
	TxWriteRead
)

func (k TxKind) String() string {
	switch k {
	case TxRead:
		return "read"
	case TxWrite:
		return "write"
	case TxWriteRead:
		return "write-read"
	default:
		return "unknown"
	}
}

// Transaction is one bus call seen by MockDevice.
type Transaction struct {
	Address byte
	Kind    TxKind
	Write   []byte
	ReadLen int
}

// MockDevice emulates an AT24MACx02 on an I2C bus without any hardware. It keeps
// a word address pointer per bus address, wraps page writes inside the page
// like the real part and refuses to acknowledge while its write cycle runs.
// Time only moves when Sleep is called, so pass Sleep to WithSleep.
//
// Example usage:
//
//	dev := NewMockDevice(AT24MAC402, DefaultAddressPins)
//	e, err := New(ctx, dev, WithSleep(dev.Sleep))
type MockDevice struct {
	mx         sync.Mutex
	part       Part
	address    byte
	euiAddress byte
	memory     []byte
	idMap      []byte
	pointer    int
	euiPointer int
	now        time.Duration
	busyUntil  time.Duration
	journal    []Transaction

	// Fault is consulted before every transaction; a non-nil error fails it
	// without touching the emulated state.
	Fault func(tx Transaction) error
}

// NewMockDevice returns an erased part (all cells 0xFF) with a fixed identity.
func NewMockDevice(part Part, pins byte) *MockDevice {
	m := &MockDevice{
		part:       part,
		address:    eepromBaseAddress | pins&addressPinsMask,
		euiAddress: euiBaseAddress | pins&addressPinsMask,
		memory:     make([]byte, part.Capacity),
		idMap:      make([]byte, maxCapacity),
	}
	for i := range m.memory {
		m.memory[i] = 0xFF
	}
	mac := []byte{0x00, 0x04, 0xA3, 0x12, 0x34, 0x56}
	if part.EUILength == 8 {
		mac = []byte{0x00, 0x04, 0xA3, 0xFF, 0xFE, 0x12, 0x34, 0x56}
	}
	serial := make([]byte, part.SerialLength)
	for i := range serial {
		serial[i] = byte(0xA0 + i)
	}
	m.SetIdentity(mac, serial)
	return m
}

// SetIdentity programs the read-only block, as the factory would.
func (m *MockDevice) SetIdentity(mac, serial []byte) {
	m.mx.Lock()
	defer m.mx.Unlock()
	copy(m.idMap[int(m.part.EUIOffset):int(m.part.EUIOffset)+m.part.EUILength], mac)
	copy(m.idMap[int(m.part.SerialOffset):int(m.part.SerialOffset)+m.part.SerialLength], serial)
}

// Load presets the array without going through the bus.
func (m *MockDevice) Load(address int, data []byte) {
	m.mx.Lock()
	defer m.mx.Unlock()
	copy(m.memory[address:], data)
}

// Memory returns a copy of the array.
func (m *MockDevice) Memory() []byte {
	m.mx.Lock()
	defer m.mx.Unlock()
	return append([]byte(nil), m.memory...)
}

// Sleep advances the emulated clock.
func (m *MockDevice) Sleep(d time.Duration) {
	m.mx.Lock()
	defer m.mx.Unlock()
	m.now += d
}

func (m *MockDevice) Transactions() []Transaction {
	m.mx.Lock()
	defer m.mx.Unlock()
	return append([]Transaction(nil), m.journal...)
}

// PageWrites returns the plain writes to the array that carried data.
func (m *MockDevice) PageWrites() []Transaction {
	m.mx.Lock()
	defer m.mx.Unlock()
	var res []Transaction
	for _, tx := range m.journal {
		if tx.Kind == TxWrite && tx.Address == m.address && len(tx.Write) > 1 {
			res = append(res, tx)
		}
	}
	return res
}

// Reset clears the journal.
func (m *MockDevice) Reset() {
	m.mx.Lock()
	defer m.mx.Unlock()
	m.journal = nil
}

func (m *MockDevice) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	tx := Transaction{Address: address, Kind: TxWrite, Write: append([]byte(nil), buffer...)}
	if err := m.begin(tx); err != nil {
		return err
	}
	return m.write(address, buffer)
}

func (m *MockDevice) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	tx := Transaction{Address: address, Kind: TxRead, ReadLen: len(buffer)}
	if err := m.begin(tx); err != nil {
		return err
	}
	return m.read(address, buffer)
}

func (m *MockDevice) TxToAddr(ctx context.Context, address byte, w, r []byte) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	tx := Transaction{Address: address, Kind: TxWriteRead, Write: append([]byte(nil), w...), ReadLen: len(r)}
	if err := m.begin(tx); err != nil {
		return err
	}
	if len(w) > 1 {
		// a data write followed by a repeated start aborts the write cycle
		return fmt.Errorf("mock: %#x: data write inside write-read", address)
	}
	if err := m.write(address, w); err != nil {
		return err
	}
	return m.read(address, r)
}

func (m *MockDevice) Release(ctx context.Context) error {
	return nil
}

func (m *MockDevice) begin(tx Transaction) error {
	m.journal = append(m.journal, tx)
	if m.Fault != nil {
		if err := m.Fault(tx); err != nil {
			return err
		}
	}
	if tx.Address != m.address && tx.Address != m.euiAddress {
		return fmt.Errorf("%w: %#x", ErrNACK, tx.Address)
	}
	if m.now < m.busyUntil {
		return fmt.Errorf("%w: %#x busy in write cycle", ErrNACK, tx.Address)
	}
	return nil
}

func (m *MockDevice) write(address byte, buffer []byte) error {
	if len(buffer) == 0 {
		return nil
	}
	if address == m.euiAddress {
		if len(buffer) > 1 {
			return fmt.Errorf("%w: identity block is read-only", ErrNACK)
		}
		m.euiPointer = int(buffer[0])
		return nil
	}
	m.pointer = int(buffer[0]) % m.part.Capacity
	data := buffer[1:]
	if len(data) == 0 {
		return nil
	}
	page := m.pointer - m.pointer%m.part.PageSize
	col := m.pointer - page
	for _, b := range data {
		m.memory[page+col] = b
		col = (col + 1) % m.part.PageSize
	}
	m.pointer = page + col
	m.busyUntil = m.now + m.part.WriteTime
	return nil
}

func (m *MockDevice) read(address byte, buffer []byte) error {
	if address == m.euiAddress {
		for i := range buffer {
			buffer[i] = m.idMap[m.euiPointer]
			m.euiPointer = (m.euiPointer + 1) % len(m.idMap)
		}
		return nil
	}
	for i := range buffer {
		buffer[i] = m.memory[m.pointer]
		m.pointer = (m.pointer + 1) % len(m.memory)
	}
	return nil
}

package i2c

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mklimuk/eeprom"
	gobot "gobot.io/x/gobot/v2/drivers/i2c"
)

var _ eeprom.I2CBus = &GobotBus{}

// GobotBus drives devices through a gobot I2C connector (e.g. a NanoPi adaptor).
// One connection is opened per device address on first use and kept until Close.
//
// gobot connections have no combined transaction, so TxToAddr is a write
// followed by a read; EEPROM word address pointers survive the stop condition.
type GobotBus struct {
	mx        sync.Mutex
	connector gobot.Connector
	busNr     int
	conns     map[byte]gobot.Connection
}

// NewGobotBus binds to bus busNr of connector; a negative busNr selects the
// connector's default bus.
func NewGobotBus(connector gobot.Connector, busNr int) *GobotBus {
	if busNr < 0 {
		busNr = connector.DefaultI2cBus()
	}
	return &GobotBus{
		connector: connector,
		busNr:     busNr,
		conns:     make(map[byte]gobot.Connection),
	}
}

func (b *GobotBus) connection(address byte) (gobot.Connection, error) {
	if conn, ok := b.conns[address]; ok {
		return conn, nil
	}
	conn, err := b.connector.GetI2cConnection(int(address), b.busNr)
	if err != nil {
		return nil, fmt.Errorf("could not open connection to %x on bus %d: %w", address, b.busNr, err)
	}
	b.conns[address] = conn
	return conn, nil
}

func (b *GobotBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	conn, err := b.connection(address)
	if err != nil {
		return err
	}
	return b.read(conn, address, buffer)
}

func (b *GobotBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	conn, err := b.connection(address)
	if err != nil {
		return err
	}
	return b.write(conn, address, buffer)
}

func (b *GobotBus) TxToAddr(ctx context.Context, address byte, w, r []byte) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	conn, err := b.connection(address)
	if err != nil {
		return err
	}
	if len(w) > 0 {
		if err := b.write(conn, address, w); err != nil {
			return err
		}
	}
	if len(r) == 0 {
		return nil
	}
	return b.read(conn, address, r)
}

func (b *GobotBus) read(conn gobot.Connection, address byte, buffer []byte) error {
	n, err := conn.Read(buffer)
	if err != nil {
		return fmt.Errorf("could not read from i2c bus %x: %w", address, err)
	}
	if n != len(buffer) {
		return fmt.Errorf("short read from i2c bus %x: %d of %d", address, n, len(buffer))
	}
	return nil
}

func (b *GobotBus) write(conn gobot.Connection, address byte, buffer []byte) error {
	n, err := conn.Write(buffer)
	if err != nil {
		return fmt.Errorf("could not write to i2c bus %x: %w", address, err)
	}
	if n != len(buffer) {
		return fmt.Errorf("short write to i2c bus %x: %d of %d", address, n, len(buffer))
	}
	return nil
}

func (b *GobotBus) Release(ctx context.Context) error {
	return nil
}

// Close closes every connection opened so far.
func (b *GobotBus) Close() error {
	b.mx.Lock()
	defer b.mx.Unlock()
	var errs []error
	for address, conn := range b.conns {
		if err := conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("could not close connection to %x: %w", address, err))
		}
		delete(b.conns, address)
	}
	return errors.Join(errs...)
}

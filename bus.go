// Package eeprom defines the bus capabilities EEPROM drivers are written
// against. Concrete transports live in the i2c and adapter packages.
package eeprom

import (
	"context"
	"fmt"
)

var ErrBusBusy = fmt.Errorf("I2C engine is busy (command not completed)")

type AddressableReader interface {
	ReadFromAddr(ctx context.Context, address byte, buffer []byte) error
}

type AddressableWriter interface {
	WriteToAddr(ctx context.Context, address byte, buffer []byte) error
	Release(ctx context.Context) error
}

// AddressableTransactor sends w and then receives len(r) bytes from the device
// at address without releasing the bus in between (repeated start).
type AddressableTransactor interface {
	TxToAddr(ctx context.Context, address byte, w, r []byte) error
}

type I2CBus interface {
	AddressableReader
	AddressableWriter
	AddressableTransactor
}

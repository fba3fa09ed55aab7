package at24mac

import (
	"fmt"
	"strings"
	"time"
)

const (
	eepromBaseAddress = 0x50
	euiBaseAddress    = 0x58

	// DefaultAddressPins is the A2..A0 strapping used on most boards (A2 high).
	DefaultAddressPins byte = 0b100
	addressPinsMask    byte = 0b111

	// every transaction carries a single word address byte
	maxCapacity = 256
)

// Part describes the geometry and identity block layout of one AT24MACx02 variant.
type Part struct {
	Name         string
	Capacity     int
	PageSize     int
	EUIOffset    byte
	EUILength    int
	SerialOffset byte
	SerialLength int
	// WriteTime is the self-timed write cycle (tWR) the host waits after each page write.
	WriteTime time.Duration
}

// AT24MAC402 carries an EUI-48 identifier.
var AT24MAC402 = Part{
	Name:         "AT24MAC402",
	Capacity:     256,
	PageSize:     16,
	EUIOffset:    0x9A,
	EUILength:    6,
	SerialOffset: 0x80,
	SerialLength: 16,
	WriteTime:    5 * time.Millisecond,
}

// AT24MAC602 carries an EUI-64 identifier.
var AT24MAC602 = Part{
	Name:         "AT24MAC602",
	Capacity:     256,
	PageSize:     16,
	EUIOffset:    0x98,
	EUILength:    8,
	SerialOffset: 0x80,
	SerialLength: 16,
	WriteTime:    5 * time.Millisecond,
}

var parts = []Part{AT24MAC402, AT24MAC602}

// PartByName resolves a part preset by its name, ignoring case.
func PartByName(name string) (Part, error) {
	for _, p := range parts {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return Part{}, fmt.Errorf("%w: unknown part %q", ErrInvalidArgument, name)
}

// Validate checks that the geometry can be driven with 1-byte word addresses.
func (p Part) Validate() error {
	switch {
	case p.Capacity <= 0 || p.Capacity > maxCapacity:
		return fmt.Errorf("%w: capacity %d outside (0, %d]", ErrInvalidArgument, p.Capacity, maxCapacity)
	case p.PageSize <= 0:
		return fmt.Errorf("%w: page size %d", ErrInvalidArgument, p.PageSize)
	case p.Capacity%p.PageSize != 0:
		return fmt.Errorf("%w: capacity %d is not a multiple of page size %d", ErrInvalidArgument, p.Capacity, p.PageSize)
	case p.EUILength <= 0 || p.SerialLength <= 0:
		return fmt.Errorf("%w: empty identity block", ErrInvalidArgument)
	case int(p.EUIOffset)+p.EUILength > maxCapacity || int(p.SerialOffset)+p.SerialLength > maxCapacity:
		return fmt.Errorf("%w: identity block outside the secondary address map", ErrInvalidArgument)
	}
	return nil
}

func (p Part) String() string {
	return p.Name
}

package at24mac

import "fmt"

var (
	ErrAddressOutOfRange = fmt.Errorf("at24mac: address out of range")
	ErrInvalidRange      = fmt.Errorf("at24mac: invalid range")
	ErrInvalidArgument   = fmt.Errorf("at24mac: invalid argument")
	ErrTransport         = fmt.Errorf("at24mac: transport failure")
)

// WriteError reports a write that failed part way. Pages before the failing one
// have landed (or already held the data) and Written counts their bytes; the
// failing page and everything after it were not written. EEPROM writes are not
// rolled back.
type WriteError struct {
	Address int
	Length  int
	Written int
	Err     error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("at24mac: write of %d bytes at 0x%02x stopped after %d bytes: %v", e.Length, e.Address, e.Written, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

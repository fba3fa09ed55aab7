package at24mac

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
)

// ByteAt reads the byte at address.
func (e *AT24MAC) ByteAt(ctx context.Context, address int) (byte, error) {
	if err := e.checkAddress(address); err != nil {
		return 0, err
	}
	data, err := e.Read(ctx, address, 1)
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

// SetByte writes a single byte at address. The write is skipped if the cell
// already holds value.
func (e *AT24MAC) SetByte(ctx context.Context, address int, value byte) error {
	if err := e.checkAddress(address); err != nil {
		return err
	}
	return e.Write(ctx, address, []byte{value})
}

// ReadRange reads the half-open interval [start, stop).
func (e *AT24MAC) ReadRange(ctx context.Context, start, stop int) ([]byte, error) {
	if err := e.checkBound("start", start); err != nil {
		return nil, err
	}
	if err := e.checkBound("stop", stop); err != nil {
		return nil, err
	}
	if stop < start {
		return nil, fmt.Errorf("%w: stop %d before start %d", ErrInvalidRange, stop, start)
	}
	return e.Read(ctx, start, stop-start)
}

// ReadAll reads the whole array.
func (e *AT24MAC) ReadAll(ctx context.Context) ([]byte, error) {
	return e.ReadRange(ctx, 0, e.part.Capacity)
}

// WriteRange writes data starting at start.
func (e *AT24MAC) WriteRange(ctx context.Context, start int, data []byte) error {
	if err := e.checkBound("start", start); err != nil {
		return err
	}
	return e.Write(ctx, start, data)
}

// Read issues one sequential read of length bytes at address.
func (e *AT24MAC) Read(ctx context.Context, address, length int) ([]byte, error) {
	if err := e.checkSpan(address, length); err != nil {
		return nil, err
	}
	if length == 0 {
		return []byte{}, nil
	}
	return e.read(ctx, address, length)
}

// Write stores data at address, one transaction per page touched. On a
// transport failure the returned *WriteError tells how much of data landed.
func (e *AT24MAC) Write(ctx context.Context, address int, data []byte) error {
	if err := e.checkSpan(address, len(data)); err != nil {
		return err
	}
	var written, skipped int
	for _, s := range planPages(address, len(data), e.part.PageSize) {
		wrote, err := e.writePage(ctx, s.address, data[s.start:s.end])
		if err != nil {
			return &WriteError{Address: address, Length: len(data), Written: s.start, Err: err}
		}
		if wrote {
			written++
		} else {
			skipped++
		}
	}
	slog.Debug("eeprom write", "address", address, "length", len(data), "pages_written", written, "pages_skipped", skipped)
	return nil
}

// writePage commits a chunk that lies within one page unless the device
// already holds it.
func (e *AT24MAC) writePage(ctx context.Context, address int, chunk []byte) (bool, error) {
	current, err := e.read(ctx, address, len(chunk))
	if err != nil {
		return false, err
	}
	if bytes.Equal(current, chunk) {
		return false, nil
	}
	msg := make([]byte, 0, len(chunk)+1)
	msg = append(msg, byte(address))
	msg = append(msg, chunk...)
	err = e.transport.WriteToAddr(ctx, e.address, msg)
	if err != nil {
		return false, fmt.Errorf("%w: page write at 0x%02x: %w", ErrTransport, address, err)
	}
	// the part ignores the bus until the internal write cycle completes
	e.sleep(e.writeDelay)
	return true, nil
}

func (e *AT24MAC) read(ctx context.Context, address, length int) ([]byte, error) {
	buf := make([]byte, length)
	err := e.transport.TxToAddr(ctx, e.address, []byte{byte(address)}, buf)
	if err != nil {
		return nil, fmt.Errorf("%w: read %d bytes at 0x%02x: %w", ErrTransport, length, address, err)
	}
	return buf, nil
}

func (e *AT24MAC) checkAddress(address int) error {
	if address < 0 || address >= e.part.Capacity {
		return fmt.Errorf("%w: address %d outside [0, %d)", ErrAddressOutOfRange, address, e.part.Capacity)
	}
	return nil
}

// checkBound accepts the capacity itself so it can close a half-open range.
func (e *AT24MAC) checkBound(name string, bound int) error {
	if bound < 0 || bound > e.part.Capacity {
		return fmt.Errorf("%w: %s %d outside [0, %d]", ErrAddressOutOfRange, name, bound, e.part.Capacity)
	}
	return nil
}

func (e *AT24MAC) checkSpan(address, length int) error {
	if length < 0 {
		return fmt.Errorf("%w: negative length %d", ErrInvalidRange, length)
	}
	if address < 0 || address+length > e.part.Capacity {
		return fmt.Errorf("%w: %d bytes at %d exceed capacity %d", ErrAddressOutOfRange, length, address, e.part.Capacity)
	}
	return nil
}

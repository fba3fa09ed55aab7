package at24mac

import (
	"context"
	"errors"
	"fmt"
	"io"
)

var (
	_ io.ReadWriteSeeker = &Cursor{}
	_ io.ReaderAt        = &Cursor{}
	_ io.WriterAt        = &Cursor{}
)

// Cursor exposes the array through the io interfaces, e.g. for io.Copy to and
// from image files. All calls use the context given to (*AT24MAC).Cursor.
type Cursor struct {
	ctx    context.Context
	dev    *AT24MAC
	offset int64
}

func (e *AT24MAC) Cursor(ctx context.Context) *Cursor {
	return &Cursor{ctx: ctx, dev: e}
}

// ReadAt reads up to len(p) bytes, clamped to the end of the array.
func (c *Cursor) ReadAt(p []byte, off int64) (int, error) {
	size := int64(c.dev.Len())
	if off < 0 {
		return 0, fmt.Errorf("%w: negative offset %d", ErrAddressOutOfRange, off)
	}
	if off >= size {
		return 0, io.EOF
	}
	n := min(int64(len(p)), size-off)
	data, err := c.dev.Read(c.ctx, int(off), int(n))
	if err != nil {
		return 0, err
	}
	copy(p, data)
	if int(n) < len(p) {
		return int(n), io.EOF
	}
	return int(n), nil
}

// WriteAt writes all of p or nothing when p does not fit. A transport failure
// reports the bytes that landed.
func (c *Cursor) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > int64(c.dev.Len()) {
		return 0, fmt.Errorf("%w: %d bytes at %d exceed capacity %d", ErrAddressOutOfRange, len(p), off, c.dev.Len())
	}
	err := c.dev.Write(c.ctx, int(off), p)
	if err != nil {
		var werr *WriteError
		if errors.As(err, &werr) {
			return werr.Written, err
		}
		return 0, err
	}
	return len(p), nil
}

func (c *Cursor) Read(p []byte) (int, error) {
	n, err := c.ReadAt(p, c.offset)
	c.offset += int64(n)
	if err == io.EOF && n > 0 {
		// report EOF on the next call
		return n, nil
	}
	return n, err
}

func (c *Cursor) Write(p []byte) (int, error) {
	n, err := c.WriteAt(p, c.offset)
	c.offset += int64(n)
	return n, err
}

func (c *Cursor) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = c.offset + offset
	case io.SeekEnd:
		next = int64(c.dev.Len()) + offset
	default:
		return c.offset, fmt.Errorf("%w: whence %d", ErrInvalidArgument, whence)
	}
	if next < 0 || next > int64(c.dev.Len()) {
		return c.offset, fmt.Errorf("%w: seek to %d", ErrAddressOutOfRange, next)
	}
	c.offset = next
	return next, nil
}

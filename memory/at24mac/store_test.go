package at24mac

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestDevice(t *testing.T) (*AT24MAC, *MockDevice) {
	t.Helper()
	dev := NewMockDevice(AT24MAC402, DefaultAddressPins)
	e, err := New(context.Background(), dev, WithSleep(dev.Sleep))
	require.NoError(t, err)
	dev.Reset()
	return e, dev
}

func TestByteRoundTrip(t *testing.T) {
	e, _ := newTestDevice(t)
	ctx := context.Background()
	for address := 0; address < e.Len(); address++ {
		value := byte(address*7 + 3)
		require.NoError(t, e.SetByte(ctx, address, value))
		got, err := e.ByteAt(ctx, address)
		require.NoError(t, err)
		assert.Equal(t, value, got, "address %d", address)
	}
}

func TestRangeRoundTrip(t *testing.T) {
	e, dev := newTestDevice(t)
	ctx := context.Background()
	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		start := rnd.Intn(e.Len() + 1)
		stop := start + rnd.Intn(e.Len()-start+1)
		data := make([]byte, stop-start)
		rnd.Read(data)
		require.NoError(t, e.WriteRange(ctx, start, data))
		got, err := e.ReadRange(ctx, start, stop)
		require.NoError(t, err)
		assert.Equal(t, data, got, "[%d, %d)", start, stop)
		assert.Equal(t, data, dev.Memory()[start:stop])
	}
}

func TestWrite_SinglePage(t *testing.T) {
	e, dev := newTestDevice(t)
	ctx := context.Background()
	require.NoError(t, e.WriteRange(ctx, 100, []byte{6, 7, 8, 9, 10}))

	writes := dev.PageWrites()
	require.Len(t, writes, 1)
	assert.Equal(t, []byte{100, 6, 7, 8, 9, 10}, writes[0].Write)

	got, err := e.ReadRange(ctx, 100, 105)
	require.NoError(t, err)
	assert.Equal(t, []byte{6, 7, 8, 9, 10}, got)
}

func TestWrite_PageSplitting(t *testing.T) {
	tests := []struct {
		address int
		length  int
		pages   [][2]int // address, length
	}{
		{10, 20, [][2]int{{10, 6}, {16, 14}}},
		{10, 30, [][2]int{{10, 6}, {16, 16}, {32, 8}}},
		{0, 48, [][2]int{{0, 16}, {16, 16}, {32, 16}}},
		{250, 6, [][2]int{{250, 6}}},
		{15, 2, [][2]int{{15, 1}, {16, 1}}},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%d+%d", test.address, test.length), func(t *testing.T) {
			e, dev := newTestDevice(t)
			data := bytes.Repeat([]byte{0x5A}, test.length)
			require.NoError(t, e.Write(context.Background(), test.address, data))

			writes := dev.PageWrites()
			require.Len(t, writes, len(test.pages))
			for i, w := range writes {
				address, length := int(w.Write[0]), len(w.Write)-1
				assert.Equal(t, test.pages[i], [2]int{address, length})
				assert.Equal(t, address/16, (address+length-1)/16, "write %d crosses a page", i)
			}
			assert.Equal(t, data, dev.Memory()[test.address:test.address+test.length])
		})
	}
}

func TestWrite_NoTransactionCrossesPage(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 100; i++ {
		e, dev := newTestDevice(t)
		start := rnd.Intn(e.Len())
		length := 2 + rnd.Intn(e.Len()-start)
		if start+length > e.Len() {
			length = e.Len() - start
		}
		data := make([]byte, length)
		rnd.Read(data)
		data[0] = ^dev.Memory()[start]
		require.NoError(t, e.Write(context.Background(), start, data))
		for _, tx := range dev.Transactions() {
			if tx.Kind != TxWrite {
				continue
			}
			address, n := int(tx.Write[0]), len(tx.Write)-1
			assert.Equal(t, address/16, (address+n-1)/16, "%d bytes at %d", n, address)
		}
		assert.Equal(t, data, dev.Memory()[start:start+length])
	}
}

func TestWrite_Idempotent(t *testing.T) {
	e, dev := newTestDevice(t)
	ctx := context.Background()
	data := make([]byte, 77)
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, e.Write(ctx, 33, data))
	first := dev.Memory()
	assert.NotEmpty(t, dev.PageWrites())

	dev.Reset()
	require.NoError(t, e.Write(ctx, 33, data))
	assert.Equal(t, first, dev.Memory())
	assert.Empty(t, dev.PageWrites())
	for _, tx := range dev.Transactions() {
		assert.Equal(t, TxWriteRead, tx.Kind)
	}
	// 33..109 touches pages 2..6
	assert.Len(t, dev.Transactions(), 5)
}

func TestWrite_SkipsOnlyMatchingPages(t *testing.T) {
	e, dev := newTestDevice(t)
	ctx := context.Background()
	data := bytes.Repeat([]byte{0x11}, 48)
	dev.Load(0, data[:16])
	dev.Load(32, data[32:])

	var slept []time.Duration
	e.sleep = func(d time.Duration) {
		slept = append(slept, d)
		dev.Sleep(d)
	}
	require.NoError(t, e.Write(ctx, 0, data))
	writes := dev.PageWrites()
	require.Len(t, writes, 1)
	assert.Equal(t, byte(16), writes[0].Write[0])
	assert.Equal(t, []time.Duration{5 * time.Millisecond}, slept)
}

func TestWrite_Boundary(t *testing.T) {
	e, dev := newTestDevice(t)
	ctx := context.Background()

	require.NoError(t, e.Write(ctx, 250, []byte{1, 2, 3, 4, 5, 6}))
	dev.Reset()

	err := e.Write(ctx, 250, []byte{1, 2, 3, 4, 5, 6, 7})
	assert.ErrorIs(t, err, ErrAddressOutOfRange)
	err = e.WriteRange(ctx, 256, []byte{1})
	assert.ErrorIs(t, err, ErrAddressOutOfRange)
	err = e.SetByte(ctx, 256, 1)
	assert.ErrorIs(t, err, ErrAddressOutOfRange)
	err = e.SetByte(ctx, -1, 1)
	assert.ErrorIs(t, err, ErrAddressOutOfRange)
	assert.Empty(t, dev.Transactions())
}

func TestRead_Validation(t *testing.T) {
	e, dev := newTestDevice(t)
	ctx := context.Background()
	tests := []struct {
		name     string
		call     func() ([]byte, error)
		expected error
	}{
		{"byte past end", func() ([]byte, error) {
			b, err := e.ByteAt(ctx, 256)
			return []byte{b}, err
		}, ErrAddressOutOfRange},
		{"negative start", func() ([]byte, error) { return e.ReadRange(ctx, -1, 4) }, ErrAddressOutOfRange},
		{"stop past end", func() ([]byte, error) { return e.ReadRange(ctx, 0, 257) }, ErrAddressOutOfRange},
		{"reversed", func() ([]byte, error) { return e.ReadRange(ctx, 20, 10) }, ErrInvalidRange},
		{"negative length", func() ([]byte, error) { return e.Read(ctx, 10, -1) }, ErrInvalidRange},
		{"length past end", func() ([]byte, error) { return e.Read(ctx, 200, 57) }, ErrAddressOutOfRange},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := test.call()
			assert.ErrorIs(t, err, test.expected)
		})
	}
	assert.Empty(t, dev.Transactions())
}

func TestRead_Ranges(t *testing.T) {
	e, dev := newTestDevice(t)
	ctx := context.Background()
	content := make([]byte, 256)
	for i := range content {
		content[i] = byte(255 - i)
	}
	dev.Load(0, content)

	all, err := e.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, content, all)

	tail, err := e.ReadRange(ctx, 240, 256)
	require.NoError(t, err)
	assert.Equal(t, content[240:], tail)

	empty, err := e.ReadRange(ctx, 40, 40)
	require.NoError(t, err)
	assert.Empty(t, empty)

	// one transaction per non-empty read
	assert.Len(t, dev.Transactions(), 2)
}

func TestWrite_SettleDelayRequired(t *testing.T) {
	dev := NewMockDevice(AT24MAC402, DefaultAddressPins)
	// never lets the emulated write cycle finish
	e, err := New(context.Background(), dev, WithSleep(func(time.Duration) {}))
	require.NoError(t, err)

	data := bytes.Repeat([]byte{0x00}, 20)
	err = e.Write(context.Background(), 10, data)
	var werr *WriteError
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, 6, werr.Written)
	assert.Equal(t, 10, werr.Address)
	assert.Equal(t, 20, werr.Length)
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, ErrNACK)

	mem := dev.Memory()
	assert.Equal(t, data[:6], mem[10:16])
	assert.Equal(t, bytes.Repeat([]byte{0xFF}, 14), mem[16:30])
}

func TestWrite_PartialFailure(t *testing.T) {
	e, dev := newTestDevice(t)
	broken := fmt.Errorf("arbitration lost")
	writes := 0
	dev.Fault = func(tx Transaction) error {
		if tx.Kind == TxWrite {
			writes++
			if writes == 3 {
				return broken
			}
		}
		return nil
	}
	data := bytes.Repeat([]byte{0x33}, 64)
	err := e.Write(context.Background(), 8, data)
	var werr *WriteError
	require.True(t, errors.As(err, &werr))
	assert.ErrorIs(t, err, broken)
	// pages 8..15 and 16..31 landed, 32..47 failed, nothing after
	assert.Equal(t, 24, werr.Written)
	mem := dev.Memory()
	assert.Equal(t, data[:24], mem[8:32])
	assert.Equal(t, bytes.Repeat([]byte{0xFF}, 40), mem[32:72])

	var attempted []byte
	for _, tx := range dev.Transactions() {
		if tx.Kind == TxWrite {
			attempted = append(attempted, tx.Write[0])
		}
	}
	assert.Equal(t, []byte{8, 16, 32}, attempted)
}

func TestWrite_ComparisonReadFailure(t *testing.T) {
	bus := &MockI2CBus{}
	bus.On("TxToAddr", mock.Anything, byte(0x5C), mock.Anything, mock.Anything).Return(nil, nil).Twice()
	e, err := New(context.Background(), bus, WithSleep(func(time.Duration) {}))
	require.NoError(t, err)

	broken := fmt.Errorf("timeout")
	bus.On("TxToAddr", mock.Anything, byte(0x54), []byte{0x00}, mock.Anything).Return(nil, broken).Once()
	err = e.SetByte(context.Background(), 0, 1)
	assert.ErrorIs(t, err, broken)
	assert.ErrorIs(t, err, ErrTransport)
	bus.AssertNotCalled(t, "WriteToAddr", mock.Anything, mock.Anything, mock.Anything)
	bus.AssertExpectations(t)
}

func TestWrite_Messages(t *testing.T) {
	bus := &MockI2CBus{}
	bus.On("TxToAddr", mock.Anything, byte(0x5C), mock.Anything, mock.Anything).Return(nil, nil).Twice()
	var slept []time.Duration
	e, err := New(context.Background(), bus, WithSleep(func(d time.Duration) { slept = append(slept, d) }))
	require.NoError(t, err)

	bus.On("TxToAddr", mock.Anything, byte(0x54), []byte{0x0E}, mock.Anything).Return([]byte{0xFF, 0xFF}, nil).Once()
	bus.On("WriteToAddr", mock.Anything, byte(0x54), []byte{0x0E, 0xAB, 0xCD}).Return(nil).Once()
	bus.On("TxToAddr", mock.Anything, byte(0x54), []byte{0x10}, mock.Anything).Return([]byte{0xEF}, nil).Once()

	require.NoError(t, e.Write(context.Background(), 14, []byte{0xAB, 0xCD, 0xEF}))
	bus.AssertExpectations(t)
	assert.Equal(t, []time.Duration{5 * time.Millisecond}, slept)
}

func TestWrite_Empty(t *testing.T) {
	e, dev := newTestDevice(t)
	require.NoError(t, e.Write(context.Background(), 0, nil))
	require.NoError(t, e.WriteRange(context.Background(), 256, []byte{}))
	assert.Empty(t, dev.Transactions())
}

package image

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecksum(t *testing.T) {
	// CRC-32/IEEE check value
	assert.Equal(t, uint32(0xCBF43926), Checksum([]byte("123456789")))
	assert.Equal(t, uint32(0), Checksum(nil))
}

func TestDiff(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []byte
		expected []Span
	}{
		{"equal", []byte{1, 2, 3}, []byte{1, 2, 3}, nil},
		{"middle", []byte{1, 2, 3, 4}, []byte{1, 9, 9, 4}, []Span{{1, 3}}},
		{"two runs", []byte{1, 2, 3, 4, 5}, []byte{0, 2, 3, 0, 0}, []Span{{0, 1}, {3, 5}}},
		{"longer b", []byte{1, 2}, []byte{1, 2, 3, 4}, []Span{{2, 4}}},
		{"run into extra", []byte{1, 2, 3}, []byte{1, 0}, []Span{{1, 3}}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, Diff(test.a, test.b))
		})
	}
	assert.Equal(t, 2, Span{3, 5}.Len())
	assert.Equal(t, "[0x03, 0x05)", Span{3, 5}.String())
}

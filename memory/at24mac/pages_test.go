package at24mac

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanPages(t *testing.T) {
	tests := []struct {
		address  int
		length   int
		expected []span
	}{
		{0, 0, nil},
		{7, 1, []span{{7, 0, 1}}},
		{15, 1, []span{{15, 0, 1}}},
		{100, 5, []span{{100, 0, 5}}},
		{0, 16, []span{{0, 0, 16}}},
		{0, 32, []span{{0, 0, 16}, {16, 16, 32}}},
		{32, 20, []span{{32, 0, 16}, {48, 16, 20}}},
		{10, 10, []span{{10, 0, 6}, {16, 6, 10}}},
		{10, 16, []span{{10, 0, 6}, {16, 6, 16}}},
		{10, 20, []span{{10, 0, 6}, {16, 6, 20}}},
		{10, 30, []span{{10, 0, 6}, {16, 6, 22}, {32, 22, 30}}},
		{10, 40, []span{{10, 0, 6}, {16, 6, 22}, {32, 22, 38}, {48, 38, 40}}},
		{15, 18, []span{{15, 0, 1}, {16, 1, 17}, {32, 17, 18}}},
		{1, 32, []span{{1, 0, 15}, {16, 15, 31}, {32, 31, 32}}},
		{0, 256, []span{
			{0, 0, 16}, {16, 16, 32}, {32, 32, 48}, {48, 48, 64},
			{64, 64, 80}, {80, 80, 96}, {96, 96, 112}, {112, 112, 128},
			{128, 128, 144}, {144, 144, 160}, {160, 160, 176}, {176, 176, 192},
			{192, 192, 208}, {208, 208, 224}, {224, 224, 240}, {240, 240, 256},
		}},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%d+%d", test.address, test.length), func(t *testing.T) {
			assert.Equal(t, test.expected, planPages(test.address, test.length, 16))
		})
	}
}

// boundarySplit cuts at every page boundary; the remaining count is
// length - offset - fullPages*pageSize.
func boundarySplit(address, length, pageSize int) []span {
	var spans []span
	for start := 0; start < length; {
		room := pageSize - (address+start)%pageSize
		n := min(room, length-start)
		spans = append(spans, span{address: address + start, start: start, end: start + n})
		start += n
	}
	return spans
}

func TestPlanPages_MatchesBoundarySplit(t *testing.T) {
	for _, pageSize := range []int{8, 16} {
		for address := 0; address < 256; address++ {
			for length := 0; address+length <= 256; length++ {
				got := planPages(address, length, pageSize)
				want := boundarySplit(address, length, pageSize)
				if !assert.Equal(t, want, got, "page %d, %d bytes at %d", pageSize, length, address) {
					return
				}
			}
		}
	}
}

func TestPlanPages_Invariants(t *testing.T) {
	const pageSize = 16
	for address := 0; address < 256; address++ {
		for length := 1; address+length <= 256; length++ {
			spans := planPages(address, length, pageSize)
			covered := 0
			for _, s := range spans {
				assert.Equal(t, address+s.start, s.address)
				assert.Positive(t, s.len())
				first := s.address / pageSize
				last := (s.address + s.len() - 1) / pageSize
				assert.Equal(t, first, last, "span %+v crosses a page boundary", s)
				assert.Equal(t, covered, s.start, "spans must be contiguous")
				covered = s.end
			}
			assert.Equal(t, length, covered)
		}
	}
}

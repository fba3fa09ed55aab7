// Package image handles raw EEPROM dumps kept on the host: checksums to
// identify a dump and diffs against the live device contents.
package image

import (
	"fmt"

	"github.com/snksoft/crc"
)

var crcTable = crc.NewTable(crc.CRC32)

// Checksum returns the CRC-32 (IEEE) of a dump.
func Checksum(data []byte) uint32 {
	h := crc.NewHashWithTable(crcTable)
	h.Update(data)
	return h.CRC32()
}

// Span is a run of differing bytes [Start, End).
type Span struct {
	Start int
	End   int
}

func (s Span) Len() int {
	return s.End - s.Start
}

func (s Span) String() string {
	return fmt.Sprintf("[0x%02x, 0x%02x)", s.Start, s.End)
}

// Diff returns the runs where a and b differ. When the lengths differ the
// extra bytes of the longer one form the last run.
func Diff(a, b []byte) []Span {
	n := min(len(a), len(b))
	var spans []Span
	start := -1
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			spans = append(spans, Span{Start: start, End: i})
			start = -1
		}
	}
	end := max(len(a), len(b))
	switch {
	case start >= 0:
		spans = append(spans, Span{Start: start, End: end})
	case n < end:
		spans = append(spans, Span{Start: n, End: end})
	}
	return spans
}

package at24mac

// span is one page write: data[start:end] goes to the device at address.
type span struct {
	address int
	start   int
	end     int
}

func (s span) len() int {
	return s.end - s.start
}

// planPages splits length bytes starting at address so that no span crosses a
// page boundary. A leading partial page is written first, then full pages, then
// the tail. A single byte is always one span.
func planPages(address, length, pageSize int) []span {
	if length <= 0 {
		return nil
	}
	if length == 1 {
		return []span{{address: address, start: 0, end: 1}}
	}
	// bytes up to the next boundary, 0 when already aligned
	offset := pageSize - address%pageSize
	if offset == pageSize {
		offset = 0
	}
	totalPages := length / pageSize
	// may go negative once the leading partial page is accounted for; the full
	// page loop below then ends on a short final chunk and there is no tail
	remaining := length%pageSize - offset

	var spans []span
	current := address
	if offset > 0 {
		spans = append(spans, span{address: current, start: 0, end: min(offset, length)})
		current += offset
	}
	for i := offset; i < totalPages*pageSize; i += pageSize {
		spans = append(spans, span{address: current, start: i, end: min(i+pageSize, length)})
		current += pageSize
	}
	if remaining > 0 {
		spans = append(spans, span{address: current, start: offset + totalPages*pageSize, end: length})
	}
	return spans
}

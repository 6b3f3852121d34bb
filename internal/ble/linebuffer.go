package ble

import "bytes"

// lineBuffer reassembles notification chunks into complete response
// lines. Adapters terminate lines with carriage returns and append a
// '>' prompt; both act as delimiters. Empty segments are dropped.
type lineBuffer struct {
	pending []byte
}

// feed appends a chunk and returns the complete lines it closed.
func (b *lineBuffer) feed(chunk []byte) [][]byte {
	b.pending = append(b.pending, chunk...)

	var lines [][]byte
	for {
		i := bytes.IndexAny(b.pending, "\r\n>")
		if i < 0 {
			break
		}
		seg := bytes.TrimSpace(b.pending[:i])
		b.pending = b.pending[i+1:]
		if len(seg) > 0 {
			line := make([]byte, len(seg))
			copy(line, seg)
			lines = append(lines, line)
		}
	}

	// Guard against a peer that never terminates.
	if len(b.pending) > 4096 {
		b.pending = nil
	}
	return lines
}

// reset drops any partial line, for use across reconnects.
func (b *lineBuffer) reset() {
	b.pending = nil
}

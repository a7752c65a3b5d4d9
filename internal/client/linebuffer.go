package client

import (
	"bytes"
	"strings"
)

// LineBuffer reassembles newline-delimited text from an arbitrarily chunked
// byte stream. Bytes after the last newline stay buffered until the rest of
// the line arrives, so a line boundary is never lost even when data arrives
// byte-by-byte.
type LineBuffer struct {
	buf bytes.Buffer
}

// Feed appends a chunk and returns every complete line it finished, trimmed,
// with empty lines dropped.
func (b *LineBuffer) Feed(data []byte) []string {
	b.buf.Write(data)

	var lines []string
	for {
		raw := b.buf.Bytes()
		idx := bytes.IndexByte(raw, '\n')
		if idx < 0 {
			return lines
		}

		line := strings.TrimSpace(string(raw[:idx]))
		b.buf.Next(idx + 1)
		if line != "" {
			lines = append(lines, line)
		}
	}
}

// Pending returns the number of buffered bytes awaiting a newline.
func (b *LineBuffer) Pending() int {
	return b.buf.Len()
}

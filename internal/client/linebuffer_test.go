package client

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineBufferSingleChunk(t *testing.T) {
	var lb LineBuffer
	lines := lb.Feed([]byte("{\"type\": \"wheel_open\"}\n{\"type\": \"back_pressed\"}\n"))
	require.Len(t, lines, 2)
	assert.Equal(t, `{"type": "wheel_open"}`, lines[0])
	assert.Equal(t, `{"type": "back_pressed"}`, lines[1])
	assert.Equal(t, 0, lb.Pending())
}

func TestLineBufferPartialLineSpansChunks(t *testing.T) {
	var lb LineBuffer
	assert.Empty(t, lb.Feed([]byte(`{"type": "wheel_`)))
	assert.True(t, lb.Pending() > 0)

	lines := lb.Feed([]byte("open\"}\n"))
	require.Len(t, lines, 1)
	assert.Equal(t, `{"type": "wheel_open"}`, lines[0])
}

func TestLineBufferChunkBoundaryInvariance(t *testing.T) {
	stream := strings.Join([]string{
		`{"type": "wheel_open", "x": 0.5}`,
		`{"type": "wheel_hover", "sector": 3}`,
		``,
		`{"type": "wheel_select_confirm", "sector": 3, "medication": "Metformin"}`,
		`{"type": "back_pressed"}`,
	}, "\n") + "\n"

	// Reference: the whole stream in one chunk.
	var whole LineBuffer
	want := whole.Feed([]byte(stream))
	require.Len(t, want, 4) // the empty line is dropped

	// Every chunk size from byte-by-byte up must yield the same lines.
	for size := 1; size <= len(stream); size++ {
		var lb LineBuffer
		var got []string
		for i := 0; i < len(stream); i += size {
			end := i + size
			if end > len(stream) {
				end = len(stream)
			}
			got = append(got, lb.Feed([]byte(stream[i:end]))...)
		}
		require.Equalf(t, want, got, "chunk size %d", size)
	}
}

func TestLineBufferTrimsCarriageReturnAndWhitespace(t *testing.T) {
	var lb LineBuffer
	lines := lb.Feed([]byte("  {\"type\": \"back_pressed\"}  \r\n"))
	require.Len(t, lines, 1)
	assert.Equal(t, `{"type": "back_pressed"}`, lines[0])
}

func TestLineBufferDropsBlankLines(t *testing.T) {
	var lb LineBuffer
	assert.Empty(t, lb.Feed([]byte("\n\r\n   \n")))
}

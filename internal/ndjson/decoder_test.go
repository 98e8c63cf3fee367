package ndjson

import (
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// chunkReader delivers the payload in fixed-size pieces so tests can exercise
// reads that split lines and multibyte characters.
type chunkReader struct {
	data []byte
	size int
	off  int
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if c.off >= len(c.data) {
		return 0, io.EOF
	}
	n := c.size
	if n > len(p) {
		n = len(p)
	}
	if c.off+n > len(c.data) {
		n = len(c.data) - c.off
	}
	copy(p, c.data[c.off:c.off+n])
	c.off += n
	return n, nil
}

func drain(t *testing.T, r io.Reader) []string {
	t.Helper()
	dec := NewDecoder(r)
	var out []string
	for {
		rec, err := dec.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, string(rec))
	}
}

func TestNextAnyChunking(t *testing.T) {
	payload := `{"type":"gameStart","game":{"id":"g1"}}` + "\n" +
		"\n" +
		`{"type":"chatLine","username":"søren","text":"góðan dag ♞"}` + "\n" +
		`{"type":"gameState","moves":"e2e4 e7e5"}` + "\n"

	want := drain(t, strings.NewReader(payload))
	require.Len(t, want, 3)

	for size := 1; size <= len(payload); size++ {
		got := drain(t, &chunkReader{data: []byte(payload), size: size})
		require.Equal(t, want, got, "chunk size %d", size)
	}
}

func TestNextDropsMalformedLines(t *testing.T) {
	payload := "not json\n{\"ok\":1}\n{broken\n{\"ok\":2}\n"
	got := drain(t, strings.NewReader(payload))
	require.Equal(t, []string{`{"ok":1}`, `{"ok":2}`}, got)
}

func TestNextFinalLineWithoutNewline(t *testing.T) {
	got := drain(t, strings.NewReader(`{"a":1}`+"\n"+`{"b":2}`))
	require.Equal(t, []string{`{"a":1}`, `{"b":2}`}, got)
}

func TestNextEOFIsSticky(t *testing.T) {
	dec := NewDecoder(strings.NewReader("{}\n"))
	rec, err := dec.Next()
	require.NoError(t, err)
	require.True(t, json.Valid(rec))
	for i := 0; i < 3; i++ {
		_, err = dec.Next()
		require.ErrorIs(t, err, io.EOF)
	}
}

// Package ndjson reads newline-delimited JSON from a byte stream that
// arrives in arbitrary chunks, the way long-lived Lichess API responses do.
package ndjson

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
)

// Decoder turns a byte stream into a sequence of parsed JSON records, one per
// line. Partial trailing fragments are buffered across reads. Blank lines
// (the protocol's keep-alives) and lines that are not valid JSON are skipped
// silently; the stream ends only when the underlying reader does.
type Decoder struct {
	r    *bufio.Reader
	done bool
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReaderSize(r, 4096)}
}

// Next returns the next JSON record on the stream. It returns io.EOF once the
// underlying reader is exhausted, and the read error verbatim if the stream
// breaks mid-flight (an aborted connection surfaces here).
func (d *Decoder) Next() (json.RawMessage, error) {
	for {
		if d.done {
			return nil, io.EOF
		}
		line, err := d.r.ReadBytes('\n')
		if err != nil {
			if err != io.EOF {
				return nil, err
			}
			// Final line may lack a trailing newline; still a record.
			d.done = true
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 || !json.Valid(line) {
			continue
		}
		rec := make(json.RawMessage, len(line))
		copy(rec, line)
		return rec, nil
	}
}

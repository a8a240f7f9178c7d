// Package extract locates and parses the structured payload inside free-form
// model output.
//
// Fences follow a small marker grammar: a marker is a run of at least three
// backticks, and an open marker is closed by the next marker whose run is at
// least as long. Shorter runs inside a block are treated as content. The
// identifier characters directly after an open marker form its tag. A closing
// marker followed by a tag also opens the next block.
package extract

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	domai "github.com/bryanwahyu/vc-analyst/internal/domain/ai"
	"github.com/bryanwahyu/vc-analyst/internal/domain/report"
)

const (
	fenceChar   = '`'
	minFenceRun = 3
	jsonTag     = "json"
)

var (
	ErrUnterminatedFence = errors.New("code fence has no closing marker")
	ErrEmptyPayload      = errors.New("payload is empty")
	ErrNotObject         = errors.New("payload is not a JSON object")
	ErrTrailingData      = errors.New("unexpected data after payload")
)

type block struct {
	tag    string
	body   int // first byte after marker and tag
	end    int // first byte of the closing marker, -1 when unterminated
	closed bool
}

// Parse extracts the payload from raw and decodes it as a JSON object.
// Every failure is an *ai.ExtractionError carrying raw.
func Parse(raw string) (report.Payload, error) {
	candidate, err := Locate(raw)
	if err != nil {
		return nil, &domai.ExtractionError{Raw: raw, Err: err}
	}
	payload, err := decode(candidate)
	if err != nil {
		return nil, &domai.ExtractionError{Raw: raw, Err: err}
	}
	return payload, nil
}

// Locate returns the payload candidate: the first json-tagged block, else the
// first block of any kind, else the whole text.
func Locate(raw string) (string, error) {
	blocks := scan(raw)
	for _, b := range blocks {
		if strings.EqualFold(b.tag, jsonTag) {
			return b.text(raw)
		}
	}
	if len(blocks) > 0 {
		return blocks[0].text(raw)
	}
	return raw, nil
}

func (b block) text(raw string) (string, error) {
	if !b.closed {
		return "", ErrUnterminatedFence
	}
	return raw[b.body:b.end], nil
}

// scan pairs fence markers in order. Scanning stops at the first block
// that has no closing marker since the rest of the text belongs to it.
func scan(s string) []block {
	var out []block
	i := 0
	for {
		open := nextMarker(s, i)
		if open < 0 {
			return out
		}
		n := runLength(s, open)
		tagEnd := open + n + tagLength(s, open+n)
		b := block{tag: s[open+n : tagEnd], body: tagEnd, end: -1}

		j := tagEnd
		for {
			c := nextMarker(s, j)
			if c < 0 {
				break
			}
			m := runLength(s, c)
			if m >= n {
				b.end, b.closed = c, true
				j = c + m
				// a tag right after the closer means the same run opens the next block
				if tagLength(s, j) > 0 {
					j = c
				}
				break
			}
			j = c + m
		}
		out = append(out, b)
		if !b.closed {
			return out
		}
		i = j
	}
}

// nextMarker returns the index of the next run of >= minFenceRun backticks at or after from.
func nextMarker(s string, from int) int {
	for from < len(s) {
		k := strings.IndexByte(s[from:], fenceChar)
		if k < 0 {
			return -1
		}
		k += from
		n := runLength(s, k)
		if n >= minFenceRun {
			return k
		}
		from = k + n
	}
	return -1
}

func runLength(s string, at int) int {
	n := 0
	for at+n < len(s) && s[at+n] == fenceChar {
		n++
	}
	return n
}

func tagLength(s string, at int) int {
	n := 0
	for at+n < len(s) && isTagByte(s[at+n]) {
		n++
	}
	return n
}

func isTagByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_' || c == '-' || c == '+' || c == '.':
		return true
	}
	return false
}

func decode(candidate string) (report.Payload, error) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return nil, ErrEmptyPayload
	}
	dec := json.NewDecoder(strings.NewReader(candidate))
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, ErrNotObject
		}
		return nil, err
	}
	if payload == nil {
		return nil, ErrNotObject
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, ErrTrailingData
	}
	return report.Payload(payload), nil
}

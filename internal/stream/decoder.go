// Package stream turns raw model output into structured values.
//
// It has two halves:
//   - Decoder: incremental extraction of complete JSON objects from a
//     fragmented text stream, yielding each object as soon as its closing
//     brace arrives.
//   - Extract: single-shot, best-effort extraction of one JSON value from
//     a complete response blob that may be wrapped in prose or code fences.
//
// Both halves are noise-tolerant by contract: "nothing decodable" is an
// ordinary result, never a panic or an error that aborts the stream.
package stream

import (
	"bytes"
	"encoding/json"
	"iter"
)

// Decoder assembles complete JSON objects from a fragmented text stream.
//
// Fragments may split an object at any byte boundary, including inside
// string literals, so the Decoder buffers input across Feed calls and only
// attempts a parse once a brace-balanced span exists. A balanced span that
// fails to parse is skipped, not fatal; decoding resumes at the next
// opening brace.
//
// Known limitation, kept deliberately: the brace scanner does not track
// string quoting, so a literal '{' or '}' inside a JSON string value
// corrupts the depth count for that one object. Such an object is skipped
// by the validity check; surrounding objects still decode.
//
// A Decoder is single-pass and not safe for concurrent use. The zero value
// is ready to use.
type Decoder struct {
	buf []byte
}

// NewDecoder returns an empty Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends one fragment to the internal buffer and returns every JSON
// object completed by it, in stream order. Returns nil when no object
// closed yet; the partial tail stays buffered for the next call.
func (d *Decoder) Feed(fragment string) []json.RawMessage {
	d.buf = append(d.buf, fragment...)

	var out []json.RawMessage
	start := bytes.IndexByte(d.buf, '{')
	for start >= 0 {
		end := matchBrace(d.buf, start)
		if end < 0 {
			// Buffer ends mid-object: wait for more input.
			break
		}
		span := d.buf[start : end+1]
		if json.Valid(span) {
			out = append(out, json.RawMessage(bytes.Clone(span)))
			// Drop the consumed span and everything before it, then
			// compact so the buffer does not pin the old backing array.
			d.buf = append(d.buf[:0], d.buf[end+1:]...)
			start = bytes.IndexByte(d.buf, '{')
			continue
		}
		// Balanced but invalid span: skip to the next opening brace so a
		// single malformed object cannot block the ones behind it.
		next := bytes.IndexByte(d.buf[start+1:], '{')
		if next < 0 {
			break
		}
		start += 1 + next
	}
	return out
}

// Buffered reports how many bytes of undecoded input the Decoder holds.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// matchBrace scans from the opening brace at start, counting nesting
// depth, and returns the index of the brace that closes it, or -1 if the
// buffer ends first. It intentionally ignores string quoting; see the
// Decoder doc for the consequence.
func matchBrace(buf []byte, start int) int {
	depth := 0
	for i := start; i < len(buf); i++ {
		switch buf[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// Objects adapts Decoder to a pull-style pipeline: it consumes a sequence
// of text fragments and yields each complete JSON object as it closes.
// When the fragment sequence ends, any trailing partial object is
// discarded silently.
func Objects(fragments iter.Seq[string]) iter.Seq[json.RawMessage] {
	return func(yield func(json.RawMessage) bool) {
		var dec Decoder
		for fragment := range fragments {
			for _, obj := range dec.Feed(fragment) {
				if !yield(obj) {
					return
				}
			}
		}
	}
}

package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoValue indicates no structured value could be extracted from a
// response. Callers must treat it as recoverable and decide their own
// fallback; it is never a reason to fail a whole generation.
var ErrNoValue = errors.New("no structured value found")

// fencedJSON matches a ```json ... ``` block and captures its body.
// (?s) lets . span newlines inside the fence.
var fencedJSON = regexp.MustCompile("(?s)```json\\s*(.*?)```")

// Extract pulls a single JSON value out of a complete response blob.
//
// Models wrap structured answers in commentary or code fences often enough
// that direct parsing alone is not reliable. Attempts, first success wins:
//  1. the whole text as JSON
//  2. the body of a ```json fenced block
//  3. the greedy span from the first '[' to the last ']'
//
// Returns ErrNoValue when all three fail.
func Extract(text string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed != "" && json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed), nil
	}

	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		inner := strings.TrimSpace(m[1])
		if inner != "" && json.Valid([]byte(inner)) {
			return json.RawMessage(inner), nil
		}
	}

	first := strings.IndexByte(text, '[')
	last := strings.LastIndexByte(text, ']')
	if first >= 0 && last > first {
		span := text[first : last+1]
		if json.Valid([]byte(span)) {
			return json.RawMessage(span), nil
		}
	}

	return nil, ErrNoValue
}

// ExtractInto extracts a JSON value from text and unmarshals it into v.
func ExtractInto(text string, v any) error {
	raw, err := Extract(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %w", ErrNoValue, err)
	}
	return nil
}

// TrimFences strips a leading and trailing Markdown code-fence line from
// generated output. Models routinely wrap HTML in ```html fences; the
// stored artifact content should be the bare markup.
func TrimFences(text string) string {
	s := strings.TrimSpace(text)
	if after, ok := strings.CutPrefix(s, "```"); ok {
		// Drop the rest of the fence line (e.g. the "html" language tag).
		if nl := strings.IndexByte(after, '\n'); nl >= 0 {
			s = after[nl+1:]
		} else {
			s = ""
		}
	}
	if before, ok := strings.CutSuffix(strings.TrimSpace(s), "```"); ok {
		s = before
	}
	return strings.TrimSpace(s)
}

package stream

import (
	"encoding/json"
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecoder_SingleFragment(t *testing.T) {
	t.Parallel()
	var d Decoder

	got := d.Feed(`{"name":"Minimal","html":"<div>a</div>"}`)
	require.Len(t, got, 1)
	assert.JSONEq(t, `{"name":"Minimal","html":"<div>a</div>"}`, string(got[0]))
	assert.Zero(t, d.Buffered())
}

func TestDecoder_MultipleObjectsInOneFragment(t *testing.T) {
	t.Parallel()
	var d Decoder

	got := d.Feed(`[{"a":1},{"b":2},{"c":3}]`)
	require.Len(t, got, 3)
	assert.Equal(t, `{"a":1}`, string(got[0]))
	assert.Equal(t, `{"b":2}`, string(got[1]))
	assert.Equal(t, `{"c":3}`, string(got[2]))
}

// Splitting the input at every possible byte boundary, including inside
// string literals and key names, must always yield the same objects.
func TestDecoder_AllSplitPoints(t *testing.T) {
	t.Parallel()
	input := `[{"name":"Card","html":"<div class=\"x\">hi</div>"},{"name":"Pill","html":"<span>ok</span>"}]`

	for i := 1; i < len(input); i++ {
		var d Decoder
		var got []json.RawMessage
		got = append(got, d.Feed(input[:i])...)
		got = append(got, d.Feed(input[i:])...)

		require.Len(t, got, 2, "split at byte %d", i)
		assert.JSONEq(t, `{"name":"Card","html":"<div class=\"x\">hi</div>"}`, string(got[0]), "split at byte %d", i)
		assert.JSONEq(t, `{"name":"Pill","html":"<span>ok</span>"}`, string(got[1]), "split at byte %d", i)
	}
}

func TestDecoder_ByteAtATime(t *testing.T) {
	t.Parallel()
	input := `noise {"a":1} more noise {"b":2}`

	var d Decoder
	var got []json.RawMessage
	for i := range len(input) {
		got = append(got, d.Feed(input[i:i+1])...)
	}

	require.Len(t, got, 2)
	assert.Equal(t, `{"a":1}`, string(got[0]))
	assert.Equal(t, `{"b":2}`, string(got[1]))
}

func TestDecoder_PartialTailNotEmitted(t *testing.T) {
	t.Parallel()
	var d Decoder

	got := d.Feed(`{"a":1},{"b":`)
	require.Len(t, got, 1)
	assert.Equal(t, `{"a":1}`, string(got[0]))
	assert.Positive(t, d.Buffered())

	// The truncated object stays buffered until its closing brace arrives.
	got = d.Feed(`2}`)
	require.Len(t, got, 1)
	assert.Equal(t, `{"b":2}`, string(got[0]))
}

func TestDecoder_MalformedObjectSkipped(t *testing.T) {
	t.Parallel()
	var d Decoder

	// The middle span is brace-balanced but not valid JSON; the decoder
	// must skip it and still deliver the object after it.
	got := d.Feed(`{"ok":1} {bad json} {"ok":2}`)
	require.Len(t, got, 2)
	assert.Equal(t, `{"ok":1}`, string(got[0]))
	assert.Equal(t, `{"ok":2}`, string(got[1]))
}

// The brace scanner does not track string quoting, so an object whose
// string value contains a literal brace is lost. Objects after it in the
// same stream must still decode.
func TestDecoder_BraceInStringValueSkipsObject(t *testing.T) {
	t.Parallel()
	var d Decoder

	var got []json.RawMessage
	got = append(got, d.Feed(`{"html":"<p>}</p>"}`)...)
	got = append(got, d.Feed(`{"html":"<p>clean</p>"}`)...)

	require.Len(t, got, 1)
	assert.JSONEq(t, `{"html":"<p>clean</p>"}`, string(got[0]))
}

func TestDecoder_NestedObjects(t *testing.T) {
	t.Parallel()
	var d Decoder

	got := d.Feed(`{"outer":{"inner":{"n":1}},"tail":true}`)
	require.Len(t, got, 1)
	assert.JSONEq(t, `{"outer":{"inner":{"n":1}},"tail":true}`, string(got[0]))
}

func TestDecoder_NoObjects(t *testing.T) {
	t.Parallel()
	var d Decoder

	assert.Empty(t, d.Feed("just some prose, no json here"))
	assert.Empty(t, d.Feed(""))
}

func TestObjects_Iterator(t *testing.T) {
	t.Parallel()
	fragments := []string{`[{"n":`, `1},{"n"`, `:2},{"n":3`, `},{"n":`}

	var got []string
	for obj := range Objects(slices.Values(fragments)) {
		got = append(got, string(obj))
	}

	// The fourth object never closes and is dropped with the stream.
	assert.Equal(t, []string{`{"n":1}`, `{"n":2}`, `{"n":3}`}, got)
}

func TestObjects_EarlyBreak(t *testing.T) {
	t.Parallel()
	fragments := []string{`{"n":1}{"n":2}{"n":3}`}

	var got []string
	for obj := range Objects(slices.Values(fragments)) {
		got = append(got, string(obj))
		if len(got) == 2 {
			break
		}
	}
	assert.Len(t, got, 2)
}

func BenchmarkDecoder_Feed(b *testing.B) {
	fragment := fmt.Sprintf(`{"name":"Variant","html":%q}`, `<div class="card"><h2>Plan</h2><p>$9/mo</p></div>`)
	for b.Loop() {
		var d Decoder
		d.Feed(fragment)
	}
}

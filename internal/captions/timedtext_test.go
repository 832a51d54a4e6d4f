package captions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codebuildervaibhav/tubesummary/internal/types"
)

func TestParseTimedTextXML(t *testing.T) {
	t.Run("legacy seconds", func(t *testing.T) {
		body := []byte(`<?xml version="1.0" encoding="utf-8" ?><transcript>` +
			`<text start="0.5" dur="1.2">Hello &amp;#39;world&amp;#39;</text>` +
			`<text start="65.25" dur="2">second line</text></transcript>`)
		segs, err := parseTimedTextXML(body)
		require.NoError(t, err)
		assert.Equal(t, []types.Segment{
			{StartMs: 500, Text: "Hello 'world'"},
			{StartMs: 65250, Text: "second line"},
		}, segs)
	})

	t.Run("format 3 milliseconds", func(t *testing.T) {
		body := []byte(`<timedtext format="3"><body><p t="1200" d="800">one</p>` +
			`<p t="3000" d="500"><s>two</s><s> words</s></p></body></timedtext>`)
		segs, err := parseTimedTextXML(body)
		require.NoError(t, err)
		assert.Equal(t, []types.Segment{
			{StartMs: 1200, Text: "one"},
			{StartMs: 3000, Text: "two words"},
		}, segs)
	})

	t.Run("empty body", func(t *testing.T) {
		segs, err := parseTimedTextXML([]byte("  "))
		require.NoError(t, err)
		assert.Empty(t, segs)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := parseTimedTextXML([]byte("<transcript><text>"))
		assert.Error(t, err)
	})
}

func TestParseJSON3(t *testing.T) {
	body := []byte(`{"events":[{"tStartMs":0,"dDurationMs":1000},` +
		`{"tStartMs":1500,"segs":[{"utf8":"hello"},{"utf8":" there"}]},` +
		`{"tStartMs":4000,"segs":[{"utf8":"\n"}]}]}`)
	segs, err := parseJSON3(body)
	require.NoError(t, err)

	tr, err := types.NewTranscript("abc", types.MethodWatchPage, segs)
	require.NoError(t, err)
	assert.Equal(t, []types.Segment{{StartMs: 1500, Text: "hello there"}}, tr.Segments)
}

func TestWithFormat(t *testing.T) {
	assert.Equal(t, "https://www.youtube.com/api/timedtext?fmt=json3&lang=en&v=abc",
		withFormat("https://www.youtube.com/api/timedtext?v=abc&lang=en", "json3"))
	assert.Equal(t, "https://www.youtube.com/api/timedtext?v=abc",
		withFormat("https://www.youtube.com/api/timedtext?v=abc&fmt=srv3", ""))
}

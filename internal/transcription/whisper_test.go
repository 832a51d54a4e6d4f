package transcription

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWhisperJSON(t *testing.T) {
	res, err := parseWhisperJSON([]byte(`{"text":" hi there","language":"en","segments":[{"id":0,"start":0.0,"end":1.5,"text":" hi"},{"id":1,"start":1.5,"end":3.25,"text":" there"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "en", res.Language)
	assert.Equal(t, 3.25, res.Duration)

	segs := res.toSegments()
	assert.Equal(t, int64(1500), segs[1].StartMs)

	_, err = parseWhisperJSON([]byte(`{`))
	assert.Error(t, err)
}

func TestYtDlpArgs(t *testing.T) {
	y := NewYtDlp("", "/does/not/exist.txt", 0)
	args := y.args("dQw4w9WgXcQ", "/cache/.partial-1.mp3")
	assert.Contains(t, args, "/cache/.partial-1.%(ext)s")
	assert.NotContains(t, args, "--cookies", "missing cookie files are not passed")
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", args[len(args)-1])
}

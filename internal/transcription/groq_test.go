package transcription

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroqBackendTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer gsk_test", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-large-v3-turbo", r.FormValue("model"))
		assert.Equal(t, "verbose_json", r.FormValue("response_format"))
		assert.Equal(t, "segment", r.FormValue("timestamp_granularities[]"))
		assert.Equal(t, "hi", r.FormValue("language"))

		f, _, err := r.FormFile("file")
		require.NoError(t, err)
		data, _ := io.ReadAll(f)
		assert.Equal(t, "audio-bytes", string(data))

		_, _ = io.WriteString(w, `{"language":"hindi","duration":4.2,"segments":[{"start":0,"end":2.1,"text":" namaste "},{"start":2.1,"end":4.2,"text":"duniya"}]}`)
	}))
	defer srv.Close()

	audio := filepath.Join(t.TempDir(), "a.mp3")
	require.NoError(t, os.WriteFile(audio, []byte("audio-bytes"), 0644))

	g := NewGroqBackend("gsk_test", srv.URL+"/", "whisper-large-v3-turbo")
	assert.True(t, g.Configured())

	res, err := g.Transcribe(context.Background(), audio, Options{Language: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hindi", res.Language)
	require.Len(t, res.Segments, 2)
	assert.Equal(t, 2.1, res.Segments[1].Start)
}

func TestGroqBackendErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		_, _ = io.WriteString(w, `{"error":{"message":"file too large"}}`)
	}))
	defer srv.Close()

	audio := filepath.Join(t.TempDir(), "a.mp3")
	require.NoError(t, os.WriteFile(audio, []byte("x"), 0644))

	_, err := NewGroqBackend("k", srv.URL, "m").Transcribe(context.Background(), audio, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file too large")

	assert.False(t, NewGroqBackend("", srv.URL, "m").Configured())
}

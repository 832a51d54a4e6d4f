package captions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codebuildervaibhav/tubesummary/internal/types"
	"github.com/codebuildervaibhav/tubesummary/internal/youtube"
)

const sampleXML = `<transcript><text start="1.0" dur="2">first</text><text start="3.5" dur="2">second</text></transcript>`

func newInnertubeServer(t *testing.T, player func(base string) string, timedtext string) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/youtubei/v1/player":
			body, _ := io.ReadAll(r.Body)
			var req innertubeReq
			require.NoError(t, json.Unmarshal(body, &req))
			assert.Equal(t, "ANDROID", req.Context.Client.ClientName)
			assert.Equal(t, "3", r.Header.Get("X-Youtube-Client-Name"))
			_, _ = io.WriteString(w, player(srv.URL))
		case "/api/timedtext":
			_, _ = io.WriteString(w, timedtext)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func tracksJSON(base string, tracks ...string) string {
	return fmt.Sprintf(`{"playabilityStatus":{"status":"OK"},"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[%s]}}}`,
		joinTracks(base, tracks))
}

func joinTracks(base string, specs []string) string {
	out := ""
	for i, s := range specs {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf(s, base)
	}
	return out
}

func TestInnertubeAttempt(t *testing.T) {
	srv := newInnertubeServer(t, func(base string) string {
		return tracksJSON(base, `{"baseUrl":"%s/api/timedtext?v=dQw4w9WgXcQ&lang=en","languageCode":"en","kind":"asr"}`)
	}, sampleXML)

	tier := NewInnertube(youtube.NewClient(time.Second, 0), []string{"en"}).WithPlayerURL(srv.URL + "/youtubei/v1/player")
	assert.Equal(t, types.MethodInnertube, tier.Name())

	tr, err := tier.Attempt(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "first second", tr.FullText)
	assert.Equal(t, []types.Segment{{StartMs: 1000, Text: "first"}, {StartMs: 3500, Text: "second"}}, tr.Segments)
	assert.Equal(t, int64(3500), tr.DurationMs)
	assert.Equal(t, "en", tr.Language)
	require.NotNil(t, tr.IsMachineGenerated)
	assert.True(t, *tr.IsMachineGenerated)
}

func TestInnertubeFailures(t *testing.T) {
	tests := []struct {
		name      string
		player    func(base string) string
		timedtext string
		want      types.ErrorKind
	}{
		{
			name:   "no captions",
			player: func(string) string { return `{"playabilityStatus":{"status":"OK"}}` },
			want:   types.KindNoCaptions,
		},
		{
			name: "unavailable",
			player: func(string) string {
				return `{"playabilityStatus":{"status":"ERROR","reason":"Video unavailable"}}`
			},
			want: types.KindVideoUnavailable,
		},
		{
			name: "empty track",
			player: func(base string) string {
				return tracksJSON(base, `{"baseUrl":"%s/api/timedtext?v=x","languageCode":"en"}`)
			},
			timedtext: `<transcript></transcript>`,
			want:      types.KindNoCaptions,
		},
		{
			name:   "garbage player",
			player: func(string) string { return `not json` },
			want:   types.KindUnknown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newInnertubeServer(t, tt.player, tt.timedtext)
			tier := NewInnertube(youtube.NewClient(time.Second, 0), []string{"en"}).WithPlayerURL(srv.URL + "/youtubei/v1/player")

			tr, err := tier.Attempt(context.Background(), "dQw4w9WgXcQ")
			require.Error(t, err)
			assert.Nil(t, tr)
			assert.Equal(t, tt.want, types.KindOf(err))
		})
	}
}

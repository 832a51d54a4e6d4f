package captions

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codebuildervaibhav/tubesummary/internal/types"
	"github.com/codebuildervaibhav/tubesummary/internal/youtube"
)

const sampleJSON3 = `{"events":[{"tStartMs":0,"segs":[{"utf8":"hello"}]},{"tStartMs":2500,"segs":[{"utf8":"again"}]}]}`

func watchHTML(player string) string {
	return `<html><head><title>Video - YouTube</title></head><body>` +
		`<script>var foo = 1;</script>` +
		`<script>var ytInitialPlayerResponse = ` + player + `;var meta = {"a":1};</script>` +
		`</body></html>`
}

type watchServer struct {
	*httptest.Server
	pageHits atomic.Int32
}

func newWatchServer(t *testing.T, page func(hit int32, base string) (int, string)) *watchServer {
	t.Helper()
	ws := &watchServer{}
	ws.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/watch":
			hit := ws.pageHits.Add(1)
			status, body := page(hit, ws.URL)
			w.WriteHeader(status)
			_, _ = io.WriteString(w, body)
		case "/api/timedtext":
			assert.Equal(t, "json3", r.URL.Query().Get("fmt"))
			_, _ = io.WriteString(w, sampleJSON3)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ws.Close)
	return ws
}

func (ws *watchServer) tier(policy RetryPolicy) *WatchPage {
	return NewWatchPage(youtube.NewClient(time.Second, 0), []string{"en"}, policy).
		WithWatchURL(func(id string) string { return ws.URL + "/watch?v=" + id })
}

func okPage(base string) string {
	return watchHTML(fmt.Sprintf(`{"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[{"baseUrl":"%s/api/timedtext?v=dQw4w9WgXcQ&lang=en","languageCode":"en"}]}}}`, base))
}

func TestWatchPageAttempt(t *testing.T) {
	ws := newWatchServer(t, func(_ int32, base string) (int, string) {
		return http.StatusOK, okPage(base)
	})

	tr, err := ws.tier(RetryPolicy{Attempts: 2, Backoff: time.Millisecond}).Attempt(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, types.MethodWatchPage, tr.Method)
	assert.Equal(t, "hello again", tr.FullText)
	assert.Equal(t, int64(2500), tr.DurationMs)
	require.NotNil(t, tr.IsMachineGenerated)
	assert.False(t, *tr.IsMachineGenerated)
}

func TestWatchPageRetriesUnknownOnly(t *testing.T) {
	t.Run("transient failure is retried", func(t *testing.T) {
		ws := newWatchServer(t, func(hit int32, base string) (int, string) {
			if hit == 1 {
				return http.StatusInternalServerError, "oops"
			}
			return http.StatusOK, okPage(base)
		})
		tr, err := ws.tier(RetryPolicy{Attempts: 2, Backoff: time.Millisecond}).Attempt(context.Background(), "dQw4w9WgXcQ")
		require.NoError(t, err)
		assert.Equal(t, "hello again", tr.FullText)
		assert.Equal(t, int32(2), ws.pageHits.Load())
	})

	t.Run("attempts are bounded", func(t *testing.T) {
		ws := newWatchServer(t, func(int32, string) (int, string) {
			return http.StatusInternalServerError, "oops"
		})
		_, err := ws.tier(RetryPolicy{Attempts: 2, Backoff: time.Millisecond}).Attempt(context.Background(), "dQw4w9WgXcQ")
		require.Error(t, err)
		assert.Equal(t, types.KindUnknown, types.KindOf(err))
		assert.Equal(t, int32(2), ws.pageHits.Load())
	})

	t.Run("no captions is not retried", func(t *testing.T) {
		ws := newWatchServer(t, func(int32, string) (int, string) {
			return http.StatusOK, watchHTML(`{"playabilityStatus":{"status":"OK"}}`)
		})
		_, err := ws.tier(RetryPolicy{Attempts: 2, Backoff: time.Millisecond}).Attempt(context.Background(), "dQw4w9WgXcQ")
		require.Error(t, err)
		assert.Equal(t, types.KindNoCaptions, types.KindOf(err))
		assert.Equal(t, int32(1), ws.pageHits.Load())
	})

	t.Run("rate limit is not retried", func(t *testing.T) {
		ws := newWatchServer(t, func(int32, string) (int, string) {
			return http.StatusTooManyRequests, "slow down"
		})
		_, err := ws.tier(RetryPolicy{Attempts: 2, Backoff: time.Millisecond}).Attempt(context.Background(), "dQw4w9WgXcQ")
		require.Error(t, err)
		assert.Equal(t, types.KindRateLimited, types.KindOf(err))
		assert.Equal(t, int32(1), ws.pageHits.Load())
	})
}

func TestExtractPlayerResponseMissing(t *testing.T) {
	_, err := extractPlayerResponse([]byte(`<html><head><title>Video unavailable</title></head><body></body></html>`))
	assert.Equal(t, types.KindVideoUnavailable, Classify(err))

	_, err = extractPlayerResponse([]byte(`<html><body><script>var x = 1;</script></body></html>`))
	assert.Equal(t, types.KindUnknown, Classify(err))
}

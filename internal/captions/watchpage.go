package captions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v5"

	"github.com/codebuildervaibhav/tubesummary/internal/logging"
	"github.com/codebuildervaibhav/tubesummary/internal/types"
	"github.com/codebuildervaibhav/tubesummary/internal/youtube"
)

// ytInitialPlayerResponseMarker marks the start of the player response JSON in watch page HTML.
const ytInitialPlayerResponseMarker = "ytInitialPlayerResponse = "

// RetryPolicy bounds the local retry of transient (Unknown) failures
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// DefaultRetryPolicy is 2 attempts total with a fixed 1s pause
var DefaultRetryPolicy = RetryPolicy{Attempts: 2, Backoff: time.Second}

// WatchPage scrapes ytInitialPlayerResponse from the watch page HTML and
// fetches the chosen track as timedtext json3 (offsets in milliseconds).
type WatchPage struct {
	client   *youtube.Client
	langs    []string
	retry    RetryPolicy
	watchURL func(id string) string
}

// NewWatchPage creates the watch page caption tier
func NewWatchPage(client *youtube.Client, langs []string, retry RetryPolicy) *WatchPage {
	if retry.Attempts < 1 {
		retry.Attempts = 1
	}
	return &WatchPage{client: client, langs: langs, retry: retry, watchURL: youtube.WatchURL}
}

// WithWatchURL overrides how the watch page URL is built
func (w *WatchPage) WithWatchURL(fn func(id string) string) *WatchPage {
	w.watchURL = fn
	return w
}

func (w *WatchPage) Name() types.Method { return types.MethodWatchPage }

// Attempt fetches captions, retrying only failures that classify as Unknown
func (w *WatchPage) Attempt(ctx context.Context, videoID string) (*types.Transcript, error) {
	log := logging.FromContext(ctx)
	try := 0

	operation := func() (*types.Transcript, error) {
		try++
		tr, err := w.fetch(ctx, videoID)
		if err == nil {
			return tr, nil
		}
		if kind := Classify(err); kind != types.KindUnknown {
			return nil, backoff.Permanent(err)
		}
		if try < w.retry.Attempts {
			log.Debug("watchpage: retrying", slog.String("video_id", videoID), slog.Int("attempt", try), slog.Any("error", err))
		}
		return nil, err
	}

	tr, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(w.retry.Backoff)),
		backoff.WithMaxTries(uint(w.retry.Attempts)),
	)
	return tr, classified(types.MethodWatchPage, err)
}

func (w *WatchPage) fetch(ctx context.Context, videoID string) (*types.Transcript, error) {
	page, err := w.client.Fetch(ctx, http.MethodGet, w.watchURL(videoID), nil, map[string]string{
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
	})
	if err != nil {
		return nil, fmt.Errorf("watch page: %w", err)
	}

	player, err := extractPlayerResponse(page)
	if err != nil {
		return nil, err
	}

	track, err := selectTrack(player, w.langs)
	if err != nil {
		return nil, err
	}

	body, err := w.client.Fetch(ctx, http.MethodGet, withFormat(track.BaseURL, "json3"), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch timedtext: %w", err)
	}
	segs, err := parseJSON3(body)
	if err != nil {
		return nil, err
	}
	return finish(videoID, types.MethodWatchPage, track, segs)
}

// extractPlayerResponse finds the inline script assigning ytInitialPlayerResponse
// and decodes the JSON object that follows the marker.
func extractPlayerResponse(page []byte) (*playerResponse, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse watch page: %w", err)
	}

	var script string
	doc.Find("script").EachWithBreak(func(i int, s *goquery.Selection) bool {
		text := s.Text()
		if strings.Contains(text, ytInitialPlayerResponseMarker) {
			script = text
			return false
		}
		return true
	})
	if script == "" {
		if strings.Contains(doc.Find("title").Text(), "unavailable") {
			return nil, errors.New("video unavailable")
		}
		return nil, errors.New("ytInitialPlayerResponse not found in watch page")
	}

	raw := script[strings.Index(script, ytInitialPlayerResponseMarker)+len(ytInitialPlayerResponseMarker):]
	var player playerResponse
	if err := json.NewDecoder(strings.NewReader(raw)).Decode(&player); err != nil {
		return nil, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	return &player, nil
}

package captions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/codebuildervaibhav/tubesummary/internal/types"
	"github.com/codebuildervaibhav/tubesummary/internal/youtube"
)

// playerScript reads the player response the page scripts assigned
const playerScript = `(async () => {
	const p = window.ytInitialPlayerResponse;
	return p ? JSON.stringify(p) : "";
})()`

// Browser renders the watch page in headless Chrome and reads
// ytInitialPlayerResponse in-page. It reaches videos whose static HTML is
// bot-gated, at the cost of a browser start per attempt.
type Browser struct {
	client   *youtube.Client
	langs    []string
	wait     time.Duration
	allocOpt []chromedp.ExecAllocatorOption
}

// NewBrowser creates the headless browser caption tier
func NewBrowser(client *youtube.Client, langs []string, wait time.Duration) *Browser {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(youtube.UserAgentChrome),
		chromedp.Flag("mute-audio", true),
	)
	return &Browser{client: client, langs: langs, wait: wait, allocOpt: opts}
}

func (b *Browser) Name() types.Method { return types.MethodBrowser }

// Attempt renders the watch page and fetches the best track as json3
func (b *Browser) Attempt(ctx context.Context, videoID string) (*types.Transcript, error) {
	tr, err := b.fetch(ctx, videoID)
	return tr, classified(types.MethodBrowser, err)
}

func (b *Browser) fetch(ctx context.Context, videoID string) (*types.Transcript, error) {
	raw, err := b.playerJSON(ctx, youtube.WatchURL(videoID))
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, errors.New("ytInitialPlayerResponse not set after render")
	}

	var player playerResponse
	if err := json.Unmarshal([]byte(raw), &player); err != nil {
		return nil, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}

	track, err := selectTrack(&player, b.langs)
	if err != nil {
		return nil, err
	}

	body, err := b.client.Fetch(ctx, http.MethodGet, withFormat(track.BaseURL, "json3"), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch timedtext: %w", err)
	}
	segs, err := parseJSON3(body)
	if err != nil {
		return nil, err
	}
	return finish(videoID, types.MethodBrowser, track, segs)
}

func (b *Browser) playerJSON(ctx context.Context, url string) (string, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, b.allocOpt...)
	defer cancelAlloc()

	bctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	var raw string
	err := chromedp.Run(bctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(b.wait),
		chromedp.Evaluate(playerScript, &raw, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}),
	)
	if err != nil {
		return "", fmt.Errorf("failed to render watch page: %w", err)
	}
	return raw, nil
}

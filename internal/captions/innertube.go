package captions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/codebuildervaibhav/tubesummary/internal/types"
	"github.com/codebuildervaibhav/tubesummary/internal/youtube"
)

const (
	InnertubePlayerURL = "https://www.youtube.com/youtubei/v1/player"

	ytAndroidVersion = "20.10.38"
	ytAndroidUA      = "com.google.android.youtube/" + ytAndroidVersion + " (Linux; U; Android 11) gzip"
)

type innertubeReq struct {
	VideoID        string       `json:"videoId"`
	Context        innertubeCtx `json:"context"`
	RacyCheckOk    bool         `json:"racyCheckOk"`
	ContentCheckOk bool         `json:"contentCheckOk"`
}

type innertubeCtx struct {
	Client innertubeClient `json:"client"`
}

type innertubeClient struct {
	ClientName        string `json:"clientName"`
	ClientVersion     string `json:"clientVersion"`
	AndroidSdkVersion int    `json:"androidSdkVersion,omitempty"`
	Hl                string `json:"hl,omitempty"`
	Gl                string `json:"gl,omitempty"`
}

// Innertube fetches captions through the ANDROID Innertube /player endpoint
// and the track's timedtext XML (offsets in seconds).
type Innertube struct {
	client    *youtube.Client
	langs     []string
	playerURL string
}

// NewInnertube creates the innertube caption tier
func NewInnertube(client *youtube.Client, langs []string) *Innertube {
	return &Innertube{client: client, langs: langs, playerURL: InnertubePlayerURL}
}

// WithPlayerURL overrides the /player endpoint
func (it *Innertube) WithPlayerURL(u string) *Innertube {
	it.playerURL = u
	return it
}

func (it *Innertube) Name() types.Method { return types.MethodInnertube }

// Attempt fetches the best caption track for videoID
func (it *Innertube) Attempt(ctx context.Context, videoID string) (*types.Transcript, error) {
	tr, err := it.fetch(ctx, videoID)
	return tr, classified(types.MethodInnertube, err)
}

func (it *Innertube) fetch(ctx context.Context, videoID string) (*types.Transcript, error) {
	reqBody, err := json.Marshal(innertubeReq{
		VideoID: videoID,
		Context: innertubeCtx{
			Client: innertubeClient{
				ClientName:        "ANDROID",
				ClientVersion:     ytAndroidVersion,
				AndroidSdkVersion: 30,
				Hl:                "en",
				Gl:                "US",
			},
		},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	})
	if err != nil {
		return nil, err
	}

	data, err := it.client.Fetch(ctx, http.MethodPost, it.playerURL+"?prettyPrint=false", bytes.NewReader(reqBody), map[string]string{
		"Content-Type":             "application/json",
		"User-Agent":               ytAndroidUA,
		"X-Youtube-Client-Name":    "3",
		"X-Youtube-Client-Version": ytAndroidVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("android innertube: %w", err)
	}

	var player playerResponse
	if err := json.Unmarshal(data, &player); err != nil {
		return nil, fmt.Errorf("decode player: %w", err)
	}

	track, err := selectTrack(&player, it.langs)
	if err != nil {
		return nil, err
	}

	body, err := it.client.Fetch(ctx, http.MethodGet, withFormat(track.BaseURL, ""), nil, map[string]string{
		"User-Agent": ytAndroidUA,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch timedtext: %w", err)
	}
	segs, err := parseTimedTextXML(body)
	if err != nil {
		return nil, err
	}
	return finish(videoID, types.MethodInnertube, track, segs)
}

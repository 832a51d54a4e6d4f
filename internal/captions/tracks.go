package captions

import (
	"errors"
	"fmt"
	"strings"

	"github.com/codebuildervaibhav/tubesummary/internal/types"
)

// playerResponse is the subset of the Innertube player response used for captions.
// The watch page embeds the same document as ytInitialPlayerResponse.
type playerResponse struct {
	Captions *struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" = auto-generated
}

func (t captionTrack) machineGenerated() *bool {
	asr := t.Kind == "asr"
	return &asr
}

// tracks returns the caption tracks, or an error describing why there are none
func (p *playerResponse) tracks() ([]captionTrack, error) {
	if p.PlayabilityStatus != nil {
		switch p.PlayabilityStatus.Status {
		case "", "OK":
		default:
			reason := p.PlayabilityStatus.Reason
			if reason == "" {
				reason = "video unavailable"
			}
			return nil, fmt.Errorf("playability %s: %s", p.PlayabilityStatus.Status, reason)
		}
	}
	if p.Captions == nil {
		return nil, errors.New("no captions in player response")
	}
	tracks := p.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	if len(tracks) == 0 {
		return nil, errors.New("no caption tracks")
	}
	return tracks, nil
}

// needsPoToken reports whether a caption track URL requires a PoToken (browser-only).
// Tracks with &exp=xpe cannot be fetched server-side.
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

// pickBestTrack selects the best usable caption track for the given language preferences.
// Skips tracks that require PoToken.
func pickBestTrack(tracks []captionTrack, langs []string) (captionTrack, bool) {
	usable := make([]captionTrack, 0, len(tracks))
	for _, t := range tracks {
		if t.BaseURL != "" && !needsPoToken(t.BaseURL) {
			usable = append(usable, t)
		}
	}
	if len(usable) == 0 {
		return captionTrack{}, false
	}
	// 1. Manual track in preferred language
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang && t.Kind != "asr" {
				return t, true
			}
		}
	}
	// 2. Auto-generated track in preferred language
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang {
				return t, true
			}
		}
	}
	// 3. Any English track
	for _, t := range usable {
		if strings.HasPrefix(t.LanguageCode, "en") {
			return t, true
		}
	}
	return usable[0], true
}

// selectTrack runs pickBestTrack over the player response tracks
func selectTrack(p *playerResponse, langs []string) (captionTrack, error) {
	tracks, err := p.tracks()
	if err != nil {
		return captionTrack{}, err
	}
	track, ok := pickBestTrack(tracks, langs)
	if !ok {
		return captionTrack{}, errors.New("no caption tracks usable without PoToken")
	}
	return track, nil
}

// finish builds the transcript for a parsed track and stamps track details on it
func finish(videoID string, method types.Method, track captionTrack, segs []types.Segment) (*types.Transcript, error) {
	tr, err := types.NewTranscript(videoID, method, segs)
	if err != nil {
		return nil, err
	}
	tr.Language = track.LanguageCode
	tr.IsMachineGenerated = track.machineGenerated()
	return tr, nil
}

package captions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPickBestTrack(t *testing.T) {
	manualEN := captionTrack{BaseURL: "https://x/en", LanguageCode: "en"}
	asrEN := captionTrack{BaseURL: "https://x/en-asr", LanguageCode: "en", Kind: "asr"}
	enGB := captionTrack{BaseURL: "https://x/en-gb", LanguageCode: "en-GB"}
	de := captionTrack{BaseURL: "https://x/de", LanguageCode: "de"}
	poToken := captionTrack{BaseURL: "https://x/en?a=1&exp=xpe", LanguageCode: "en"}

	tests := []struct {
		name   string
		tracks []captionTrack
		langs  []string
		want   captionTrack
		ok     bool
	}{
		{"manual before asr", []captionTrack{asrEN, manualEN}, []string{"en"}, manualEN, true},
		{"asr in preferred language", []captionTrack{de, asrEN}, []string{"en"}, asrEN, true},
		{"any english", []captionTrack{de, enGB}, []string{"fr"}, enGB, true},
		{"first usable", []captionTrack{de}, []string{"fr"}, de, true},
		{"potoken skipped", []captionTrack{poToken, de}, []string{"en"}, de, true},
		{"nothing usable", []captionTrack{poToken}, []string{"en"}, captionTrack{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := pickBestTrack(tt.tracks, tt.langs)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlayerResponseTracks(t *testing.T) {
	var p playerResponse
	_, err := p.tracks()
	assert.ErrorContains(t, err, "no captions")

	p.PlayabilityStatus = &struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	}{Status: "ERROR", Reason: "Video unavailable"}
	_, err = p.tracks()
	assert.ErrorContains(t, err, "Video unavailable")
}

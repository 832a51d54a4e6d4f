package transcription

import (
	"context"

	"github.com/codebuildervaibhav/tubesummary/internal/types"
)

// Options tune one backend call
type Options struct {
	// Language forces the spoken language; empty means auto-detect
	Language string
	// ModelHint selects a model size where the backend supports it
	ModelHint string
}

// RawSegment is a backend segment with offsets in seconds
type RawSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result is the raw output of a speech backend
type Result struct {
	Language string       `json:"language"`
	Duration float64      `json:"duration"`
	Segments []RawSegment `json:"segments"`
}

// Backend turns an audio file into timed text
type Backend interface {
	Name() string
	Configured() bool
	Transcribe(ctx context.Context, audioPath string, opts Options) (*Result, error)
}

// toSegments converts second offsets to milliseconds
func (r *Result) toSegments() []types.Segment {
	segs := make([]types.Segment, len(r.Segments))
	for i, s := range r.Segments {
		segs[i] = types.Segment{StartMs: types.SecondsToMs(s.Start), Text: s.Text}
	}
	return segs
}

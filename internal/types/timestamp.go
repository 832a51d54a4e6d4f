package types

import (
	"context"
	"errors"
	"fmt"
)

// FormatTimestamp renders milliseconds as M:SS, or H:MM:SS from one hour up
func FormatTimestamp(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// WireSegment is the on-wire shape of a transcript segment
type WireSegment struct {
	Timestamp string `json:"timestamp"`
	Seconds   int64  `json:"seconds"`
	Text      string `json:"text"`
}

// WireSegments converts segments to their on-wire form
func (t *Transcript) WireSegments() []WireSegment {
	out := make([]WireSegment, len(t.Segments))
	for i, s := range t.Segments {
		out[i] = WireSegment{
			Timestamp: FormatTimestamp(s.StartMs),
			Seconds:   s.StartMs / 1000,
			Text:      s.Text,
		}
	}
	return out
}

// IsContextErr reports whether err stems from cancellation or a deadline
func IsContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

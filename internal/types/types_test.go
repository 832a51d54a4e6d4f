package types

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{0, "0:00"},
		{3000, "0:03"},
		{65000, "1:05"},
		{599999, "9:59"},
		{3599000, "59:59"},
		{3600000, "1:00:00"},
		{3725000, "1:02:05"},
		{36000000, "10:00:00"},
		{-5, "0:00"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTimestamp(tt.ms))
		})
	}
}

func TestNewTranscript(t *testing.T) {
	t.Run("derives full text and duration", func(t *testing.T) {
		tr, err := NewTranscript("abc", MethodInnertube, []Segment{
			{StartMs: 4000, Text: "world"},
			{StartMs: 1000, Text: " hello "},
			{StartMs: 2000, Text: "   "},
		})
		require.NoError(t, err)
		assert.Equal(t, "hello world", tr.FullText)
		assert.Equal(t, int64(4000), tr.DurationMs)
		assert.Len(t, tr.Segments, 2)
		assert.Equal(t, MethodInnertube, tr.Method)
	})

	t.Run("collapses inner whitespace", func(t *testing.T) {
		tr, err := NewTranscript("abc", MethodWatchPage, []Segment{{Text: "line one\nline  two"}})
		require.NoError(t, err)
		assert.Equal(t, "line one line two", tr.FullText)
	})

	t.Run("empty track is NoCaptions", func(t *testing.T) {
		_, err := NewTranscript("abc", MethodWatchPage, nil)
		require.Error(t, err)
		assert.Equal(t, KindNoCaptions, KindOf(err))
	})

	t.Run("full text is the space joined segments", func(t *testing.T) {
		segs := []Segment{{0, "a"}, {10, "b c"}, {20, "d"}}
		tr, err := NewTranscript("abc", MethodSpeech, segs)
		require.NoError(t, err)
		joined := ""
		for i, s := range tr.Segments {
			if i > 0 {
				joined += " "
			}
			joined += s.Text
		}
		assert.Equal(t, joined, tr.FullText)
	})
}

func TestWireSegments(t *testing.T) {
	tr, err := NewTranscript("abc", MethodInnertube, []Segment{{StartMs: 65500, Text: "hi"}})
	require.NoError(t, err)
	got := tr.WireSegments()
	require.Len(t, got, 1)
	assert.Equal(t, WireSegment{Timestamp: "1:05", Seconds: 65, Text: "hi"}, got[0])
}

func TestSecondsToMs(t *testing.T) {
	assert.Equal(t, int64(1230), SecondsToMs(1.23))
	assert.Equal(t, int64(0), SecondsToMs(-1))
	assert.Equal(t, int64(3000), SecondsToMs(2.9999))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, ""},
		{"tier error", &TierError{Kind: KindRateLimited}, KindRateLimited},
		{"wrapped", fmt.Errorf("outer: %w", &TierError{Kind: KindNoCaptions}), KindNoCaptions},
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"plain", errors.New("boom"), KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestTierErrorMessage(t *testing.T) {
	err := &TierError{Kind: KindNoCaptions, Tier: MethodInnertube, Detail: "empty", Err: errors.New("x")}
	assert.Equal(t, "innertube: NoCaptions: empty: x", err.Error())
	assert.True(t, errors.Is(err, err.Err))
}

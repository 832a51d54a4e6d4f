package types

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// Method identifies the tier that produced a transcript
type Method string

const (
	MethodInnertube Method = "innertube"
	MethodWatchPage Method = "watchpage"
	MethodBrowser   Method = "browser"
	MethodSpeech    Method = "speech"
)

// Segment is one timed utterance of a transcript
type Segment struct {
	StartMs int64  `json:"startMs"`
	Text    string `json:"text"`
}

// Transcript is the resolved result of a tier. Build it with NewTranscript.
type Transcript struct {
	VideoID            string
	Segments           []Segment
	FullText           string
	DurationMs         int64
	Method             Method
	Language           string
	IsMachineGenerated *bool
}

// NewTranscript normalizes segments and derives FullText and DurationMs.
// Segments with empty text are dropped; the rest are ordered by start offset.
// An empty result is reported as a NoCaptions error.
func NewTranscript(videoID string, method Method, segments []Segment) (*Transcript, error) {
	clean := make([]Segment, 0, len(segments))
	for _, s := range segments {
		text := strings.Join(strings.Fields(s.Text), " ")
		if text == "" {
			continue
		}
		start := s.StartMs
		if start < 0 {
			start = 0
		}
		clean = append(clean, Segment{StartMs: start, Text: text})
	}
	if len(clean) == 0 {
		return nil, &TierError{Kind: KindNoCaptions, Tier: method, Detail: "transcript has no segments"}
	}

	sort.SliceStable(clean, func(i, j int) bool {
		return clean[i].StartMs < clean[j].StartMs
	})

	texts := make([]string, len(clean))
	for i, s := range clean {
		texts[i] = s.Text
	}

	return &Transcript{
		VideoID:    videoID,
		Segments:   clean,
		FullText:   strings.Join(texts, " "),
		DurationMs: clean[len(clean)-1].StartMs,
		Method:     method,
	}, nil
}

// WithMethod returns a copy stamped with the given method
func (t *Transcript) WithMethod(m Method) *Transcript {
	cp := *t
	cp.Method = m
	return &cp
}

// SecondsToMs converts fractional seconds to integer milliseconds
func SecondsToMs(sec float64) int64 {
	if sec <= 0 {
		return 0
	}
	return int64(sec*1000 + 0.5)
}

// Attempt records one tier outcome for diagnostics
type Attempt struct {
	Tier        Method        `json:"tier"`
	Succeeded   bool          `json:"succeeded"`
	ErrorKind   ErrorKind     `json:"errorKind,omitempty"`
	ErrorDetail string        `json:"errorDetail,omitempty"`
	Elapsed     time.Duration `json:"-"`
}

// ErrorKind classifies failures across the service
type ErrorKind string

const (
	KindInvalidInput          ErrorKind = "InvalidInput"
	KindNoCaptions            ErrorKind = "NoCaptions"
	KindVideoUnavailable      ErrorKind = "VideoUnavailable"
	KindRateLimited           ErrorKind = "RateLimited"
	KindUnknown               ErrorKind = "Unknown"
	KindNotConfigured         ErrorKind = "NotConfigured"
	KindAudioDownloadFailed   ErrorKind = "AudioDownloadFailed"
	KindTranscriptionFailed   ErrorKind = "TranscriptionFailed"
	KindNoTranscriptAvailable ErrorKind = "NoTranscriptAvailable"
	KindUpstreamError         ErrorKind = "UpstreamError"
	KindTimeout               ErrorKind = "Timeout"
)

// TierError is a classified failure raised by a tier or collaborator
type TierError struct {
	Kind   ErrorKind
	Tier   Method
	Detail string
	Err    error
}

func (e *TierError) Error() string {
	var sb strings.Builder
	if e.Tier != "" {
		sb.WriteString(string(e.Tier))
		sb.WriteString(": ")
	}
	sb.WriteString(string(e.Kind))
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *TierError) Unwrap() error { return e.Err }

// NewError builds a TierError that is not tied to a tier
func NewError(kind ErrorKind, detail string, err error) *TierError {
	return &TierError{Kind: kind, Detail: detail, Err: err}
}

// KindOf extracts the ErrorKind of err. Context errors map to Timeout.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var te *TierError
	if errors.As(err, &te) {
		return te.Kind
	}
	var kinded interface{ Kind() ErrorKind }
	if errors.As(err, &kinded) {
		return kinded.Kind()
	}
	if IsContextErr(err) {
		return KindTimeout
	}
	return KindUnknown
}

// Verdict is the quality gate outcome for a transcript text
type Verdict struct {
	IsMinimal bool `json:"isMinimal"`
	CharCount int  `json:"charCount"`
	WordCount int  `json:"wordCount"`
}

package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/tubesummary/internal/resolver"
	"github.com/codebuildervaibhav/tubesummary/internal/transcription"
	"github.com/codebuildervaibhav/tubesummary/internal/types"
)

// Resolver is the transcript fallback chain
type Resolver interface {
	Resolve(ctx context.Context, input string) (*types.Transcript, []types.Attempt, error)
}

// AudioCleaner drops cached audio once a speech transcript was delivered
type AudioCleaner interface {
	Cleanup(videoID string) error
}

// TranscriptHandler serves GET /api/transcript/:videoId
type TranscriptHandler struct {
	resolver Resolver
	cleaner  AudioCleaner
	timeout  time.Duration
	log      *slog.Logger
}

// NewTranscriptHandler creates a new transcript handler. cleaner may be nil.
func NewTranscriptHandler(r Resolver, cleaner AudioCleaner, timeout time.Duration, log *slog.Logger) *TranscriptHandler {
	return &TranscriptHandler{resolver: r, cleaner: cleaner, timeout: timeout, log: log}
}

// TranscriptData is the success payload
type TranscriptData struct {
	VideoID     string              `json:"videoId"`
	Transcript  []types.WireSegment `json:"transcript"`
	FullText    string              `json:"fullText"`
	Duration    int64               `json:"duration"`
	Method      types.Method        `json:"method"`
	Language    string              `json:"language,omitempty"`
	IsGenerated *bool               `json:"isGenerated,omitempty"`
	Attempts    []types.Attempt     `json:"attempts,omitempty"`
}

func newTranscriptData(tr *types.Transcript, attempts []types.Attempt) TranscriptData {
	return TranscriptData{
		VideoID:     tr.VideoID,
		Transcript:  tr.WireSegments(),
		FullText:    tr.FullText,
		Duration:    tr.DurationMs / 1000,
		Method:      tr.Method,
		Language:    tr.Language,
		IsGenerated: tr.IsMachineGenerated,
		Attempts:    attempts,
	}
}

// Handle resolves a transcript. The id comes from the path, or from ?url=.
func (h *TranscriptHandler) Handle(c *fiber.Ctx) error {
	input := c.Params("videoId")
	if u := c.Query("url"); u != "" {
		input = u
	}
	if input == "" {
		return badRequest("Video ID is required").send(c)
	}

	ctx, cancel, log := requestContext(c.UserContext(), h.log, h.timeout)
	defer context.AfterFunc(c.Context(), cancel)()
	defer cancel()
	if hint := c.Query("model"); hint != "" {
		ctx = transcription.WithModelHint(ctx, hint)
	}

	tr, attempts, err := h.resolver.Resolve(ctx, input)
	if err != nil {
		apiErr := toAPIError(err)
		log.Warn("transcript request failed",
			slog.String("input", input),
			slog.String("type", apiErr.Type),
			slog.String("attempts", resolver.Summary(attempts)))
		return apiErr.send(c)
	}

	if tr.Method == types.MethodSpeech && h.cleaner != nil {
		if err := h.cleaner.Cleanup(tr.VideoID); err != nil {
			log.Warn("failed to remove cached audio", slog.String("video_id", tr.VideoID), slog.String("error", err.Error()))
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    newTranscriptData(tr, attempts),
	})
}

package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/codebuildervaibhav/tubesummary/internal/logging"
	"github.com/codebuildervaibhav/tubesummary/internal/presets"
	"github.com/codebuildervaibhav/tubesummary/internal/quality"
	"github.com/codebuildervaibhav/tubesummary/internal/resolver"
	"github.com/codebuildervaibhav/tubesummary/internal/settings"
	"github.com/codebuildervaibhav/tubesummary/internal/summary"
	"github.com/codebuildervaibhav/tubesummary/internal/types"
	"github.com/codebuildervaibhav/tubesummary/internal/youtube"
)

// Streamer opens LLM token streams
type Streamer interface {
	Stream(ctx context.Context, req summary.Request) (*summary.Stream, error)
}

// MetadataLookup resolves the video title, channel and duration
type MetadataLookup interface {
	Lookup(ctx context.Context, id string) (*youtube.VideoInfo, error)
}

// SummaryConfig holds the summary endpoint limits
type SummaryConfig struct {
	Timeout    time.Duration
	Heartbeat  time.Duration
	Thresholds quality.Thresholds
}

// SummaryHandler serves POST /api/summary/generate
type SummaryHandler struct {
	resolver Resolver
	cleaner  AudioCleaner
	catalog  *presets.Catalog
	settings *settings.Service
	streamer Streamer
	meta     MetadataLookup
	cfg      SummaryConfig
	log      *slog.Logger
}

// NewSummaryHandler creates a new summary handler. meta and cleaner may be nil.
func NewSummaryHandler(
	r Resolver,
	cleaner AudioCleaner,
	catalog *presets.Catalog,
	svc *settings.Service,
	streamer Streamer,
	meta MetadataLookup,
	cfg SummaryConfig,
	log *slog.Logger,
) *SummaryHandler {
	if cfg.Thresholds == (quality.Thresholds{}) {
		cfg.Thresholds = quality.DefaultThresholds
	}
	return &SummaryHandler{
		resolver: r,
		cleaner:  cleaner,
		catalog:  catalog,
		settings: svc,
		streamer: streamer,
		meta:     meta,
		cfg:      cfg,
		log:      log,
	}
}

// SummaryRequest is the generate request body. Transcript, when present,
// skips transcript resolution.
type SummaryRequest struct {
	VideoID    string `json:"videoId"`
	PresetID   string `json:"presetId"`
	Transcript string `json:"transcript"`
}

// PresetInfo identifies the preset in the metadata event
type PresetInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Event is one message of the summary stream
type Event struct {
	Type    string      `json:"type"`
	Content string      `json:"content,omitempty"`
	Message string      `json:"message,omitempty"`
	Preset  *PresetInfo `json:"preset,omitempty"`
	VideoID string      `json:"videoId,omitempty"`
	Model   string      `json:"model,omitempty"`
}

// Stream event types
const (
	EventMetadata  = "metadata"
	EventHeartbeat = "heartbeat"
	EventContent   = "content"
	EventDone      = "done"
	EventError     = "error"
)

// summaryJob is a validated request ready to stream
type summaryJob struct {
	videoID   string
	preset    presets.Preset
	prompt    string
	text      string
	model     string
	maxTokens int
	verdict   types.Verdict
}

// minimalBody is returned instead of a stream when the transcript is too thin
func (j *summaryJob) minimalBody() fiber.Map {
	return fiber.Map{
		"success": true,
		"data": fiber.Map{
			"type":      TypeMinimalTranscript,
			"videoId":   j.videoID,
			"charCount": j.verdict.CharCount,
			"wordCount": j.verdict.WordCount,
			"text":      j.text,
			"message":   "Transcript is too short to summarize",
		},
	}
}

// prepare validates the request and obtains the transcript text
func (h *SummaryHandler) prepare(ctx context.Context, req SummaryRequest) (*summaryJob, *apiError) {
	if strings.TrimSpace(req.VideoID) == "" {
		return nil, badRequest("Video ID is required")
	}
	videoID, err := youtube.ParseVideoID(req.VideoID)
	if err != nil {
		return nil, toAPIError(err)
	}

	presetID := req.PresetID
	if presetID == "" {
		presetID = presets.DefaultID
	}
	preset, ok := h.catalog.Get(presetID)
	if !ok {
		return nil, badRequest("Invalid preset ID")
	}

	log := logging.FromContext(ctx).With(slog.String("video_id", videoID), slog.String("preset", presetID))

	job := &summaryJob{videoID: videoID, preset: preset}
	var durationMs int64
	if text := strings.TrimSpace(req.Transcript); text != "" {
		log.Info("using transcript provided by client", slog.Int("chars", len(text)))
		job.text = text
	} else {
		tr, attempts, err := h.resolver.Resolve(ctx, videoID)
		if err != nil {
			log.Warn("transcript resolution failed", slog.String("attempts", resolver.Summary(attempts)))
			return nil, toAPIError(err)
		}
		if tr.Method == types.MethodSpeech && h.cleaner != nil {
			if err := h.cleaner.Cleanup(videoID); err != nil {
				log.Warn("failed to remove cached audio", slog.String("error", err.Error()))
			}
		}
		job.text = tr.FullText
		durationMs = tr.DurationMs
	}

	job.verdict = h.cfg.Thresholds.Assess(job.text)
	if job.verdict.IsMinimal {
		log.Info("transcript below quality threshold",
			slog.Int("chars", job.verdict.CharCount),
			slog.Int("words", job.verdict.WordCount))
		return job, nil
	}

	prompt := preset.Prompt
	if h.settings != nil {
		if override, ok := h.settings.PromptOverride(preset.ID); ok {
			prompt = override
		}
		job.model = h.settings.SelectedModel()
		job.maxTokens = h.settings.MaxTokens(preset.ID)
	}

	vars := presets.Vars{URL: youtube.WatchURL(videoID)}
	if durationMs > 0 {
		vars.Duration = types.FormatTimestamp(durationMs)
	}
	if h.meta != nil {
		if info, err := h.meta.Lookup(ctx, videoID); err == nil {
			vars.Title = info.Title
			vars.Channel = info.Channel
			if info.Duration > 0 {
				vars.Duration = types.FormatTimestamp(info.Duration.Milliseconds())
			}
		} else if types.KindOf(err) != types.KindNotConfigured {
			log.Warn("video metadata lookup failed", slog.String("error", err.Error()))
		}
	}
	job.prompt = presets.Render(prompt, vars)
	return job, nil
}

// run streams one summary through send. Heartbeats are interleaved while
// waiting for tokens. A failed send cancels ctx.
func (h *SummaryHandler) run(ctx context.Context, cancel context.CancelFunc, job *summaryJob, send func(Event) error) {
	log := logging.FromContext(ctx)

	var mu sync.Mutex
	emit := func(ev Event) error {
		mu.Lock()
		defer mu.Unlock()
		if err := send(ev); err != nil {
			cancel()
			return err
		}
		return nil
	}

	if h.cfg.Heartbeat > 0 {
		stop := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(h.cfg.Heartbeat)
			defer ticker.Stop()
			for {
				select {
				case <-stop:
					return
				case <-ctx.Done():
					return
				case <-ticker.C:
					if emit(Event{Type: EventHeartbeat}) != nil {
						return
					}
				}
			}
		}()
		defer wg.Wait()
		defer close(stop)
	}

	err := emit(Event{
		Type: EventMetadata,
		Preset: &PresetInfo{
			ID:          job.preset.ID,
			Name:        job.preset.Name,
			Description: job.preset.Description,
		},
		VideoID: job.videoID,
		Model:   job.model,
	})
	if err != nil {
		log.Info("client disconnected before streaming")
		return
	}

	stream, err := h.streamer.Stream(ctx, summary.Request{
		Text:      job.text,
		Prompt:    job.prompt,
		Model:     job.model,
		MaxTokens: job.maxTokens,
	})
	if err != nil {
		log.Error("summary stream failed to open", slog.String("error", err.Error()))
		_ = emit(Event{Type: EventError, Message: streamErrorMessage(err)})
		return
	}
	defer stream.Close()

	started := time.Now()
	chunks := 0
	for {
		content, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled) {
				log.Info("summary stream cancelled", slog.Int("chunks", chunks))
				return
			}
			log.Error("summary stream failed", slog.String("error", err.Error()), slog.Int("chunks", chunks))
			_ = emit(Event{Type: EventError, Message: streamErrorMessage(err)})
			return
		}
		if emit(Event{Type: EventContent, Content: content}) != nil {
			log.Info("client disconnected, aborting summary", slog.Int("chunks", chunks))
			return
		}
		chunks++
	}

	if emit(Event{Type: EventDone}) == nil {
		log.Info("summary stream complete",
			slog.Int("chunks", chunks),
			slog.Duration("elapsed", time.Since(started)))
	}
}

func streamErrorMessage(err error) string {
	if types.KindOf(err) == types.KindTimeout {
		return "Request timed out"
	}
	return detailOf(err)
}

// Handle validates the request and streams server-sent events
func (h *SummaryHandler) Handle(c *fiber.Ctx) error {
	var req SummaryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("Invalid request body").send(c)
	}

	// the stream writer runs after Handle returns, so the context cannot hang off c
	ctx, cancel, log := requestContext(context.Background(), h.log, h.cfg.Timeout)

	// fasthttp signals server shutdown, not client disconnect, on c.Context()
	stop := context.AfterFunc(c.Context(), cancel)
	job, apiErr := h.prepare(ctx, req)
	stop()
	if apiErr != nil {
		cancel()
		return apiErr.send(c)
	}
	if job.verdict.IsMinimal {
		cancel()
		return c.JSON(job.minimalBody())
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		h.run(ctx, cancel, job, func(ev Event) error {
			return writeSSE(w, ev)
		})
	}))
	log.Debug("summary stream started", slog.String("video_id", job.videoID))
	return nil
}

func writeSSE(w *bufio.Writer, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return w.Flush()
}

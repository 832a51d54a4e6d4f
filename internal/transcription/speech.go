package transcription

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/codebuildervaibhav/tubesummary/internal/logging"
	"github.com/codebuildervaibhav/tubesummary/internal/queue"
	"github.com/codebuildervaibhav/tubesummary/internal/storage"
	"github.com/codebuildervaibhav/tubesummary/internal/types"
)

// Transcriber produces transcripts from audio when no captions exist:
// download (cached), transcribe, correct the language, normalize.
type Transcriber struct {
	downloader     Downloader
	cache          *storage.AudioCache
	backend        Backend
	pool           *queue.WorkerPool
	heuristics     Heuristics
	altLanguage    string
	maxUploadBytes int64
}

// Config carries the Transcriber's tunables
type Config struct {
	Heuristics  Heuristics
	AltLanguage string
	MaxUploadMB int
}

// NewTranscriber wires the speech pipeline. pool may be nil to run inline.
func NewTranscriber(d Downloader, cache *storage.AudioCache, backend Backend, pool *queue.WorkerPool, cfg Config) *Transcriber {
	if cfg.AltLanguage == "" {
		cfg.AltLanguage = "hi"
	}
	return &Transcriber{
		downloader:     d,
		cache:          cache,
		backend:        backend,
		pool:           pool,
		heuristics:     cfg.Heuristics,
		altLanguage:    cfg.AltLanguage,
		maxUploadBytes: int64(cfg.MaxUploadMB) * 1024 * 1024,
	}
}

// Configured reports whether the backend has what it needs to run
func (t *Transcriber) Configured() bool {
	return t.backend != nil && t.backend.Configured()
}

// Transcribe returns a speech transcript for videoID. Cached audio is reused
// and kept; callers remove it with Cleanup once they are done.
func (t *Transcriber) Transcribe(ctx context.Context, videoID, modelHint string) (*types.Transcript, error) {
	if !t.Configured() {
		return nil, &types.TierError{Kind: types.KindNotConfigured, Tier: types.MethodSpeech, Detail: "speech backend not configured"}
	}

	var tr *types.Transcript
	run := func(ctx context.Context) error {
		var err error
		tr, err = t.transcribe(ctx, videoID, modelHint)
		return err
	}

	var err error
	if t.pool != nil {
		err = t.pool.Run(ctx, videoID, run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		return nil, speechError(ctx, err)
	}
	return tr, nil
}

func (t *Transcriber) transcribe(ctx context.Context, videoID, modelHint string) (*types.Transcript, error) {
	log := logging.FromContext(ctx).With(slog.String("video_id", videoID), slog.String("backend", t.backend.Name()))

	path, reused, err := t.cache.Ensure(ctx, videoID, func(ctx context.Context, dest string) error {
		return t.downloader.Download(ctx, videoID, dest)
	})
	if err != nil {
		if types.KindOf(err) == types.KindUnknown {
			err = types.NewError(types.KindAudioDownloadFailed, "audio download failed", err)
		}
		return nil, err
	}
	log.Info("audio ready", slog.Bool("cached", reused))

	if info, err := os.Stat(path); err == nil && t.maxUploadBytes > 0 && info.Size() > t.maxUploadBytes {
		log.Warn("audio exceeds upload size ceiling",
			slog.Int64("size_bytes", info.Size()),
			slog.Int64("limit_bytes", t.maxUploadBytes))
	}

	opts := Options{ModelHint: modelHint}
	res, err := t.backend.Transcribe(ctx, path, opts)
	if err != nil {
		return nil, err
	}

	if retry, reason := t.heuristics.ShouldRetry(res); retry {
		log.Info("language correction retry",
			slog.String("detected", res.Language),
			slog.String("forced", t.altLanguage),
			slog.String("reason", reason))
		opts.Language = t.altLanguage
		res, err = t.backend.Transcribe(ctx, path, opts)
		if err != nil {
			return nil, err
		}
	}

	tr, err := types.NewTranscript(videoID, types.MethodSpeech, res.toSegments())
	if err != nil {
		return nil, types.NewError(types.KindTranscriptionFailed, "speech backend returned no text", nil)
	}
	tr.Language = res.Language
	generated := true
	tr.IsMachineGenerated = &generated
	log.Debug("speech transcript ready",
		slog.Int("segments", len(tr.Segments)),
		slog.String("language", tr.Language),
		slog.Int64("audio_ms", types.SecondsToMs(res.Duration)))
	return tr, nil
}

type modelHintKey struct{}

// WithModelHint attaches a per-request Whisper model hint to ctx
func WithModelHint(ctx context.Context, hint string) context.Context {
	if hint == "" {
		return ctx
	}
	return context.WithValue(ctx, modelHintKey{}, hint)
}

func modelHintFrom(ctx context.Context) string {
	h, _ := ctx.Value(modelHintKey{}).(string)
	return h
}

func (t *Transcriber) Name() types.Method { return types.MethodSpeech }

// Attempt runs Transcribe as a resolver tier, taking the model hint from ctx
func (t *Transcriber) Attempt(ctx context.Context, videoID string) (*types.Transcript, error) {
	return t.Transcribe(ctx, videoID, modelHintFrom(ctx))
}

// Cleanup removes the cached audio for videoID
func (t *Transcriber) Cleanup(videoID string) error {
	return t.cache.Remove(videoID)
}

// speechError maps pipeline failures onto the speech tier's error kinds.
// Context errors stay bare only when ctx itself is done; a shared download
// that timed out under another caller is a tier timeout.
func speechError(ctx context.Context, err error) error {
	var te *types.TierError
	if errors.As(err, &te) {
		cp := *te
		cp.Tier = types.MethodSpeech
		return &cp
	}
	if types.IsContextErr(err) {
		if ctx.Err() != nil {
			return err
		}
		return &types.TierError{Kind: types.KindTimeout, Tier: types.MethodSpeech, Detail: "audio download timed out", Err: err}
	}
	return &types.TierError{Kind: types.KindTranscriptionFailed, Tier: types.MethodSpeech, Err: err}
}

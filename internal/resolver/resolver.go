package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/codebuildervaibhav/tubesummary/internal/logging"
	"github.com/codebuildervaibhav/tubesummary/internal/types"
	"github.com/codebuildervaibhav/tubesummary/internal/youtube"
)

// Tier is one transcript source in the fallback chain
type Tier interface {
	Name() types.Method
	Attempt(ctx context.Context, videoID string) (*types.Transcript, error)
}

// configurable is implemented by tiers that depend on credentials or binaries
type configurable interface {
	Configured() bool
}

// NoTranscriptError is returned when every tier failed
type NoTranscriptError struct {
	VideoID        string
	LastCaptionErr error
	SpeechErr      error
	Attempts       []types.Attempt
}

func (e *NoTranscriptError) Error() string {
	parts := []string{"no transcript available for " + e.VideoID}
	if e.LastCaptionErr != nil {
		parts = append(parts, "captions: "+e.LastCaptionErr.Error())
	}
	if e.SpeechErr != nil {
		parts = append(parts, "speech: "+e.SpeechErr.Error())
	}
	return strings.Join(parts, "; ")
}

func (e *NoTranscriptError) Kind() types.ErrorKind { return types.KindNoTranscriptAvailable }

// TryDOMExtraction tells the client to scrape captions from the page itself.
// It is part of every total-failure response.
func (e *NoTranscriptError) TryDOMExtraction() bool { return true }

// Resolver walks the tiers in order until one yields a transcript
type Resolver struct {
	tiers []Tier
}

// New returns a resolver over tiers, cheapest first
func New(tiers ...Tier) *Resolver {
	return &Resolver{tiers: tiers}
}

// Tiers returns the configured tier names in order
func (r *Resolver) Tiers() []types.Method {
	names := make([]types.Method, len(r.tiers))
	for i, t := range r.tiers {
		names[i] = t.Name()
	}
	return names
}

// Resolve validates input (an id or a video URL) and runs the chain. Tiers run
// strictly one after another; a tier failure of any kind moves on to the next.
// The attempts made are returned in every case.
func (r *Resolver) Resolve(ctx context.Context, input string) (*types.Transcript, []types.Attempt, error) {
	videoID, err := youtube.ParseVideoID(input)
	if err != nil {
		return nil, nil, err
	}

	log := logging.FromContext(ctx).With(slog.String("video_id", videoID))
	attempts := make([]types.Attempt, 0, len(r.tiers))
	var lastCaptionErr, speechErr error

	for _, tier := range r.tiers {
		if err := ctx.Err(); err != nil {
			log.Warn("transcript resolution aborted", slog.String("error", err.Error()), slog.Int("attempts", len(attempts)))
			return nil, attempts, types.NewError(types.KindTimeout, "transcript resolution aborted", err)
		}

		name := tier.Name()
		started := time.Now()

		var tr *types.Transcript
		var terr error
		if c, ok := tier.(configurable); ok && !c.Configured() {
			terr = &types.TierError{Kind: types.KindNotConfigured, Tier: name, Detail: "tier not configured"}
		} else {
			tr, terr = tier.Attempt(ctx, videoID)
		}

		attempt := types.Attempt{Tier: name, Elapsed: time.Since(started)}
		if terr == nil && tr != nil {
			attempt.Succeeded = true
			attempts = append(attempts, attempt)
			log.Info("transcript tier",
				slog.String("tier", string(name)),
				slog.String("outcome", "success"),
				slog.Int("segments", len(tr.Segments)),
				slog.Duration("elapsed", attempt.Elapsed))

			out := tr.WithMethod(name)
			out.VideoID = videoID
			return out, attempts, nil
		}
		if terr == nil {
			terr = &types.TierError{Kind: types.KindNoCaptions, Tier: name, Detail: "tier returned no transcript"}
		}

		kind := types.KindOf(terr)
		attempt.ErrorKind = kind
		attempt.ErrorDetail = terr.Error()
		attempts = append(attempts, attempt)

		// a cancelled request surfaces as a timeout, not as a tier failure
		if types.IsContextErr(terr) && ctx.Err() != nil {
			log.Warn("transcript tier",
				slog.String("tier", string(name)),
				slog.String("outcome", "aborted"),
				slog.Duration("elapsed", attempt.Elapsed))
			return nil, attempts, types.NewError(types.KindTimeout, "transcript resolution aborted", ctx.Err())
		}

		log.Info("transcript tier",
			slog.String("tier", string(name)),
			slog.String("outcome", "failure"),
			slog.String("error_kind", string(kind)),
			slog.String("error", terr.Error()),
			slog.Duration("elapsed", attempt.Elapsed))

		if name == types.MethodSpeech {
			speechErr = terr
		} else {
			lastCaptionErr = terr
		}
	}

	nte := &NoTranscriptError{
		VideoID:        videoID,
		LastCaptionErr: lastCaptionErr,
		SpeechErr:      speechErr,
		Attempts:       attempts,
	}
	log.Warn("all transcript tiers failed", slog.Int("attempts", len(attempts)))
	return nil, attempts, nte
}

// AsNoTranscript unwraps a total-failure error
func AsNoTranscript(err error) (*NoTranscriptError, bool) {
	var nte *NoTranscriptError
	if errors.As(err, &nte) {
		return nte, true
	}
	return nil, false
}

// Summary renders attempts as "tier:Kind" pairs for error messages
func Summary(attempts []types.Attempt) string {
	parts := make([]string, 0, len(attempts))
	for _, a := range attempts {
		if a.Succeeded {
			parts = append(parts, fmt.Sprintf("%s:ok", a.Tier))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s:%s", a.Tier, a.ErrorKind))
	}
	return strings.Join(parts, ", ")
}

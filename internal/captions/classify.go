package captions

import (
	"errors"
	"net/http"
	"strings"

	"github.com/codebuildervaibhav/tubesummary/internal/types"
	"github.com/codebuildervaibhav/tubesummary/internal/youtube"
)

var kindPhrases = []struct {
	kind    types.ErrorKind
	phrases []string
}{
	{types.KindNoCaptions, []string{
		"could not find captions",
		"no captions",
		"no caption tracks",
		"transcript is disabled",
		"subtitles are disabled",
		"no transcript",
		"empty caption track",
	}},
	{types.KindRateLimited, []string{
		"too many requests",
		"rate limit",
		"http 429",
	}},
	{types.KindVideoUnavailable, []string{
		"video unavailable",
		"video is unavailable",
		"video is private",
		"private video",
		"not available",
		"login_required",
		"sign in",
		"has been removed",
	}},
}

// Classify maps a caption fetch failure to the tier error taxonomy.
// Unrecognized failures are Unknown; context errors are Timeout.
func Classify(err error) types.ErrorKind {
	if err == nil {
		return ""
	}
	var te *types.TierError
	if errors.As(err, &te) {
		return te.Kind
	}
	if types.IsContextErr(err) {
		return types.KindTimeout
	}
	var se *youtube.StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusTooManyRequests {
		return types.KindRateLimited
	}

	msg := strings.ToLower(err.Error())
	for _, entry := range kindPhrases {
		for _, p := range entry.phrases {
			if strings.Contains(msg, p) {
				return entry.kind
			}
		}
	}
	return types.KindUnknown
}

// classified wraps err as a TierError for tier
func classified(tier types.Method, err error) error {
	if err == nil {
		return nil
	}
	var te *types.TierError
	if errors.As(err, &te) {
		if te.Tier == "" {
			cp := *te
			cp.Tier = tier
			return &cp
		}
		return err
	}
	return &types.TierError{Kind: Classify(err), Tier: tier, Err: err}
}

package youtube

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/codebuildervaibhav/tubesummary/internal/types"
)

var (
	idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

	urlPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:youtube\.com/watch\?(?:.*&)?v=|youtu\.be/)([^&\n?#/]+)`),
		regexp.MustCompile(`youtube\.com/embed/([^&\n?#/]+)`),
		regexp.MustCompile(`youtube\.com/shorts/([^&\n?#/]+)`),
		regexp.MustCompile(`youtube\.com/v/([^&\n?#/]+)`),
		regexp.MustCompile(`youtube\.com/live/([^&\n?#/]+)`),
	}
)

// ParseVideoID extracts an 11 character video id from a bare id or a YouTube URL.
func ParseVideoID(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", types.NewError(types.KindInvalidInput, "video ID is required", nil)
	}
	if idPattern.MatchString(s) {
		return s, nil
	}

	if unescaped, err := url.QueryUnescape(s); err == nil {
		s = unescaped
	}
	for _, p := range urlPatterns {
		if m := p.FindStringSubmatch(s); len(m) == 2 && idPattern.MatchString(m[1]) {
			return m[1], nil
		}
	}
	return "", types.NewError(types.KindInvalidInput, "invalid YouTube video ID or URL", nil)
}

// WatchURL returns the canonical watch page URL for id
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

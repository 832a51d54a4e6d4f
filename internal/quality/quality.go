package quality

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/codebuildervaibhav/tubesummary/internal/types"
)

// Thresholds below which a transcript is too thin to summarize
type Thresholds struct {
	MinChars int
	MinWords int
}

// DefaultThresholds are 100 characters and 15 words
var DefaultThresholds = Thresholds{MinChars: 100, MinWords: 15}

// timestampMarker matches [M:SS], [H:MM:SS] and [🔗 M:SS]
var timestampMarker = regexp.MustCompile(`\[(?:🔗\s*)?\d{1,2}:\d{2}(?::\d{2})?\]`)

// Strip removes timestamp markers and surrounding whitespace
func Strip(text string) string {
	return strings.TrimSpace(timestampMarker.ReplaceAllString(text, ""))
}

// Assess counts characters and words of text after stripping timestamp markers
func (t Thresholds) Assess(text string) types.Verdict {
	stripped := Strip(text)
	chars := utf8.RuneCountInString(stripped)
	words := len(strings.Fields(stripped))
	return types.Verdict{
		IsMinimal: chars < t.MinChars || words < t.MinWords,
		CharCount: chars,
		WordCount: words,
	}
}

// Assess applies DefaultThresholds
func Assess(text string) types.Verdict {
	return DefaultThresholds.Assess(text)
}

package transcription

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Heuristics flag speech results whose auto-detected English label is likely
// wrong (romanized mis-transcription of another language). Zero values
// disable the matching check.
type Heuristics struct {
	NonASCIIRatio     float64
	GarbagePatterns   []string
	RepeatRun         int
	MaxCodePoint      rune
	ShortSegmentChars int
	ShortSegmentRatio float64
	SingleWordRatio   float64
}

// DefaultHeuristics returns the tuned thresholds
func DefaultHeuristics() Heuristics {
	return Heuristics{
		NonASCIIRatio: 0.01,
		GarbagePatterns: []string{
			"Shepera", "Chappash", "theydd", "Eeva",
			"COVID-19 tapi", "doesn mean to be a fool",
			"nuo'a", "hculpa", "Strach", "fandom", "abins",
			"consumptionolution", "negating", "Matthew Another",
		},
		RepeatRun:         5,
		MaxCodePoint:      0x1000,
		ShortSegmentChars: 10,
		ShortSegmentRatio: 0.30,
		SingleWordRatio:   0.20,
	}
}

// ShouldRetry reports whether res should be transcribed again with a forced
// language, and why. Only results detected as English are checked.
func (h Heuristics) ShouldRetry(res *Result) (bool, string) {
	if res == nil || !strings.HasPrefix(strings.ToLower(res.Language), "en") {
		return false, ""
	}

	texts := make([]string, len(res.Segments))
	for i, s := range res.Segments {
		texts[i] = s.Text
	}
	full := strings.Join(texts, " ")

	if h.NonASCIIRatio > 0 {
		if total := utf8.RuneCountInString(full); total > 0 {
			nonASCII := 0
			for _, r := range full {
				if r > 0x7F {
					nonASCII++
				}
			}
			if ratio := float64(nonASCII) / float64(total); ratio > h.NonASCIIRatio {
				return true, fmt.Sprintf("non-latin chars: %.1f%%", ratio*100)
			}
		}
	}

	for _, p := range h.GarbagePatterns {
		if strings.Contains(full, p) {
			return true, fmt.Sprintf("garbage pattern: %q", p)
		}
	}

	if h.RepeatRun > 1 && hasRepeatRun(full, h.RepeatRun) {
		return true, "repeated characters"
	}

	if h.MaxCodePoint > 0 {
		for _, r := range full {
			if r > h.MaxCodePoint {
				return true, "mixed scripts"
			}
		}
	}

	n := len(res.Segments)
	if n == 0 {
		return false, ""
	}

	if h.ShortSegmentRatio > 0 {
		short := 0
		for _, s := range res.Segments {
			if utf8.RuneCountInString(strings.TrimSpace(s.Text)) < h.ShortSegmentChars {
				short++
			}
		}
		if ratio := float64(short) / float64(n); ratio > h.ShortSegmentRatio {
			return true, fmt.Sprintf("short segments: %d/%d", short, n)
		}
	}

	if h.SingleWordRatio > 0 {
		single := 0
		for _, s := range res.Segments {
			if len(strings.Fields(s.Text)) <= 1 {
				single++
			}
		}
		if ratio := float64(single) / float64(n); ratio > h.SingleWordRatio {
			return true, fmt.Sprintf("single-word segments: %d/%d", single, n)
		}
	}

	return false, ""
}

// hasRepeatRun reports whether s contains n or more identical consecutive runes
func hasRepeatRun(s string, n int) bool {
	var prev rune = -1
	run := 0
	for _, r := range s {
		if r == prev {
			run++
		} else {
			prev, run = r, 1
		}
		if run >= n {
			return true
		}
	}
	return false
}

package captions

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"net/url"
	"strconv"
	"strings"

	"github.com/codebuildervaibhav/tubesummary/internal/types"
)

// Timedtext XML. The legacy format carries <text start dur> in seconds,
// format 3 carries <p t d> in milliseconds.
type timedText struct {
	Lines []struct {
		Start string `xml:"start,attr"`
		Text  string `xml:",chardata"`
	} `xml:"text"`
	Paragraphs []struct {
		T     string `xml:"t,attr"`
		Text  string `xml:",chardata"`
		Spans []struct {
			Text string `xml:",chardata"`
		} `xml:"s"`
	} `xml:"body>p"`
}

// parseTimedTextXML parses a timedtext XML document into segments
func parseTimedTextXML(body []byte) ([]types.Segment, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, nil
	}

	var tt timedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return nil, fmt.Errorf("parse timedtext XML: %w", err)
	}

	segs := make([]types.Segment, 0, len(tt.Lines)+len(tt.Paragraphs))
	for _, line := range tt.Lines {
		sec, _ := strconv.ParseFloat(line.Start, 64)
		segs = append(segs, types.Segment{StartMs: types.SecondsToMs(sec), Text: cleanText(line.Text)})
	}
	for _, p := range tt.Paragraphs {
		ms, _ := strconv.ParseInt(p.T, 10, 64)
		text := p.Text
		for _, s := range p.Spans {
			text += s.Text
		}
		segs = append(segs, types.Segment{StartMs: ms, Text: cleanText(text)})
	}
	return segs, nil
}

type json3 struct {
	Events []struct {
		TStartMs int64 `json:"tStartMs"`
		Segs     []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

// parseJSON3 parses the timedtext json3 format (offsets in milliseconds)
func parseJSON3(body []byte) ([]types.Segment, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, nil
	}

	var doc json3
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse timedtext json3: %w", err)
	}

	segs := make([]types.Segment, 0, len(doc.Events))
	for _, ev := range doc.Events {
		var sb strings.Builder
		for _, s := range ev.Segs {
			sb.WriteString(s.UTF8)
		}
		segs = append(segs, types.Segment{StartMs: ev.TStartMs, Text: cleanText(sb.String())})
	}
	return segs, nil
}

// cleanText decodes the entities YouTube double-escapes in caption text
func cleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(html.UnescapeString(s)))
}

// withFormat sets the fmt query parameter on a caption track URL
func withFormat(baseURL, format string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return baseURL
	}
	q := u.Query()
	if format == "" {
		q.Del("fmt")
	} else {
		q.Set("fmt", format)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

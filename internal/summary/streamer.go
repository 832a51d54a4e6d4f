package summary

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/codebuildervaibhav/tubesummary/internal/logging"
	"github.com/codebuildervaibhav/tubesummary/internal/types"
)

const systemPrompt = "You are a helpful AI assistant specialized in analyzing and summarizing video content. Provide clear, well-structured, and actionable summaries."

// Config configures the OpenRouter client
type Config struct {
	APIKey      string
	BaseURL     string
	SiteURL     string
	SiteName    string
	Temperature float64
	HTTPClient  *http.Client
}

// Streamer relays chat completion token streams from OpenRouter
type Streamer struct {
	cfg Config
	hc  *http.Client
}

// NewStreamer creates a summary streamer
func NewStreamer(cfg Config) *Streamer {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api/v1"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	hc := cfg.HTTPClient
	if hc == nil {
		// no overall timeout: streams are bounded by the request context
		hc = &http.Client{Transport: &http.Transport{
			ResponseHeaderTimeout: 2 * time.Minute,
			IdleConnTimeout:       90 * time.Second,
		}}
	}
	return &Streamer{cfg: cfg, hc: hc}
}

// Configured reports whether an API key is set
func (s *Streamer) Configured() bool { return s.cfg.APIKey != "" }

// Request is one summary generation
type Request struct {
	Text      string
	Prompt    string
	Model     string
	MaxTokens int
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// FillTranscript substitutes text into the prompt's transcript placeholder,
// appending it when the prompt has none.
func FillTranscript(prompt, text string) string {
	switch {
	case strings.Contains(prompt, "{{TRANSCRIPT}}"):
		return strings.ReplaceAll(prompt, "{{TRANSCRIPT}}", text)
	case strings.Contains(prompt, "{transcript}"):
		return strings.Replace(prompt, "{transcript}", text, 1)
	}
	return prompt + "\n\nTranscript:\n" + text
}

// Stream opens a streaming completion. The returned Stream must be closed.
func (s *Streamer) Stream(ctx context.Context, req Request) (*Stream, error) {
	if !s.Configured() {
		return nil, types.NewError(types.KindNotConfigured, "OPENROUTER_API_KEY not configured", nil)
	}

	body, err := json.Marshal(chatRequest{
		Model: req.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: FillTranscript(req.Prompt, req.Text)},
		},
		Stream:      true,
		Temperature: s.cfg.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	sctx, cancel := context.WithCancel(ctx)
	httpReq, err := http.NewRequestWithContext(sctx, http.MethodPost, s.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if s.cfg.SiteURL != "" {
		httpReq.Header.Set("HTTP-Referer", s.cfg.SiteURL)
	}
	if s.cfg.SiteName != "" {
		httpReq.Header.Set("X-Title", s.cfg.SiteName)
	}

	log := logging.FromContext(ctx)
	log.Info("opening summary stream",
		slog.String("model", req.Model),
		slog.Int("transcript_chars", len(req.Text)),
		slog.Int("max_tokens", req.MaxTokens))

	resp, err := s.hc.Do(httpReq)
	if err != nil {
		cancel()
		if types.IsContextErr(err) {
			return nil, err
		}
		return nil, types.NewError(types.KindUpstreamError, "OpenRouter request failed", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer cancel()
		defer resp.Body.Close()
		return nil, upstreamStatusError(resp)
	}

	return &Stream{
		body:   resp.Body,
		reader: bufio.NewReader(resp.Body),
		cancel: cancel,
		log:    log,
	}, nil
}

func upstreamStatusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
	msg := fmt.Sprintf("OpenRouter API error: %d", resp.StatusCode)

	var parsed struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &parsed) == nil {
		switch {
		case parsed.Error != nil && parsed.Error.Message != "":
			msg = parsed.Error.Message
		case parsed.Message != "":
			msg = parsed.Message
		}
	}
	return types.NewError(types.KindUpstreamError, msg, nil)
}

// Stream is a single-pass sequence of text increments
type Stream struct {
	body   io.ReadCloser
	reader *bufio.Reader
	cancel context.CancelFunc
	log    *slog.Logger
	done   bool
}

// Next returns the next non-empty text increment. It returns io.EOF once
// the provider sends [DONE] or closes the stream.
func (s *Stream) Next() (string, error) {
	for !s.done {
		line, err := s.reader.ReadString('\n')
		if content, ok, perr := s.parseLine(strings.TrimSpace(line)); perr != nil {
			s.done = true
			return "", perr
		} else if ok {
			return content, nil
		}
		if err != nil {
			s.done = true
			if errors.Is(err, io.EOF) {
				return "", io.EOF
			}
			if types.IsContextErr(err) {
				return "", err
			}
			return "", types.NewError(types.KindUpstreamError, "stream read failed", err)
		}
	}
	return "", io.EOF
}

// parseLine handles one SSE line. ok is true when it carried content.
func (s *Stream) parseLine(line string) (content string, ok bool, err error) {
	if line == "" || strings.HasPrefix(line, ":") {
		return "", false, nil
	}
	data, found := strings.CutPrefix(line, "data:")
	if !found {
		return "", false, nil
	}
	data = strings.TrimSpace(data)
	if data == "[DONE]" {
		s.done = true
		return "", false, nil
	}

	var chunk chatChunk
	if jerr := json.Unmarshal([]byte(data), &chunk); jerr != nil {
		s.log.Warn("invalid JSON in stream", slog.String("data", truncate(data, 200)))
		return "", false, nil
	}
	if chunk.Error != nil {
		return "", false, types.NewError(types.KindUpstreamError, chunk.Error.Message, nil)
	}
	if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
		return "", false, nil
	}
	return chunk.Choices[0].Delta.Content, true, nil
}

// Close aborts the upstream request
func (s *Stream) Close() error {
	s.done = true
	s.cancel()
	return s.body.Close()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

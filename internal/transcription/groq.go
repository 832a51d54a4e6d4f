package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// GroqBackend calls an OpenAI-compatible /audio/transcriptions endpoint
// (Groq hosted Whisper) with verbose_json and segment timestamps.
type GroqBackend struct {
	apiKey  string
	baseURL string
	model   string
	hc      *http.Client
}

// NewGroqBackend creates a hosted Whisper backend
func NewGroqBackend(apiKey, baseURL, model string) *GroqBackend {
	return &GroqBackend{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		hc:      &http.Client{Timeout: 10 * time.Minute},
	}
}

func (g *GroqBackend) Name() string { return "groq" }

// Configured reports whether an API key is present
func (g *GroqBackend) Configured() bool { return g.apiKey != "" }

type groqError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (g *GroqBackend) Transcribe(ctx context.Context, audioPath string, opts Options) (*Result, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fields := [][2]string{
		{"model", g.model},
		{"response_format", "verbose_json"},
		{"timestamp_granularities[]", "segment"},
	}
	if opts.Language != "" {
		fields = append(fields, [2]string{"language", opts.Language})
	}
	for _, kv := range fields {
		if err := mw.WriteField(kv[0], kv[1]); err != nil {
			return nil, err
		}
	}

	fw, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := g.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var ge groqError
		if json.Unmarshal(b, &ge) == nil && ge.Error.Message != "" {
			return nil, fmt.Errorf("groq http %d: %s", resp.StatusCode, ge.Error.Message)
		}
		return nil, fmt.Errorf("groq http %d: %s", resp.StatusCode, string(b))
	}

	var res Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode groq response: %w", err)
	}
	return &res, nil
}

package transcription

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

var whisperModels = []string{"tiny", "base", "small", "medium", "large"}

// ResolveModel maps a hint such as "ggml-small.bin" or "medium" to a Whisper
// model size, falling back to def.
func ResolveModel(hint, def string) string {
	h := strings.ToLower(hint)
	for _, m := range whisperModels {
		if strings.Contains(h, m) {
			return m
		}
	}
	return def
}

// WhisperBackend wraps Python's OpenAI Whisper for transcription
type WhisperBackend struct {
	python    string
	modelName string
	threads   int
	workDir   string
	mu        sync.Mutex // one local model run at a time
}

// NewWhisperBackend creates a local backend invoking `python -m whisper`
func NewWhisperBackend(python, model string, threads int, workDir string) *WhisperBackend {
	if python == "" {
		python = "python3"
	}
	return &WhisperBackend{
		python:    python,
		modelName: ResolveModel(model, "base"),
		threads:   threads,
		workDir:   workDir,
	}
}

func (wb *WhisperBackend) Name() string { return "local" }

// Configured reports whether the python interpreter can be found
func (wb *WhisperBackend) Configured() bool {
	_, err := exec.LookPath(wb.python)
	return err == nil
}

// Transcribe normalizes the audio with ffmpeg and runs Whisper on it
func (wb *WhisperBackend) Transcribe(ctx context.Context, audioPath string, opts Options) (*Result, error) {
	wb.mu.Lock()
	defer wb.mu.Unlock()

	outDir, err := os.MkdirTemp(wb.workDir, "whisper_output_")
	if err != nil {
		return nil, fmt.Errorf("failed to create whisper output dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	normalized, err := NormalizeAudio(ctx, audioPath, outDir)
	if err != nil {
		return nil, err
	}

	model := ResolveModel(opts.ModelHint, wb.modelName)
	args := []string{"-m", "whisper",
		normalized,
		"--model", model,
		"--output_dir", outDir,
		"--output_format", "json",
		"--fp16", "False", // CPU compatibility
	}
	if opts.Language != "" {
		args = append(args, "--language", opts.Language)
	}
	if wb.threads > 0 {
		args = append(args, "--threads", strconv.Itoa(wb.threads))
	}

	slog.Debug("running local whisper", slog.String("model", model), slog.String("language", opts.Language))
	output, err := exec.CommandContext(ctx, wb.python, args...).CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("whisper transcription failed: %w\nOutput: %s", err, string(output))
	}

	baseName := strings.TrimSuffix(filepath.Base(normalized), filepath.Ext(normalized))
	jsonData, err := os.ReadFile(filepath.Join(outDir, baseName+".json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read whisper output: %w", err)
	}
	return parseWhisperJSON(jsonData)
}

// whisperOutput matches Python Whisper's JSON output format
type whisperOutput struct {
	Text     string       `json:"text"`
	Language string       `json:"language"`
	Segments []RawSegment `json:"segments"`
}

func parseWhisperJSON(data []byte) (*Result, error) {
	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse whisper JSON: %w", err)
	}

	res := &Result{Language: out.Language, Segments: out.Segments}
	if n := len(out.Segments); n > 0 {
		res.Duration = out.Segments[n-1].End
	}
	return res, nil
}

package transcription

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/codebuildervaibhav/tubesummary/internal/types"
	"github.com/codebuildervaibhav/tubesummary/internal/youtube"
)

// Downloader fetches the audio track of a video into dest
type Downloader interface {
	Download(ctx context.Context, videoID, dest string) error
}

// YtDlp downloads audio with the yt-dlp CLI
type YtDlp struct {
	path    string
	cookies string
	timeout time.Duration
}

// NewYtDlp creates a yt-dlp downloader. cookiesPath is optional; without it
// bot-gated videos fail to download.
func NewYtDlp(path, cookiesPath string, timeout time.Duration) *YtDlp {
	if path == "" {
		path = "yt-dlp"
	}
	return &YtDlp{path: path, cookies: cookiesPath, timeout: timeout}
}

var botPhrases = []string{"sign in to confirm", "not a bot", "confirm your age", "http error 403"}

func (y *YtDlp) Download(ctx context.Context, videoID, dest string) error {
	if y.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, y.timeout)
		defer cancel()
	}

	args := y.args(videoID, dest)
	output, err := exec.CommandContext(ctx, y.path, args...).CombinedOutput()
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return types.NewError(types.KindNotConfigured, "yt-dlp not installed", err)
	}

	msg := strings.ToLower(string(output))
	for _, p := range botPhrases {
		if strings.Contains(msg, p) {
			hint := "YouTube bot protection blocked the download"
			if y.cookies == "" {
				hint += "; set YOUTUBE_COOKIES_PATH to a cookies.txt export"
			}
			return types.NewError(types.KindAudioDownloadFailed, hint, err)
		}
	}
	return types.NewError(types.KindAudioDownloadFailed, "yt-dlp failed", fmt.Errorf("%w: %s", err, lastLine(string(output))))
}

func (y *YtDlp) args(videoID, dest string) []string {
	args := []string{
		"-x",
		"--audio-format", "mp3",
		"--audio-quality", "5",
		"--no-playlist",
		"--no-progress",
		"-o", strings.TrimSuffix(dest, ".mp3") + ".%(ext)s",
	}
	if y.cookies != "" {
		if _, err := os.Stat(y.cookies); err == nil {
			args = append(args, "--cookies", y.cookies)
		}
	}
	return append(args, youtube.WatchURL(videoID))
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return lines[len(lines)-1]
}

package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const (
	audioExt   = ".mp3"
	tempPrefix = ".partial-"
)

// FetchFunc writes the audio for a video to dest
type FetchFunc func(ctx context.Context, dest string) error

// AudioCache keeps downloaded audio on local disk keyed by video id.
// Files are written to a temp name and renamed into place, and concurrent
// callers for the same id share one in-flight download.
type AudioCache struct {
	dir          string
	fetchTimeout time.Duration
	group        singleflight.Group
}

// NewAudioCache creates the cache directory if needed
func NewAudioCache(dir string) (*AudioCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create audio cache dir: %w", err)
	}
	return &AudioCache{dir: dir}, nil
}

// SetFetchTimeout bounds a shared download. Zero leaves it to the fetch func.
func (c *AudioCache) SetFetchTimeout(d time.Duration) { c.fetchTimeout = d }

// Dir returns the cache directory
func (c *AudioCache) Dir() string { return c.dir }

// Path returns where the audio for videoID lives
func (c *AudioCache) Path(videoID string) string {
	return filepath.Join(c.dir, filepath.Base(videoID)+audioExt)
}

// Exists reports whether audio for videoID is cached
func (c *AudioCache) Exists(videoID string) bool {
	info, err := os.Stat(c.Path(videoID))
	return err == nil && !info.IsDir() && info.Size() > 0
}

// Ensure returns the cached audio path for videoID, calling fetch to fill the
// cache when it is empty. reused is true when no download was needed.
// The download is shared by every caller for videoID and keeps running when
// the caller that started it goes away; each caller stops waiting on its own ctx.
func (c *AudioCache) Ensure(ctx context.Context, videoID string, fetch FetchFunc) (path string, reused bool, err error) {
	if c.Exists(videoID) {
		return c.Path(videoID), true, nil
	}

	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(videoID, func() (any, error) {
		if c.Exists(videoID) {
			return true, nil
		}
		dctx := shared
		if c.fetchTimeout > 0 {
			var cancel context.CancelFunc
			dctx, cancel = context.WithTimeout(shared, c.fetchTimeout)
			defer cancel()
		}
		return false, c.download(dctx, videoID, fetch)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", false, res.Err
		}
		return c.Path(videoID), res.Val.(bool), nil
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
}

func (c *AudioCache) download(ctx context.Context, videoID string, fetch FetchFunc) error {
	tmp := filepath.Join(c.dir, tempPrefix+uuid.New().String()+audioExt)
	defer os.Remove(tmp)

	if err := fetch(ctx, tmp); err != nil {
		return err
	}
	info, err := os.Stat(tmp)
	if err != nil {
		return fmt.Errorf("downloaded audio missing: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("downloaded audio is empty")
	}
	if err := os.Rename(tmp, c.Path(videoID)); err != nil {
		return fmt.Errorf("failed to move audio into cache: %w", err)
	}
	return nil
}

// Remove deletes the cached audio for videoID. Missing files are not an error.
func (c *AudioCache) Remove(videoID string) error {
	err := os.Remove(c.Path(videoID))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// IsPartial reports whether name is an in-progress download
func IsPartial(name string) bool {
	return strings.HasPrefix(filepath.Base(name), tempPrefix)
}

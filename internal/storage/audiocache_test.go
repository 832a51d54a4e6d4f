package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAudio(calls *atomic.Int32, delay time.Duration) FetchFunc {
	return func(ctx context.Context, dest string) error {
		calls.Add(1)
		time.Sleep(delay)
		return os.WriteFile(dest, []byte("ID3 fake audio"), 0644)
	}
}

func TestAudioCacheEnsureReuses(t *testing.T) {
	cache, err := NewAudioCache(t.TempDir())
	require.NoError(t, err)

	var calls atomic.Int32
	path, reused, err := cache.Ensure(context.Background(), "dQw4w9WgXcQ", writeAudio(&calls, 0))
	require.NoError(t, err)
	assert.False(t, reused)
	assert.Equal(t, cache.Path("dQw4w9WgXcQ"), path)
	assert.True(t, cache.Exists("dQw4w9WgXcQ"))

	_, reused, err = cache.Ensure(context.Background(), "dQw4w9WgXcQ", writeAudio(&calls, 0))
	require.NoError(t, err)
	assert.True(t, reused)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAudioCacheConcurrentDownloadsShareOne(t *testing.T) {
	cache, err := NewAudioCache(t.TempDir())
	require.NoError(t, err)

	var calls atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := cache.Ensure(context.Background(), "abcdefghijk", writeAudio(&calls, 50*time.Millisecond))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	entries, err := os.ReadDir(cache.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "abcdefghijk.mp3", entries[0].Name())
}

func TestAudioCacheDownloadOutlivesCancelledCaller(t *testing.T) {
	cache, err := NewAudioCache(t.TempDir())
	require.NoError(t, err)

	var calls atomic.Int32
	started := make(chan struct{})
	fetch := func(ctx context.Context, dest string) error {
		calls.Add(1)
		close(started)
		select {
		case <-time.After(100 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
		return os.WriteFile(dest, []byte("ID3 fake audio"), 0644)
	}

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, _, err := cache.Ensure(leaderCtx, "abcdefghijk", fetch)
		leaderErr <- err
	}()
	<-started

	followerErr := make(chan error, 1)
	go func() {
		_, _, err := cache.Ensure(context.Background(), "abcdefghijk", fetch)
		followerErr <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-leaderErr, context.Canceled)

	require.NoError(t, <-followerErr)
	assert.True(t, cache.Exists("abcdefghijk"))
	assert.Equal(t, int32(1), calls.Load())
}

func TestAudioCacheFetchTimeout(t *testing.T) {
	cache, err := NewAudioCache(t.TempDir())
	require.NoError(t, err)
	cache.SetFetchTimeout(30 * time.Millisecond)

	_, _, err = cache.Ensure(context.Background(), "abcdefghijk", func(ctx context.Context, dest string) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, cache.Exists("abcdefghijk"))
}

func TestAudioCacheFailedDownloadLeavesNothing(t *testing.T) {
	cache, err := NewAudioCache(t.TempDir())
	require.NoError(t, err)

	boom := errors.New("yt-dlp exited 1")
	_, _, err = cache.Ensure(context.Background(), "abcdefghijk", func(ctx context.Context, dest string) error {
		_ = os.WriteFile(dest, []byte("half"), 0644)
		return boom
	})
	require.ErrorIs(t, err, boom)

	entries, err := os.ReadDir(cache.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.False(t, cache.Exists("abcdefghijk"))
}

func TestAudioCacheRemove(t *testing.T) {
	cache, err := NewAudioCache(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(cache.Path("abcdefghijk"), []byte("x"), 0644))
	require.NoError(t, cache.Remove("abcdefghijk"))
	assert.False(t, cache.Exists("abcdefghijk"))
	assert.NoError(t, cache.Remove("abcdefghijk"))
}

func TestIsPartial(t *testing.T) {
	assert.True(t, IsPartial(filepath.Join("temp", ".partial-123.mp3")))
	assert.False(t, IsPartial("abcdefghijk.mp3"))
}

package cleanup

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, dir, name string, size int, age time.Duration, now time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0644))
	mt := now.Add(-age)
	require.NoError(t, os.Chtimes(path, mt, mt))
	return path
}

func TestRunOnceEvictsByAge(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	old := writeFile(t, dir, "old.mp3", 10, 7*time.Hour, now)
	fresh := writeFile(t, dir, "fresh.mp3", 10, time.Hour, now)

	s := NewScheduler(dir, Policy{MaxAge: 6 * time.Hour}, quietLogger())
	res := s.RunOnce(now)

	assert.Equal(t, 1, res.Deleted)
	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)
}

func TestRunOnceEvictsOldestBySize(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	const mb = 1024 * 1024
	a := writeFile(t, dir, "a.mp3", mb, 3*time.Hour, now)
	b := writeFile(t, dir, "b.mp3", mb, 2*time.Hour, now)
	c := writeFile(t, dir, "c.mp3", mb, time.Hour, now)

	s := NewScheduler(dir, Policy{MaxSizeMB: 2}, quietLogger())
	res := s.RunOnce(now)

	assert.Equal(t, 1, res.Deleted)
	assert.Equal(t, int64(2*mb), res.Remaining)
	assert.NoFileExists(t, a)
	assert.FileExists(t, b)
	assert.FileExists(t, c)
}

func TestRunOnceNoLimits(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	writeFile(t, dir, "a.mp3", 10, 100*time.Hour, now)

	res := NewScheduler(dir, Policy{}, quietLogger()).RunOnce(now)
	assert.Zero(t, res.Deleted)
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(t.TempDir(), Policy{Interval: time.Millisecond}, quietLogger())
	s.Start()
	time.Sleep(5 * time.Millisecond)
	s.Stop()
	s.Stop()
}

func TestRunOnceKeepsActiveDownloads(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	const mb = 1024 * 1024
	partial := writeFile(t, dir, ".partial-1234.mp3", mb, 3*time.Hour, now)
	done := writeFile(t, dir, "dQw4w9WgXcQ.mp3", mb, 2*time.Hour, now)
	stale := writeFile(t, dir, ".partial-5678.mp3", mb, 8*time.Hour, now)

	s := NewScheduler(dir, Policy{MaxAge: 6 * time.Hour, MaxSizeMB: 1}, quietLogger())
	res := s.RunOnce(now)

	assert.Equal(t, 2, res.Deleted)
	assert.NoFileExists(t, stale)
	assert.NoFileExists(t, done)
	assert.FileExists(t, partial)
}

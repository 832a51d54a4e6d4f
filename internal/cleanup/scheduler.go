package cleanup

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/codebuildervaibhav/tubesummary/internal/storage"
)

// Policy bounds the audio cache by file age and total size
type Policy struct {
	Interval  time.Duration
	MaxAge    time.Duration
	MaxSizeMB int64
}

// Scheduler evicts cached audio files on a fixed interval
type Scheduler struct {
	dir      string
	policy   Policy
	log      *slog.Logger
	stopChan chan struct{}
	stopOnce sync.Once
}

// Result summarizes one eviction pass
type Result struct {
	Deleted    int
	FreedBytes int64
	Remaining  int64
}

// NewScheduler creates a new cleanup scheduler
func NewScheduler(dir string, policy Policy, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	if policy.Interval <= 0 {
		policy.Interval = 30 * time.Minute
	}
	return &Scheduler{
		dir:      dir,
		policy:   policy,
		log:      log.With(slog.String("component", "cleanup")),
		stopChan: make(chan struct{}),
	}
}

// Start runs one pass immediately, then one per interval until Stop
func (s *Scheduler) Start() {
	s.RunOnce(time.Now())

	ticker := time.NewTicker(s.policy.Interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				s.RunOnce(now)
			case <-s.stopChan:
				return
			}
		}
	}()

	s.log.Info("cleanup scheduler started",
		slog.String("dir", s.dir),
		slog.Duration("interval", s.policy.Interval),
		slog.Duration("max_age", s.policy.MaxAge),
		slog.Int64("max_size_mb", s.policy.MaxSizeMB))
}

// Stop stops the cleanup scheduler
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.log.Info("cleanup scheduler stopped")
	})
}

type cachedFile struct {
	path    string
	size    int64
	modTime time.Time
	partial bool
}

// RunOnce removes files older than MaxAge, then the oldest files until the
// directory fits in MaxSizeMB. Zero limits disable that rule. Downloads still
// in progress are only removed once stale.
func (s *Scheduler) RunOnce(now time.Time) Result {
	var res Result

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.log.Error("cleanup: read dir failed", slog.Any("error", err))
		return res
	}

	files := make([]cachedFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, cachedFile{
			path:    filepath.Join(s.dir, e.Name()),
			size:    info.Size(),
			modTime: info.ModTime(),
			partial: storage.IsPartial(e.Name()),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].modTime.Before(files[j].modTime) })

	var total int64
	kept := files[:0]
	for _, f := range files {
		if s.policy.MaxAge > 0 && now.Sub(f.modTime) > s.policy.MaxAge {
			if s.remove(f, "age") {
				res.Deleted++
				res.FreedBytes += f.size
				continue
			}
		}
		kept = append(kept, f)
		total += f.size
	}

	limit := s.policy.MaxSizeMB * 1024 * 1024
	for i := 0; limit > 0 && total > limit && i < len(kept); i++ {
		if kept[i].partial {
			continue
		}
		if s.remove(kept[i], "size") {
			res.Deleted++
			res.FreedBytes += kept[i].size
			total -= kept[i].size
		}
	}
	res.Remaining = total

	if res.Deleted > 0 {
		s.log.Info("cleanup complete",
			slog.Int("deleted", res.Deleted),
			slog.String("freed", formatMB(res.FreedBytes)),
			slog.String("remaining", formatMB(res.Remaining)))
	}
	return res
}

func (s *Scheduler) remove(f cachedFile, reason string) bool {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		s.log.Warn("failed to delete cached audio", slog.String("file", filepath.Base(f.path)), slog.Any("error", err))
		return false
	}
	s.log.Debug("evicted cached audio",
		slog.String("file", filepath.Base(f.path)),
		slog.String("reason", reason),
		slog.Int64("size_kb", f.size/1024))
	return true
}

func formatMB(b int64) string {
	return strconv.FormatFloat(float64(b)/(1024*1024), 'f', 2, 64) + "MB"
}

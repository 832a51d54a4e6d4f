package queue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPool(workers int) *WorkerPool {
	wp := NewWorkerPool(workers, 10, slog.New(slog.NewTextHandler(io.Discard, nil)))
	wp.Start()
	return wp
}

func TestRunReturnsJobError(t *testing.T) {
	wp := newPool(1)
	defer wp.Stop()

	require.NoError(t, wp.Run(context.Background(), "a", func(ctx context.Context) error { return nil }))

	boom := errors.New("boom")
	assert.ErrorIs(t, wp.Run(context.Background(), "a", func(ctx context.Context) error { return boom }), boom)
}

func TestPanicIsRecovered(t *testing.T) {
	wp := newPool(1)
	defer wp.Stop()

	err := wp.Run(context.Background(), "a", func(ctx context.Context) error { panic("kaboom") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")

	require.NoError(t, wp.Run(context.Background(), "b", func(ctx context.Context) error { return nil }))
}

func TestConcurrencyIsBounded(t *testing.T) {
	wp := newPool(2)
	defer wp.Stop()

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = wp.Run(context.Background(), "v", func(ctx context.Context) error {
				n := running.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				running.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestWaitHonoursContext(t *testing.T) {
	wp := newPool(1)
	defer wp.Stop()

	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := wp.Run(ctx, "slow", func(context.Context) error {
		<-release
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCancelledJobIsSkipped(t *testing.T) {
	wp := newPool(1)
	defer wp.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := NewJob(ctx, "v", func(context.Context) error {
		t.Fatal("should not run")
		return nil
	})
	wp.mu.RLock()
	wp.jobQueue <- job
	wp.mu.RUnlock()

	<-job.done
	assert.Equal(t, StatusFailed, job.Status())
}

func TestSubmitAfterStop(t *testing.T) {
	wp := newPool(1)
	wp.Stop()
	assert.ErrorIs(t, wp.Submit(context.Background(), NewJob(context.Background(), "v", nil)), ErrPoolClosed)
}

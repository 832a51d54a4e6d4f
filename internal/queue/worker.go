package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// ErrPoolClosed is returned when submitting to a stopped pool
var ErrPoolClosed = errors.New("worker pool is stopped")

// WorkerPool runs speech jobs with bounded concurrency
type WorkerPool struct {
	jobQueue    chan *Job
	workerCount int
	log         *slog.Logger

	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	active  atomic.Int32
	started sync.Once
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(workerCount, queueSize int, log *slog.Logger) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	if queueSize < 1 {
		queueSize = 100
	}
	if log == nil {
		log = slog.Default()
	}
	return &WorkerPool{
		jobQueue:    make(chan *Job, queueSize),
		workerCount: workerCount,
		log:         log.With(slog.String("component", "queue")),
	}
}

// Start initializes all workers
func (wp *WorkerPool) Start() {
	wp.started.Do(func() {
		wp.log.Info("starting worker pool", slog.Int("workers", wp.workerCount))
		for i := 0; i < wp.workerCount; i++ {
			wp.wg.Add(1)
			go wp.worker(i)
		}
	})
}

// Stop closes the queue and waits for running jobs to return
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if wp.closed {
		wp.mu.Unlock()
		return
	}
	wp.closed = true
	close(wp.jobQueue)
	wp.mu.Unlock()

	wp.wg.Wait()
	wp.log.Info("worker pool stopped")
}

// Submit enqueues a job, blocking while the queue is full
func (wp *WorkerPool) Submit(ctx context.Context, job *Job) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.closed {
		return ErrPoolClosed
	}

	select {
	case wp.jobQueue <- job:
		wp.log.Debug("job enqueued", slog.String("job_id", job.ID), slog.String("video_id", job.VideoID))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run submits fn as a job and waits for it
func (wp *WorkerPool) Run(ctx context.Context, videoID string, fn func(ctx context.Context) error) error {
	job := NewJob(ctx, videoID, fn)
	if err := wp.Submit(ctx, job); err != nil {
		return err
	}
	return job.Wait(ctx)
}

// Stats reports queued and running job counts
func (wp *WorkerPool) Stats() (queued, active int) {
	return len(wp.jobQueue), int(wp.active.Load())
}

// worker processes jobs from the queue
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		wp.process(id, job)
	}
}

func (wp *WorkerPool) process(workerID int, job *Job) {
	if err := job.ctx.Err(); err != nil {
		job.finish(err)
		return
	}

	wp.active.Add(1)
	defer wp.active.Add(-1)
	job.setStatus(StatusProcessing)
	start := time.Now()

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				wp.log.Error("worker panic",
					slog.Int("worker", workerID),
					slog.String("job_id", job.ID),
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())))
				err = fmt.Errorf("worker panic: %v", r)
			}
		}()
		err = job.run(job.ctx)
	}()

	wp.log.Debug("job finished",
		slog.Int("worker", workerID),
		slog.String("job_id", job.ID),
		slog.String("video_id", job.VideoID),
		slog.Duration("elapsed", time.Since(start)),
		slog.Bool("ok", err == nil))
	job.finish(err)
}

package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a job
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Job is one unit of heavy speech work for a video
type Job struct {
	ID        string
	VideoID   string
	CreatedAt time.Time

	ctx  context.Context
	run  func(ctx context.Context) error
	done chan struct{}

	mu     sync.Mutex
	status Status
	err    error
}

// NewJob creates a job that runs fn with ctx once a worker picks it up
func NewJob(ctx context.Context, videoID string, fn func(ctx context.Context) error) *Job {
	return &Job{
		ID:        uuid.New().String(),
		VideoID:   videoID,
		CreatedAt: time.Now(),
		ctx:       ctx,
		run:       fn,
		done:      make(chan struct{}),
		status:    StatusQueued,
	}
}

// Status returns the current job state
func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

func (j *Job) setStatus(s Status) {
	j.mu.Lock()
	j.status = s
	j.mu.Unlock()
}

func (j *Job) finish(err error) {
	j.mu.Lock()
	j.err = err
	if err != nil {
		j.status = StatusFailed
	} else {
		j.status = StatusCompleted
	}
	j.mu.Unlock()
	close(j.done)
}

// Wait blocks until the job finishes or ctx is done
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		j.mu.Lock()
		defer j.mu.Unlock()
		return j.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

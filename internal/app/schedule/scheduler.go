package schedule

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var ErrInvalidInterval = errors.New("schedule: interval must be positive")

// Job is one tick of periodic work. A failing tick is logged and the next
// tick runs as usual.
type Job func(ctx context.Context) error

type Periodic struct {
	Name     string
	Interval time.Duration
	Job      Job
}

// Runner drives periodic jobs until its context is cancelled.
type Runner struct {
	Logger *slog.Logger

	mu   sync.Mutex
	jobs []Periodic
}

func (r *Runner) Every(name string, interval time.Duration, job Job) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, Periodic{Name: name, Interval: interval, Job: job})
	return nil
}

// Run starts every job, ticking once immediately, and blocks until ctx is done.
func (r *Runner) Run(ctx context.Context) {
	r.mu.Lock()
	jobs := append([]Periodic(nil), r.jobs...)
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		go func(job Periodic) {
			defer wg.Done()
			r.loop(ctx, job)
		}(job)
	}
	wg.Wait()
}

func (r *Runner) loop(ctx context.Context, job Periodic) {
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()
	for {
		r.tick(ctx, job)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *Runner) tick(ctx context.Context, job Periodic) {
	if ctx.Err() != nil {
		return
	}
	if err := job.Job(ctx); err != nil && r.Logger != nil {
		r.Logger.Error("periodic job failed", "job", job.Name, "err", err)
	}
}

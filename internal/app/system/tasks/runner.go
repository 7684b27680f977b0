// Package tasks runs periodic background jobs with a shared
// start/stop lifecycle.
package tasks

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is one periodic task. Run receives a context that is cancelled
// on shutdown; errors are logged, not fatal.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error

	// RunAtStart fires the job once immediately instead of waiting a
	// full interval first.
	RunAtStart bool
}

// Runner drives a set of jobs, one goroutine each.
type Runner struct {
	jobs   []Job
	log    *zap.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRunner(logger *zap.Logger, jobs ...Job) *Runner {
	return &Runner{jobs: jobs, log: logger}
}

// Start launches every job loop.
func (r *Runner) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	for _, job := range r.jobs {
		r.wg.Add(1)
		go r.run(ctx, job)
		r.log.Info("background job started",
			zap.String("job", job.Name),
			zap.Duration("interval", job.Interval))
	}
}

// Stop cancels all job contexts and waits for the loops to exit.
func (r *Runner) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	r.wg.Wait()
	r.log.Info("background jobs stopped")
}

func (r *Runner) run(ctx context.Context, job Job) {
	defer r.wg.Done()

	if job.RunAtStart {
		r.invoke(ctx, job)
	}

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.invoke(ctx, job)
		case <-ctx.Done():
			return
		}
	}
}

func (r *Runner) invoke(ctx context.Context, job Job) {
	start := time.Now()
	if err := job.Run(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		r.log.Warn("background job failed",
			zap.String("job", job.Name), zap.Error(err))
		return
	}
	r.log.Debug("background job finished",
		zap.String("job", job.Name),
		zap.Duration("took", time.Since(start)))
}

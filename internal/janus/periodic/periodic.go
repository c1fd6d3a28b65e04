// Package periodic runs a job immediately and then on a fixed interval until
// stopped.
package periodic

import (
	"context"
	"log"
	"sync"
	"time"
)

type Runner struct {
	name     string
	interval time.Duration
	job      func(ctx context.Context)
	logger   *log.Logger

	once   sync.Once
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a runner but does not start it. An interval <= 0 yields a
// runner whose Start is a no-op.
func New(name string, interval time.Duration, job func(ctx context.Context), logger *log.Logger) *Runner {
	return &Runner{
		name:     name,
		interval: interval,
		job:      job,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start launches the loop. The loop exits when ctx is cancelled or Stop is
// called.
func (r *Runner) Start(ctx context.Context) {
	r.once.Do(func() {
		if r.interval <= 0 {
			r.logger.Printf("%s disabled", r.name)
			close(r.done)
			return
		}
		ctx, r.cancel = context.WithCancel(ctx)
		go r.loop(ctx)
		r.logger.Printf("%s started (interval=%s)", r.name, r.interval)
	})
}

// Stop signals the loop to exit and waits for the running job to return.
// Safe to call more than once, and before Start.
func (r *Runner) Stop() {
	r.once.Do(func() { close(r.done) })
	if r.cancel != nil {
		r.cancel()
	}
	<-r.done
}

func (r *Runner) loop(ctx context.Context) {
	defer close(r.done)

	r.job(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.job(ctx)
		}
	}
}

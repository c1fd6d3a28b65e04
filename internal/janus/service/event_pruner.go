package service

import (
	"context"
	"log"
	"time"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/periodic"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/store"
)

// EventPruner trims the status transition log to a retention window.
// Network records themselves are never pruned.
type EventPruner struct {
	store     store.StatusEventStore
	retention time.Duration
	logger    *log.Logger
	runner    *periodic.Runner
	now       func() time.Time
}

// PrunerConfig holds the parameters for NewEventPruner.
type PrunerConfig struct {
	// RetentionDays is how many days of status history to keep.
	// 0 keeps everything and the pruner never runs.
	RetentionDays int

	// IntervalHours is how often the pruner runs. Defaults to 6.
	IntervalHours int
}

func NewEventPruner(s store.StatusEventStore, cfg PrunerConfig, logger *log.Logger) *EventPruner {
	interval := time.Duration(cfg.IntervalHours) * time.Hour
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	retention := time.Duration(cfg.RetentionDays) * 24 * time.Hour
	if retention <= 0 {
		interval = 0
	}

	p := &EventPruner{
		store:     s,
		retention: retention,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	p.runner = periodic.New("status event pruner", interval, func(ctx context.Context) {
		_, _ = p.PruneNow(ctx)
	}, logger)
	return p
}

func (p *EventPruner) Start(ctx context.Context) { p.runner.Start(ctx) }

func (p *EventPruner) Stop() { p.runner.Stop() }

// PruneNow deletes events older than the retention window and returns the
// number removed.
func (p *EventPruner) PruneNow(ctx context.Context) (int64, error) {
	if p.retention <= 0 {
		return 0, nil
	}
	cutoff := p.now().Add(-p.retention)
	deleted, err := p.store.PruneOlderThan(ctx, cutoff)
	if err != nil {
		p.logger.Printf("status event prune error: %v", err)
		return 0, err
	}
	if deleted > 0 {
		p.logger.Printf("status event prune: deleted %d rows older than %s",
			deleted, cutoff.Format(time.RFC3339))
	}
	return deleted, nil
}

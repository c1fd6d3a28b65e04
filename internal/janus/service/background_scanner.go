package service

import (
	"context"
	"log"
	"time"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/periodic"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

// Scanner is the platform radio collaborator: one call yields one complete
// batch of observations for a single point in time.
type Scanner interface {
	Scan(ctx context.Context) ([]types.Observation, error)
}

// BackgroundScanner runs silent (non-manual) cycles on a timer. Each cycle
// gets its own deadline so a stalled radio cannot hold the store.
type BackgroundScanner struct {
	scanner     Scanner
	coordinator *Coordinator
	timeout     time.Duration
	logger      *log.Logger
	runner      *periodic.Runner
}

// BackgroundConfig holds the parameters for NewBackgroundScanner.
type BackgroundConfig struct {
	// Interval between cycles. 0 disables background scanning.
	Interval time.Duration

	// CycleTimeout bounds scan plus update. Defaults to Interval.
	CycleTimeout time.Duration
}

func NewBackgroundScanner(sc Scanner, co *Coordinator, cfg BackgroundConfig, logger *log.Logger) *BackgroundScanner {
	b := &BackgroundScanner{
		scanner:     sc,
		coordinator: co,
		timeout:     cfg.CycleTimeout,
		logger:      logger,
	}
	if b.timeout <= 0 {
		b.timeout = cfg.Interval
	}
	interval := cfg.Interval
	if sc == nil {
		interval = 0
	}
	b.runner = periodic.New("background scanner", interval, b.runOnce, logger)
	return b
}

// Start begins the loop. The first cycle runs immediately.
func (b *BackgroundScanner) Start(ctx context.Context) { b.runner.Start(ctx) }

// Stop signals the loop to exit and waits for an in-flight cycle to abort.
func (b *BackgroundScanner) Stop() { b.runner.Stop() }

func (b *BackgroundScanner) runOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	batch, err := b.scanner.Scan(ctx)
	if err != nil {
		b.logger.Printf("background scan error: %v", err)
		return
	}
	if _, err := b.coordinator.RunCycle(ctx, batch, false); err != nil {
		b.logger.Printf("background cycle error: %v", err)
	}
}

package allowlist

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/periodic"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/store"
	"github.com/BrandonDHaskell/Janus/server/internal/metrics"
)

// Syncer periodically pulls the allow-list from its Source, verifies it and
// swaps it into the Store. Every verified document is written to the cache;
// a failed fetch or verification leaves the last good copy in place.
//
// An interval of 0 disables the background loop; SyncNow still works.
type Syncer struct {
	store   *Store
	source  Source
	cache   store.AllowListCache
	logger  *log.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	runner  *periodic.Runner
}

// SyncerConfig holds the parameters for NewSyncer.
type SyncerConfig struct {
	// Interval is how often the publisher is polled.
	Interval time.Duration

	Metrics *metrics.Metrics

	// Now overrides the clock. Defaults to time.Now in UTC.
	Now func() time.Time
}

// NewSyncer creates a syncer but does not start it. source may be nil, in
// which case only the cached copy is ever used.
func NewSyncer(st *Store, src Source, cache store.AllowListCache, cfg SyncerConfig, logger *log.Logger) *Syncer {
	s := &Syncer{
		store:   st,
		source:  src,
		cache:   cache,
		logger:  logger,
		metrics: cfg.Metrics,
		now:     func() time.Time { return time.Now().UTC() },
	}
	if cfg.Now != nil {
		s.now = cfg.Now
	}
	interval := cfg.Interval
	if src == nil {
		interval = 0
	}
	s.runner = periodic.New("allowlist syncer", interval, func(ctx context.Context) {
		_ = s.SyncNow(ctx)
	}, logger)
	return s
}

// Restore loads the cached last-good document into the store. The cached
// copy is re-verified; a corrupt cache is ignored.
func (s *Syncer) Restore(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	doc, syncedAt, ok, err := s.cache.LoadAllowList(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	snap, err := s.store.Apply(doc, syncedAt)
	if err != nil {
		s.logger.Printf("allowlist cache rejected version=%s err=%v", doc.Version, err)
		s.metrics.AllowListSync("cache_rejected", -1)
		return nil
	}
	s.logger.Printf("allowlist restored from cache version=%s entries=%d synced_at=%s",
		snap.Version, snap.Len(), snap.SyncedAt.Format(time.RFC3339))
	s.metrics.AllowListSync("cache_restored", snap.Len())
	return nil
}

// SyncNow fetches, verifies and applies one document. On error the previous
// snapshot remains active.
func (s *Syncer) SyncNow(ctx context.Context) error {
	if s.source == nil {
		return nil
	}

	doc, err := s.source.Fetch(ctx)
	if err != nil {
		s.logger.Printf("allowlist fetch error: %v", err)
		s.metrics.AllowListSync("fetch_error", -1)
		return err
	}

	syncedAt := s.now()
	cur := s.store.Current()
	if cur.Version == strings.TrimSpace(doc.Version) && cur.Checksum != "" && strings.EqualFold(cur.Checksum, strings.TrimSpace(doc.Checksum)) {
		if snap, ok := s.store.Touch(syncedAt); ok {
			s.saveCache(ctx, snap, syncedAt)
		}
		s.metrics.AllowListSync("unchanged", cur.Len())
		return nil
	}

	snap, err := s.store.Apply(doc, syncedAt)
	if err != nil {
		s.logger.Printf("allowlist verify error version=%s: %v (keeping version=%s)", doc.Version, err, cur.Version)
		s.metrics.AllowListSync("rejected", -1)
		return err
	}

	s.saveCache(ctx, snap, syncedAt)

	s.logger.Printf("allowlist updated version=%s entries=%d", snap.Version, snap.Len())
	s.metrics.AllowListSync("applied", snap.Len())
	return nil
}

func (s *Syncer) saveCache(ctx context.Context, snap *Snapshot, syncedAt time.Time) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SaveAllowList(ctx, snap.Document(), syncedAt); err != nil {
		s.logger.Printf("allowlist cache write error: %v", err)
	}
}

// Start runs an immediate sync, then repeats on the configured interval
// until ctx is cancelled or Stop is called.
func (s *Syncer) Start(ctx context.Context) {
	s.runner.Start(ctx)
}

// Stop signals the syncer to exit and waits for it to finish.
func (s *Syncer) Stop() {
	s.runner.Stop()
}

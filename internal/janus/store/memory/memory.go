// Package memory provides in-memory store implementations for tests and
// ephemeral dev servers.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/store"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

// Store implements store.NetworkStore, store.StatusEventStore and
// store.AllowListCache behind a single mutex, which makes SaveBatch
// trivially atomic.
type Store struct {
	mu      sync.RWMutex
	records map[string]types.NetworkRecord
	events  []store.StatusEventRecord

	allowList *types.AllowListDocument
	syncedAt  time.Time

	// FailSaves, when > 0, makes the next N SaveBatch calls fail with
	// ErrInjected. Test hook.
	FailSaves int
}

func New() *Store {
	return &Store{records: make(map[string]types.NetworkRecord)}
}

func (s *Store) Get(_ context.Context, key string) (types.NetworkRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	if !ok {
		return types.NetworkRecord{}, false, nil
	}
	return rec.Clone(), true, nil
}

func (s *Store) List(_ context.Context) ([]types.NetworkRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.NetworkRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.Clone())
	}
	return out, nil
}

func (s *Store) SaveBatch(ctx context.Context, recs []types.NetworkRecord, events []store.StatusEventRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailSaves > 0 {
		s.FailSaves--
		return ErrInjected
	}
	for _, r := range recs {
		s.records[r.Key] = r.Clone()
	}
	s.events = append(s.events, events...)
	return nil
}

func (s *Store) DeleteAll(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.records))
	s.records = make(map[string]types.NetworkRecord)
	return n, nil
}

// ListEvents returns the newest events for key first. limit <= 0 means all.
func (s *Store) ListEvents(_ context.Context, key string, limit int) ([]store.StatusEventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.StatusEventRecord
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].Key != key {
			continue
		}
		out = append(out, s.events[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	return out, nil
}

func (s *Store) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0]
	var deleted int64
	for _, ev := range s.events {
		if ev.OccurredAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, ev)
	}
	s.events = kept
	return deleted, nil
}

func (s *Store) LoadAllowList(_ context.Context) (types.AllowListDocument, time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.allowList == nil {
		return types.AllowListDocument{}, time.Time{}, false, nil
	}
	doc := *s.allowList
	doc.Entries = append([]types.AllowListEntry(nil), s.allowList.Entries...)
	return doc, s.syncedAt, true, nil
}

func (s *Store) SaveAllowList(_ context.Context, doc types.AllowListDocument, syncedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc.Entries = append([]types.AllowListEntry(nil), doc.Entries...)
	s.allowList = &doc
	s.syncedAt = syncedAt
	return nil
}

// Events returns a copy of all recorded status events. Test-only helper.
func (s *Store) Events() []store.StatusEventRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.StatusEventRecord, len(s.events))
	copy(out, s.events)
	return out
}

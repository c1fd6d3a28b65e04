package service_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/alert"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/service"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/store"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/store/memory"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

type fakeScanner struct {
	batch []types.Observation
	err   error
	calls atomic.Int32
}

func (f *fakeScanner) Scan(context.Context) ([]types.Observation, error) {
	f.calls.Add(1)
	return f.batch, f.err
}

// ── BackgroundScanner ──

func TestBackgroundScanner_RunsSilentCycles(t *testing.T) {
	co, sm, sink := newCoordinator(t, govAllowList(t))
	sc := &fakeScanner{batch: govBatch()}

	bg := service.NewBackgroundScanner(sc, co, service.BackgroundConfig{Interval: time.Hour}, discardLogger())
	bg.Start(context.Background())
	require.Eventually(t, func() bool {
		recs, err := sm.List(context.Background())
		return err == nil && len(recs) == 3
	}, time.Second, 5*time.Millisecond)
	bg.Stop()

	require.EqualValues(t, 1, sc.calls.Load())
	require.NotContains(t, sink.kinds(), alert.KindSummary)
}

func TestBackgroundScanner_ScanErrorSkipsCycle(t *testing.T) {
	co, sm, _ := newCoordinator(t, govAllowList(t))
	sc := &fakeScanner{err: errors.New("radio busy")}

	bg := service.NewBackgroundScanner(sc, co, service.BackgroundConfig{Interval: time.Hour}, discardLogger())
	bg.Start(context.Background())
	require.Eventually(t, func() bool { return sc.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	bg.Stop()

	recs, err := sm.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestBackgroundScanner_DisabledWithoutScanner(t *testing.T) {
	co, _, _ := newCoordinator(t, govAllowList(t))
	bg := service.NewBackgroundScanner(nil, co, service.BackgroundConfig{Interval: time.Millisecond}, discardLogger())
	bg.Start(context.Background())
	bg.Stop()
}

// ── EventPruner ──

func TestEventPruner_PruneNow(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, st.SaveBatch(ctx, nil, []store.StatusEventRecord{
		{Key: govBSSID, From: types.StatusUnknown, To: types.StatusVerified, Reason: "assessment", OccurredAt: now.Add(-40 * 24 * time.Hour)},
		{Key: govBSSID, From: types.StatusVerified, To: types.StatusTrusted, Reason: "trust", OccurredAt: now.Add(-time.Hour)},
	}))

	p := service.NewEventPruner(st, service.PrunerConfig{RetentionDays: 30}, discardLogger())
	n, err := p.PruneNow(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	require.Len(t, st.Events(), 1)
	require.Equal(t, "trust", st.Events()[0].Reason)
}

func TestEventPruner_ZeroRetentionKeepsEverything(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	require.NoError(t, st.SaveBatch(ctx, nil, []store.StatusEventRecord{
		{Key: govBSSID, OccurredAt: time.Unix(0, 0)},
	}))

	p := service.NewEventPruner(st, service.PrunerConfig{}, discardLogger())
	n, err := p.PruneNow(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Len(t, st.Events(), 1)

	p.Start(ctx)
	p.Stop()
}

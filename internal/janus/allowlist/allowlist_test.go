package allowlist_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/allowlist"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/store/memory"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func doc(version string, entries ...types.AllowListEntry) types.AllowListDocument {
	return types.AllowListDocument{Version: version, Checksum: allowlist.Checksum(entries), Entries: entries}
}

func govEntries() []types.AllowListEntry {
	return []types.AllowListEntry{
		{BSSID: "AA:BB:CC:00:00:01", SSID: "GovWifi"},
		{BSSID: "AA:BB:CC:00:00:03", SSID: "GovWifi", Geofence: &types.Geofence{Latitude: 51.5, Longitude: -0.12, RadiusMeters: 200}},
	}
}

// ── Checksum / Build ──

func TestChecksum_OrderIndependent(t *testing.T) {
	e := govEntries()
	require.Equal(t, allowlist.Checksum(e), allowlist.Checksum([]types.AllowListEntry{e[1], e[0]}))
	require.Len(t, allowlist.Checksum(e), 64)

	moved := govEntries()
	moved[1].Geofence.RadiusMeters = 250
	require.NotEqual(t, allowlist.Checksum(e), allowlist.Checksum(moved))
}

func TestBuild_IndexesEntries(t *testing.T) {
	snap, err := allowlist.Build(doc("2026.03", govEntries()...), t0)
	require.NoError(t, err)
	require.Equal(t, 2, snap.Len())
	require.Equal(t, "2026.03", snap.Version)

	e, ok := snap.Lookup("AA:BB:CC:00:00:01", " govwifi")
	require.True(t, ok)
	require.Equal(t, "2026.03", e.Version)

	_, ok = snap.Lookup("AA:BB:CC:00:00:01", "OtherNet")
	require.False(t, ok, "an attested BSSID under another SSID is not a match")
	require.Len(t, snap.EntriesForSSID("GOVWIFI"), 2)
}

func TestBuild_NormalizesBSSIDBeforeChecksum(t *testing.T) {
	canonical := govEntries()
	d := doc("v1", canonical...)
	d.Entries = []types.AllowListEntry{
		{BSSID: "aa-bb-cc-00-00-01", SSID: "GovWifi"},
		canonical[1],
	}
	snap, err := allowlist.Build(d, t0)
	require.NoError(t, err)
	_, ok := snap.Lookup("AA:BB:CC:00:00:01", "GovWifi")
	require.True(t, ok)
}

func TestBuild_Rejects(t *testing.T) {
	_, err := allowlist.Build(doc(" ", govEntries()...), t0)
	require.ErrorIs(t, err, allowlist.ErrMissingVersion)

	bad := doc("v1", govEntries()...)
	bad.Checksum = "deadbeef"
	_, err = allowlist.Build(bad, t0)
	require.ErrorIs(t, err, allowlist.ErrChecksumMismatch)

	_, err = allowlist.Build(doc("v1", types.AllowListEntry{BSSID: "nope", SSID: "x"}), t0)
	require.ErrorIs(t, err, allowlist.ErrInvalidEntry)

	_, err = allowlist.Build(doc("v1", types.AllowListEntry{BSSID: "AA:BB:CC:00:00:09", SSID: "  "}), t0)
	require.ErrorIs(t, err, allowlist.ErrInvalidEntry)
}

// ── Store ──

func TestStore_KeepsPreviousSnapshotOnError(t *testing.T) {
	st := allowlist.NewStore(time.Hour)
	require.False(t, st.Loaded())
	require.True(t, st.IsStale(t0))
	require.Equal(t, 0, st.Current().Len())

	_, err := st.Apply(doc("v1", govEntries()...), t0)
	require.NoError(t, err)

	bad := doc("v2", govEntries()[:1]...)
	bad.Checksum = "0000"
	_, err = st.Apply(bad, t0.Add(time.Minute))
	require.Error(t, err)
	require.Equal(t, "v1", st.Current().Version)
	require.Equal(t, 2, st.Current().Len())
}

func TestStore_Staleness(t *testing.T) {
	st := allowlist.NewStore(time.Hour)
	_, err := st.Apply(doc("v1", govEntries()...), t0)
	require.NoError(t, err)

	require.False(t, st.IsStale(t0.Add(59*time.Minute)))
	require.True(t, st.IsStale(t0.Add(61*time.Minute)))

	status := st.Status(t0.Add(2 * time.Hour))
	require.True(t, status.Loaded)
	require.True(t, status.Stale)
	require.Equal(t, 2, status.Entries)

	forever := allowlist.NewStore(0)
	_, err = forever.Apply(doc("v1", govEntries()...), t0)
	require.NoError(t, err)
	require.False(t, forever.IsStale(t0.Add(365*24*time.Hour)))
}

// ── Syncer ──

type fakeSource struct {
	doc types.AllowListDocument
	err error
	n   int
}

func (f *fakeSource) Fetch(context.Context) (types.AllowListDocument, error) {
	f.n++
	return f.doc, f.err
}

func newSyncer(src allowlist.Source, cache *memory.Store) (*allowlist.Syncer, *allowlist.Store) {
	st := allowlist.NewStore(time.Hour)
	return allowlist.NewSyncer(st, src, cache, allowlist.SyncerConfig{}, log.New(io.Discard, "", 0)), st
}

func TestSyncer_AppliesAndCaches(t *testing.T) {
	ctx := context.Background()
	cache := memory.New()
	src := &fakeSource{doc: doc("v1", govEntries()...)}
	s, st := newSyncer(src, cache)

	require.NoError(t, s.SyncNow(ctx))
	require.Equal(t, "v1", st.Current().Version)

	cached, _, ok, err := cache.LoadAllowList(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v1", cached.Version)

	// Same version and checksum keeps the active snapshot.
	before := st.Current()
	require.NoError(t, s.SyncNow(ctx))
	require.Equal(t, before.Entries(), st.Current().Entries())
	require.False(t, st.Current().SyncedAt.Before(before.SyncedAt))
}

func TestSyncer_UnchangedReleaseStaysFresh(t *testing.T) {
	ctx := context.Background()
	cache := memory.New()
	src := &fakeSource{doc: doc("v1", govEntries()...)}

	clock := t0
	maxAge := 7 * 24 * time.Hour
	st := allowlist.NewStore(maxAge)
	s := allowlist.NewSyncer(st, src, cache, allowlist.SyncerConfig{
		Now: func() time.Time { return clock },
	}, log.New(io.Discard, "", 0))

	require.NoError(t, s.SyncNow(ctx))
	// The publisher leaves the release untouched for eight days of hourly syncs.
	for i := 0; i < 8*24; i++ {
		clock = clock.Add(time.Hour)
		require.NoError(t, s.SyncNow(ctx))
	}

	require.False(t, st.IsStale(clock), "stale right after a successful sync")
	require.Equal(t, clock, st.Current().SyncedAt)
	require.Equal(t, "v1", st.Current().Version)

	_, syncedAt, ok, err := cache.LoadAllowList(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, clock, syncedAt)

	// Failed syncs do not refresh it.
	src.err = errors.New("publisher down")
	clock = clock.Add(maxAge + time.Hour)
	require.Error(t, s.SyncNow(ctx))
	require.True(t, st.IsStale(clock))
}

func TestStore_Touch(t *testing.T) {
	st := allowlist.NewStore(time.Hour)
	_, ok := st.Touch(t0)
	require.False(t, ok, "nothing to refresh before the first release")

	first, err := st.Apply(doc("v1", govEntries()...), t0)
	require.NoError(t, err)
	snap, ok := st.Touch(t0.Add(2 * time.Hour))
	require.True(t, ok)
	require.Equal(t, t0.Add(2*time.Hour), snap.SyncedAt)
	require.Equal(t, t0, first.SyncedAt, "published snapshots are never mutated")
	require.False(t, st.IsStale(t0.Add(2*time.Hour)))
	_, found := st.Current().Lookup("AA:BB:CC:00:00:01", "GovWifi")
	require.True(t, found)
}

func TestSyncer_RejectedKeepsLastGood(t *testing.T) {
	ctx := context.Background()
	cache := memory.New()
	src := &fakeSource{doc: doc("v1", govEntries()...)}
	s, st := newSyncer(src, cache)
	require.NoError(t, s.SyncNow(ctx))

	tampered := doc("v2", govEntries()...)
	tampered.Entries = tampered.Entries[:1]
	src.doc = tampered
	require.ErrorIs(t, s.SyncNow(ctx), allowlist.ErrChecksumMismatch)
	require.Equal(t, "v1", st.Current().Version)

	src.err = errors.New("publisher down")
	require.Error(t, s.SyncNow(ctx))
	require.Equal(t, "v1", st.Current().Version)

	cached, _, _, _ := cache.LoadAllowList(ctx)
	require.Equal(t, "v1", cached.Version)
}

func TestSyncer_Restore(t *testing.T) {
	ctx := context.Background()
	cache := memory.New()
	require.NoError(t, cache.SaveAllowList(ctx, doc("cached", govEntries()...), t0))

	s, st := newSyncer(nil, cache)
	require.NoError(t, s.Restore(ctx))
	require.Equal(t, "cached", st.Current().Version)
	require.Equal(t, t0, st.Current().SyncedAt)

	// Without a source SyncNow leaves the restored copy alone.
	require.NoError(t, s.SyncNow(ctx))
	require.Equal(t, "cached", st.Current().Version)
}

func TestSyncer_RestoreIgnoresCorruptCache(t *testing.T) {
	ctx := context.Background()
	cache := memory.New()
	corrupt := doc("cached", govEntries()...)
	corrupt.Checksum = "bad"
	require.NoError(t, cache.SaveAllowList(ctx, corrupt, t0))

	s, st := newSyncer(nil, cache)
	require.NoError(t, s.Restore(ctx))
	require.False(t, st.Loaded())
}

func TestSyncer_StartRunsImmediately(t *testing.T) {
	src := &fakeSource{doc: doc("v1", govEntries()...)}
	st := allowlist.NewStore(time.Hour)
	s := allowlist.NewSyncer(st, src, nil, allowlist.SyncerConfig{Interval: time.Hour}, log.New(io.Discard, "", 0))

	s.Start(context.Background())
	require.Eventually(t, st.Loaded, time.Second, 5*time.Millisecond)
	s.Stop()
	require.Equal(t, 1, src.n)
}

// ── Sources ──

func TestFileSource_Fetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "allowlist.json")
	b, err := json.Marshal(doc("file", govEntries()...))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))

	got, err := (&allowlist.FileSource{Path: path}).Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, "file", got.Version)
	require.Len(t, got.Entries, 2)

	_, err = (&allowlist.FileSource{Path: filepath.Join(t.TempDir(), "missing.json")}).Fetch(context.Background())
	require.Error(t, err)
}

func TestHTTPSource_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/allowlist.json" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(doc("remote", govEntries()...))
	}))
	defer srv.Close()

	got, err := allowlist.NewHTTPSource(srv.URL+"/allowlist.json", 0).Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, "remote", got.Version)

	_, err = allowlist.NewHTTPSource(srv.URL+"/missing", 0).Fetch(context.Background())
	require.Error(t, err)
}

package sqlite_test

import (
	"context"
	"testing"
	"time"

	sqlitestore "github.com/BrandonDHaskell/Janus/server/internal/janus/store/sqlite"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

func TestAllowListCache_EmptyThenSaveThenReplace(t *testing.T) {
	conn := openTestDB(t)
	c := sqlitestore.NewAllowListCache(conn, newTestWriter(t, conn))
	ctx := context.Background()

	if _, _, ok, err := c.LoadAllowList(ctx); err != nil || ok {
		t.Fatalf("empty cache: ok=%v err=%v", ok, err)
	}

	synced := ms(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	doc := types.AllowListDocument{
		Version:  "2026.03",
		Checksum: "abc",
		Entries: []types.AllowListEntry{{
			BSSID: "AA:BB:CC:00:00:01", SSID: "GovWifi",
			Geofence: &types.Geofence{Latitude: 51.5, Longitude: -0.12, RadiusMeters: 150},
		}},
	}
	if err := c.SaveAllowList(ctx, doc, synced); err != nil {
		t.Fatalf("SaveAllowList: %v", err)
	}

	doc.Version = "2026.04"
	if err := c.SaveAllowList(ctx, doc, synced.Add(time.Hour)); err != nil {
		t.Fatalf("SaveAllowList replace: %v", err)
	}

	got, at, ok, err := c.LoadAllowList(ctx)
	if err != nil || !ok {
		t.Fatalf("LoadAllowList: ok=%v err=%v", ok, err)
	}
	if got.Version != "2026.04" || !at.Equal(synced.Add(time.Hour)) {
		t.Errorf("got version=%s synced=%v", got.Version, at)
	}
	if len(got.Entries) != 1 || got.Entries[0].Geofence == nil || got.Entries[0].Geofence.RadiusMeters != 150 {
		t.Errorf("entries = %+v", got.Entries)
	}
	if n := countRows(t, conn, "allowlist_cache"); n != 1 {
		t.Errorf("expected single cache row, got %d", n)
	}
}

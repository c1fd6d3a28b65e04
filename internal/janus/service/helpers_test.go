package service_test

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/alert"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/allowlist"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/service"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/store/memory"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

const (
	govBSSID   = "AA:BB:CC:00:00:01"
	rogueBSSID = "AA:BB:CC:00:00:02"
	homeBSSID  = "10:20:30:40:50:60"
)

func discardLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func newMachine(t *testing.T) (*service.StatusMachine, *memory.Store) {
	t.Helper()
	st := memory.New()
	return service.NewStatusMachine(st, discardLogger(), nil), st
}

func govAllowList(t *testing.T) *allowlist.Store {
	t.Helper()
	entries := []types.AllowListEntry{{BSSID: govBSSID, SSID: "GovWifi"}}
	st := allowlist.NewStore(0)
	_, err := st.Apply(types.AllowListDocument{
		Version: "test", Checksum: allowlist.Checksum(entries), Entries: entries,
	}, time.Now())
	require.NoError(t, err)
	return st
}

func govBatch() []types.Observation {
	return []types.Observation{
		{SSID: "GovWifi", BSSID: govBSSID, SignalStrength: 70, Security: types.SecurityWPA2, Band: types.Band5GHz},
		{SSID: "GovWifi", BSSID: rogueBSSID, SignalStrength: 95, Security: types.SecurityOpen, Band: types.Band2GHz},
		{SSID: "Home", BSSID: homeBSSID, SignalStrength: 60, Security: types.SecurityWPA3, Band: types.Band5GHz},
	}
}

func assessment(level types.ThreatLevel, hit bool) types.SecurityAssessment {
	score := map[types.ThreatLevel]int{
		types.ThreatLow: 90, types.ThreatMedium: 70, types.ThreatHigh: 40, types.ThreatCritical: 10,
	}[level]
	return types.SecurityAssessment{
		Score:        score,
		Grade:        types.GradeForScore(score),
		ThreatLevel:  level,
		AllowListHit: hit,
		Indicators:   []types.Indicator{},
	}
}

func update(key string, a types.SecurityAssessment, at time.Time) service.Update {
	return service.Update{Key: key, BSSID: key, SSID: "net-" + key[len(key)-2:], Assessment: a, SeenAt: at}
}

type recordingSink struct {
	mu     sync.Mutex
	alerts []alert.Alert
}

func (r *recordingSink) Publish(_ context.Context, a alert.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
	return nil
}

func (r *recordingSink) kinds() []alert.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]alert.Kind, 0, len(r.alerts))
	for _, a := range r.alerts {
		out = append(out, a.Kind)
	}
	return out
}

func (r *recordingSink) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = nil
}

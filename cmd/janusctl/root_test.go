package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Janus/server/internal/grpcapi"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/service"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

type fakeClient struct {
	actions  []string
	managed  map[string]bool
	imported *types.OverrideExport
	listReq  grpcapi.ListRequest
	scanReq  grpcapi.ScanRequest
}

func (f *fakeClient) ApplyAction(_ context.Context, target string, action types.UserAction) (types.ActionReport, error) {
	f.actions = append(f.actions, string(action)+" "+target)
	if action.IsInverse() && !f.managed[target] {
		return types.ActionReport{
			NetworkSnapshot: types.NetworkSnapshot{BSSID: target, CurrentStatus: types.StatusUnverified},
			Reason:          "network has no user override",
		}, nil
	}
	if f.managed == nil {
		f.managed = map[string]bool{}
	}
	f.managed[target] = !action.IsInverse()
	status := action.Status()
	if action.IsInverse() {
		status = types.StatusUnverified
	}
	return types.ActionReport{
		NetworkSnapshot: types.NetworkSnapshot{BSSID: target, CurrentStatus: status, IsUserManaged: !action.IsInverse()},
		Applied:         true,
	}, nil
}

func (f *fakeClient) GetNetwork(_ context.Context, target string) (types.NetworkRecord, error) {
	if target == "missing" {
		return types.NetworkRecord{}, errors.New("network not found")
	}
	return types.NetworkRecord{Key: target, SSID: "GovWifi", CurrentStatus: types.StatusVerified}, nil
}

func (f *fakeClient) ListNetworks(_ context.Context, req grpcapi.ListRequest) ([]types.NetworkSnapshot, error) {
	f.listReq = req
	score := 95
	return []types.NetworkSnapshot{{
		BSSID: "AA:BB:CC:00:00:01", SSID: "GovWifi", CurrentStatus: types.StatusVerified,
		Score: &score, Grade: types.GradeA, ThreatLevel: types.ThreatLow,
		Indicators: []string{}, LastSeen: time.Now().Add(-2 * time.Minute).UTC().Format(time.RFC3339Nano),
	}}, nil
}

func (f *fakeClient) ExportOverrides(context.Context) (types.OverrideExport, error) {
	return types.OverrideExport{FormatVersion: 1, Blocked: []types.OverrideEntry{{BSSID: "AA:BB:CC:00:00:02"}}}, nil
}

func (f *fakeClient) ImportOverrides(_ context.Context, exp types.OverrideExport) (types.ImportReport, error) {
	f.imported = &exp
	return types.ImportReport{Imported: 1, Rejected: []types.ImportRejection{{Category: "trusted", Index: 1, BSSID: "x", Reason: "invalid bssid"}}}, nil
}

func (f *fakeClient) RunScan(_ context.Context, req grpcapi.ScanRequest) (service.CycleResult, error) {
	f.scanReq = req
	return service.CycleResult{CycleID: "c-1", TotalFound: len(req.Observations), Assessed: len(req.Observations), Advisories: []string{"allowlist_stale"}}, nil
}

func run(t *testing.T, f *fakeClient, args ...string) (string, error) {
	t.Helper()
	dial := func(string) (networkClient, func() error, error) {
		return f, func() error { return nil }, nil
	}
	cmd := newRootCmd(dial)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestActionCommands(t *testing.T) {
	f := &fakeClient{}

	out, err := run(t, f, "flag", "AA:BB:CC:00:00:02")
	require.NoError(t, err)
	require.Contains(t, out, "-> flagged (user_managed=true)")

	out, err = run(t, f, "unflag", "AA:BB:CC:00:00:02")
	require.NoError(t, err)
	require.Contains(t, out, "-> unverified (user_managed=false)")

	out, err = run(t, f, "unblock", "AA:BB:CC:00:00:03")
	require.NoError(t, err)
	require.Contains(t, out, "unchanged at unverified: unblock not applied, network has no user override")
	require.NotContains(t, out, "->")
	require.Equal(t, []string{"flag AA:BB:CC:00:00:02", "unflag AA:BB:CC:00:00:02", "unblock AA:BB:CC:00:00:03"}, f.actions)

	_, err = run(t, f, "trust")
	require.Error(t, err, "target is required")
}

func TestListCommand(t *testing.T) {
	f := &fakeClient{}

	out, err := run(t, f, "list", "--nearby", "--window", "10m")
	require.NoError(t, err)
	require.True(t, f.listReq.Nearby)
	require.Equal(t, "10m0s", f.listReq.Window)
	require.Contains(t, out, "GovWifi")
	require.Contains(t, out, "95 (A)")
	require.Contains(t, out, "2 minutes ago")
}

func TestShowCommand(t *testing.T) {
	f := &fakeClient{}

	out, err := run(t, f, "show", "AA:BB:CC:00:00:01")
	require.NoError(t, err)
	require.Contains(t, out, `"current_status": "verified"`)

	_, err = run(t, f, "show", "missing")
	require.Error(t, err)
}

func TestScanCommand(t *testing.T) {
	f := &fakeClient{}
	path := filepath.Join(t.TempDir(), "batch.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"ssid":"GovWifi","bssid":"aa:bb:cc:00:00:01","signal_strength":70,"security":"wpa2"}]`), 0o600))

	out, err := run(t, f, "scan", path)
	require.NoError(t, err)
	require.True(t, f.scanReq.Manual)
	require.Len(t, f.scanReq.Observations, 1)
	require.Contains(t, out, "cycle c-1: 1 found")
	require.Contains(t, out, "advisories: allowlist_stale")

	_, err = run(t, f, "scan", "--background", path)
	require.NoError(t, err)
	require.False(t, f.scanReq.Manual)
}

func TestExportImportCommands(t *testing.T) {
	f := &fakeClient{}
	path := filepath.Join(t.TempDir(), "backup.json")

	_, err := run(t, f, "export", "-o", path)
	require.NoError(t, err)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(b), "AA:BB:CC:00:00:02")

	out, err := run(t, f, "import", path)
	require.NoError(t, err)
	require.NotNil(t, f.imported)
	require.Len(t, f.imported.Blocked, 1)
	require.True(t, strings.HasPrefix(out, "imported 1, rejected 1"))
	require.Contains(t, out, "trusted[1] x: invalid bssid")
}

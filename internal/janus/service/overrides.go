package service

import (
	"context"
	"fmt"
	"time"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/store"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

const overrideFormatVersion = 1

// Export returns every user-managed record grouped by override.
func (m *StatusMachine) Export(ctx context.Context) (types.OverrideExport, error) {
	recs, err := m.List(ctx)
	if err != nil {
		return types.OverrideExport{}, err
	}

	exp := types.OverrideExport{
		FormatVersion: overrideFormatVersion,
		ExportedAt:    m.now(),
		Trusted:       []types.OverrideEntry{},
		Flagged:       []types.OverrideEntry{},
		Blocked:       []types.OverrideEntry{},
	}
	for _, r := range recs {
		if !r.IsUserManaged {
			continue
		}
		e := types.OverrideEntry{
			BSSID:           r.Key,
			SSID:            r.SSID,
			OriginalStatus:  r.OriginalStatus,
			ActionTimestamp: r.ActionTimestamp,
		}
		switch r.CurrentStatus {
		case types.StatusTrusted:
			exp.Trusted = append(exp.Trusted, e)
		case types.StatusFlagged:
			exp.Flagged = append(exp.Flagged, e)
		case types.StatusBlocked:
			exp.Blocked = append(exp.Blocked, e)
		}
	}
	return exp, nil
}

// Import applies a backup. Malformed entries are rejected one by one and
// reported; the valid remainder is committed in a single batch.
func (m *StatusMachine) Import(ctx context.Context, exp types.OverrideExport) (types.ImportReport, error) {
	report := types.ImportReport{Rejected: []types.ImportRejection{}}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	seen := make(map[string]bool)
	var recs []types.NetworkRecord
	var events []store.StatusEventRecord

	categories := []struct {
		name    string
		status  types.NetworkStatus
		entries []types.OverrideEntry
	}{
		{"trusted", types.StatusTrusted, exp.Trusted},
		{"flagged", types.StatusFlagged, exp.Flagged},
		{"blocked", types.StatusBlocked, exp.Blocked},
	}

	for _, cat := range categories {
		for i, e := range cat.entries {
			reject := func(reason string) {
				report.Rejected = append(report.Rejected, types.ImportRejection{
					Category: cat.name, Index: i, BSSID: e.BSSID, Reason: reason,
				})
			}

			key, err := ParseTarget(e.BSSID)
			if err != nil {
				reject(fmt.Sprintf("invalid bssid: %v", err))
				continue
			}
			if seen[key] {
				reject("duplicate entry")
				continue
			}
			if e.OriginalStatus != nil && e.OriginalStatus.IsUserStatus() {
				reject(fmt.Sprintf("original_status %q is not an automatic status", *e.OriginalStatus))
				continue
			}
			if e.OriginalStatus != nil {
				if _, err := types.ParseNetworkStatus(string(*e.OriginalStatus)); err != nil {
					reject(err.Error())
					continue
				}
			}
			seen[key] = true

			rec, found, err := m.store.Get(ctx, key)
			if err != nil {
				return types.ImportReport{}, err
			}
			if !found {
				rec = newUnseenRecord(key)
				if e.SSID != "" {
					rec.SSID = e.SSID
				}
			}

			next := importOverride(rec, found, e, cat.status, now)
			if next.CurrentStatus != rec.CurrentStatus {
				events = append(events, store.StatusEventRecord{
					Key:        key,
					SSID:       next.SSID,
					From:       rec.CurrentStatus,
					To:         next.CurrentStatus,
					Reason:     reasonImport,
					OccurredAt: now,
				})
			}
			recs = append(recs, next)
			report.Imported++
		}
	}

	if len(recs) == 0 {
		return report, nil
	}
	if err := m.commit(ctx, recs, events); err != nil {
		return types.ImportReport{}, err
	}
	m.logger.Printf("overrides imported count=%d rejected=%d", report.Imported, len(report.Rejected))
	return report, nil
}

// importOverride applies an imported decision. A record already tracked on
// this device keeps its own pre-override status; the file's value is only
// used for networks never seen here.
func importOverride(rec types.NetworkRecord, found bool, e types.OverrideEntry, status types.NetworkStatus, now time.Time) types.NetworkRecord {
	next := rec.Clone()
	if !next.IsUserManaged {
		orig := next.CurrentStatus
		if !found && e.OriginalStatus != nil {
			orig = *e.OriginalStatus
		}
		next.OriginalStatus = &orig
		next.IsUserManaged = true
	}
	next.CurrentStatus = status

	ts := now
	if e.ActionTimestamp != nil && !e.ActionTimestamp.IsZero() {
		ts = e.ActionTimestamp.UTC()
	}
	next.ActionTimestamp = &ts
	return next
}

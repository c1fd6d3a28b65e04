package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/assess"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/store"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
	"github.com/BrandonDHaskell/Janus/server/internal/metrics"
)

var (
	ErrInvalidTarget = errors.New("bssid is required")
	ErrNotFound      = errors.New("network not found")
)

const (
	commitAttempts = 3
	commitBackoff  = 50 * time.Millisecond

	reasonAssessment = "assessment"
	reasonImport     = "import"
)

// StatusMachine owns the authoritative NetworkRecords. Scan cycles and user
// actions are serialized through mu so that a cycle's batch update is never
// interleaved with another writer.
type StatusMachine struct {
	mu      sync.Mutex
	store   store.NetworkStore
	logger  *log.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewStatusMachine(st store.NetworkStore, logger *log.Logger, m *metrics.Metrics) *StatusMachine {
	return &StatusMachine{
		store:   st,
		logger:  logger,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Update is one network's assessment for the current cycle.
type Update struct {
	Key        string
	BSSID      string
	SSID       string
	Assessment types.SecurityAssessment
	SeenAt     time.Time
}

// Outcome reports what a cycle did to one record.
type Outcome struct {
	Record             types.NetworkRecord
	PreviousStatus     types.NetworkStatus
	PreviousAssessment *types.SecurityAssessment
	Created            bool
}

func (o Outcome) Changed() bool { return o.PreviousStatus != o.Record.CurrentStatus }

// ApplyCycle merges one cycle's updates into the store. The whole batch is
// committed in a single SaveBatch; if ctx is cancelled before the commit
// nothing is written and the context error is returned.
func (m *StatusMachine) ApplyCycle(ctx context.Context, cycleID string, updates []Update) ([]Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	outcomes := make([]Outcome, 0, len(updates))
	recs := make([]types.NetworkRecord, 0, len(updates))
	var events []store.StatusEventRecord

	for _, u := range updates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		prev, found, err := m.store.Get(ctx, u.Key)
		if err != nil {
			return nil, err
		}

		next := reconcile(prev, found, u)
		out := Outcome{Record: next, PreviousStatus: prev.CurrentStatus, Created: !found}
		if !found {
			out.PreviousStatus = types.StatusUnknown
		} else {
			out.PreviousAssessment = prev.LastAssessment
		}
		if out.Changed() {
			events = append(events, store.StatusEventRecord{
				Key:        next.Key,
				SSID:       next.SSID,
				From:       out.PreviousStatus,
				To:         next.CurrentStatus,
				Reason:     reasonAssessment,
				CycleID:    cycleID,
				OccurredAt: u.SeenAt,
			})
		}
		outcomes = append(outcomes, out)
		recs = append(recs, next)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.commit(ctx, recs, events); err != nil {
		return nil, err
	}
	for _, ev := range events {
		m.metrics.Transition(string(ev.From), string(ev.To))
	}
	return outcomes, nil
}

// reconcile applies one assessment to a record. User-managed records keep
// their status; only the assessment snapshot and sighting time move.
func reconcile(prev types.NetworkRecord, found bool, u Update) types.NetworkRecord {
	assessment := u.Assessment
	if !found {
		return types.NetworkRecord{
			Key:            u.Key,
			BSSID:          u.BSSID,
			SSID:           u.SSID,
			CurrentStatus:  assess.StatusFor(assessment),
			FirstSeen:      u.SeenAt,
			LastSeen:       u.SeenAt,
			LastAssessment: &assessment,
		}
	}

	next := prev.Clone()
	if u.SSID != "" {
		next.SSID = u.SSID
	}
	if next.BSSID == "" {
		next.BSSID = u.BSSID
	}
	if next.FirstSeen.IsZero() {
		next.FirstSeen = u.SeenAt
	}
	if u.SeenAt.After(next.LastSeen) {
		next.LastSeen = u.SeenAt
	}
	next.LastAssessment = &assessment

	if !next.IsUserManaged {
		next.CurrentStatus = assess.StatusFor(assessment)
	}
	return next
}

// ActionResult is the record after a user action. When the action does not
// fit the record's state Applied is false, Reason says why, and the record
// is returned as it was.
type ActionResult struct {
	types.NetworkRecord
	Applied bool
	Reason  string
}

func (r ActionResult) Report() types.ActionReport {
	return types.ActionReport{NetworkSnapshot: r.Snapshot(), Applied: r.Applied, Reason: r.Reason}
}

// Apply performs a user action on the record identified by target (a BSSID
// or an "ssid:" key). Unknown targets get a fresh record seeded with
// StatusUnknown. Repeating an already-applied action, or an inverse that
// does not match the current override, writes nothing and reports why.
func (m *StatusMachine) Apply(ctx context.Context, target string, action types.UserAction) (ActionResult, error) {
	key, err := ParseTarget(target)
	if err != nil {
		return ActionResult{}, err
	}
	if _, err := types.ParseUserAction(string(action)); err != nil {
		return ActionResult{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, found, err := m.store.Get(ctx, key)
	if err != nil {
		return ActionResult{}, err
	}
	if !found {
		rec = newUnseenRecord(key)
	}

	now := m.now()
	next, reason := applyAction(rec, action, now)
	if reason != "" {
		m.logger.Printf("user_action action=%s key=%s not_applied=%q", action, key, reason)
		return ActionResult{NetworkRecord: rec, Reason: reason}, nil
	}

	ev := store.StatusEventRecord{
		Key:        next.Key,
		SSID:       next.SSID,
		From:       rec.CurrentStatus,
		To:         next.CurrentStatus,
		Reason:     string(action),
		OccurredAt: now,
	}
	if err := m.commit(ctx, []types.NetworkRecord{next}, []store.StatusEventRecord{ev}); err != nil {
		return ActionResult{}, err
	}
	m.metrics.Transition(string(ev.From), string(ev.To))
	m.logger.Printf("user_action action=%s key=%s from=%s to=%s", action, key, ev.From, ev.To)
	return ActionResult{NetworkRecord: next, Applied: true}, nil
}

func newUnseenRecord(key string) types.NetworkRecord {
	rec := types.NetworkRecord{Key: key, CurrentStatus: types.StatusUnknown}
	if !types.IsSSIDKey(key) {
		rec.BSSID = key
	} else {
		rec.SSID = strings.TrimPrefix(key, "ssid:")
	}
	return rec
}

// applyAction is the pure transition for a user action. A non-empty reason
// means the action is a no-op for the record's current state.
func applyAction(rec types.NetworkRecord, action types.UserAction, now time.Time) (types.NetworkRecord, string) {
	target := action.Status()
	next := rec.Clone()

	if action.IsInverse() {
		if !rec.IsUserManaged {
			return rec, "network has no user override"
		}
		if rec.CurrentStatus != target {
			return rec, fmt.Sprintf("network is %s, not %s", rec.CurrentStatus, target)
		}
		next.CurrentStatus = restoredStatus(rec)
		next.IsUserManaged = false
		next.OriginalStatus = nil
		next.ActionTimestamp = &now
		return next, ""
	}

	if rec.IsUserManaged && rec.CurrentStatus == target {
		return rec, fmt.Sprintf("network is already %s", target)
	}
	// Only the first override captures the automatic status; switching
	// between overrides keeps it.
	if !rec.IsUserManaged {
		orig := rec.CurrentStatus
		next.OriginalStatus = &orig
		next.IsUserManaged = true
	}
	next.CurrentStatus = target
	next.ActionTimestamp = &now
	return next, ""
}

// restoredStatus is the status a record returns to when its override is
// removed: the captured automatic status, or a recomputation from the latest
// assessment when nothing meaningful was captured.
func restoredStatus(rec types.NetworkRecord) types.NetworkStatus {
	if rec.OriginalStatus != nil && *rec.OriginalStatus != types.StatusUnknown {
		return *rec.OriginalStatus
	}
	if rec.LastAssessment != nil {
		return assess.StatusFor(*rec.LastAssessment)
	}
	return types.StatusUnknown
}

// ParseTarget canonicalizes a user-supplied network identifier.
func ParseTarget(target string) (string, error) {
	t := strings.TrimSpace(target)
	if t == "" {
		return "", ErrInvalidTarget
	}
	if strings.HasPrefix(strings.ToLower(t), "ssid:") {
		return types.NetworkKey("", t[len("ssid:"):])
	}
	return types.NormalizeBSSID(t)
}

func (m *StatusMachine) Get(ctx context.Context, target string) (types.NetworkRecord, error) {
	key, err := ParseTarget(target)
	if err != nil {
		return types.NetworkRecord{}, err
	}
	rec, found, err := m.store.Get(ctx, key)
	if err != nil {
		return types.NetworkRecord{}, err
	}
	if !found {
		return types.NetworkRecord{}, ErrNotFound
	}
	return rec, nil
}

// List returns every record, including blocked ones, ordered by key.
func (m *StatusMachine) List(ctx context.Context) ([]types.NetworkRecord, error) {
	recs, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Key < recs[j].Key })
	return recs, nil
}

// Nearby is the user-facing projection: records seen at or after since,
// excluding blocked networks.
func (m *StatusMachine) Nearby(ctx context.Context, since time.Time) ([]types.NetworkRecord, error) {
	recs, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	out := recs[:0]
	for _, r := range recs {
		if r.CurrentStatus == types.StatusBlocked || r.LastSeen.Before(since) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// ClearAll hard-deletes every record. It is the only deletion path.
func (m *StatusMachine) ClearAll(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, err := m.store.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	m.logger.Printf("records cleared count=%d", n)
	return n, nil
}

// commit writes a batch, retrying store contention. Context errors are
// returned immediately.
func (m *StatusMachine) commit(ctx context.Context, recs []types.NetworkRecord, events []store.StatusEventRecord) error {
	var err error
	for attempt := 1; attempt <= commitAttempts; attempt++ {
		if err = m.store.SaveBatch(ctx, recs, events); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.logger.Printf("commit retry attempt=%d records=%d err=%v", attempt, len(recs), err)
		if attempt == commitAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * commitBackoff):
		}
	}
	return err
}

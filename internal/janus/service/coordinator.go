package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/alert"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/allowlist"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/assess"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/detect"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/scoring"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
	"github.com/BrandonDHaskell/Janus/server/internal/metrics"
)

const (
	AdvisoryAllowListStale = "allowlist_stale"
	AdvisoryScanIncomplete = "scan_incomplete"
)

// CycleResult summarizes one scan-to-status cycle.
type CycleResult struct {
	CycleID         string                  `json:"cycle_id"`
	Manual          bool                    `json:"manual"`
	StartedAt       time.Time               `json:"started_at"`
	TotalFound      int                     `json:"total_found"`
	Assessed        int                     `json:"assessed"`
	Skipped         int                     `json:"skipped"`
	NewlySuspicious int                     `json:"newly_suspicious"`
	HighFindings    int                     `json:"high_findings"`
	ThreatsDetected int                     `json:"threats_detected"`
	SummaryAlerted  bool                    `json:"summary_alerted"`
	Advisories      []string                `json:"advisories"`
	Networks        []types.NetworkSnapshot `json:"networks"`
}

// Coordinator drives scoring, detection, aggregation and status updates for
// one observation batch at a time.
type Coordinator struct {
	allowList *allowlist.Store
	machine   *StatusMachine
	alerts    alert.Sink
	logger    *log.Logger
	metrics   *metrics.Metrics
	now       func() time.Time

	mu        sync.Mutex
	completed int
}

func NewCoordinator(al *allowlist.Store, sm *StatusMachine, sink alert.Sink, logger *log.Logger, m *metrics.Metrics) *Coordinator {
	if sink == nil {
		sink = alert.Discard{}
	}
	return &Coordinator{
		allowList: al,
		machine:   sm,
		alerts:    sink,
		logger:    logger,
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RunCycle processes one completed batch. If ctx is cancelled before the
// status commit, no record is modified and the partial assessments are
// discarded.
//
// A summary alert is only raised for manual scans after the first scan of
// the session; newly suspicious networks always raise their own alert. A
// network that stays below suspicious still alerts once for each high
// severity indicator kind it did not already carry at high severity.
func (c *Coordinator) RunCycle(ctx context.Context, batch []types.Observation, isManualScan bool) (CycleResult, error) {
	start := c.now()
	res := CycleResult{
		CycleID:    uuid.NewString(),
		Manual:     isManualScan,
		StartedAt:  start,
		TotalFound: len(batch),
		Advisories: []string{},
		Networks:   []types.NetworkSnapshot{},
	}

	updates, skipped, threats := c.assessBatch(batch, res.CycleID, start)
	res.Skipped = skipped
	res.Assessed = len(updates)
	res.ThreatsDetected = threats

	if c.allowList.IsStale(start) {
		res.Advisories = append(res.Advisories, AdvisoryAllowListStale)
	}
	if skipped > 0 {
		res.Advisories = append(res.Advisories, AdvisoryScanIncomplete)
	}

	if err := ctx.Err(); err != nil {
		c.metrics.ObserveCycle(isManualScan, "cancelled", time.Since(start))
		return CycleResult{}, err
	}

	outcomes, err := c.machine.ApplyCycle(ctx, res.CycleID, updates)
	if err != nil {
		outcome := "error"
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			outcome = "cancelled"
		}
		c.metrics.ObserveCycle(isManualScan, outcome, time.Since(start))
		return CycleResult{}, fmt.Errorf("apply cycle %s: %w", res.CycleID, err)
	}

	c.mu.Lock()
	firstOfSession := c.completed == 0
	c.completed++
	c.mu.Unlock()

	var pending []alert.Alert
	for _, o := range outcomes {
		if o.Record.CurrentStatus != types.StatusBlocked {
			res.Networks = append(res.Networks, o.Record.Snapshot())
		}
		if o.Record.IsUserManaged {
			continue
		}
		if o.Record.CurrentStatus == types.StatusSuspicious {
			if o.PreviousStatus != types.StatusSuspicious {
				res.NewlySuspicious++
				pending = append(pending, threatAlert(res.CycleID, o.Record, start))
			}
			continue
		}
		if kinds := newHighFindings(o); len(kinds) > 0 {
			res.HighFindings++
			pending = append(pending, findingAlert(res.CycleID, o.Record, kinds, start))
		}
	}

	for _, a := range pending {
		c.publish(ctx, a)
	}
	if isManualScan && !firstOfSession {
		c.publish(ctx, summaryAlert(res, start))
		res.SummaryAlerted = true
	}

	c.metrics.AddObservations(res.TotalFound, res.Skipped, res.ThreatsDetected)
	c.metrics.ObserveCycle(isManualScan, "ok", time.Since(start))
	c.logger.Printf("scan_cycle id=%s manual=%t found=%d assessed=%d skipped=%d newly_suspicious=%d high_findings=%d threats=%d",
		res.CycleID, isManualScan, res.TotalFound, res.Assessed, res.Skipped, res.NewlySuspicious, res.HighFindings, res.ThreatsDetected)
	return res, nil
}

// assessBatch runs the stateless phases against one allow-list snapshot.
func (c *Coordinator) assessBatch(batch []types.Observation, cycleID string, now time.Time) ([]Update, int, int) {
	snap := c.allowList.Current()
	degraded := snap.Len() == 0 || c.allowList.IsStale(now)

	type scored struct {
		obs types.Observation
		res scoring.Result
	}
	byKey := make(map[string]scored, len(batch))
	order := make([]string, 0, len(batch))
	valid := make([]types.Observation, 0, len(batch))
	skipped := 0

	for _, obs := range batch {
		res, err := scoring.Score(obs, snap)
		if err != nil {
			skipped++
			c.logger.Printf("malformed_observation cycle=%s bssid=%q ssid=%q err=%v", cycleID, obs.BSSID, obs.SSID, err)
			continue
		}
		valid = append(valid, obs)
		prev, seen := byKey[res.Key]
		if !seen {
			order = append(order, res.Key)
		}
		if !seen || res.SignalPercent > prev.res.SignalPercent {
			byKey[res.Key] = scored{obs: obs, res: res}
		}
	}

	detected := detect.Detect(valid, snap)

	updates := make([]Update, 0, len(order))
	threats := 0
	for _, key := range order {
		s := byKey[key]
		seenAt := s.obs.Timestamp.UTC()
		if seenAt.IsZero() {
			seenAt = now
		}
		a := assess.Assess(s.res, detected[key], assess.Options{
			AllowListDegraded: degraded,
			AssessedAt:        now,
		})
		if a.ThreatLevel.IsSevere() || a.Severity == types.SeverityHigh {
			threats++
		}
		updates = append(updates, Update{
			Key:        key,
			BSSID:      s.res.BSSID,
			SSID:       s.obs.SSID,
			Assessment: a,
			SeenAt:     seenAt,
		})
	}
	return updates, skipped, threats
}

func (c *Coordinator) publish(ctx context.Context, a alert.Alert) {
	err := c.alerts.Publish(ctx, a)
	c.metrics.Alert(string(a.Kind), err)
	if err != nil {
		c.logger.Printf("alert publish error kind=%s id=%s: %v", a.Kind, a.ID, err)
	}
}

func threatAlert(cycleID string, rec types.NetworkRecord, now time.Time) alert.Alert {
	snap := rec.Snapshot()
	name := rec.SSID
	if name == "" {
		name = "hidden network"
	}
	return alert.Alert{
		ID:        uuid.NewString(),
		Kind:      alert.KindThreat,
		CycleID:   cycleID,
		CreatedAt: now,
		Title:     fmt.Sprintf("Suspicious network %q", name),
		Message:   fmt.Sprintf("%s (%s) threat=%s indicators=%v", name, snap.BSSID, snap.ThreatLevel, snap.Indicators),
		Network:   &snap,
	}
}

// newHighFindings lists the high severity indicator kinds on the record that
// the previous assessment did not already report at high severity.
func newHighFindings(o Outcome) []types.IndicatorKind {
	a := o.Record.LastAssessment
	if a == nil || types.MaxSeverity(a.Indicators) < types.SeverityHigh {
		return nil
	}
	seen := map[types.IndicatorKind]bool{}
	if o.PreviousAssessment != nil {
		for _, in := range o.PreviousAssessment.Indicators {
			if in.Severity == types.SeverityHigh {
				seen[in.Kind] = true
			}
		}
	}
	var out []types.IndicatorKind
	for _, in := range a.Indicators {
		if in.Severity == types.SeverityHigh && !seen[in.Kind] {
			seen[in.Kind] = true
			out = append(out, in.Kind)
		}
	}
	return out
}

func findingAlert(cycleID string, rec types.NetworkRecord, kinds []types.IndicatorKind, now time.Time) alert.Alert {
	snap := rec.Snapshot()
	name := rec.SSID
	if name == "" {
		name = "hidden network"
	}
	return alert.Alert{
		ID:        uuid.NewString(),
		Kind:      alert.KindFinding,
		CycleID:   cycleID,
		CreatedAt: now,
		Title:     fmt.Sprintf("High severity finding on %q", name),
		Message:   fmt.Sprintf("%s (%s) status=%s threat=%s findings=%v", name, snap.BSSID, snap.CurrentStatus, snap.ThreatLevel, kinds),
		Network:   &snap,
	}
}

func summaryAlert(res CycleResult, now time.Time) alert.Alert {
	return alert.Alert{
		ID:        uuid.NewString(),
		Kind:      alert.KindSummary,
		CycleID:   res.CycleID,
		CreatedAt: now,
		Title:     fmt.Sprintf("Scan complete: %d networks, %d threats", res.TotalFound, res.ThreatsDetected),
		Message: fmt.Sprintf("found=%d newly_suspicious=%d high_findings=%d threats=%d",
			res.TotalFound, res.NewlySuspicious, res.HighFindings, res.ThreatsDetected),
		Summary: &alert.Summary{
			TotalFound:      res.TotalFound,
			NewlySuspicious: res.NewlySuspicious,
			HighFindings:    res.HighFindings,
			ThreatsDetected: res.ThreatsDetected,
		},
	}
}

package assess_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/assess"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/scoring"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

var at = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func indicator(kind types.IndicatorKind, sev types.Severity) types.Indicator {
	return types.Indicator{Kind: kind, Severity: sev}
}

func TestAssess_Penalties(t *testing.T) {
	res := scoring.Result{Key: "k", Score: 85}
	a := assess.Assess(res, []types.Indicator{
		indicator(types.IndicatorDuplicateUntrustedBSSID, types.SeverityHigh),
		indicator(types.IndicatorSharedVendorOUI, types.SeverityLow),
	}, assess.Options{AssessedAt: at})

	require.Equal(t, 50, a.Score)
	require.Equal(t, types.SeverityHigh, a.Severity)
	require.Equal(t, types.GradeD, a.Grade)
	require.Equal(t, types.ThreatHigh, a.ThreatLevel)
	require.Len(t, a.Indicators, 2)
	require.Equal(t, at, a.AssessedAt)
}

func TestAssess_ScoreFloorsAtZero(t *testing.T) {
	res := scoring.Result{Score: 30, Indicators: []types.Indicator{
		indicator(types.IndicatorSignalAnomaly, types.SeverityMedium),
	}}
	a := assess.Assess(res, []types.Indicator{
		indicator(types.IndicatorDuplicateUntrustedBSSID, types.SeverityHigh),
		indicator(types.IndicatorSecurityDowngrade, types.SeverityHigh),
		indicator(types.IndicatorSharedVendorOUI, types.SeverityLow),
	}, assess.Options{AssessedAt: at})

	require.Equal(t, 0, a.Score)
	require.Equal(t, types.ThreatCritical, a.ThreatLevel)
	require.Equal(t, types.GradeF, a.Grade)
	// Scorer indicators come first and are not penalized twice.
	require.Equal(t, types.IndicatorSignalAnomaly, a.Indicators[0].Kind)
	require.Len(t, a.Indicators, 4)
}

func TestAssess_SeverityIsMaxAcrossIndicators(t *testing.T) {
	res := scoring.Result{Score: 100, Indicators: []types.Indicator{
		indicator(types.IndicatorSignalAnomaly, types.SeverityMedium),
	}}
	a := assess.Assess(res, []types.Indicator{
		indicator(types.IndicatorSharedVendorOUI, types.SeverityLow),
	}, assess.Options{AssessedAt: at})
	require.Equal(t, types.SeverityMedium, a.Severity)

	clean := assess.Assess(scoring.Result{Score: 90, AllowListHit: true}, nil, assess.Options{AssessedAt: at})
	require.Equal(t, types.SeverityNone, clean.Severity)
}

func TestAssess_OnlyDetectorKindsArePenalized(t *testing.T) {
	// A scorer indicator routed through the detected slice is already priced in.
	res := scoring.Result{Score: 70}
	a := assess.Assess(res, []types.Indicator{
		indicator(types.IndicatorSignalAnomaly, types.SeverityMedium),
	}, assess.Options{AssessedAt: at})

	require.Equal(t, 70, a.Score)
	require.Len(t, a.Indicators, 1)
	require.InDelta(t, 0.5, a.Confidence, 1e-9, "no detector finding, no detector evidence")
}

func TestAssess_Confidence(t *testing.T) {
	detected := []types.Indicator{indicator(types.IndicatorDuplicateNoAllowList, types.SeverityMedium)}

	for _, tc := range []struct {
		name     string
		res      scoring.Result
		detected []types.Indicator
		degraded bool
		want     float64
	}{
		{"no evidence", scoring.Result{Score: 60}, nil, false, 0.5},
		{"allow-list hit", scoring.Result{Score: 90, AllowListHit: true}, nil, false, 0.7},
		{"detector", scoring.Result{Score: 60}, detected, false, 0.7},
		{"all evidence", scoring.Result{Score: 90, AllowListHit: true, SignalEvidence: true}, detected, false, 1.0},
		{"degraded", scoring.Result{Score: 60}, detected, true, 0.5},
		{"degraded capped first", scoring.Result{AllowListHit: true, SignalEvidence: true}, detected, true, 0.8},
		{"degraded baseline", scoring.Result{Score: 60}, nil, true, 0.3},
	} {
		t.Run(tc.name, func(t *testing.T) {
			a := assess.Assess(tc.res, tc.detected, assess.Options{AllowListDegraded: tc.degraded, AssessedAt: at})
			require.InDelta(t, tc.want, a.Confidence, 1e-9)
		})
	}
}

func TestStatusFor(t *testing.T) {
	require.Equal(t, types.StatusVerified, assess.StatusFor(types.SecurityAssessment{
		ThreatLevel: types.ThreatLow, AllowListHit: true,
	}))
	require.Equal(t, types.StatusUnverified, assess.StatusFor(types.SecurityAssessment{
		ThreatLevel: types.ThreatLow, AllowListHit: true,
		Indicators: []types.Indicator{indicator(types.IndicatorSharedVendorOUI, types.SeverityLow)},
	}))
	require.Equal(t, types.StatusUnverified, assess.StatusFor(types.SecurityAssessment{ThreatLevel: types.ThreatMedium}))
	require.Equal(t, types.StatusSuspicious, assess.StatusFor(types.SecurityAssessment{ThreatLevel: types.ThreatHigh}))
	require.Equal(t, types.StatusSuspicious, assess.StatusFor(types.SecurityAssessment{
		ThreatLevel: types.ThreatCritical, AllowListHit: true,
	}))
}

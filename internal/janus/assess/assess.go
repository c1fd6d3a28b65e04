// Package assess combines per-observation scores with cross-network findings
// into one SecurityAssessment per network.
package assess

import (
	"time"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/scoring"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

const (
	baseConfidence     = 0.5
	evidenceConfidence = 0.2
	degradedPenalty    = 0.2
	minConfidence      = 0.1
)

// Options carries cycle-wide context for an assessment.
type Options struct {
	// AllowListDegraded is set when the allow-list is missing or stale, so
	// allow-list corroboration cannot be trusted at full weight.
	AllowListDegraded bool
	AssessedAt        time.Time
}

// Assess folds detector indicators into the scoring result. Each detector
// indicator deducts its severity penalty from the score (floor 0). Scorer
// kinds passed in detected are kept but already priced into res.Score.
func Assess(res scoring.Result, detected []types.Indicator, opt Options) types.SecurityAssessment {
	score := res.Score
	findings := 0
	for _, in := range detected {
		if !in.Kind.FromDetector() {
			continue
		}
		score -= in.Severity.Penalty()
		findings++
	}
	if score < 0 {
		score = 0
	}

	indicators := make([]types.Indicator, 0, len(res.Indicators)+len(detected))
	indicators = append(indicators, res.Indicators...)
	indicators = append(indicators, detected...)

	return types.SecurityAssessment{
		Score:        score,
		Grade:        types.GradeForScore(score),
		ThreatLevel:  types.ThreatLevelForScore(score),
		Confidence:   confidence(res, findings > 0, opt.AllowListDegraded),
		Indicators:   indicators,
		Severity:     types.MaxSeverity(indicators),
		AllowListHit: res.AllowListHit,
		AssessedAt:   opt.AssessedAt.UTC(),
	}
}

// confidence counts independent kinds of evidence, not indicator volume.
func confidence(res scoring.Result, detectorFinding bool, degraded bool) float64 {
	c := baseConfidence
	if res.AllowListHit {
		c += evidenceConfidence
	}
	if detectorFinding {
		c += evidenceConfidence
	}
	if res.SignalEvidence {
		c += evidenceConfidence
	}
	if c > 1.0 {
		c = 1.0
	}
	if degraded {
		c -= degradedPenalty
		if c < minConfidence {
			c = minConfidence
		}
	}
	return round2(c)
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

// StatusFor maps an assessment onto the automatic status set.
func StatusFor(a types.SecurityAssessment) types.NetworkStatus {
	switch {
	case a.ThreatLevel.IsSevere():
		return types.StatusSuspicious
	case a.AllowListHit && len(a.Indicators) == 0:
		return types.StatusVerified
	default:
		return types.StatusUnverified
	}
}

package types

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidStatus = errors.New("invalid network status")

type NetworkStatus string

const (
	StatusUnknown    NetworkStatus = "unknown"
	StatusVerified   NetworkStatus = "verified"
	StatusUnverified NetworkStatus = "unverified"
	StatusTrusted    NetworkStatus = "trusted"
	StatusSuspicious NetworkStatus = "suspicious"
	StatusFlagged    NetworkStatus = "flagged"
	StatusBlocked    NetworkStatus = "blocked"
)

// IsUserStatus reports whether s can only be reached through a user action.
func (s NetworkStatus) IsUserStatus() bool {
	return s == StatusTrusted || s == StatusFlagged || s == StatusBlocked
}

// IsAutomatic reports whether s is produced by assessment.
func (s NetworkStatus) IsAutomatic() bool {
	return s == StatusVerified || s == StatusUnverified || s == StatusSuspicious
}

func ParseNetworkStatus(s string) (NetworkStatus, error) {
	st := NetworkStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusUnknown, StatusVerified, StatusUnverified, StatusTrusted,
		StatusSuspicious, StatusFlagged, StatusBlocked:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

type ThreatLevel string

const (
	ThreatLow      ThreatLevel = "low"
	ThreatMedium   ThreatLevel = "medium"
	ThreatHigh     ThreatLevel = "high"
	ThreatCritical ThreatLevel = "critical"
)

// ThreatLevelForScore buckets a final score: >=80 low, 60-79 medium,
// 30-59 high, <30 critical.
func ThreatLevelForScore(score int) ThreatLevel {
	switch {
	case score >= 80:
		return ThreatLow
	case score >= 60:
		return ThreatMedium
	case score >= 30:
		return ThreatHigh
	default:
		return ThreatCritical
	}
}

func (t ThreatLevel) IsSevere() bool {
	return t == ThreatHigh || t == ThreatCritical
}

type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

func GradeForScore(score int) Grade {
	switch {
	case score >= 90:
		return GradeA
	case score >= 80:
		return GradeB
	case score >= 65:
		return GradeC
	case score >= 50:
		return GradeD
	default:
		return GradeF
	}
}

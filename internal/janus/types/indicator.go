package types

type Severity int

const (
	SeverityNone Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	default:
		return "none"
	}
}

func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Severity) UnmarshalText(b []byte) error {
	switch string(b) {
	case "low":
		*s = SeverityLow
	case "medium":
		*s = SeverityMedium
	case "high":
		*s = SeverityHigh
	default:
		*s = SeverityNone
	}
	return nil
}

// Penalty is the score deduction applied by the aggregator.
func (s Severity) Penalty() int {
	switch s {
	case SeverityHigh:
		return 30
	case SeverityMedium:
		return 15
	case SeverityLow:
		return 5
	default:
		return 0
	}
}

// IndicatorKind is the closed set of findings the engine can produce.
type IndicatorKind string

const (
	IndicatorSignalAnomaly           IndicatorKind = "signal_anomaly"
	IndicatorDuplicateUntrustedBSSID IndicatorKind = "duplicate_ssid_untrusted_bssid"
	IndicatorDuplicateNoAllowList    IndicatorKind = "duplicate_ssid_no_whitelist_match"
	IndicatorSecurityDowngrade       IndicatorKind = "security_downgrade"
	IndicatorSharedVendorOUI         IndicatorKind = "shared_vendor_oui"
)

// FromDetector reports whether the kind is produced by cross-network
// detection rather than by per-observation scoring.
func (k IndicatorKind) FromDetector() bool {
	switch k {
	case IndicatorDuplicateUntrustedBSSID, IndicatorDuplicateNoAllowList,
		IndicatorSecurityDowngrade, IndicatorSharedVendorOUI:
		return true
	case IndicatorSignalAnomaly:
		return false
	}
	return false
}

func (k IndicatorKind) Valid() bool {
	switch k {
	case IndicatorSignalAnomaly, IndicatorDuplicateUntrustedBSSID, IndicatorDuplicateNoAllowList,
		IndicatorSecurityDowngrade, IndicatorSharedVendorOUI:
		return true
	}
	return false
}

// Evidence is the payload behind an indicator. Fields not relevant to the
// indicator kind are left zero.
type Evidence struct {
	SSID            string           `json:"ssid,omitempty"`
	RelatedBSSID    string           `json:"related_bssid,omitempty"`
	SignalPercent   int              `json:"signal_percent,omitempty"`
	Protocol        SecurityProtocol `json:"protocol,omitempty"`
	RelatedProtocol SecurityProtocol `json:"related_protocol,omitempty"`
	OUI             string           `json:"oui,omitempty"`
}

type Indicator struct {
	Kind     IndicatorKind `json:"kind"`
	Severity Severity      `json:"severity"`
	Evidence Evidence      `json:"evidence"`
}

// MaxSeverity is the effective severity of a set of indicators.
func MaxSeverity(ins []Indicator) Severity {
	max := SeverityNone
	for _, in := range ins {
		if in.Severity > max {
			max = in.Severity
		}
	}
	return max
}

func IndicatorNames(ins []Indicator) []string {
	out := make([]string, 0, len(ins))
	for _, in := range ins {
		out = append(out, string(in.Kind))
	}
	return out
}

func HasIndicator(ins []Indicator, kind IndicatorKind) bool {
	for _, in := range ins {
		if in.Kind == kind {
			return true
		}
	}
	return false
}

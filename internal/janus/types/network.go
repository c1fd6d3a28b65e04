package types

import "time"

type SecurityAssessment struct {
	Score        int         `json:"score"`
	Grade        Grade       `json:"grade"`
	ThreatLevel  ThreatLevel `json:"threat_level"`
	Confidence   float64     `json:"confidence"`
	Indicators   []Indicator `json:"indicators"`
	Severity     Severity    `json:"severity"` // max over Indicators
	AllowListHit bool        `json:"allow_list_hit"`
	AssessedAt   time.Time   `json:"assessed_at"`
}

// NetworkRecord is the persisted, authoritative state of one access point.
type NetworkRecord struct {
	Key             string              `json:"key"`
	BSSID           string              `json:"bssid,omitempty"`
	SSID            string              `json:"ssid"`
	CurrentStatus   NetworkStatus       `json:"current_status"`
	OriginalStatus  *NetworkStatus      `json:"original_status,omitempty"`
	IsUserManaged   bool                `json:"is_user_managed"`
	FirstSeen       time.Time           `json:"first_seen"`
	LastSeen        time.Time           `json:"last_seen"`
	LastAssessment  *SecurityAssessment `json:"last_assessment,omitempty"`
	ActionTimestamp *time.Time          `json:"action_timestamp,omitempty"`
}

// NetworkSnapshot is the export shape consumed by presentation layers and
// alert sinks.
type NetworkSnapshot struct {
	BSSID         string        `json:"bssid"`
	SSID          string        `json:"ssid"`
	CurrentStatus NetworkStatus `json:"current_status"`
	IsUserManaged bool          `json:"is_user_managed"`
	Score         *int          `json:"score,omitempty"`
	Grade         Grade         `json:"grade,omitempty"`
	ThreatLevel   ThreatLevel   `json:"threat_level,omitempty"`
	Confidence    float64       `json:"confidence,omitempty"`
	Severity      Severity      `json:"severity,omitempty"`
	Indicators    []string      `json:"indicators"`
	LastSeen      string        `json:"last_seen,omitempty"`
}

// ActionReport answers a user action. Applied is false when the action did
// not fit the network's state; the snapshot is then the unchanged record.
type ActionReport struct {
	NetworkSnapshot
	Applied bool   `json:"applied"`
	Reason  string `json:"reason,omitempty"`
}

func (r NetworkRecord) Snapshot() NetworkSnapshot {
	s := NetworkSnapshot{
		BSSID:         r.Key,
		SSID:          r.SSID,
		CurrentStatus: r.CurrentStatus,
		IsUserManaged: r.IsUserManaged,
		Indicators:    []string{},
	}
	if r.BSSID != "" {
		s.BSSID = r.BSSID
	}
	if !r.LastSeen.IsZero() {
		s.LastSeen = r.LastSeen.UTC().Format(time.RFC3339Nano)
	}
	if a := r.LastAssessment; a != nil {
		score := a.Score
		s.Score = &score
		s.Grade = a.Grade
		s.ThreatLevel = a.ThreatLevel
		s.Confidence = a.Confidence
		s.Severity = MaxSeverity(a.Indicators)
		s.Indicators = IndicatorNames(a.Indicators)
	}
	return s
}

// Clone returns a deep copy so callers can mutate without aliasing store state.
func (r NetworkRecord) Clone() NetworkRecord {
	out := r
	if r.OriginalStatus != nil {
		st := *r.OriginalStatus
		out.OriginalStatus = &st
	}
	if r.ActionTimestamp != nil {
		ts := *r.ActionTimestamp
		out.ActionTimestamp = &ts
	}
	if r.LastAssessment != nil {
		a := *r.LastAssessment
		a.Indicators = append([]Indicator(nil), r.LastAssessment.Indicators...)
		out.LastAssessment = &a
	}
	return out
}

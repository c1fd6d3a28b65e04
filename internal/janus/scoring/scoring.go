// Package scoring turns a single observation into a numeric security score.
package scoring

import (
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

const (
	baseScore      = 50
	allowListFloor = 90

	// Signal bands on the normalized 0..100 scale.
	excellentSignal   = 75
	goodSignal        = 50
	fairSignal        = 25
	implausibleSignal = 90
)

// AllowList is the read side of the allow-list the scorer needs.
type AllowList interface {
	Lookup(bssid, ssid string) (types.AllowListEntry, bool)
	EntriesForSSID(ssid string) []types.AllowListEntry
}

type SignalBand string

const (
	SignalExcellent SignalBand = "excellent"
	SignalGood      SignalBand = "good"
	SignalFair      SignalBand = "fair"
	SignalPoor      SignalBand = "poor"
)

func ClassifySignal(percent int) SignalBand {
	switch {
	case percent >= excellentSignal:
		return SignalExcellent
	case percent >= goodSignal:
		return SignalGood
	case percent >= fairSignal:
		return SignalFair
	default:
		return SignalPoor
	}
}

// Result is the scorer's verdict for one observation.
type Result struct {
	Key           string
	BSSID         string
	Score         int
	Indicators    []types.Indicator
	AllowListHit  bool
	SignalPercent int
	Signal        SignalBand

	// SignalEvidence is set when the signal reading was checked against an
	// attested location (either confirmed or found anomalous).
	SignalEvidence bool
}

// Score evaluates obs against the allow-list. It is deterministic and has no
// side effects. The only error is types.ErrInvalidBSSID or
// types.ErrMalformedObservation when the observation cannot be keyed.
func Score(obs types.Observation, al AllowList) (Result, error) {
	key, err := types.NetworkKey(obs.BSSID, obs.SSID)
	if err != nil {
		return Result{}, err
	}

	res := Result{Key: key}
	if !types.IsSSIDKey(key) {
		res.BSSID = key
	}
	res.SignalPercent = types.SignalPercent(obs.SignalStrength)
	res.Signal = ClassifySignal(res.SignalPercent)

	score := baseScore + protocolContribution(obs.Security) + bandContribution(obs.Band)

	if res.BSSID != "" {
		if entry, ok := al.Lookup(res.BSSID, obs.SSID); ok {
			score += signalContribution(res.Signal)
			res.AllowListHit = true
			res.SignalEvidence = entry.Geofence != nil && obs.HasLocation() &&
				entry.Geofence.Contains(*obs.Latitude, *obs.Longitude)
			res.Score = max(allowListFloor, clamp(score))
			return res, nil
		}
	}

	switch {
	case res.Signal == SignalExcellent && res.SignalPercent >= implausibleSignal && impersonatesAttestedSSID(obs, al):
		res.SignalEvidence = true
		res.Indicators = append(res.Indicators, types.Indicator{
			Kind:     types.IndicatorSignalAnomaly,
			Severity: types.SeverityMedium,
			Evidence: types.Evidence{
				SSID:          obs.SSID,
				SignalPercent: res.SignalPercent,
			},
		})
	default:
		score += signalContribution(res.Signal)
	}

	res.Score = clamp(score)
	return res, nil
}

// impersonatesAttestedSSID reports whether obs broadcasts an SSID attested
// for other radios, none of which is fenced around the observer.
func impersonatesAttestedSSID(obs types.Observation, al AllowList) bool {
	entries := al.EntriesForSSID(obs.SSID)
	if len(entries) == 0 {
		return false
	}
	if !obs.HasLocation() {
		return true
	}
	for _, e := range entries {
		if e.Geofence != nil && e.Geofence.Contains(*obs.Latitude, *obs.Longitude) {
			return false
		}
	}
	return true
}

func protocolContribution(p types.SecurityProtocol) int {
	switch p {
	case types.SecurityWPA3:
		return 30
	case types.SecurityWPA2:
		return 25
	case types.SecurityWPA:
		return 15
	case types.SecurityWEP:
		return 5
	default:
		return -20
	}
}

func bandContribution(b types.FrequencyBand) int {
	if b == types.Band5GHz || b == types.Band6GHz {
		return 10
	}
	return 0
}

func signalContribution(b SignalBand) int {
	switch b {
	case SignalExcellent:
		return 10
	case SignalPoor:
		return -5
	default:
		return 0
	}
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

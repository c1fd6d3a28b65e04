package types

import (
	"fmt"
	"strings"
	"time"
)

type SecurityProtocol string

const (
	SecurityOpen SecurityProtocol = "open"
	SecurityWEP  SecurityProtocol = "wep"
	SecurityWPA  SecurityProtocol = "wpa"
	SecurityWPA2 SecurityProtocol = "wpa2"
	SecurityWPA3 SecurityProtocol = "wpa3"
)

// Rank orders protocols from weakest (open) to strongest (WPA3).
// Unrecognized values rank below open.
func (p SecurityProtocol) Rank() int {
	switch p {
	case SecurityOpen:
		return 0
	case SecurityWEP:
		return 1
	case SecurityWPA:
		return 2
	case SecurityWPA2:
		return 3
	case SecurityWPA3:
		return 4
	default:
		return -1
	}
}

func (p SecurityProtocol) Valid() bool { return p.Rank() >= 0 }

// ParseSecurityProtocol accepts the scanner spellings ("WPA2", "wpa2-psk",
// "none", ...) and maps them onto the closed protocol set.
func ParseSecurityProtocol(s string) (SecurityProtocol, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.NewReplacer("-", "", "_", "", " ", "").Replace(v)
	switch {
	case v == "" || v == "open" || v == "none" || v == "ess":
		return SecurityOpen, nil
	case strings.HasPrefix(v, "wpa3") || strings.HasPrefix(v, "sae"):
		return SecurityWPA3, nil
	case strings.HasPrefix(v, "wpa2") || strings.HasPrefix(v, "rsn"):
		return SecurityWPA2, nil
	case strings.HasPrefix(v, "wpa"):
		return SecurityWPA, nil
	case strings.HasPrefix(v, "wep"):
		return SecurityWEP, nil
	}
	return "", fmt.Errorf("unknown security protocol %q", s)
}

// UnmarshalText normalizes scanner spellings. Unrecognized values are kept
// lower-cased and rank as unknown rather than failing the whole batch.
func (p *SecurityProtocol) UnmarshalText(b []byte) error {
	v, err := ParseSecurityProtocol(string(b))
	if err != nil {
		*p = SecurityProtocol(strings.ToLower(strings.TrimSpace(string(b))))
		return nil
	}
	*p = v
	return nil
}

type FrequencyBand string

const (
	Band2GHz    FrequencyBand = "2.4GHz"
	Band5GHz    FrequencyBand = "5GHz"
	Band6GHz    FrequencyBand = "6GHz"
	BandUnknown FrequencyBand = "unknown"
)

// ParseFrequencyBand is fail-soft: anything it cannot place is BandUnknown.
func ParseFrequencyBand(s string) FrequencyBand {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.TrimSuffix(strings.TrimSuffix(v, "ghz"), " ")
	switch v {
	case "2.4", "2":
		return Band2GHz
	case "5":
		return Band5GHz
	case "6":
		return Band6GHz
	}
	return BandUnknown
}

func (b *FrequencyBand) UnmarshalText(text []byte) error {
	*b = ParseFrequencyBand(string(text))
	return nil
}

// BandForFrequency maps a channel center frequency in MHz to its band.
func BandForFrequency(mhz int) FrequencyBand {
	switch {
	case mhz >= 2400 && mhz < 2500:
		return Band2GHz
	case mhz >= 5150 && mhz < 5925:
		return Band5GHz
	case mhz >= 5925 && mhz <= 7125:
		return Band6GHz
	}
	return BandUnknown
}

// Observation is one scan sighting of one access point. Immutable once
// produced by the scanner.
type Observation struct {
	SSID           string           `json:"ssid"`
	BSSID          string           `json:"bssid"`
	SignalStrength int              `json:"signal_strength"` // 0..100 percent or negative dBm
	Security       SecurityProtocol `json:"security"`
	Band           FrequencyBand    `json:"band,omitempty"`
	Timestamp      time.Time        `json:"timestamp"`
	Latitude       *float64         `json:"latitude,omitempty"`
	Longitude      *float64         `json:"longitude,omitempty"`
}

func (o Observation) HasLocation() bool {
	return o.Latitude != nil && o.Longitude != nil
}

// SignalPercent normalizes a vendor signal reading to 0..100. Negative values
// are treated as dBm and mapped linearly from -100 dBm (0) to -50 dBm (100).
func SignalPercent(raw int) int {
	if raw < 0 {
		p := 2 * (raw + 100)
		return clampPercent(p)
	}
	return clampPercent(raw)
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

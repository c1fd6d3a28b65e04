package types

import (
	"errors"
	"strings"
	"unicode/utf8"
)

var (
	ErrInvalidBSSID         = errors.New("bssid is malformed")
	ErrMalformedObservation = errors.New("observation has neither bssid nor ssid")
	ErrInvalidSSID          = errors.New("ssid is not valid UTF-8")
)

const ssidKeyPrefix = "ssid:"

// NormalizeBSSID strips any separators and re-renders the address in
// canonical upper-case colon-hex form ("AA:BB:CC:DD:EE:FF").
func NormalizeBSSID(s string) (string, error) {
	var hex strings.Builder
	hex.Grow(12)
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r == ':' || r == '-' || r == '.' || r == ' ':
			continue
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
			hex.WriteRune(r)
		default:
			return "", ErrInvalidBSSID
		}
	}
	h := strings.ToUpper(hex.String())
	if len(h) != 12 {
		return "", ErrInvalidBSSID
	}

	var out strings.Builder
	out.Grow(17)
	for i := 0; i < 12; i += 2 {
		if i > 0 {
			out.WriteByte(':')
		}
		out.WriteString(h[i : i+2])
	}
	return out.String(), nil
}

// OUI returns the vendor prefix (first three octets) of a canonical BSSID.
func OUI(bssid string) string {
	if len(bssid) < 8 {
		return ""
	}
	return bssid[:8]
}

// NormalizeSSID case-folds and trims an SSID for grouping and lookups.
func NormalizeSSID(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NetworkKey identifies a NetworkRecord: the canonical BSSID, or
// "ssid:<normalized ssid>" when the scanner did not report one.
func NetworkKey(bssid, ssid string) (string, error) {
	if !utf8.ValidString(ssid) {
		return "", ErrInvalidSSID
	}
	if strings.TrimSpace(bssid) != "" {
		return NormalizeBSSID(bssid)
	}
	n := NormalizeSSID(ssid)
	if n == "" {
		return "", ErrMalformedObservation
	}
	return ssidKeyPrefix + n, nil
}

// IsSSIDKey reports whether key was derived from an SSID fallback.
func IsSSIDKey(key string) bool {
	return strings.HasPrefix(key, ssidKeyPrefix)
}

// Package detect finds evil-twin and downgrade patterns across one scan batch.
package detect

import (
	"sort"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

// AllowList is the read side of the allow-list the detector needs.
type AllowList interface {
	Lookup(bssid, ssid string) (types.AllowListEntry, bool)
}

type member struct {
	key     string
	bssid   string
	obs     types.Observation
	percent int
}

// Detect groups batch by normalized SSID and returns the cross-network
// indicators per network key. Hidden SSIDs and unkeyable observations are
// ignored. Runs in O(n log n).
func Detect(batch []types.Observation, al AllowList) map[string][]types.Indicator {
	groups := make(map[string]map[string]member)
	for _, obs := range batch {
		ssid := types.NormalizeSSID(obs.SSID)
		if ssid == "" {
			continue
		}
		key, err := types.NetworkKey(obs.BSSID, obs.SSID)
		if err != nil {
			continue
		}
		m := member{key: key, obs: obs, percent: types.SignalPercent(obs.SignalStrength)}
		if !types.IsSSIDKey(key) {
			m.bssid = key
		}

		g, ok := groups[ssid]
		if !ok {
			g = make(map[string]member)
			groups[ssid] = g
		}
		// Repeated sightings of one radio in a batch collapse to the strongest.
		if prev, seen := g[key]; !seen || m.percent > prev.percent {
			g[key] = m
		}
	}

	ssids := make([]string, 0, len(groups))
	for ssid := range groups {
		ssids = append(ssids, ssid)
	}
	sort.Strings(ssids)

	out := make(map[string][]types.Indicator)
	for _, ssid := range ssids {
		g := groups[ssid]
		if len(g) < 2 {
			continue
		}
		members := make([]member, 0, len(g))
		for _, m := range g {
			members = append(members, m)
		}
		sort.Slice(members, func(i, j int) bool { return members[i].key < members[j].key })

		detectGroup(members, al, out)
	}
	return out
}

func detectGroup(members []member, al AllowList, out map[string][]types.Indicator) {
	var trusted []member
	isTrusted := make(map[string]bool, len(members))
	for _, m := range members {
		if m.bssid == "" {
			continue
		}
		if _, ok := al.Lookup(m.bssid, m.obs.SSID); ok {
			trusted = append(trusted, m)
			isTrusted[m.key] = true
		}
	}

	if len(trusted) > 0 {
		for _, m := range members {
			if isTrusted[m.key] {
				continue
			}
			out[m.key] = append(out[m.key], types.Indicator{
				Kind:     types.IndicatorDuplicateUntrustedBSSID,
				Severity: proximitySeverity(m.percent),
				Evidence: types.Evidence{
					SSID:          m.obs.SSID,
					RelatedBSSID:  trusted[0].bssid,
					SignalPercent: m.percent,
				},
			})
		}
	} else {
		for _, m := range members {
			out[m.key] = append(out[m.key], types.Indicator{
				Kind:     types.IndicatorDuplicateNoAllowList,
				Severity: types.SeverityMedium,
				Evidence: types.Evidence{SSID: m.obs.SSID},
			})
		}
	}

	strongest := members[0]
	for _, m := range members[1:] {
		if m.obs.Security.Rank() > strongest.obs.Security.Rank() {
			strongest = m
		}
	}
	for _, m := range members {
		if m.obs.Security.Rank() >= strongest.obs.Security.Rank() {
			continue
		}
		out[m.key] = append(out[m.key], types.Indicator{
			Kind:     types.IndicatorSecurityDowngrade,
			Severity: types.SeverityHigh,
			Evidence: types.Evidence{
				SSID:            m.obs.SSID,
				RelatedBSSID:    strongest.bssid,
				Protocol:        m.obs.Security,
				RelatedProtocol: strongest.obs.Security,
			},
		})
	}

	// Shared vendor prefix is corroboration only; it stays low severity.
	if len(trusted) == 1 {
		oui := types.OUI(trusted[0].bssid)
		for _, m := range members {
			if isTrusted[m.key] || m.bssid == "" || types.OUI(m.bssid) != oui {
				continue
			}
			out[m.key] = append(out[m.key], types.Indicator{
				Kind:     types.IndicatorSharedVendorOUI,
				Severity: types.SeverityLow,
				Evidence: types.Evidence{
					SSID:         m.obs.SSID,
					RelatedBSSID: trusted[0].bssid,
					OUI:          oui,
				},
			})
		}
	}
}

// proximitySeverity grows with the impostor's signal: a stronger signal
// means the radio is close to the victim.
func proximitySeverity(percent int) types.Severity {
	switch {
	case percent >= 70:
		return types.SeverityHigh
	case percent >= 40:
		return types.SeverityMedium
	default:
		return types.SeverityLow
	}
}

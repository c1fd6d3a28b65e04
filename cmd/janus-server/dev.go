package main

import (
	"github.com/BrandonDHaskell/Janus/server/internal/janus/allowlist"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

// devAllowList is seeded into an empty cache in dev so the engine has
// attested networks without a publisher.
func devAllowList() types.AllowListDocument {
	entries := []types.AllowListEntry{
		{BSSID: "AA:BB:CC:00:00:01", SSID: "GovWifi",
			Geofence: &types.Geofence{Latitude: 51.5034, Longitude: -0.1276, RadiusMeters: 200}},
		{BSSID: "AA:BB:CC:00:00:03", SSID: "GovWifi",
			Geofence: &types.Geofence{Latitude: 51.5014, Longitude: -0.1419, RadiusMeters: 200}},
		{BSSID: "DE:AD:BE:EF:00:01", SSID: "CityLibrary-Public"},
	}
	return types.AllowListDocument{
		Version:  "dev-1",
		Checksum: allowlist.Checksum(entries),
		Entries:  entries,
	}
}

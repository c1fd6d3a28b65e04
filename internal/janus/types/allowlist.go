package types

import "math"

const earthRadiusMeters = 6371000.0

// Geofence is a circle around the attested install location of an AP.
type Geofence struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radius_m"`
}

// Contains reports whether the point lies inside the fence (haversine).
func (g Geofence) Contains(lat, lon float64) bool {
	if g.RadiusMeters <= 0 {
		return false
	}
	return distanceMeters(g.Latitude, g.Longitude, lat, lon) <= g.RadiusMeters
}

func distanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(a)))
}

type AllowListEntry struct {
	BSSID    string    `json:"bssid"`
	SSID     string    `json:"ssid"`
	Geofence *Geofence `json:"geofence,omitempty"`
	Version  string    `json:"version,omitempty"`
	Checksum string    `json:"checksum,omitempty"`
}

// AllowListDocument is the wire form of a government allow-list release.
type AllowListDocument struct {
	Version  string           `json:"version"`
	Checksum string           `json:"checksum"`
	Entries  []AllowListEntry `json:"entries"`
}

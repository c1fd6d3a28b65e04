package types_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

func TestNormalizeBSSID(t *testing.T) {
	for _, in := range []string{"aa:bb:cc:dd:ee:ff", "AA-BB-CC-DD-EE-FF", "aabb.ccdd.eeff", " AABBCCDDEEFF "} {
		got, err := types.NormalizeBSSID(in)
		require.NoError(t, err, in)
		require.Equal(t, "AA:BB:CC:DD:EE:FF", got, in)
	}
	for _, in := range []string{"", "AA:BB:CC:DD:EE", "GG:BB:CC:DD:EE:FF", "AA:BB:CC:DD:EE:FF:00"} {
		_, err := types.NormalizeBSSID(in)
		require.ErrorIs(t, err, types.ErrInvalidBSSID, in)
	}
}

func TestNetworkKey(t *testing.T) {
	key, err := types.NetworkKey("", "  Cafe WiFi ")
	require.NoError(t, err)
	require.Equal(t, "ssid:cafe wifi", key)
	require.True(t, types.IsSSIDKey(key))

	key, err = types.NetworkKey("aa:bb:cc:dd:ee:ff", "Cafe")
	require.NoError(t, err)
	require.Equal(t, "AA:BB:CC:DD:EE:FF", key)

	_, err = types.NetworkKey("", "   ")
	require.ErrorIs(t, err, types.ErrMalformedObservation)

	_, err = types.NetworkKey("aa:bb:cc:dd:ee:ff", "bad\xffssid")
	require.ErrorIs(t, err, types.ErrInvalidSSID)
}

func TestScoreBuckets(t *testing.T) {
	cases := []struct {
		score  int
		threat types.ThreatLevel
		grade  types.Grade
	}{
		{100, types.ThreatLow, types.GradeA},
		{90, types.ThreatLow, types.GradeA},
		{80, types.ThreatLow, types.GradeB},
		{79, types.ThreatMedium, types.GradeC},
		{65, types.ThreatMedium, types.GradeC},
		{60, types.ThreatMedium, types.GradeD},
		{50, types.ThreatHigh, types.GradeD},
		{30, types.ThreatHigh, types.GradeF},
		{29, types.ThreatCritical, types.GradeF},
		{0, types.ThreatCritical, types.GradeF},
	}
	for _, tc := range cases {
		require.Equal(t, tc.threat, types.ThreatLevelForScore(tc.score), "threat for %d", tc.score)
		require.Equal(t, tc.grade, types.GradeForScore(tc.score), "grade for %d", tc.score)
	}
}

func TestSignalPercent(t *testing.T) {
	require.Equal(t, 70, types.SignalPercent(70))
	require.Equal(t, 100, types.SignalPercent(140))
	require.Equal(t, 80, types.SignalPercent(-60))
	require.Equal(t, 0, types.SignalPercent(-110))
	require.Equal(t, 100, types.SignalPercent(-30))
}

func TestSecurityProtocolJSON(t *testing.T) {
	var obs types.Observation
	require.NoError(t, json.Unmarshal([]byte(`{"ssid":"x","security":"WPA2-Enterprise","band":"6 GHz"}`), &obs))
	require.Equal(t, types.SecurityWPA2, obs.Security)
	require.Equal(t, types.Band6GHz, obs.Band)

	require.NoError(t, json.Unmarshal([]byte(`{"ssid":"x","security":"owe-transition"}`), &obs))
	require.False(t, obs.Security.Valid(), "unrecognized protocols rank as unknown")
	require.Less(t, obs.Security.Rank(), types.SecurityOpen.Rank())
}

func TestGeofenceContains(t *testing.T) {
	g := types.Geofence{Latitude: 51.5034, Longitude: -0.1276, RadiusMeters: 200}
	require.True(t, g.Contains(51.5035, -0.1277))
	require.False(t, g.Contains(51.5134, -0.1276), "about 1.1km north")
	require.False(t, types.Geofence{Latitude: 1, Longitude: 1}.Contains(1, 1), "zero radius never contains")
}

func TestRecordCloneIsDeep(t *testing.T) {
	orig := types.StatusSuspicious
	rec := types.NetworkRecord{
		Key:            "AA:BB:CC:DD:EE:FF",
		OriginalStatus: &orig,
		LastAssessment: &types.SecurityAssessment{Indicators: []types.Indicator{{Kind: types.IndicatorSecurityDowngrade}}},
	}
	c := rec.Clone()
	*c.OriginalStatus = types.StatusVerified
	c.LastAssessment.Indicators[0].Kind = types.IndicatorSignalAnomaly

	require.Equal(t, types.StatusSuspicious, *rec.OriginalStatus)
	require.Equal(t, types.IndicatorSecurityDowngrade, rec.LastAssessment.Indicators[0].Kind)
}

func TestUserActions(t *testing.T) {
	a, err := types.ParseUserAction(" Unblock ")
	require.NoError(t, err)
	require.Equal(t, types.ActionUnblock, a)
	require.True(t, a.IsInverse())
	require.Equal(t, types.StatusBlocked, a.Status())

	_, err = types.ParseUserAction("ignore")
	require.ErrorIs(t, err, types.ErrUnknownAction)
}

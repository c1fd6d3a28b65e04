package radio_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/radio"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

func TestFileScanner_ArrayAndEnvelope(t *testing.T) {
	dir := t.TempDir()

	arr := filepath.Join(dir, "arr.json")
	require.NoError(t, os.WriteFile(arr, []byte(`[
		{"ssid":"GovWifi","bssid":"aa:bb:cc:00:00:01","signal_strength":-60,"security":"WPA2-PSK","band":"5GHz"}
	]`), 0o600))
	mtime := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(arr, mtime, mtime))

	batch, err := radio.NewFileScanner(arr).Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, batch, 1)
	require.Equal(t, types.SecurityWPA2, batch[0].Security)
	require.Equal(t, types.Band5GHz, batch[0].Band)
	require.True(t, batch[0].Timestamp.Equal(mtime))

	env := filepath.Join(dir, "env.json")
	require.NoError(t, os.WriteFile(env, []byte(`{"observations":[
		{"ssid":"Cafe","bssid":"","signal_strength":40,"security":"open","timestamp":"2026-03-01T09:00:00Z"},
		{"ssid":"Cafe","bssid":"11:22:33:44:55:66","signal_strength":70,"security":"sae"}
	]}`), 0o600))

	batch, err = radio.NewFileScanner(env).Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, batch, 2)
	require.Equal(t, 9, batch[0].Timestamp.Hour())
	require.Equal(t, types.SecurityWPA3, batch[1].Security)
}

func TestFileScanner_BandFromFrequency(t *testing.T) {
	path := filepath.Join(t.TempDir(), "iw.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"ssid":"A","bssid":"aa:bb:cc:00:00:01","signal_strength":50,"security":"wpa2","frequency_mhz":2437},
		{"ssid":"B","bssid":"aa:bb:cc:00:00:02","signal_strength":50,"security":"wpa2","frequency_mhz":5180},
		{"ssid":"C","bssid":"aa:bb:cc:00:00:03","signal_strength":50,"security":"wpa3","frequency_mhz":5975},
		{"ssid":"D","bssid":"aa:bb:cc:00:00:04","signal_strength":50,"security":"wpa2","band":"2.4GHz","frequency_mhz":5180},
		{"ssid":"E","bssid":"aa:bb:cc:00:00:05","signal_strength":50,"security":"wpa2"}
	]`), 0o600))

	batch, err := radio.NewFileScanner(path).Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, batch, 5)
	require.Equal(t, types.Band2GHz, batch[0].Band)
	require.Equal(t, types.Band5GHz, batch[1].Band)
	require.Equal(t, types.Band6GHz, batch[2].Band)
	// an explicit band wins over the frequency
	require.Equal(t, types.Band2GHz, batch[3].Band)
	require.Empty(t, batch[4].Band)
}

func TestFileScanner_Errors(t *testing.T) {
	_, err := radio.NewFileScanner(filepath.Join(t.TempDir(), "missing.json")).Scan(context.Background())
	require.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"observations": 3}`), 0o600))
	_, err = radio.NewFileScanner(bad).Scan(context.Background())
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = radio.NewFileScanner(bad).Scan(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

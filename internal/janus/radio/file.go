// Package radio adapts platform scan output into observation batches.
package radio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

// FileScanner reads the latest batch written by a platform scan helper
// (nmcli, iw, wdutil wrappers) as JSON: either an array of observations or
// an object with an "observations" array. Each call re-reads the file.
type FileScanner struct {
	Path string

	now func() time.Time
}

func NewFileScanner(path string) *FileScanner {
	return &FileScanner{Path: path, now: func() time.Time { return time.Now().UTC() }}
}

// Scan returns one batch. Observations without a timestamp are stamped with
// the file's modification time, so a stale file does not look fresh.
func (s *FileScanner) Scan(ctx context.Context) ([]types.Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fi, err := os.Stat(s.Path)
	if err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	b, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	batch, err := decodeBatch(b)
	if err != nil {
		return nil, fmt.Errorf("scan file %s: %w", s.Path, err)
	}

	stamp := fi.ModTime().UTC()
	if stamp.IsZero() && s.now != nil {
		stamp = s.now()
	}
	for i := range batch {
		if batch[i].Timestamp.IsZero() {
			batch[i].Timestamp = stamp
		}
	}
	return batch, nil
}

// dumpEntry is one scanner row. Helpers built on iw report the channel
// frequency instead of a band.
type dumpEntry struct {
	types.Observation
	FrequencyMHz int `json:"frequency_mhz,omitempty"`
}

func (e dumpEntry) observation() types.Observation {
	obs := e.Observation
	if (obs.Band == "" || obs.Band == types.BandUnknown) && e.FrequencyMHz > 0 {
		obs.Band = types.BandForFrequency(e.FrequencyMHz)
	}
	return obs
}

func decodeBatch(b []byte) ([]types.Observation, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, nil
	}
	var rows []dumpEntry
	if b[0] == '[' {
		if err := json.Unmarshal(b, &rows); err != nil {
			return nil, err
		}
	} else {
		var env struct {
			Observations []dumpEntry `json:"observations"`
		}
		if err := json.Unmarshal(b, &env); err != nil {
			return nil, err
		}
		rows = env.Observations
	}

	batch := make([]types.Observation, 0, len(rows))
	for _, r := range rows {
		batch = append(batch, r.observation())
	}
	return batch, nil
}

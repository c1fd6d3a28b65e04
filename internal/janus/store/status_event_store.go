package store

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

// StatusEventRecord captures a single status transition for the audit log.
// CycleID is empty for transitions caused by user actions.
type StatusEventRecord struct {
	Key        string
	SSID       string
	From       types.NetworkStatus
	To         types.NetworkStatus
	Reason     string
	CycleID    string
	OccurredAt time.Time
}

// StatusEventStore reads and trims the append-only transition log written by
// NetworkStore.SaveBatch.
type StatusEventStore interface {
	ListEvents(ctx context.Context, key string, limit int) ([]StatusEventRecord, error)
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

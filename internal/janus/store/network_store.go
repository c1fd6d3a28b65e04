package store

import (
	"context"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

// NetworkStore holds the authoritative NetworkRecords. SaveBatch must be
// all-or-nothing: either every record and event is persisted or none is.
type NetworkStore interface {
	Get(ctx context.Context, key string) (types.NetworkRecord, bool, error)
	List(ctx context.Context) ([]types.NetworkRecord, error)
	SaveBatch(ctx context.Context, recs []types.NetworkRecord, events []StatusEventRecord) error
	DeleteAll(ctx context.Context) (int64, error)
}

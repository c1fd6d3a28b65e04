package store

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

// AllowListCache keeps the last allow-list document that passed checksum
// verification, so a restart can operate without the remote source.
type AllowListCache interface {
	LoadAllowList(ctx context.Context) (doc types.AllowListDocument, syncedAt time.Time, ok bool, err error)
	SaveAllowList(ctx context.Context, doc types.AllowListDocument, syncedAt time.Time) error
}

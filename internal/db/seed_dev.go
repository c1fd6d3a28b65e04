package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

type SeedDevOptions struct {
	// AllowList is written to the allow-list cache when the cache is empty,
	// so a dev server has attested networks without a publisher. The
	// document must already carry a valid checksum; it is re-verified on
	// restore like any other cached copy.
	AllowList *types.AllowListDocument
}

func SeedDev(ctx context.Context, db *sql.DB, opt SeedDevOptions) error {
	if opt.AllowList == nil {
		return nil
	}
	body, err := json.Marshal(opt.AllowList)
	if err != nil {
		return fmt.Errorf("seed allowlist encode: %w", err)
	}

	now := time.Now().UTC().UnixMilli()
	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO allowlist_cache(id, version, checksum, document, synced_at_ms)
VALUES (1, ?, ?, ?, ?);
`, opt.AllowList.Version, opt.AllowList.Checksum, string(body), now); err != nil {
		return fmt.Errorf("seed allowlist: %w", err)
	}
	return nil
}

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	dbpkg "github.com/BrandonDHaskell/Janus/server/internal/db"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

// AllowListCache keeps the last verified allow-list document in a
// single-row table.
type AllowListCache struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewAllowListCache(db *sql.DB, writer *dbpkg.Worker) *AllowListCache {
	return &AllowListCache{db: db, writer: writer}
}

func (c *AllowListCache) LoadAllowList(ctx context.Context) (types.AllowListDocument, time.Time, bool, error) {
	var (
		body     string
		syncedMs int64
	)
	err := c.db.QueryRowContext(ctx, `SELECT document, synced_at_ms FROM allowlist_cache WHERE id = 1;`).
		Scan(&body, &syncedMs)
	if errors.Is(err, sql.ErrNoRows) {
		return types.AllowListDocument{}, time.Time{}, false, nil
	}
	if err != nil {
		return types.AllowListDocument{}, time.Time{}, false, fmt.Errorf("LoadAllowList: %w", err)
	}

	var doc types.AllowListDocument
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return types.AllowListDocument{}, time.Time{}, false, fmt.Errorf("LoadAllowList decode: %w", err)
	}
	return doc, time.UnixMilli(syncedMs).UTC(), true, nil
}

func (c *AllowListCache) SaveAllowList(ctx context.Context, doc types.AllowListDocument, syncedAt time.Time) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("SaveAllowList encode: %w", err)
	}
	syncedMs := syncedAt.UTC().UnixMilli()

	return c.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO allowlist_cache(id, version, checksum, document, synced_at_ms)
VALUES (1, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  version = excluded.version,
  checksum = excluded.checksum,
  document = excluded.document,
  synced_at_ms = excluded.synced_at_ms;
`, doc.Version, doc.Checksum, string(body), syncedMs); err != nil {
			return fmt.Errorf("SaveAllowList: %w", err)
		}
		return nil
	})
}

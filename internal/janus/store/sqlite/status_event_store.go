package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/BrandonDHaskell/Janus/server/internal/db"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/store"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

// StatusEventStore reads and prunes the status_events log. Rows are
// written by NetworkStore.SaveBatch.
type StatusEventStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewStatusEventStore(db *sql.DB, writer *dbpkg.Worker) *StatusEventStore {
	return &StatusEventStore{db: db, writer: writer}
}

// ListEvents returns the newest events for key first. limit <= 0 means all.
func (s *StatusEventStore) ListEvents(ctx context.Context, key string, limit int) ([]store.StatusEventRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT network_key, ssid, from_status, to_status, reason, cycle_id, occurred_at_ms
FROM status_events
WHERE network_key = ?
ORDER BY occurred_at_ms DESC, id DESC
LIMIT ?;
`, key, limit)
	if err != nil {
		return nil, fmt.Errorf("ListEvents: %w", err)
	}
	defer rows.Close()

	var out []store.StatusEventRecord
	for rows.Next() {
		var (
			ev         store.StatusEventRecord
			from, to   string
			cycle      sql.NullString
			occurredMs int64
		)
		if err := rows.Scan(&ev.Key, &ev.SSID, &from, &to, &ev.Reason, &cycle, &occurredMs); err != nil {
			return nil, fmt.Errorf("ListEvents scan: %w", err)
		}
		ev.From = types.NetworkStatus(from)
		ev.To = types.NetworkStatus(to)
		ev.CycleID = cycle.String
		ev.OccurredAt = time.UnixMilli(occurredMs).UTC()
		out = append(out, ev)
	}
	return out, rows.Err()
}

// PruneOlderThan deletes events that occurred before cutoff and returns the
// number of rows removed.
//
// Uses idx_status_events_time for the range scan.
func (s *StatusEventStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cutoffMs := cutoff.UTC().UnixMilli()

	var deleted int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM status_events WHERE occurred_at_ms < ?;`, cutoffMs)
		if err != nil {
			return fmt.Errorf("PruneOlderThan: %w", err)
		}
		deleted, _ = res.RowsAffected()
		return nil
	})
	return deleted, err
}

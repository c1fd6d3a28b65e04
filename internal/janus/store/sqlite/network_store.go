package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	dbpkg "github.com/BrandonDHaskell/Janus/server/internal/db"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/store"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

// NetworkStore persists NetworkRecords. Reads go straight to the pool;
// writes are serialized through the Worker so that a batch and its status
// events share one transaction.
type NetworkStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewNetworkStore(db *sql.DB, writer *dbpkg.Worker) *NetworkStore {
	return &NetworkStore{db: db, writer: writer}
}

const networkColumns = `network_key, bssid, ssid, current_status, original_status, is_user_managed,
  first_seen_at_ms, last_seen_at_ms, action_at_ms, last_assessment`

func (s *NetworkStore) Get(ctx context.Context, key string) (types.NetworkRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+networkColumns+` FROM networks WHERE network_key = ?;`, key)
	rec, err := scanNetwork(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.NetworkRecord{}, false, nil
	}
	if err != nil {
		return types.NetworkRecord{}, false, fmt.Errorf("Get %s: %w", key, err)
	}
	return rec, true, nil
}

func (s *NetworkStore) List(ctx context.Context) ([]types.NetworkRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+networkColumns+` FROM networks ORDER BY network_key;`)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	var out []types.NetworkRecord
	for rows.Next() {
		rec, err := scanNetwork(rows)
		if err != nil {
			return nil, fmt.Errorf("List scan: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SaveBatch upserts every record and appends every event in a single
// transaction.
func (s *NetworkStore) SaveBatch(ctx context.Context, recs []types.NetworkRecord, events []store.StatusEventRecord) error {
	if len(recs) == 0 && len(events) == 0 {
		return nil
	}

	type row struct {
		rec        types.NetworkRecord
		assessment any
	}
	rows := make([]row, 0, len(recs))
	for _, r := range recs {
		var a any
		if r.LastAssessment != nil {
			b, err := json.Marshal(r.LastAssessment)
			if err != nil {
				return fmt.Errorf("SaveBatch encode assessment %s: %w", r.Key, err)
			}
			a = string(b)
		}
		rows = append(rows, row{rec: r, assessment: a})
	}

	nowMs := time.Now().UTC().UnixMilli()
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		for _, r := range rows {
			rec := r.rec
			var orig any
			if rec.OriginalStatus != nil {
				orig = string(*rec.OriginalStatus)
			}
			if _, err := tx.ExecContext(ctx, `
INSERT INTO networks(`+networkColumns+`, updated_at_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(network_key) DO UPDATE SET
  bssid = excluded.bssid,
  ssid = excluded.ssid,
  current_status = excluded.current_status,
  original_status = excluded.original_status,
  is_user_managed = excluded.is_user_managed,
  first_seen_at_ms = excluded.first_seen_at_ms,
  last_seen_at_ms = excluded.last_seen_at_ms,
  action_at_ms = excluded.action_at_ms,
  last_assessment = excluded.last_assessment,
  updated_at_ms = excluded.updated_at_ms;
`,
				rec.Key, rec.BSSID, rec.SSID, string(rec.CurrentStatus), orig, boolInt(rec.IsUserManaged),
				msOrNil(rec.FirstSeen), msOrNil(rec.LastSeen), msPtrOrNil(rec.ActionTimestamp), r.assessment,
				nowMs,
			); err != nil {
				return fmt.Errorf("SaveBatch upsert %s: %w", rec.Key, err)
			}
		}

		for _, ev := range events {
			var cycle any
			if ev.CycleID != "" {
				cycle = ev.CycleID
			}
			occurred := ev.OccurredAt
			if occurred.IsZero() {
				occurred = time.Now().UTC()
			}
			if _, err := tx.ExecContext(ctx, `
INSERT INTO status_events(network_key, ssid, from_status, to_status, reason, cycle_id, occurred_at_ms)
VALUES (?, ?, ?, ?, ?, ?, ?);
`, ev.Key, ev.SSID, string(ev.From), string(ev.To), ev.Reason, cycle, occurred.UTC().UnixMilli()); err != nil {
				return fmt.Errorf("SaveBatch insert event %s: %w", ev.Key, err)
			}
		}
		return nil
	})
}

// DeleteAll removes every record. The status event log is kept.
func (s *NetworkStore) DeleteAll(ctx context.Context) (int64, error) {
	var deleted int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM networks;`)
		if err != nil {
			return fmt.Errorf("DeleteAll: %w", err)
		}
		deleted, _ = res.RowsAffected()
		return nil
	})
	return deleted, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNetwork(sc scanner) (types.NetworkRecord, error) {
	var (
		rec                          types.NetworkRecord
		current                      string
		orig, assessment             sql.NullString
		managed                      int
		firstSeen, lastSeen, actedAt sql.NullInt64
	)
	if err := sc.Scan(&rec.Key, &rec.BSSID, &rec.SSID, &current, &orig, &managed,
		&firstSeen, &lastSeen, &actedAt, &assessment); err != nil {
		return types.NetworkRecord{}, err
	}

	rec.CurrentStatus = types.NetworkStatus(current)
	rec.IsUserManaged = managed == 1
	if orig.Valid {
		st := types.NetworkStatus(orig.String)
		rec.OriginalStatus = &st
	}
	rec.FirstSeen = fromMs(firstSeen)
	rec.LastSeen = fromMs(lastSeen)
	if actedAt.Valid {
		t := time.UnixMilli(actedAt.Int64).UTC()
		rec.ActionTimestamp = &t
	}
	if assessment.Valid {
		var a types.SecurityAssessment
		if err := json.Unmarshal([]byte(assessment.String), &a); err != nil {
			return types.NetworkRecord{}, fmt.Errorf("decode assessment %s: %w", rec.Key, err)
		}
		rec.LastAssessment = &a
	}
	return rec, nil
}

package duckdb

import (
	"fmt"
	"time"

	"github.com/tinytelemetry/reqchart/internal/model"
)

// SyncRecord is one row of the collector's sync history.
type SyncRecord struct {
	SyncedAt time.Time `json:"synced_at"`
	Source   string    `json:"source"`
	Accepted int       `json:"accepted"`
	Rejected int       `json:"rejected"`
}

// UpsertCounters stores counters keyed by month start. A later value for the
// same month replaces the stored total.
func (s *Store) UpsertCounters(counters []model.Counter) error {
	if len(counters) == 0 {
		return nil
	}

	// Last write wins within a batch; DuckDB rejects touching one key twice per tx.
	byMonth := make(map[time.Time]int, len(counters))
	batch := make([]model.Counter, 0, len(counters))
	for _, c := range counters {
		key := c.StartTime.UTC()
		if i, ok := byMonth[key]; ok {
			batch[i].Total = c.Total
			continue
		}
		byMonth[key] = len(batch)
		batch = append(batch, model.Counter{StartTime: key, Total: c.Total})
	}

	ctx, cancel := s.queryCtx()
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO request_counters (start_time, total, updated_at)
		VALUES (?, ?, current_timestamp)
		ON CONFLICT (start_time) DO UPDATE SET total = excluded.total, updated_at = excluded.updated_at`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range batch {
		if c.Total < 0 {
			return fmt.Errorf("counter %s: negative total %d", c.StartTime.Format(time.RFC3339), c.Total)
		}
		if _, err := stmt.ExecContext(ctx, c.StartTime, c.Total); err != nil {
			return fmt.Errorf("upsert counter %s: %w", c.StartTime.Format(time.RFC3339), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ListCounters returns the most recent limit months in ascending order.
// A limit <= 0 returns every stored month.
func (s *Store) ListCounters(limit int) ([]model.Counter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	query := `SELECT start_time, total FROM request_counters ORDER BY start_time ASC`
	var args []any
	if limit > 0 {
		query = `SELECT start_time, total FROM (
			SELECT start_time, total FROM request_counters ORDER BY start_time DESC LIMIT ?
		) ORDER BY start_time ASC`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Counter
	for rows.Next() {
		var c model.Counter
		if err := rows.Scan(&c.StartTime, &c.Total); err != nil {
			return nil, err
		}
		c.StartTime = c.StartTime.UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}

// CounterCount returns the number of stored months.
func (s *Store) CounterCount() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM request_counters`).Scan(&n)
	return n, err
}

// DeleteBefore removes months starting before cutoff and returns the count.
func (s *Store) DeleteBefore(cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM request_counters WHERE start_time < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RecordSync appends a collector sync outcome.
func (s *Store) RecordSync(rec SyncRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO counter_syncs (synced_at, source, accepted, rejected) VALUES (?, ?, ?, ?)`,
		rec.SyncedAt.UTC(), rec.Source, rec.Accepted, rec.Rejected)
	return err
}

// LastSync returns the newest sync record, or nil when none exist.
func (s *Store) LastSync() (*SyncRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT synced_at, source, accepted, rejected FROM counter_syncs ORDER BY synced_at DESC LIMIT 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var rec SyncRecord
	if err := rows.Scan(&rec.SyncedAt, &rec.Source, &rec.Accepted, &rec.Rejected); err != nil {
		return nil, err
	}
	rec.SyncedAt = rec.SyncedAt.UTC()
	return &rec, nil
}

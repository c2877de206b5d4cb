package sqlite

import (
	"context"
	"fmt"

	"github.com/artpar/tierguard/ports"
)

// HistoryStore implements ports.HistoryStore using SQLite.
type HistoryStore struct {
	db *DB
}

// NewHistoryStore creates a new SQLite history store.
func NewHistoryStore(db *DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// Append stores one poll record.
func (s *HistoryStore) Append(ctx context.Context, rec ports.PollRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO poll_history (
			id, started_at, finished_at, used, remaining, percent_used,
			level, succeeded, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.StartedAt.UTC(),
		rec.FinishedAt.UTC(),
		rec.Used,
		rec.Remaining,
		rec.PercentUsed,
		rec.Level,
		rec.Succeeded,
		rec.Error,
	)
	if err != nil {
		return fmt.Errorf("insert poll record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *HistoryStore) Recent(ctx context.Context, limit int) ([]ports.PollRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, used, remaining, percent_used,
		       level, succeeded, error
		FROM poll_history
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query poll history: %w", err)
	}
	defer rows.Close()

	var records []ports.PollRecord
	for rows.Next() {
		var rec ports.PollRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.StartedAt,
			&rec.FinishedAt,
			&rec.Used,
			&rec.Remaining,
			&rec.PercentUsed,
			&rec.Level,
			&rec.Succeeded,
			&rec.Error,
		); err != nil {
			return nil, fmt.Errorf("scan poll record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Ensure interface compliance.
var _ ports.HistoryStore = (*HistoryStore)(nil)

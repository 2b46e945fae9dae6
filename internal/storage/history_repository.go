package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/TomasBirkner/hostly-backend/internal/storage/models"
)

// HistoryRepository journals sync outcomes in the volatile SQLite database.
// The journal is capped at limit rows; the oldest rows are pruned on insert.
type HistoryRepository struct {
	BaseRepository
	limit int
}

// NewHistoryRepository creates a journal holding at most limit outcomes.
func NewHistoryRepository(db *DB, limit int) *HistoryRepository {
	if limit <= 0 {
		limit = 500
	}
	return &HistoryRepository{
		BaseRepository: NewBaseRepository(db),
		limit:          limit,
	}
}

// Record appends one outcome and prunes rows beyond the cap.
func (r *HistoryRepository) Record(ctx context.Context, o models.SyncOutcome) error {
	var lastSynced sql.NullTime
	if o.LastSynced != nil {
		lastSynced = sql.NullTime{Time: *o.LastSynced, Valid: true}
	}
	var errText sql.NullString
	if o.Error != "" {
		errText = sql.NullString{String: o.Error, Valid: true}
	}
	startedAt := o.StartedAt
	if startedAt.IsZero() {
		startedAt = r.Now()
	}

	return r.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sync_history (
				property_id, property_name, success, reservation_count,
				error, started_at, duration_ms, last_synced_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			o.PropertyID, o.Name, o.Success, o.ReservationCount,
			errText, startedAt.UTC(), o.DurationMs, lastSynced,
		); err != nil {
			return fmt.Errorf("inserting sync history: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			DELETE FROM sync_history
			WHERE id <= (SELECT MAX(id) FROM sync_history) - ?
		`, r.limit); err != nil {
			return fmt.Errorf("pruning sync history: %w", err)
		}
		return nil
	})
}

// ListRecent returns the newest outcomes first, optionally for one property.
func (r *HistoryRepository) ListRecent(ctx context.Context, propertyID string, limit int) ([]models.SyncOutcome, error) {
	if limit <= 0 || limit > r.limit {
		limit = r.limit
	}

	query := `
		SELECT property_id, property_name, success, reservation_count,
		       error, started_at, duration_ms, last_synced_at
		FROM sync_history`
	args := []any{}
	if propertyID != "" {
		query += " WHERE property_id = ?"
		args = append(args, propertyID)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sync history: %w", err)
	}
	defer rows.Close()

	outcomes := []models.SyncOutcome{}
	for rows.Next() {
		var (
			o          models.SyncOutcome
			errText    sql.NullString
			lastSynced sql.NullTime
		)
		if err := rows.Scan(
			&o.PropertyID, &o.Name, &o.Success, &o.ReservationCount,
			&errText, &o.StartedAt, &o.DurationMs, &lastSynced,
		); err != nil {
			return nil, fmt.Errorf("scanning sync history: %w", err)
		}
		o.Error = errText.String
		if lastSynced.Valid {
			t := lastSynced.Time.UTC()
			o.LastSynced = &t
		}
		o.StartedAt = o.StartedAt.UTC()
		outcomes = append(outcomes, o)
	}

	return outcomes, rows.Err()
}

// Count returns the number of journaled outcomes.
func (r *HistoryRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM sync_history").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting sync history: %w", err)
	}
	return n, nil
}

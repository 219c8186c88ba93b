package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jengzang/records-timeline/internal/models"
)

// PatternRepository persists per-day pattern observations
type PatternRepository struct {
	db *sql.DB
}

// NewPatternRepository creates a new pattern repository
func NewPatternRepository(db *sql.DB) *PatternRepository {
	return &PatternRepository{db: db}
}

// ReplaceDayTx swaps the stored observations of one day for obs
func (r *PatternRepository) ReplaceDayTx(ctx context.Context, tx *sql.Tx, userID, day string, obs []models.PatternObservation) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM pattern_observations WHERE user_id = ? AND day = ?`, userID, day); err != nil {
		return fmt.Errorf("failed to delete pattern observations: %w", err)
	}
	if len(obs) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO pattern_observations
		(user_id, day, weekday, bucket, category, weight) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare pattern insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range obs {
		if _, err := stmt.ExecContext(ctx, userID, day, o.Weekday, o.Bucket, o.Category, o.Weight); err != nil {
			return fmt.Errorf("failed to insert pattern observation: %w", err)
		}
	}
	return nil
}

// ListSince returns observations of days in [from, to), ordered by day and bucket
func (r *PatternRepository) ListSince(ctx context.Context, userID, from, to string) ([]models.PatternObservation, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id, day, weekday, bucket, category, weight
		FROM pattern_observations
		WHERE user_id = ? AND day >= ? AND day < ?
		ORDER BY day, bucket, category`, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query pattern observations: %w", err)
	}
	defer rows.Close()

	var out []models.PatternObservation
	for rows.Next() {
		var o models.PatternObservation
		if err := rows.Scan(&o.UserID, &o.Date, &o.Weekday, &o.Bucket, &o.Category, &o.Weight); err != nil {
			return nil, fmt.Errorf("failed to scan pattern observation: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pattern observations: %w", err)
	}
	return out, nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jengzang/records-timeline/internal/models"
)

// SummaryRepository stores generated day summaries
type SummaryRepository struct {
	db *sql.DB
}

// NewSummaryRepository creates a new summary repository
func NewSummaryRepository(db *sql.DB) *SummaryRepository {
	return &SummaryRepository{db: db}
}

// Upsert writes the summary of one day, replacing any previous text
func (r *SummaryRepository) Upsert(ctx context.Context, s models.DaySummary) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO day_summaries (user_id, day, text, generated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, day) DO UPDATE SET text = excluded.text, generated_at = excluded.generated_at`,
		s.UserID, s.Date, s.Text, toMillis(s.GeneratedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert day summary: %w", err)
	}
	return nil
}

// Get returns the summary of a day, or nil if none was generated
func (r *SummaryRepository) Get(ctx context.Context, userID, day string) (*models.DaySummary, error) {
	var s models.DaySummary
	var generated int64
	err := r.db.QueryRowContext(ctx, `SELECT user_id, day, text, generated_at
		FROM day_summaries WHERE user_id = ? AND day = ?`, userID, day).
		Scan(&s.UserID, &s.Date, &s.Text, &generated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get day summary: %w", err)
	}
	s.GeneratedAt = fromMillis(generated)
	return &s, nil
}

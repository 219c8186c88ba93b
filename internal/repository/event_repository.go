package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jengzang/records-timeline/internal/models"
)

// EventRepository stores planned calendar events imported for verification
type EventRepository struct {
	db *sql.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// ListOverlapping returns the user's events intersecting [from, to)
func (r *EventRepository) ListOverlapping(ctx context.Context, userID string, from, to time.Time) ([]models.PlannedEvent, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, user_id, title, category, start_ts, end_ts
		FROM planned_events
		WHERE user_id = ? AND start_ts < ? AND end_ts > ?
		ORDER BY start_ts, id`, userID, toMillis(to), toMillis(from))
	if err != nil {
		return nil, fmt.Errorf("failed to query planned events: %w", err)
	}
	defer rows.Close()

	var out []models.PlannedEvent
	for rows.Next() {
		var e models.PlannedEvent
		var start, end int64
		if err := rows.Scan(&e.ID, &e.UserID, &e.Title, &e.Category, &start, &end); err != nil {
			return nil, fmt.Errorf("failed to scan planned event: %w", err)
		}
		e.Start, e.End = fromMillis(start), fromMillis(end)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate planned events: %w", err)
	}
	return out, nil
}

// Upsert inserts or replaces events by (user, id)
func (r *EventRepository) Upsert(ctx context.Context, events []models.PlannedEvent) error {
	stmt, err := r.db.PrepareContext(ctx, `INSERT INTO planned_events (user_id, id, title, category, start_ts, end_ts)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, id) DO UPDATE SET
			title = excluded.title, category = excluded.category,
			start_ts = excluded.start_ts, end_ts = excluded.end_ts`)
	if err != nil {
		return fmt.Errorf("failed to prepare event upsert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.ExecContext(ctx, e.UserID, e.ID, e.Title, e.Category, toMillis(e.Start), toMillis(e.End)); err != nil {
			return fmt.Errorf("failed to upsert event %s: %w", e.ID, err)
		}
	}
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DirtyDayRepository tracks days whose archived samples changed since they
// were last rebuilt. Every mark bumps the day's generation, so a rebuild
// only clears the mark it started from.
type DirtyDayRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewDirtyDayRepository creates a new dirty day repository
func NewDirtyDayRepository(db *sql.DB) *DirtyDayRepository {
	return &DirtyDayRepository{db: db, now: time.Now}
}

// Mark flags days of the user as needing a rebuild
func (r *DirtyDayRepository) Mark(ctx context.Context, userID string, days []string) error {
	if len(days) == 0 {
		return nil
	}
	now := toMillis(r.now())
	for _, day := range days {
		_, err := r.db.ExecContext(ctx, `INSERT INTO dirty_days (user_id, day, generation, marked_at)
			VALUES (?, ?, 1, ?)
			ON CONFLICT (user_id, day) DO UPDATE SET generation = generation + 1, marked_at = excluded.marked_at`,
			userID, day, now)
		if err != nil {
			return fmt.Errorf("failed to mark day %s dirty: %w", day, err)
		}
	}
	return nil
}

// Generation returns the current mark of a day, or 0 when it is clean
func (r *DirtyDayRepository) Generation(ctx context.Context, userID, day string) (int64, error) {
	var gen int64
	err := r.db.QueryRowContext(ctx, `SELECT generation FROM dirty_days WHERE user_id = ? AND day = ?`,
		userID, day).Scan(&gen)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get dirty generation: %w", err)
	}
	return gen, nil
}

// Clear removes the mark of a day if it is still at generation gen. A day
// marked again meanwhile stays dirty.
func (r *DirtyDayRepository) Clear(ctx context.Context, userID, day string, gen int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM dirty_days WHERE user_id = ? AND day = ? AND generation = ?`,
		userID, day, gen)
	if err != nil {
		return fmt.Errorf("failed to clear dirty day: %w", err)
	}
	return nil
}

// List returns the user's dirty days, newest first and at most limit of them
func (r *DirtyDayRepository) List(ctx context.Context, userID string, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT day FROM dirty_days WHERE user_id = ?
		ORDER BY day DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query dirty days: %w", err)
	}
	defer rows.Close()

	var days []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan dirty day: %w", err)
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

// Users lists users with at least one dirty day
func (r *DirtyDayRepository) Users(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM dirty_days ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query dirty users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

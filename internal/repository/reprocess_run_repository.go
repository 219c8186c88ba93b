package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jengzang/records-timeline/internal/models"
)

// ReprocessRunRepository records the audit trail of reprocess passes
type ReprocessRunRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewReprocessRunRepository creates a new reprocess run repository
func NewReprocessRunRepository(db *sql.DB) *ReprocessRunRepository {
	return &ReprocessRunRepository{db: db, now: time.Now}
}

// Start inserts a running record and returns its id
func (r *ReprocessRunRepository) Start(ctx context.Context, userID, day string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO reprocess_runs (user_id, day, status, started_at)
		VALUES (?, ?, ?, ?)`, userID, day, models.RunStatusRunning, toMillis(r.now()))
	if err != nil {
		return 0, fmt.Errorf("failed to start reprocess run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get reprocess run id: %w", err)
	}
	return id, nil
}

// Finish marks a run completed, or failed when runErr is not nil
func (r *ReprocessRunRepository) Finish(ctx context.Context, id int64, result models.ReprocessResult, runErr error) error {
	status, message := models.RunStatusCompleted, ""
	if runErr != nil {
		status, message = models.RunStatusFailed, runErr.Error()
	}
	_, err := r.db.ExecContext(ctx, `UPDATE reprocess_runs
		SET status = ?, segments_created = ?, places_looked_up = ?, summaries_generated = ?,
			error_message = ?, finished_at = ?
		WHERE id = ?`,
		status, result.SegmentsCreated, result.PlacesLookedUp, result.SummariesGenerated,
		message, toMillis(r.now()), id)
	if err != nil {
		return fmt.Errorf("failed to finish reprocess run: %w", err)
	}
	return nil
}

// Latest returns the most recent run of a day, or nil if it was never reprocessed
func (r *ReprocessRunRepository) Latest(ctx context.Context, userID, day string) (*models.ReprocessRun, error) {
	var run models.ReprocessRun
	var started int64
	var finished sql.NullInt64
	err := r.db.QueryRowContext(ctx, `SELECT id, user_id, day, status, segments_created, places_looked_up,
			summaries_generated, error_message, started_at, finished_at
		FROM reprocess_runs
		WHERE user_id = ? AND day = ?
		ORDER BY id DESC LIMIT 1`, userID, day).Scan(
		&run.ID, &run.UserID, &run.Date, &run.Status, &run.SegmentsCreated, &run.PlacesLookedUp,
		&run.SummariesGenerated, &run.ErrorMessage, &started, &finished,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reprocess run: %w", err)
	}
	run.StartedAt = fromMillis(started)
	if finished.Valid {
		t := fromMillis(finished.Int64)
		run.FinishedAt = &t
	}
	return &run, nil
}

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jengzang/records-timeline/internal/models"
)

// SegmentRepository handles database operations for activity segments.
// Segments are immutable: a day is only ever replaced as a whole.
type SegmentRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSegmentRepository creates a new segment repository
func NewSegmentRepository(db *sql.DB) *SegmentRepository {
	return &SegmentRepository{db: db, now: time.Now}
}

// ReplaceDayTx deletes the user's segments for day and inserts segs in their
// place, bumping the day's segment-set version. Returns the new version.
func (r *SegmentRepository) ReplaceDayTx(ctx context.Context, tx *sql.Tx, userID, day string, segs []models.ActivitySegment) (int64, error) {
	if _, err := tx.ExecContext(ctx, `DELETE FROM activity_segments WHERE user_id = ? AND day = ?`, userID, day); err != nil {
		return 0, fmt.Errorf("failed to delete segments: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO activity_segments (
			id, user_id, day, start_ts, end_ts, movement, anchor_id, geohash,
			lat, lng, confidence, evidence, algo_version, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare segment insert: %w", err)
	}
	defer stmt.Close()

	createdAt := toMillis(r.now())
	for _, s := range segs {
		evidence, err := json.Marshal(s.Evidence)
		if err != nil {
			return 0, fmt.Errorf("failed to encode evidence: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			s.ID, userID, day, toMillis(s.Start), toMillis(s.End), s.Movement, nullString(s.AnchorID), s.Geohash,
			s.Latitude, s.Longitude, s.Confidence, string(evidence), s.AlgoVersion, createdAt,
		); err != nil {
			return 0, fmt.Errorf("failed to insert segment %s: %w", s.ID, err)
		}
	}

	var version int64
	err = tx.QueryRowContext(ctx, `INSERT INTO segment_sets (user_id, day, version, updated_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT (user_id, day) DO UPDATE SET version = version + 1, updated_at = excluded.updated_at
		RETURNING version`, userID, day, createdAt).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to bump segment set version: %w", err)
	}

	return version, nil
}

// ListDay returns the user's segments for day in time order with the
// segment-set version they belong to. An unprocessed day has version 0.
func (r *SegmentRepository) ListDay(ctx context.Context, userID, day string) ([]models.ActivitySegment, int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to begin read: %w", err)
	}
	defer tx.Rollback()

	var version int64
	err = tx.QueryRowContext(ctx, `SELECT version FROM segment_sets WHERE user_id = ? AND day = ?`, userID, day).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return nil, 0, fmt.Errorf("failed to get segment set version: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `SELECT id, user_id, day, start_ts, end_ts, movement, anchor_id, geohash,
			lat, lng, confidence, evidence, algo_version, created_at
		FROM activity_segments
		WHERE user_id = ? AND day = ?
		ORDER BY start_ts, id`, userID, day)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query segments: %w", err)
	}
	defer rows.Close()

	var segs []models.ActivitySegment
	for rows.Next() {
		var s models.ActivitySegment
		var start, end, created int64
		var anchor sql.NullString
		var evidence string
		if err := rows.Scan(
			&s.ID, &s.UserID, &s.Date, &start, &end, &s.Movement, &anchor, &s.Geohash,
			&s.Latitude, &s.Longitude, &s.Confidence, &evidence, &s.AlgoVersion, &created,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan segment: %w", err)
		}
		if err := json.Unmarshal([]byte(evidence), &s.Evidence); err != nil {
			return nil, 0, fmt.Errorf("failed to decode evidence of %s: %w", s.ID, err)
		}
		s.Start, s.End, s.CreatedAt = fromMillis(start), fromMillis(end), fromMillis(created)
		s.AnchorID = stringPtr(anchor)
		segs = append(segs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate segments: %w", err)
	}

	return segs, version, nil
}

// Version returns the segment-set version of a day, 0 if never processed
func (r *SegmentRepository) Version(ctx context.Context, userID, day string) (int64, error) {
	var version int64
	err := r.db.QueryRowContext(ctx, `SELECT version FROM segment_sets WHERE user_id = ? AND day = ?`, userID, day).Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get segment set version: %w", err)
	}
	return version, nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jengzang/records-timeline/internal/database"
	"github.com/jengzang/records-timeline/internal/models"
)

const sampleColumns = `user_id, key, ts, lat, lng, accuracy_m, speed_mps, heading_deg,
	source, screen_seconds, health_metric, health_value`

// SampleStore is the durable per-user queue of samples awaiting processing
type SampleStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSampleStore creates a new sample store
func NewSampleStore(db *sql.DB) *SampleStore {
	return &SampleStore{db: db, now: time.Now}
}

// Enqueue appends samples to the user's queue. Samples whose key is already
// pending are counted as duplicates and skipped.
func (s *SampleStore) Enqueue(ctx context.Context, userID string, samples []models.RawSample) (added, duplicates int, err error) {
	if len(samples) == 0 {
		return 0, 0, nil
	}

	query := `INSERT INTO pending_samples (` + sampleColumns + `, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, key) DO NOTHING`
	receivedAt := toMillis(s.now())

	err = database.Transaction(ctx, s.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, smp := range samples {
			res, err := stmt.ExecContext(ctx, append(sampleArgs(userID, smp), receivedAt)...)
			if err != nil {
				return fmt.Errorf("failed to enqueue sample %s: %w", smp.Key, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				added++
			} else {
				duplicates++
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return added, duplicates, nil
}

// Peek returns up to limit of the user's oldest pending samples without removing them
func (s *SampleStore) Peek(ctx context.Context, userID string, limit int) ([]models.RawSample, error) {
	if limit <= 0 {
		limit = 500
	}

	query := `SELECT ` + sampleColumns + ` FROM pending_samples
		WHERE user_id = ? ORDER BY ts, key LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending samples: %w", err)
	}
	defer rows.Close()

	return scanSamples(rows)
}

// Remove deletes acknowledged samples from the queue
func (s *SampleStore) Remove(ctx context.Context, userID string, keys []string) (int, error) {
	var removed int
	err := database.Transaction(ctx, s.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `DELETE FROM pending_samples WHERE user_id = ? AND key = ?`)
		if err != nil {
			return fmt.Errorf("failed to prepare delete: %w", err)
		}
		defer stmt.Close()

		for _, k := range keys {
			res, err := stmt.ExecContext(ctx, userID, k)
			if err != nil {
				return fmt.Errorf("failed to remove sample %s: %w", k, err)
			}
			n, _ := res.RowsAffected()
			removed += int(n)
		}
		return nil
	})
	return removed, err
}

// Clear drops every pending sample of the user
func (s *SampleStore) Clear(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending_samples WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to clear pending samples: %w", err)
	}
	return nil
}

// Count returns the number of pending samples of the user
func (s *SampleStore) Count(ctx context.Context, userID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_samples WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count pending samples: %w", err)
	}
	return n, nil
}

// Users lists users with pending samples
func (s *SampleStore) Users(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM pending_samples ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending users: %w", err)
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

// SampleArchive retains consumed samples as the ingestion audit trail and
// as the source the pipeline rebuilds days from
type SampleArchive struct {
	db  *sql.DB
	now func() time.Time
}

// NewSampleArchive creates a new sample archive
func NewSampleArchive(db *sql.DB) *SampleArchive {
	return &SampleArchive{db: db, now: time.Now}
}

// Archive stores samples, ignoring keys already archived. Re-archiving
// after a crash between peek and remove is therefore harmless.
func (a *SampleArchive) Archive(ctx context.Context, samples []models.RawSample) (int, error) {
	if len(samples) == 0 {
		return 0, nil
	}

	query := `INSERT INTO raw_samples (` + sampleColumns + `, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, key) DO NOTHING`
	archivedAt := toMillis(a.now())

	var added int
	err := database.Transaction(ctx, a.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare archive insert: %w", err)
		}
		defer stmt.Close()

		for _, smp := range samples {
			res, err := stmt.ExecContext(ctx, append(sampleArgs(smp.UserID, smp), archivedAt)...)
			if err != nil {
				return fmt.Errorf("failed to archive sample %s: %w", smp.Key, err)
			}
			n, _ := res.RowsAffected()
			added += int(n)
		}
		return nil
	})
	return added, err
}

// Range returns the user's archived samples with from <= ts < to, oldest first
func (a *SampleArchive) Range(ctx context.Context, userID string, from, to time.Time) ([]models.RawSample, error) {
	query := `SELECT ` + sampleColumns + ` FROM raw_samples
		WHERE user_id = ? AND ts >= ? AND ts < ? ORDER BY ts, key`
	rows, err := a.db.QueryContext(ctx, query, userID, toMillis(from), toMillis(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query archived samples: %w", err)
	}
	defer rows.Close()

	return scanSamples(rows)
}

func sampleArgs(userID string, s models.RawSample) []any {
	return []any{
		userID, s.Key, toMillis(s.Timestamp), s.Latitude, s.Longitude, s.AccuracyM,
		nullFloat(s.SpeedMps), nullFloat(s.HeadingDeg),
		s.Source, s.ScreenSeconds, s.HealthMetric, s.HealthValue,
	}
}

func scanSamples(rows *sql.Rows) ([]models.RawSample, error) {
	var out []models.RawSample
	for rows.Next() {
		var s models.RawSample
		var ts int64
		var speed, heading sql.NullFloat64
		if err := rows.Scan(
			&s.UserID, &s.Key, &ts, &s.Latitude, &s.Longitude, &s.AccuracyM, &speed, &heading,
			&s.Source, &s.ScreenSeconds, &s.HealthMetric, &s.HealthValue,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		s.Timestamp = fromMillis(ts)
		s.SpeedMps = floatPtr(speed)
		s.HeadingDeg = floatPtr(heading)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate samples: %w", err)
	}
	return out, nil
}

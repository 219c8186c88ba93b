package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jengzang/records-timeline/internal/models"
)

const anchorColumns = `id, user_id, lat, lng, radius_m, geohash, label, category, provenance,
	visit_count, first_seen, last_seen`

// AnchorRepository handles database operations for anchors
type AnchorRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewAnchorRepository creates a new anchor repository
func NewAnchorRepository(db *sql.DB) *AnchorRepository {
	return &AnchorRepository{db: db, now: time.Now}
}

// ListByUser returns every anchor of the user
func (r *AnchorRepository) ListByUser(ctx context.Context, userID string) ([]models.Anchor, error) {
	return r.List(ctx, userID, models.AnchorFilter{})
}

// List returns the user's anchors matching filter, most recently seen first
func (r *AnchorRepository) List(ctx context.Context, userID string, filter models.AnchorFilter) ([]models.Anchor, error) {
	query := `SELECT ` + anchorColumns + ` FROM anchors`

	conditions := []string{"user_id = ?"}
	args := []interface{}{userID}
	if filter.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Provenance != "" {
		conditions = append(conditions, "provenance = ?")
		args = append(args, filter.Provenance)
	}
	query += " WHERE " + strings.Join(conditions, " AND ") + " ORDER BY last_seen DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query anchors: %w", err)
	}
	defer rows.Close()

	var out []models.Anchor
	for rows.Next() {
		a, err := scanAnchor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate anchors: %w", err)
	}
	return out, nil
}

// Get returns one anchor, or nil if it does not exist
func (r *AnchorRepository) Get(ctx context.Context, userID, id string) (*models.Anchor, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+anchorColumns+` FROM anchors WHERE user_id = ? AND id = ?`, userID, id)
	a, err := scanAnchor(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

// UpsertTx writes anchors, overwriting stored rows with the same id
func (r *AnchorRepository) UpsertTx(ctx context.Context, tx *sql.Tx, anchors []models.Anchor) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO anchors (`+anchorColumns+`, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			lat = excluded.lat, lng = excluded.lng, radius_m = excluded.radius_m,
			geohash = excluded.geohash, label = excluded.label, category = excluded.category,
			provenance = excluded.provenance, visit_count = excluded.visit_count,
			first_seen = excluded.first_seen, last_seen = excluded.last_seen,
			updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare anchor upsert: %w", err)
	}
	defer stmt.Close()

	updatedAt := toMillis(r.now())
	for _, a := range anchors {
		if _, err := stmt.ExecContext(ctx,
			a.ID, a.UserID, a.Latitude, a.Longitude, a.RadiusM, a.Geohash, a.Label, a.Category, a.Provenance,
			a.VisitCount, toMillis(a.FirstSeen), toMillis(a.LastSeen), updatedAt,
		); err != nil {
			return fmt.Errorf("failed to upsert anchor %s: %w", a.ID, err)
		}
	}
	return nil
}

// DeleteTx removes anchors by id
func (r *AnchorRepository) DeleteTx(ctx context.Context, tx *sql.Tx, userID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	args := []interface{}{userID}
	for _, id := range ids {
		args = append(args, id)
	}
	query := `DELETE FROM anchors WHERE user_id = ? AND id IN (` + placeholders(len(ids)) + `)`
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete anchors: %w", err)
	}
	return nil
}

// Confirm records the user's label and category for an anchor and marks it
// user-confirmed. Returns nil if the anchor does not exist.
func (r *AnchorRepository) Confirm(ctx context.Context, userID, id string, update models.AnchorUpdate) (*models.Anchor, error) {
	category := update.Category
	if category == "" {
		category = models.CategoryUnknown
	}
	res, err := r.db.ExecContext(ctx, `UPDATE anchors
		SET label = ?, category = ?, provenance = ?, updated_at = ?
		WHERE user_id = ? AND id = ?`,
		update.Label, category, models.ProvenanceUserConfirmed, toMillis(r.now()), userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm anchor: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return r.Get(ctx, userID, id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnchor(row rowScanner) (*models.Anchor, error) {
	var a models.Anchor
	var first, last int64
	err := row.Scan(&a.ID, &a.UserID, &a.Latitude, &a.Longitude, &a.RadiusM, &a.Geohash,
		&a.Label, &a.Category, &a.Provenance, &a.VisitCount, &first, &last)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan anchor: %w", err)
	}
	a.FirstSeen, a.LastSeen = fromMillis(first), fromMillis(last)
	return &a, nil
}

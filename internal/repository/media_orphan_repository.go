package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/council-portal-api/internal/models"
)

// MediaOrphanRepository tracks stored objects whose cleanup failed.
type MediaOrphanRepository struct {
	db *sqlx.DB
}

// NewMediaOrphanRepository creates the repository.
func NewMediaOrphanRepository(db *sqlx.DB) *MediaOrphanRepository {
	return &MediaOrphanRepository{db: db}
}

// Create records an orphan.
func (r *MediaOrphanRepository) Create(ctx context.Context, orphan *models.MediaOrphan) error {
	if orphan.ID == "" {
		orphan.ID = uuid.NewString()
	}
	if orphan.CreatedAt.IsZero() {
		orphan.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO media_orphans (id, bucket, path, reason, attempts, last_error, created_at)
VALUES (:id, :bucket, :path, :reason, :attempts, :last_error, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, orphan); err != nil {
		return fmt.Errorf("create media orphan: %w", err)
	}
	return nil
}

// ListUnresolved returns the oldest unresolved orphans, at most limit.
func (r *MediaOrphanRepository) ListUnresolved(ctx context.Context, limit int) ([]models.MediaOrphan, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT id, bucket, path, reason, attempts, last_error, created_at, resolved_at
FROM media_orphans WHERE resolved_at IS NULL ORDER BY created_at ASC LIMIT %d`, limit)
	orphans := make([]models.MediaOrphan, 0)
	if err := r.db.SelectContext(ctx, &orphans, query); err != nil {
		return nil, fmt.Errorf("list media orphans: %w", err)
	}
	return orphans, nil
}

// MarkResolved stamps the orphan as cleaned up.
func (r *MediaOrphanRepository) MarkResolved(ctx context.Context, id string, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE media_orphans SET resolved_at = $2, attempts = attempts + 1, last_error = NULL WHERE id = $1`, id, at); err != nil {
		return fmt.Errorf("resolve media orphan: %w", err)
	}
	return nil
}

// RecordFailure bumps the attempt counter and keeps the latest error.
func (r *MediaOrphanRepository) RecordFailure(ctx context.Context, id, message string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE media_orphans SET attempts = attempts + 1, last_error = $2 WHERE id = $1`, id, message); err != nil {
		return fmt.Errorf("record media orphan failure: %w", err)
	}
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/council-portal-api/internal/models"
)

const noticeColumns = "id, content, link_url, is_active, created_at, updated_at"

// NoticeRepository provides persistence for notices.
type NoticeRepository struct {
	db *sqlx.DB
}

// NewNoticeRepository creates the repository.
func NewNoticeRepository(db *sqlx.DB) *NoticeRepository {
	return &NoticeRepository{db: db}
}

// List returns notices newest first by the requested timestamp.
func (r *NoticeRepository) List(ctx context.Context, filter models.NoticeFilter) ([]models.Notice, error) {
	query := "SELECT " + noticeColumns + " FROM notices"
	if filter.ActiveOnly {
		query += " WHERE is_active = TRUE"
	}
	order := filter.OrderBy
	if order != models.NoticeOrderCreated {
		order = models.NoticeOrderUpdated
	}
	query += fmt.Sprintf(" ORDER BY %s DESC", order)
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	notices := make([]models.Notice, 0)
	if err := r.db.SelectContext(ctx, &notices, query); err != nil {
		return nil, fmt.Errorf("list notices: %w", err)
	}
	return notices, nil
}

// GetByID returns a notice by identifier.
func (r *NoticeRepository) GetByID(ctx context.Context, id string) (*models.Notice, error) {
	var notice models.Notice
	if err := r.db.GetContext(ctx, &notice, "SELECT "+noticeColumns+" FROM notices WHERE id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get notice: %w", err)
	}
	return &notice, nil
}

// Create inserts a notice.
func (r *NoticeRepository) Create(ctx context.Context, notice *models.Notice) error {
	if notice.ID == "" {
		notice.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if notice.CreatedAt.IsZero() {
		notice.CreatedAt = now
	}
	notice.UpdatedAt = now
	const query = `INSERT INTO notices (id, content, link_url, is_active, created_at, updated_at)
VALUES (:id, :content, :link_url, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, notice); err != nil {
		return fmt.Errorf("create notice: %w", err)
	}
	return nil
}

// Delete removes a notice. It returns sql.ErrNoRows when nothing matched.
func (r *NoticeRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.db, "notices", id)
}

func deleteByID(ctx context.Context, db *sqlx.DB, table, id string) error {
	res, err := db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", table), id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

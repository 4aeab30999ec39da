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

const memberColumns = "id, name, role, rank, image_url, COALESCE(category, '') AS category, created_at"

// MemberRepository provides persistence for council members.
type MemberRepository struct {
	db *sqlx.DB
}

// NewMemberRepository creates the repository.
func NewMemberRepository(db *sqlx.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

// List returns members by rank, ties broken by insertion order, unless NewestFirst is set.
func (r *MemberRepository) List(ctx context.Context, filter models.MemberFilter) ([]models.Member, error) {
	order := "rank ASC, created_at ASC"
	if filter.NewestFirst {
		order = "created_at DESC"
	}
	query := "SELECT " + memberColumns + " FROM members ORDER BY " + order

	members := make([]models.Member, 0)
	if err := r.db.SelectContext(ctx, &members, query); err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

// GetByID returns a member by identifier.
func (r *MemberRepository) GetByID(ctx context.Context, id string) (*models.Member, error) {
	var member models.Member
	if err := r.db.GetContext(ctx, &member, "SELECT "+memberColumns+" FROM members WHERE id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get member: %w", err)
	}
	return &member, nil
}

// Create inserts a member. An empty category is stored as NULL.
func (r *MemberRepository) Create(ctx context.Context, member *models.Member) error {
	if member.ID == "" {
		member.ID = uuid.NewString()
	}
	if member.CreatedAt.IsZero() {
		member.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO members (id, name, role, rank, image_url, category, created_at)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)`
	if _, err := r.db.ExecContext(ctx, query, member.ID, member.Name, member.Role, member.Rank, member.ImageURL, string(member.Category), member.CreatedAt); err != nil {
		return fmt.Errorf("create member: %w", err)
	}
	return nil
}

// Delete removes a member. It returns sql.ErrNoRows when nothing matched.
func (r *MemberRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.db, "members", id)
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/council-portal-api/internal/models"
	appErrors "github.com/noah-isme/council-portal-api/pkg/errors"
	"github.com/noah-isme/council-portal-api/pkg/realtime"
)

type memberRepository interface {
	List(ctx context.Context, filter models.MemberFilter) ([]models.Member, error)
	GetByID(ctx context.Context, id string) (*models.Member, error)
	Create(ctx context.Context, member *models.Member) error
	Delete(ctx context.Context, id string) error
}

// CreateMemberRequest is the admin payload for a new member.
type CreateMemberRequest struct {
	Name     string  `json:"name" validate:"required,max=120"`
	Role     string  `json:"role" validate:"required,max=120"`
	Rank     int     `json:"rank" validate:"required,min=1,max=7"`
	ImageURL *string `json:"image_url" validate:"omitempty,url"`
	Category string  `json:"category" validate:"omitempty,oneof=student administration"`
}

// MemberService manages team members and their profile photos.
type MemberService struct {
	repo      memberRepository
	media     linkedMediaRemover
	validator *validator.Validate
	hooks     *ContentHooks
	logger    *zap.Logger
}

// NewMemberService constructs the service.
func NewMemberService(repo memberRepository, media linkedMediaRemover, validate *validator.Validate, hooks *ContentHooks, logger *zap.Logger) *MemberService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemberService{repo: repo, media: media, validator: validate, hooks: hooks, logger: logger}
}

// List returns every member, newest first.
func (s *MemberService) List(ctx context.Context) ([]models.Member, error) {
	members, err := s.repo.List(ctx, models.MemberFilter{NewestFirst: true})
	if err != nil {
		return nil, backendError(err, "failed to list members")
	}
	return members, nil
}

// Create validates and stores a member. An empty category means student.
func (s *MemberService) Create(ctx context.Context, req CreateMemberRequest, actor Actor) (*models.Member, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Role = strings.TrimSpace(req.Role)
	req.Category = strings.ToLower(strings.TrimSpace(req.Category))
	req.ImageURL = optionalString(req.ImageURL)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "")
	}
	category := models.MemberCategory(req.Category)
	if category == "" {
		category = models.MemberCategoryStudent
	}

	member := &models.Member{
		Name:     req.Name,
		Role:     req.Role,
		Rank:     req.Rank,
		ImageURL: req.ImageURL,
		Category: category,
	}
	if err := s.repo.Create(ctx, member); err != nil {
		return nil, backendError(err, "failed to create member")
	}
	s.hooks.Changed(ctx, string(models.TableMembers), realtime.ActionInsert, member.ID, actor, member)
	return member, nil
}

// Delete removes a member and, best effort, the profile photo.
func (s *MemberService) Delete(ctx context.Context, id string, actor Actor) error {
	member, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "member not found")
		}
		return backendError(err, "failed to load member")
	}
	if member.ImageURL != nil && s.media != nil {
		s.media.RemoveLinked(ctx, models.MediaKindMember, *member.ImageURL, "member "+id+" deleted")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "member not found")
		}
		return backendError(err, "failed to delete member")
	}
	s.hooks.Changed(ctx, string(models.TableMembers), realtime.ActionDelete, id, actor, member)
	return nil
}

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

type noticeRepository interface {
	List(ctx context.Context, filter models.NoticeFilter) ([]models.Notice, error)
	GetByID(ctx context.Context, id string) (*models.Notice, error)
	Create(ctx context.Context, notice *models.Notice) error
	Delete(ctx context.Context, id string) error
}

// CreateNoticeRequest is the admin payload for a new notice.
type CreateNoticeRequest struct {
	Content  string  `json:"content" validate:"required,max=2000"`
	LinkURL  *string `json:"link_url" validate:"omitempty,url"`
	IsActive *bool   `json:"is_active"`
}

// NoticeService manages notices.
type NoticeService struct {
	repo      noticeRepository
	validator *validator.Validate
	hooks     *ContentHooks
	logger    *zap.Logger
}

// NewNoticeService constructs the service.
func NewNoticeService(repo noticeRepository, validate *validator.Validate, hooks *ContentHooks, logger *zap.Logger) *NoticeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NoticeService{repo: repo, validator: validate, hooks: hooks, logger: logger}
}

// List returns every notice, newest first by creation time.
func (s *NoticeService) List(ctx context.Context) ([]models.Notice, error) {
	notices, err := s.repo.List(ctx, models.NoticeFilter{OrderBy: models.NoticeOrderCreated})
	if err != nil {
		return nil, backendError(err, "failed to list notices")
	}
	return notices, nil
}

// Create validates and stores a notice. is_active defaults to true.
func (s *NoticeService) Create(ctx context.Context, req CreateNoticeRequest, actor Actor) (*models.Notice, error) {
	req.Content = strings.TrimSpace(req.Content)
	req.LinkURL = optionalString(req.LinkURL)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "")
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	notice := &models.Notice{Content: req.Content, LinkURL: req.LinkURL, IsActive: active}
	if err := s.repo.Create(ctx, notice); err != nil {
		return nil, backendError(err, "failed to create notice")
	}
	s.hooks.Changed(ctx, string(models.TableNotices), realtime.ActionInsert, notice.ID, actor, notice)
	return notice, nil
}

// Delete removes a notice. Notices own no media.
func (s *NoticeService) Delete(ctx context.Context, id string, actor Actor) error {
	notice, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notice not found")
		}
		return backendError(err, "failed to load notice")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notice not found")
		}
		return backendError(err, "failed to delete notice")
	}
	s.hooks.Changed(ctx, string(models.TableNotices), realtime.ActionDelete, id, actor, notice)
	return nil
}

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

type eventRepository interface {
	List(ctx context.Context, filter models.EventFilter) ([]models.Event, error)
	GetByID(ctx context.Context, id string) (*models.Event, error)
	Create(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, id string) error
}

type linkedMediaRemover interface {
	RemoveLinked(ctx context.Context, kind models.MediaKind, imageURL, reason string)
}

// CreateEventRequest is the admin payload for a new event.
type CreateEventRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	EventDate   string  `json:"event_date" validate:"required,datetime=2006-01-02"`
	Description string  `json:"description"`
	ImageURL    *string `json:"image_url" validate:"omitempty,url"`
	Location    *string `json:"location" validate:"omitempty,max=200"`
	RegLink     *string `json:"reg_link" validate:"omitempty,url"`
	SummaryText *string `json:"summary_text"`
}

// EventService manages events and the image each may own.
type EventService struct {
	repo      eventRepository
	media     linkedMediaRemover
	validator *validator.Validate
	hooks     *ContentHooks
	logger    *zap.Logger
}

// NewEventService constructs the service.
func NewEventService(repo eventRepository, media linkedMediaRemover, validate *validator.Validate, hooks *ContentHooks, logger *zap.Logger) *EventService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{repo: repo, media: media, validator: validate, hooks: hooks, logger: logger}
}

// List returns every event, newest created first.
func (s *EventService) List(ctx context.Context) ([]models.Event, error) {
	events, err := s.repo.List(ctx, models.EventFilter{})
	if err != nil {
		return nil, backendError(err, "failed to list events")
	}
	return events, nil
}

// Create validates and stores an event.
func (s *EventService) Create(ctx context.Context, req CreateEventRequest, actor Actor) (*models.Event, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.EventDate = strings.TrimSpace(req.EventDate)
	req.Description = strings.TrimSpace(req.Description)
	req.ImageURL = optionalString(req.ImageURL)
	req.Location = optionalString(req.Location)
	req.RegLink = optionalString(req.RegLink)
	req.SummaryText = optionalString(req.SummaryText)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "")
	}

	event := &models.Event{
		Title:       req.Title,
		EventDate:   req.EventDate,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Location:    req.Location,
		RegLink:     req.RegLink,
		SummaryText: req.SummaryText,
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, backendError(err, "failed to create event")
	}
	s.hooks.Changed(ctx, string(models.TableEvents), realtime.ActionInsert, event.ID, actor, event)
	return event, nil
}

// Delete removes an event. Its image is removed first; a failed file delete is
// recorded as an orphan and does not stop the row delete.
func (s *EventService) Delete(ctx context.Context, id string, actor Actor) error {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return backendError(err, "failed to load event")
	}
	if event.ImageURL != nil && s.media != nil {
		s.media.RemoveLinked(ctx, models.MediaKindEvent, *event.ImageURL, "event "+id+" deleted")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return backendError(err, "failed to delete event")
	}
	s.hooks.Changed(ctx, string(models.TableEvents), realtime.ActionDelete, id, actor, event)
	return nil
}

package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/council-portal-api/internal/models"
	appErrors "github.com/noah-isme/council-portal-api/pkg/errors"
)

// DraftActionType names a draft transition.
type DraftActionType string

const (
	ActionSetFields   DraftActionType = "set_fields"
	ActionAttachImage DraftActionType = "attach_image"
	ActionReset       DraftActionType = "reset"
)

// DraftAction is one input to ReduceDraft.
type DraftAction struct {
	Type     DraftActionType
	Fields   json.RawMessage
	ImageURL string
}

type draftStore interface {
	Get(ctx context.Context, userID string, table models.ContentTable) (*models.Draft, bool, error)
	Save(ctx context.Context, userID string, draft *models.Draft) error
	Delete(ctx context.Context, userID string, table models.ContentTable) error
}

type mediaUploader interface {
	Upload(ctx context.Context, kind models.MediaKind, files []UploadFile, actor Actor) ([]models.MediaUpload, error)
}

type noticeCreator interface {
	Create(ctx context.Context, req CreateNoticeRequest, actor Actor) (*models.Notice, error)
}

type eventCreator interface {
	Create(ctx context.Context, req CreateEventRequest, actor Actor) (*models.Event, error)
}

type memberCreator interface {
	Create(ctx context.Context, req CreateMemberRequest, actor Actor) (*models.Member, error)
}

// ReduceDraft applies action to draft and returns the next state. The input is
// not modified.
func ReduceDraft(draft models.Draft, action DraftAction, now time.Time) (models.Draft, error) {
	switch action.Type {
	case ActionReset:
		next := models.NewDraft(draft.Table)
		next.UpdatedAt = now
		return next, nil
	case ActionSetFields:
		next, err := mergeFields(draft, action.Fields)
		if err != nil {
			return draft, err
		}
		next.UpdatedAt = now
		return next, nil
	case ActionAttachImage:
		url := strings.TrimSpace(action.ImageURL)
		if url == "" {
			return draft, appErrors.Clone(appErrors.ErrValidation, "image url is required")
		}
		next := draft
		switch {
		case draft.Event != nil:
			event := *draft.Event
			event.ImageURL = url
			next.Event = &event
		case draft.Member != nil:
			member := *draft.Member
			member.ImageURL = url
			next.Member = &member
		default:
			return draft, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s drafts have no image", draft.Table))
		}
		next.UpdatedAt = now
		return next, nil
	default:
		return draft, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown draft action %q", action.Type))
	}
}

func mergeFields(draft models.Draft, fields json.RawMessage) (models.Draft, error) {
	if len(bytes.TrimSpace(fields)) == 0 {
		return draft, appErrors.Clone(appErrors.ErrValidation, "no fields provided")
	}
	decode := func(dest interface{}) error {
		dec := json.NewDecoder(bytes.NewReader(fields))
		dec.DisallowUnknownFields()
		if err := dec.Decode(dest); err != nil {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid draft fields: %v", err))
		}
		return nil
	}

	next := draft
	switch {
	case draft.Notice != nil:
		notice := *draft.Notice
		if err := decode(&notice); err != nil {
			return draft, err
		}
		next.Notice = &notice
	case draft.Event != nil:
		event := *draft.Event
		if err := decode(&event); err != nil {
			return draft, err
		}
		next.Event = &event
	case draft.Member != nil:
		member := *draft.Member
		if err := decode(&member); err != nil {
			return draft, err
		}
		next.Member = &member
	default:
		return draft, appErrors.Clone(appErrors.ErrValidation, "draft has no form")
	}
	return next, nil
}

// DraftService keeps each admin's unsaved form per table and submits it.
type DraftService struct {
	store   draftStore
	media   mediaUploader
	notices noticeCreator
	events  eventCreator
	members memberCreator
	logger  *zap.Logger
	now     func() time.Time
}

// DraftServiceParams groups constructor dependencies.
type DraftServiceParams struct {
	Store   draftStore
	Media   mediaUploader
	Notices noticeCreator
	Events  eventCreator
	Members memberCreator
	Logger  *zap.Logger
}

// NewDraftService constructs the service.
func NewDraftService(params DraftServiceParams) *DraftService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DraftService{
		store:   params.Store,
		media:   params.Media,
		notices: params.Notices,
		events:  params.Events,
		members: params.Members,
		logger:  logger,
		now:     time.Now,
	}
}

// Get returns the stored draft or the defaults for table.
func (s *DraftService) Get(ctx context.Context, userID string, table models.ContentTable) (*models.Draft, error) {
	draft, found, err := s.store.Get(ctx, userID, table)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load draft")
	}
	if !found || draft == nil {
		fresh := models.NewDraft(table)
		return &fresh, nil
	}
	return draft, nil
}

// Apply runs action against the stored draft and persists the result.
func (s *DraftService) Apply(ctx context.Context, userID string, table models.ContentTable, action DraftAction) (*models.Draft, error) {
	current, err := s.Get(ctx, userID, table)
	if err != nil {
		return nil, err
	}
	next, err := ReduceDraft(*current, action, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, userID, &next); err != nil {
		return nil, appErrors.Internal(err, "failed to save draft")
	}
	return &next, nil
}

// SetFields merges a partial form into the draft.
func (s *DraftService) SetFields(ctx context.Context, userID string, table models.ContentTable, fields json.RawMessage) (*models.Draft, error) {
	return s.Apply(ctx, userID, table, DraftAction{Type: ActionSetFields, Fields: fields})
}

// AttachImage uploads one image into the table's folder and writes its public
// URL into the draft.
func (s *DraftService) AttachImage(ctx context.Context, userID string, table models.ContentTable, file UploadFile, actor Actor) (*models.Draft, error) {
	var kind models.MediaKind
	switch table {
	case models.TableEvents:
		kind = models.MediaKindEvent
	case models.TableMembers:
		kind = models.MediaKindMember
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s drafts have no image", table))
	}
	uploads, err := s.media.Upload(ctx, kind, []UploadFile{file}, actor)
	if err != nil {
		return nil, err
	}
	if len(uploads) == 0 {
		return nil, appErrors.Clone(appErrors.ErrInternal, "upload returned no file")
	}
	return s.Apply(ctx, userID, table, DraftAction{Type: ActionAttachImage, ImageURL: uploads[0].PublicURL})
}

// Reset discards the stored draft and returns the defaults.
func (s *DraftService) Reset(ctx context.Context, userID string, table models.ContentTable) (*models.Draft, error) {
	if err := s.store.Delete(ctx, userID, table); err != nil {
		return nil, appErrors.Internal(err, "failed to reset draft")
	}
	fresh := models.NewDraft(table)
	return &fresh, nil
}

// Submit inserts the draft as a new row. On failure the draft is kept as is.
func (s *DraftService) Submit(ctx context.Context, userID string, table models.ContentTable, actor Actor) (interface{}, error) {
	draft, err := s.Get(ctx, userID, table)
	if err != nil {
		return nil, err
	}

	var row interface{}
	switch {
	case draft.Notice != nil:
		active := draft.Notice.IsActive
		row, err = s.notices.Create(ctx, CreateNoticeRequest{
			Content:  draft.Notice.Content,
			LinkURL:  optionalString(&draft.Notice.LinkURL),
			IsActive: &active,
		}, actor)
	case draft.Event != nil:
		row, err = s.events.Create(ctx, CreateEventRequest{
			Title:       draft.Event.Title,
			EventDate:   draft.Event.EventDate,
			Description: draft.Event.Description,
			ImageURL:    optionalString(&draft.Event.ImageURL),
			Location:    optionalString(&draft.Event.Location),
			RegLink:     optionalString(&draft.Event.RegLink),
			SummaryText: optionalString(&draft.Event.SummaryText),
		}, actor)
	case draft.Member != nil:
		row, err = s.members.Create(ctx, CreateMemberRequest{
			Name:     draft.Member.Name,
			Role:     draft.Member.Role,
			Rank:     draft.Member.Rank,
			ImageURL: optionalString(&draft.Member.ImageURL),
			Category: draft.Member.Category,
		}, actor)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "draft has no form")
	}
	if err != nil {
		return nil, err
	}

	if err := s.store.Delete(ctx, userID, table); err != nil {
		s.logger.Warn("draft reset after submit failed", zap.String("user_id", userID), zap.String("table", string(table)), zap.Error(err))
	}
	return row, nil
}

package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noah-isme/council-portal-api/internal/models"
	"github.com/noah-isme/council-portal-api/internal/service"
	appErrors "github.com/noah-isme/council-portal-api/pkg/errors"
	"github.com/noah-isme/council-portal-api/pkg/response"
)

type noticeAdminService interface {
	List(ctx context.Context) ([]models.Notice, error)
	Create(ctx context.Context, req service.CreateNoticeRequest, actor service.Actor) (*models.Notice, error)
	Delete(ctx context.Context, id string, actor service.Actor) error
}

type eventAdminService interface {
	List(ctx context.Context) ([]models.Event, error)
	Create(ctx context.Context, req service.CreateEventRequest, actor service.Actor) (*models.Event, error)
	Delete(ctx context.Context, id string, actor service.Actor) error
}

type memberAdminService interface {
	List(ctx context.Context) ([]models.Member, error)
	Create(ctx context.Context, req service.CreateMemberRequest, actor service.Actor) (*models.Member, error)
	Delete(ctx context.Context, id string, actor service.Actor) error
}

// ContentHandler exposes admin CRUD for notices, events, and members. Deletes
// are mounted behind the confirmation middleware.
type ContentHandler struct {
	notices noticeAdminService
	events  eventAdminService
	members memberAdminService
}

// NewContentHandler constructs the handler.
func NewContentHandler(notices noticeAdminService, events eventAdminService, members memberAdminService) *ContentHandler {
	return &ContentHandler{notices: notices, events: events, members: members}
}

// ListNotices godoc
// @Summary List notices
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/notices [get]
func (h *ContentHandler) ListNotices(c *gin.Context) {
	notices, err := h.notices.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notices, nil)
}

// CreateNotice godoc
// @Summary Create notice
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateNoticeRequest true "Notice"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/notices [post]
func (h *ContentHandler) CreateNotice(c *gin.Context) {
	var req service.CreateNoticeRequest
	if !bindJSON(c, &req, "invalid notice payload") {
		return
	}
	notice, err := h.notices.Create(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, notice)
}

// DeleteNotice godoc
// @Summary Delete notice
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Notice ID"
// @Param confirm query bool true "Must be true"
// @Success 204
// @Failure 412 {object} response.Envelope
// @Router /admin/notices/{id} [delete]
func (h *ContentHandler) DeleteNotice(c *gin.Context) {
	h.delete(c, h.notices.Delete)
}

// ListEvents godoc
// @Summary List events
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/events [get]
func (h *ContentHandler) ListEvents(c *gin.Context) {
	events, err := h.events.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}

// CreateEvent godoc
// @Summary Create event
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateEventRequest true "Event"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/events [post]
func (h *ContentHandler) CreateEvent(c *gin.Context) {
	var req service.CreateEventRequest
	if !bindJSON(c, &req, "invalid event payload") {
		return
	}
	event, err := h.events.Create(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, event)
}

// DeleteEvent godoc
// @Summary Delete event and its image
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Param confirm query bool true "Must be true"
// @Success 204
// @Failure 412 {object} response.Envelope
// @Router /admin/events/{id} [delete]
func (h *ContentHandler) DeleteEvent(c *gin.Context) {
	h.delete(c, h.events.Delete)
}

// ListMembers godoc
// @Summary List members
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/members [get]
func (h *ContentHandler) ListMembers(c *gin.Context) {
	members, err := h.members.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, members, nil)
}

// CreateMember godoc
// @Summary Create member
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateMemberRequest true "Member"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/members [post]
func (h *ContentHandler) CreateMember(c *gin.Context) {
	var req service.CreateMemberRequest
	if !bindJSON(c, &req, "invalid member payload") {
		return
	}
	member, err := h.members.Create(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, member)
}

// DeleteMember godoc
// @Summary Delete member and portrait
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Member ID"
// @Param confirm query bool true "Must be true"
// @Success 204
// @Failure 412 {object} response.Envelope
// @Router /admin/members/{id} [delete]
func (h *ContentHandler) DeleteMember(c *gin.Context) {
	h.delete(c, h.members.Delete)
}

func (h *ContentHandler) delete(c *gin.Context, remove func(ctx context.Context, id string, actor service.Actor) error) {
	raw := strings.TrimSpace(c.Param("id"))
	if raw == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "id is required"))
		return
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "id must be a UUID"))
		return
	}
	if err := remove(c.Request.Context(), id.String(), actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

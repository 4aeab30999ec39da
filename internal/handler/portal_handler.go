package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/council-portal-api/internal/dto"
	"github.com/noah-isme/council-portal-api/internal/models"
	appErrors "github.com/noah-isme/council-portal-api/pkg/errors"
	"github.com/noah-isme/council-portal-api/pkg/response"
)

type portalService interface {
	Home(ctx context.Context) (*dto.HomeResponse, bool, error)
	Notices(ctx context.Context) (*dto.NoticeArchiveResponse, bool, error)
	Events(ctx context.Context, partition models.EventPartition) (*dto.EventsResponse, bool, error)
	Team(ctx context.Context) (*models.TeamRoster, bool, error)
	Gallery(ctx context.Context) (*dto.GalleryResponse, bool, error)
}

type contactService interface {
	Submit(ctx context.Context, msg models.ContactMessage) (string, error)
}

// PortalHandler serves the public pages.
type PortalHandler struct {
	portal  portalService
	contact contactService
	maxAge  time.Duration
}

// NewPortalHandler constructs the handler. maxAge bounds browser caching of public payloads.
func NewPortalHandler(portal portalService, contact contactService, maxAge time.Duration) *PortalHandler {
	return &PortalHandler{portal: portal, contact: contact, maxAge: maxAge}
}

// Home godoc
// @Summary Home page digest
// @Description Newest gallery images and active notices
// @Tags Portal
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /home [get]
func (h *PortalHandler) Home(c *gin.Context) {
	data, hit, err := h.portal.Home(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Public(c, data, h.maxAge, cacheMeta(c, hit))
}

// Notices godoc
// @Summary Notices archive
// @Description All notices, latest update first, with rendered Markdown
// @Tags Portal
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notices [get]
func (h *PortalHandler) Notices(c *gin.Context) {
	data, hit, err := h.portal.Notices(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Public(c, data, h.maxAge, cacheMeta(c, hit))
}

// Events godoc
// @Summary Events by partition
// @Tags Portal
// @Produce json
// @Param filter query string false "upcoming (default) or past"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /events [get]
func (h *PortalHandler) Events(c *gin.Context) {
	partition, ok := models.ParseEventPartition(strings.ToLower(strings.TrimSpace(c.Query("filter"))))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "filter must be upcoming or past"))
		return
	}
	data, hit, err := h.portal.Events(c.Request.Context(), partition)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Public(c, data, h.maxAge, cacheMeta(c, hit))
}

// Team godoc
// @Summary Team roster
// @Description Administration and student council grouped by tier
// @Tags Portal
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /team [get]
func (h *PortalHandler) Team(c *gin.Context) {
	data, hit, err := h.portal.Team(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Public(c, data, h.maxAge, cacheMeta(c, hit))
}

// Gallery godoc
// @Summary Gallery media
// @Tags Portal
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /gallery [get]
func (h *PortalHandler) Gallery(c *gin.Context) {
	data, hit, err := h.portal.Gallery(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Public(c, data, h.maxAge, cacheMeta(c, hit))
}

// Contact godoc
// @Summary Send a contact message
// @Tags Portal
// @Accept json
// @Produce json
// @Param payload body models.ContactMessage true "Contact form"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /contact [post]
func (h *PortalHandler) Contact(c *gin.Context) {
	var msg models.ContactMessage
	if !bindJSON(c, &msg, "invalid contact payload") {
		return
	}
	id, err := h.contact.Submit(c.Request.Context(), msg)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, gin.H{"accepted": true, "message_id": id}, nil)
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/council-portal-api/internal/models"
	"github.com/noah-isme/council-portal-api/internal/service"
	appErrors "github.com/noah-isme/council-portal-api/pkg/errors"
	"github.com/noah-isme/council-portal-api/pkg/response"
)

type draftService interface {
	Get(ctx context.Context, userID string, table models.ContentTable) (*models.Draft, error)
	SetFields(ctx context.Context, userID string, table models.ContentTable, fields json.RawMessage) (*models.Draft, error)
	AttachImage(ctx context.Context, userID string, table models.ContentTable, file service.UploadFile, actor service.Actor) (*models.Draft, error)
	Reset(ctx context.Context, userID string, table models.ContentTable) (*models.Draft, error)
	Submit(ctx context.Context, userID string, table models.ContentTable, actor service.Actor) (interface{}, error)
}

// DraftHandler exposes each admin's unsaved forms.
type DraftHandler struct {
	service      draftService
	maxBodyBytes int64
}

// NewDraftHandler constructs the handler.
func NewDraftHandler(svc draftService, maxBodyBytes int64) *DraftHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = 50 << 20
	}
	return &DraftHandler{service: svc, maxBodyBytes: maxBodyBytes}
}

func (h *DraftHandler) scope(c *gin.Context) (string, models.ContentTable, bool) {
	claims, ok := requireClaims(c)
	if !ok {
		return "", "", false
	}
	table, valid := models.ParseContentTable(c.Param("table"))
	if !valid {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "table must be notices, events, or members"))
		return "", "", false
	}
	return claims.UserID, table, true
}

// Get godoc
// @Summary Current draft
// @Tags Drafts
// @Produce json
// @Security BearerAuth
// @Param table path string true "notices, events, or members"
// @Success 200 {object} response.Envelope
// @Router /admin/drafts/{table} [get]
func (h *DraftHandler) Get(c *gin.Context) {
	userID, table, ok := h.scope(c)
	if !ok {
		return
	}
	draft, err := h.service.Get(c.Request.Context(), userID, table)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, draft, nil)
}

// Patch godoc
// @Summary Merge draft fields
// @Tags Drafts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param table path string true "notices, events, or members"
// @Param payload body object true "Partial form"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/drafts/{table} [patch]
func (h *DraftHandler) Patch(c *gin.Context) {
	userID, table, ok := h.scope(c)
	if !ok {
		return
	}
	raw, err := c.GetRawData()
	if err != nil || !json.Valid(raw) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid draft payload"))
		return
	}
	draft, err := h.service.SetFields(c.Request.Context(), userID, table, raw)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, draft, nil)
}

// Image godoc
// @Summary Upload draft image
// @Description Uploads one image into the table's folder and writes its URL into image_url
// @Tags Drafts
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param table path string true "events or members"
// @Param file formData file true "Image"
// @Success 200 {object} response.Envelope
// @Router /admin/drafts/{table}/image [post]
func (h *DraftHandler) Image(c *gin.Context) {
	userID, table, ok := h.scope(c)
	if !ok {
		return
	}
	headers, err := multipartFiles(c, h.maxBodyBytes, "file")
	if err != nil {
		response.Error(c, err)
		return
	}
	if len(headers) != 1 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "exactly one file is required"))
		return
	}
	files, closeAll, err := openUploads(headers)
	defer closeAll()
	if err != nil {
		response.Error(c, err)
		return
	}
	draft, err := h.service.AttachImage(c.Request.Context(), userID, table, files[0], actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, draft, nil)
}

// Submit godoc
// @Summary Submit draft
// @Description Inserts the draft. On success the draft resets; on failure it is kept.
// @Tags Drafts
// @Produce json
// @Security BearerAuth
// @Param table path string true "notices, events, or members"
// @Success 201 {object} response.Envelope
// @Router /admin/drafts/{table}/submit [post]
func (h *DraftHandler) Submit(c *gin.Context) {
	userID, table, ok := h.scope(c)
	if !ok {
		return
	}
	row, err := h.service.Submit(c.Request.Context(), userID, table, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, row)
}

// Reset godoc
// @Summary Reset draft
// @Tags Drafts
// @Produce json
// @Security BearerAuth
// @Param table path string true "notices, events, or members"
// @Success 200 {object} response.Envelope
// @Router /admin/drafts/{table} [delete]
func (h *DraftHandler) Reset(c *gin.Context) {
	userID, table, ok := h.scope(c)
	if !ok {
		return
	}
	draft, err := h.service.Reset(c.Request.Context(), userID, table)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, draft, nil)
}

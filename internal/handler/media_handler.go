package handler

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/council-portal-api/internal/models"
	"github.com/noah-isme/council-portal-api/internal/service"
	appErrors "github.com/noah-isme/council-portal-api/pkg/errors"
	"github.com/noah-isme/council-portal-api/pkg/response"
)

type mediaService interface {
	Upload(ctx context.Context, kind models.MediaKind, files []service.UploadFile, actor service.Actor) ([]models.MediaUpload, error)
	List(ctx context.Context, kind models.MediaKind, limit int) ([]models.MediaAsset, error)
	DeleteGallery(ctx context.Context, name string, actor service.Actor) error
}

// MediaHandler exposes admin uploads and media listings.
type MediaHandler struct {
	service      mediaService
	maxBodyBytes int64
}

// NewMediaHandler constructs the handler. maxBodyBytes caps a whole multipart request.
func NewMediaHandler(svc mediaService, maxBodyBytes int64) *MediaHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = 200 << 20
	}
	return &MediaHandler{service: svc, maxBodyBytes: maxBodyBytes}
}

// Upload godoc
// @Summary Upload media
// @Description Stores one or more files under the kind's folder. Event and member uploads take a single image.
// @Tags Media
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param kind path string true "event, member, or gallery"
// @Param files formData file true "Files"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 415 {object} response.Envelope
// @Router /admin/media/{kind} [post]
func (h *MediaHandler) Upload(c *gin.Context) {
	kind, ok := models.ParseMediaKind(c.Param("kind"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "kind must be event, member, or gallery"))
		return
	}
	headers, err := multipartFiles(c, h.maxBodyBytes, "files")
	if err != nil {
		response.Error(c, err)
		return
	}

	files, closeAll, err := openUploads(headers)
	defer closeAll()
	if err != nil {
		response.Error(c, err)
		return
	}

	uploads, err := h.service.Upload(c.Request.Context(), kind, files, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, uploads)
}

// List godoc
// @Summary List media folder
// @Tags Media
// @Produce json
// @Security BearerAuth
// @Param kind path string true "event, member, or gallery"
// @Param limit query int false "Maximum entries (default 100)"
// @Success 200 {object} response.Envelope
// @Router /admin/media/{kind} [get]
func (h *MediaHandler) List(c *gin.Context) {
	kind, ok := models.ParseMediaKind(c.Param("kind"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "kind must be event, member, or gallery"))
		return
	}
	limit := 100
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 1000 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be between 1 and 1000"))
			return
		}
		limit = parsed
	}
	assets, err := h.service.List(c.Request.Context(), kind, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assets, nil)
}

// DeleteGallery godoc
// @Summary Delete gallery media
// @Tags Media
// @Produce json
// @Security BearerAuth
// @Param name path string true "Object name"
// @Param confirm query bool true "Must be true"
// @Success 204
// @Failure 412 {object} response.Envelope
// @Router /admin/media/gallery/{name} [delete]
func (h *MediaHandler) DeleteGallery(c *gin.Context) {
	if err := h.service.DeleteGallery(c.Request.Context(), c.Param("name"), actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func multipartFiles(c *gin.Context, maxBodyBytes int64, field string) ([]*multipart.FileHeader, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("request exceeds %d bytes", maxBodyBytes))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid multipart payload")
	}
	headers := form.File[field]
	if len(headers) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s is required", field))
	}
	return headers, nil
}

func openUploads(headers []*multipart.FileHeader) ([]service.UploadFile, func(), error) {
	opened := make([]multipart.File, 0, len(headers))
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}
	files := make([]service.UploadFile, 0, len(headers))
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			return nil, closeAll, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to read "+header.Filename)
		}
		opened = append(opened, f)
		files = append(files, service.UploadFile{Name: header.Filename, Size: header.Size, Reader: f})
	}
	return files, closeAll, nil
}

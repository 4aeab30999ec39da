package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/council-portal-api/internal/service"
	appErrors "github.com/noah-isme/council-portal-api/pkg/errors"
	"github.com/noah-isme/council-portal-api/pkg/export"
	"github.com/noah-isme/council-portal-api/pkg/response"
)

type rosterExporter interface {
	Roster(ctx context.Context, format export.Format) (*service.ExportResult, error)
}

// ExportHandler streams roster exports.
type ExportHandler struct {
	service rosterExporter
}

// NewExportHandler constructs the handler.
func NewExportHandler(svc rosterExporter) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Roster godoc
// @Summary Export team roster
// @Tags Admin
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /admin/members/export [get]
func (h *ExportHandler) Roster(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, appErrors.Validation(err, ""))
		return
	}
	result, err := h.service.Roster(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, result.ContentType, result.Content)
}

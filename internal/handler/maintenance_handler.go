package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/council-portal-api/pkg/errors"
	"github.com/noah-isme/council-portal-api/pkg/jobs"
	"github.com/noah-isme/council-portal-api/pkg/response"
)

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
	Stats() jobs.Stats
}

// MaintenanceHandler lets admins kick off background jobs on demand.
type MaintenanceHandler struct {
	sweeps  jobEnqueuer
	jobType string
}

// NewMaintenanceHandler builds a handler that enqueues jobType on sweeps.
func NewMaintenanceHandler(sweeps jobEnqueuer, jobType string) *MaintenanceHandler {
	return &MaintenanceHandler{sweeps: sweeps, jobType: jobType}
}

// TriggerSweep godoc
// @Summary Run the media orphan sweep now
// @Tags Maintenance
// @Produce json
// @Security BearerAuth
// @Success 202 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /admin/maintenance/media-sweep [post]
func (h *MaintenanceHandler) TriggerSweep(c *gin.Context) {
	err := h.sweeps.Enqueue(jobs.Job{Type: h.jobType})
	switch {
	case errors.Is(err, jobs.ErrDuplicate):
		response.Error(c, appErrors.Clone(appErrors.ErrConflict, "a sweep is already queued or running"))
		return
	case err != nil:
		response.Error(c, appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, "sweep queue unavailable"))
		return
	}
	response.JSON(c, http.StatusAccepted, h.sweeps.Stats(), nil)
}

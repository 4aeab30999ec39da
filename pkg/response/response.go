package response

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/council-portal-api/internal/models"
	appErrors "github.com/noah-isme/council-portal-api/pkg/errors"
	"github.com/noah-isme/council-portal-api/pkg/middleware/requestid"
)

// Envelope is the body shape of every JSON response.
type Envelope struct {
	Data       interface{}            `json:"data,omitempty"`
	Error      *appErrors.Error       `json:"error,omitempty"`
	Pagination *models.Pagination     `json:"pagination,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

// JSON sends an uncacheable success response.
func JSON(c *gin.Context, status int, data interface{}, pagination *models.Pagination, meta ...map[string]interface{}) {
	noStore(c)
	write(c, status, Envelope{Data: data, Pagination: pagination, Meta: firstMeta(meta)})
}

// Public sends a success response that browsers and CDNs may reuse for maxAge.
// Public portal pages go through here. Admin responses never do.
func Public(c *gin.Context, data interface{}, maxAge time.Duration, meta ...map[string]interface{}) {
	if maxAge > 0 {
		c.Header("Cache-Control", fmt.Sprintf("public, max-age=%d", int(maxAge.Seconds())))
	} else {
		c.Header("Cache-Control", "no-cache")
	}
	write(c, http.StatusOK, Envelope{Data: data, Meta: firstMeta(meta)})
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data, nil)
}

// Error renders err as an error envelope. Server-side failures are attached to
// the gin context so the access log carries the cause. The request id is echoed
// in meta so operators can find that log line.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	if appErr.Status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	noStore(c)
	envelope := Envelope{Error: appErr}
	if id := requestid.Value(c); id != "" {
		envelope.Meta = map[string]interface{}{"request_id": id}
	}
	write(c, appErr.Status, envelope)
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	noStore(c)
	c.Status(http.StatusNoContent)
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}

func firstMeta(meta []map[string]interface{}) map[string]interface{} {
	if len(meta) > 0 && len(meta[0]) > 0 {
		return meta[0]
	}
	return nil
}

func write(c *gin.Context, status int, envelope Envelope) {
	c.JSON(status, envelope)
}

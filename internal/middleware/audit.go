package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/council-portal-api/internal/models"
)

const auditWriteTimeout = 3 * time.Second

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// Audit appends an audit entry for every successful request on the route. The
// entry is written after the response and survives a client disconnect.
func Audit(repo auditWriter, action, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		status := c.Writer.Status()
		if repo == nil || status >= http.StatusBadRequest {
			return
		}

		entry := &models.AuditLog{
			Action:    action,
			Resource:  resource,
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			CreatedAt: start,
		}
		if claims := Claims(c); claims != nil {
			id := claims.UserID
			entry.UserID = &id
		}
		if id := c.Param("id"); id != "" {
			entry.ResourceID = &id
		}
		entry.NewValues, _ = json.Marshal(map[string]interface{}{
			"route":      c.FullPath(),
			"method":     c.Request.Method,
			"query":      c.Request.URL.RawQuery,
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
		})

		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), auditWriteTimeout)
		defer cancel()
		if err := repo.CreateAuditLog(ctx, entry); err != nil {
			_ = c.Error(err)
		}
	}
}

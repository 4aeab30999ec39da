package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/council-portal-api/internal/models"
	appErrors "github.com/noah-isme/council-portal-api/pkg/errors"
	"github.com/noah-isme/council-portal-api/pkg/realtime"
)

// Actor identifies the admin behind a mutation for the audit trail.
type Actor struct {
	UserID    string
	IPAddress string
	UserAgent string
}

type changePublisher interface {
	Publish(ctx context.Context, change realtime.Change) error
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// ContentHooks runs the side effects shared by every admin mutation: cache
// invalidation, change notification, metrics, and the audit trail. Each step is
// best effort once the row change has committed.
type ContentHooks struct {
	publisher changePublisher
	audit     auditWriter
	cache     *CacheService
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewContentHooks wires the mutation side effects. Any dependency may be nil.
func NewContentHooks(publisher changePublisher, audit auditWriter, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *ContentHooks {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContentHooks{publisher: publisher, audit: audit, cache: cache, metrics: metrics, logger: logger, now: time.Now}
}

// Changed records that id in table was created or deleted.
func (h *ContentHooks) Changed(ctx context.Context, table, action, id string, actor Actor, snapshot interface{}) {
	if h == nil {
		return
	}
	InvalidatePortalCache(ctx, h.cache, table)
	if h.publisher != nil {
		change := realtime.Change{Table: table, Action: action, ID: id, At: h.now().UTC()}
		if err := h.publisher.Publish(ctx, change); err != nil {
			h.logger.Warn("publish change failed", zap.String("table", table), zap.String("id", id), zap.Error(err))
		}
	}
	h.metrics.RecordChange(table, action)
	h.writeAudit(ctx, table, action, id, actor, snapshot)
}

func (h *ContentHooks) writeAudit(ctx context.Context, resource, action, id string, actor Actor, snapshot interface{}) {
	if h.audit == nil {
		return
	}
	entry := &models.AuditLog{
		Action:    auditActionFor(resource, action),
		Resource:  resource,
		IPAddress: actor.IPAddress,
		UserAgent: actor.UserAgent,
		CreatedAt: h.now().UTC(),
	}
	if actor.UserID != "" {
		userID := actor.UserID
		entry.UserID = &userID
	}
	if id != "" {
		resourceID := id
		entry.ResourceID = &resourceID
	}
	if snapshot != nil {
		payload, err := json.Marshal(snapshot)
		if err == nil {
			if action == realtime.ActionDelete {
				entry.OldValues = payload
			} else {
				entry.NewValues = payload
			}
		}
	}
	if err := h.audit.CreateAuditLog(ctx, entry); err != nil {
		h.logger.Warn("audit log write failed", zap.String("resource", resource), zap.String("action", action), zap.Error(err))
	}
}

func auditActionFor(resource, action string) string {
	media := strings.HasPrefix(resource, "media")
	switch {
	case media && action == realtime.ActionDelete:
		return models.AuditActionMediaDelete
	case media:
		return models.AuditActionMediaUpload
	case action == realtime.ActionDelete:
		return models.AuditActionContentDelete
	default:
		return models.AuditActionContentCreate
	}
}

// backendError keeps the store's message visible to the admin who triggered it.
func backendError(err error, action string) error {
	return appErrors.Internal(err, fmt.Sprintf("%s: %v", action, err))
}

// optionalString trims p and maps blank values to nil.
func optionalString(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

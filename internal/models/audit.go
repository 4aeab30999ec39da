package models

import "time"

// Audit actions recorded for admin activity.
const (
	AuditActionLogin          = "LOGIN"
	AuditActionLoginFailed    = "LOGIN_FAILED"
	AuditActionTokenRefresh   = "TOKEN_REFRESH"
	AuditActionLogout         = "LOGOUT"
	AuditActionPasswordChange = "PASSWORD_CHANGE"
	AuditActionContentCreate  = "CONTENT_CREATE"
	AuditActionContentDelete  = "CONTENT_DELETE"
	AuditActionMediaUpload    = "MEDIA_UPLOAD"
	AuditActionMediaDelete    = "MEDIA_DELETE"
	AuditActionRosterExport   = "ROSTER_EXPORT"
)

// AuditResourceAuth is the resource name used for session events.
const AuditResourceAuth = "auth"

// AuditLog is one row of the admin audit trail. UserID is nil for events
// without an authenticated actor.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

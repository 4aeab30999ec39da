package models

import "time"

// MediaKind selects the folder an upload is written to.
type MediaKind string

const (
	MediaKindEvent   MediaKind = "event"
	MediaKindMember  MediaKind = "member"
	MediaKindGallery MediaKind = "gallery"
)

// Media bucket folders.
const (
	FolderEvent       = "EVENT"
	FolderTeamProfile = "TEAM_PROFILE"
	FolderGallery     = "EVENT PHOTOS"
)

// ParseMediaKind validates a path parameter.
func ParseMediaKind(raw string) (MediaKind, bool) {
	switch MediaKind(raw) {
	case MediaKindEvent, MediaKindMember, MediaKindGallery:
		return MediaKind(raw), true
	default:
		return "", false
	}
}

// Folder maps a kind to its bucket folder.
func (k MediaKind) Folder() string {
	switch k {
	case MediaKindEvent:
		return FolderEvent
	case MediaKindMember:
		return FolderTeamProfile
	default:
		return FolderGallery
	}
}

// MediaAsset is an object in the media bucket. It has no row.
type MediaAsset struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	PublicURL string    `json:"public_url"`
	Label     string    `json:"label"`
	IsVideo   bool      `json:"is_video"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MediaUpload describes a stored upload.
type MediaUpload struct {
	Kind        MediaKind `json:"kind"`
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	PublicURL   string    `json:"public_url"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
}

// MediaOrphan is a stored object whose owning row is gone but whose delete failed.
type MediaOrphan struct {
	ID         string     `db:"id" json:"id"`
	Bucket     string     `db:"bucket" json:"bucket"`
	Path       string     `db:"path" json:"path"`
	Reason     string     `db:"reason" json:"reason"`
	Attempts   int        `db:"attempts" json:"attempts"`
	LastError  *string    `db:"last_error" json:"last_error,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	ResolvedAt *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
}

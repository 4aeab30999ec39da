package models

import "time"

// Notice is a short announcement shown on the home page and the notices archive.
type Notice struct {
	ID        string    `db:"id" json:"id"`
	Content   string    `db:"content" json:"content"`
	LinkURL   *string   `db:"link_url" json:"link_url,omitempty"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// NoticeOrder selects the timestamp a notice listing is sorted by (newest first).
type NoticeOrder string

const (
	NoticeOrderUpdated NoticeOrder = "updated_at"
	NoticeOrderCreated NoticeOrder = "created_at"
)

// NoticeFilter scopes notice listings.
type NoticeFilter struct {
	ActiveOnly bool
	OrderBy    NoticeOrder
	Limit      int
}

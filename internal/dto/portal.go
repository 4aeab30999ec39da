package dto

import "github.com/noah-isme/council-portal-api/internal/models"

// NoticeView is a notice with its Markdown content rendered.
type NoticeView struct {
	models.Notice
	ContentHTML string `json:"content_html"`
}

// HomeResponse is the landing page digest.
type HomeResponse struct {
	Images  []models.MediaAsset `json:"images"`
	Notices []NoticeView        `json:"notices"`
}

// NoticeArchiveResponse lists every notice, latest update first.
type NoticeArchiveResponse struct {
	Notices []NoticeView `json:"notices"`
}

// EventView adds derived flags to an event.
type EventView struct {
	models.Event
	HasSummary bool `json:"has_summary"`
}

// EventsResponse is one partition of the events page.
type EventsResponse struct {
	Filter  models.EventPartition `json:"filter"`
	Date    string                `json:"date"`
	Events  []EventView           `json:"events"`
	Invalid int                   `json:"invalid"`
}

// GalleryResponse lists gallery media.
type GalleryResponse struct {
	Items []models.MediaAsset `json:"items"`
}

package models

import "time"

// EventPartition splits events around today.
type EventPartition string

const (
	EventPartitionUpcoming EventPartition = "upcoming"
	EventPartitionPast     EventPartition = "past"
)

// ParseEventPartition maps the public filter value, defaulting to upcoming.
func ParseEventPartition(raw string) (EventPartition, bool) {
	switch EventPartition(raw) {
	case "", EventPartitionUpcoming:
		return EventPartitionUpcoming, true
	case EventPartitionPast:
		return EventPartitionPast, true
	default:
		return "", false
	}
}

// Event is a council event. EventDate stays textual until classification parses it.
type Event struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	EventDate   string    `db:"event_date" json:"event_date"`
	Description string    `db:"description" json:"description"`
	ImageURL    *string   `db:"image_url" json:"image_url,omitempty"`
	Location    *string   `db:"location" json:"location,omitempty"`
	RegLink     *string   `db:"reg_link" json:"reg_link,omitempty"`
	SummaryText *string   `db:"summary_text" json:"summary_text,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// HasSummary reports whether a post-event summary was written.
func (e Event) HasSummary() bool {
	return e.SummaryText != nil && *e.SummaryText != ""
}

// EventFilter scopes event listings. An empty Partition lists newest-created first.
type EventFilter struct {
	Partition EventPartition
}

package models

import "time"

// ContentTable names an admin-editable table.
type ContentTable string

const (
	TableNotices ContentTable = "notices"
	TableEvents  ContentTable = "events"
	TableMembers ContentTable = "members"
)

// ParseContentTable validates a table path parameter.
func ParseContentTable(raw string) (ContentTable, bool) {
	switch ContentTable(raw) {
	case TableNotices, TableEvents, TableMembers:
		return ContentTable(raw), true
	default:
		return "", false
	}
}

// NoticeDraft is the in-progress notice form.
type NoticeDraft struct {
	Content  string `json:"content"`
	LinkURL  string `json:"link_url"`
	IsActive bool   `json:"is_active"`
}

// EventDraft is the in-progress event form.
type EventDraft struct {
	Title       string `json:"title"`
	EventDate   string `json:"event_date"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	Location    string `json:"location"`
	RegLink     string `json:"reg_link"`
	SummaryText string `json:"summary_text"`
}

// MemberDraft is the in-progress member form.
type MemberDraft struct {
	Name     string `json:"name"`
	Role     string `json:"role"`
	Rank     int    `json:"rank"`
	ImageURL string `json:"image_url"`
	Category string `json:"category"`
}

// Draft holds one admin's unsaved form for a table. Exactly one variant is set,
// matching Table.
type Draft struct {
	Table     ContentTable `json:"table"`
	Notice    *NoticeDraft `json:"notice,omitempty"`
	Event     *EventDraft  `json:"event,omitempty"`
	Member    *MemberDraft `json:"member,omitempty"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// NewDraft returns the default form for table.
func NewDraft(table ContentTable) Draft {
	d := Draft{Table: table}
	switch table {
	case TableNotices:
		d.Notice = &NoticeDraft{IsActive: true}
	case TableEvents:
		d.Event = &EventDraft{}
	case TableMembers:
		d.Member = &MemberDraft{Rank: MinMemberRank, Category: string(MemberCategoryStudent)}
	}
	return d
}

package models

import "time"

// MemberCategory distinguishes faculty administration from the student council.
type MemberCategory string

const (
	MemberCategoryStudent        MemberCategory = "student"
	MemberCategoryAdministration MemberCategory = "administration"
)

// Rank bounds for council members.
const (
	MinMemberRank = 1
	MaxMemberRank = 7
)

// Member is one person shown on the team page.
type Member struct {
	ID        string         `db:"id" json:"id"`
	Name      string         `db:"name" json:"name"`
	Role      string         `db:"role" json:"role"`
	Rank      int            `db:"rank" json:"rank"`
	ImageURL  *string        `db:"image_url" json:"image_url,omitempty"`
	Category  MemberCategory `db:"category" json:"category"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// MemberFilter scopes member listings. The team page reads by rank; the admin
// list reads newest first.
type MemberFilter struct {
	NewestFirst bool
}

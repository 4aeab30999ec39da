package models

import "time"

// UserRole is the role carried by an admin account and its access tokens.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
)

// AdminRoles lists every role allowed through the admin API.
var AdminRoles = []UserRole{RoleAdmin, RoleSuperAdmin}

// IsAdmin reports whether the role may manage portal content.
func (r UserRole) IsAdmin() bool {
	for _, role := range AdminRoles {
		if r == role {
			return true
		}
	}
	return false
}

// User is an admin account row.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// CanSignIn reports whether the account may open an admin session.
func (u *User) CanSignIn() bool {
	return u != nil && u.Active && u.Role.IsAdmin()
}

// Info projects the account into the shape returned by the auth endpoints.
func (u *User) Info() UserInfo {
	return UserInfo{ID: u.ID, Email: u.Email, FullName: u.FullName, Role: u.Role, LastLogin: u.LastLogin}
}

// Pagination is list metadata carried in the response envelope.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ClientMeta identifies the caller of an auth call in the audit trail.
type ClientMeta struct {
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginRequest holds admin sign-in credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	ClientMeta
}

// RefreshTokenRequest exchanges a refresh token for a new session.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	ClientMeta
}

// ChangePasswordRequest payload for updating password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,nefield=OldPassword"`
}

// TokenPair is an issued access token and its rotating refresh token.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	IssuedAt     time.Time `json:"issued_at"`
}

// LoginResponse is a fresh session for the signed-in admin.
type LoginResponse struct {
	TokenPair
	User UserInfo `json:"user"`
}

// UserInfo describes the signed-in admin in responses.
type UserInfo struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	FullName  string     `json:"full_name"`
	Role      UserRole   `json:"role"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

// JWTClaims is the access token payload.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

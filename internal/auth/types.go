package auth

import (
	"context"
	"time"
)

// Dashboard roles.
const (
	RoleAdmin     = "admin"
	RoleSeller    = "seller"
	RoleDealer    = "dealer"
	RoleInspector = "inspector"
)

// Identity providers.
const (
	ProviderZoho        = "zoho"
	ProviderCredentials = "credentials"
)

// User represents a dashboard account. Role and Active are authoritative in
// the database and are never trusted from token claims.
type User struct {
	ID           string
	Email        string
	Name         string
	Image        string
	PasswordHash string
	Role         string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// LinkedAccount is one external provider identity owned by exactly one user.
// ExpiresAt is the provider access token expiry in epoch seconds.
type LinkedAccount struct {
	ID                string
	UserID            string
	Provider          string
	ProviderAccountID string
	AccessToken       string
	RefreshToken      string
	ExpiresAt         int64
	RefreshedAt       time.Time
	CreatedAt         time.Time
}

// ExpiringAccount pairs a soon-to-expire linked account with its owner's
// email for audit purposes. Only rows owned by active users are returned.
type ExpiringAccount struct {
	Account LinkedAccount
	Email   string
}

// Session is the per-request identity materialized from a signed token plus a
// fresh user-row lookup. It is bearer state, never persisted server-side.
type Session struct {
	UserID            string `json:"user_id"`
	Email             string `json:"email"`
	Name              string `json:"name,omitempty"`
	Image             string `json:"image,omitempty"`
	Role              string `json:"role"`
	Provider          string `json:"provider"`
	AccessToken       string `json:"-"`
	ProviderExpiresAt int64  `json:"provider_expires_at,omitempty"`
}

// OAuthProfile is the payload delivered by a completed external OAuth sign-in.
type OAuthProfile struct {
	Provider          string
	ProviderAccountID string
	Email             string
	Name              string
	Image             string
	AccessToken       string
	RefreshToken      string
	ExpiresAt         int64
}

// ProviderToken is a freshly issued provider access token.
type ProviderToken struct {
	AccessToken string
	ExpiresAt   int64
}

// TokenRefresher exchanges a refresh token for a new provider access token.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (ProviderToken, error)
}

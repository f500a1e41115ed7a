package auth

import (
	"context"
	"time"
)

// Store describes persistence operations required by the session lifecycle.
type Store interface {
	Users(ctx context.Context) UserStore
	Accounts(ctx context.Context) AccountStore
}

// UserStore manages dashboard accounts.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
}

// AccountStore manages linked external provider accounts.
type AccountStore interface {
	// Upsert creates or replaces the row keyed by (provider, provider
	// account id). Last writer wins; there is no optimistic concurrency
	// check because refreshes are idempotent from the provider's side.
	Upsert(ctx context.Context, acc *LinkedAccount) error
	FindByUser(ctx context.Context, provider, userID string) (*LinkedAccount, error)
	// UpdateTokens persists a successful refresh, keyed by provider and user.
	UpdateTokens(ctx context.Context, provider, userID, accessToken string, expiresAt int64, refreshedAt time.Time) error
	// ListExpiring returns provider rows holding a refresh token with
	// expiry at or before the deadline, owned by active users only.
	ListExpiring(ctx context.Context, provider string, deadline int64) ([]ExpiringAccount, error)
}

package audit

import "time"

// Event enumerates the authentication events written to the audit log.
type Event string

const (
	EventLoginSuccess        Event = "LOGIN_SUCCESS"
	EventLoginFailed         Event = "LOGIN_FAILED"
	EventLoginBlocked        Event = "LOGIN_BLOCKED"
	EventLogout              Event = "LOGOUT"
	EventTokenRefreshSuccess Event = "TOKEN_REFRESH_SUCCESS"
	EventTokenRefreshFailed  Event = "TOKEN_REFRESH_FAILED"
)

// Failure reason codes carried in entry metadata under the "reason" key.
const (
	ReasonUserNotFound    = "USER_NOT_FOUND"
	ReasonInvalidPassword = "INVALID_PASSWORD"
	ReasonAccountBlocked  = "ACCOUNT_BLOCKED"
)

// Entry is an append-only record of an authentication event. Entries are
// immutable once written; only the retention purge removes them.
type Entry struct {
	ID         string            `json:"id"`
	OccurredAt time.Time         `json:"occurred_at"`
	UserID     string            `json:"user_id,omitempty"` // empty when the event has no resolvable user
	Email      string            `json:"email,omitempty"`
	Event      Event             `json:"event"`
	Provider   string            `json:"provider,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

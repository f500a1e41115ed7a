package audit

import (
	"context"
	"time"
)

// Store describes persistence for the append-only audit log.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
	ListByUser(ctx context.Context, userID string, since time.Time) ([]Entry, error)
	ListByEvent(ctx context.Context, event Event, since time.Time) ([]Entry, error)
	CountsByEvent(ctx context.Context, since time.Time) (map[Event]int, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

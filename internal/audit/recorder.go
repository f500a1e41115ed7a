package audit

import (
	"context"
	"time"

	"combisales/internal/obs"
)

// Recorder is the single write entry point for audit events. Writes are best
// effort: a failed append is logged locally and never surfaced to the caller,
// so audit logging cannot break authentication.
type Recorder struct {
	store Store
	sink  func(Entry)
	now   func() time.Time
}

func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

// WithClock overrides the time source (useful for tests).
func (r *Recorder) WithClock(fn func() time.Time) *Recorder {
	if fn != nil {
		r.now = fn
	}
	return r
}

// WithSink attaches an observer invoked for every recorded entry, after the
// append attempt. Used to feed the live event stream.
func (r *Recorder) WithSink(fn func(Entry)) *Recorder {
	r.sink = fn
	return r
}

// Record appends one entry. Identical calls produce distinct rows; the log is
// never deduplicated.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = r.now().UTC()
	}
	if err := r.store.Append(ctx, &entry); err != nil {
		obs.LogError("audit append failed", map[string]any{
			"event": string(entry.Event),
			"email": entry.Email,
			"error": err.Error(),
		})
	}
	if r.sink != nil {
		r.sink(entry)
	}
}

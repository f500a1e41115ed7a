package audit

import (
	"context"
	"errors"
	"testing"
	"time"
)

type failingStore struct {
	Store
}

func (failingStore) Append(context.Context, *Entry) error {
	return errors.New("db unavailable")
}

func TestRecordAppendsDistinctRows(t *testing.T) {
	store := NewMemory()
	rec := NewRecorder(store)

	entry := Entry{
		UserID: "user-1",
		Email:  "user@x.com",
		Event:  EventLoginSuccess,
	}
	rec.Record(context.Background(), entry)
	rec.Record(context.Background(), entry)

	all := store.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(all))
	}
	if all[0].ID == all[1].ID {
		t.Fatalf("expected distinct ids, got %s twice", all[0].ID)
	}
	if all[0].OccurredAt.IsZero() || all[1].OccurredAt.IsZero() {
		t.Fatalf("expected timestamps to be filled")
	}
}

func TestRecordSwallowsStoreFailure(t *testing.T) {
	rec := NewRecorder(failingStore{})

	// Must not panic or propagate the error.
	rec.Record(context.Background(), Entry{
		Email: "user@x.com",
		Event: EventTokenRefreshFailed,
	})
}

func TestRecordKeepsExplicitTimestamp(t *testing.T) {
	store := NewMemory()
	fixed := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	rec := NewRecorder(store).WithClock(func() time.Time { return fixed })

	explicit := fixed.Add(-time.Hour)
	rec.Record(context.Background(), Entry{Event: EventLogout, OccurredAt: explicit})
	rec.Record(context.Background(), Entry{Event: EventLogout})

	all := store.All()
	if !all[0].OccurredAt.Equal(explicit) {
		t.Fatalf("explicit timestamp overwritten: %v", all[0].OccurredAt)
	}
	if !all[1].OccurredAt.Equal(fixed) {
		t.Fatalf("expected clock timestamp, got %v", all[1].OccurredAt)
	}
}

package audit

import (
	"context"
	"sync"
	"time"

	"combisales/internal/ids"
)

var _ Store = (*Memory)(nil)

// Memory is an in-memory Store for tests and local development.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Append(_ context.Context, entry *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.ID == "" {
		entry.ID = ids.New()
	}
	m.entries = append(m.entries, cloneEntry(*entry))
	return nil
}

func (m *Memory) ListByUser(_ context.Context, userID string, since time.Time) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []Entry
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if e.UserID == userID && !e.OccurredAt.Before(since) {
			res = append(res, cloneEntry(e))
		}
	}
	return res, nil
}

func (m *Memory) ListByEvent(_ context.Context, event Event, since time.Time) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []Entry
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if e.Event == event && !e.OccurredAt.Before(since) {
			res = append(res, cloneEntry(e))
		}
	}
	return res, nil
}

func (m *Memory) CountsByEvent(_ context.Context, since time.Time) (map[Event]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[Event]int)
	for _, e := range m.entries {
		if !e.OccurredAt.Before(since) {
			counts[e.Event]++
		}
	}
	return counts, nil
}

func (m *Memory) PurgeOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.entries[:0]
	var removed int64
	for _, e := range m.entries {
		if e.OccurredAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept
	return removed, nil
}

// All returns a snapshot of every entry, newest last.
func (m *Memory) All() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		res = append(res, cloneEntry(e))
	}
	return res
}

func cloneEntry(e Entry) Entry {
	if e.Metadata != nil {
		meta := make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			meta[k] = v
		}
		e.Metadata = meta
	}
	return e
}

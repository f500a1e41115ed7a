package audit

import (
	"context"
	"sort"
	"time"
)

const (
	DefaultSuspiciousWindow    = 15 * time.Minute
	DefaultSuspiciousThreshold = 5
)

// UserReport holds a user's recent audit entries and per-event counts.
type UserReport struct {
	Logs  []Entry        `json:"logs"`
	Stats map[string]int `json:"stats"`
}

// SuspiciousGroup is an email with repeated failed logins inside the window.
type SuspiciousGroup struct {
	Email    string  `json:"email"`
	Attempts int     `json:"attempts"`
	Entries  []Entry `json:"entries"`
}

// SystemSummary aggregates event counts over a time window.
type SystemSummary struct {
	Since  time.Time      `json:"since"`
	Until  time.Time      `json:"until"`
	Total  int            `json:"total"`
	Counts map[string]int `json:"counts"`
}

// Reporter serves read-only views over the audit log. It has no state of its
// own; everything is derived from the Store.
type Reporter struct {
	store Store
	now   func() time.Time
}

func NewReporter(store Store) *Reporter {
	return &Reporter{store: store, now: time.Now}
}

// WithClock overrides the time source (useful for tests).
func (r *Reporter) WithClock(fn func() time.Time) *Reporter {
	if fn != nil {
		r.now = fn
	}
	return r
}

// UserActivity returns a user's entries and event counts for the past window.
func (r *Reporter) UserActivity(ctx context.Context, userID string, window time.Duration) (UserReport, error) {
	since := r.now().UTC().Add(-window)
	logs, err := r.store.ListByUser(ctx, userID, since)
	if err != nil {
		return UserReport{}, err
	}
	stats := make(map[string]int)
	for _, e := range logs {
		stats[string(e.Event)]++
	}
	if logs == nil {
		logs = []Entry{}
	}
	return UserReport{Logs: logs, Stats: stats}, nil
}

// Suspicious groups failed logins by email within the window and returns only
// groups whose count meets or exceeds the threshold, largest first.
func (r *Reporter) Suspicious(ctx context.Context, window time.Duration, threshold int) ([]SuspiciousGroup, error) {
	if window <= 0 {
		window = DefaultSuspiciousWindow
	}
	if threshold <= 0 {
		threshold = DefaultSuspiciousThreshold
	}
	since := r.now().UTC().Add(-window)
	entries, err := r.store.ListByEvent(ctx, EventLoginFailed, since)
	if err != nil {
		return nil, err
	}

	byEmail := make(map[string][]Entry)
	for _, e := range entries {
		if e.Email == "" {
			continue
		}
		byEmail[e.Email] = append(byEmail[e.Email], e)
	}

	groups := make([]SuspiciousGroup, 0)
	for email, list := range byEmail {
		if len(list) < threshold {
			continue
		}
		groups = append(groups, SuspiciousGroup{
			Email:    email,
			Attempts: len(list),
			Entries:  list,
		})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Attempts != groups[j].Attempts {
			return groups[i].Attempts > groups[j].Attempts
		}
		return groups[i].Email < groups[j].Email
	})
	return groups, nil
}

// Summary returns system-wide event counts over the past window.
func (r *Reporter) Summary(ctx context.Context, window time.Duration) (SystemSummary, error) {
	until := r.now().UTC()
	since := until.Add(-window)
	counts, err := r.store.CountsByEvent(ctx, since)
	if err != nil {
		return SystemSummary{}, err
	}
	summary := SystemSummary{
		Since:  since,
		Until:  until,
		Counts: make(map[string]int, len(counts)),
	}
	for event, n := range counts {
		summary.Counts[string(event)] = n
		summary.Total += n
	}
	return summary, nil
}

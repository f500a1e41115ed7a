package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"combisales/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Append(ctx context.Context, entry *Entry) error {
	if entry.ID == "" {
		entry.ID = ids.New()
	}
	meta, _ := json.Marshal(entry.Metadata)
	_, err := s.db.ExecContext(ctx,
		`insert into audit_log(id, occurred_at, user_id, email, event, provider, metadata)
		 values($1,$2,nullif($3,''),$4,$5,$6,$7)`,
		entry.ID, entry.OccurredAt, entry.UserID, entry.Email, string(entry.Event), entry.Provider, meta,
	)
	return err
}

func (s *PGStore) ListByUser(ctx context.Context, userID string, since time.Time) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, occurred_at, coalesce(user_id,''), email, event, provider, metadata
		 from audit_log where user_id=$1 and occurred_at >= $2 order by occurred_at desc`,
		userID, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *PGStore) ListByEvent(ctx context.Context, event Event, since time.Time) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, occurred_at, coalesce(user_id,''), email, event, provider, metadata
		 from audit_log where event=$1 and occurred_at >= $2 order by occurred_at desc`,
		string(event), since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *PGStore) CountsByEvent(ctx context.Context, since time.Time) (map[Event]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`select event, count(*) from audit_log where occurred_at >= $1 group by event`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[Event]int)
	for rows.Next() {
		var (
			event string
			n     int
		)
		if err := rows.Scan(&event, &n); err != nil {
			return nil, err
		}
		counts[Event(event)] = n
	}
	return counts, rows.Err()
}

func (s *PGStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `delete from audit_log where occurred_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var res []Entry
	for rows.Next() {
		var (
			e     Entry
			event string
			meta  []byte
		)
		if err := rows.Scan(&e.ID, &e.OccurredAt, &e.UserID, &e.Email, &event, &e.Provider, &meta); err != nil {
			return nil, err
		}
		e.Event = Event(event)
		_ = json.Unmarshal(meta, &e.Metadata)
		res = append(res, e)
	}
	return res, rows.Err()
}

package auth

import (
	"context"
	"database/sql"
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

func (s *PGStore) Users(context.Context) UserStore       { return &userStore{db: s.db} }
func (s *PGStore) Accounts(context.Context) AccountStore { return &accountStore{db: s.db} }

// User store ---------------------------------------------------------------
type userStore struct{ db *sql.DB }

func (s *userStore) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into users(id, email, name, image, password_hash, role, active)
		 values($1,$2,$3,$4,$5,$6,$7)`,
		u.ID, u.Email, u.Name, u.Image, u.PasswordHash, u.Role, u.Active,
	)
	return err
}

func (s *userStore) Find(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, email, name, image, password_hash, role, active, created_at, updated_at
		 from users where id=$1`, id)
	return scanUser(row)
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, email, name, image, password_hash, role, active, created_at, updated_at
		 from users where email=$1`, email)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Image, &u.PasswordHash, &u.Role, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Linked account store -----------------------------------------------------
type accountStore struct{ db *sql.DB }

func (s *accountStore) Upsert(ctx context.Context, acc *LinkedAccount) error {
	if acc.ID == "" {
		acc.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into linked_accounts(id, user_id, provider, provider_account_id, access_token, refresh_token, expires_at, refreshed_at)
		 values($1,$2,$3,$4,$5,$6,$7,$8)
		 on conflict (provider, provider_account_id) do update
		 set access_token=excluded.access_token,
		     refresh_token=excluded.refresh_token,
		     expires_at=excluded.expires_at,
		     refreshed_at=excluded.refreshed_at`,
		acc.ID, acc.UserID, acc.Provider, acc.ProviderAccountID,
		acc.AccessToken, acc.RefreshToken, acc.ExpiresAt, acc.RefreshedAt,
	)
	return err
}

func (s *accountStore) FindByUser(ctx context.Context, provider, userID string) (*LinkedAccount, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, user_id, provider, provider_account_id, access_token, refresh_token, expires_at, refreshed_at, created_at
		 from linked_accounts where provider=$1 and user_id=$2`, provider, userID)
	var acc LinkedAccount
	err := row.Scan(&acc.ID, &acc.UserID, &acc.Provider, &acc.ProviderAccountID,
		&acc.AccessToken, &acc.RefreshToken, &acc.ExpiresAt, &acc.RefreshedAt, &acc.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// UpdateTokens is a keyed update with no optimistic-concurrency check:
// refreshes are idempotent and infrequent per user, last writer wins.
func (s *accountStore) UpdateTokens(ctx context.Context, provider, userID, accessToken string, expiresAt int64, refreshedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`update linked_accounts set access_token=$3, expires_at=$4, refreshed_at=$5
		 where provider=$1 and user_id=$2`,
		provider, userID, accessToken, expiresAt, refreshedAt,
	)
	return err
}

func (s *accountStore) ListExpiring(ctx context.Context, provider string, deadline int64) ([]ExpiringAccount, error) {
	rows, err := s.db.QueryContext(ctx,
		`select a.id, a.user_id, a.provider, a.provider_account_id, a.access_token, a.refresh_token, a.expires_at, a.refreshed_at, a.created_at, u.email
		 from linked_accounts a
		 join users u on u.id = a.user_id
		 where a.provider=$1 and a.refresh_token <> '' and a.expires_at <= $2 and u.active
		 order by a.expires_at asc`,
		provider, deadline,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []ExpiringAccount
	for rows.Next() {
		var e ExpiringAccount
		acc := &e.Account
		if err := rows.Scan(&acc.ID, &acc.UserID, &acc.Provider, &acc.ProviderAccountID,
			&acc.AccessToken, &acc.RefreshToken, &acc.ExpiresAt, &acc.RefreshedAt, &acc.CreatedAt, &e.Email); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

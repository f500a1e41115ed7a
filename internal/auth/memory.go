package auth

import (
	"context"
	"sync"
	"time"

	"combisales/internal/ids"
)

var _ Store = (*Memory)(nil)

// Memory is an in-memory Store for tests and local development.
type Memory struct {
	mu       sync.Mutex
	users    map[string]*User // by id
	byEmail  map[string]string
	accounts []*LinkedAccount
}

func NewMemory() *Memory {
	return &Memory{
		users:   make(map[string]*User),
		byEmail: make(map[string]string),
	}
}

func (m *Memory) Users(context.Context) UserStore       { return m }
func (m *Memory) Accounts(context.Context) AccountStore { return m }

func (m *Memory) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == "" {
		u.ID = ids.New()
	}
	clone := *u
	m.users[u.ID] = &clone
	m.byEmail[u.Email] = u.ID
	return nil
}

func (m *Memory) Find(_ context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (m *Memory) FindByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *m.users[id]
	return &clone, nil
}

// SetActive flips a user's active flag; test helper for blocked-account paths.
func (m *Memory) SetActive(email string, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byEmail[email]; ok {
		m.users[id].Active = active
	}
}

func (m *Memory) Upsert(_ context.Context, acc *LinkedAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.accounts {
		if existing.Provider == acc.Provider && existing.ProviderAccountID == acc.ProviderAccountID {
			existing.UserID = acc.UserID
			existing.AccessToken = acc.AccessToken
			existing.RefreshToken = acc.RefreshToken
			existing.ExpiresAt = acc.ExpiresAt
			existing.RefreshedAt = acc.RefreshedAt
			acc.ID = existing.ID
			return nil
		}
	}
	if acc.ID == "" {
		acc.ID = ids.New()
	}
	clone := *acc
	m.accounts = append(m.accounts, &clone)
	return nil
}

func (m *Memory) FindByUser(_ context.Context, provider, userID string) (*LinkedAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, acc := range m.accounts {
		if acc.Provider == provider && acc.UserID == userID {
			clone := *acc
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) UpdateTokens(_ context.Context, provider, userID, accessToken string, expiresAt int64, refreshedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, acc := range m.accounts {
		if acc.Provider == provider && acc.UserID == userID {
			acc.AccessToken = accessToken
			acc.ExpiresAt = expiresAt
			acc.RefreshedAt = refreshedAt
		}
	}
	return nil
}

func (m *Memory) ListExpiring(_ context.Context, provider string, deadline int64) ([]ExpiringAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []ExpiringAccount
	for _, acc := range m.accounts {
		if acc.Provider != provider || acc.RefreshToken == "" || acc.ExpiresAt > deadline {
			continue
		}
		owner, ok := m.users[acc.UserID]
		if !ok || !owner.Active {
			continue
		}
		res = append(res, ExpiringAccount{Account: *acc, Email: owner.Email})
	}
	return res, nil
}

package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"combisales/internal/audit"
)

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

type stubRefresher struct {
	token ProviderToken
	err   error
	calls int
}

func (r *stubRefresher) Refresh(_ context.Context, _ string) (ProviderToken, error) {
	r.calls++
	if r.err != nil {
		return ProviderToken{}, r.err
	}
	return r.token, nil
}

type testEnv struct {
	store    *Memory
	auditLog *audit.Memory
	svc      *Service
}

func newTestEnv(t *testing.T, opts ...ServiceOption) *testEnv {
	t.Helper()
	store := NewMemory()
	auditLog := audit.NewMemory()
	recorder := audit.NewRecorder(auditLog).WithClock(func() time.Time { return testNow })

	base := []ServiceOption{WithClock(func() time.Time { return testNow })}
	svc, err := NewService(store, recorder, "test-session-secret", append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &testEnv{store: store, auditLog: auditLog, svc: svc}
}

func (e *testEnv) seedUser(t *testing.T, email, password, role string, active bool) *User {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	u := &User{
		Email:        email,
		Name:         "Test User",
		PasswordHash: hash,
		Role:         role,
		Active:       active,
	}
	if err := e.store.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func countEvents(entries []audit.Entry, event audit.Event) int {
	n := 0
	for _, e := range entries {
		if e.Event == event {
			n++
		}
	}
	return n
}

func TestAuthenticateSuccess(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "seller@combisales.test", "pass123", RoleSeller, true)

	token, session, err := env.svc.Authenticate(context.Background(), "seller@combisales.test", "pass123")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if token == "" {
		t.Fatal("expected session token")
	}
	if session.Role != RoleSeller || session.Provider != ProviderCredentials {
		t.Fatalf("unexpected session: %+v", session)
	}

	entries := env.auditLog.All()
	if countEvents(entries, audit.EventLoginSuccess) != 1 {
		t.Fatalf("expected exactly one LOGIN_SUCCESS entry, got %d", countEvents(entries, audit.EventLoginSuccess))
	}
}

func TestAuthenticateUserNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.svc.Authenticate(context.Background(), "ghost@combisales.test", "whatever")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	entries := env.auditLog.All()
	if len(entries) != 1 || entries[0].Event != audit.EventLoginFailed {
		t.Fatalf("expected one LOGIN_FAILED entry, got %+v", entries)
	}
	if entries[0].Metadata["reason"] != audit.ReasonUserNotFound {
		t.Fatalf("unexpected reason: %v", entries[0].Metadata)
	}
	if entries[0].UserID != "" {
		t.Fatalf("expected no user id for unresolvable user")
	}
}

func TestAuthenticateWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "seller@combisales.test", "pass123", RoleSeller, true)

	_, _, err := env.svc.Authenticate(context.Background(), "seller@combisales.test", "nope")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	entries := env.auditLog.All()
	if len(entries) != 1 || entries[0].Metadata["reason"] != audit.ReasonInvalidPassword {
		t.Fatalf("expected LOGIN_FAILED with INVALID_PASSWORD, got %+v", entries)
	}
}

func TestAuthenticateBlockedAccount(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "blocked@combisales.test", "pass123", RoleDealer, false)

	_, _, err := env.svc.Authenticate(context.Background(), "blocked@combisales.test", "pass123")
	if !errors.Is(err, ErrAccountBlocked) {
		t.Fatalf("expected ErrAccountBlocked, got %v", err)
	}

	entries := env.auditLog.All()
	if len(entries) != 1 || entries[0].Event != audit.EventLoginBlocked {
		t.Fatalf("expected one LOGIN_BLOCKED entry, got %+v", entries)
	}
}

func TestMaterializeFailsForDeactivatedUser(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "seller@combisales.test", "pass123", RoleSeller, true)

	token, _, err := env.svc.Authenticate(context.Background(), "seller@combisales.test", "pass123")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	// Deactivation takes effect on the very next session read, regardless
	// of how recently the token was issued.
	env.store.SetActive("seller@combisales.test", false)

	_, _, err = env.svc.Materialize(context.Background(), token)
	if !errors.Is(err, ErrAccountBlocked) {
		t.Fatalf("expected ErrAccountBlocked, got %v", err)
	}
	if countEvents(env.auditLog.All(), audit.EventLoginBlocked) != 1 {
		t.Fatal("expected LOGIN_BLOCKED audit entry")
	}
}

func TestMaterializeOverwritesClaimsFromDatabase(t *testing.T) {
	env := newTestEnv(t)
	u := env.seedUser(t, "seller@combisales.test", "pass123", RoleSeller, true)

	token, _, err := env.svc.Authenticate(context.Background(), "seller@combisales.test", "pass123")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	// Promote the user after the token was issued; the session must show
	// the database role, not the stale claim.
	u.Role = RoleAdmin
	if err := env.store.Create(context.Background(), u); err != nil {
		t.Fatalf("update user: %v", err)
	}

	session, _, err := env.svc.Materialize(context.Background(), token)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if session.Role != RoleAdmin {
		t.Fatalf("expected role from database, got %s", session.Role)
	}
}

func TestMaterializeRejectsGarbageToken(t *testing.T) {
	env := newTestEnv(t)
	if _, _, err := env.svc.Materialize(context.Background(), "not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestMaterializeRefreshesInsideWindow(t *testing.T) {
	refresher := &stubRefresher{token: ProviderToken{
		AccessToken: "fresh-access",
		ExpiresAt:   testNow.Unix() + 3600,
	}}
	env := newTestEnv(t, WithRefresher(refresher))
	u := env.seedUser(t, "seller@combisales.test", "pass123", RoleSeller, true)

	// Provider token expires in 200s, inside the 300s interactive window.
	token, _, err := env.svc.SignInOAuth(context.Background(), OAuthProfile{
		Provider:          ProviderZoho,
		ProviderAccountID: "zoho-1",
		Email:             u.Email,
		AccessToken:       "stale-access",
		RefreshToken:      "refresh-1",
		ExpiresAt:         testNow.Unix() + 200,
	})
	if err != nil {
		t.Fatalf("SignInOAuth: %v", err)
	}

	session, rotated, err := env.svc.Materialize(context.Background(), token)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if refresher.calls != 1 {
		t.Fatalf("expected exactly one refresh attempt, got %d", refresher.calls)
	}
	if session.AccessToken != "fresh-access" {
		t.Fatalf("expected refreshed access token, got %s", session.AccessToken)
	}
	if session.ProviderExpiresAt <= testNow.Unix()+3000 {
		t.Fatalf("expected expiry beyond now+3000s, got %d", session.ProviderExpiresAt)
	}
	if rotated == "" {
		t.Fatal("expected re-signed token after refresh")
	}

	// Persisted row reflects the refresh.
	acc, err := env.store.FindByUser(context.Background(), ProviderZoho, u.ID)
	if err != nil {
		t.Fatalf("FindByUser: %v", err)
	}
	if acc.AccessToken != "fresh-access" || acc.ExpiresAt != testNow.Unix()+3600 {
		t.Fatalf("linked account not updated: %+v", acc)
	}
	if !acc.RefreshedAt.Equal(testNow) {
		t.Fatalf("refreshed_at not set: %v", acc.RefreshedAt)
	}

	if countEvents(env.auditLog.All(), audit.EventTokenRefreshSuccess) != 1 {
		t.Fatal("expected exactly one TOKEN_REFRESH_SUCCESS entry")
	}
}

func TestMaterializeSkipsRefreshOutsideWindow(t *testing.T) {
	refresher := &stubRefresher{token: ProviderToken{AccessToken: "fresh"}}
	env := newTestEnv(t, WithRefresher(refresher))
	u := env.seedUser(t, "seller@combisales.test", "pass123", RoleSeller, true)

	token, _, err := env.svc.SignInOAuth(context.Background(), OAuthProfile{
		Provider:          ProviderZoho,
		ProviderAccountID: "zoho-1",
		Email:             u.Email,
		AccessToken:       "still-good",
		RefreshToken:      "refresh-1",
		ExpiresAt:         testNow.Unix() + 3600,
	})
	if err != nil {
		t.Fatalf("SignInOAuth: %v", err)
	}

	session, rotated, err := env.svc.Materialize(context.Background(), token)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if refresher.calls != 0 {
		t.Fatalf("expected no refresh attempts, got %d", refresher.calls)
	}
	if rotated != "" {
		t.Fatal("expected no token rotation")
	}
	if session.AccessToken != "still-good" {
		t.Fatalf("unexpected access token: %s", session.AccessToken)
	}
}

func TestMaterializeRefreshFailureIsNonFatal(t *testing.T) {
	refresher := &stubRefresher{err: errors.New("provider unreachable")}
	env := newTestEnv(t, WithRefresher(refresher))
	u := env.seedUser(t, "seller@combisales.test", "pass123", RoleSeller, true)

	token, _, err := env.svc.SignInOAuth(context.Background(), OAuthProfile{
		Provider:          ProviderZoho,
		ProviderAccountID: "zoho-1",
		Email:             u.Email,
		AccessToken:       "stale-access",
		RefreshToken:      "refresh-1",
		ExpiresAt:         testNow.Unix() + 100,
	})
	if err != nil {
		t.Fatalf("SignInOAuth: %v", err)
	}

	session, rotated, err := env.svc.Materialize(context.Background(), token)
	if err != nil {
		t.Fatalf("expected session read to succeed, got %v", err)
	}
	if session.AccessToken != "stale-access" {
		t.Fatalf("expected stale token kept, got %s", session.AccessToken)
	}
	if rotated != "" {
		t.Fatal("expected no token rotation on failure")
	}

	entries := env.auditLog.All()
	if countEvents(entries, audit.EventTokenRefreshFailed) != 1 {
		t.Fatal("expected exactly one TOKEN_REFRESH_FAILED entry")
	}
	for _, e := range entries {
		if e.Event == audit.EventTokenRefreshFailed && e.Metadata["error"] == "" {
			t.Fatalf("expected error message in metadata: %+v", e)
		}
	}
}

func TestSignInOAuthUnknownUserRejected(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.svc.SignInOAuth(context.Background(), OAuthProfile{
		Provider:          ProviderZoho,
		ProviderAccountID: "zoho-9",
		Email:             "stranger@combisales.test",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if countEvents(env.auditLog.All(), audit.EventLoginFailed) != 1 {
		t.Fatal("expected LOGIN_FAILED audit entry")
	}
}

func TestSignInOAuthUpsertIsLastWriterWins(t *testing.T) {
	env := newTestEnv(t)
	u := env.seedUser(t, "seller@combisales.test", "pass123", RoleSeller, true)

	profile := OAuthProfile{
		Provider:          ProviderZoho,
		ProviderAccountID: "zoho-1",
		Email:             u.Email,
		AccessToken:       "first",
		RefreshToken:      "refresh-1",
		ExpiresAt:         testNow.Unix() + 3600,
	}
	if _, _, err := env.svc.SignInOAuth(context.Background(), profile); err != nil {
		t.Fatalf("first SignInOAuth: %v", err)
	}
	profile.AccessToken = "second"
	if _, _, err := env.svc.SignInOAuth(context.Background(), profile); err != nil {
		t.Fatalf("second SignInOAuth: %v", err)
	}

	acc, err := env.store.FindByUser(context.Background(), ProviderZoho, u.ID)
	if err != nil {
		t.Fatalf("FindByUser: %v", err)
	}
	if acc.AccessToken != "second" {
		t.Fatalf("expected last write to win, got %s", acc.AccessToken)
	}
}

func TestLogoutWritesAuditEntry(t *testing.T) {
	env := newTestEnv(t)

	env.svc.Logout(context.Background(), Session{
		UserID: "user-1",
		Email:  "seller@combisales.test",
	})

	entries := env.auditLog.All()
	if len(entries) != 1 || entries[0].Event != audit.EventLogout {
		t.Fatalf("expected one LOGOUT entry, got %+v", entries)
	}
}

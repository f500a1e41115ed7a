package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"combisales/internal/audit"
	"combisales/internal/obs"
)

const (
	defaultIssuer            = "combisales"
	defaultSessionTTL        = 12 * time.Hour
	defaultInteractiveWindow = 5 * time.Minute
	defaultBatchWindow       = 10 * time.Minute
)

// Service owns the session token lifecycle: login, materialization with an
// account-active check, and provider token refresh before expiry.
type Service struct {
	store     Store
	recorder  *audit.Recorder
	refresher TokenRefresher

	secret            []byte
	issuer            string
	sessionTTL        time.Duration
	interactiveWindow time.Duration
	batchWindow       time.Duration
	now               func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithRefresher sets the provider token refresher. Without one every refresh
// attempt fails (and is audited as such); session reads still succeed.
func WithRefresher(r TokenRefresher) ServiceOption {
	return func(s *Service) error {
		s.refresher = r
		return nil
	}
}

// WithIssuer overrides the session token issuer claim.
func WithIssuer(issuer string) ServiceOption {
	return func(s *Service) error {
		if v := strings.TrimSpace(issuer); v != "" {
			s.issuer = v
		}
		return nil
	}
}

// WithSessionTTL configures the session token lifetime.
func WithSessionTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
		return nil
	}
}

// WithRefreshWindows configures the interactive and batch early-refresh
// windows. The batch window is intentionally wider so the scheduled job
// catches tokens before the interactive path would need to.
func WithRefreshWindows(interactive, batch time.Duration) ServiceOption {
	return func(s *Service) error {
		if interactive > 0 {
			s.interactiveWindow = interactive
		}
		if batch > 0 {
			s.batchWindow = batch
		}
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// NewService constructs the session lifecycle service.
func NewService(store Store, recorder *audit.Recorder, secret string, opts ...ServiceOption) (*Service, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: session secret is required")
	}
	svc := &Service{
		store:             store,
		recorder:          recorder,
		secret:            []byte(secret),
		issuer:            defaultIssuer,
		sessionTTL:        defaultSessionTTL,
		interactiveWindow: defaultInteractiveWindow,
		batchWindow:       defaultBatchWindow,
		now:               time.Now,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// Authenticate verifies email/password credentials and issues a session
// token. Every outcome writes exactly one audit entry.
func (s *Service) Authenticate(ctx context.Context, email, password string) (string, Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return "", Session{}, ErrInvalidCredentials
	}

	user, err := s.store.Users(ctx).FindByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		s.recorder.Record(ctx, audit.Entry{
			Email:    email,
			Event:    audit.EventLoginFailed,
			Metadata: map[string]string{"reason": audit.ReasonUserNotFound},
		})
		obs.CountLogin("failed")
		return "", Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return "", Session{}, err
	}
	if !user.Active {
		s.recordBlocked(ctx, user, ProviderCredentials)
		return "", Session{}, ErrAccountBlocked
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		s.recorder.Record(ctx, audit.Entry{
			UserID:   user.ID,
			Email:    email,
			Event:    audit.EventLoginFailed,
			Metadata: map[string]string{"reason": audit.ReasonInvalidPassword},
		})
		obs.CountLogin("failed")
		return "", Session{}, ErrInvalidCredentials
	}

	token, err := s.signSession(user, ProviderCredentials, "", "", 0)
	if err != nil {
		return "", Session{}, err
	}
	s.recorder.Record(ctx, audit.Entry{
		UserID:   user.ID,
		Email:    email,
		Event:    audit.EventLoginSuccess,
		Provider: ProviderCredentials,
	})
	obs.CountLogin("success")
	return token, sessionFromUser(user, ProviderCredentials, "", 0), nil
}

// SignInOAuth completes an external OAuth sign-in: it upserts the linked
// account row (last writer wins) and issues a session token carrying the
// provider credentials.
func (s *Service) SignInOAuth(ctx context.Context, profile OAuthProfile) (string, Session, error) {
	email := strings.TrimSpace(strings.ToLower(profile.Email))
	provider := strings.TrimSpace(profile.Provider)
	if email == "" || provider == "" || profile.ProviderAccountID == "" {
		return "", Session{}, ErrInvalidCredentials
	}

	user, err := s.store.Users(ctx).FindByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		s.recorder.Record(ctx, audit.Entry{
			Email:    email,
			Event:    audit.EventLoginFailed,
			Provider: provider,
			Metadata: map[string]string{"reason": audit.ReasonUserNotFound},
		})
		obs.CountLogin("failed")
		return "", Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return "", Session{}, err
	}
	if !user.Active {
		s.recordBlocked(ctx, user, provider)
		return "", Session{}, ErrAccountBlocked
	}

	acc := &LinkedAccount{
		UserID:            user.ID,
		Provider:          provider,
		ProviderAccountID: profile.ProviderAccountID,
		AccessToken:       profile.AccessToken,
		RefreshToken:      profile.RefreshToken,
		ExpiresAt:         profile.ExpiresAt,
		RefreshedAt:       s.now().UTC(),
	}
	if err := s.store.Accounts(ctx).Upsert(ctx, acc); err != nil {
		return "", Session{}, err
	}

	token, err := s.signSession(user, provider, profile.AccessToken, profile.RefreshToken, profile.ExpiresAt)
	if err != nil {
		return "", Session{}, err
	}
	s.recorder.Record(ctx, audit.Entry{
		UserID:   user.ID,
		Email:    email,
		Event:    audit.EventLoginSuccess,
		Provider: provider,
	})
	obs.CountLogin("success")
	return token, sessionFromUser(user, provider, profile.AccessToken, profile.ExpiresAt), nil
}

// Materialize turns a signed token into a session or fails closed. The user
// row is looked up on every call: a deactivated account loses access on its
// very next request, and role/name/image always reflect the database.
//
// When the provider token sits inside the early-refresh window, the refresh
// happens inline and a re-signed token is returned for the transport layer to
// hand back to the client. A failed refresh is audited but never fails the
// session read.
func (s *Service) Materialize(ctx context.Context, token string) (Session, string, error) {
	claims, err := s.verifySession(token)
	if err != nil {
		return Session{}, "", ErrInvalidToken
	}

	user, err := s.store.Users(ctx).FindByEmail(ctx, claims.Subject)
	if errors.Is(err, ErrNotFound) {
		return Session{}, "", ErrInvalidToken
	}
	if err != nil {
		return Session{}, "", err
	}
	if !user.Active {
		s.recordBlocked(ctx, user, claims.Provider)
		return Session{}, "", ErrAccountBlocked
	}

	session := sessionFromUser(user, claims.Provider, claims.AccessToken, claims.ProviderExpiresAt)

	var rotated string
	if s.refreshDue(claims) {
		tok, err := s.refreshProvider(ctx, claims.RefreshToken)
		if err != nil {
			s.recorder.Record(ctx, audit.Entry{
				UserID:   user.ID,
				Email:    user.Email,
				Event:    audit.EventTokenRefreshFailed,
				Provider: claims.Provider,
				Metadata: map[string]string{"error": err.Error()},
			})
			obs.CountTokenRefresh("interactive", "failed")
			return session, "", nil
		}

		if err := s.store.Accounts(ctx).UpdateTokens(ctx, claims.Provider, user.ID, tok.AccessToken, tok.ExpiresAt, s.now().UTC()); err != nil {
			obs.LogError("persist refreshed token failed", map[string]any{
				"user_id": user.ID,
				"error":   err.Error(),
			})
		}
		session.AccessToken = tok.AccessToken
		session.ProviderExpiresAt = tok.ExpiresAt
		rotated, err = s.signSession(user, claims.Provider, tok.AccessToken, claims.RefreshToken, tok.ExpiresAt)
		if err != nil {
			return Session{}, "", err
		}
		s.recorder.Record(ctx, audit.Entry{
			UserID:   user.ID,
			Email:    user.Email,
			Event:    audit.EventTokenRefreshSuccess,
			Provider: claims.Provider,
		})
		obs.CountTokenRefresh("interactive", "success")
	}
	return session, rotated, nil
}

// Logout records the end of a session. Token destruction is client-side.
func (s *Service) Logout(ctx context.Context, session Session) {
	s.recorder.Record(ctx, audit.Entry{
		UserID:   session.UserID,
		Email:    session.Email,
		Event:    audit.EventLogout,
		Provider: session.Provider,
	})
}

func (s *Service) refreshDue(claims *sessionClaims) bool {
	if claims.Provider != ProviderZoho || claims.RefreshToken == "" {
		return false
	}
	return claims.ProviderExpiresAt-s.now().Unix() < int64(s.interactiveWindow/time.Second)
}

func (s *Service) refreshProvider(ctx context.Context, refreshToken string) (ProviderToken, error) {
	if s.refresher == nil {
		return ProviderToken{}, ErrNoRefresher
	}
	return s.refresher.Refresh(ctx, refreshToken)
}

func (s *Service) recordBlocked(ctx context.Context, user *User, provider string) {
	s.recorder.Record(ctx, audit.Entry{
		UserID:   user.ID,
		Email:    user.Email,
		Event:    audit.EventLoginBlocked,
		Provider: provider,
		Metadata: map[string]string{"reason": audit.ReasonAccountBlocked},
	})
	obs.CountLogin("blocked")
}

func sessionFromUser(user *User, provider, accessToken string, providerExpiresAt int64) Session {
	return Session{
		UserID:            user.ID,
		Email:             user.Email,
		Name:              user.Name,
		Image:             user.Image,
		Role:              user.Role,
		Provider:          provider,
		AccessToken:       accessToken,
		ProviderExpiresAt: providerExpiresAt,
	}
}

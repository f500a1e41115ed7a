package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// sessionClaims is the signed session token payload. Subject carries the
// user's email; role/name/image ride along for display but are overwritten
// from the database on every materialization.
type sessionClaims struct {
	Name              string `json:"name,omitempty"`
	Image             string `json:"image,omitempty"`
	Role              string `json:"role,omitempty"`
	Provider          string `json:"provider,omitempty"`
	AccessToken       string `json:"access_token,omitempty"`
	RefreshToken      string `json:"refresh_token,omitempty"`
	ProviderExpiresAt int64  `json:"provider_expires_at,omitempty"`
	jwt.RegisteredClaims
}

func (s *Service) signSession(user *User, provider, accessToken, refreshToken string, providerExpiresAt int64) (string, error) {
	now := s.now().UTC()
	claims := sessionClaims{
		Name:              user.Name,
		Image:             user.Image,
		Role:              user.Role,
		Provider:          provider,
		AccessToken:       accessToken,
		RefreshToken:      refreshToken,
		ProviderExpiresAt: providerExpiresAt,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.sessionTTL)),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Service) verifySession(token string) (*sessionClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	parsed, err := parser.ParseWithClaims(token, &sessionClaims{}, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

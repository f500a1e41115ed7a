package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"combisales/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "

	// sessionTokenHeader carries a re-signed token back to the client after
	// an inline provider refresh rotated the claims.
	sessionTokenHeader = "X-Session-Token"
)

var publicPaths = []string{
	"/v1/auth/login",
	"/v1/auth/oauth",
	"/metrics",
	"/healthz",
	"/readyz",
	"/v1/info",
	"/",
}

// Cron endpoints authenticate with their own shared secret, not a session.
var publicPrefixes = []string{
	"/v1/cron/",
}

// withSession materializes the session for protected paths. The lookup hits
// the user row every time, so a deactivated account is rejected on its next
// request no matter how fresh the token is.
func (a *API) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		session, rotated, err := a.auth.Materialize(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrInvalidToken):
				writeError(w, r, http.StatusUnauthorized, "invalid token")
			case errors.Is(err, auth.ErrAccountBlocked):
				writeError(w, r, http.StatusForbidden, "account is blocked")
			default:
				writeError(w, r, http.StatusInternalServerError, "authentication error")
			}
			return
		}
		if rotated != "" {
			w.Header().Set(sessionTokenHeader, rotated)
		}

		ctx := auth.ContextWithSession(r.Context(), session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

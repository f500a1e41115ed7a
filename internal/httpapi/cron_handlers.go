package httpapi

import (
	"crypto/subtle"
	"net/http"
	"time"
)

// cronAuthorized compares the bearer secret in constant time. An unset secret
// disables the cron endpoints entirely.
func (a *API) cronAuthorized(r *http.Request) bool {
	if a.cronSecret == "" {
		return false
	}
	token, err := extractBearerToken(r.Header.Get(authHeader))
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(a.cronSecret)) == 1
}

// handleCronRefreshTokens runs the scheduled batch refresh. Authentication
// happens before any store access: a wrong secret costs no DB work and
// leaves no audit trace.
func (a *API) handleCronRefreshTokens(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.cronAuthorized(r) {
		writeError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	summary, err := a.auth.RefreshExpiring(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success":   false,
			"timestamp": a.now().UTC().Format(time.RFC3339),
			"error":     err.Error(),
			"results":   summary,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"timestamp": a.now().UTC().Format(time.RFC3339),
		"results":   summary,
	})
}

// handleCronAuditCleanup purges audit entries older than the retention
// horizon.
func (a *API) handleCronAuditCleanup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.cronAuthorized(r) {
		writeError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	cutoff := a.now().UTC().Add(-a.retention)
	removed, err := a.auditStore.PurgeOlderThan(r.Context(), cutoff)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success":   false,
			"timestamp": a.now().UTC().Format(time.RFC3339),
			"error":     err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"timestamp": a.now().UTC().Format(time.RFC3339),
		"results": map[string]any{
			"removed": removed,
			"cutoff":  cutoff.Format(time.RFC3339),
		},
	})
}

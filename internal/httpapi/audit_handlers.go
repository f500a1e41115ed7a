package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"combisales/internal/audit"
	"combisales/internal/auth"
)

// handleAudit serves the audit reporting views. Non-admins may only read
// their own activity; the suspicious and system views are admin-only.
func (a *API) handleAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "no session")
		return
	}

	q := r.URL.Query()
	reportType := strings.TrimSpace(q.Get("type"))
	if reportType == "" {
		reportType = "user"
	}

	hours, err := parseBoundedInt(q.Get("hours"), 24, 1, 720)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "hours must be between 1 and 720")
		return
	}
	window := time.Duration(hours) * time.Hour

	switch reportType {
	case "user":
		userID := strings.TrimSpace(q.Get("userId"))
		if userID == "" {
			userID = session.UserID
		}
		if session.Role != auth.RoleAdmin && userID != session.UserID {
			writeError(w, r, http.StatusForbidden, "insufficient permissions")
			return
		}
		report, err := a.reporter.UserActivity(r.Context(), userID, window)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, report)

	case "suspicious":
		if session.Role != auth.RoleAdmin {
			writeError(w, r, http.StatusForbidden, "insufficient permissions")
			return
		}
		minutes, err := parseBoundedInt(q.Get("window"), int(audit.DefaultSuspiciousWindow/time.Minute), 1, 1440)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "window must be between 1 and 1440 minutes")
			return
		}
		threshold, err := parseBoundedInt(q.Get("threshold"), audit.DefaultSuspiciousThreshold, 1, 1000)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "threshold must be between 1 and 1000")
			return
		}
		groups, err := a.reporter.Suspicious(r.Context(), time.Duration(minutes)*time.Minute, threshold)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"suspicious": groups})

	case "system":
		if session.Role != auth.RoleAdmin {
			writeError(w, r, http.StatusForbidden, "insufficient permissions")
			return
		}
		summary, err := a.reporter.Summary(r.Context(), window)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"summary": summary})

	default:
		writeError(w, r, http.StatusBadRequest, "type must be user, suspicious or system")
	}
}

func parseBoundedInt(raw string, def, min, max int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("not an integer")
	}
	if val < min || val > max {
		return 0, errors.New("out of range")
	}
	return val, nil
}

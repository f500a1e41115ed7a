package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"combisales/internal/auth"
)

// handleAuditStream serves a live SSE feed of audit entries for admin
// dashboards. Entries are delivered best effort; slow clients miss events
// rather than backpressure the writers.
func (a *API) handleAuditStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "no session")
		return
	}
	if session.Role != auth.RoleAdmin {
		writeError(w, r, http.StatusForbidden, "insufficient permissions")
		return
	}
	if a.stream == nil {
		writeError(w, r, http.StatusServiceUnavailable, "stream disabled")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for entry := range a.stream.Subscribe(r.Context()) {
		data, err := json.Marshal(entry)
		if err != nil {
			continue
		}
		_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}
}

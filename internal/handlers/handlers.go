package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/nikahsufiyana/nikah-backend/internal/services"
)

// core is the photo-access core shared by every handler. Set once in main.
var core *services.Core

func InitCore(c *services.Core) {
	core = c
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"message": message,
	})
}

// writeServiceError maps core sentinels to status codes. Unknown errors are
// logged and reported as 500 without detail.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidArgument):
		writeFailure(w, http.StatusBadRequest, "invalid request")
	case errors.Is(err, services.ErrUnauthorized):
		writeFailure(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, services.ErrNotFound):
		writeFailure(w, http.StatusNotFound, "not found")
	case errors.Is(err, services.ErrAlreadyExists):
		writeFailure(w, http.StatusConflict, "already exists")
	case errors.Is(err, services.ErrDeclined):
		writeFailure(w, http.StatusConflict, "interest was declined recently")
	case errors.Is(err, services.ErrConflict):
		writeFailure(w, http.StatusConflict, "request conflicts with current state")
	case errors.Is(err, services.ErrCorruptRecord):
		log.Printf("corrupt record: %v", err)
		writeFailure(w, http.StatusInternalServerError, "internal error")
	case errors.Is(err, services.ErrIndeterminate),
		errors.Is(err, services.ErrStoreUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		log.Printf("store unavailable: %v", err)
		writeFailure(w, http.StatusServiceUnavailable, "service temporarily unavailable")
	default:
		log.Printf("unhandled error: %v", err)
		writeFailure(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func extractBearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

// sessionToken reads the bearer header, falling back to ?token= for browser
// WebSocket clients that cannot set headers.
func sessionToken(r *http.Request) string {
	if t := extractBearerToken(r.Header.Get("Authorization")); t != "" {
		return t
	}
	return r.URL.Query().Get("token")
}

// requireUser resolves the member session or writes 401.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	return requireSession(w, r, services.UserSessions)
}

func requireAdmin(w http.ResponseWriter, r *http.Request) (string, bool) {
	return requireSession(w, r, services.AdminSessions)
}

func requireSession(w http.ResponseWriter, r *http.Request, kind services.SessionKind) (string, bool) {
	token := sessionToken(r)
	if token == "" {
		writeFailure(w, http.StatusUnauthorized, "missing session token")
		return "", false
	}
	id, ok, err := kind.Validate(r.Context(), token)
	if err != nil {
		log.Printf("session lookup failed: %v", err)
		writeFailure(w, http.StatusServiceUnavailable, "service temporarily unavailable")
		return "", false
	}
	if !ok {
		writeFailure(w, http.StatusUnauthorized, "invalid or expired session")
		return "", false
	}
	return id, true
}

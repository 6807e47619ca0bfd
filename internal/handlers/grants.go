package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nikahsufiyana/nikah-backend/internal/models"
	"github.com/nikahsufiyana/nikah-backend/internal/services"
)

// GrantView adds the derived state clients need to render a countdown.
type GrantView struct {
	models.PhotoAccessGrant
	Active           bool       `json:"active"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	RemainingSeconds *int64     `json:"remaining_seconds,omitempty"`
}

func newGrantView(g *models.PhotoAccessGrant, now time.Time) GrantView {
	v := GrantView{PhotoAccessGrant: *g, Active: services.IsGrantActive(g, now)}
	if d, bounded := g.DurationCode.Duration(); bounded {
		exp := g.GrantedAt.Add(d)
		v.ExpiresAt = &exp
	}
	if rem, ok := services.GrantRemaining(g, now); ok {
		secs := int64(rem / time.Second)
		v.RemainingSeconds = &secs
	}
	return v
}

// ListGrants returns the grants the caller has issued.
func ListGrants(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	grants, err := core.Grants.ListByGranter(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	now := core.Now()
	views := make([]GrantView, 0, len(grants))
	for i := range grants {
		views = append(views, newGrantView(&grants[i], now))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"grants":  views,
		"count":   len(views),
	})
}

func GetGrant(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	g, err := core.Interests.GetGrant(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"grant":   newGrantView(g, core.Now()),
	})
}

// RevokeGrant ends a grant early. Repeating it is not an error.
func RevokeGrant(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	g, err := core.Interests.RevokeAccess(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Access revoked",
		"grant":   newGrantView(g, core.Now()),
	})
}

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nikahsufiyana/nikah-backend/internal/models"
	"github.com/nikahsufiyana/nikah-backend/internal/services"
)

type SendInterestRequest struct {
	ToUserID string `json:"to_user_id"`
}

type AcceptInterestRequest struct {
	// Duration is optional. Empty accepts without a time-bounded grant.
	Duration string `json:"duration,omitempty"`
}

func SendInterest(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req SendInterestRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ToUserID == "" {
		writeFailure(w, http.StatusBadRequest, "to_user_id is required")
		return
	}

	it, err := core.Interests.SendInterest(r.Context(), userID, req.ToUserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":  true,
		"message":  "Interest sent",
		"interest": it,
	})
}

// ListInterests lists the caller's inbox (?box=received, default) or outbox
// (?box=sent).
func ListInterests(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	box := models.InterestBox(r.URL.Query().Get("box"))
	if box == "" {
		box = models.InterestBoxReceived
	}
	items, err := core.Interests.ListInterests(r.Context(), userID, box)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"box":       box,
		"interests": items,
		"count":     len(items),
	})
}

func GetInterest(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	it, err := core.Interests.GetInterest(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "interest": it})
}

func AcceptInterest(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req AcceptInterestRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	var duration *models.DurationCode
	if req.Duration != "" {
		code, err := models.ParseDurationCode(req.Duration)
		if err != nil {
			writeFailure(w, http.StatusBadRequest, err.Error())
			return
		}
		duration = &code
	}

	it, grant, err := core.Interests.AcceptInterest(r.Context(), userID, chi.URLParam(r, "id"), duration)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	resp := map[string]interface{}{
		"success":  true,
		"message":  "Interest accepted",
		"interest": it,
	}
	if grant != nil {
		resp["grant"] = newGrantView(grant, core.Now())
	}
	writeJSON(w, http.StatusOK, resp)
}

func DeclineInterest(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	it, err := core.Interests.DeclineInterest(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"message":  "Interest declined",
		"interest": it,
	})
}

// GetConnection reports the relationship between the caller and another
// member, from the caller's side.
func GetConnection(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	otherID := services.NormalizeUserID(chi.URLParam(r, "userID"))
	if otherID == "" {
		writeFailure(w, http.StatusBadRequest, "userID is required")
		return
	}

	ctx := r.Context()
	blocked, err := core.Blocks.IsBlocked(ctx, userID, otherID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	t := models.ConnectionBlocked
	if !blocked {
		if t, err = core.Connections.GetConnection(ctx, userID, otherID); err != nil {
			writeServiceError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"user_id":    otherID,
		"connection": t,
		"connected":  t.IsConnected(),
	})
}

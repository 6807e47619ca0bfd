package handlers

import (
	"net/http"

	"github.com/nikahsufiyana/nikah-backend/internal/models"
)

type PrivacyResponse struct {
	Success bool                   `json:"success"`
	Privacy models.PrivacySettings `json:"privacy"`
}

// GetPrivacy returns the caller's settings with unset tiers shown as their
// effective defaults.
func GetPrivacy(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	settings, err := core.Profiles.Privacy(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	def := models.DefaultPrivacySettings()
	if settings.ProfilePhotoVisibility == "" {
		settings.ProfilePhotoVisibility = def.ProfilePhotoVisibility
	}
	if settings.GalleryVisibility == "" {
		settings.GalleryVisibility = def.GalleryVisibility
	}
	writeJSON(w, http.StatusOK, PrivacyResponse{Success: true, Privacy: settings})
}

// UpdatePrivacy replaces either tier. Omitted fields keep their value.
// Changes apply to the next access check; nothing is cached.
func UpdatePrivacy(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req models.PrivacySettings
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	if err := core.Profiles.UpdatePrivacy(ctx, userID, req); err != nil {
		writeServiceError(w, err)
		return
	}
	current, err := core.Profiles.Privacy(ctx, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PrivacyResponse{Success: true, Privacy: current})
}

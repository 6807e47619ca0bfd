package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/nikahsufiyana/nikah-backend/internal/models"
	"github.com/nikahsufiyana/nikah-backend/internal/services"
)

type AdminUser struct {
	models.Account
	IsPremium  bool `json:"is_premium"`
	IsVerified bool `json:"is_verified"`
}

// GetUsers lists member accounts with their Redis profile flags.
// Query params: limit (default 50), offset.
func GetUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	ctx := r.Context()
	accounts, err := services.ListAccounts(ctx, limit, offset)
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, "Failed to fetch users")
		return
	}

	now := core.Now()
	users := make([]AdminUser, 0, len(accounts))
	for _, acc := range accounts {
		u := AdminUser{Account: acc}
		if p, err := core.Profiles.Get(ctx, acc.ID); err == nil {
			u.IsPremium = p.HasActivePremium(now)
			u.IsVerified = p.IsVerified
		}
		users = append(users, u)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"users":   users,
		"count":   len(users),
	})
}

type SetPremiumRequest struct {
	UserID    string `json:"user_id"`
	IsPremium bool   `json:"is_premium"`
	// Days bounds the subscription; 0 leaves it open-ended.
	Days int `json:"days,omitempty"`
}

func SetPremium(w http.ResponseWriter, r *http.Request) {
	adminID, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	var req SetPremiumRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID == "" {
		writeFailure(w, http.StatusBadRequest, "user_id is required")
		return
	}

	until := services.PremiumUntilFromDays(core.Now(), req.Days)
	if !req.IsPremium {
		until = nil
	}
	if err := core.Profiles.SetPremium(r.Context(), req.UserID, req.IsPremium, until); err != nil {
		writeServiceError(w, err)
		return
	}
	log.Printf("admin %s set premium=%v for %s", adminID, req.IsPremium, req.UserID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"message":       "Premium status updated",
		"premium_until": until,
	})
}

type SetVerifiedRequest struct {
	UserID     string `json:"user_id"`
	IsVerified bool   `json:"is_verified"`
}

func SetVerified(w http.ResponseWriter, r *http.Request) {
	adminID, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	var req SetVerifiedRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID == "" {
		writeFailure(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if err := core.Profiles.SetVerified(r.Context(), req.UserID, req.IsVerified); err != nil {
		writeServiceError(w, err)
		return
	}
	log.Printf("admin %s set verified=%v for %s", adminID, req.IsVerified, req.UserID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Verification status updated",
	})
}

// AdminUnblock lifts a member's block on another member.
// Query params: blocker, blocked.
func AdminUnblock(w http.ResponseWriter, r *http.Request) {
	adminID, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	blocker := r.URL.Query().Get("blocker")
	blocked := r.URL.Query().Get("blocked")
	if blocker == "" || blocked == "" {
		writeFailure(w, http.StatusBadRequest, "blocker and blocked are required")
		return
	}
	if err := core.Blocks.Unblock(r.Context(), blocker, blocked); err != nil {
		writeServiceError(w, err)
		return
	}
	log.Printf("admin %s lifted block %s -> %s", adminID, blocker, blocked)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Block removed",
	})
}

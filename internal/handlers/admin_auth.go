package handlers

import (
	"errors"
	"net/http"

	"github.com/nikahsufiyana/nikah-backend/internal/services"
	"github.com/nikahsufiyana/nikah-backend/pkg/utils"
)

type AdminSigninRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AdminSigninResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Admin   map[string]interface{} `json:"admin,omitempty"`
	Token   string                 `json:"token,omitempty"`
}

// AdminSignin authenticates an operator. Admin rows are created directly in
// the database; there is no signup route.
func AdminSignin(w http.ResponseWriter, r *http.Request) {
	var req AdminSigninRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeFailure(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	ctx := r.Context()
	admin, err := services.GetAdminByUsername(ctx, req.Username)
	if errors.Is(err, services.ErrNotFound) {
		writeFailure(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !admin.IsActive {
		writeFailure(w, http.StatusForbidden, "Admin account is inactive")
		return
	}
	if ok, err := utils.VerifyPassword(req.Password, admin.PasswordHash); err != nil || !ok {
		writeFailure(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	token, err := services.AdminSessions.Create(ctx, admin.ID)
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, "Failed to create session")
		return
	}
	writeJSON(w, http.StatusOK, AdminSigninResponse{
		Success: true,
		Message: "Signin successful",
		Admin: map[string]interface{}{
			"id":       admin.ID,
			"username": admin.Username,
		},
		Token: token,
	})
}

package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/nikahsufiyana/nikah-backend/internal/models"
	"github.com/nikahsufiyana/nikah-backend/internal/services"
	"github.com/nikahsufiyana/nikah-backend/pkg/utils"
)

type SignupRequest struct {
	Username string                  `json:"username"`
	Password string                  `json:"password"`
	Privacy  *models.PrivacySettings `json:"privacy,omitempty"`
}

type SigninRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	User    *models.UserProfile `json:"user,omitempty"`
	Token   string              `json:"token,omitempty"`
}

// Signup creates the Postgres credential row and the Redis profile, then
// opens a session.
func Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := utils.ValidateUsername(req.Username); err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	ctx := r.Context()
	acc, err := services.CreateAccount(ctx, utils.NormalizeUsername(req.Username), hash)
	if errors.Is(err, services.ErrAlreadyExists) {
		writeFailure(w, http.StatusConflict, "Username is already taken")
		return
	}
	if err != nil {
		log.Printf("signup: create account: %v", err)
		writeFailure(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	profile := models.UserProfile{
		ID:        acc.ID,
		Username:  acc.Username,
		CreatedAt: acc.CreatedAt,
	}
	if req.Privacy != nil {
		profile.Privacy = *req.Privacy
	}
	if err := core.Profiles.Create(ctx, profile); err != nil {
		if delErr := services.DeleteAccount(ctx, acc.ID); delErr != nil {
			log.Printf("signup: rollback account %s: %v", acc.ID, delErr)
		}
		writeServiceError(w, err)
		return
	}

	token, err := services.UserSessions.Create(ctx, acc.ID)
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, "Failed to create session")
		return
	}
	created, err := core.Profiles.Get(ctx, acc.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{
		Success: true,
		Message: "Account created successfully",
		User:    created,
		Token:   token,
	})
}

func Signin(w http.ResponseWriter, r *http.Request) {
	var req SigninRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeFailure(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	ctx := r.Context()
	acc, err := services.GetAccountByUsername(ctx, utils.NormalizeUsername(req.Username))
	if errors.Is(err, services.ErrNotFound) {
		writeFailure(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !acc.IsActive {
		writeFailure(w, http.StatusForbidden, "Account is inactive")
		return
	}
	if ok, err := utils.VerifyPassword(req.Password, acc.PasswordHash); err != nil || !ok {
		writeFailure(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	profile, err := core.Profiles.Get(ctx, acc.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	token, err := services.UserSessions.Create(ctx, acc.ID)
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{
		Success: true,
		Message: "Login successful",
		User:    profile,
		Token:   token,
	})
}

func GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	profile, err := core.Profiles.Get(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{Success: true, Message: "ok", User: profile})
}

func Signout(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)
	if err := services.UserSessions.Invalidate(r.Context(), token); err != nil {
		writeFailure(w, http.StatusServiceUnavailable, "service temporarily unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Signed out",
	})
}

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type BlockRequest struct {
	UserID string `json:"user_id"`
}

func ListBlocks(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	ids, err := core.Blocks.ListBlocked(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"blocked": ids,
		"count":   len(ids),
	})
}

// BlockUser blocks another member. Any interest, connection or grant between
// the two is removed in the same step.
func BlockUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req BlockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID == "" {
		writeFailure(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if err := core.Blocks.Block(r.Context(), userID, req.UserID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "User blocked",
	})
}

// UnblockUser lifts a block. Relationship state removed by the block is not
// restored.
func UnblockUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := core.Blocks.Unblock(r.Context(), userID, chi.URLParam(r, "userID")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "User unblocked",
	})
}

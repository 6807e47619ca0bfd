package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/nikahsufiyana/nikah-backend/internal/models"
	"github.com/nikahsufiyana/nikah-backend/internal/services"
)

var (
	notificationService *services.NotificationService
	notificationHub     *services.NotificationHub
)

func InitNotifications(svc *services.NotificationService, hub *services.NotificationHub) {
	notificationService = svc
	notificationHub = hub
}

var notificationUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin is enforced by the CORS layer; the session token authenticates.
		return true
	},
}

type NotificationsResponse struct {
	Success       bool                  `json:"success"`
	Notifications []models.Notification `json:"notifications"`
	HasMore       bool                  `json:"has_more"`
}

// ListNotifications pages the caller's notification history.
// Query params:
//
//	before (optional RFC3339 timestamp for pagination)
//	limit  (optional, default 20, max 100)
func ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if notificationService == nil {
		writeJSON(w, http.StatusOK, NotificationsResponse{Success: true, Notifications: []models.Notification{}})
		return
	}

	limit := int64(20)
	if lStr := r.URL.Query().Get("limit"); lStr != "" {
		if parsed, err := strconv.ParseInt(lStr, 10, 64); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	var before *time.Time
	if bStr := r.URL.Query().Get("before"); bStr != "" {
		if t, err := time.Parse(time.RFC3339, bStr); err == nil {
			before = &t
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	items, hasMore, err := notificationService.List(ctx, userID, before, limit)
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, "failed to load notifications")
		return
	}
	if items == nil {
		items = []models.Notification{}
	}
	writeJSON(w, http.StatusOK, NotificationsResponse{Success: true, Notifications: items, HasMore: hasMore})
}

func MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if notificationService == nil {
		writeFailure(w, http.StatusNotFound, "not found")
		return
	}
	if err := notificationService.MarkRead(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// NotificationsWebSocket streams the caller's notifications as they happen.
// The socket is receive-only; client frames other than pings are ignored.
func NotificationsWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if notificationHub == nil {
		http.Error(w, "notifications unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := notificationUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	unregister := notificationHub.Register(userID, newSafeConn(conn))
	defer unregister()

	conn.SetReadLimit(4 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	}
}

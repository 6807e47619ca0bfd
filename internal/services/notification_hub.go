package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/nikahsufiyana/nikah-backend/internal/models"
	"github.com/redis/go-redis/v9"
)

// SocketConn is the minimal interface the WebSocket implementation satisfies.
type SocketConn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// NotificationHub is this instance's registry of live sockets, keyed by user.
// Events reach it through the Redis pattern subscription, so every instance
// delivers to its own sockets.
type NotificationHub struct {
	mu    sync.RWMutex
	conns map[string]map[SocketConn]struct{}
	once  sync.Once
}

func NewNotificationHub() *NotificationHub {
	return &NotificationHub{conns: make(map[string]map[SocketConn]struct{})}
}

// Register adds a socket for userID and returns a function that removes it.
func (h *NotificationHub) Register(userID string, conn SocketConn) func() {
	userID = NormalizeUserID(userID)
	h.mu.Lock()
	set, ok := h.conns[userID]
	if !ok {
		set = make(map[SocketConn]struct{})
		h.conns[userID] = set
	}
	set[conn] = struct{}{}
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if set, ok := h.conns[userID]; ok {
			delete(set, conn)
			if len(set) == 0 {
				delete(h.conns, userID)
			}
		}
	}
}

// Deliver writes n to every local socket of its recipient. Writes are
// best effort and do not block the caller.
func (h *NotificationHub) Deliver(n models.Notification) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	set := h.conns[NormalizeUserID(n.UserID)]
	for c := range set {
		go func(c SocketConn) {
			if err := c.WriteJSON(n); err != nil {
				log.Printf("error writing notification to websocket: %v", err)
			}
		}(c)
	}
	return len(set)
}

// Start launches the single shared Redis listener for this instance.
func (h *NotificationHub) Start(ctx context.Context, rdb *redis.Client) {
	h.once.Do(func() {
		go h.run(ctx, rdb)
	})
}

func (h *NotificationHub) run(ctx context.Context, rdb *redis.Client) {
	if rdb == nil {
		log.Println("Redis client not initialized; notification subscriber not started")
		return
	}

	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		func() {
			pubsub := rdb.PSubscribe(ctx, notifyChannelPrefix+"*")
			defer pubsub.Close()

			log.Println("✅ Notification subscriber started (pattern: " + notifyChannelPrefix + "*)")

			for {
				msg, err := pubsub.ReceiveMessage(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					log.Printf("Redis subscriber error: %v", err)
					time.Sleep(backoff)
					backoff *= 2
					if backoff > 30*time.Second {
						backoff = 30 * time.Second
					}
					return
				}
				backoff = time.Second

				var n models.Notification
				if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
					log.Printf("failed to unmarshal notification: %v", err)
					continue
				}
				h.Deliver(n)
			}
		}()
	}
}

package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/nikahsufiyana/nikah-backend/internal/database"
	"github.com/redis/go-redis/v9"
)

// SessionDuration is how long a token stays valid without a fresh sign-in.
const SessionDuration = 7 * 24 * time.Hour

// SessionKind separates member and admin tokens so one can never be
// replayed as the other.
type SessionKind struct {
	tokenPrefix string
	ownerPrefix string
}

var (
	UserSessions  = SessionKind{tokenPrefix: "session:", ownerPrefix: "user_session:"}
	AdminSessions = SessionKind{tokenPrefix: "admin_session:", ownerPrefix: "admin_to_session:"}
)

// Create issues a token for ownerID. Any previous token for the same owner is
// dropped so the 7-day window restarts at each sign-in.
func (k SessionKind) Create(ctx context.Context, ownerID string) (string, error) {
	_ = k.InvalidateOwner(ctx, ownerID)

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := base64.URLEncoding.EncodeToString(buf)

	pipe := database.RedisClient.TxPipeline()
	pipe.Set(ctx, k.tokenPrefix+token, ownerID, SessionDuration)
	pipe.Set(ctx, k.ownerPrefix+ownerID, token, SessionDuration)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", err
	}
	return token, nil
}

// Validate resolves a token to its owner. An unknown token is ("", false, nil).
func (k SessionKind) Validate(ctx context.Context, token string) (string, bool, error) {
	if token == "" {
		return "", false, nil
	}
	ownerID, err := database.RedisClient.Get(ctx, k.tokenPrefix+token).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return ownerID, true, nil
}

// Invalidate removes one token and its owner mapping.
func (k SessionKind) Invalidate(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	ownerID, err := database.RedisClient.Get(ctx, k.tokenPrefix+token).Result()
	if err == nil && ownerID != "" {
		_ = database.RedisClient.Del(ctx, k.ownerPrefix+ownerID).Err()
	}
	return database.RedisClient.Del(ctx, k.tokenPrefix+token).Err()
}

// InvalidateOwner drops whatever token ownerID currently holds.
func (k SessionKind) InvalidateOwner(ctx context.Context, ownerID string) error {
	token, err := database.RedisClient.Get(ctx, k.ownerPrefix+ownerID).Result()
	if err == nil && token != "" {
		_ = database.RedisClient.Del(ctx, k.tokenPrefix+token).Err()
	}
	return database.RedisClient.Del(ctx, k.ownerPrefix+ownerID).Err()
}

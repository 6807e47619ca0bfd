package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/nikahsufiyana/nikah-backend/internal/database"
)

const RateLimitKeyPrefix = "ratelimit:"

// WindowLimit is a fixed-window counter shared across instances through
// Redis. It suits actions other members see, like sending interests.
type WindowLimit struct {
	Name   string
	Method string
	Path   string
	Max    int
	Window time.Duration
}

var (
	InterestSendLimit = WindowLimit{Name: "interest", Method: http.MethodPost, Path: "/api/interests", Max: 50, Window: 24 * time.Hour}
	BlockLimit        = WindowLimit{Name: "block", Method: http.MethodPost, Path: "/api/blocks", Max: 100, Window: 24 * time.Hour}
)

// RedisRateLimit enforces each WindowLimit per client IP. Redis failures let
// the request through.
func RedisRateLimit(limits ...WindowLimit) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, l := range limits {
				if r.Method != l.Method || r.URL.Path != l.Path {
					continue
				}
				count, err := incrWindow(r, l)
				if err != nil {
					break
				}
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.Max))
				if count > int64(l.Max) {
					w.Header().Set("X-RateLimit-Remaining", "0")
					w.Header().Set("Retry-After", strconv.Itoa(int(l.Window.Seconds())))
					tooManyRequests(w, "Limit reached. Please try again later.")
					return
				}
				w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(int64(l.Max)-count, 10))
				break
			}
			next.ServeHTTP(w, r)
		})
	}
}

func incrWindow(r *http.Request, l WindowLimit) (int64, error) {
	if database.RedisClient == nil {
		return 0, fmt.Errorf("redis not connected")
	}
	ctx := r.Context()
	key := RateLimitKeyPrefix + l.Name + ":" + requestIP(r)

	count, err := database.RedisClient.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		// First hit opens the window.
		if err := database.RedisClient.Expire(ctx, key, l.Window).Err(); err != nil {
			return 0, err
		}
	}
	return count, nil
}

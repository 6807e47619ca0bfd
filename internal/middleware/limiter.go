package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/nikahsufiyana/nikah-backend/pkg/clientip"
	"golang.org/x/time/rate"
)

// TrustForwardedFor is set from config at startup.
var TrustForwardedFor bool

func requestIP(r *http.Request) string {
	return clientip.RealClientIP(r, TrustForwardedFor)
}

const (
	limiterCleanupInterval = 5 * time.Minute
	limiterTTL             = 30 * time.Minute
)

type limiterEntry struct {
	limiter *rate.Limiter
	lastUse time.Time
}

// keyedLimiters holds one token bucket per key and drops buckets that have
// been idle for limiterTTL.
type keyedLimiters struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	entries map[string]*limiterEntry
	once    sync.Once
}

func newKeyedLimiters(limit rate.Limit, burst int) *keyedLimiters {
	return &keyedLimiters{limit: limit, burst: burst, entries: make(map[string]*limiterEntry)}
}

func (k *keyedLimiters) allow(key string) bool {
	k.once.Do(func() { go k.cleanup() })

	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(k.limit, k.burst)}
		k.entries[key] = e
	}
	e.lastUse = time.Now()
	k.mu.Unlock()

	return e.limiter.Allow()
}

func (k *keyedLimiters) cleanup() {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()
	for range ticker.C {
		k.mu.Lock()
		now := time.Now()
		for key, e := range k.entries {
			if now.Sub(e.lastUse) > limiterTTL {
				delete(k.entries, key)
			}
		}
		k.mu.Unlock()
	}
}

func tooManyRequests(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	w.Write([]byte(`{"success":false,"message":"` + message + `"}`))
}

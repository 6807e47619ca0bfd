package services

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultStoreTimeout bounds every Redis round trip made by the core.
	DefaultStoreTimeout = 3 * time.Second
	// txRetries is how many times an optimistic WATCH transaction is retried.
	txRetries = 3

	userKeyPrefix         = "user:"
	connectionKeyPrefix   = "connection:"
	interestKeyPrefix     = "interest:"
	interestPairKeyPrefix = "interest_pair:"
	interestsSentPrefix   = "interests:sent:"
	interestsRecvPrefix   = "interests:received:"
	declinedKeyPrefix     = "declined:"
	grantKeyPrefix        = "grant:"
	grantPairKeyPrefix    = "grant_pair:"
	grantsByGranterPrefix = "grants:"
	blockedUsersKeyPrefix = "blocked_users:"
	photosKeyPrefix       = "photos:"
	timeLayout            = time.RFC3339Nano
)

// NormalizeUserID strips the "user:" namespace prefix and whitespace so ids
// from sessions, paths and stored records compare equal.
func NormalizeUserID(id string) string {
	id = strings.TrimSpace(id)
	return strings.TrimPrefix(id, userKeyPrefix)
}

func userKey(id string) string { return userKeyPrefix + id }

// connectionKey returns the canonical key for the unordered pair plus the
// sorted ids.
func connectionKey(a, b string) (key, lo, hi string) {
	lo, hi = a, b
	if hi < lo {
		lo, hi = hi, lo
	}
	return connectionKeyPrefix + lo + ":" + hi, lo, hi
}

func interestKey(id string) string           { return interestKeyPrefix + id }
func interestPairKey(from, to string) string { return interestPairKeyPrefix + from + ":" + to }
func interestsSentKey(uid string) string     { return interestsSentPrefix + uid }
func interestsRecvKey(uid string) string     { return interestsRecvPrefix + uid }
func declinedKey(from, to string) string     { return declinedKeyPrefix + from + ":" + to }
func grantKey(id string) string              { return grantKeyPrefix + id }
func grantPairKey(granter, grantee string) string {
	return grantPairKeyPrefix + granter + ":" + grantee
}
func grantsByGranterKey(uid string) string { return grantsByGranterPrefix + uid }
func blockedUsersKey(owner string) string  { return blockedUsersKeyPrefix + owner }
func photosKey(uid, category string) string {
	return photosKeyPrefix + uid + ":" + category
}

// store is embedded by every Redis-backed component.
type store struct {
	rdb     *redis.Client
	timeout time.Duration
	now     func() time.Time
}

func newStore(rdb *redis.Client, timeout time.Duration, now func() time.Time) store {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	if now == nil {
		now = time.Now
	}
	return store{rdb: rdb, timeout: timeout, now: now}
}

func (s store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// watch runs an optimistic transaction, retrying when a watched key changed
// underneath it.
func (s store) watch(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	var err error
	for i := 0; i < txRetries; i++ {
		err = s.rdb.Watch(ctx, fn, keys...)
		if err != redis.TxFailedErr {
			return err
		}
	}
	return ErrConflict
}

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseTimePtr(s string) *time.Time {
	if s == "" {
		return nil
	}
	t := parseTime(s)
	if t.IsZero() {
		return nil
	}
	return &t
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func parseBool(s string) bool { return s == "1" || s == "true" }

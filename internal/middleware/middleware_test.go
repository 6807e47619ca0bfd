package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nikahsufiyana/nikah-backend/internal/database"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestHostCheck(t *testing.T) {
	h := HostCheck("api.nikahsufiyana.com")(okHandler)
	cases := []struct {
		host string
		want int
	}{
		{"api.nikahsufiyana.com", http.StatusOK},
		{"API.NikahSufiyana.com:443", http.StatusOK},
		{"evil.example.com", http.StatusForbidden},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Host = c.host
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != c.want {
			t.Errorf("host %q: status %d, want %d", c.host, rec.Code, c.want)
		}
	}

	open := HostCheck("")(okHandler)
	rec := httptest.NewRecorder()
	open.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("empty allowed host: status %d", rec.Code)
	}
}

func TestKeyedLimitersArePerKey(t *testing.T) {
	l := newKeyedLimiters(rate.Every(time.Hour), 2)
	for i := 0; i < 2; i++ {
		if !l.allow("1.1.1.1") {
			t.Fatalf("request %d denied within burst", i)
		}
	}
	if l.allow("1.1.1.1") {
		t.Error("request beyond burst allowed")
	}
	if !l.allow("2.2.2.2") {
		t.Error("other key throttled")
	}
}

func TestLoginRateLimitOnlyCredentialRoutes(t *testing.T) {
	prev := loginLimiters
	loginLimiters = newKeyedLimiters(rate.Every(time.Hour), 1)
	t.Cleanup(func() { loginLimiters = prev })

	h := LoginRateLimit(okHandler)
	post := func(path string) int {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.RemoteAddr = "10.0.0.7:5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	if got := post("/api/auth/signin"); got != http.StatusOK {
		t.Fatalf("first signin = %d", got)
	}
	if got := post("/api/auth/signin"); got != http.StatusTooManyRequests {
		t.Errorf("second signin = %d, want 429", got)
	}
	if got := post("/api/interests"); got != http.StatusOK {
		t.Errorf("non-credential route = %d", got)
	}
}

func TestRedisRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	prev := database.RedisClient
	database.RedisClient = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		database.RedisClient.Close()
		database.RedisClient = prev
	})

	limit := WindowLimit{Name: "interest", Method: http.MethodPost, Path: "/api/interests", Max: 2, Window: time.Hour}
	h := RedisRateLimit(limit)(okHandler)
	send := func(method string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/api/interests", nil)
		req.RemoteAddr = "10.0.0.9:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		rec := send(http.MethodPost)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d = %d", i, rec.Code)
		}
		if got := rec.Header().Get("X-RateLimit-Remaining"); got != strconv.Itoa(1-i) {
			t.Errorf("remaining after %d = %s", i, got)
		}
	}
	rec := send(http.MethodPost)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("over limit = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "3600" {
		t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
	if ttl := mr.TTL(RateLimitKeyPrefix + "interest:10.0.0.9"); ttl != time.Hour {
		t.Errorf("window ttl = %v", ttl)
	}
	if rec := send(http.MethodGet); rec.Code != http.StatusOK {
		t.Errorf("GET counted against POST limit: %d", rec.Code)
	}

	// Fail open when Redis is gone.
	mr.Close()
	if rec := send(http.MethodPost); rec.Code != http.StatusOK {
		t.Errorf("redis down = %d, want pass-through", rec.Code)
	}
}

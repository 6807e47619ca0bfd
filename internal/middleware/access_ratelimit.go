package middleware

import (
	"net/http"
	"strings"

	"golang.org/x/time/rate"
)

// Photo and access-check reads are limited separately so one client cannot
// walk the member list probing whose photos it can see.
// 1 req/s per IP, burst 30.
var accessLimiters = newKeyedLimiters(rate.Limit(1), 30)

func isAccessPath(path string) bool {
	return strings.HasPrefix(path, "/api/photos/") || strings.HasPrefix(path, "/api/access/")
}

func AccessRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || !isAccessPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		if !accessLimiters.allow(requestIP(r)) {
			w.Header().Set("Retry-After", "1")
			tooManyRequests(w, "Too many photo requests. Please slow down.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

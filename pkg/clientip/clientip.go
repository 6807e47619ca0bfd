package clientip

import (
	"net"
	"net/http"
	"strings"
)

// RealClientIP returns the client IP used as the rate-limit key.
// By default only r.RemoteAddr is trusted. With trustForwarded set (the app
// sits behind a single known proxy) the left-most X-Forwarded-For entry wins.
func RealClientIP(r *http.Request, trustForwarded bool) string {
	if trustForwarded {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first := strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
			if net.ParseIP(first) != nil {
				return first
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return strings.TrimSpace(host)
}

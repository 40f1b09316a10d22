// Package clientip resolves the caller address for request logs.
package clientip

import (
	"net"
	"net/http"
	"strings"
)

// FromRequest returns the client IP for r.
// With trustForwarded set, the first X-Forwarded-For hop wins (the app sits behind a
// single trusted proxy such as Render or a load balancer). Otherwise only RemoteAddr
// is used since forwarded headers are caller-controlled.
func FromRequest(r *http.Request, trustForwarded bool) string {
	if trustForwarded {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return strings.TrimSpace(host)
}

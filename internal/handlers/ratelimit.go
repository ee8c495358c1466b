package handlers

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// RateLimiter is the minimal interface required to guard sensitive endpoints.
type RateLimiter interface {
	Allow(key string) bool
}

// allowRequest keys the limiter by client IP within scope.
func allowRequest(limiter RateLimiter, r *http.Request, scope string) bool {
	if limiter == nil {
		return true
	}
	return limiter.Allow(rateLimitKey(scope, clientIP(r)))
}

// allowUser keys the limiter by authenticated user within scope.
func allowUser(limiter RateLimiter, userID, scope string) bool {
	if limiter == nil {
		return true
	}
	return limiter.Allow(rateLimitKey(scope, "user:"+userID))
}

func rateLimitKey(scope, subject string) string {
	if scope == "" {
		return subject
	}
	return fmt.Sprintf("%s:%s", scope, subject)
}

func clientIP(r *http.Request) string {
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}

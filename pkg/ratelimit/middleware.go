package ratelimit

import (
	"log/slog"
	"net/http"
	"strings"
)

// Middleware applies a Limiter per client IP. Intended for the
// unauthenticated endpoints (device check, token verification, password
// reset requests) where the caller has no session to key on.
func Middleware(limiter Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			allowed, err := limiter.Allow(r.Context(), ip)
			if err != nil {
				slog.Error("Rate limiter unavailable, allowing request", "ip", ip, "error", err)
				allowed = true
			}
			if !allowed {
				slog.Warn("Rate limit exceeded", "ip", ip, "path", r.URL.Path, "method", r.Method)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "60")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"Too many requests. Please try again later.","rateLimited":true}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP extracts the client address, preferring proxy headers.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}

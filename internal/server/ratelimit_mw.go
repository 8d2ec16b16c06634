package server

import (
	"math"
	"net/http"

	"nithronos/secheaders/internal/ratelimit"
	"nithronos/secheaders/pkg/httpx"
)

// limitWrites throttles per acting user, falling back to the client address.
func limitWrites(l *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ip:" + r.RemoteAddr
			if s, ok := sessionFrom(r.Context()); ok {
				key = "user:" + s.UserID
			}
			if ok, retry := l.Allow(key); !ok {
				secs := int(math.Ceil(retry.Seconds()))
				httpx.WriteTypedError(w, http.StatusTooManyRequests, "headers.rate_limited", "Too many config writes", secs)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

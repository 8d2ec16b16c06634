package server

import (
	"net/http"
	"strings"
	"time"

	"nithronos/secheaders/pkg/secheaders"
)

// securityHeaders applies the compiled default policy of the daemon's own
// environment to every response. HSTS is only sent over HTTPS.
func securityHeaders(env secheaders.Environment) func(http.Handler) http.Handler {
	g := secheaders.Compile(secheaders.Defaults(env), time.Now())
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			https := r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
			for name, value := range g.Headers {
				if name == secheaders.HeaderHSTS && !https {
					continue
				}
				w.Header().Set(name, value)
			}
			next.ServeHTTP(w, r)
		})
	}
}

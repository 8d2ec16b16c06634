package server

import (
	"context"
	"net/http"

	"nithronos/secheaders/pkg/auth"
	"nithronos/secheaders/pkg/httpx"
	"nithronos/secheaders/pkg/secheaders"
)

type ctxKey string

const ctxSession ctxKey = "session"

// devSession is granted to every request when auth is disabled.
var devSession = auth.Session{UserID: "dev", Roles: []string{auth.RoleAdmin}}

type authenticator struct {
	codec    *auth.SessionCodec
	tokens   *auth.TokenVerifier
	disabled bool
}

func (a *authenticator) session(r *http.Request) (auth.Session, bool) {
	if a.disabled {
		return devSession, true
	}
	if s, ok := a.tokens.FromRequest(r); ok {
		return s, true
	}
	if a.codec != nil {
		return a.codec.DecodeFromRequest(r)
	}
	return auth.Session{}, false
}

// withUser attaches the caller's session and records its user id as the
// acting user for repository audit fields.
func withUser(next http.Handler, a *authenticator) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s, ok := a.session(r); ok {
			ctx := context.WithValue(r.Context(), ctxSession, s)
			r = r.WithContext(secheaders.WithActor(ctx, s.UserID))
		}
		next.ServeHTTP(w, r)
	})
}

func sessionFrom(ctx context.Context) (auth.Session, bool) {
	s, ok := ctx.Value(ctxSession).(auth.Session)
	return s, ok
}

func requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := sessionFrom(r.Context()); !ok {
			httpx.WriteTypedError(w, http.StatusUnauthorized, "auth.required", "Authentication required", 0)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, ok := sessionFrom(r.Context())
			if !ok {
				httpx.WriteTypedError(w, http.StatusUnauthorized, "auth.required", "Authentication required", 0)
				return
			}
			if !s.HasRole(role) {
				httpx.WriteTypedError(w, http.StatusForbidden, "auth.forbidden", "Role "+role+" required", 0)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"
)

// TokenUserID is the actor recorded for writes made with the API token.
const TokenUserID = "api-token"

// TokenVerifier accepts a single static bearer token. The token grants the
// admin role.
type TokenVerifier struct {
	sum [32]byte
	set bool
}

func NewTokenVerifier(token string) *TokenVerifier {
	v := &TokenVerifier{}
	if token = strings.TrimSpace(token); token != "" {
		v.sum = sha256.Sum256([]byte(token))
		v.set = true
	}
	return v
}

// FromRequest returns the session granted by the Authorization header.
func (v *TokenVerifier) FromRequest(r *http.Request) (Session, bool) {
	if v == nil || !v.set {
		return Session{}, false
	}
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "Bearer ") {
		return Session{}, false
	}
	got := sha256.Sum256([]byte(strings.TrimSpace(h[7:])))
	if subtle.ConstantTimeCompare(got[:], v.sum[:]) != 1 {
		return Session{}, false
	}
	return Session{UserID: TokenUserID, Roles: []string{RoleAdmin}}, true
}

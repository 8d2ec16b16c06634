package auth

import (
	"net/http"
	"slices"

	"github.com/gorilla/securecookie"
)

const SessionCookieName = "shd_sess"

const RoleAdmin = "admin"

type Session struct {
	UserID string   `json:"uid"`
	Roles  []string `json:"roles"`
}

func (s Session) HasRole(role string) bool {
	return slices.Contains(s.Roles, role)
}

type SessionCodec struct {
	sc *securecookie.SecureCookie
}

func NewSessionCodec(hashKey, blockKey []byte) *SessionCodec {
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(86400 * 30) // 30 days
	return &SessionCodec{sc: sc}
}

// Encode returns the signed (and, with a block key, encrypted) cookie value.
func (c *SessionCodec) Encode(s Session) (string, error) {
	return c.sc.Encode(SessionCookieName, s)
}

func (c *SessionCodec) EncodeToCookie(w http.ResponseWriter, s Session) error {
	val, err := c.Encode(s)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    val,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   true,
	})
	return nil
}

func (c *SessionCodec) DecodeFromRequest(r *http.Request) (Session, bool) {
	ck, err := r.Cookie(SessionCookieName)
	if err != nil {
		return Session{}, false
	}
	var s Session
	if err := c.sc.Decode(SessionCookieName, ck.Value, &s); err != nil {
		return Session{}, false
	}
	return s, true
}

package session

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// CookieName is the browser cookie carrying the session token.
const CookieName = "lti_session"

// SetCookie binds the session token to the browser.
func SetCookie(w http.ResponseWriter, token uuid.UUID, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token.String(),
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(ttl),
	})
}

// ClearCookie expires the session cookie.
func ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// TokenFromRequest extracts the session token from the request cookie.
func TokenFromRequest(r *http.Request) (uuid.UUID, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return uuid.Nil, false
	}
	token, err := uuid.Parse(c.Value)
	if err != nil {
		return uuid.Nil, false
	}
	return token, true
}

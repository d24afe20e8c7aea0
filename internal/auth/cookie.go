package auth

import (
	"net/http"
	"strings"
	"time"
)

// SessionCookieName is the fixed name of the session cookie.
const SessionCookieName = "catalog_session"

// sessionCookie builds the cookie shared by write and clear so the
// attributes always match; browsers only replace cookies whose
// name/path/domain line up.
func sessionCookie(r *http.Request, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   requestIsSecure(r),
		SameSite: http.SameSiteLaxMode,
	}
}

// WriteSessionCookie sets the session cookie on the response.
func WriteSessionCookie(w http.ResponseWriter, r *http.Request, token string, ttl time.Duration) {
	http.SetCookie(w, sessionCookie(r, token, int(ttl/time.Second)))
}

// ClearSessionCookie instructs the client to discard the session cookie.
// Previously issued tokens stay cryptographically valid until expiry.
func ClearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, sessionCookie(r, "", -1))
}

// ReadSessionCookie extracts the raw session token, or "" when absent.
func ReadSessionCookie(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func requestIsSecure(r *http.Request) bool {
	if r == nil {
		return false
	}
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

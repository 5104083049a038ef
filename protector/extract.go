package protector

import (
	"net/http"
	"strings"
)

// DefaultCookieName is the cookie carrying the session token.
const DefaultCookieName = "__session"

// TokenFromRequest returns the bearer token, or the named cookie when no
// Authorization header is present. A malformed Authorization header does
// not fall back to the cookie.
func TokenFromRequest(r *http.Request, cookieName string) (string, bool) {
	if r == nil {
		return "", false
	}
	if header := r.Header.Get("Authorization"); header != "" {
		return bearerToken(header)
	}
	if cookieName == "" {
		return "", false
	}
	c, err := r.Cookie(cookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

func bearerToken(value string) (string, bool) {
	const bearer = "bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}
	return token, true
}

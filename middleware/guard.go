package middleware

import (
	"net/http"

	revsense "github.com/Henil-Prajapati/RevSense"
)

// Guard returns net/http middleware for g. It fits chi's Router.Use.
func Guard(g *revsense.Gate) func(http.Handler) http.Handler {
	return g.Handler
}

// RequireIdentity rejects requests that reached it without an admitted
// identity. Mount it under Guard on routes that must never be served from
// the development bypass or a public route.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := revsense.IdentityFromContext(r.Context()); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

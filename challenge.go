package revsense

import (
	"errors"
	"net/http"
	"strings"
)

// challenge writes the denial response and returns its status code.
// Protectors implementing [Challenger] get the first chance to respond;
// the status of a custom response is not observable and is reported as 0.
func (g *Gate) challenge(w http.ResponseWriter, r *http.Request, err error) int {
	if c, ok := g.protector.(Challenger); ok && c.Challenge(w, r, err) {
		return 0
	}

	if errors.Is(err, ErrProtectorUnavailable) {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return http.StatusServiceUnavailable
	}

	if isNavigation(r) {
		http.Redirect(w, r, g.signInRedirect(r), http.StatusTemporaryRedirect)
		return http.StatusTemporaryRedirect
	}

	http.Error(w, "unauthorized", http.StatusUnauthorized)
	return http.StatusUnauthorized
}

// isNavigation reports whether r looks like a browser page load, which is
// answered with a sign-in redirect instead of a bare 401.
func isNavigation(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

// signInRedirect builds the sign-in URL carrying the original request. A
// relative sign-in URL gets a relative return target; an absolute one (a
// hosted sign-in page) gets the absolute request URL.
func (g *Gate) signInRedirect(r *http.Request) string {
	target := *g.signIn
	q := target.Query()

	if target.IsAbs() {
		q.Set(g.config.RedirectParam, absoluteURL(r))
	} else {
		q.Set(g.config.RedirectParam, r.URL.RequestURI())
	}

	target.RawQuery = q.Encode()
	return target.String()
}

func absoluteURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "https" || proto == "http" {
		scheme = proto
	}

	host := r.Host
	if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" {
		host = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	return scheme + "://" + host + r.URL.RequestURI()
}

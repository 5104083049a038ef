package revsense

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type identityContextKey struct{}
type requestIDContextKey struct{}

// RequestIDHeader is honored when present so gate logs and audit events
// correlate with upstream proxies.
const RequestIDHeader = "X-Request-ID"

// WithIdentity attaches an admitted identity to ctx. The gate does this
// for every request a protector admits with a non-nil identity.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext returns the identity admitted by the gate, if any.
// Requests that were public, bypassed, or out of scope carry none.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	if ctx == nil {
		return nil, false
	}
	id, ok := ctx.Value(identityContextKey{}).(*Identity)
	return id, ok && id != nil
}

// RequestIDFromContext returns the request ID assigned while enforcing
// protection, or "" for requests that never reached the protector.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, id)
}

func requestIDFor(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(RequestIDHeader)); id != "" && len(id) <= 128 {
		return id
	}
	return uuid.NewString()
}

package revsense

import (
	"context"
	"net/http"
	"time"
)

// Decision is the outcome of classifying a request.
type Decision uint8

const (
	// DecisionOutOfScope means the matcher does not cover the path; the gate
	// does nothing.
	DecisionOutOfScope Decision = iota
	// DecisionBypass means the gate is not in production mode.
	DecisionBypass
	// DecisionPublic means the path matches a public route.
	DecisionPublic
	// DecisionProtect means the protector must admit the request.
	DecisionProtect
)

func (d Decision) String() string {
	switch d {
	case DecisionOutOfScope:
		return "out_of_scope"
	case DecisionBypass:
		return "bypass"
	case DecisionPublic:
		return "public"
	case DecisionProtect:
		return "protect"
	default:
		return "unknown"
	}
}

// Identity describes the session a protector admitted.
type Identity struct {
	UserID    string
	SessionID string
	TenantID  string
	ExpiresAt time.Time
}

// Protector enforces an authenticated session for a request. A nil error
// admits the request; the returned identity may be nil. Errors deny it;
// protectors wrap [ErrProtectorUnavailable] when they cannot decide.
//
// Implementations must be safe for concurrent use.
type Protector interface {
	Protect(ctx context.Context, r *http.Request) (*Identity, error)
}

// ProtectorFunc adapts a function to [Protector].
type ProtectorFunc func(ctx context.Context, r *http.Request) (*Identity, error)

// Protect calls f.
func (f ProtectorFunc) Protect(ctx context.Context, r *http.Request) (*Identity, error) {
	return f(ctx, r)
}

// Challenger is implemented by protectors that render their own response
// for a denied request, such as a provider-hosted sign-in redirect. If
// Challenge returns false the gate writes its default challenge.
type Challenger interface {
	Challenge(w http.ResponseWriter, r *http.Request, err error) bool
}

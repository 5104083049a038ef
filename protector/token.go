package protector

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	revsense "github.com/Henil-Prajapati/RevSense"
	"github.com/Henil-Prajapati/RevSense/jwt"
)

// ErrMissingToken is returned when the request carries no session token.
var ErrMissingToken = errors.New("missing session token")

// Option configures a protector.
type Option func(*options)

type options struct {
	cookieName string
}

// WithCookieName overrides [DefaultCookieName]. An empty name disables the
// cookie and accepts bearer tokens only.
func WithCookieName(name string) Option {
	return func(o *options) {
		o.cookieName = name
	}
}

func buildOptions(opts []Option) options {
	o := options{cookieName: DefaultCookieName}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Token admits requests carrying a valid signed session token.
type Token struct {
	manager    *jwt.Manager
	cookieName string
}

var _ revsense.Protector = (*Token)(nil)

func NewToken(manager *jwt.Manager, opts ...Option) (*Token, error) {
	if manager == nil {
		return nil, errors.New("protector: nil jwt manager")
	}
	o := buildOptions(opts)
	return &Token{manager: manager, cookieName: o.cookieName}, nil
}

func (t *Token) Protect(_ context.Context, r *http.Request) (*revsense.Identity, error) {
	claims, err := t.verify(r)
	if err != nil {
		return nil, err
	}
	return identityFromClaims(claims), nil
}

func (t *Token) verify(r *http.Request) (*jwt.SessionClaims, error) {
	raw, ok := TokenFromRequest(r, t.cookieName)
	if !ok {
		return nil, fmt.Errorf("%w: %w", revsense.ErrUnauthenticated, ErrMissingToken)
	}
	claims, err := t.manager.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", revsense.ErrUnauthenticated, err)
	}
	return claims, nil
}

func identityFromClaims(c *jwt.SessionClaims) *revsense.Identity {
	id := &revsense.Identity{
		UserID:    c.UserID(),
		SessionID: c.SID,
		TenantID:  c.TID,
	}
	if c.ExpiresAt != nil {
		id.ExpiresAt = c.ExpiresAt.Time
	}
	return id
}

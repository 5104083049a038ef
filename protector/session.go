package protector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	revsense "github.com/Henil-Prajapati/RevSense"
	"github.com/Henil-Prajapati/RevSense/jwt"
	"github.com/Henil-Prajapati/RevSense/session"
)

var (
	// ErrMissingSessionID is returned for tokens without a sid claim.
	ErrMissingSessionID = errors.New("token has no session id")
	// ErrSessionMismatch is returned when the stored session belongs to a
	// different user or tenant than the token.
	ErrSessionMismatch = errors.New("session does not match token")
)

// SessionStore is the subset of [session.Store] used by [Session].
type SessionStore interface {
	Get(ctx context.Context, tenantID, sessionID string) (*session.Session, error)
}

// Session admits requests whose token is valid and whose session is still
// active in the store. Revoked sessions are rejected before their token
// expires.
type Session struct {
	token *Token
	store SessionStore
}

var _ revsense.Protector = (*Session)(nil)

func NewSession(manager *jwt.Manager, store SessionStore, opts ...Option) (*Session, error) {
	if store == nil {
		return nil, errors.New("protector: nil session store")
	}
	token, err := NewToken(manager, opts...)
	if err != nil {
		return nil, err
	}
	return &Session{token: token, store: store}, nil
}

func (s *Session) Protect(ctx context.Context, r *http.Request) (*revsense.Identity, error) {
	claims, err := s.token.verify(r)
	if err != nil {
		return nil, err
	}
	if claims.SID == "" {
		return nil, fmt.Errorf("%w: %w", revsense.ErrUnauthenticated, ErrMissingSessionID)
	}

	sess, err := s.store.Get(ctx, claims.TID, claims.SID)
	if err != nil {
		if errors.Is(err, session.ErrRedisUnavailable) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", revsense.ErrProtectorUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %w", revsense.ErrUnauthenticated, err)
	}
	if sess.UserID != claims.UserID() || sess.TenantID != claims.TID {
		return nil, fmt.Errorf("%w: %w", revsense.ErrUnauthenticated, ErrSessionMismatch)
	}

	id := identityFromClaims(claims)
	if exp := sess.ExpiresAt; exp > 0 && (id.ExpiresAt.IsZero() || exp < id.ExpiresAt.Unix()) {
		id.ExpiresAt = time.Unix(exp, 0)
	}
	return id, nil
}

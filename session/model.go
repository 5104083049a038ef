package session

import "time"

// Status is the lifecycle state of a stored session.
type Status uint8

const (
	StatusActive Status = iota
	StatusRevoked
)

// Session is one signed-in browser or device.
type Session struct {
	SessionID string
	UserID    string
	TenantID  string
	Status    Status

	// Unix seconds.
	CreatedAt int64
	ExpiresAt int64
}

// New returns an active session for userID that expires after ttl.
func New(userID, tenantID string, ttl time.Duration) *Session {
	now := time.Now()
	return &Session{
		SessionID: NewSessionID(),
		UserID:    userID,
		TenantID:  tenantID,
		Status:    StatusActive,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}
}

// Expired reports whether the session is past its absolute expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt <= now.Unix()
}

// Active reports whether s can admit requests at now.
func (s *Session) Active(now time.Time) bool {
	return s.Status == StatusActive && !s.Expired(now)
}

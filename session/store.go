package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrSessionNotFound covers missing and expired sessions.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionRevoked is returned by Get for a revoked session.
	ErrSessionRevoked = errors.New("session revoked")
	// ErrRedisUnavailable wraps every Redis transport error.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

const deleteSessionScript = `
local existed = redis.call("EXISTS", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
if existed == 1 then
  redis.call("DEL", KEYS[1])
  local count = tonumber(redis.call("GET", KEYS[3]) or "0")
  if count > 1 then
    redis.call("DECR", KEYS[3])
  elseif count == 1 then
    redis.call("DEL", KEYS[3])
  end
end
return existed
`

var deleteSessionLua = redis.NewScript(deleteSessionScript)

// Store is a Redis-backed session store. It is safe for concurrent use.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewStore returns a store using prefix as the key namespace. An empty
// prefix defaults to "rs".
func NewStore(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "rs"
	}
	return &Store{
		redis:  client,
		prefix: prefix,
		now:    time.Now,
	}
}

// NewSessionID returns a random session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

func (s *Store) key(tenantID, sessionID string) string {
	return s.prefix + ":s:" + normalizeTenantID(tenantID) + ":" + sessionID
}

func (s *Store) userKey(tenantID, userID string) string {
	return s.prefix + ":u:" + normalizeTenantID(tenantID) + ":" + userID
}

func (s *Store) tenantCountKey(tenantID string) string {
	return s.prefix + ":c:" + normalizeTenantID(tenantID)
}

func normalizeTenantID(tenantID string) string {
	if tenantID == "" {
		return "0"
	}
	return tenantID
}

// Save persists sess for ttl and adds it to the user's index.
func (s *Store) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	if sess == nil || sess.SessionID == "" {
		return errors.New("session: missing session ID")
	}
	if ttl <= 0 {
		return errors.New("session: ttl must be > 0")
	}
	data, err := Encode(sess)
	if err != nil {
		return err
	}

	sessionKey := s.key(sess.TenantID, sess.SessionID)
	userKey := s.userKey(sess.TenantID, sess.UserID)
	countKey := s.tenantCountKey(sess.TenantID)

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey, data, ttl)
		pipe.SAdd(ctx, userKey, sess.SessionID)
		pipe.Incr(ctx, countKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get loads a session. Missing or expired sessions return
// [ErrSessionNotFound]; revoked ones return the session together with
// [ErrSessionRevoked].
func (s *Store) Get(ctx context.Context, tenantID, sessionID string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(tenantID, sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, err
	}
	sess.SessionID = sessionID

	if sess.Expired(s.now()) {
		if err := s.deleteSessionAndIndex(ctx, sess.TenantID, sess.UserID, sessionID); err != nil {
			return nil, err
		}
		return nil, ErrSessionNotFound
	}
	if sess.Status == StatusRevoked {
		return sess, ErrSessionRevoked
	}
	return sess, nil
}

// Delete removes a session. Deleting a missing session is not an error.
func (s *Store) Delete(ctx context.Context, tenantID, sessionID string) error {
	data, err := s.redis.Get(ctx, s.key(tenantID, sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return err
	}
	return s.deleteSessionAndIndex(ctx, sess.TenantID, sess.UserID, sessionID)
}

// Revoke marks a session revoked while keeping its remaining TTL, so a
// token still presenting it is rejected explicitly until it would have
// expired anyway.
func (s *Store) Revoke(ctx context.Context, tenantID, sessionID string) error {
	key := s.key(tenantID, sessionID)

	err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			return err
		}
		sess, err := Decode(data)
		if err != nil {
			return err
		}
		if sess.Status == StatusRevoked {
			return nil
		}
		sess.Status = StatusRevoked
		updated, err := Encode(sess)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetArgs(ctx, key, updated, redis.SetArgs{KeepTTL: true, Mode: "XX"})
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.Nil):
		return ErrSessionNotFound
	case errors.Is(err, ErrCorruptSession):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
}

// DeleteAllForUser removes every session of a user in a tenant and
// returns how many existed. Sessions created concurrently may survive.
func (s *Store) DeleteAllForUser(ctx context.Context, tenantID, userID string) (int, error) {
	ids, err := s.SessionIDs(ctx, tenantID, userID)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, id := range ids {
		existed, err := deleteSessionLua.Run(ctx, s.redis,
			[]string{s.key(tenantID, id), s.userKey(tenantID, userID), s.tenantCountKey(tenantID)},
			id,
		).Int()
		if err != nil {
			return removed, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		removed += existed
	}
	return removed, nil
}

// SessionIDs lists the indexed sessions of a user. The index may contain
// sessions that have since expired.
func (s *Store) SessionIDs(ctx context.Context, tenantID, userID string) ([]string, error) {
	ids, err := s.redis.SMembers(ctx, s.userKey(tenantID, userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return ids, nil
}

// TenantSessionCount returns the number of saved, not yet deleted sessions
// in a tenant. Sessions that expire in Redis are not subtracted.
func (s *Store) TenantSessionCount(ctx context.Context, tenantID string) (int, error) {
	n, err := s.redis.Get(ctx, s.tenantCountKey(tenantID)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if n < 0 {
		return 0, nil
	}
	return n, nil
}

// Ping checks Redis availability and returns the round-trip latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

func (s *Store) deleteSessionAndIndex(ctx context.Context, tenantID, userID, sessionID string) error {
	key := s.key(tenantID, sessionID)
	userKey := s.userKey(tenantID, userID)
	countKey := s.tenantCountKey(tenantID)

	if err := deleteSessionLua.Run(ctx, s.redis, []string{key, userKey, countKey}, sessionID).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

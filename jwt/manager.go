package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the token signature algorithm.
type SigningMethod string

const (
	MethodEd25519 SigningMethod = "ed25519"
	MethodHS256   SigningMethod = "hs256"
)

var (
	// ErrInvalidConfig is returned by NewManager for unusable settings.
	ErrInvalidConfig = errors.New("jwt: invalid config")
	// ErrMissingSubject is returned by Issue for an empty user ID.
	ErrMissingSubject = errors.New("jwt: missing subject")
	// ErrFutureIssuedAt rejects tokens issued further in the future than
	// Config.MaxFutureIAT allows.
	ErrFutureIssuedAt = errors.New("jwt: iat too far in the future")
)

// Config controls signing and verification.
type Config struct {
	SessionTTL    time.Duration
	SigningMethod SigningMethod
	// PrivateKey is the HS256 secret or the Ed25519 private key (raw or PEM).
	PrivateKey []byte
	// PublicKey is the Ed25519 verification key (raw or PEM).
	PublicKey    []byte
	Issuer       string
	Audience     string
	Leeway       time.Duration
	RequireIAT   bool
	MaxFutureIAT time.Duration
	// KeyID is written to the kid header of issued tokens.
	KeyID string
	// VerifyKeys maps kid to verification key for key rotation.
	VerifyKeys map[string][]byte
}

// Manager is immutable after NewManager and safe for concurrent use.
type Manager struct {
	config Config
	now    func() time.Time
}

// SessionClaims are the claims carried by a session token. The user ID is
// the registered subject.
type SessionClaims struct {
	SID string `json:"sid"`
	TID string `json:"tid,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the token subject.
func (c *SessionClaims) UserID() string {
	return c.Subject
}

func NewManager(cfg Config) (*Manager, error) {
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("%w: session TTL must be > 0", ErrInvalidConfig)
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, fmt.Errorf("%w: leeway must be within [0, 2m]", ErrInvalidConfig)
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, fmt.Errorf("%w: MaxFutureIAT must be within (0, 24h]", ErrInvalidConfig)
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) < 32 {
			return nil, fmt.Errorf("%w: hs256 secret must be at least 32 bytes", ErrInvalidConfig)
		}
	case MethodEd25519:
		if len(cfg.PrivateKey) > 0 {
			if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
			}
		}
		if len(cfg.PublicKey) > 0 {
			if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
			}
		}
		if len(cfg.VerifyKeys) == 0 && len(cfg.PublicKey) == 0 {
			return nil, fmt.Errorf("%w: ed25519 requires a public key or verify key set", ErrInvalidConfig)
		}
		for kid, key := range cfg.VerifyKeys {
			if strings.TrimSpace(kid) == "" {
				return nil, fmt.Errorf("%w: verify key map contains empty kid", ErrInvalidConfig)
			}
			if _, err := parseEdPublicKey(key); err != nil {
				return nil, fmt.Errorf("%w: verify key %q: %w", ErrInvalidConfig, kid, err)
			}
		}
	default:
		return nil, fmt.Errorf("%w: unsupported signing method %q", ErrInvalidConfig, cfg.SigningMethod)
	}
	if cfg.KeyID != "" && len(cfg.VerifyKeys) > 0 {
		if _, ok := cfg.VerifyKeys[cfg.KeyID]; !ok {
			return nil, fmt.Errorf("%w: KeyID is not present in VerifyKeys", ErrInvalidConfig)
		}
	}

	return &Manager{config: cfg, now: time.Now}, nil
}

// TTL returns the lifetime of issued tokens.
func (m *Manager) TTL() time.Duration {
	return m.config.SessionTTL
}

// Issue signs a session token for userID. Ed25519 managers built without a
// private key can verify but not issue.
func (m *Manager) Issue(userID, sessionID, tenantID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", ErrMissingSubject
	}

	now := m.now()
	claims := SessionClaims{
		SID: sessionID,
		TID: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.SessionTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.config.Issuer,
		},
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	token := jwt.NewWithClaims(m.method(), claims)
	if m.config.KeyID != "" {
		token.Header["kid"] = m.config.KeyID
	}

	key, err := m.signKey()
	if err != nil {
		return "", err
	}
	return token.SignedString(key)
}

// Parse verifies the signature and registered claims of token.
func (m *Manager) Parse(token string) (*SessionClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method().Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.RequireIAT {
		options = append(options, jwt.WithIssuedAt())
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		options = append(options, jwt.WithAudience(m.config.Audience))
	}

	parsed, err := jwt.NewParser(options...).ParseWithClaims(token, &SessionClaims{}, m.keyFunc)
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: %w", jwt.ErrTokenInvalidClaims, ErrMissingSubject)
	}
	if claims.IssuedAt != nil && claims.IssuedAt.Time.After(m.now().Add(m.config.MaxFutureIAT)) {
		return nil, ErrFutureIssuedAt
	}

	return claims, nil
}

func (m *Manager) keyFunc(t *jwt.Token) (interface{}, error) {
	if t.Method.Alg() != m.method().Alg() {
		return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
	}

	kid, _ := t.Header["kid"].(string)
	if len(m.config.VerifyKeys) > 0 {
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		key, ok := m.config.VerifyKeys[kid]
		if !ok {
			return nil, errors.New("unknown kid")
		}
		return m.verifyKeyFrom(key)
	}

	if m.config.KeyID != "" && kid != m.config.KeyID {
		return nil, errors.New("unknown kid")
	}
	return m.verifyKeyFrom(m.verifyKeyBytes())
}

func (m *Manager) method() jwt.SigningMethod {
	if m.config.SigningMethod == MethodHS256 {
		return jwt.SigningMethodHS256
	}
	return jwt.SigningMethodEdDSA
}

func (m *Manager) signKey() (interface{}, error) {
	if m.config.SigningMethod == MethodHS256 {
		return m.config.PrivateKey, nil
	}
	if len(m.config.PrivateKey) == 0 {
		return nil, errors.New("jwt: manager has no signing key")
	}
	return parseEdPrivateKey(m.config.PrivateKey)
}

func (m *Manager) verifyKeyBytes() []byte {
	if m.config.SigningMethod == MethodHS256 {
		return m.config.PrivateKey
	}
	return m.config.PublicKey
}

func (m *Manager) verifyKeyFrom(key []byte) (interface{}, error) {
	if m.config.SigningMethod == MethodHS256 {
		return key, nil
	}
	return parseEdPublicKey(key)
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}

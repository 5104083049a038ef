package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	revsense "github.com/Henil-Prajapati/RevSense"
	"github.com/spf13/viper"
)

// Auth modes select the protector built by the CLI.
const (
	AuthModeToken   = "token"
	AuthModeSession = "session"
)

// ErrInvalidSettings wraps every Settings validation error.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings is the process configuration, read from the environment and an
// optional .env file.
type Settings struct {
	AppEnv       string   `mapstructure:"APP_ENV"`
	ListenAddr   string   `mapstructure:"LISTEN_ADDR"`
	UpstreamURL  string   `mapstructure:"UPSTREAM_URL"`
	PublicRoutes []string `mapstructure:"PUBLIC_ROUTES"`
	Matcher      []string `mapstructure:"MATCHER"`
	SignInURL    string   `mapstructure:"SIGN_IN_URL"`

	AuthMode    string        `mapstructure:"AUTH_MODE"`
	JWTSecret   string        `mapstructure:"JWT_SECRET"`
	JWTIssuer   string        `mapstructure:"JWT_ISSUER"`
	JWTAudience string        `mapstructure:"JWT_AUDIENCE"`
	SessionTTL  time.Duration `mapstructure:"SESSION_TTL"`
	CookieName  string        `mapstructure:"SESSION_COOKIE"`
	RedisURL    string        `mapstructure:"REDIS_URL"`
	RedisPrefix string        `mapstructure:"REDIS_PREFIX"`

	LogLevel       string `mapstructure:"LOG_LEVEL"`
	LogPretty      bool   `mapstructure:"LOG_PRETTY"`
	MetricsEnabled bool   `mapstructure:"METRICS_ENABLED"`
	LatencyMetrics bool   `mapstructure:"LATENCY_METRICS"`
	AuditEnabled   bool   `mapstructure:"AUDIT_ENABLED"`
}

var keys = []string{
	"APP_ENV", "LISTEN_ADDR", "UPSTREAM_URL", "PUBLIC_ROUTES", "MATCHER", "SIGN_IN_URL",
	"AUTH_MODE", "JWT_SECRET", "JWT_ISSUER", "JWT_AUDIENCE", "SESSION_TTL", "SESSION_COOKIE",
	"REDIS_URL", "REDIS_PREFIX",
	"LOG_LEVEL", "LOG_PRETTY", "METRICS_ENABLED", "LATENCY_METRICS", "AUDIT_ENABLED",
}

// Load reads Settings from the environment, falling back to a .env file in
// the working directory and then to defaults.
func Load() (*Settings, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()
	setDefaults(v)

	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	// A missing .env file is fine.
	_ = v.ReadInConfig()

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LISTEN_ADDR", ":8080")
	v.SetDefault("UPSTREAM_URL", "http://127.0.0.1:3000")
	v.SetDefault("PUBLIC_ROUTES", revsense.DefaultPublicRoutes)
	v.SetDefault("MATCHER", revsense.DefaultMatcher)
	v.SetDefault("SIGN_IN_URL", revsense.DefaultSignInURL)
	v.SetDefault("AUTH_MODE", AuthModeToken)
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("SESSION_COOKIE", "__session")
	v.SetDefault("REDIS_PREFIX", "rs")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("METRICS_ENABLED", true)
}

func fromViper(v *viper.Viper) (*Settings, error) {
	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}
	s.PublicRoutes = trimList(s.PublicRoutes)
	s.Matcher = trimList(s.Matcher)
	s.AuthMode = strings.ToLower(strings.TrimSpace(s.AuthMode))

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func trimList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Mode is the gate mode derived from APP_ENV. This is the only place the
// environment decides the mode.
func (s *Settings) Mode() revsense.Mode {
	return revsense.ParseMode(s.AppEnv)
}

// Validate checks the settings the CLI needs beyond revsense.Config.
func (s *Settings) Validate() error {
	switch s.AuthMode {
	case AuthModeToken, AuthModeSession:
	default:
		return fmt.Errorf("%w: AUTH_MODE must be %q or %q, got %q", ErrInvalidSettings, AuthModeToken, AuthModeSession, s.AuthMode)
	}
	if s.Mode().IsProduction() && s.JWTSecret == "" {
		return fmt.Errorf("%w: JWT_SECRET is required in production", ErrInvalidSettings)
	}
	if s.AuthMode == AuthModeSession && s.RedisURL == "" {
		return fmt.Errorf("%w: REDIS_URL is required for AUTH_MODE=session", ErrInvalidSettings)
	}
	if s.SessionTTL <= 0 {
		return fmt.Errorf("%w: SESSION_TTL must be > 0", ErrInvalidSettings)
	}
	return nil
}

// GateConfig converts the settings into a gate configuration. The result
// still has to pass revsense.Config.Validate.
func (s *Settings) GateConfig() revsense.Config {
	cfg := revsense.DefaultConfig()
	cfg.Mode = s.Mode()
	cfg.PublicRoutes = append([]string(nil), s.PublicRoutes...)
	cfg.Matcher = append([]string(nil), s.Matcher...)
	cfg.SignInURL = s.SignInURL
	cfg.Metrics.Enabled = s.MetricsEnabled
	cfg.Metrics.EnableLatencyHistograms = s.LatencyMetrics
	cfg.Audit.Enabled = s.AuditEnabled
	return cfg
}

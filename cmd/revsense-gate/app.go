package main

import (
	"context"
	"time"

	revsense "github.com/Henil-Prajapati/RevSense"
	"github.com/Henil-Prajapati/RevSense/internal/config"
	"github.com/Henil-Prajapati/RevSense/internal/redisconn"
	"github.com/Henil-Prajapati/RevSense/jwt"
	"github.com/Henil-Prajapati/RevSense/protector"
	"github.com/Henil-Prajapati/RevSense/session"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// app holds the dependencies shared by the subcommands.
type app struct {
	settings *config.Settings
	logger   zerolog.Logger
	manager  *jwt.Manager
	redis    *redis.Client
	store    *session.Store
}

func newApp(ctx context.Context, s *config.Settings, logger zerolog.Logger) (*app, error) {
	a := &app{settings: s, logger: logger}

	if s.JWTSecret != "" {
		m, err := jwt.NewManager(jwt.Config{
			SessionTTL:    s.SessionTTL,
			SigningMethod: jwt.MethodHS256,
			PrivateKey:    []byte(s.JWTSecret),
			Issuer:        s.JWTIssuer,
			Audience:      s.JWTAudience,
			Leeway:        5 * time.Second,
		})
		if err != nil {
			return nil, err
		}
		a.manager = m
	}

	if s.AuthMode == config.AuthModeSession {
		client, err := redisconn.Connect(ctx, s.RedisURL, redisconn.DefaultOptions(), logger)
		if err != nil {
			return nil, err
		}
		a.redis = client
		a.store = session.NewStore(client, s.RedisPrefix)
	}

	return a, nil
}

func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

// protector returns nil when no signing key is configured, which is only
// accepted outside production.
func (a *app) protector() (revsense.Protector, error) {
	if a.manager == nil {
		return nil, nil
	}
	opts := []protector.Option{protector.WithCookieName(a.settings.CookieName)}
	if a.store != nil {
		return protector.NewSession(a.manager, a.store, opts...)
	}
	return protector.NewToken(a.manager, opts...)
}

func (a *app) gate(sink revsense.AuditSink) (*revsense.Gate, error) {
	p, err := a.protector()
	if err != nil {
		return nil, err
	}
	b := revsense.New().
		WithConfig(a.settings.GateConfig()).
		WithLogger(a.logger)
	if p != nil {
		b = b.WithProtector(p)
	}
	if sink != nil {
		b = b.WithAuditSink(sink)
	}
	return b.Build()
}

func (a *app) ping(ctx context.Context) error {
	if a.store == nil {
		return nil
	}
	_, err := a.store.Ping(ctx)
	return err
}

// Package redisconn opens the Redis client used by the session store and
// waits for it to answer before the gate starts serving.
package redisconn

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Options bounds the startup ping retries.
type Options struct {
	InitialInterval time.Duration
	MaxElapsedTime  time.Duration
	MaxRetries      uint64
}

// DefaultOptions retries for up to 20 seconds.
func DefaultOptions() Options {
	return Options{
		InitialInterval: 500 * time.Millisecond,
		MaxElapsedTime:  20 * time.Second,
		MaxRetries:      10,
	}
}

// Connect parses url, opens a client, and pings it with exponential
// backoff. The client is closed if Redis never answers.
func Connect(ctx context.Context, url string, opts Options, logger zerolog.Logger) (*redis.Client, error) {
	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(redisOpts)

	if err := WaitReady(ctx, client, opts, logger); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// WaitReady pings client until it answers, ctx ends, or opts are exhausted.
func WaitReady(ctx context.Context, client redis.UniversalClient, opts Options, logger zerolog.Logger) error {
	eback := backoff.NewExponentialBackOff()
	eback.InitialInterval = opts.InitialInterval
	eback.MaxElapsedTime = opts.MaxElapsedTime
	boff := backoff.WithContext(backoff.WithMaxRetries(eback, opts.MaxRetries), ctx)

	ping := func() error {
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return client.Ping(pctx).Err()
	}
	notify := func(err error, next time.Duration) {
		logger.Warn().Err(err).Dur("retry_in", next).Msg("redis not ready")
	}

	if err := backoff.RetryNotify(ping, boff, notify); err != nil {
		return fmt.Errorf("redis not ready: %w", err)
	}
	return nil
}

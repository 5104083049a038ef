// Command revsense-loadtest measures the session store and the gate's
// protected path against Redis (or an in-process miniredis).
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	revsense "github.com/Henil-Prajapati/RevSense"
	"github.com/Henil-Prajapati/RevSense/jwt"
	"github.com/Henil-Prajapati/RevSense/protector"
	"github.com/Henil-Prajapati/RevSense/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const loadtestSecret = "revsense-loadtest-secret-0123456789"

type seeded struct {
	sid     string
	token   string
	revoked bool
}

func main() {
	var (
		sessions    = flag.Int("sessions", 20000, "number of sessions to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase")
		revokeEvery = flag.Int("revoke-every", 10, "revoke every Nth seeded session; 0 disables")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "rs", "session key prefix")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 || *revokeEvery < 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	manager, err := jwt.NewManager(jwt.Config{
		SessionTTL:    24 * time.Hour,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte(loadtestSecret),
		Issuer:        "revsense-loadtest",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "jwt manager: %v\n", err)
		os.Exit(1)
	}
	store := session.NewStore(client, *prefix)

	fmt.Printf("seeding %d sessions...\n", *sessions)
	startSeed := time.Now()
	states, err := seed(ctx, store, manager, *sessions, *revokeEvery)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	p, err := protector.NewSession(manager, store)
	if err != nil {
		fmt.Fprintf(os.Stderr, "protector: %v\n", err)
		os.Exit(1)
	}
	gate, err := revsense.New().
		WithMode(revsense.ModeProduction).
		WithProtector(p).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "gate: %v\n", err)
		os.Exit(1)
	}
	defer gate.Close()

	storeStats := runPhase(*ops, *concurrency, func(r *rand.Rand) bool {
		s := states[r.Intn(len(states))]
		_, err := store.Get(ctx, "", s.sid)
		return (err == nil) != s.revoked
	})
	protectStats := runPhase(*ops, *concurrency, func(r *rand.Rand) bool {
		s := states[r.Intn(len(states))]
		return serveOnce(gate, "/dashboard", s.token) != s.revoked
	})
	publicStats := runPhase(*ops, *concurrency, func(*rand.Rand) bool {
		return serveOnce(gate, "/sign-in", "")
	})

	fmt.Println("---- results ----")
	printStats("store-get", storeStats)
	printStats("gate-protect", protectStats)
	printStats("gate-public", publicStats)

	snap := gate.MetricsSnapshot()
	fmt.Printf("gate counters: allowed=%d denied=%d unavailable=%d public=%d\n",
		snap.Counters[revsense.MetricProtectAllowed],
		snap.Counters[revsense.MetricProtectDenied],
		snap.Counters[revsense.MetricProtectUnavailable],
		snap.Counters[revsense.MetricPublic],
	)
}

func seed(ctx context.Context, store *session.Store, manager *jwt.Manager, n, revokeEvery int) ([]seeded, error) {
	states := make([]seeded, n)
	for i := 0; i < n; i++ {
		sess := session.New(fmt.Sprintf("u%d", i), "", manager.TTL())
		if err := store.Save(ctx, sess, manager.TTL()); err != nil {
			return nil, err
		}
		tok, err := manager.Issue(sess.UserID, sess.SessionID, "")
		if err != nil {
			return nil, err
		}
		states[i] = seeded{sid: sess.SessionID, token: tok}

		if revokeEvery > 0 && i%revokeEvery == 0 {
			if err := store.Revoke(ctx, "", sess.SessionID); err != nil {
				return nil, err
			}
			states[i].revoked = true
		}
	}
	return states, nil
}

// serveOnce reports whether the gate admitted the request.
func serveOnce(g *revsense.Gate, path, token string) bool {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	_, ok := g.Serve(httptest.NewRecorder(), req)
	return ok
}

package revsense

import (
	"errors"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/Henil-Prajapati/RevSense/internal/audit"
	"github.com/Henil-Prajapati/RevSense/route"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Gate applies the route policy to requests. It is immutable after
// [Builder.Build] and safe for concurrent use.
type Gate struct {
	config    Config
	public    *route.Matcher
	scope     *route.Matcher
	signIn    *url.URL
	protector Protector
	metrics   *Metrics
	audit     *audit.Dispatcher
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// Close flushes pending audit events.
func (g *Gate) Close() {
	if g == nil {
		return
	}
	g.audit.Close()
}

// Mode returns the mode the gate was built with.
func (g *Gate) Mode() Mode {
	if g == nil {
		return ""
	}
	return g.config.Mode
}

func (g *Gate) AuditDropped() uint64 {
	if g == nil {
		return 0
	}
	return g.audit.Dropped()
}

// MetricsSnapshot returns empty maps when the gate is nil or metrics are
// disabled.
func (g *Gate) MetricsSnapshot() MetricsSnapshot {
	if g == nil {
		return (*Metrics)(nil).Snapshot()
	}
	return g.metrics.Snapshot()
}

// IsPublicPath reports whether path matches a public route after dot
// segments are resolved. Evaluation errors classify the path as protected.
func (g *Gate) IsPublicPath(p string) bool {
	if g == nil {
		return false
	}
	return g.public.Match(CleanPath(p))
}

// IsPublicRoute reports whether the request path matches a public route.
func (g *Gate) IsPublicRoute(r *http.Request) bool {
	if g == nil || r == nil || r.URL == nil {
		return false
	}
	return g.IsPublicPath(r.URL.Path)
}

// InScope reports whether the gate applies to path. Without a matcher every
// path is in scope; evaluation errors keep the path in scope.
func (g *Gate) InScope(p string) bool {
	if g == nil || g.scope == nil {
		return true
	}
	p = CleanPath(p)
	ok, err := g.scope.MatchErr(p)
	if err != nil {
		g.logger.Warn().Err(err).Str("path", p).Msg("matcher evaluation failed; gating request")
		return true
	}
	return ok
}

// CleanPath resolves "." and ".." segments and duplicate slashes the way a
// browser URL parser does, keeping a trailing slash. The result is always
// rooted.
func CleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	c := path.Clean(p)
	if c != "/" && strings.HasSuffix(p, "/") {
		c += "/"
	}
	return c
}

// Decide classifies r without side effects: scope, then bypass, then
// public routes. The path is classified after [CleanPath].
func (g *Gate) Decide(r *http.Request) Decision {
	if g == nil {
		return DecisionProtect
	}
	p := "/"
	if r != nil && r.URL != nil {
		p = r.URL.Path
	}

	if !g.InScope(p) {
		return DecisionOutOfScope
	}
	if !g.config.Mode.IsProduction() {
		return DecisionBypass
	}
	if g.IsPublicPath(p) {
		return DecisionPublic
	}
	return DecisionProtect
}

// Serve runs the gate for one request. It returns the request to hand to
// the next handler and true, or false after writing a challenge response.
// The returned request carries the cleaned path that was classified, and
// the admitted [Identity] when there is one.
func (g *Gate) Serve(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
	if g == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return r, false
	}

	r = withCleanPath(r)
	decision := g.Decide(r)
	if decision != DecisionProtect {
		g.metrics.Inc(decisionMetric(decision))
		return r, true
	}

	ctx := withRequestID(r.Context(), requestIDFor(r))
	ctx, span := g.tracer.Start(ctx, "revsense.protect",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("http.request.method", r.Method),
			attribute.String("url.path", r.URL.Path),
		),
	)
	r = r.WithContext(ctx)

	start := time.Now()
	identity, err := g.protector.Protect(ctx, r)
	g.metrics.Observe(MetricProtectLatency, time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "protection denied")
		span.End()
		g.deny(w, r, err)
		return r, false
	}
	span.End()

	g.metrics.Inc(MetricProtectAllowed)
	if identity != nil {
		r = r.WithContext(WithIdentity(r.Context(), identity))
	}
	return r, true
}

// withCleanPath returns r, or a shallow copy whose URL path is cleaned, so
// downstream handlers serve exactly the path the gate classified.
func withCleanPath(r *http.Request) *http.Request {
	if r.URL == nil {
		return r
	}
	clean := CleanPath(r.URL.Path)
	if clean == r.URL.Path {
		return r
	}
	u := *r.URL
	u.Path = clean
	u.RawPath = ""
	r2 := r.Clone(r.Context())
	r2.URL = &u
	r2.RequestURI = u.RequestURI()
	return r2
}

// Handler wraps next with the gate.
func (g *Gate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, ok := g.Serve(w, r)
		if !ok {
			return
		}
		next.ServeHTTP(w, req)
	})
}

func (g *Gate) deny(w http.ResponseWriter, r *http.Request, err error) {
	status := g.challenge(w, r, err)

	ctx := r.Context()
	evt := g.logger.Debug()
	kind := AuditProtectDenied
	if errors.Is(err, ErrProtectorUnavailable) {
		g.metrics.Inc(MetricProtectUnavailable)
		evt = g.logger.Error()
		kind = AuditProtectUnavailable
	} else {
		g.metrics.Inc(MetricProtectDenied)
	}

	evt.Err(err).
		Str("request_id", RequestIDFromContext(ctx)).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Msg("request denied")

	g.emitAudit(ctx, kind, r, status, err)
}

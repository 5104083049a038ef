package revsense

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type countingProtector struct {
	calls    atomic.Int64
	identity *Identity
	err      error
}

func (p *countingProtector) Protect(context.Context, *http.Request) (*Identity, error) {
	p.calls.Add(1)
	return p.identity, p.err
}

func newTestGate(t *testing.T, mode Mode, p Protector) *Gate {
	t.Helper()
	g, err := New().WithMode(mode).WithProtector(p).Build()
	if err != nil {
		t.Fatalf("build gate: %v", err)
	}
	t.Cleanup(g.Close)
	return g
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPublicRouteClassifier(t *testing.T) {
	g := newTestGate(t, ModeProduction, &countingProtector{})

	public := []string{"/", "/sign-in", "/sign-in/anything", "/sign-in/sso-callback/x", "/api", "/api/reports", "/api/v1/users/42"}
	for _, path := range public {
		if !g.IsPublicPath(path) {
			t.Errorf("expected %q to be public", path)
		}
		if !g.IsPublicRoute(httptest.NewRequest(http.MethodGet, path, nil)) {
			t.Errorf("expected request for %q to be public", path)
		}
	}

	protected := []string{"/dashboard", "/settings/profile", "/reports/2024", "/sign"}
	for _, path := range protected {
		if g.IsPublicPath(path) {
			t.Errorf("expected %q to be protected", path)
		}
	}
}

func TestDevelopmentBypassNeverInvokesProtector(t *testing.T) {
	for _, mode := range []Mode{ModeDevelopment, ModeTest, ParseMode(""), ParseMode("staging")} {
		p := &countingProtector{err: ErrUnauthenticated}
		g := newTestGate(t, mode, p)
		h := g.Handler(okHandler())

		for _, path := range []string{"/", "/dashboard", "/api/reports", "/settings", "/sign-in"} {
			rec := serve(h, httptest.NewRequest(http.MethodGet, path, nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("mode %q path %q: expected 200, got %d", mode, path, rec.Code)
			}
		}
		if got := p.calls.Load(); got != 0 {
			t.Fatalf("mode %q: protector invoked %d times", mode, got)
		}
	}
}

func TestProductionNonPublicInvokesProtectorOnce(t *testing.T) {
	p := &countingProtector{}
	g := newTestGate(t, ModeProduction, p)
	h := g.Handler(okHandler())

	for i, path := range []string{"/dashboard", "/settings/profile", "/trpc/report.list"} {
		rec := serve(h, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("path %q: expected 200, got %d", path, rec.Code)
		}
		if got := p.calls.Load(); got != int64(i+1) {
			t.Fatalf("path %q: expected %d protector calls, got %d", path, i+1, got)
		}
	}
}

func TestProductionPublicSkipsProtector(t *testing.T) {
	p := &countingProtector{err: ErrUnauthenticated}
	g := newTestGate(t, ModeProduction, p)
	h := g.Handler(okHandler())

	for _, path := range []string{"/", "/sign-in", "/sign-in/factor-one", "/api/reports"} {
		rec := serve(h, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("path %q: expected 200, got %d", path, rec.Code)
		}
	}
	if got := p.calls.Load(); got != 0 {
		t.Fatalf("protector invoked %d times for public routes", got)
	}
}

func TestMatcherScopesStaticAssetsOut(t *testing.T) {
	p := &countingProtector{err: ErrUnauthenticated}
	g := newTestGate(t, ModeProduction, p)

	excluded := []string{
		"/logo.png",
		"/styles/site.css",
		"/_next/static/chunks/main.js",
		"/favicon.ico",
		"/fonts/inter.woff2",
		"/exports/report.docx",
		"/index.html",
		"/site.webmanifest",
		"/dashboard/chart.svg",
	}
	for _, path := range excluded {
		if g.InScope(path) {
			t.Errorf("expected %q to be out of scope", path)
		}
		if d := g.Decide(httptest.NewRequest(http.MethodGet, path, nil)); d != DecisionOutOfScope {
			t.Errorf("expected %q decision out_of_scope, got %s", path, d)
		}
	}

	included := []string{
		"/",
		"/dashboard",
		"/api/reports",
		"/api/logo.png",
		"/trpc/report.list",
		"/trpc/assets.css",
		"/data.json",
	}
	for _, path := range included {
		if !g.InScope(path) {
			t.Errorf("expected %q to be in scope", path)
		}
	}

	rec := serve(g.Handler(okHandler()), httptest.NewRequest(http.MethodGet, "/logo.png", nil))
	if rec.Code != http.StatusOK || p.calls.Load() != 0 {
		t.Fatalf("static asset should pass untouched, got %d with %d calls", rec.Code, p.calls.Load())
	}
}

func TestEmptyMatcherGatesEverything(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Matcher = nil
	p := &countingProtector{err: ErrUnauthenticated}
	g, err := New().WithConfig(cfg).WithProtector(p).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer g.Close()

	if d := g.Decide(httptest.NewRequest(http.MethodGet, "/logo.png", nil)); d != DecisionProtect {
		t.Fatalf("expected protect without matcher, got %s", d)
	}
}

func TestDecideOrder(t *testing.T) {
	prod := newTestGate(t, ModeProduction, &countingProtector{})
	dev := newTestGate(t, ModeDevelopment, nil)

	cases := []struct {
		gate *Gate
		path string
		want Decision
	}{
		{prod, "/logo.png", DecisionOutOfScope},
		{dev, "/logo.png", DecisionOutOfScope},
		{dev, "/dashboard", DecisionBypass},
		{dev, "/", DecisionBypass},
		{prod, "/", DecisionPublic},
		{prod, "/dashboard", DecisionProtect},
	}
	for _, tc := range cases {
		got := tc.gate.Decide(httptest.NewRequest(http.MethodGet, tc.path, nil))
		if got != tc.want {
			t.Errorf("%s %q: got %s, want %s", tc.gate.Mode(), tc.path, got, tc.want)
		}
	}
}

func TestDeniedNavigationRedirectsToSignIn(t *testing.T) {
	g := newTestGate(t, ModeProduction, &countingProtector{err: ErrUnauthenticated})
	req := httptest.NewRequest(http.MethodGet, "/dashboard?tab=1", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	rec := serve(g.Handler(okHandler()), req)
	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected 307, got %d", rec.Code)
	}
	want := "/sign-in?redirect_url=%2Fdashboard%3Ftab%3D1"
	if got := rec.Header().Get("Location"); got != want {
		t.Fatalf("expected Location %q, got %q", want, got)
	}
}

func TestDeniedNavigationToHostedSignIn(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SignInURL = "https://accounts.example.com/sign-in"
	g, err := New().WithConfig(cfg).WithProtector(&countingProtector{err: ErrUnauthenticated}).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer g.Close()

	req := httptest.NewRequest(http.MethodGet, "http://app.example.com/dashboard", nil)
	req.Header.Set("Accept", "text/html")

	rec := serve(g.Handler(okHandler()), req)
	want := "https://accounts.example.com/sign-in?redirect_url=http%3A%2F%2Fapp.example.com%2Fdashboard"
	if got := rec.Header().Get("Location"); got != want {
		t.Fatalf("expected Location %q, got %q", want, got)
	}
}

func TestDeniedAPIRequestGets401(t *testing.T) {
	g := newTestGate(t, ModeProduction, &countingProtector{err: ErrUnauthenticated})

	fetch := httptest.NewRequest(http.MethodGet, "/trpc/report.list", nil)
	fetch.Header.Set("Accept", "application/json")
	form := httptest.NewRequest(http.MethodPost, "/dashboard", strings.NewReader("{}"))
	form.Header.Set("Accept", "text/html")

	for _, req := range []*http.Request{fetch, form} {
		rec := serve(g.Handler(okHandler()), req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", req.Method, req.URL.Path, rec.Code)
		}
		if strings.TrimSpace(rec.Body.String()) != "unauthorized" {
			t.Fatalf("unexpected body %q", rec.Body.String())
		}
	}
}

func TestProtectorOutageGets503(t *testing.T) {
	p := &countingProtector{err: fmt.Errorf("%w: redis down", ErrProtectorUnavailable)}
	g := newTestGate(t, ModeProduction, p)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set("Accept", "text/html")
	rec := serve(g.Handler(okHandler()), req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	snap := g.MetricsSnapshot()
	if snap.Counters[MetricProtectUnavailable] != 1 || snap.Counters[MetricProtectDenied] != 0 {
		t.Fatalf("unexpected counters %v", snap.Counters)
	}
}

type challengingProtector struct {
	countingProtector
}

func (p *challengingProtector) Challenge(w http.ResponseWriter, _ *http.Request, _ error) bool {
	w.WriteHeader(http.StatusNotFound)
	return true
}

func TestChallengerOverridesDefaultResponse(t *testing.T) {
	p := &challengingProtector{countingProtector{err: ErrUnauthenticated}}
	g := newTestGate(t, ModeProduction, p)

	rec := serve(g.Handler(okHandler()), httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected challenger status 404, got %d", rec.Code)
	}
}

func TestAdmittedIdentityReachesHandler(t *testing.T) {
	want := &Identity{UserID: "user_1", SessionID: "sess_1"}
	g := newTestGate(t, ModeProduction, &countingProtector{identity: want})

	var got *Identity
	h := g.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got == nil || got.UserID != "user_1" || got.SessionID != "sess_1" {
		t.Fatalf("unexpected identity %+v", got)
	}
}

func TestPublicRequestCarriesNoIdentity(t *testing.T) {
	g := newTestGate(t, ModeProduction, &countingProtector{identity: &Identity{UserID: "u"}})

	var ok bool
	h := g.Handler(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		_, ok = IdentityFromContext(r.Context())
	}))
	serve(h, httptest.NewRequest(http.MethodGet, "/api/reports", nil))
	if ok {
		t.Fatal("public request must not carry an identity")
	}
}

func TestRequestIDPropagatesToProtector(t *testing.T) {
	var seen string
	p := ProtectorFunc(func(ctx context.Context, _ *http.Request) (*Identity, error) {
		seen = RequestIDFromContext(ctx)
		return nil, nil
	})
	g := newTestGate(t, ModeProduction, p)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	serve(g.Handler(okHandler()), req)
	if seen != "req-123" {
		t.Fatalf("expected request id req-123, got %q", seen)
	}

	serve(g.Handler(okHandler()), httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	if seen == "" || seen == "req-123" {
		t.Fatalf("expected a generated request id, got %q", seen)
	}
}

func TestMetricsCountEachDecision(t *testing.T) {
	p := &countingProtector{}
	g := newTestGate(t, ModeProduction, p)
	h := g.Handler(okHandler())

	serve(h, httptest.NewRequest(http.MethodGet, "/logo.png", nil))
	serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	serve(h, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	p.err = ErrUnauthenticated
	serve(h, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	snap := g.MetricsSnapshot()
	want := map[MetricID]uint64{
		MetricOutOfScope:     1,
		MetricPublic:         1,
		MetricProtectAllowed: 1,
		MetricProtectDenied:  1,
		MetricBypass:         0,
	}
	for id, v := range want {
		if snap.Counters[id] != v {
			t.Errorf("metric %d: expected %d, got %d", id, v, snap.Counters[id])
		}
	}
}

func TestDenialIsAudited(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Audit.Enabled = true
	sink := NewChannelSink(4)

	g, err := New().
		WithConfig(cfg).
		WithProtector(&countingProtector{err: ErrUnauthenticated}).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer g.Close()

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	req.Header.Set(RequestIDHeader, "req-9")
	serve(g.Handler(okHandler()), req)

	select {
	case ev := <-sink.Events():
		if ev.Kind != AuditProtectDenied || ev.Path != "/dashboard" || ev.Status != http.StatusUnauthorized {
			t.Fatalf("unexpected event %+v", ev)
		}
		if ev.ClientIP != "203.0.113.7" || ev.RequestID != "req-9" {
			t.Fatalf("unexpected event origin %+v", ev)
		}
		if ev.Reason != ErrUnauthenticated.Error() {
			t.Fatalf("unexpected reason %q", ev.Reason)
		}
	case <-time.After(time.Second):
		t.Fatal("expected audit event")
	}
}

func TestProtectSpanRecorded(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	g, err := New().
		WithProtector(&countingProtector{err: ErrUnauthenticated}).
		WithTracer(tp.Tracer("test")).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer g.Close()

	serve(g.Handler(okHandler()), httptest.NewRequest(http.MethodGet, "/", nil))
	if n := len(sr.Ended()); n != 0 {
		t.Fatalf("public request must not start a span, got %d", n)
	}

	serve(g.Handler(okHandler()), httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	spans := sr.Ended()
	if len(spans) != 1 || spans[0].Name() != "revsense.protect" {
		t.Fatalf("expected one protect span, got %d", len(spans))
	}
	if len(spans[0].Events()) == 0 {
		t.Fatal("expected the denial to be recorded on the span")
	}
}

func TestBypassWarningLogged(t *testing.T) {
	var buf bytes.Buffer
	g, err := New().WithMode(ModeDevelopment).WithLogger(zerolog.New(&buf)).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer g.Close()

	if !strings.Contains(buf.String(), `"code":"auth_bypassed"`) {
		t.Fatalf("expected bypass warning, got %q", buf.String())
	}
}

func TestBuildRequiresProtectorInProduction(t *testing.T) {
	if _, err := New().Build(); !errors.Is(err, ErrNilProtector) {
		t.Fatalf("expected ErrNilProtector, got %v", err)
	}
	if _, err := New().WithMode(ModeDevelopment).Build(); err != nil {
		t.Fatalf("development gate without protector should build: %v", err)
	}
}

func TestBuilderSingleUse(t *testing.T) {
	b := New().WithMode(ModeDevelopment)
	g, err := b.Build()
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	defer g.Close()

	if _, err := b.Build(); !errors.Is(err, ErrBuilderUsed) {
		t.Fatalf("expected ErrBuilderUsed, got %v", err)
	}
}

func TestBuildCopiesConfigSlices(t *testing.T) {
	cfg := DefaultConfig()
	p := &countingProtector{}
	b := New().WithConfig(cfg).WithProtector(p)
	cfg.PublicRoutes[0] = "/dashboard"

	g, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer g.Close()

	if g.IsPublicPath("/dashboard") {
		t.Fatal("mutating the caller's config must not affect the gate")
	}
}

func TestNilGateDeniesRequests(t *testing.T) {
	var g *Gate
	rec := serve(g.Handler(okHandler()), httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 from nil gate, got %d", rec.Code)
	}
}

func TestCleanPath(t *testing.T) {
	cases := map[string]string{
		"":                      "/",
		"/":                     "/",
		"dashboard":             "/dashboard",
		"/dashboard/":           "/dashboard/",
		"/a//b":                 "/a/b",
		"/a/./b":                "/a/b",
		"/sign-in/..":           "/",
		"/sign-in/../dashboard": "/dashboard",
		"/api/../../dashboard/": "/dashboard/",
	}
	for in, want := range cases {
		if got := CleanPath(in); got != want {
			t.Errorf("CleanPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDotSegmentsCannotReachProtectedRoutes(t *testing.T) {
	targets := []string{
		"/sign-in/../dashboard",
		"/api/../dashboard",
		"/api/%2e%2e/dashboard",
		"/./dashboard",
	}

	p := &countingProtector{err: ErrUnauthenticated}
	g := newTestGate(t, ModeProduction, p)
	h := g.Handler(okHandler())

	for _, target := range targets {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		if d := g.Decide(req); d != DecisionProtect {
			t.Fatalf("Decide(%s) = %s, want protect", target, d)
		}
		if g.IsPublicRoute(req) {
			t.Fatalf("%s classified as public", target)
		}
		if rec := serve(h, req); rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: status = %d, want 401", target, rec.Code)
		}
	}
	if got := p.calls.Load(); got != int64(len(targets)) {
		t.Fatalf("protector calls = %d, want %d", got, len(targets))
	}
}

func TestServeHandsOnCleanedPath(t *testing.T) {
	g := newTestGate(t, ModeProduction, &countingProtector{identity: &Identity{UserID: "u1"}})

	var seenPath, seenURI string
	h := g.Handler(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seenPath, seenURI = r.URL.Path, r.RequestURI
	}))

	serve(h, httptest.NewRequest(http.MethodGet, "/api/%2e%2e/dashboard?tab=2", nil))
	if seenPath != "/dashboard" || seenURI != "/dashboard?tab=2" {
		t.Fatalf("handler saw path %q uri %q", seenPath, seenURI)
	}

	serve(h, httptest.NewRequest(http.MethodGet, "/sign-in/../", nil))
	if seenPath != "/" {
		t.Fatalf("handler saw path %q, want /", seenPath)
	}
}

func TestDotSegmentNavigationRedirectsWithCleanTarget(t *testing.T) {
	g := newTestGate(t, ModeProduction, &countingProtector{err: ErrUnauthenticated})

	req := httptest.NewRequest(http.MethodGet, "/sign-in/../dashboard", nil)
	req.Header.Set("Accept", "text/html")
	rec := serve(g.Handler(okHandler()), req)

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/sign-in?redirect_url=%2Fdashboard" {
		t.Fatalf("location = %q", loc)
	}
}

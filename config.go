package revsense

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Henil-Prajapati/RevSense/route"
)

// Mode is the runtime mode the gate was built for. Only [ModeProduction]
// enforces authentication.
type Mode string

const (
	// ModeProduction enforces protection on every non-public route.
	ModeProduction Mode = "production"
	// ModeDevelopment bypasses all protection.
	ModeDevelopment Mode = "development"
	// ModeTest bypasses all protection.
	ModeTest Mode = "test"
)

// ParseMode normalizes a mode name. An empty value is development, the
// same as an unset environment flag. Unrecognized names are kept as given
// (lower-cased) and behave like any other non-production mode.
func ParseMode(s string) Mode {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ModeDevelopment
	}
	return Mode(s)
}

// IsProduction reports whether m enforces protection.
func (m Mode) IsProduction() bool {
	return m == ModeProduction
}

func (m Mode) known() bool {
	switch m {
	case ModeProduction, ModeDevelopment, ModeTest:
		return true
	}
	return false
}

const (
	// DefaultSignInURL is where unauthenticated navigations are redirected.
	DefaultSignInURL = "/sign-in"
	// DefaultRedirectParam carries the originally requested URL to the sign-in page.
	DefaultRedirectParam = "redirect_url"
)

// DefaultPublicRoutes are reachable without a session: the sign-in flow,
// the landing page, and every API path.
var DefaultPublicRoutes = []string{
	"/sign-in(.*)",
	"/",
	"/api(.*)",
}

// DefaultMatcher selects the requests the gate applies to at all. The first
// pattern skips framework internals and static assets (JSON is kept); the
// second always includes API and RPC paths.
var DefaultMatcher = []string{
	`/((?!_next|[^?]*\.(?:html?|css|js(?!on)|jpe?g|webp|png|gif|svg|ttf|woff2?|ico|csv|docx?|xlsx?|zip|webmanifest)).*)`,
	`/(api|trpc)(.*)`,
}

// Config controls how a [Gate] classifies and enforces requests.
//
// Config values are copied by [Builder.WithConfig]; later mutation of the
// caller's slices does not affect a built gate.
type Config struct {
	// Mode is passed in explicitly; the gate never reads process state.
	Mode Mode

	// PublicRoutes are route patterns that never require a session.
	PublicRoutes []string
	// Matcher limits the gate to matching paths. Empty applies the gate to
	// every request.
	Matcher []string
	// CaseSensitiveRoutes makes PublicRoutes case-sensitive. Matcher
	// patterns are always case-sensitive.
	CaseSensitiveRoutes bool
	// MatchTimeout bounds each pattern evaluation. Zero uses the route default.
	MatchTimeout time.Duration

	SignInURL     string
	RedirectParam string

	Metrics MetricsConfig
	Audit   AuditConfig
}

// MetricsConfig toggles the in-process decision counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// AuditConfig controls asynchronous delivery of denial events.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// DefaultConfig returns a production configuration with the default route
// tables. Callers that want the development bypass set Mode explicitly.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Mode:          ModeProduction,
		PublicRoutes:  append([]string(nil), DefaultPublicRoutes...),
		Matcher:       append([]string(nil), DefaultMatcher...),
		SignInURL:     DefaultSignInURL,
		RedirectParam: DefaultRedirectParam,
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.PublicRoutes = append([]string(nil), cfg.PublicRoutes...)
	out.Matcher = append([]string(nil), cfg.Matcher...)
	return out
}

func (c *Config) routeOptions(caseSensitive bool) []route.Option {
	return []route.Option{
		route.CaseSensitive(caseSensitive),
		route.MatchTimeout(c.MatchTimeout),
	}
}

// Validate reports the first configuration error. Every returned error
// wraps [ErrInvalidConfig].
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}
	if c.Mode == "" {
		return fmt.Errorf("%w: mode must be set", ErrInvalidConfig)
	}
	if c.MatchTimeout < 0 {
		return fmt.Errorf("%w: match timeout must be >= 0", ErrInvalidConfig)
	}

	if _, err := route.NewMatcher(c.PublicRoutes, c.routeOptions(c.CaseSensitiveRoutes)...); err != nil {
		return fmt.Errorf("%w: public routes: %w", ErrInvalidConfig, err)
	}
	if _, err := route.NewMatcher(c.Matcher, c.routeOptions(true)...); err != nil {
		return fmt.Errorf("%w: matcher: %w", ErrInvalidConfig, err)
	}

	if _, err := parseSignInURL(c.SignInURL); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if strings.TrimSpace(c.RedirectParam) == "" {
		return fmt.Errorf("%w: redirect param must be set", ErrInvalidConfig)
	}

	if c.Audit.BufferSize < 0 {
		return fmt.Errorf("%w: audit buffer size must be >= 0", ErrInvalidConfig)
	}

	return nil
}

func parseSignInURL(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("sign-in URL must be set")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("sign-in URL: %w", err)
	}
	if u.IsAbs() {
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("sign-in URL scheme %q not supported", u.Scheme)
		}
		return u, nil
	}
	if !strings.HasPrefix(u.Path, "/") {
		return nil, errors.New("relative sign-in URL must start with '/'")
	}
	return u, nil
}

// LintSeverity ranks a [LintWarning].
type LintSeverity uint8

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

// LintWarning flags a configuration that is valid but probably unintended.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the ordered list of warnings produced by [Config.Lint].
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, len(r))
	for i, w := range r {
		out[i] = w.Code
	}
	return out
}

// AtLeast returns the warnings at or above min.
func (r LintResult) AtLeast(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// lintProbePath is a path no application route should ever declare public.
const lintProbePath = "/__revsense/lint/protected"

// Lint inspects a configuration that already passes [Config.Validate].
// Patterns that fail to compile are skipped.
func (c *Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, msg string) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	if !c.Mode.IsProduction() {
		add("auth_bypassed", LintHigh,
			fmt.Sprintf("mode %q bypasses authentication for every request", c.Mode))
	}
	if !c.Mode.known() {
		add("mode_unrecognized", LintHigh,
			fmt.Sprintf("mode %q is not recognized and is treated as non-production", c.Mode))
	}

	public, err := route.NewMatcher(c.PublicRoutes, c.routeOptions(c.CaseSensitiveRoutes)...)
	if err == nil {
		if public.Match(lintProbePath) {
			add("public_catch_all", LintHigh, "public routes match every path; nothing is protected")
		}
		if u, err := parseSignInURL(c.SignInURL); err == nil && !u.IsAbs() && !public.Match(u.Path) {
			add("sign_in_not_public", LintWarn,
				fmt.Sprintf("sign-in page %q is not public; unauthenticated redirects will loop", u.Path))
		}
	}

	if len(c.Matcher) == 0 {
		add("matcher_all_paths", LintInfo, "no matcher configured; static assets are gated too")
	}
	if c.Mode.IsProduction() && !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "denied requests are not audited")
	}

	return ws
}

package revsense

import (
	"github.com/Henil-Prajapati/RevSense/internal/audit"
	"github.com/Henil-Prajapati/RevSense/route"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "github.com/Henil-Prajapati/RevSense"

// Builder assembles a [Gate]. A Builder is single-use and not safe for
// concurrent use.
type Builder struct {
	config    Config
	protector Protector
	logger    zerolog.Logger
	auditSink AuditSink
	tracer    trace.Tracer

	built bool
}

// New returns a builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
		logger: zerolog.Nop(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithMode overrides the configured mode. The mode is always an explicit
// input; nothing in this package reads the environment.
func (b *Builder) WithMode(mode Mode) *Builder {
	b.config.Mode = mode
	return b
}

// WithProtector sets the routine invoked for protected requests. Required
// in production mode.
func (b *Builder) WithProtector(p Protector) *Builder {
	b.protector = p
	return b
}

func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the sink for denial events. It has no effect unless
// Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithTracer sets the tracer used for the protector span. Defaults to a
// no-op tracer.
func (b *Builder) WithTracer(tracer trace.Tracer) *Builder {
	b.tracer = tracer
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, compiles the route tables, and starts
// the audit dispatcher when enabled.
func (b *Builder) Build() (*Gate, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}
	b.built = true

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Mode.IsProduction() && b.protector == nil {
		return nil, ErrNilProtector
	}

	public, err := route.NewMatcher(cfg.PublicRoutes, cfg.routeOptions(cfg.CaseSensitiveRoutes)...)
	if err != nil {
		return nil, err
	}

	var scope *route.Matcher
	if len(cfg.Matcher) > 0 {
		scope, err = route.NewMatcher(cfg.Matcher, cfg.routeOptions(true)...)
		if err != nil {
			return nil, err
		}
	}

	signIn, err := parseSignInURL(cfg.SignInURL)
	if err != nil {
		return nil, err
	}

	tracer := b.tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer(tracerName)
	}

	g := &Gate{
		config:    cfg,
		public:    public,
		scope:     scope,
		signIn:    signIn,
		protector: b.protector,
		metrics:   NewMetrics(cfg.Metrics),
		logger:    b.logger,
		tracer:    tracer,
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
	}

	for _, w := range cfg.Lint().AtLeast(LintWarn) {
		g.logger.Warn().Str("code", w.Code).Str("mode", string(cfg.Mode)).Msg(w.Message)
	}

	return g, nil
}

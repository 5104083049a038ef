package main

import (
	"context"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	revsense "github.com/Henil-Prajapati/RevSense"
	"github.com/Henil-Prajapati/RevSense/metrics/export/prometheus"
	"github.com/Henil-Prajapati/RevSense/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Identity headers forwarded to the upstream for admitted requests. Client
// supplied values are always removed.
const (
	HeaderUserID    = "X-Revsense-User-Id"
	HeaderSessionID = "X-Revsense-Session-Id"
	HeaderTenantID  = "X-Revsense-Tenant-Id"
)

type routerDeps struct {
	gate     *revsense.Gate
	upstream *url.URL
	health   func(context.Context) error
	metrics  bool
	logger   zerolog.Logger
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(requestLogger(d.logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if d.health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := d.health(ctx); err != nil {
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusNoContent)
	})
	if d.metrics {
		r.Handle("/metrics", prometheus.NewExporter(d.gate).Handler())
	}

	r.With(middleware.Guard(d.gate)).Handle("/*", newProxy(d.upstream, d.logger))
	return r
}

func newProxy(upstream *url.URL, logger zerolog.Logger) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(upstream)
			pr.SetXForwarded()
			pr.Out.Host = pr.In.Host

			h := pr.Out.Header
			h.Del(HeaderUserID)
			h.Del(HeaderSessionID)
			h.Del(HeaderTenantID)
			if id, ok := revsense.IdentityFromContext(pr.In.Context()); ok {
				h.Set(HeaderUserID, id.UserID)
				if id.SessionID != "" {
					h.Set(HeaderSessionID, id.SessionID)
				}
				if id.TenantID != "" {
					h.Set(HeaderTenantID, id.TenantID)
				}
			}
			if rid := revsense.RequestIDFromContext(pr.In.Context()); rid != "" {
				h.Set(revsense.RequestIDHeader, rid)
			}
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error().Err(err).Str("path", r.URL.Path).Msg("upstream request failed")
			http.Error(w, "bad gateway", http.StatusBadGateway)
		},
	}
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("latency", time.Since(start)).
				Msg("request")
		})
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	revsense "github.com/Henil-Prajapati/RevSense"
	"github.com/Henil-Prajapati/RevSense/internal/config"
	"github.com/Henil-Prajapati/RevSense/internal/logging"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gate as a reverse proxy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	settings, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(settings.LogLevel, settings.LogPretty)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	upstream, err := url.Parse(settings.UpstreamURL)
	if err != nil || upstream.Scheme == "" || upstream.Host == "" {
		return fmt.Errorf("%w: UPSTREAM_URL must be an absolute URL, got %q", config.ErrInvalidSettings, settings.UpstreamURL)
	}

	a, err := newApp(ctx, settings, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	g, err := a.gate(revsense.NewZerologSink(logger.With().Str("component", "audit").Logger()))
	if err != nil {
		return err
	}
	defer g.Close()

	srv := &http.Server{
		Addr: settings.ListenAddr,
		Handler: newRouter(routerDeps{
			gate:     g,
			upstream: upstream,
			health:   a.ping,
			metrics:  settings.MetricsEnabled,
			logger:   logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", settings.ListenAddr).
			Str("upstream", upstream.String()).
			Str("mode", string(g.Mode())).
			Str("auth_mode", settings.AuthMode).
			Msg("gate listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

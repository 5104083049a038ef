package main

import (
	"context"
	"fmt"
	"net/http"

	revsense "github.com/Henil-Prajapati/RevSense"
	"github.com/Henil-Prajapati/RevSense/internal/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// denyAll stands in for the real protector; check never runs it.
var denyAll = revsense.ProtectorFunc(func(context.Context, *http.Request) (*revsense.Identity, error) {
	return nil, revsense.ErrUnauthenticated
})

func checkCmd() *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "check PATH...",
		Short: "Print the gate decision for each path",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, paths []string) error {
			settings, err := config.Load()
			if err != nil {
				return err
			}
			cfg := settings.GateConfig()
			if mode != "" {
				cfg.Mode = revsense.ParseMode(mode)
			}
			cfg.Metrics.Enabled = false
			cfg.Audit.Enabled = false

			g, err := revsense.New().
				WithConfig(cfg).
				WithProtector(denyAll).
				WithLogger(zerolog.Nop()).
				Build()
			if err != nil {
				return err
			}
			defer g.Close()

			out := cmd.OutOrStdout()
			for _, p := range paths {
				r, err := http.NewRequest(http.MethodGet, p, nil)
				if err != nil {
					return fmt.Errorf("path %q: %w", p, err)
				}
				fmt.Fprintf(out, "%s\t%s\n", g.Decide(r), p)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "override APP_ENV for this check")
	return cmd
}

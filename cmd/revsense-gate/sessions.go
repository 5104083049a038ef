package main

import (
	"errors"
	"fmt"

	"github.com/Henil-Prajapati/RevSense/internal/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var errNoStore = errors.New("sessions requires AUTH_MODE=session and REDIS_URL")

func sessionsCmd() *cobra.Command {
	var userID, tenantID string
	var revoke bool
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List or revoke a user's sessions",
		Long: "List the Redis sessions indexed for a user and the tenant's session\n" +
			"count. With --revoke every session of the user is deleted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := config.Load()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), settings, zerolog.Nop())
			if err != nil {
				return err
			}
			defer a.Close()
			if a.store == nil {
				return errNoStore
			}

			out := cmd.OutOrStdout()
			if revoke {
				n, err := a.store.DeleteAllForUser(cmd.Context(), tenantID, userID)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "revoked %d\n", n)
				return nil
			}

			ids, err := a.store.SessionIDs(cmd.Context(), tenantID, userID)
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(out, id)
			}
			count, err := a.store.TenantSessionCount(cmd.Context(), tenantID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "tenant sessions: %d\n", count)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user ID (required)")
	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant ID")
	cmd.Flags().BoolVar(&revoke, "revoke", false, "delete every session of the user")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

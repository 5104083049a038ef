package main

import (
	"errors"
	"fmt"

	"github.com/Henil-Prajapati/RevSense/internal/config"
	"github.com/Henil-Prajapati/RevSense/session"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var errNoSecret = errors.New("JWT_SECRET is required to issue tokens")

func tokenCmd() *cobra.Command {
	var userID, tenantID string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a session token",
		Long: "Issue a signed session token. With AUTH_MODE=session the session is\n" +
			"also written to Redis so the session protector admits it.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := config.Load()
			if err != nil {
				return err
			}
			if settings.JWTSecret == "" {
				return errNoSecret
			}

			a, err := newApp(cmd.Context(), settings, zerolog.Nop())
			if err != nil {
				return err
			}
			defer a.Close()

			sessionID := session.NewSessionID()
			if a.store != nil {
				sess := session.New(userID, tenantID, a.manager.TTL())
				sessionID = sess.SessionID
				if err := a.store.Save(cmd.Context(), sess, a.manager.TTL()); err != nil {
					return fmt.Errorf("save session: %w", err)
				}
			}

			tok, err := a.manager.Issue(userID, sessionID, tenantID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user ID (required)")
	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant ID")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// Command revsense-gate runs the route gate as a reverse proxy in front of
// an application, and offers offline helpers to inspect routes and mint
// session tokens.
//
// Configuration is read from the environment (see internal/config):
//
//	APP_ENV=production JWT_SECRET=... UPSTREAM_URL=http://app:3000 revsense-gate serve
//	revsense-gate check /dashboard /logo.png /api/reports
//	JWT_SECRET=... revsense-gate token --user user_1
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "revsense-gate",
		Short:         "Session gate for RevSense routes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd())
	root.AddCommand(checkCmd())
	root.AddCommand(tokenCmd())
	root.AddCommand(sessionsCmd())
	return root
}

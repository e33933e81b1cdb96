package commands

import (
	"fmt"
	"log/slog"

	"groupfeed-backend/lib/osutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(loginCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Establishes a facebook session and persists it for later scrapes.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		service := buildService(readConfig())
		defer service.ReleaseSession(ctx)

		creds := readCredentials()
		if creds.Email == "" {
			slog.Warn("FACEBOOK_EMAIL is not set, relying on a persisted session")
		}

		outcome, err := service.EstablishSession(ctx, creds)
		if err != nil {
			osutil.Fatal("failed to establish session", err)
		}

		fmt.Printf("status: %s\n%s\n", outcome.Status, outcome.Message)
	},
}

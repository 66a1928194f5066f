package cmd

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/joshdurbin/strava-summary/internal/auth"
	"github.com/joshdurbin/strava-summary/internal/config"
	"github.com/joshdurbin/strava-summary/internal/logging"
	"github.com/spf13/cobra"
)

var listenAddr string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorize with Strava in the browser and print a refresh token",
	Long: `login runs the OAuth authorization flow for your Strava API application.

It needs STRAVA_CLIENT_ID and STRAVA_CLIENT_SECRET. Your browser opens the
Strava authorization page and, once you approve, the refresh token is printed
as an export line for STRAVA_USER_REFRESH_TOKEN. Nothing is written to disk.

The application's "Authorization Callback Domain" must be set to localhost.
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logging.Logger

		if httpTimeout <= 0 {
			return fmt.Errorf("invalid --http-timeout %s: must be positive", httpTimeout)
		}
		if err := config.LoadDotEnv(envFile); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		client, err := config.LoadClientConfig(ctx, nil)
		if err != nil {
			return err
		}

		tokens, err := auth.Authenticate(ctx, *client, auth.Options{
			Timeout:    httpTimeout,
			ListenAddr: listenAddr,
		}, cmd.ErrOrStderr())
		if err != nil {
			return fmt.Errorf("OAuth flow failed: %w", err)
		}

		log.Info().
			Str("expires_at", time.Unix(tokens.ExpiresAt, 0).Format(time.RFC3339)).
			Msg("OAuth authentication successful")

		fmt.Fprintln(cmd.ErrOrStderr(), "\nAuthentication successful! Add this to your environment or .env file:")
		fmt.Fprintf(cmd.OutOrStdout(), "export STRAVA_USER_REFRESH_TOKEN=%s\n", tokens.RefreshToken)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&listenAddr, "listen", "localhost:8089", "address for the local OAuth callback server")
	rootCmd.AddCommand(loginCmd)
}

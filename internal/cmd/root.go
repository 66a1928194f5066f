package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/joshdurbin/strava-summary/internal/logging"
	"github.com/spf13/cobra"
)

var (
	verbosity   int
	envFile     string
	weekStart   string
	units       string
	output      string
	maxRetries  int
	httpTimeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "strava-summary",
	Short: "Show this week's and this month's running and cycling distance from Strava",
	Long: `strava-summary fetches your recent Strava activities and prints how far you
ran and rode this week, last week, this month and last month.

Credentials are read from the environment (or a .env file):

  STRAVA_CLIENT_ID            your API application's client ID
  STRAVA_CLIENT_SECRET        your API application's client secret
  STRAVA_USER_REFRESH_TOKEN   a refresh token with the activity:read_all scope

Get the client ID and secret from https://www.strava.com/settings/api, then run
"strava-summary login" once to obtain a refresh token.
`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Set up logging based on verbosity before any command runs
		logging.Setup(logging.Level(verbosity))
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		rtCfg, err := newRuntimeConfig()
		if err != nil {
			return err
		}

		return Run(cmd.Context(), rtCfg, cmd.OutOrStdout())
	},
}

func init() {
	// Logging verbosity
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase verbosity (-v for info, -vv for debug, -vvv for trace with HTTP headers)")

	// Credentials
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional dotenv file to load credentials from (existing environment wins)")

	// Summary settings
	rootCmd.PersistentFlags().StringVar(&weekStart, "week-start", "monday", "first day of the week: monday or sunday")
	rootCmd.PersistentFlags().StringVar(&units, "units", "mi", "distance units: mi or km")
	rootCmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table or json")

	// HTTP behaviour
	rootCmd.PersistentFlags().IntVar(&maxRetries, "max-retries", 3, "retries for rate limited (429) and server error (5xx) responses, 0 to disable")
	rootCmd.PersistentFlags().DurationVar(&httpTimeout, "http-timeout", 30*time.Second, "timeout for each HTTP request")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

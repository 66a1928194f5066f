package cmd

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/joshdurbin/strava-summary/internal/logging"
	"github.com/joshdurbin/strava-summary/internal/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the distance summary over the Model Context Protocol on stdio",
	Long: `mcp starts an MCP server on stdin/stdout exposing the get_distance_summary
tool, the strava://summary/distance resource and a distance_review prompt.

Every request fetches fresh data from Strava using the credentials from the
environment. Logs go to stderr.
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rtCfg, err := newRuntimeConfig()
		if err != nil {
			return err
		}

		return RunMCP(cmd.Context(), rtCfg)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// RunMCP serves MCP over stdio until the client disconnects or a shutdown signal arrives
func RunMCP(ctx context.Context, cfg *RuntimeConfig) error {
	log := logging.Logger

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	service, err := newService(ctx, cfg)
	if err != nil {
		return err
	}

	srv := server.New(service, server.Options{Units: cfg.Units})

	var signaled atomic.Bool
	g, gCtx := errgroup.WithContext(ctx)

	// Handle shutdown signals
	g.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
			signaled.Store(true)
			cancel()
		case <-gCtx.Done():
		}
		return nil
	})

	g.Go(func() error {
		// Stop the signal watcher once the client goes away
		defer cancel()
		log.Info().Msg("MCP server running via stdio")
		return srv.Run(gCtx)
	})

	if err := g.Wait(); err != nil && !signaled.Load() {
		return err
	}
	return nil
}

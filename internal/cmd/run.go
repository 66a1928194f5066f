package cmd

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/joshdurbin/strava-summary/internal/auth"
	"github.com/joshdurbin/strava-summary/internal/config"
	"github.com/joshdurbin/strava-summary/internal/logging"
	"github.com/joshdurbin/strava-summary/internal/report"
	"github.com/joshdurbin/strava-summary/internal/strava"
	"github.com/joshdurbin/strava-summary/internal/summary"
	syncsvc "github.com/joshdurbin/strava-summary/internal/sync"
)

// RuntimeConfig holds all runtime configuration from CLI flags
type RuntimeConfig struct {
	EnvFile     string
	WeekStart   time.Weekday
	Units       report.Units
	Format      report.Format
	MaxRetries  int
	HTTPTimeout time.Duration
}

// newRuntimeConfig validates the CLI flags
func newRuntimeConfig() (*RuntimeConfig, error) {
	day, err := summary.ParseWeekStart(weekStart)
	if err != nil {
		return nil, err
	}
	u, err := report.ParseUnits(units)
	if err != nil {
		return nil, err
	}
	format, err := report.ParseFormat(output)
	if err != nil {
		return nil, err
	}
	if maxRetries < 0 {
		return nil, fmt.Errorf("invalid --max-retries %d: must be 0 or more", maxRetries)
	}
	if httpTimeout <= 0 {
		return nil, fmt.Errorf("invalid --http-timeout %s: must be positive", httpTimeout)
	}

	return &RuntimeConfig{
		EnvFile:     envFile,
		WeekStart:   day,
		Units:       u,
		Format:      format,
		MaxRetries:  maxRetries,
		HTTPTimeout: httpTimeout,
	}, nil
}

// Settings returns the aggregation settings for the configured week start
func (c *RuntimeConfig) Settings() summary.Settings {
	settings := summary.DefaultSettings()
	settings.WeekStart = c.WeekStart
	return settings
}

// ServiceOptions builds the summary service options from the runtime config
func (c *RuntimeConfig) ServiceOptions() syncsvc.Options {
	retry := strava.DefaultRetryConfig()
	retry.MaxRetries = c.MaxRetries
	settings := c.Settings()

	return syncsvc.Options{
		Auth:     auth.Options{Timeout: c.HTTPTimeout},
		Strava:   strava.Options{Retry: &retry, Timeout: c.HTTPTimeout},
		Settings: &settings,
	}
}

// newService loads credentials and builds the summary service
func newService(ctx context.Context, cfg *RuntimeConfig) (*syncsvc.Service, error) {
	log := logging.Logger

	if err := config.LoadDotEnv(cfg.EnvFile); err != nil {
		return nil, err
	}

	creds, err := config.LoadCredentials(ctx, nil)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("client_id", creds.ClientID).Msg("credentials loaded")

	return syncsvc.NewService(*creds, cfg.ServiceOptions()), nil
}

// Run fetches, aggregates and renders the distance summary to w
func Run(ctx context.Context, cfg *RuntimeConfig, w io.Writer) error {
	log := logging.Logger

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("week_start", cfg.WeekStart.String()).
		Str("units", string(cfg.Units)).
		Str("output", string(cfg.Format)).
		Int("max_retries", cfg.MaxRetries).
		Dur("http_timeout", cfg.HTTPTimeout).
		Msg("starting strava-summary")

	service, err := newService(ctx, cfg)
	if err != nil {
		return err
	}

	result, err := service.Summarize(ctx, time.Now())
	if err != nil {
		return err
	}

	return report.Render(w, result, report.Options{Format: cfg.Format, Units: cfg.Units})
}

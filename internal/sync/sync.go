package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/joshdurbin/strava-summary/internal/auth"
	"github.com/joshdurbin/strava-summary/internal/config"
	"github.com/joshdurbin/strava-summary/internal/logging"
	"github.com/joshdurbin/strava-summary/internal/strava"
	"github.com/joshdurbin/strava-summary/internal/summary"
)

// FetchProgressCallback is called after each page is fetched
type FetchProgressCallback func(result strava.FetchResult)

// Options configures a Service. Zero values select the Strava endpoints and
// default filter and settings.
type Options struct {
	Auth     auth.Options
	Strava   strava.Options
	Filter   *strava.TypeFilter
	Settings *summary.Settings
	// FetchProgress is called in addition to the built-in progress logging
	FetchProgress FetchProgressCallback
}

// Service runs the token exchange, activity fetch and aggregation for one athlete
type Service struct {
	credentials config.Credentials
	opts        Options
	filter      strava.TypeFilter
	settings    summary.Settings
}

// NewService creates a new summary service
func NewService(credentials config.Credentials, opts Options) *Service {
	filter := strava.DefaultTypeFilter()
	if opts.Filter != nil {
		filter = *opts.Filter
	}
	settings := summary.DefaultSettings()
	if opts.Settings != nil {
		settings = *opts.Settings
	}

	return &Service{
		credentials: credentials,
		opts:        opts,
		filter:      filter,
		settings:    settings,
	}
}

// Settings returns the aggregation settings the service was built with
func (s *Service) Settings() summary.Settings {
	return s.settings
}

// Summarize fetches activities since the start of the previous month and
// aggregates them with the service's settings
func (s *Service) Summarize(ctx context.Context, now time.Time) (*summary.Summary, error) {
	return s.SummarizeWith(ctx, now, s.settings)
}

// SummarizeWith is Summarize with explicit aggregation settings
func (s *Service) SummarizeWith(ctx context.Context, now time.Time, settings summary.Settings) (*summary.Summary, error) {
	log := logging.Logger

	activities, err := s.fetch(ctx, summary.EpochCutoff(now, settings))
	if err != nil {
		return nil, err
	}

	result := summary.Aggregate(activities, now, settings)

	log.Debug().
		Int("activities", len(activities)).
		Int("types", len(result.Totals)).
		Str("week_start", result.Windows.CurrentWeek.Format("2006-01-02")).
		Str("month_start", result.Windows.CurrentMonth.Format("2006-01-02")).
		Msg("activities aggregated")

	return result, nil
}

// Fetch exchanges the refresh token and returns the accepted, normalized
// activities started after the epoch cutoff for now
func (s *Service) Fetch(ctx context.Context, now time.Time) ([]strava.Activity, error) {
	return s.fetch(ctx, summary.EpochCutoff(now, s.settings))
}

func (s *Service) fetch(ctx context.Context, cutoff time.Time) ([]strava.Activity, error) {
	log := logging.Logger

	accessToken, err := auth.RefreshAccessToken(ctx, s.credentials.Client(), s.credentials.RefreshToken, s.opts.Auth)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("after", cutoff.Format(time.RFC3339)).
		Msg("fetching activities from Strava")

	client := strava.NewClientWithOptions(accessToken, s.opts.Strava)
	activities, err := client.FetchActivities(ctx, cutoff, s.filter, s.progress)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch activities")
		return nil, err
	}

	rl := client.GetRateLimit()
	log.Info().
		Int("activities", len(activities)).
		Str("15min_usage", fmt.Sprintf("%d/%d", rl.Usage15Min, rl.Limit15Min)).
		Str("daily_usage", fmt.Sprintf("%d/%d", rl.UsageDaily, rl.LimitDaily)).
		Msg("fetched activities")

	if rl.IsRateLimited {
		logging.Warn("Strava rate limit reached, further requests may be rejected until the window resets",
			"resets_in", rl.TimeUntil15MinReset.Round(time.Second).String())
	}

	return activities, nil
}

func (s *Service) progress(result strava.FetchResult) {
	rl := result.RateLimit
	logEvent := logging.Logger.Debug()
	// Upgrade to Info level when close to the limit
	if rl.IsRateLimited {
		logEvent = logging.Logger.Info()
	}
	logEvent.
		Int("page", result.Page).
		Int("activities_on_page", result.Raw).
		Int("kept_on_page", result.Kept).
		Int("total_kept", result.TotalFetched).
		Str("15min_usage", fmt.Sprintf("%d/%d", rl.Usage15Min, rl.Limit15Min)).
		Str("daily_usage", fmt.Sprintf("%d/%d", rl.UsageDaily, rl.LimitDaily)).
		Bool("rate_limited", rl.IsRateLimited).
		Msg("activity fetch progress")

	if s.opts.FetchProgress != nil {
		s.opts.FetchProgress(result)
	}
}

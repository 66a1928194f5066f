package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/joshdurbin/strava-summary/internal/logging"
)

const (
	// BaseURL is the Strava v3 API root
	BaseURL = "https://www.strava.com/api/v3"
	// PerPage is the page size used when listing activities
	PerPage = 50

	defaultRequestTimeout = 30 * time.Second
	maxErrorBodyBytes     = 64 << 10
)

// Default retry settings
const (
	defaultMaxRetries     = 3
	defaultInitialBackoff = 1 * time.Second
	defaultMaxBackoff     = 1 * time.Minute
)

// RateLimitInfo contains rate limit information from the API
type RateLimitInfo struct {
	Limit15Min          int
	Usage15Min          int
	LimitDaily          int
	UsageDaily          int
	IsRateLimited       bool
	TimeUntil15MinReset time.Duration
}

// FetchResult describes one fetched page
type FetchResult struct {
	Page int
	// Raw is the number of items Strava returned for the page
	Raw int
	// Kept is the number of those items that passed the type filter
	Kept         int
	TotalFetched int
	RateLimit    RateLimitInfo
}

// ProgressCallback is called after each page is fetched
type ProgressCallback func(result FetchResult)

// RetryConfig holds retry/backoff settings
type RetryConfig struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: defaultMaxRetries,
		MinWait:    defaultInitialBackoff,
		MaxWait:    defaultMaxBackoff,
	}
}

// Options configures a Client
type Options struct {
	BaseURL string
	// Retry defaults to DefaultRetryConfig when nil
	Retry *RetryConfig
	// Timeout bounds each HTTP attempt. Zero means the default of 30s.
	Timeout time.Duration
}

// Client is a Strava API client with automatic retry and backoff
type Client struct {
	httpClient  *retryablehttp.Client
	accessToken string
	baseURL     string
	rateMu      sync.RWMutex
	rateLimit   RateLimitInfo
}

// NewClient creates a new Strava API client with default settings
func NewClient(accessToken string) *Client {
	return NewClientWithOptions(accessToken, Options{})
}

// NewClientWithBaseURL creates a new Strava API client with a custom base URL (for testing)
func NewClientWithBaseURL(accessToken, customBaseURL string) *Client {
	return NewClientWithOptions(accessToken, Options{BaseURL: customBaseURL})
}

// NewClientWithOptions creates a new Strava API client
func NewClientWithOptions(accessToken string, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = BaseURL
	}
	retry := DefaultRetryConfig()
	if opts.Retry != nil {
		retry = *opts.Retry
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultRequestTimeout
	}

	client := retryablehttp.NewClient()
	client.RetryMax = retry.MaxRetries
	client.RetryWaitMin = retry.MinWait
	client.RetryWaitMax = retry.MaxWait
	client.HTTPClient.Timeout = opts.Timeout
	client.Logger = &logging.LeveledLogger{}
	client.CheckRetry = checkRetry
	client.Backoff = backoff
	// Hand the last response back after retries so its body can be reported
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.RequestLogHook = logRequest
	client.ResponseLogHook = logResponse

	return &Client{
		httpClient:  client,
		accessToken: accessToken,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
	}
}

// WithRetryConfig sets custom retry configuration (useful for testing)
func (c *Client) WithRetryConfig(maxRetries int, initialBackoff, maxBackoff time.Duration) *Client {
	c.httpClient.RetryMax = maxRetries
	c.httpClient.RetryWaitMin = initialBackoff
	c.httpClient.RetryWaitMax = maxBackoff
	return c
}

// GetRateLimit returns the rate limit info seen on the last response
func (c *Client) GetRateLimit() RateLimitInfo {
	c.rateMu.RLock()
	defer c.rateMu.RUnlock()
	return c.rateLimit
}

// FetchActivities pages through the athlete's activities started after the given
// time, 50 per page, until a page comes back empty. Only activities accepted by
// filter are returned, in provider order, with their types normalized. A non-200
// page aborts the whole fetch and already fetched pages are discarded.
func (c *Client) FetchActivities(ctx context.Context, after time.Time, filter TypeFilter, progress ProgressCallback) ([]Activity, error) {
	var kept []Activity
	page := 1

	for {
		raw, err := c.fetchActivitiesPage(ctx, page, after.Unix())
		if err != nil {
			return nil, fmt.Errorf("fetching activities page %d: %w", page, err)
		}

		accepted := filter.Apply(raw)
		kept = append(kept, accepted...)

		if progress != nil {
			progress(FetchResult{
				Page:         page,
				Raw:          len(raw),
				Kept:         len(accepted),
				TotalFetched: len(kept),
				RateLimit:    c.GetRateLimit(),
			})
		}

		if len(raw) == 0 {
			break
		}
		page++
	}

	return kept, nil
}

func (c *Client) fetchActivitiesPage(ctx context.Context, page int, after int64) ([]Activity, error) {
	query := url.Values{}
	query.Set("after", strconv.FormatInt(after, 10))
	query.Set("page", strconv.Itoa(page))
	query.Set("per_page", strconv.Itoa(PerPage))
	endpoint := c.baseURL + "/athlete/activities?" + query.Encode()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	c.updateRateLimit(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, NewProviderError("athlete/activities", resp)
	}

	var activities []Activity
	if err := json.NewDecoder(resp.Body).Decode(&activities); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return activities, nil
}

// NewProviderError builds a ProviderError from a non-200 response, reading the
// raw body. The caller still owns closing resp.Body.
func NewProviderError(endpoint string, resp *http.Response) *ProviderError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	return &ProviderError{
		StatusCode: resp.StatusCode,
		Endpoint:   endpoint,
		Body:       strings.TrimSpace(string(body)),
	}
}

func (c *Client) updateRateLimit(resp *http.Response) {
	rateLimit := parseRateLimitHeaders(resp.Header, time.Now())
	if resp.StatusCode == http.StatusTooManyRequests {
		rateLimit.IsRateLimited = true
	}
	c.rateMu.Lock()
	c.rateLimit = rateLimit
	c.rateMu.Unlock()
}

// checkRetry retries connection errors, 429 and 5xx; everything else is final
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return true, nil
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return true, nil
	}
	if resp.StatusCode >= 500 {
		return true, nil
	}
	return false, nil
}

// backoff honors Retry-After on 429 and otherwise doubles the wait per attempt
func backoff(min, max time.Duration, attemptNum int, resp *http.Response) time.Duration {
	log := logging.Logger

	if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil {
				wait := time.Duration(seconds) * time.Second
				log.Info().
					Dur("wait", wait).
					Int("attempt", attemptNum).
					Msg("rate limited, waiting for Retry-After header")
				return wait
			}
		}

		wait := timeUntilNext15MinWindow(time.Now())
		if wait > max {
			wait = max
		}
		log.Info().
			Dur("wait", wait).
			Int("attempt", attemptNum).
			Msg("rate limited, waiting for window reset")
		return wait
	}

	wait := min * time.Duration(1<<uint(attemptNum))
	if wait > max {
		wait = max
	}
	log.Info().
		Dur("wait", wait).
		Int("attempt", attemptNum).
		Dur("max_wait", max).
		Msg("backing off before retry")
	return wait
}

func logRequest(_ retryablehttp.Logger, req *http.Request, retry int) {
	log := logging.Logger
	if retry > 0 {
		log.Info().
			Str("url", req.URL.Path).
			Int("attempt", retry+1).
			Msg("retrying request")
	}

	if logging.IsTraceEnabled() {
		log.Debug().
			Str("method", req.Method).
			Str("url", req.URL.String()).
			Str("headers", formatHeaders(req.Header)).
			Msg("request headers")
	}
}

func logResponse(_ retryablehttp.Logger, resp *http.Response) {
	log := logging.Logger

	if logging.IsTraceEnabled() {
		log.Debug().
			Int("status", resp.StatusCode).
			Str("url", resp.Request.URL.Path).
			Str("headers", formatHeaders(resp.Header)).
			Msg("response headers")
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		rateLimit := parseRateLimitHeaders(resp.Header, time.Now())
		log.Warn().
			Int("status", resp.StatusCode).
			Str("url", resp.Request.URL.Path).
			Str("15min_usage", fmt.Sprintf("%d/%d", rateLimit.Usage15Min, rateLimit.Limit15Min)).
			Str("daily_usage", fmt.Sprintf("%d/%d", rateLimit.UsageDaily, rateLimit.LimitDaily)).
			Msg("rate limited by API")
	}
}

// timeUntilNext15MinWindow calculates time until the next 15-minute boundary.
// Strava rate limits reset at 0, 15, 30 and 45 minutes past each hour.
func timeUntilNext15MinWindow(now time.Time) time.Duration {
	next := now.Truncate(15 * time.Minute).Add(15 * time.Minute)
	return next.Sub(now) + 2*time.Second
}

// minPositive returns the smaller of two values, ignoring zero/unset ones
func minPositive(a, b int) int {
	if a <= 0 {
		return b
	}
	if b <= 0 {
		return a
	}
	return min(a, b)
}

// splitPair parses "15min,daily" header values
func splitPair(value string) (int, int) {
	parts := strings.Split(value, ",")
	var first, second int
	if len(parts) >= 1 {
		first, _ = strconv.Atoi(strings.TrimSpace(parts[0]))
	}
	if len(parts) >= 2 {
		second, _ = strconv.Atoi(strings.TrimSpace(parts[1]))
	}
	return first, second
}

// parseRateLimitHeaders combines the general X-RateLimit-* and the stricter
// X-ReadRateLimit-* headers, keeping the lower limit and the higher usage.
func parseRateLimitHeaders(headers http.Header, now time.Time) RateLimitInfo {
	generalLimit15Min, generalLimitDaily := splitPair(headers.Get("X-RateLimit-Limit"))
	generalUsage15Min, generalUsageDaily := splitPair(headers.Get("X-RateLimit-Usage"))
	readLimit15Min, readLimitDaily := splitPair(headers.Get("X-ReadRateLimit-Limit"))
	readUsage15Min, readUsageDaily := splitPair(headers.Get("X-ReadRateLimit-Usage"))

	info := RateLimitInfo{
		Limit15Min:          minPositive(generalLimit15Min, readLimit15Min),
		LimitDaily:          minPositive(generalLimitDaily, readLimitDaily),
		Usage15Min:          max(generalUsage15Min, readUsage15Min),
		UsageDaily:          max(generalUsageDaily, readUsageDaily),
		TimeUntil15MinReset: timeUntilNext15MinWindow(now),
	}

	if info.Limit15Min > 0 && info.Usage15Min >= info.Limit15Min {
		info.IsRateLimited = true
	}
	if info.LimitDaily > 0 && info.UsageDaily >= info.LimitDaily {
		info.IsRateLimited = true
	}

	return info
}

// formatHeaders formats HTTP headers for logging, redacting sensitive values
func formatHeaders(headers http.Header) string {
	if len(headers) == 0 {
		return "{}"
	}

	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("{")
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}

		value := strings.Join(headers[k], ", ")
		switch strings.ToLower(k) {
		case "authorization", "cookie", "set-cookie":
			value = "[REDACTED]"
		}

		fmt.Fprintf(&sb, "%s: %q", k, value)
	}
	sb.WriteString("}")
	return sb.String()
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/joshdurbin/strava-summary/internal/config"
	"github.com/joshdurbin/strava-summary/internal/logging"
	"github.com/joshdurbin/strava-summary/internal/strava"
	"github.com/pkg/browser"
	"golang.org/x/oauth2"
)

const (
	// AuthURL is Strava's authorization page
	AuthURL = "https://www.strava.com/oauth/authorize"
	// TokenURL is Strava's token endpoint, used for both code exchange and refresh
	TokenURL = "https://www.strava.com/api/v3/oauth/token"

	scopes            = "activity:read_all"
	defaultListenAddr = "localhost:8089"
	defaultTimeout    = 30 * time.Second
	loginTimeout      = 5 * time.Minute
)

// Options overrides endpoints and transport settings
type Options struct {
	AuthURL  string
	TokenURL string
	// Timeout bounds each token request. Zero means 30s.
	Timeout time.Duration
	// ListenAddr is where the login callback server listens. Defaults to localhost:8089.
	ListenAddr string
	// OpenBrowser opens the authorization URL. Defaults to pkg/browser.
	OpenBrowser func(url string) error
}

func (o Options) withDefaults() Options {
	if o.AuthURL == "" {
		o.AuthURL = AuthURL
	}
	if o.TokenURL == "" {
		o.TokenURL = TokenURL
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.ListenAddr == "" {
		o.ListenAddr = defaultListenAddr
	}
	if o.OpenBrowser == nil {
		o.OpenBrowser = browser.OpenURL
	}
	return o
}

// StravaOAuthConfig returns an OAuth2 config for Strava. Client credentials go in
// the form body, which is what Strava expects.
func StravaOAuthConfig(client config.ClientConfig, opts Options) *oauth2.Config {
	opts = opts.withDefaults()
	return &oauth2.Config{
		ClientID:     client.ClientID,
		ClientSecret: client.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   opts.AuthURL,
			TokenURL:  opts.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		Scopes: []string{scopes},
	}
}

// TokenResponse represents the OAuth token response from Strava
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	TokenType    string `json:"token_type"`
}

// TokenFromOAuth2 converts an oauth2.Token to our TokenResponse
func TokenFromOAuth2(token *oauth2.Token) *TokenResponse {
	resp := &TokenResponse{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
	}
	if !token.Expiry.IsZero() {
		resp.ExpiresAt = token.Expiry.Unix()
	}
	return resp
}

// tokenTransport sets the Accept header on every token request and only lets
// a 200 through as a token response
type tokenTransport struct {
	next http.RoundTripper
}

func (t tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Accept", "application/json")

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	// oauth2 reports other statuses itself but accepts any 2xx
	if resp.StatusCode >= 200 && resp.StatusCode < 300 && resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, &strava.ProviderError{
			StatusCode: resp.StatusCode,
			Endpoint:   "oauth/token",
			Body:       string(body),
		}
	}
	return resp, nil
}

// withHTTPClient hands oauth2 a client with a timeout and the token transport
func withHTTPClient(ctx context.Context, timeout time.Duration) context.Context {
	httpClient := &http.Client{
		Timeout:   timeout,
		Transport: tokenTransport{next: http.DefaultTransport},
	}
	return context.WithValue(ctx, oauth2.HTTPClient, httpClient)
}

// providerError turns a failed token call into a strava.ProviderError carrying
// the raw response body
func providerError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		return &strava.ProviderError{
			StatusCode: retrieveErr.Response.StatusCode,
			Endpoint:   "oauth/token",
			Body:       string(retrieveErr.Body),
		}
	}
	return err
}

// RefreshAccessToken exchanges a long-lived refresh token for a short-lived
// access token with a single POST to the token endpoint. There is no retry.
func RefreshAccessToken(ctx context.Context, client config.ClientConfig, refreshToken string, opts Options) (string, error) {
	opts = opts.withDefaults()
	log := logging.Logger

	cfg := StravaOAuthConfig(client, opts)

	// An already expired token forces the source to refresh
	expired := &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Now().Add(-time.Hour),
	}

	log.Debug().Str("token_url", opts.TokenURL).Msg("refreshing access token")

	token, err := cfg.TokenSource(withHTTPClient(ctx, opts.Timeout), expired).Token()
	if err != nil {
		return "", fmt.Errorf("token refresh failed: %w", providerError(err))
	}

	if !token.Expiry.IsZero() {
		log.Debug().Str("expires_at", token.Expiry.Format(time.RFC3339)).Msg("access token refreshed")
	}

	return token.AccessToken, nil
}

// Authenticate performs the authorization-code flow in the browser and returns
// the tokens. Progress messages are written to out.
func Authenticate(ctx context.Context, client config.ClientConfig, opts Options, out io.Writer) (*TokenResponse, error) {
	opts = opts.withDefaults()

	listener, err := net.Listen("tcp", opts.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("starting callback server: %w", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port

	cfg := StravaOAuthConfig(client, opts)
	cfg.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", port)

	state := uuid.NewString()

	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)

	router := chi.NewRouter()
	server := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	router.Get("/callback", func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if query.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			sendErr(errChan, fmt.Errorf("authorization failed: state mismatch"))
			return
		}

		code := query.Get("code")
		if code == "" {
			errMsg := query.Get("error")
			if errMsg == "" {
				errMsg = "no authorization code received"
			}
			http.Error(w, errMsg, http.StatusBadRequest)
			sendErr(errChan, fmt.Errorf("authorization failed: %s", errMsg))
			return
		}

		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><h1>Authorization successful!</h1><p>You can close this window.</p></body></html>`)
		select {
		case codeChan <- code:
		default:
		}
	})

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			sendErr(errChan, fmt.Errorf("callback server error: %w", err))
		}
	}()
	defer server.Shutdown(context.Background())

	authURL := cfg.AuthCodeURL(state, oauth2.SetAuthURLParam("approval_prompt", "force"))

	fmt.Fprintln(out, "Opening browser for Strava authorization...")
	fmt.Fprintf(out, "If browser doesn't open, visit: %s\n\n", authURL)

	if err := opts.OpenBrowser(authURL); err != nil {
		fmt.Fprintf(out, "Could not open browser automatically: %v\n", err)
	}

	var code string
	select {
	case code = <-codeChan:
	case err := <-errChan:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(loginTimeout):
		return nil, fmt.Errorf("authorization timeout")
	}

	token, err := cfg.Exchange(withHTTPClient(ctx, opts.Timeout), code)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", providerError(err))
	}

	return TokenFromOAuth2(token), nil
}

func sendErr(errChan chan<- error, err error) {
	select {
	case errChan <- err:
	default:
	}
}

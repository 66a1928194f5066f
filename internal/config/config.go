// Package config loads the Strava API secrets the summary needs from the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const envPrefix = "STRAVA_"

// RequiredVariables lists the environment variables LoadCredentials reads.
var RequiredVariables = []string{
	"STRAVA_CLIENT_ID",
	"STRAVA_CLIENT_SECRET",
	"STRAVA_USER_REFRESH_TOKEN",
}

// ErrMissingCredentials indicates at least one required variable is unset or empty
var ErrMissingCredentials = errors.New("missing Strava credentials")

// Error is a configuration error. It always names every required variable so the
// user can fix the environment in one go.
type Error struct {
	Missing []string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("the following environment variables need to be set: %s", strings.Join(RequiredVariables, ", "))
	if len(e.Missing) > 0 {
		msg += fmt.Sprintf(" (missing: %s)", strings.Join(e.Missing, ", "))
	}
	if e.Err != nil && !errors.Is(e.Err, ErrMissingCredentials) {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ClientConfig holds the Strava API application credentials
type ClientConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
}

// Credentials holds the three secrets required to read a user's activities
type Credentials struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RefreshToken string `env:"USER_REFRESH_TOKEN"`
}

// Client returns the application half of the credentials
func (c *Credentials) Client() ClientConfig {
	return ClientConfig{ClientID: c.ClientID, ClientSecret: c.ClientSecret}
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Variables already set in the environment are left untouched and
// files that do not exist are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// LoadCredentials reads the client id, client secret and user refresh token.
// A nil lookuper reads the process environment.
func LoadCredentials(ctx context.Context, lookuper envconfig.Lookuper) (*Credentials, error) {
	var creds Credentials
	if err := process(ctx, &creds, lookuper); err != nil {
		return nil, &Error{Err: err}
	}

	var missing []string
	if creds.ClientID == "" {
		missing = append(missing, "STRAVA_CLIENT_ID")
	}
	if creds.ClientSecret == "" {
		missing = append(missing, "STRAVA_CLIENT_SECRET")
	}
	if creds.RefreshToken == "" {
		missing = append(missing, "STRAVA_USER_REFRESH_TOKEN")
	}
	if len(missing) > 0 {
		return nil, &Error{Missing: missing, Err: ErrMissingCredentials}
	}

	return &creds, nil
}

// LoadClientConfig reads only the client id and secret. The login command uses it
// to obtain a refresh token in the first place.
func LoadClientConfig(ctx context.Context, lookuper envconfig.Lookuper) (*ClientConfig, error) {
	var client ClientConfig
	if err := process(ctx, &client, lookuper); err != nil {
		return nil, &Error{Err: err}
	}

	var missing []string
	if client.ClientID == "" {
		missing = append(missing, "STRAVA_CLIENT_ID")
	}
	if client.ClientSecret == "" {
		missing = append(missing, "STRAVA_CLIENT_SECRET")
	}
	if len(missing) > 0 {
		return nil, &Error{Missing: missing, Err: ErrMissingCredentials}
	}

	return &client, nil
}

func process(ctx context.Context, target any, lookuper envconfig.Lookuper) error {
	if lookuper == nil {
		lookuper = envconfig.OsLookuper()
	}
	return envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   target,
		Lookuper: envconfig.PrefixLookuper(envPrefix, lookuper),
	})
}

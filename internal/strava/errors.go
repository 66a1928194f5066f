package strava

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrRateLimited indicates the API returned a 429 rate limit error
var ErrRateLimited = errors.New("rate limited")

// ProviderError is a non-200 response from a Strava endpoint. Body is the raw
// response body, kept verbatim so the caller sees what Strava said.
type ProviderError struct {
	StatusCode int
	Endpoint   string
	Body       string
}

func (e *ProviderError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("strava %s returned status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("strava %s returned status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Is lets errors.Is(err, ErrRateLimited) match 429 responses
func (e *ProviderError) Is(target error) bool {
	return target == ErrRateLimited && e.StatusCode == http.StatusTooManyRequests
}

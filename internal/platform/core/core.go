// Package core holds what every platform adapter shares: the error types the
// account service maps to HTTP statuses and the REST client construction.
package core

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"trading-journal/internal/api"
	"trading-journal/internal/store"
	"trading-journal/internal/types"
)

var (
	// ErrNotAuthenticated is returned by fetches issued before Authenticate
	ErrNotAuthenticated = errors.New("platform: not authenticated")
	// ErrAuthFailed is returned when the vendor rejects the credentials
	ErrAuthFailed = errors.New("platform: authentication failed")
	// ErrMissingCredentials is returned when a required credential is empty
	ErrMissingCredentials = errors.New("platform: missing credentials")
	// ErrAccountNotFound is returned when the vendor does not list the requested account
	ErrAccountNotFound = errors.New("platform: trading account not found")
)

// Error ties a vendor failure to the platform and operation that produced it
type Error struct {
	Platform types.Platform
	Op       string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", strings.ToLower(string(e.Platform)), e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap returns nil for a nil err. HTTP 401/403 responses are reported as ErrAuthFailed.
func Wrap(p types.Platform, op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return err
	}
	if api.IsStatus(err, http.StatusUnauthorized) || api.IsStatus(err, http.StatusForbidden) {
		err = fmt.Errorf("%w: %w", ErrAuthFailed, err)
	}
	return &Error{Platform: p, Op: op, Err: err}
}

// IsPlatformError reports whether err came from a platform adapter
func IsPlatformError(err error) bool {
	var pe *Error
	return errors.As(err, &pe)
}

// Require fails with ErrMissingCredentials naming the first empty field
func Require(p types.Platform, fields ...string) error {
	for i := 0; i+1 < len(fields); i += 2 {
		if strings.TrimSpace(fields[i+1]) == "" {
			return &Error{Platform: p, Op: "authenticate", Err: fmt.Errorf("%w: %s", ErrMissingCredentials, fields[i])}
		}
	}
	return nil
}

// NewAPIClient builds the REST client for one platform from its settings
func NewAPIClient(cfg store.PlatformConfig, opts ...api.ClientOption) *api.Client {
	base := []api.ClientOption{
		api.WithBaseURL(cfg.BaseURL),
		api.WithTimeout(cfg.Timeout()),
		api.WithRetry(cfg.RetryCount, 500*time.Millisecond, 5*time.Second),
		api.WithRateLimit(cfg.RatePerSecond),
		api.WithLogging(true),
	}
	return api.NewClient(append(base, opts...)...)
}

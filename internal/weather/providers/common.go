package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-history/internal/weather"
)

// HTTPClientConfig bundles the HTTP client and the circuit breaker guarding it.
type HTTPClientConfig struct {
	Client  *http.Client
	Breaker *gobreaker.CircuitBreaker
}

var (
	errRateLimited  = errors.New("rate limited")
	errServerError  = errors.New("server error")
	errUnauthorized = errors.New("api key rejected")
	errCircuitOpen  = errors.New("circuit breaker open")
	errNoHTTPClient = errors.New("http client not configured")
)

// newBreaker returns a circuit breaker that opens after five consecutive failed calls.
func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
}

// doRequest executes req exactly once through the circuit breaker.
//
// Rate limiting and 5xx responses count against the breaker and are reported as
// weather.ErrNotFound so the caller skips the lookup; once the breaker opens every call
// fails with errCircuitOpen. Other 4xx responses mean the provider has nothing for the
// request and are also reported as weather.ErrNotFound, except 401/403 which are fatal.
func doRequest(ctx context.Context, cfg HTTPClientConfig, req *http.Request) (*http.Response, error) {
	if cfg.Client == nil || cfg.Breaker == nil {
		return nil, errNoHTTPClient
	}
	req = req.WithContext(ctx)

	result, err := cfg.Breaker.Execute(func() (interface{}, error) {
		resp, execErr := cfg.Client.Do(req)
		if execErr != nil {
			return nil, execErr
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			return nil, errRateLimited
		}
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			return nil, fmt.Errorf("%w: %d", errServerError, resp.StatusCode)
		}
		return resp, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
	}
	if errors.Is(err, errRateLimited) || errors.Is(err, errServerError) {
		return nil, fmt.Errorf("%w: %w", weather.ErrNotFound, err)
	}
	if err != nil {
		return nil, err
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %d", errUnauthorized, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d", weather.ErrNotFound, resp.StatusCode)
	}
	return resp, nil
}

// Package upstream adapts the backend tournament API and its live
// change notification channel. The aggregator treats these as the
// source of truth when building broadcast payloads.
package upstream

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"resty.dev/v3"

	"github.com/joshcough/letsplayscrabble-sub002/internal/domain/model"
	"github.com/joshcough/letsplayscrabble-sub002/pkg/metrics"
)

// Default client configuration constants.
const (
	defaultRequestTimeout = 10 * time.Second
)

// Client is the backend tournament API consumed by the aggregator.
type Client interface {
	// GetCurrentMatch returns what the admin panel has live for a user,
	// or nil when nothing is live.
	GetCurrentMatch(ctx context.Context, userID int) (*model.CurrentMatch, error)

	// GetTournament returns a full tournament with divisions, players,
	// and games.
	GetTournament(ctx context.Context, userID, tournamentID int) (*model.Tournament, error)
}

// RestClient implements Client against the backend REST API.
type RestClient struct {
	http *resty.Client
}

// RestOption applies a configuration option to the RestClient.
type RestOption func(*RestClient)

// WithAuthToken sets the bearer token sent on every request.
func WithAuthToken(token string) RestOption {
	return func(c *RestClient) {
		if token != "" {
			c.http.SetAuthToken(token)
		}
	}
}

// WithRequestTimeout sets the per-request timeout.
func WithRequestTimeout(timeout time.Duration) RestOption {
	return func(c *RestClient) {
		if timeout > 0 {
			c.http.SetTimeout(timeout)
		}
	}
}

// NewRestClient creates a REST client for the given base URL.
func NewRestClient(baseURL string, opts ...RestOption) *RestClient {
	c := &RestClient{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(defaultRequestTimeout),
	}

	// Apply all options
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Close releases the underlying HTTP client resources.
func (c *RestClient) Close() error {
	return c.http.Close()
}

// GetCurrentMatch fetches the live match for a user. A 404 means
// nothing is live and returns (nil, nil).
func (c *RestClient) GetCurrentMatch(ctx context.Context, userID int) (*model.CurrentMatch, error) {
	start := time.Now()
	var match model.CurrentMatch
	res, err := c.http.R().
		SetContext(ctx).
		SetResult(&match).
		// The backend always speaks JSON; decode the body even when a
		// proxy or misconfigured handler mislabels the content type,
		// so SetResult is never silently skipped.
		SetForceResponseContentType("application/json").
		Get(fmt.Sprintf("/api/users/%d/match/current", userID))
	metrics.RecordUpstreamFetchLatency(float64(time.Since(start).Milliseconds()))

	if err != nil {
		metrics.RecordUpstreamFetch("current_match", "error")
		return nil, fmt.Errorf("%w: current match for user %d: %w", ErrFetchFailed, userID, err)
	}
	if res.StatusCode() == http.StatusNotFound || res.StatusCode() == http.StatusNoContent {
		metrics.RecordUpstreamFetch("current_match", "none")
		return nil, nil
	}
	if res.IsError() {
		metrics.RecordUpstreamFetch("current_match", "error")
		return nil, fmt.Errorf("%w: current match for user %d: status %d", ErrFetchFailed, userID, res.StatusCode())
	}
	metrics.RecordUpstreamFetch("current_match", "ok")
	return &match, nil
}

// GetTournament fetches a full tournament.
func (c *RestClient) GetTournament(ctx context.Context, userID, tournamentID int) (*model.Tournament, error) {
	start := time.Now()
	var t model.Tournament
	res, err := c.http.R().
		SetContext(ctx).
		SetResult(&t).
		SetForceResponseContentType("application/json").
		Get(fmt.Sprintf("/api/users/%d/tournaments/%d", userID, tournamentID))
	metrics.RecordUpstreamFetchLatency(float64(time.Since(start).Milliseconds()))

	if err != nil {
		metrics.RecordUpstreamFetch("tournament", "error")
		return nil, fmt.Errorf("%w: tournament %d for user %d: %w", ErrFetchFailed, tournamentID, userID, err)
	}
	if res.StatusCode() == http.StatusNotFound {
		metrics.RecordUpstreamFetch("tournament", "not_found")
		return nil, fmt.Errorf("%w: tournament %d", ErrNotFound, tournamentID)
	}
	if res.IsError() {
		metrics.RecordUpstreamFetch("tournament", "error")
		return nil, fmt.Errorf("%w: tournament %d for user %d: status %d", ErrFetchFailed, tournamentID, userID, res.StatusCode())
	}
	metrics.RecordUpstreamFetch("tournament", "ok")
	return &t, nil
}

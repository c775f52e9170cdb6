// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Keep fields unexported where possible and use functional options.
// - Provide New(...) initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// BackendURL is the base URL of the tournament REST API.
	BackendURL string `koanf:"backend_url"`

	// BackendToken is the bearer token for the tournament API.
	BackendToken string `koanf:"backend_token"`

	// FeedURL is the websocket URL of the live notification channel.
	// Empty disables live notifications.
	FeedURL string `koanf:"feed_url"`

	// ChannelName scopes the broadcast channel to this application.
	ChannelName string `koanf:"channel_name"`

	// TransportBuffer bounds each transport's delivery buffer.
	TransportBuffer int `koanf:"transport_buffer"`

	// DefaultDimension is the sort dimension used by SSE surfaces that
	// do not request one: standings, average_score, rating_gain, high_score.
	DefaultDimension string `koanf:"default_dimension"`

	// FeedBackoffInitialMS and FeedBackoffMaxMS bound the feed
	// reconnect backoff.
	FeedBackoffInitialMS int `koanf:"feed_backoff_initial_ms"`
	FeedBackoffMaxMS     int `koanf:"feed_backoff_max_ms"`

	// RequestTimeoutMS bounds individual backend API calls.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":9090",
		BackendURL:           "http://localhost:8080",
		FeedURL:              "",
		ChannelName:          "letsplayscrabble",
		TransportBuffer:      64,
		DefaultDimension:     "standings",
		FeedBackoffInitialMS: 1_000,
		FeedBackoffMaxMS:     30_000,
		RequestTimeoutMS:     10_000,
	}
}

package worker

import (
	"github.com/joshcough/letsplayscrabble-sub002/pkg/logger"
)

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithFeed attaches a live notification feed. Without one the
// aggregator only answers subscribe requests.
func WithFeed(feed Feed) Option {
	return func(a *Aggregator) {
		a.feed = feed
	}
}

// WithLogger sets a custom logger for the aggregator.
func WithLogger(log logger.Logger) Option {
	return func(a *Aggregator) {
		if log != nil {
			a.log = log
		}
	}
}

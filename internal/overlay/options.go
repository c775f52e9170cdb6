package overlay

import (
	"github.com/joshcough/letsplayscrabble-sub002/internal/domain/stats"
	"github.com/joshcough/letsplayscrabble-sub002/internal/upstream"
	"github.com/joshcough/letsplayscrabble-sub002/pkg/logger"
)

// Option applies a configuration option to the Consumer.
type Option func(*Consumer)

// WithDimension sets the sort dimension used when ranking accepted
// payloads.
func WithDimension(d stats.Dimension) Option {
	return func(c *Consumer) {
		c.dimension = d
	}
}

// WithUpstreamClient enables a one-shot initial fetch on mount, so the
// overlay has data before the first broadcast arrives.
func WithUpstreamClient(client upstream.Client) Option {
	return func(c *Consumer) {
		c.client = client
	}
}

// WithOnUpdate registers an observer invoked after every view change.
// The observer must not block; it runs on the bus dispatch goroutine.
func WithOnUpdate(fn func(View)) Option {
	return func(c *Consumer) {
		c.onUpdate = fn
	}
}

// WithLogger sets a custom logger for the consumer.
func WithLogger(log logger.Logger) Option {
	return func(c *Consumer) {
		if log != nil {
			c.log = log
		}
	}
}

package bus

import (
	"github.com/joshcough/letsplayscrabble-sub002/pkg/logger"
)

// Option applies a configuration option to the Broker.
type Option func(*Broker)

// WithChannelName sets the broadcast channel name.
func WithChannelName(name string) Option {
	return func(b *Broker) {
		if name != "" {
			b.name = name
		}
	}
}

// WithTransportBuffer sets the per-transport delivery buffer size.
func WithTransportBuffer(size int) Option {
	return func(b *Broker) {
		if size > 0 {
			b.bufferSize = size
		}
	}
}

// WithLogger sets a custom logger for the broker.
func WithLogger(log logger.Logger) Option {
	return func(b *Broker) {
		if log != nil {
			b.log = log
		}
	}
}

package bus

import (
	"context"
	"sync"
	"time"

	"github.com/joshcough/letsplayscrabble-sub002/pkg/logger"
	"github.com/joshcough/letsplayscrabble-sub002/pkg/metrics"
)

// Default broker configuration constants.
const (
	// DefaultChannelName is the application-wide broadcast channel name.
	DefaultChannelName = "letsplayscrabble"

	defaultTransportBuffer = 64
)

// Broker is the in-process fan-out hub all transports attach to. It is
// an explicit, constructor-injected component with no hidden global
// instance; callers own its lifecycle.
type Broker struct {
	name       string
	bufferSize int

	mu         sync.RWMutex
	transports map[*Transport]struct{}
	closed     bool

	log logger.Logger
}

// NewBroker creates a broker with configuration options.
func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		name:       DefaultChannelName,
		bufferSize: defaultTransportBuffer,
		transports: make(map[*Transport]struct{}),
	}

	// Apply all options
	for _, opt := range opts {
		opt(b)
	}

	if b.log == nil {
		b.log = logger.Get().Named("bus")
	}

	return b
}

// Name returns the broadcast channel name the broker is bound to.
func (b *Broker) Name() string {
	return b.name
}

// Open attaches a new transport to the broker. The transport receives
// every message published on the channel, including its own publishes.
func (b *Broker) Open() *Transport {
	t := &Transport{
		broker:   b,
		recv:     make(chan Message, b.bufferSize),
		handlers: make(map[int]Handler),
		done:     make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		// The broker is torn down; hand back an already-closed transport
		// so the caller degrades to "no live updates" instead of failing.
		t.closed = true
		close(t.recv)
		close(t.done)
		b.log.Warn(context.Background(), "open on closed broker", logger.String("channel", b.name))
		return t
	}
	b.transports[t] = struct{}{}
	count := len(b.transports)
	b.mu.Unlock()

	metrics.UpdateTransportsOpen(count)
	go t.pump()
	return t
}

// publish delivers msg to every open transport. Delivery to each
// transport is non-blocking: a transport whose buffer is full has the
// message dropped, bounded by the next full broadcast correcting state.
func (b *Broker) publish(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	metrics.RecordBroadcastPublished(msg.Kind.String())

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for t := range b.transports {
		select {
		case t.recv <- msg:
		default:
			metrics.RecordBroadcastDropped()
			b.log.Warn(context.Background(), "dropping broadcast for slow transport",
				logger.String("kind", msg.Kind.String()),
			)
		}
	}
}

// remove detaches a transport. Called by Transport.Close.
func (b *Broker) remove(t *Transport) {
	b.mu.Lock()
	delete(b.transports, t)
	count := len(b.transports)
	b.mu.Unlock()
	metrics.UpdateTransportsOpen(count)
}

// TransportCount returns the number of open transports.
func (b *Broker) TransportCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.transports)
}

// Close tears down the broker and every transport still attached.
// It is idempotent.
func (b *Broker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	open := make([]*Transport, 0, len(b.transports))
	for t := range b.transports {
		open = append(open, t)
	}
	b.mu.Unlock()

	for _, t := range open {
		t.Close()
	}
	return nil
}

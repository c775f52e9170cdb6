package bus

import (
	"context"
	"sync"

	"github.com/joshcough/letsplayscrabble-sub002/pkg/logger"
)

// Handler consumes a broadcast message. Handlers must not block; long
// work belongs on the handler's own goroutine.
type Handler func(Message)

// Transport is one context's endpoint on the broadcast channel. It is
// owned 1:1 by the context that opened it and must be closed on that
// context's teardown.
type Transport struct {
	broker *Broker
	recv   chan Message

	mu       sync.Mutex
	handlers map[int]Handler
	nextID   int
	closed   bool

	done chan struct{}
}

// Publish places a message on the channel. All open transports receive
// it, this one included; self-delivery is normal, not an error.
// Publishing on a closed transport is a silent no-op so that in-flight
// publishes never raise during teardown.
func (t *Transport) Publish(msg Message) {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return
	}
	t.broker.publish(msg)
}

// OnMessage registers a handler for every inbound message and returns
// an unsubscribe function. The unsubscribe function is idempotent.
func (t *Transport) OnMessage(h Handler) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return func() {}
	}
	t.nextID++
	id := t.nextID
	t.handlers[id] = h
	return func() {
		t.mu.Lock()
		delete(t.handlers, id)
		t.mu.Unlock()
	}
}

// Close detaches the transport from its broker and stops delivery.
// It is idempotent and safe to call at any time.
func (t *Transport) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.handlers = make(map[int]Handler)
	t.mu.Unlock()

	// Detach before closing recv so no publisher can still hold a
	// reference to the channel.
	t.broker.remove(t)
	close(t.recv)
}

// Closed reports whether the transport has been closed.
func (t *Transport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Done is closed once the delivery loop has drained and exited.
func (t *Transport) Done() <-chan struct{} {
	return t.done
}

// HandlerCount returns the number of handlers registered directly on
// the transport.
func (t *Transport) HandlerCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.handlers)
}

// pump delivers inbound messages to registered handlers in publish
// order for this transport.
func (t *Transport) pump() {
	defer close(t.done)
	for msg := range t.recv {
		t.mu.Lock()
		handlers := make([]Handler, 0, len(t.handlers))
		for _, h := range t.handlers {
			handlers = append(handlers, h)
		}
		t.mu.Unlock()

		for _, h := range handlers {
			t.invoke(h, msg)
		}
	}
}

// invoke runs one handler, containing panics so a failing handler
// cannot abort delivery to the others on the same dispatch.
func (t *Transport) invoke(h Handler, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			t.broker.log.Error(context.Background(), "broadcast handler panicked",
				logger.String("kind", msg.Kind.String()),
				logger.Any("panic", r),
			)
		}
	}()
	h(msg)
}

package bus

import (
	"context"
	"reflect"
	"sync"

	"github.com/joshcough/letsplayscrabble-sub002/pkg/logger"
	"github.com/joshcough/letsplayscrabble-sub002/pkg/metrics"
)

// Registry routes inbound messages to per-kind handler sets on top of a
// single Transport. Registering the same handler twice for a kind is a
// single registration; handler identity is the function pointer.
//
// A registry's handlers live exactly as long as the registry: Close
// removes every handler and detaches from the transport, so no handler
// can outlive the context that registered it.
type Registry struct {
	transport *Transport
	detach    func()

	mu       sync.Mutex
	handlers map[Kind]map[uintptr]Handler
	closed   bool

	log logger.Logger
}

// NewRegistry attaches a registry to an open transport.
func NewRegistry(t *Transport) *Registry {
	r := &Registry{
		transport: t,
		handlers:  make(map[Kind]map[uintptr]Handler),
		log:       t.broker.log,
	}
	r.detach = t.OnMessage(r.dispatch)
	return r
}

// On registers a handler for a message kind and returns an unsubscribe
// function. Both On for an existing handler and the returned
// unsubscribe are idempotent.
func (r *Registry) On(kind Kind, h Handler) func() {
	key := reflect.ValueOf(h).Pointer()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return func() {}
	}
	set, ok := r.handlers[kind]
	if !ok {
		set = make(map[uintptr]Handler)
		r.handlers[kind] = set
	}
	if _, dup := set[key]; !dup {
		metrics.IncHandlersRegistered()
	}
	set[key] = h
	return func() { r.Off(kind, h) }
}

// Off removes a handler for a kind. Removing a handler that was never
// registered, or was already removed, is a no-op.
func (r *Registry) Off(kind Kind, h Handler) {
	key := reflect.ValueOf(h).Pointer()

	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.handlers[kind]
	if !ok {
		return
	}
	if _, present := set[key]; present {
		delete(set, key)
		metrics.DecHandlersRegistered()
	}
}

// HandlerCount returns the number of handlers currently registered.
func (r *Registry) HandlerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, set := range r.handlers {
		n += len(set)
	}
	return n
}

// Close removes all handlers and detaches from the transport. It is
// idempotent and does not close the underlying transport.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	for _, set := range r.handlers {
		for range set {
			metrics.DecHandlersRegistered()
		}
	}
	r.handlers = make(map[Kind]map[uintptr]Handler)
	r.mu.Unlock()

	r.detach()
}

// dispatch routes one inbound message to the handler set for its kind.
// A kind with no handlers is dropped silently; many contexts only care
// about a subset of kinds.
func (r *Registry) dispatch(msg Message) {
	// Exhaustive payload check over the closed kind set. A message whose
	// payload does not match its tag never reaches a handler.
	switch msg.Kind {
	case KindAdminPanelUpdate:
		if msg.AdminPanel == nil {
			return
		}
	case KindGamesAdded:
		if msg.GamesAdded == nil {
			return
		}
	case KindTournamentData, KindTournamentDataError:
		if msg.Tournament == nil {
			return
		}
	case KindSubscribe:
		if msg.Subscribe == nil {
			return
		}
	default:
		return
	}

	r.mu.Lock()
	set := r.handlers[msg.Kind]
	handlers := make([]Handler, 0, len(set))
	for _, h := range set {
		handlers = append(handlers, h)
	}
	r.mu.Unlock()

	for _, h := range handlers {
		r.invoke(h, msg)
	}
}

// invoke contains handler panics so one handler cannot abort delivery
// to the rest of the set.
func (r *Registry) invoke(h Handler, msg Message) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error(context.Background(), "registry handler panicked",
				logger.String("kind", msg.Kind.String()),
				logger.Any("panic", rec),
			)
		}
	}()
	h(msg)
}

// Subscribe publishes a subscribe request on the transport,
// fire-and-forget.
func (r *Registry) Subscribe(req SubscribeRequest) {
	r.transport.Publish(Message{Kind: KindSubscribe, Subscribe: &req})
}

// Per-kind convenience wrappers. Each returns an unsubscribe closure so
// a consumer's cleanup path is a single call with no kind-specific
// knowledge.

// OnTournamentData registers a handler for successful tournament data.
func (r *Registry) OnTournamentData(h func(*TournamentDataPayload)) func() {
	return r.On(KindTournamentData, func(msg Message) { h(msg.Tournament) })
}

// OnTournamentDataError registers a handler for tournament data errors.
func (r *Registry) OnTournamentDataError(h func(*TournamentDataPayload)) func() {
	return r.On(KindTournamentDataError, func(msg Message) { h(msg.Tournament) })
}

// OnAdminPanelUpdate registers a handler for live match changes.
func (r *Registry) OnAdminPanelUpdate(h func(*AdminPanelUpdatePayload)) func() {
	return r.On(KindAdminPanelUpdate, func(msg Message) { h(msg.AdminPanel) })
}

// OnGamesAdded registers a handler for new game notifications.
func (r *Registry) OnGamesAdded(h func(*GamesAddedPayload)) func() {
	return r.On(KindGamesAdded, func(msg Message) { h(msg.GamesAdded) })
}

// OnSubscribe registers a handler for subscribe requests. Used by the
// worker aggregator.
func (r *Registry) OnSubscribe(h func(*SubscribeRequest)) func() {
	return r.On(KindSubscribe, func(msg Message) { h(msg.Subscribe) })
}

// Package overlay implements the consumer side of the broadcast
// protocol: subscribe on mount, filter inbound broadcasts for
// relevance, rank accepted payloads, and hold the latest view until
// unmount.
package overlay

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/joshcough/letsplayscrabble-sub002/internal/bus"
	"github.com/joshcough/letsplayscrabble-sub002/internal/domain/model"
	"github.com/joshcough/letsplayscrabble-sub002/internal/domain/stats"
	"github.com/joshcough/letsplayscrabble-sub002/internal/upstream"
	"github.com/joshcough/letsplayscrabble-sub002/pkg/logger"
	"github.com/joshcough/letsplayscrabble-sub002/pkg/metrics"
)

// View is the consumer's current renderable state. A consumer with no
// data yet is Loading, never erroring; an error arriving after data
// keeps the last-known-good data visible alongside the error message.
type View struct {
	Loading      bool                `json:"loading"`
	Tournament   model.Summary       `json:"tournament"`
	DivisionName string              `json:"divisionName,omitempty"`
	Players      []stats.PlayerStats `json:"players,omitempty"`
	Error        string              `json:"error,omitempty"`
}

// Consumer is the pattern every overlay implements. It owns one
// transport for its lifetime; Unmount tears down every handler it
// registered.
type Consumer struct {
	// id distinguishes this consumer in logs; many consumers share one
	// broker and one subscription scope.
	id string

	broker    *bus.Broker
	request   bus.SubscribeRequest
	dimension stats.Dimension
	client    upstream.Client // optional; enables the one-shot initial fetch
	log       logger.Logger

	// Computed once at subscribe time, per the protocol.
	currentMatchMode bool

	transport *bus.Transport
	registry  *bus.Registry

	// onUpdate, when set, observes every view change.
	onUpdate func(View)

	mu      sync.RWMutex
	view    View
	mounted bool
}

// New creates a consumer for the given subscription scope.
func New(broker *bus.Broker, request bus.SubscribeRequest, opts ...Option) *Consumer {
	c := &Consumer{
		id:               uuid.NewString(),
		broker:           broker,
		request:          request,
		dimension:        stats.DimensionStandings,
		currentMatchMode: request.CurrentMatchMode(),
		view:             View{Loading: true},
	}

	// Apply all options
	for _, opt := range opts {
		opt(c)
	}

	if c.log == nil {
		c.log = logger.Get().Named("overlay")
	}

	return c
}

// ID returns the consumer's unique identity.
func (c *Consumer) ID() string {
	return c.id
}

// Mount opens the transport, registers handlers, and publishes the
// subscribe request. When an upstream client is configured it also
// kicks off a one-shot fetch so a freshly mounted overlay is not blank
// before the first broadcast arrives.
func (c *Consumer) Mount(ctx context.Context) error {
	c.mu.Lock()
	if c.mounted {
		c.mu.Unlock()
		return nil
	}
	c.mounted = true
	transport := c.broker.Open()
	registry := bus.NewRegistry(transport)
	c.transport = transport
	c.registry = registry
	c.mu.Unlock()

	registry.OnTournamentData(c.handleData)
	registry.OnTournamentDataError(c.handleError)

	registry.Subscribe(c.request)
	c.log.Debug(ctx, "consumer mounted",
		logger.String("consumer", c.id),
		logger.Int("userID", c.request.UserID),
		logger.Bool("currentMatch", c.currentMatchMode),
	)

	if c.client != nil {
		go c.initialFetch(ctx)
	}
	return nil
}

// Unmount synchronously removes every handler and closes the
// transport. It is idempotent; calling it on an unmounted consumer is
// a no-op.
func (c *Consumer) Unmount() {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return
	}
	c.mounted = false
	registry, transport := c.registry, c.transport
	c.mu.Unlock()

	registry.Close()
	transport.Close()
	c.log.Debug(context.Background(), "consumer unmounted", logger.String("consumer", c.id))
}

// View returns a copy of the current view state.
func (c *Consumer) View() View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v := c.view
	v.Players = append([]stats.PlayerStats(nil), c.view.Players...)
	return v
}

// Relevant is the consumer's acceptance predicate: a current-match
// subscriber takes exactly the current-match broadcasts, a pinned
// subscriber takes exactly the broadcasts for its tournament. There is
// deliberately no division-level check; the worker resolves the
// division server-side and the payload already carries it.
func (c *Consumer) Relevant(p *bus.TournamentDataPayload) bool {
	if c.currentMatchMode {
		return p.IsCurrentMatch
	}
	return c.request.Tournament != nil && c.request.Tournament.TournamentID == p.TournamentID
}

// handleData applies an accepted data broadcast; irrelevant broadcasts
// are dropped silently, never queued.
func (c *Consumer) handleData(p *bus.TournamentDataPayload) {
	if !c.Relevant(p) {
		metrics.RecordRelevanceRejected()
		return
	}
	metrics.RecordRelevanceAccepted()
	if p.Data == nil {
		return
	}
	c.applyData(p.Data)
}

// handleError surfaces an accepted error while keeping last-known-good
// data visible: a transient backend hiccup must not blank a live
// overlay.
func (c *Consumer) handleError(p *bus.TournamentDataPayload) {
	if !c.Relevant(p) {
		metrics.RecordRelevanceRejected()
		return
	}
	metrics.RecordRelevanceAccepted()

	c.mu.Lock()
	c.view.Error = p.Error
	c.view.Loading = false
	c.mu.Unlock()

	c.notify()
}

// applyData ranks the division and replaces the view wholesale.
func (c *Consumer) applyData(data *bus.TournamentData) {
	ranked := stats.Rank(data.Division.Players, data.Division.Games, c.dimension)

	c.mu.Lock()
	c.view = View{
		Loading:      false,
		Tournament:   data.Tournament,
		DivisionName: data.Division.Name,
		Players:      ranked,
	}
	c.mu.Unlock()

	c.notify()
}

// notify hands the updated view to the observer, if any.
func (c *Consumer) notify() {
	if c.onUpdate != nil {
		c.onUpdate(c.View())
	}
}

// initialFetch resolves the subscription scope directly against the
// backend. The result is applied only while the consumer is still
// loading, so a broadcast that raced ahead of the fetch wins.
func (c *Consumer) initialFetch(ctx context.Context) {
	data, err := c.resolve(ctx)
	if err != nil {
		c.log.Warn(ctx, "initial fetch failed, waiting for broadcast", logger.Error(err))
		return
	}
	if data == nil {
		// Current-match mode with nothing live yet.
		return
	}

	c.mu.RLock()
	loading := c.view.Loading
	c.mu.RUnlock()
	if loading {
		c.applyData(data)
	}
}

// resolve fetches the tournament view for this consumer's scope.
func (c *Consumer) resolve(ctx context.Context) (*bus.TournamentData, error) {
	divisionName := ""
	tournamentID := 0

	if c.currentMatchMode {
		match, err := c.client.GetCurrentMatch(ctx, c.request.UserID)
		if err != nil {
			return nil, err
		}
		if match == nil {
			return nil, nil
		}
		tournamentID = match.TournamentID
		divisionName = match.DivisionName
	} else {
		tournamentID = c.request.Tournament.TournamentID
		if c.request.Tournament.Division != nil {
			divisionName = c.request.Tournament.Division.Name
		}
	}

	t, err := c.client.GetTournament(ctx, c.request.UserID, tournamentID)
	if err != nil {
		return nil, err
	}
	div := t.Division(divisionName)
	if div == nil {
		return nil, ErrNoDivision
	}
	return &bus.TournamentData{Tournament: t.Summary(), Division: *div}, nil
}

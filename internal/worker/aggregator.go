// Package worker implements the aggregator: the single context trusted
// to hold the live backend connection. It answers subscribe requests
// with tournament data broadcasts and republishes proactively whenever
// the backend reports a change.
//
// Multiple aggregator instances may coexist. All publishing is
// idempotent broadcast and consumers take the latest matching payload,
// so duplicate aggregators degrade to duplicate traffic, never to
// inconsistent state.
package worker

import (
	"context"
	"sync"

	"github.com/joshcough/letsplayscrabble-sub002/internal/bus"
	"github.com/joshcough/letsplayscrabble-sub002/internal/upstream"
	"github.com/joshcough/letsplayscrabble-sub002/pkg/logger"
	"github.com/joshcough/letsplayscrabble-sub002/pkg/metrics"
)

// scopeKey identifies a tracked subscription scope for proactive
// republishing. Identical subscribe requests collapse to one scope.
type scopeKey struct {
	userID       int
	currentMatch bool
	tournamentID int
	division     string
}

func keyFor(req *bus.SubscribeRequest) scopeKey {
	k := scopeKey{userID: req.UserID, currentMatch: req.CurrentMatchMode()}
	if req.Tournament != nil {
		k.tournamentID = req.Tournament.TournamentID
		if req.Tournament.Division != nil {
			k.division = req.Tournament.Division.Name
		}
	}
	return k
}

// Feed abstracts the live notification channel the aggregator consumes.
// *upstream.Feed is the production implementation.
type Feed interface {
	// Run reads until ctx is canceled, closing Notifications on exit.
	Run(ctx context.Context)

	// Notifications returns the receive channel.
	Notifications() <-chan upstream.Notification
}

// Aggregator owns the upstream connection and the publishing side of
// the broadcast protocol.
type Aggregator struct {
	broker *bus.Broker
	client upstream.Client
	feed   Feed // optional; nil disables live notifications
	log    logger.Logger

	transport *bus.Transport
	registry  *bus.Registry

	mu      sync.Mutex
	scopes  map[scopeKey]bus.SubscribeRequest
	started bool

	wg sync.WaitGroup
}

// New constructs an aggregator.
func New(broker *bus.Broker, client upstream.Client, opts ...Option) *Aggregator {
	a := &Aggregator{
		broker: broker,
		client: client,
		scopes: make(map[scopeKey]bus.SubscribeRequest),
	}

	// Apply all options
	for _, opt := range opts {
		opt(a)
	}

	if a.log == nil {
		a.log = logger.Get().Named("aggregator")
	}

	return a
}

// Start attaches the aggregator to the bus and, when a feed is
// configured, begins consuming live notifications. It returns
// immediately; work happens on the bus dispatch and feed goroutines.
func (a *Aggregator) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return nil
	}
	a.started = true
	transport := a.broker.Open()
	registry := bus.NewRegistry(transport)
	a.transport = transport
	a.registry = registry
	a.mu.Unlock()

	registry.OnSubscribe(func(req *bus.SubscribeRequest) {
		// Resolve off the dispatch goroutine; handlers must not block.
		r := *req
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.handleSubscribe(ctx, &r)
		}()
	})

	if a.feed != nil {
		a.wg.Add(2)
		go func() {
			defer a.wg.Done()
			a.feed.Run(ctx)
		}()
		go func() {
			defer a.wg.Done()
			a.consumeFeed(ctx)
		}()
	}

	a.log.Info(ctx, "aggregator started")
	return nil
}

// Stop detaches from the bus and waits for in-flight resolutions.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	if !a.started {
		a.mu.Unlock()
		return
	}
	a.started = false
	registry, transport := a.registry, a.transport
	a.mu.Unlock()

	registry.Close()
	transport.Close()
	a.wg.Wait()
	a.log.Info(context.Background(), "aggregator stopped")
}

// handleSubscribe validates, tracks, and answers one subscribe request.
func (a *Aggregator) handleSubscribe(ctx context.Context, req *bus.SubscribeRequest) {
	metrics.RecordSubscribeRequest()

	if !req.Valid() {
		// There is no reply channel to a request we cannot identify the
		// requester of; log and ignore rather than broadcasting an error.
		metrics.RecordInvalidSubscribe()
		a.log.Warn(ctx, "ignoring subscribe request without user id")
		return
	}

	a.track(req)
	a.resolveAndPublish(ctx, req)
}

// track records the scope for proactive republishing.
func (a *Aggregator) track(req *bus.SubscribeRequest) {
	a.mu.Lock()
	a.scopes[keyFor(req)] = *req
	n := len(a.scopes)
	a.mu.Unlock()
	metrics.UpdateScopesTracked(n)
}

// consumeFeed reacts to backend change notifications: steady-state
// updates are push from the consumer's perspective, subscribe-then-wait
// is only the startup path.
func (a *Aggregator) consumeFeed(ctx context.Context) {
	for n := range a.feed.Notifications() {
		switch n.Kind {
		case upstream.NotificationGamesAdded:
			a.transport.Publish(bus.Message{
				Kind: bus.KindGamesAdded,
				GamesAdded: &bus.GamesAddedPayload{
					UserID:       n.UserID,
					TournamentID: n.TournamentID,
					DivisionName: n.DivisionName,
					GameCount:    n.GameCount,
				},
			})
			a.republish(ctx, n.UserID)
		case upstream.NotificationCurrentMatchChanged:
			a.transport.Publish(bus.Message{
				Kind:       bus.KindAdminPanelUpdate,
				AdminPanel: &bus.AdminPanelUpdatePayload{UserID: n.UserID, Match: n.Match},
			})
			a.republish(ctx, n.UserID)
		default:
			a.log.Warn(ctx, "unknown feed notification", logger.String("kind", string(n.Kind)))
		}
	}
}

// republish re-resolves every tracked scope for a user and broadcasts
// fresh data. A zero userID republishes everything.
func (a *Aggregator) republish(ctx context.Context, userID int) {
	a.mu.Lock()
	requests := make([]bus.SubscribeRequest, 0, len(a.scopes))
	for _, req := range a.scopes {
		if userID == 0 || req.UserID == userID {
			requests = append(requests, req)
		}
	}
	a.mu.Unlock()

	for i := range requests {
		metrics.RecordRepublish()
		a.resolveAndPublish(ctx, &requests[i])
	}
}

// resolveAndPublish fetches the requested scope and broadcasts the
// result. Fetch failures become error broadcasts carrying a
// human-readable message; nothing is ever thrown across the bus.
func (a *Aggregator) resolveAndPublish(ctx context.Context, req *bus.SubscribeRequest) {
	isCurrentMatch := req.CurrentMatchMode()
	tournamentID := 0
	divisionName := ""

	if isCurrentMatch {
		match, err := a.client.GetCurrentMatch(ctx, req.UserID)
		if err != nil {
			a.publishError(req, tournamentID, err.Error())
			return
		}
		if match == nil {
			a.publishError(req, tournamentID, "no live match selected")
			return
		}
		tournamentID = match.TournamentID
		divisionName = match.DivisionName
	} else {
		tournamentID = req.Tournament.TournamentID
		if req.Tournament.Division != nil {
			divisionName = req.Tournament.Division.Name
		}
	}

	t, err := a.client.GetTournament(ctx, req.UserID, tournamentID)
	if err != nil {
		a.publishError(req, tournamentID, err.Error())
		return
	}
	div := t.Division(divisionName)
	if div == nil {
		a.publishError(req, tournamentID, "tournament has no division "+divisionName)
		return
	}

	a.transport.Publish(bus.Message{
		Kind: bus.KindTournamentData,
		Tournament: &bus.TournamentDataPayload{
			UserID:         req.UserID,
			TournamentID:   tournamentID,
			IsCurrentMatch: isCurrentMatch,
			Data:           &bus.TournamentData{Tournament: t.Summary(), Division: *div},
		},
	})
}

func (a *Aggregator) publishError(req *bus.SubscribeRequest, tournamentID int, msg string) {
	metrics.RecordErrorBroadcast()
	a.log.Warn(context.Background(), "publishing tournament data error",
		logger.Int("userID", req.UserID),
		logger.Int("tournamentID", tournamentID),
		logger.String("error", msg),
	)
	a.transport.Publish(bus.Message{
		Kind: bus.KindTournamentDataError,
		Tournament: &bus.TournamentDataPayload{
			UserID:         req.UserID,
			TournamentID:   tournamentID,
			IsCurrentMatch: req.CurrentMatchMode(),
			Error:          msg,
		},
	})
}

// Stats returns aggregator statistics for monitoring.
func (a *Aggregator) Stats() map[string]interface{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	return map[string]interface{}{
		"started":        a.started,
		"scopesTracked":  len(a.scopes),
		"transportsOpen": a.broker.TransportCount(),
	}
}

// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/joshcough/letsplayscrabble-sub002/internal/bus"
	"github.com/joshcough/letsplayscrabble-sub002/internal/domain/stats"
	"github.com/joshcough/letsplayscrabble-sub002/internal/overlay"
	"github.com/joshcough/letsplayscrabble-sub002/pkg/metrics"
)

// SSE stream configuration constants.
const (
	sseHeartbeatInterval = 15 * time.Second
	sseUpdateBuffer      = 8
)

// SSEHandler bridges external rendering surfaces onto the in-process
// broadcast bus. Each connected client gets its own overlay consumer;
// closing the HTTP stream unmounts the consumer, so no handler outlives
// its client.
type SSEHandler struct {
	deps             Dependencies
	defaultDimension string
}

// NewSSEHandler creates a new SSE handler.
func NewSSEHandler(deps Dependencies, defaultDimension string) *SSEHandler {
	return &SSEHandler{deps: deps, defaultDimension: defaultDimension}
}

// HandleEvents handles GET /overlay/events requests.
//
// Query parameters: user_id (required), tournament_id and division
// (optional, pin the stream to a fixed tournament), dimension
// (optional sort dimension).
func (h *SSEHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	const op = "api.overlay_events"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", NewKind(op, ErrStreamingUnsupported))
		return
	}

	req, dimension, err := h.parseScope(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	updates := make(chan overlay.View, sseUpdateBuffer)
	opts := []overlay.Option{
		overlay.WithDimension(dimension),
		overlay.WithOnUpdate(func(v overlay.View) {
			select {
			case updates <- v:
			default:
				// The next update supersedes this one anyway.
			}
		}),
	}
	if client := h.deps.UpstreamClient(); client != nil {
		opts = append(opts, overlay.WithUpstreamClient(client))
	}

	consumer := overlay.New(h.deps.Broker(), req, opts...)
	if err := consumer.Mount(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "mount_failed", WrapKind(op, ErrMountFailed, err))
		return
	}
	defer consumer.Unmount()

	metrics.IncSSEClients()
	defer metrics.DecSSEClients()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Send the current view immediately so the surface is never blank.
	h.send(w, flusher, consumer.View())

	heartbeat := time.NewTicker(sseHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case v := <-updates:
			h.send(w, flusher, v)
		case <-heartbeat.C:
			_, _ = fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}

// parseScope builds the subscribe request from query parameters.
func (h *SSEHandler) parseScope(r *http.Request) (bus.SubscribeRequest, stats.Dimension, error) {
	q := r.URL.Query()

	userID, err := strconv.Atoi(q.Get("user_id"))
	if err != nil || userID <= 0 {
		return bus.SubscribeRequest{}, 0, fmt.Errorf("missing or invalid user_id")
	}
	req := bus.SubscribeRequest{UserID: userID}

	if raw := q.Get("tournament_id"); raw != "" {
		tournamentID, err := strconv.Atoi(raw)
		if err != nil || tournamentID <= 0 {
			return bus.SubscribeRequest{}, 0, fmt.Errorf("invalid tournament_id")
		}
		scope := &bus.TournamentScope{TournamentID: tournamentID}
		if div := q.Get("division"); div != "" {
			scope.Division = &bus.DivisionScope{Name: div}
		}
		req.Tournament = scope
	}

	name := q.Get("dimension")
	if name == "" {
		name = h.defaultDimension
	}
	dimension, err := stats.ParseDimension(name)
	if err != nil {
		return bus.SubscribeRequest{}, 0, fmt.Errorf("invalid dimension %q", name)
	}
	return req, dimension, nil
}

func (h *SSEHandler) send(w http.ResponseWriter, flusher http.Flusher, v overlay.View) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}

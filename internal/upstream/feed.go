package upstream

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/joshcough/letsplayscrabble-sub002/internal/domain/model"
	"github.com/joshcough/letsplayscrabble-sub002/pkg/logger"
	"github.com/joshcough/letsplayscrabble-sub002/pkg/metrics"
)

// Default feed configuration constants.
const (
	defaultFeedBuffer       = 32
	defaultInitialBackoff   = time.Second
	defaultMaxBackoff       = 30 * time.Second
	defaultHandshakeTimeout = 10 * time.Second
)

// NotificationKind labels a live change notification.
type NotificationKind string

const (
	// NotificationGamesAdded means new game results were recorded.
	NotificationGamesAdded NotificationKind = "games_added"
	// NotificationCurrentMatchChanged means the admin changed the live match.
	NotificationCurrentMatchChanged NotificationKind = "current_match_changed"
)

// Notification is one event on the live change channel.
type Notification struct {
	Kind         NotificationKind    `json:"kind"`
	UserID       int                 `json:"userId"`
	TournamentID int                 `json:"tournamentId,omitempty"`
	DivisionName string              `json:"divisionName,omitempty"`
	GameCount    int                 `json:"gameCount,omitempty"`
	Match        *model.CurrentMatch `json:"match,omitempty"`
}

// Feed maintains a websocket connection to the backend's notification
// endpoint and delivers decoded notifications on a channel. Connection
// loss is handled with exponential backoff; the channel only closes
// when the feed's context is canceled.
type Feed struct {
	url            string
	buffer         int
	initialBackoff time.Duration
	maxBackoff     time.Duration

	ch  chan Notification
	log logger.Logger
}

// FeedOption applies a configuration option to the Feed.
type FeedOption func(*Feed)

// WithFeedBuffer sets the notification channel buffer size.
func WithFeedBuffer(size int) FeedOption {
	return func(f *Feed) {
		if size > 0 {
			f.buffer = size
		}
	}
}

// WithFeedBackoff sets the reconnect backoff bounds.
func WithFeedBackoff(initial, maxInterval time.Duration) FeedOption {
	return func(f *Feed) {
		if initial > 0 && maxInterval >= initial {
			f.initialBackoff = initial
			f.maxBackoff = maxInterval
		}
	}
}

// WithFeedLogger sets a custom logger for the feed.
func WithFeedLogger(log logger.Logger) FeedOption {
	return func(f *Feed) {
		if log != nil {
			f.log = log
		}
	}
}

// NewFeed creates a feed for the given websocket URL.
func NewFeed(url string, opts ...FeedOption) *Feed {
	f := &Feed{
		url:            url,
		buffer:         defaultFeedBuffer,
		initialBackoff: defaultInitialBackoff,
		maxBackoff:     defaultMaxBackoff,
	}

	// Apply all options
	for _, opt := range opts {
		opt(f)
	}

	if f.log == nil {
		f.log = logger.Get().Named("feed")
	}
	f.ch = make(chan Notification, f.buffer)
	return f
}

// Notifications returns the receive channel. It is closed when Run
// exits.
func (f *Feed) Notifications() <-chan Notification {
	return f.ch
}

// Run connects and reads until ctx is canceled, reconnecting with
// exponential backoff on any connection failure.
func (f *Feed) Run(ctx context.Context) {
	defer close(f.ch)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = f.initialBackoff
	bo.MaxInterval = f.maxBackoff
	bo.MaxElapsedTime = 0 // retry forever; the feed owns no data

	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := f.dial(ctx)
		if err != nil {
			metrics.RecordFeedReconnect()
			f.log.Warn(ctx, "feed dial failed", logger.String("url", f.url), logger.Error(err))
			if !f.wait(ctx, bo.NextBackOff()) {
				return
			}
			continue
		}

		bo.Reset()
		f.log.Info(ctx, "feed connected", logger.String("url", f.url))
		f.read(ctx, conn)

		// Read loop returned: either the context is done or the
		// connection dropped and we reconnect.
		_ = conn.Close()
	}
}

func (f *Feed) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: defaultHandshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, f.url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// read decodes notifications until the connection drops or ctx is done.
func (f *Feed) read(ctx context.Context, conn *websocket.Conn) {
	// Unblock ReadJSON when the context is canceled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		var n Notification
		if err := conn.ReadJSON(&n); err != nil {
			if ctx.Err() == nil {
				f.log.Warn(ctx, "feed read failed, reconnecting", logger.Error(err))
			}
			return
		}
		metrics.RecordFeedNotification(string(n.Kind))

		select {
		case f.ch <- n:
		default:
			// The aggregator re-resolves full state on every
			// notification, so dropping under backpressure only delays
			// convergence by one notification.
			f.log.Warn(ctx, "dropping notification, consumer slow", logger.String("kind", string(n.Kind)))
		}
	}
}

// wait sleeps for d or until ctx is done, returning false on cancel.
func (f *Feed) wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

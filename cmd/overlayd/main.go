// Command overlayd runs the worker aggregator: it owns the live
// backend connection, answers overlay subscribe requests over the
// in-process broadcast bus, and bridges external rendering surfaces in
// via SSE.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/joshcough/letsplayscrabble-sub002/internal/adapters/http/api"
	"github.com/joshcough/letsplayscrabble-sub002/internal/bus"
	"github.com/joshcough/letsplayscrabble-sub002/internal/config"
	"github.com/joshcough/letsplayscrabble-sub002/internal/upstream"
	"github.com/joshcough/letsplayscrabble-sub002/internal/worker"
	"github.com/joshcough/letsplayscrabble-sub002/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 0 // SSE streams are long-lived
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// deps bundles the handler dependencies for the API layer.
type deps struct {
	broker *bus.Broker
	client upstream.Client
}

func (d *deps) Broker() *bus.Broker             { return d.broker }
func (d *deps) UpstreamClient() upstream.Client { return d.client }

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	broker := bus.NewBroker(
		bus.WithChannelName(cfg.ChannelName),
		bus.WithTransportBuffer(cfg.TransportBuffer),
	)
	defer func() { _ = broker.Close() }()

	client := upstream.NewRestClient(cfg.BackendURL,
		upstream.WithAuthToken(cfg.BackendToken),
		upstream.WithRequestTimeout(time.Duration(cfg.RequestTimeoutMS)*time.Millisecond),
	)
	defer func() { _ = client.Close() }()

	aggregatorOpts := []worker.Option{}
	if cfg.FeedURL != "" {
		feed := upstream.NewFeed(cfg.FeedURL,
			upstream.WithFeedBackoff(
				time.Duration(cfg.FeedBackoffInitialMS)*time.Millisecond,
				time.Duration(cfg.FeedBackoffMaxMS)*time.Millisecond,
			),
		)
		aggregatorOpts = append(aggregatorOpts, worker.WithFeed(feed))
	} else {
		log.Warn(ctx, "no feed_url configured; running without live notifications")
	}

	aggregator := worker.New(broker, client, aggregatorOpts...)
	if err := aggregator.Start(ctx); err != nil {
		log.Error(ctx, "failed to start aggregator", logger.Error(err))
		return
	}
	defer aggregator.Stop()

	mux := http.NewServeMux()
	server := api.NewServer(&deps{broker: broker, client: client}, aggregator, cfg.DefaultDimension)
	server.Register(mux)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "http server listening", logger.String("addr", cfg.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "http server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(context.Background(), "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn(shutdownCtx, "http shutdown incomplete", logger.Error(err))
	}
}

// Command simbackend runs a deterministic fake tournament backend,
// speaking the same REST and websocket contract the real service does.
// Point overlayd's backend_url and feed_url at it to develop overlays
// locally.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joshcough/letsplayscrabble-sub002/internal/domain/model"
	"github.com/joshcough/letsplayscrabble-sub002/internal/sim"
	"github.com/joshcough/letsplayscrabble-sub002/pkg/logger"
)

const readHeaderTimeout = 5 * time.Second

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	userID := flag.Int("user", 1, "user id the fixtures belong to")
	seed := flag.Int64("seed", 42, "generator seed")
	players := flag.Int("players", 16, "players per tournament")
	rounds := flag.Int("rounds", 3, "initial completed rounds")
	tick := flag.Duration("tick", 20*time.Second, "interval between simulated new rounds; 0 disables")
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gen := sim.NewGenerator(*seed)
	server := sim.NewServer(gen, *userID)

	tournament := gen.Tournament(1, *players, *rounds)
	server.AddTournament(tournament)
	server.SetCurrentMatch(&model.CurrentMatch{
		TournamentID: tournament.ID,
		DivisionName: tournament.Divisions[0].Name,
		Round:        *rounds,
	})

	if *tick > 0 {
		go func() {
			ticker := time.NewTicker(*tick)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					server.AddRound(tournament.ID)
					log.Info(ctx, "simulated round added", logger.Int("tournamentID", tournament.ID))
				}
			}
		}()
	}

	mux := http.NewServeMux()
	server.Register(mux)

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "sim backend listening", logger.String("addr", *addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "sim backend failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
}

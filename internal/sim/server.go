package sim

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/joshcough/letsplayscrabble-sub002/internal/domain/model"
	"github.com/joshcough/letsplayscrabble-sub002/internal/upstream"
	"github.com/joshcough/letsplayscrabble-sub002/pkg/logger"
)

// Server is a mock upstream: the tournament REST API plus the live
// notification websocket, backed by generated fixtures.
type Server struct {
	userID int
	gen    *Generator
	log    logger.Logger

	upgrader websocket.Upgrader

	mu          sync.Mutex
	tournaments map[int]*model.Tournament
	current     *model.CurrentMatch
	clients     map[*websocket.Conn]struct{}
}

// NewServer creates a mock upstream for one user.
func NewServer(gen *Generator, userID int) *Server {
	return &Server{
		userID:      userID,
		gen:         gen,
		log:         logger.Get().Named("sim"),
		tournaments: make(map[int]*model.Tournament),
		clients:     make(map[*websocket.Conn]struct{}),
	}
}

// Register attaches the upstream API routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/users/{userID}/match/current", s.handleCurrentMatch)
	mux.HandleFunc("GET /api/users/{userID}/tournaments/{tournamentID}", s.handleTournament)
	mux.HandleFunc("/ws", s.handleWS)
}

// AddTournament seeds a tournament into the mock backend.
func (s *Server) AddTournament(t *model.Tournament) {
	s.mu.Lock()
	s.tournaments[t.ID] = t
	s.mu.Unlock()
}

// SetCurrentMatch changes the live match and notifies feed clients.
func (s *Server) SetCurrentMatch(m *model.CurrentMatch) {
	s.mu.Lock()
	s.current = m
	s.mu.Unlock()

	s.broadcast(upstream.Notification{
		Kind:   upstream.NotificationCurrentMatchChanged,
		UserID: s.userID,
		Match:  m,
	})
}

// AddRound appends one generated round of games to a tournament's
// first division and notifies feed clients.
func (s *Server) AddRound(tournamentID int) {
	s.mu.Lock()
	t, ok := s.tournaments[tournamentID]
	if !ok || len(t.Divisions) == 0 {
		s.mu.Unlock()
		return
	}
	div := &t.Divisions[0]
	playerCount := 0
	for _, p := range div.Players {
		if p != nil {
			playerCount++
		}
	}
	round := 0
	for _, g := range div.Games {
		if g.Round > round {
			round = g.Round
		}
	}
	games := s.gen.round(round+1, playerCount)
	div.Games = append(div.Games, games...)
	divisionName := div.Name
	s.mu.Unlock()

	s.broadcast(upstream.Notification{
		Kind:         upstream.NotificationGamesAdded,
		UserID:       s.userID,
		TournamentID: tournamentID,
		DivisionName: divisionName,
		GameCount:    len(games),
	})
}

func (s *Server) handleCurrentMatch(w http.ResponseWriter, r *http.Request) {
	if !s.checkUser(w, r) {
		return
	}
	s.mu.Lock()
	current := s.current
	s.mu.Unlock()

	if current == nil {
		http.NotFound(w, r)
		return
	}
	s.writeJSON(w, current)
}

func (s *Server) handleTournament(w http.ResponseWriter, r *http.Request) {
	if !s.checkUser(w, r) {
		return
	}
	tournamentID, err := strconv.Atoi(r.PathValue("tournamentID"))
	if err != nil {
		http.Error(w, "invalid tournament id", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	t, ok := s.tournaments[tournamentID]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.writeJSON(w, t)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}

	s.mu.Lock()
	s.clients[conn] = struct{}{}
	s.mu.Unlock()

	// Read loop only to detect the client going away.
	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.clients, conn)
			s.mu.Unlock()
			_ = conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// broadcast pushes a notification to every connected feed client.
func (s *Server) broadcast(n upstream.Notification) {
	data, err := json.Marshal(n)
	if err != nil {
		return
	}

	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for c := range s.clients {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
			s.log.Warn(context.Background(), "notification write failed", logger.Error(err))
		}
	}
}

func (s *Server) checkUser(w http.ResponseWriter, r *http.Request) bool {
	userID, err := strconv.Atoi(r.PathValue("userID"))
	if err != nil || userID != s.userID {
		http.NotFound(w, r)
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(v)
}

// Package sim provides a deterministic fake backend for developing and
// testing overlays without the real tournament service: a tournament
// generator plus an HTTP/websocket server speaking the upstream
// contract.
package sim

import (
	"fmt"
	"math/rand"

	"github.com/joshcough/letsplayscrabble-sub002/internal/domain/model"
)

// Generation constants.
const (
	baseRating    = 1500
	ratingSpread  = 600
	minGameScore  = 250
	gameScoreSpan = 300
	maxRatingStep = 24
)

// Generator produces deterministic fake tournaments from a seed.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a generator with a fixed seed so repeated runs
// produce identical tournaments.
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))} //nolint:gosec // deterministic seed for reproducible fixtures
}

// Tournament builds a tournament with one division of playerCount
// players and rounds completed rounds of games.
func (g *Generator) Tournament(id, playerCount, rounds int) *model.Tournament {
	division := g.division("A", playerCount, rounds)
	return &model.Tournament{
		ID:        id,
		Name:      fmt.Sprintf("Simulated Open %d", id),
		Lexicon:   "NWL23",
		DataURL:   fmt.Sprintf("https://example.invalid/t/%d", id),
		PhotoBase: fmt.Sprintf("https://example.invalid/t/%d/photos/", id),
		Theme:     "classic",
		Divisions: []model.Division{division},
	}
}

// division builds a roster and a complete round-robin-ish game history.
// The first roster slot is a nil placeholder, matching the historical
// source format overlays must tolerate.
func (g *Generator) division(name string, playerCount, rounds int) model.Division {
	players := make([]*model.Player, 0, playerCount+1)
	players = append(players, nil)
	for i := 1; i <= playerCount; i++ {
		players = append(players, g.player(i, rounds))
	}

	games := make([]model.GameResult, 0, rounds*playerCount/2)
	for round := 1; round <= rounds; round++ {
		games = append(games, g.round(round, playerCount)...)
	}

	return model.Division{Name: name, Players: players, Games: games}
}

// player builds one roster entry with a random-walk rating history.
func (g *Generator) player(id, rounds int) *model.Player {
	ratings := make([]int, 0, rounds+1)
	rating := baseRating + g.rng.Intn(ratingSpread)
	ratings = append(ratings, rating)
	for r := 0; r < rounds; r++ {
		rating += g.rng.Intn(2*maxRatingStep+1) - maxRatingStep
		ratings = append(ratings, rating)
	}
	return &model.Player{
		ID:      id,
		Name:    fmt.Sprintf("Player %d", id),
		Ratings: ratings,
		Photo:   fmt.Sprintf("p%d.jpg", id),
	}
}

// round pairs adjacent players and rolls scores for one round. An odd
// last player sits out.
func (g *Generator) round(round, playerCount int) []model.GameResult {
	games := make([]model.GameResult, 0, playerCount/2)
	for a := 1; a+1 <= playerCount; a += 2 {
		games = append(games, model.GameResult{
			Round:     round,
			PlayerIDs: [2]int{a, a + 1},
			Scores:    [2]int{g.score(), g.score()},
		})
	}
	return games
}

func (g *Generator) score() int {
	return minGameScore + g.rng.Intn(gameScoreSpan)
}

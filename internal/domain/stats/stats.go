// Package stats computes deterministically ranked player statistics
// from raw game results. The computation is pure: (players, games,
// dimension) is the sole input, and a fresh result is produced on every
// call rather than cached.
package stats

import (
	"sort"
	"time"

	"github.com/joshcough/letsplayscrabble-sub002/internal/domain/model"
	"github.com/joshcough/letsplayscrabble-sub002/pkg/metrics"
)

// Dimension selects the primary sort key for a ranking computation.
type Dimension int

const (
	// DimensionStandings ranks by record: wins desc, losses asc, spread desc.
	DimensionStandings Dimension = iota
	// DimensionAverageScore ranks by mean score per game, desc.
	DimensionAverageScore
	// DimensionRatingGain ranks by rating change since the tournament start, desc.
	DimensionRatingGain
	// DimensionHighScore ranks by highest single-game score, desc.
	DimensionHighScore
)

// String returns the configuration name of the dimension.
func (d Dimension) String() string {
	switch d {
	case DimensionStandings:
		return "standings"
	case DimensionAverageScore:
		return "average_score"
	case DimensionRatingGain:
		return "rating_gain"
	case DimensionHighScore:
		return "high_score"
	default:
		return "unknown"
	}
}

// ParseDimension parses a configuration name into a Dimension.
func ParseDimension(s string) (Dimension, error) {
	switch s {
	case "", "standings":
		return DimensionStandings, nil
	case "average_score":
		return DimensionAverageScore, nil
	case "rating_gain":
		return DimensionRatingGain, nil
	case "high_score":
		return DimensionHighScore, nil
	default:
		return DimensionStandings, ErrUnknownDimension
	}
}

// PlayerStats is a derived, never-persisted leaderboard row.
type PlayerStats struct {
	PlayerID int    `json:"playerId"`
	Name     string `json:"name"`

	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Ties   int `json:"ties"`
	Spread int `json:"spread"`

	GamesPlayed          int     `json:"gamesPlayed"`
	AverageScore         float64 `json:"averageScore"`
	AverageOpponentScore float64 `json:"averageOpponentScore"`
	HighScore            int     `json:"highScore"`

	InitialRating int `json:"initialRating"`
	CurrentRating int `json:"currentRating"`
	RatingDiff    int `json:"ratingDiff"`

	Photo string `json:"photo,omitempty"`

	// Seed is the 1-based roster position; Rank is assigned after sorting.
	Seed        int    `json:"seed"`
	SeedOrdinal string `json:"seedOrdinal"`
	Rank        int    `json:"rank"`
	RankOrdinal string `json:"rankOrdinal"`
}

// Rank converts a division roster and its game results into a totally
// ordered leaderboard for the requested dimension. Ranks are always a
// permutation of 1..n; no rank is ever shared, even when the underlying
// sort key ties. Nil roster placeholders are skipped, never ranked.
func Rank(players []*model.Player, games []model.GameResult, dimension Dimension) []PlayerStats {
	start := time.Now()
	defer func() {
		metrics.RecordRankComputeLatency(float64(time.Since(start).Milliseconds()))
	}()

	ranked := aggregate(players, games)
	sortByDimension(ranked, dimension)

	for i := range ranked {
		ranked[i].Rank = i + 1
		ranked[i].RankOrdinal = Ordinal(i + 1)
	}

	metrics.UpdatePlayersRanked(len(ranked))
	return ranked
}

// aggregate derives raw per-player aggregates from the game results.
// A player with zero games yields all-zero aggregates.
func aggregate(players []*model.Player, games []model.GameResult) []PlayerStats {
	out := make([]PlayerStats, 0, len(players))
	seed := 0
	for _, p := range players {
		if p == nil {
			// Roster placeholder slot.
			continue
		}
		seed++
		ps := PlayerStats{
			PlayerID:      p.ID,
			Name:          p.Name,
			Photo:         p.Photo,
			InitialRating: p.InitialRating(),
			CurrentRating: p.CurrentRating(),
			Seed:          seed,
			SeedOrdinal:   Ordinal(seed),
		}
		ps.RatingDiff = ps.CurrentRating - ps.InitialRating

		var ownTotal, oppTotal int
		for _, g := range games {
			own, opp, ok := sides(&g, p.ID)
			if !ok {
				continue
			}
			ps.GamesPlayed++
			ownTotal += own
			oppTotal += opp
			ps.Spread += own - opp
			switch {
			case own > opp:
				ps.Wins++
			case own < opp:
				ps.Losses++
			default:
				ps.Ties++
			}
			if own > ps.HighScore {
				ps.HighScore = own
			}
		}
		if ps.GamesPlayed > 0 {
			ps.AverageScore = float64(ownTotal) / float64(ps.GamesPlayed)
			ps.AverageOpponentScore = float64(oppTotal) / float64(ps.GamesPlayed)
		}
		out = append(out, ps)
	}
	return out
}

// sides returns the player's own and opponent scores for a game, or
// ok=false when the player did not take part in it.
func sides(g *model.GameResult, playerID int) (own, opp int, ok bool) {
	switch playerID {
	case g.PlayerIDs[0]:
		return g.Scores[0], g.Scores[1], true
	case g.PlayerIDs[1]:
		return g.Scores[1], g.Scores[0], true
	default:
		return 0, 0, false
	}
}

// sortByDimension orders stats descending by the dimension's primary
// key. Only the standings dimension carries a multi-key tie-break
// (wins desc, losses asc, spread desc); the remaining dimensions rely
// on stable input order for ties. The asymmetry matches the upstream
// product behavior and is deliberate.
func sortByDimension(stats []PlayerStats, dimension Dimension) {
	switch dimension {
	case DimensionStandings:
		sort.SliceStable(stats, func(i, j int) bool {
			a, b := &stats[i], &stats[j]
			if a.Wins != b.Wins {
				return a.Wins > b.Wins
			}
			if a.Losses != b.Losses {
				return a.Losses < b.Losses
			}
			return a.Spread > b.Spread
		})
	case DimensionAverageScore:
		sort.SliceStable(stats, func(i, j int) bool {
			return stats[i].AverageScore > stats[j].AverageScore
		})
	case DimensionRatingGain:
		sort.SliceStable(stats, func(i, j int) bool {
			return stats[i].RatingDiff > stats[j].RatingDiff
		})
	case DimensionHighScore:
		sort.SliceStable(stats, func(i, j int) bool {
			return stats[i].HighScore > stats[j].HighScore
		})
	}
}

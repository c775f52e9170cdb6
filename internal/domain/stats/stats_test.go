package stats_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/joshcough/letsplayscrabble-sub002/internal/domain/model"
	stats "github.com/joshcough/letsplayscrabble-sub002/internal/domain/stats"
)

func player(id int, name string, ratings ...int) *model.Player {
	return &model.Player{ID: id, Name: name, Ratings: ratings}
}

func game(round, a, b, scoreA, scoreB int) model.GameResult {
	return model.GameResult{Round: round, PlayerIDs: [2]int{a, b}, Scores: [2]int{scoreA, scoreB}}
}

func TestRank_Standings(t *testing.T) {
	Convey("Given two players with identical records and different spreads", t, func() {
		players := []*model.Player{
			player(1, "Alice", 1500),
			player(2, "Bob", 1500),
			player(3, "Cara", 1500),
			player(4, "Dan", 1500),
		}
		// Alice and Bob both go 2-0; Alice wins bigger.
		games := []model.GameResult{
			game(1, 1, 3, 450, 330), // Alice +120
			game(1, 2, 4, 420, 340), // Bob +80
			game(2, 1, 4, 400, 380),
			game(2, 2, 3, 390, 370),
		}

		Convey("When ranking by standings", func() {
			ranked := stats.Rank(players, games, stats.DimensionStandings)

			Convey("Then the higher spread wins the tie", func() {
				So(ranked[0].Name, ShouldEqual, "Alice")
				So(ranked[0].Rank, ShouldEqual, 1)
				So(ranked[1].Name, ShouldEqual, "Bob")
				So(ranked[1].Rank, ShouldEqual, 2)
			})

			Convey("And ranks are a permutation of 1..n with no duplicates", func() {
				seen := make(map[int]bool)
				for i, ps := range ranked {
					So(ps.Rank, ShouldEqual, i+1)
					So(seen[ps.Rank], ShouldBeFalse)
					seen[ps.Rank] = true
				}
				So(len(ranked), ShouldEqual, 4)
			})

			Convey("And the order is stable across repeated calls", func() {
				again := stats.Rank(players, games, stats.DimensionStandings)
				for i := range ranked {
					So(again[i].PlayerID, ShouldEqual, ranked[i].PlayerID)
				}
			})
		})

		Convey("When fewer losses break a wins tie", func() {
			// Cara: 1 win 1 tie; Dan: 1 win 1 loss.
			extraGames := []model.GameResult{
				game(1, 3, 4, 400, 350),
				game(2, 3, 1, 380, 380), // tie for Cara
				game(2, 4, 2, 501, 500),
			}
			ranked := stats.Rank(
				[]*model.Player{player(3, "Cara", 1500), player(4, "Dan", 1500)},
				extraGames,
				stats.DimensionStandings,
			)
			So(ranked[0].Name, ShouldEqual, "Cara")
			So(ranked[0].Ties, ShouldEqual, 1)
			So(ranked[1].Name, ShouldEqual, "Dan")
			So(ranked[1].Losses, ShouldEqual, 1)
		})
	})
}

func TestRank_Aggregates(t *testing.T) {
	Convey("Given a player with games on both sides of the pairing", t, func() {
		players := []*model.Player{
			player(1, "Alice", 1500, 1510, 1525),
			player(2, "Bob", 1600, 1590, 1580),
		}
		games := []model.GameResult{
			game(1, 1, 2, 450, 400),
			game(2, 2, 1, 380, 420), // Alice listed second
		}

		Convey("When ranking by standings", func() {
			ranked := stats.Rank(players, games, stats.DimensionStandings)
			alice := ranked[0]

			Convey("Then the aggregates cover both games", func() {
				So(alice.Name, ShouldEqual, "Alice")
				So(alice.Wins, ShouldEqual, 2)
				So(alice.GamesPlayed, ShouldEqual, 2)
				So(alice.Spread, ShouldEqual, 90)
				So(alice.AverageScore, ShouldEqual, 435.0)
				So(alice.AverageOpponentScore, ShouldEqual, 390.0)
				So(alice.HighScore, ShouldEqual, 450)
			})

			Convey("And rating fields come from the rating history", func() {
				So(alice.InitialRating, ShouldEqual, 1500)
				So(alice.CurrentRating, ShouldEqual, 1525)
				So(alice.RatingDiff, ShouldEqual, 25)

				bob := ranked[1]
				So(bob.RatingDiff, ShouldEqual, -20)
			})
		})
	})

	Convey("Given a player with zero recorded games", t, func() {
		players := []*model.Player{player(1, "Alice", 1500), player(2, "Idle", 1400)}
		games := []model.GameResult{game(1, 1, 3, 400, 300)}

		Convey("When ranking", func() {
			ranked := stats.Rank(players, games, stats.DimensionStandings)

			Convey("Then the idle player gets all-zero aggregates and a valid rank", func() {
				var idle stats.PlayerStats
				for _, ps := range ranked {
					if ps.Name == "Idle" {
						idle = ps
					}
				}
				So(idle.Wins, ShouldEqual, 0)
				So(idle.Losses, ShouldEqual, 0)
				So(idle.Ties, ShouldEqual, 0)
				So(idle.Spread, ShouldEqual, 0)
				So(idle.AverageScore, ShouldEqual, 0.0)
				So(idle.HighScore, ShouldEqual, 0)
				So(idle.Rank, ShouldEqual, 2)
			})
		})
	})

	Convey("Given a roster with a nil placeholder in the first slot", t, func() {
		players := []*model.Player{nil, player(1, "Alice", 1500), player(2, "Bob", 1500)}

		Convey("When ranking", func() {
			ranked := stats.Rank(players, nil, stats.DimensionStandings)

			Convey("Then the placeholder is skipped, never ranked", func() {
				So(len(ranked), ShouldEqual, 2)
				So(ranked[0].Seed, ShouldEqual, 1)
				So(ranked[0].SeedOrdinal, ShouldEqual, "1st")
				So(ranked[1].Seed, ShouldEqual, 2)
			})
		})
	})
}

func TestRank_OtherDimensions(t *testing.T) {
	players := []*model.Player{
		player(1, "Low", 1500, 1520),
		player(2, "High", 1500, 1490),
		player(3, "Mid", 1500, 1505),
	}
	games := []model.GameResult{
		game(1, 1, 2, 300, 500),
		game(2, 1, 3, 310, 420),
		game(3, 2, 3, 480, 440),
	}

	Convey("Given the same input across dimensions", t, func() {
		Convey("When ranking by average score", func() {
			ranked := stats.Rank(players, games, stats.DimensionAverageScore)
			So(ranked[0].Name, ShouldEqual, "High")
			So(ranked[2].Name, ShouldEqual, "Low")
		})

		Convey("When ranking by high score", func() {
			ranked := stats.Rank(players, games, stats.DimensionHighScore)
			So(ranked[0].Name, ShouldEqual, "High")
			So(ranked[0].HighScore, ShouldEqual, 500)
		})

		Convey("When ranking by rating gain", func() {
			ranked := stats.Rank(players, games, stats.DimensionRatingGain)
			So(ranked[0].Name, ShouldEqual, "Low")
			So(ranked[0].RatingDiff, ShouldEqual, 20)
			So(ranked[2].Name, ShouldEqual, "High")
		})

		Convey("When a single-key dimension ties, input order breaks the tie", func() {
			tied := []*model.Player{player(1, "First", 1500), player(2, "Second", 1500)}
			tiedGames := []model.GameResult{
				game(1, 1, 3, 400, 380),
				game(1, 2, 4, 400, 390),
			}
			ranked := stats.Rank(tied, tiedGames, stats.DimensionHighScore)
			So(ranked[0].Name, ShouldEqual, "First")
			So(ranked[0].Rank, ShouldEqual, 1)
			So(ranked[1].Name, ShouldEqual, "Second")
			So(ranked[1].Rank, ShouldEqual, 2)
		})
	})
}

func TestParseDimension(t *testing.T) {
	Convey("Given dimension names", t, func() {
		Convey("Known names parse", func() {
			for name, want := range map[string]stats.Dimension{
				"standings":     stats.DimensionStandings,
				"average_score": stats.DimensionAverageScore,
				"rating_gain":   stats.DimensionRatingGain,
				"high_score":    stats.DimensionHighScore,
				"":              stats.DimensionStandings,
			} {
				d, err := stats.ParseDimension(name)
				So(err, ShouldBeNil)
				So(d, ShouldEqual, want)
			}
		})

		Convey("Unknown names fail", func() {
			_, err := stats.ParseDimension("vibes")
			So(err, ShouldEqual, stats.ErrUnknownDimension)
		})
	})
}

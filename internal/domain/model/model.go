// Package model contains domain models passed between layers.
package model

// Player is a raw roster entry as fetched from the backend. It is an
// immutable snapshot: a new tournament payload replaces it wholesale,
// nothing mutates it in place.
type Player struct {
	ID   int    `json:"id"`
	Name string `json:"name"`

	// Ratings holds the rating history for this tournament. The first
	// entry is the rating before any games were played, the last entry
	// is the current rating.
	Ratings []int `json:"ratings"`

	// Photo is a reference relative to the tournament photo base.
	Photo string `json:"photo,omitempty"`

	// Pairings holds opponent player ids by round, 0 for a bye.
	Pairings []int `json:"pairings,omitempty"`
}

// InitialRating returns the rating before this tournament's games.
func (p *Player) InitialRating() int {
	if len(p.Ratings) == 0 {
		return 0
	}
	return p.Ratings[0]
}

// CurrentRating returns the latest rating.
func (p *Player) CurrentRating() int {
	if len(p.Ratings) == 0 {
		return 0
	}
	return p.Ratings[len(p.Ratings)-1]
}

// GameResult is one completed game between two players.
type GameResult struct {
	Round     int    `json:"round"`
	PlayerIDs [2]int `json:"playerIds"`
	Scores    [2]int `json:"scores"`
}

// Division is one division of a tournament.
//
// Players may contain a nil placeholder in the first slot, a historical
// artifact of the source roster format. Consumers skip nil entries.
type Division struct {
	Name    string       `json:"name"`
	Players []*Player    `json:"players"`
	Games   []GameResult `json:"games"`
}

// Tournament is a full tournament as fetched from the backend.
type Tournament struct {
	ID        int        `json:"id"`
	Name      string     `json:"name"`
	Lexicon   string     `json:"lexicon"`
	DataURL   string     `json:"dataUrl"`
	PhotoBase string     `json:"photoBase"`
	Theme     string     `json:"theme"`
	Divisions []Division `json:"divisions"`
}

// Summary is the tournament header carried inside broadcast payloads.
type Summary struct {
	Name      string `json:"name"`
	Lexicon   string `json:"lexicon"`
	DataURL   string `json:"dataUrl"`
	PhotoBase string `json:"photoBase"`
	Theme     string `json:"theme"`
}

// Summary returns the broadcastable header for a tournament.
func (t *Tournament) Summary() Summary {
	return Summary{
		Name:      t.Name,
		Lexicon:   t.Lexicon,
		DataURL:   t.DataURL,
		PhotoBase: t.PhotoBase,
		Theme:     t.Theme,
	}
}

// Division returns the named division, or the first division when name
// is empty. Returns nil when the tournament has no matching division.
func (t *Tournament) Division(name string) *Division {
	if name == "" {
		if len(t.Divisions) == 0 {
			return nil
		}
		return &t.Divisions[0]
	}
	for i := range t.Divisions {
		if t.Divisions[i].Name == name {
			return &t.Divisions[i]
		}
	}
	return nil
}

// CurrentMatch describes what the admin panel currently has live.
type CurrentMatch struct {
	TournamentID int    `json:"tournamentId"`
	DivisionName string `json:"divisionName"`
	Round        int    `json:"round"`
	PairingID    int    `json:"pairingId"`
}

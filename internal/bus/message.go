// Package bus implements the same-process broadcast layer that fans
// tournament state changes out from the worker aggregator to any number
// of overlay consumers. It mirrors a browser BroadcastChannel: every
// open transport on a broker receives every published message, the
// publisher included, and delivery is best-effort fire-and-forget.
package bus

import (
	"time"

	"github.com/joshcough/letsplayscrabble-sub002/internal/domain/model"
)

// Kind identifies the payload carried by a Message. The set is closed;
// dispatch sites switch exhaustively over it.
type Kind int

const (
	// KindAdminPanelUpdate announces that the admin panel changed the
	// live match.
	KindAdminPanelUpdate Kind = iota
	// KindGamesAdded announces that new game results were recorded.
	KindGamesAdded
	// KindTournamentData carries a resolved tournament view.
	KindTournamentData
	// KindTournamentDataError carries a failed tournament resolution.
	KindTournamentDataError
	// KindSubscribe is a consumer declaring the slice of state it wants.
	KindSubscribe
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindAdminPanelUpdate:
		return "admin_panel_update"
	case KindGamesAdded:
		return "games_added"
	case KindTournamentData:
		return "tournament_data"
	case KindTournamentDataError:
		return "tournament_data_error"
	case KindSubscribe:
		return "subscribe"
	default:
		return "unknown"
	}
}

// Message is the only unit ever placed on the transport. Exactly one
// payload field is set, matching Kind.
//
// Timestamp is diagnostic only. There is no sequence numbering: the
// aggregator publishes in causal order and consumers apply latest
// relevant message wins, so the timestamp is never consulted for
// ordering or authority decisions.
type Message struct {
	Kind Kind

	Subscribe  *SubscribeRequest
	Tournament *TournamentDataPayload
	AdminPanel *AdminPanelUpdatePayload
	GamesAdded *GamesAddedPayload

	Timestamp time.Time
}

// DivisionScope names a division inside a pinned subscription.
type DivisionScope struct {
	Name string `json:"divisionName"`
}

// TournamentScope pins a subscription to a fixed tournament, and
// optionally to one of its divisions. The division is informational
// for what the worker should fetch, not a second consumer-side filter.
type TournamentScope struct {
	TournamentID int            `json:"tournamentId"`
	Division     *DivisionScope `json:"division,omitempty"`
}

// SubscribeRequest declares what slice of state a consumer wants.
// A nil Tournament means "follow whatever the admin panel currently
// has selected as the live match".
type SubscribeRequest struct {
	UserID     int              `json:"userId"`
	Tournament *TournamentScope `json:"tournament,omitempty"`
}

// CurrentMatchMode reports whether the request follows the live match
// rather than a pinned tournament.
func (r *SubscribeRequest) CurrentMatchMode() bool {
	return r.Tournament == nil
}

// Valid reports whether the request identifies its requester.
func (r *SubscribeRequest) Valid() bool {
	return r != nil && r.UserID > 0
}

// TournamentData is the resolved view inside a successful payload.
type TournamentData struct {
	Tournament model.Summary  `json:"tournament"`
	Division   model.Division `json:"division"`
}

// TournamentDataPayload is the body of KindTournamentData and
// KindTournamentDataError broadcasts. The error variant carries Error
// instead of Data.
type TournamentDataPayload struct {
	UserID         int             `json:"userId"`
	TournamentID   int             `json:"tournamentId"`
	IsCurrentMatch bool            `json:"isCurrentMatch"`
	Data           *TournamentData `json:"data,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// AdminPanelUpdatePayload is the body of KindAdminPanelUpdate. Match is
// nil when the admin cleared the live match.
type AdminPanelUpdatePayload struct {
	UserID int                 `json:"userId"`
	Match  *model.CurrentMatch `json:"match,omitempty"`
}

// GamesAddedPayload is the body of KindGamesAdded.
type GamesAddedPayload struct {
	UserID       int    `json:"userId"`
	TournamentID int    `json:"tournamentId"`
	DivisionName string `json:"divisionName,omitempty"`
	GameCount    int    `json:"gameCount,omitempty"`
}

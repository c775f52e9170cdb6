package upstream_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/joshcough/letsplayscrabble-sub002/internal/domain/model"
	"github.com/joshcough/letsplayscrabble-sub002/internal/upstream"
	"github.com/joshcough/letsplayscrabble-sub002/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encoding fixture: %v", err)
	}
}

func backend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/users/1/match/current", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, model.CurrentMatch{
			TournamentID: 10, DivisionName: "A", Round: 3, PairingID: 7,
		})
	})
	mux.HandleFunc("GET /api/users/2/match/current", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("GET /api/users/1/tournaments/10", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, model.Tournament{
			ID:   10,
			Name: "Nationals",
			Divisions: []model.Division{{
				Name:    "A",
				Players: []*model.Player{nil, {ID: 1, Name: "Alice", Ratings: []int{1500, 1512}}},
			}},
		})
	})
	mux.HandleFunc("GET /api/users/1/tournaments/500", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend exploded", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRestClient(t *testing.T) {
	srv := backend(t)
	c := upstream.NewRestClient(srv.URL)
	defer c.Close()
	ctx := context.Background()

	t.Run("current match found", func(t *testing.T) {
		match, err := c.GetCurrentMatch(ctx, 1)
		if err != nil {
			t.Fatalf("GetCurrentMatch: %v", err)
		}
		if match == nil || match.TournamentID != 10 || match.DivisionName != "A" {
			t.Fatalf("match = %+v", match)
		}
	})

	t.Run("no current match means nil, not error", func(t *testing.T) {
		match, err := c.GetCurrentMatch(ctx, 2)
		if err != nil {
			t.Fatalf("GetCurrentMatch: %v", err)
		}
		if match != nil {
			t.Fatalf("match = %+v, want nil", match)
		}
	})

	t.Run("tournament found", func(t *testing.T) {
		tournament, err := c.GetTournament(ctx, 1, 10)
		if err != nil {
			t.Fatalf("GetTournament: %v", err)
		}
		if tournament.Name != "Nationals" {
			t.Errorf("Name = %q", tournament.Name)
		}
		div := tournament.Division("A")
		if div == nil || len(div.Players) != 2 {
			t.Fatalf("division = %+v", div)
		}
		if div.Players[0] != nil {
			t.Error("placeholder slot should decode as nil")
		}
		if div.Players[1].CurrentRating() != 1512 {
			t.Errorf("CurrentRating = %d", div.Players[1].CurrentRating())
		}
	})

	t.Run("missing tournament is ErrNotFound", func(t *testing.T) {
		_, err := c.GetTournament(ctx, 1, 404)
		if !errors.Is(err, upstream.ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("server error is ErrFetchFailed", func(t *testing.T) {
		_, err := c.GetTournament(ctx, 1, 500)
		if !errors.Is(err, upstream.ErrFetchFailed) {
			t.Fatalf("err = %v, want ErrFetchFailed", err)
		}
	})

	t.Run("mislabeled content type still decodes", func(t *testing.T) {
		// net/http sniffs a bare JSON body as text/plain; the body must
		// decode anyway rather than yielding a zero-valued struct.
		plain := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(model.CurrentMatch{TournamentID: 99, DivisionName: "B"})
		}))
		defer plain.Close()

		pc := upstream.NewRestClient(plain.URL)
		defer pc.Close()
		match, err := pc.GetCurrentMatch(ctx, 1)
		if err != nil {
			t.Fatalf("GetCurrentMatch: %v", err)
		}
		if match == nil || match.TournamentID != 99 || match.DivisionName != "B" {
			t.Fatalf("match = %+v, body was not decoded", match)
		}
	})

	t.Run("unreachable backend is ErrFetchFailed", func(t *testing.T) {
		dead := upstream.NewRestClient("http://127.0.0.1:1")
		defer dead.Close()
		_, err := dead.GetCurrentMatch(ctx, 1)
		if !errors.Is(err, upstream.ErrFetchFailed) {
			t.Fatalf("err = %v, want ErrFetchFailed", err)
		}
	})
}

func TestRestClientAuthToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(model.CurrentMatch{TournamentID: 1})
	}))
	defer srv.Close()

	c := upstream.NewRestClient(srv.URL, upstream.WithAuthToken("secret"))
	defer c.Close()

	if _, err := c.GetCurrentMatch(context.Background(), 1); err != nil {
		t.Fatalf("GetCurrentMatch: %v", err)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

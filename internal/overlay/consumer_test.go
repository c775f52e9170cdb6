package overlay_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/joshcough/letsplayscrabble-sub002/internal/bus"
	"github.com/joshcough/letsplayscrabble-sub002/internal/domain/model"
	"github.com/joshcough/letsplayscrabble-sub002/internal/overlay"
	"github.com/joshcough/letsplayscrabble-sub002/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func division() model.Division {
	return model.Division{
		Name: "A",
		Players: []*model.Player{
			nil,
			{ID: 1, Name: "Alice", Ratings: []int{1500}},
			{ID: 2, Name: "Bob", Ratings: []int{1500}},
		},
		Games: []model.GameResult{
			{Round: 1, PlayerIDs: [2]int{1, 2}, Scores: [2]int{450, 400}},
		},
	}
}

func dataPayload(userID, tournamentID int, current bool) *bus.TournamentDataPayload {
	return &bus.TournamentDataPayload{
		UserID:         userID,
		TournamentID:   tournamentID,
		IsCurrentMatch: current,
		Data: &bus.TournamentData{
			Tournament: model.Summary{Name: "Nationals", Lexicon: "NWL23"},
			Division:   division(),
		},
	}
}

func waitView(t *testing.T, ch <-chan overlay.View) overlay.View {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for view update")
		return overlay.View{}
	}
}

func TestConsumerPinnedScope(t *testing.T) {
	Convey("Given a consumer pinned to tournament 10", t, func() {
		b := bus.NewBroker()
		defer b.Close()

		updates := make(chan overlay.View, 8)
		c := overlay.New(b,
			bus.SubscribeRequest{UserID: 1, Tournament: &bus.TournamentScope{TournamentID: 10}},
			overlay.WithOnUpdate(func(v overlay.View) { updates <- v }),
		)
		So(c.Mount(context.Background()), ShouldBeNil)
		defer c.Unmount()

		pub := b.Open()
		defer pub.Close()

		Convey("It starts loading", func() {
			So(c.View().Loading, ShouldBeTrue)
		})

		Convey("When a broadcast for its tournament arrives", func() {
			pub.Publish(bus.Message{Kind: bus.KindTournamentData, Tournament: dataPayload(1, 10, false)})
			v := waitView(t, updates)

			Convey("Then the view carries the ranked division", func() {
				So(v.Loading, ShouldBeFalse)
				So(v.Tournament.Name, ShouldEqual, "Nationals")
				So(v.DivisionName, ShouldEqual, "A")
				So(len(v.Players), ShouldEqual, 2)
				So(v.Players[0].Name, ShouldEqual, "Alice")
				So(v.Players[0].Rank, ShouldEqual, 1)
				So(v.Players[1].Rank, ShouldEqual, 2)
			})
		})

		Convey("When a broadcast for another tournament arrives", func() {
			pub.Publish(bus.Message{Kind: bus.KindTournamentData, Tournament: dataPayload(1, 99, false)})

			Convey("Then it is dropped, not queued", func() {
				time.Sleep(100 * time.Millisecond)
				So(len(updates), ShouldEqual, 0)
				So(c.View().Loading, ShouldBeTrue)
			})
		})

		Convey("When an error follows good data", func() {
			pub.Publish(bus.Message{Kind: bus.KindTournamentData, Tournament: dataPayload(1, 10, false)})
			waitView(t, updates)

			pub.Publish(bus.Message{Kind: bus.KindTournamentDataError, Tournament: &bus.TournamentDataPayload{
				UserID: 1, TournamentID: 10, Error: "backend unreachable",
			}})
			v := waitView(t, updates)

			Convey("Then last-known-good data stays visible alongside the error", func() {
				So(v.Error, ShouldEqual, "backend unreachable")
				So(v.Tournament.Name, ShouldEqual, "Nationals")
				So(len(v.Players), ShouldEqual, 2)
			})
		})

		Convey("Mounting twice is a no-op", func() {
			So(c.Mount(context.Background()), ShouldBeNil)
			pub.Publish(bus.Message{Kind: bus.KindTournamentData, Tournament: dataPayload(1, 10, false)})
			waitView(t, updates)
			time.Sleep(100 * time.Millisecond)
			So(len(updates), ShouldEqual, 0)
		})
	})
}

func TestConsumerCurrentMatchScope(t *testing.T) {
	Convey("Given a consumer following the live match", t, func() {
		b := bus.NewBroker()
		defer b.Close()

		updates := make(chan overlay.View, 8)
		c := overlay.New(b,
			bus.SubscribeRequest{UserID: 1},
			overlay.WithOnUpdate(func(v overlay.View) { updates <- v }),
		)
		So(c.Mount(context.Background()), ShouldBeNil)
		defer c.Unmount()

		pub := b.Open()
		defer pub.Close()

		Convey("A current-match broadcast is accepted regardless of tournament", func() {
			pub.Publish(bus.Message{Kind: bus.KindTournamentData, Tournament: dataPayload(1, 77, true)})
			v := waitView(t, updates)
			So(v.Loading, ShouldBeFalse)
			So(v.Tournament.Name, ShouldEqual, "Nationals")
		})

		Convey("A pinned broadcast is rejected even for a matching tournament", func() {
			pub.Publish(bus.Message{Kind: bus.KindTournamentData, Tournament: dataPayload(1, 77, false)})
			time.Sleep(100 * time.Millisecond)
			So(len(updates), ShouldEqual, 0)
		})
	})
}

func TestConsumerUnmount(t *testing.T) {
	Convey("Given a mounted consumer", t, func() {
		b := bus.NewBroker()
		defer b.Close()

		updates := make(chan overlay.View, 8)
		c := overlay.New(b,
			bus.SubscribeRequest{UserID: 1, Tournament: &bus.TournamentScope{TournamentID: 10}},
			overlay.WithOnUpdate(func(v overlay.View) { updates <- v }),
		)
		So(c.Mount(context.Background()), ShouldBeNil)

		pub := b.Open()
		defer pub.Close()

		Convey("When it unmounts", func() {
			c.Unmount()
			c.Unmount()

			Convey("Then no broadcast reaches it anymore", func() {
				So(b.TransportCount(), ShouldEqual, 1) // only pub remains
				pub.Publish(bus.Message{Kind: bus.KindTournamentData, Tournament: dataPayload(1, 10, false)})
				time.Sleep(100 * time.Millisecond)
				So(len(updates), ShouldEqual, 0)
			})
		})
	})
}

func TestConsumerMountUnmountConcurrent(t *testing.T) {
	b := bus.NewBroker()
	defer b.Close()

	c := overlay.New(b, bus.SubscribeRequest{
		UserID:     1,
		Tournament: &bus.TournamentScope{TournamentID: 10},
	})

	// Mount and Unmount race from separate goroutines; the mounted flag
	// and the transport/registry fields must move together.
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = c.Mount(context.Background())
		}()
		go func() {
			defer wg.Done()
			c.Unmount()
		}()
	}
	wg.Wait()

	// One final cycle ends in a known state regardless of interleaving.
	if err := c.Mount(context.Background()); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	c.Unmount()
	if n := b.TransportCount(); n != 0 {
		t.Fatalf("TransportCount = %d, want 0 after final unmount", n)
	}
}

func TestConsumerRelevance(t *testing.T) {
	Convey("Given the relevance predicate", t, func() {
		b := bus.NewBroker()
		defer b.Close()

		Convey("Current-match mode keys on the flag alone", func() {
			c := overlay.New(b, bus.SubscribeRequest{UserID: 1})
			So(c.Relevant(&bus.TournamentDataPayload{TournamentID: 5, IsCurrentMatch: true}), ShouldBeTrue)
			So(c.Relevant(&bus.TournamentDataPayload{TournamentID: 5, IsCurrentMatch: false}), ShouldBeFalse)
		})

		Convey("Pinned mode keys on the tournament id alone", func() {
			c := overlay.New(b, bus.SubscribeRequest{
				UserID:     1,
				Tournament: &bus.TournamentScope{TournamentID: 5, Division: &bus.DivisionScope{Name: "B"}},
			})
			So(c.Relevant(&bus.TournamentDataPayload{TournamentID: 5}), ShouldBeTrue)
			So(c.Relevant(&bus.TournamentDataPayload{TournamentID: 6}), ShouldBeFalse)

			Convey("And the division never filters", func() {
				// Payload resolved to a different division still passes.
				p := dataPayload(1, 5, false)
				p.Data.Division.Name = "A"
				So(c.Relevant(p), ShouldBeTrue)
			})
		})
	})
}

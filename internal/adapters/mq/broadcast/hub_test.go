package broadcast_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/teampulse/internal/adapters/mq/broadcast"
	"github.com/okian/teampulse/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func snap(scope string, n int) model.Snapshot {
	return model.Snapshot{ScopeID: scope, ComputedAt: time.Unix(int64(n), 0)}
}

func TestHub(t *testing.T) {
	Convey("Given a hub with one subscriber per scope", t, func() {
		ctx := context.Background()
		hub := broadcast.NewHub()
		a, err := hub.Subscribe(ctx, "team-a")
		So(err, ShouldBeNil)
		b, err := hub.Subscribe(ctx, "team-b")
		So(err, ShouldBeNil)

		So(hub.Count(), ShouldEqual, 2)
		So(a.ID(), ShouldNotEqual, b.ID())
		So(a.Scope(), ShouldEqual, "team-a")

		Convey("When a snapshot is published for one scope", func() {
			hub.Publish(snap("team-a", 1))

			Convey("Then only that scope's subscriber receives it", func() {
				got := <-a.C()
				So(got.ScopeID, ShouldEqual, "team-a")
				select {
				case <-b.C():
					So("team-b received a foreign snapshot", ShouldBeEmpty)
				default:
				}
			})
		})

		Convey("When the subscriber falls behind", func() {
			for i := 1; i <= 5; i++ {
				hub.Publish(snap("team-a", i))
			}

			Convey("Then it only sees the newest snapshot", func() {
				got := <-a.C()
				So(got.ComputedAt.Unix(), ShouldEqual, 5)
				select {
				case <-a.C():
					So("stale snapshot delivered", ShouldBeEmpty)
				default:
				}
			})
		})

		Convey("When a subscription is closed twice", func() {
			a.Close()
			a.Close()

			Convey("Then its channel closes and the count drops once", func() {
				_, ok := <-a.C()
				So(ok, ShouldBeFalse)
				So(hub.Count(), ShouldEqual, 1)
				So(func() { hub.Publish(snap("team-a", 9)) }, ShouldNotPanic)
			})
		})

		Convey("When the hub closes", func() {
			hub.Close()

			Convey("Then every subscription ends and new ones are rejected", func() {
				<-a.Done()
				<-b.Done()
				So(hub.Count(), ShouldEqual, 0)
				_, err := hub.Subscribe(ctx, "team-a")
				So(errors.Is(err, broadcast.ErrHubClosed), ShouldBeTrue)
			})
		})
	})

	Convey("Given a subscription bound to a context", t, func() {
		hub := broadcast.NewHub(broadcast.WithBuffer(2))
		ctx, cancel := context.WithCancel(context.Background())
		sub, err := hub.Subscribe(ctx, "team-a")
		So(err, ShouldBeNil)

		Convey("When the context is cancelled", func() {
			cancel()

			Convey("Then the subscription ends", func() {
				select {
				case <-sub.Done():
				case <-time.After(time.Second):
					So("subscription outlived its context", ShouldBeEmpty)
				}
				So(hub.Count(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given concurrent publishers and a slow reader", t, func() {
		hub := broadcast.NewHub()
		sub, err := hub.Subscribe(context.Background(), "team-a")
		So(err, ShouldBeNil)

		var wg sync.WaitGroup
		for p := 0; p < 4; p++ {
			wg.Add(1)
			go func(p int) {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					hub.Publish(snap("team-a", p*1000+i))
				}
			}(p)
		}
		wg.Wait()

		Convey("Then publishing never blocks and one snapshot is pending", func() {
			So(len(sub.C()), ShouldEqual, 1)
			sub.Close()
		})
	})
}

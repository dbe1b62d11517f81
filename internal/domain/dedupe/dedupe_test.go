package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	dedupe "github.com/okian/scoreboard/internal/domain/dedupe"
	"github.com/okian/scoreboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func key(team, round int) model.Key {
	return model.Key{TeamNumber: team, StageID: "test", Round: round}
}

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new InMemoryDeduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithCapacityHint(16))

		Convey("Then it starts empty", func() {
			So(d.Size(), ShouldEqual, 0)
		})

		Convey("When a key is recorded for the first time", func() {
			seen := d.SeenAndRecord(ctx, key(1, 1), "a")

			Convey("Then it is reported as new and owned by the recorder", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
				owner, ok := d.Owner(ctx, key(1, 1))
				So(ok, ShouldBeTrue)
				So(owner, ShouldEqual, "a")
			})

			Convey("And recording it again reports a duplicate without changing the owner", func() {
				So(d.SeenAndRecord(ctx, key(1, 1), "b"), ShouldBeTrue)
				owner, _ := d.Owner(ctx, key(1, 1))
				So(owner, ShouldEqual, "a")
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And a different round of the same team is a different key", func() {
				So(d.SeenAndRecord(ctx, key(1, 2), "c"), ShouldBeFalse)
				So(d.Size(), ShouldEqual, 2)
			})
		})

		Convey("When a key is unrecorded", func() {
			d.SeenAndRecord(ctx, key(1, 1), "a")
			d.Unrecord(ctx, key(1, 1))
			d.Unrecord(ctx, key(9, 9))

			Convey("Then it can be recorded again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, key(1, 1), "b"), ShouldBeFalse)
			})
		})

		Convey("When the deduper is reset", func() {
			for i := 1; i <= 5; i++ {
				d.SeenAndRecord(ctx, key(i, 1), fmt.Sprint(i))
			}
			d.Reset(ctx)

			Convey("Then every key is forgotten", func() {
				So(d.Size(), ShouldEqual, 0)
				_, ok := d.Owner(ctx, key(3, 1))
				So(ok, ShouldBeFalse)
			})
		})
	})

	Convey("Given a deduper with concurrent access", t, func() {
		d := dedupe.NewInMemoryDeduper()

		Convey("When many goroutines race for the same keys", func() {
			var wg sync.WaitGroup
			var mu sync.Mutex
			winners := 0
			for g := 0; g < 8; g++ {
				wg.Add(1)
				go func(g int) {
					defer wg.Done()
					for i := 0; i < 100; i++ {
						if !d.SeenAndRecord(ctx, key(i, 1), fmt.Sprint(g)) {
							mu.Lock()
							winners++
							mu.Unlock()
						}
					}
				}(g)
			}
			wg.Wait()

			Convey("Then each key is won exactly once", func() {
				So(winners, ShouldEqual, 100)
				So(d.Size(), ShouldEqual, 100)
			})
		})
	})
}

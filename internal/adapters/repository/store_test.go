package repository_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/okian/scoreboard/internal/adapters/repository"
	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/domain/registry"
	"github.com/okian/scoreboard/internal/domain/scoring"
	"github.com/okian/scoreboard/internal/domain/validation"
	"github.com/okian/scoreboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newStore() (*repository.Store, *registry.TeamRegistry, *registry.StageRegistry) {
	teams := registry.NewTeamRegistry()
	for i := 1; i <= 5; i++ {
		_, _ = teams.Add(model.Team{Number: i, Name: fmt.Sprintf("Fleppie %d", i)})
	}
	stages := registry.NewStageRegistry(
		model.Stage{ID: "test", Name: "Test stage", Rounds: 3},
		model.Stage{ID: "final", Name: "Final", Rounds: 1},
	)
	n := 0
	s := repository.NewStore(teams, stages, repository.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("r%d", n)
	}))
	return s, teams, stages
}

func raw(team int, stage string, round int, score any) model.RawScore {
	return model.RawScore{TeamNumber: team, StageID: stage, Round: round, Score: score}
}

func triples() []model.RawScore {
	return []model.RawScore{
		raw(1, "test", 1, 10), raw(1, "test", 2, 20), raw(1, "test", 3, 30),
		raw(2, "test", 1, 30), raw(2, "test", 2, 10), raw(2, "test", 3, 20),
		raw(3, "test", 1, 30), raw(3, "test", 2, 0), raw(3, "test", 3, 20),
	}
}

type row struct {
	Rank int
	Team int
}

func rows(entries []model.LeaderboardEntry) []row {
	out := make([]row, len(entries))
	for i, e := range entries {
		out[i] = row{Rank: e.Rank, Team: e.Team.Number}
	}
	return out
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty store over two stages", t, func() {
		s, teams, _ := newStore()

		Convey("Then every stage has an empty leaderboard", func() {
			board := s.Scoreboard()
			So(len(board), ShouldEqual, 2)
			So(board["test"], ShouldBeEmpty)
			So(board["final"], ShouldNotBeNil)
		})

		Convey("When a single score is added without a batch", func() {
			rec := s.AddRawScore(ctx, raw(1, "test", 2, 10))

			Convey("Then it gets an id and the scoreboard is recomputed at once", func() {
				So(rec.ID, ShouldEqual, "r1")
				So(rec.Valid(), ShouldBeTrue)
				board := s.Scoreboard()["test"]
				So(len(board), ShouldEqual, 1)
				So(board[0].Scores[0].IsAbsent(), ShouldBeTrue)
				So(board[0].Scores[1].Equal(scoring.Num(10)), ShouldBeTrue)
				So(board[0].Scores[2].IsAbsent(), ShouldBeTrue)
			})
		})

		Convey("When scores are added inside a batch", func() {
			s.BeginUpdate()
			s.AddRawScore(ctx, raw(1, "test", 1, 10))
			s.AddRawScore(ctx, raw(1, "foo", 1, 0))

			Convey("Then validation happens at insertion but ranking waits for the end", func() {
				So(len(s.ValidationErrors()), ShouldEqual, 1)
				So(s.Scoreboard()["test"], ShouldBeEmpty)

				So(s.EndUpdate(ctx), ShouldBeNil)
				So(len(s.Scoreboard()["test"]), ShouldEqual, 1)
			})

			Convey("And nested batches recompute only when the outermost one closes", func() {
				s.BeginUpdate()
				s.AddRawScore(ctx, raw(2, "test", 1, 20))
				So(s.EndUpdate(ctx), ShouldBeNil)
				So(s.Scoreboard()["test"], ShouldBeEmpty)
				So(s.EndUpdate(ctx), ShouldBeNil)
				So(len(s.Scoreboard()["test"]), ShouldEqual, 2)
			})
		})

		Convey("When a batch is closed that was never opened", func() {
			So(errors.Is(s.EndUpdate(ctx), repository.ErrNoBatch), ShouldBeTrue)
		})

		Convey("When four teams score 1, -1, dnc and dsq", func() {
			s.Ingest(ctx, []model.RawScore{
				raw(1, "test", 1, "dsq"),
				raw(2, "test", 1, "dnc"),
				raw(3, "test", 1, -1),
				raw(4, "test", 1, 1),
			})

			Convey("Then they rank 1 to 4 in that order", func() {
				So(rows(s.Scoreboard()["test"]), ShouldResemble, []row{{1, 4}, {2, 3}, {3, 2}, {4, 1}})
			})
		})

		Convey("When the round triples are ingested", func() {
			s.Ingest(ctx, triples())
			full := s.Scoreboard()

			Convey("Then the first two teams tie", func() {
				So(rows(full["test"]), ShouldResemble, []row{{1, 1}, {1, 2}, {2, 3}})
			})

			Convey("And filtering to two rounds separates them without touching the stored board", func() {
				filtered, err := s.Rankings(map[string]int{"test": 2})
				So(err, ShouldBeNil)
				So(rows(filtered["test"]), ShouldResemble, []row{{1, 2}, {2, 3}, {3, 1}})
				So(len(filtered["test"][0].Scores), ShouldEqual, 2)
				So(filtered["final"], ShouldNotBeNil)
				So(rows(s.Scoreboard()["test"]), ShouldResemble, []row{{1, 1}, {1, 2}, {2, 3}})
			})

			Convey("And an empty filter returns the full scoreboard", func() {
				filtered, err := s.Rankings(nil)
				So(err, ShouldBeNil)
				So(cmp.Diff(full, filtered), ShouldBeEmpty)
			})

			Convey("And filters on unknown stages or rounds out of range are rejected", func() {
				for _, f := range []map[string]int{{"nope": 1}, {"test": 0}, {"test": 4}, {"final": 2}} {
					_, err := s.Rankings(f)
					So(errors.Is(err, repository.ErrInvalidFilter), ShouldBeTrue)
				}
			})

			Convey("And clearing then re-ingesting reproduces the same scoreboard", func() {
				s.Clear(ctx)
				So(s.Scoreboard()["test"], ShouldBeEmpty)
				So(s.Records(), ShouldBeEmpty)

				s.Ingest(ctx, triples())
				So(cmp.Diff(full, s.Scoreboard()), ShouldBeEmpty)
			})
		})

		Convey("When unknown stages and rounds are submitted", func() {
			s.Ingest(ctx, []model.RawScore{
				raw(1, "test", 1, 10),
				raw(1, "foo", 1, 0),
				raw(1, "test", 4, 0),
			})

			Convey("Then they are tagged, kept and excluded from ranking", func() {
				errs := s.ValidationErrors()
				So(len(errs), ShouldEqual, 2)
				So(validation.KindOf(errs[0].Error), ShouldEqual, "unknown_stage")
				So(validation.KindOf(errs[1].Error), ShouldEqual, "unknown_round")
				So(len(s.Records()), ShouldEqual, 3)
				So(len(s.Scoreboard()["test"]), ShouldEqual, 1)
			})
		})

		Convey("When malformed scores are submitted", func() {
			invalid := s.Ingest(ctx, []model.RawScore{
				raw(1, "test", 1, "foo"),
				raw(1, "test", 1, math.NaN()),
				raw(1, "test", 1, math.Inf(1)),
				raw(1, "test", 1, map[string]any{}),
				raw(1, "test", 1, true),
			})

			Convey("Then each is an invalid score", func() {
				So(invalid, ShouldEqual, 5)
				for _, rec := range s.ValidationErrors() {
					So(errors.Is(rec.Error, validation.ErrInvalidScore), ShouldBeTrue)
				}
				So(s.Scoreboard()["test"], ShouldBeEmpty)
			})
		})

		Convey("When a slot is submitted twice in the same batch", func() {
			s.Ingest(ctx, []model.RawScore{raw(1, "test", 1, 10), raw(1, "test", 1, 20)})

			Convey("Then only the first counts", func() {
				errs := s.ValidationErrors()
				So(len(errs), ShouldEqual, 1)
				var dup *validation.DuplicateScoreError
				So(errors.As(errs[0].Error, &dup), ShouldBeTrue)
				So(dup.Original, ShouldEqual, "r1")
				So(s.Scoreboard()["test"][0].Highest.Equal(scoring.Num(10)), ShouldBeTrue)
			})
		})

		Convey("When a slot is submitted again in a later batch", func() {
			s.Ingest(ctx, []model.RawScore{raw(1, "test", 1, 10)})
			s.Ingest(ctx, []model.RawScore{raw(1, "test", 1, 20)})

			Convey("Then the later one is a duplicate as well", func() {
				So(len(s.ValidationErrors()), ShouldEqual, 1)
				So(errors.Is(s.ValidationErrors()[0].Error, validation.ErrDuplicateScore), ShouldBeTrue)
				So(s.Scoreboard()["test"][0].Highest.Equal(scoring.Num(10)), ShouldBeTrue)
			})
		})

		Convey("When a team was removed before ingestion", func() {
			teams.Remove(1)
			s.Ingest(ctx, []model.RawScore{raw(1, "test", 1, 10)})

			Convey("Then its scores are unknown team errors", func() {
				So(errors.Is(s.ValidationErrors()[0].Error, validation.ErrUnknownTeam), ShouldBeTrue)
			})
		})

		Convey("When a team is removed after ingestion and the store is refreshed", func() {
			s.Ingest(ctx, []model.RawScore{raw(1, "test", 1, 10), raw(2, "test", 1, 5)})
			teams.Remove(1)
			s.Refresh(ctx)

			Convey("Then its records are reclassified", func() {
				errs := s.ValidationErrors()
				So(len(errs), ShouldEqual, 1)
				So(errs[0].TeamNumber, ShouldEqual, 1)
				So(rows(s.Scoreboard()["test"]), ShouldResemble, []row{{1, 2}})
			})
		})

		Convey("When records are updated and removed by id", func() {
			s.Ingest(ctx, []model.RawScore{raw(1, "test", 1, 10), raw(1, "test", 1, 20)})

			Convey("Then removing the accepted one promotes the duplicate", func() {
				So(s.Remove(ctx, "r1"), ShouldBeNil)
				So(s.ValidationErrors(), ShouldBeEmpty)
				So(s.Scoreboard()["test"][0].Highest.Equal(scoring.Num(20)), ShouldBeTrue)
			})

			Convey("Then updating keeps id and position", func() {
				So(s.Update(ctx, "r2", raw(1, "test", 2, "dnc")), ShouldBeNil)
				rec, err := s.Record("r2")
				So(err, ShouldBeNil)
				So(rec.Round, ShouldEqual, 2)
				So(rec.Valid(), ShouldBeTrue)
				So(s.Records()[1].ID, ShouldEqual, "r2")
			})

			Convey("Then unknown ids are not found", func() {
				So(errors.Is(s.Remove(ctx, "nope"), repository.ErrNotFound), ShouldBeTrue)
				So(errors.Is(s.Update(ctx, "nope", raw(1, "test", 1, 1)), repository.ErrNotFound), ShouldBeTrue)
				_, err := s.Record("nope")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When a slot is freed inside a batch", func() {
			s.Ingest(ctx, []model.RawScore{raw(1, "test", 1, 10)})
			s.BeginUpdate()

			Convey("Then a removed record's slot can be taken again at once", func() {
				So(s.Remove(ctx, "r1"), ShouldBeNil)
				rec := s.AddRawScore(ctx, raw(1, "test", 1, 30))
				So(rec.Valid(), ShouldBeTrue)
				So(s.ValidationErrors(), ShouldBeEmpty)

				So(s.EndUpdate(ctx), ShouldBeNil)
				So(s.Scoreboard()["test"][0].Highest.Equal(scoring.Num(30)), ShouldBeTrue)
			})

			Convey("Then an updated record's old slot is released", func() {
				So(s.Update(ctx, "r1", raw(1, "test", 2, 10)), ShouldBeNil)
				added := s.AddRawScore(ctx, raw(1, "test", 1, 5))
				So(added.Valid(), ShouldBeTrue)
				So(s.EndUpdate(ctx), ShouldBeNil)
				So(s.ValidationErrors(), ShouldBeEmpty)
			})

			Convey("Then the replacement is classified before the batch closes", func() {
				So(s.Update(ctx, "r1", raw(1, "foo", 1, 10)), ShouldBeNil)
				rec, err := s.Record("r1")
				So(err, ShouldBeNil)
				So(errors.Is(rec.Error, validation.ErrUnknownStage), ShouldBeTrue)
				So(len(s.ValidationErrors()), ShouldEqual, 1)

				So(s.EndUpdate(ctx), ShouldBeNil)
				So(s.Scoreboard()["test"], ShouldBeEmpty)
			})

			Convey("Then a duplicate does not release the slot it lost", func() {
				dup := s.AddRawScore(ctx, raw(1, "test", 1, 20))
				So(errors.Is(dup.Error, validation.ErrDuplicateScore), ShouldBeTrue)
				So(s.Remove(ctx, dup.ID), ShouldBeNil)
				So(errors.Is(s.AddRawScore(ctx, raw(1, "test", 1, 40)).Error, validation.ErrDuplicateScore), ShouldBeTrue)
				So(s.EndUpdate(ctx), ShouldBeNil)
			})
		})

		Convey("When records are read back", func() {
			s.AddRawScore(ctx, raw(1, "test", 1, 10))
			recs := s.Records()
			recs[0].Score = 99

			Convey("Then callers get copies", func() {
				again, _ := s.Record("r1")
				So(again.Score, ShouldEqual, 10)
			})
		})
	})
}

package storage_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/scoreboard/internal/adapters/storage"
	"github.com/okian/scoreboard/internal/domain/types"
	"github.com/okian/scoreboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

const sample = `{
  "version": 1,
  "scores": [
    {"file": "somescore.json", "teamNumber": 123, "stageId": "test", "round": 1, "score": 150, "originalScore": 150, "published": false},
    {"teamNumber": 123, "stageId": "test", "round": 1.5, "score": "dnc", "published": true}
  ],
  "sheets": [{"page": 1}, "opaque"]
}`

func TestFileStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given a score file on disk", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "scores.json")
		So(os.WriteFile(path, []byte(sample), 0o600), ShouldBeNil)
		fs := storage.NewFileStore(path)

		Convey("When it is loaded", func() {
			c, err := fs.Load(ctx)
			So(err, ShouldBeNil)

			Convey("Then scores keep their raw shape", func() {
				So(c.Version, ShouldEqual, 1)
				So(len(c.Scores), ShouldEqual, 2)
				So(c.Scores[0].Raw().Score, ShouldEqual, json.Number("150"))
				So(c.Scores[1].Raw().Score, ShouldEqual, "dnc")
				So(len(c.Sheets), ShouldEqual, 2)
			})

			Convey("And a fractional round becomes round 0", func() {
				So(c.Scores[1].Raw().Round, ShouldEqual, 0)
			})

			Convey("And saving it again preserves the sheets", func() {
				out := filepath.Join(dir, "nested", "copy.json")
				So(storage.NewFileStore(out).Save(ctx, c), ShouldBeNil)

				again, err := storage.NewFileStore(out).Load(ctx)
				So(err, ShouldBeNil)
				So(len(again.Scores), ShouldEqual, 2)
				So(string(again.Sheets[0]), ShouldEqual, `{"page":1}`)
				So(string(again.Sheets[1]), ShouldEqual, `"opaque"`)

				entries, _ := os.ReadDir(filepath.Join(dir, "nested"))
				So(len(entries), ShouldEqual, 1)
			})
		})

		Convey("When the file does not exist", func() {
			c, err := storage.NewFileStore(filepath.Join(dir, "missing.json")).Load(ctx)

			Convey("Then an empty collection is returned", func() {
				So(err, ShouldBeNil)
				So(c.Scores, ShouldBeEmpty)
				So(c.Version, ShouldEqual, storage.CurrentVersion)
			})
		})

		Convey("When the file is malformed", func() {
			So(os.WriteFile(path, []byte(`{"version": 1, "scores": [`), 0o600), ShouldBeNil)
			_, err := fs.Load(ctx)
			So(errors.Is(err, storage.ErrLoad), ShouldBeTrue)
		})

		Convey("When one record has keys of the wrong type", func() {
			So(os.WriteFile(path, []byte(`{"version": 1, "scores": [
				{"teamNumber": true, "stageId": 7, "round": true, "score": 10},
				{"teamNumber": "123", "stageId": "test", "round": "2", "score": 20},
				"garbage",
				{"teamNumber": 123, "stageId": "test", "round": 1, "score": 150}
			]}`), 0o600), ShouldBeNil)
			c, err := fs.Load(ctx)

			Convey("Then the load still succeeds with every record", func() {
				So(err, ShouldBeNil)
				So(len(c.Scores), ShouldEqual, 4)
			})

			Convey("And unusable keys become values that cannot resolve", func() {
				bad := c.Scores[0].Raw()
				So(bad.TeamNumber, ShouldEqual, 0)
				So(bad.StageID, ShouldEqual, "7")
				So(bad.Round, ShouldEqual, 0)
				So(c.Scores[2].Raw(), ShouldResemble, types.Score{}.Raw())
			})

			Convey("And numeric strings resolve like numbers", func() {
				s := c.Scores[1].Raw()
				So(s.TeamNumber, ShouldEqual, 123)
				So(s.Round, ShouldEqual, 2)
			})

			Convey("And the good record is untouched", func() {
				s := c.Scores[3].Raw()
				So(s.TeamNumber, ShouldEqual, 123)
				So(s.StageID, ShouldEqual, "test")
				So(s.Round, ShouldEqual, 1)
				So(s.Score, ShouldEqual, json.Number("150"))
			})
		})

		Convey("When the version is missing", func() {
			So(os.WriteFile(path, []byte(`{"scores": []}`), 0o600), ShouldBeNil)
			_, err := fs.Load(ctx)
			So(errors.Is(err, storage.ErrLoad), ShouldBeTrue)
		})

		Convey("When saving an empty collection", func() {
			So(fs.Save(ctx, &storage.Collection{Scores: []types.Score{}}), ShouldBeNil)
			b, err := os.ReadFile(path)
			So(err, ShouldBeNil)

			Convey("Then the current version and empty lists are written", func() {
				var doc map[string]any
				So(json.Unmarshal(b, &doc), ShouldBeNil)
				So(doc["version"], ShouldEqual, float64(storage.CurrentVersion))
				So(doc["scores"], ShouldResemble, []any{})
				So(doc["sheets"], ShouldResemble, []any{})
			})
		})

		Convey("When the target directory cannot be written", func() {
			blocker := filepath.Join(dir, "file")
			So(os.WriteFile(blocker, nil, 0o600), ShouldBeNil)
			err := storage.NewFileStore(filepath.Join(blocker, "scores.json")).Save(ctx, &storage.Collection{})
			So(errors.Is(err, storage.ErrSave), ShouldBeTrue)
		})
	})
}

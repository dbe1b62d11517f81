package config_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/okian/scoreboard/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.ScoresFile, convey.ShouldEqual, "data/scores.json")
				convey.So(cfg.IntentQueueSize, convey.ShouldEqual, 1024)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("SCOREBOARD_ADDR", ":8080")
			_ = os.Setenv("SCOREBOARD_INTENT_QUEUE_SIZE", "16")
			_ = os.Setenv("SCOREBOARD_TEAMS_FILE", "/etc/scoreboard/teams.yaml")
			_ = os.Setenv("SCOREBOARD_LOG_LEVEL", "DEBUG")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.IntentQueueSize, convey.ShouldEqual, 16)
				convey.So(cfg.TeamsFile, convey.ShouldEqual, "/etc/scoreboard/teams.yaml")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			tmpFile := createTempConfigFile(t, `
addr: ":9090"
stages_file: stages.yaml
intent_worker_count: 2
intent_timeout: 3s
ranking_topic: board
`)
			_ = os.Setenv("SCOREBOARD_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load values from the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.StagesFile, convey.ShouldEqual, "stages.yaml")
				convey.So(cfg.IntentWorkerCount, convey.ShouldEqual, 2)
				convey.So(cfg.IntentTimeout, convey.ShouldEqual, 3*time.Second)
				convey.So(cfg.RankingTopic, convey.ShouldEqual, "board")
			})

			convey.Convey("And env vars take precedence over the file", func() {
				_ = os.Setenv("SCOREBOARD_ADDR", ":7070")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
			})
		})
	})
}

func TestConfigLoaderEdgeCases(t *testing.T) {
	convey.Convey("Given invalid configuration sources", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When the config file does not exist", func() {
			_ = os.Setenv("SCOREBOARD_CONFIG", "/non/existent/config.yaml")
			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the config file is malformed", func() {
			_ = os.Setenv("SCOREBOARD_CONFIG", createTempConfigFile(t, "invalid: yaml: content: ["))
			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When a number cannot be parsed", func() {
			_ = os.Setenv("SCOREBOARD_INTENT_QUEUE_SIZE", "many")
			_, err := config.Load(ctx)
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When the log format is unknown", func() {
			_ = os.Setenv("SCOREBOARD_LOG_FORMAT", "xml")
			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the address is empty", func() {
			_ = os.Setenv("SCOREBOARD_CONFIG", createTempConfigFile(t, `addr: ""`))
			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

func clearConfigEnvVars() {
	for _, name := range []string{
		"SCOREBOARD_CONFIG", "SCOREBOARD_ADDR", "SCOREBOARD_LOG_LEVEL", "SCOREBOARD_LOG_FORMAT",
		"SCOREBOARD_TEAMS_FILE", "SCOREBOARD_STAGES_FILE", "SCOREBOARD_SCORES_FILE",
		"SCOREBOARD_INTENT_QUEUE_SIZE", "SCOREBOARD_INTENT_WORKER_COUNT",
		"SCOREBOARD_SYNC_CHANNEL", "SCOREBOARD_RANKING_TOPIC",
	} {
		_ = os.Unsetenv(name)
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	f, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()
	return f.Name()
}

// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Functions accept context.Context as the first parameter.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"context"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`
	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`
	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// TeamsFile and StagesFile seed the registries (JSON or YAML lists).
	TeamsFile  string `koanf:"teams_file"`
	StagesFile string `koanf:"stages_file"`
	// ScoresFile is the persisted score collection used by load and save.
	ScoresFile string `koanf:"scores_file"`

	// IntentQueueSize bounds the pending synchronization intents.
	IntentQueueSize int `koanf:"intent_queue_size" validate:"gte=1"`
	// IntentWorkerCount sets the number of intent delivery workers; one keeps
	// intents in submission order.
	IntentWorkerCount int `koanf:"intent_worker_count" validate:"gte=1"`
	// IntentTimeout bounds a single delivery to the sync backend; 0 disables it.
	IntentTimeout time.Duration `koanf:"intent_timeout" validate:"gte=0"`
	// SyncChannel is the channel CRUD intents are published on.
	SyncChannel string `koanf:"sync_channel" validate:"required"`
	// RankingTopic is the topic stage selections are broadcast on.
	RankingTopic string `koanf:"ranking_topic" validate:"required"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		ScoresFile:        "data/scores.json",
		IntentQueueSize:   1024,
		IntentWorkerCount: 1,
		IntentTimeout:     10 * time.Second,
		SyncChannel:       "scores",
		RankingTopic:      "ranking",
	}
}

package service

import (
	"time"

	"github.com/okian/scoreboard/internal/adapters/mq/intent"
	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithTeamsFile sets the file the team registry is seeded from on Start.
func WithTeamsFile(path string) Option {
	return func(s *Service) { s.teamsFile = path }
}

// WithStagesFile sets the file the stage registry is seeded from on Start.
func WithStagesFile(path string) Option {
	return func(s *Service) { s.stagesFile = path }
}

// WithScoresFile sets the score collection used by Load and Save.
func WithScoresFile(path string) Option {
	return func(s *Service) { s.scoresFile = path }
}

// WithTeams seeds the team registry.
func WithTeams(teams ...model.Team) Option {
	return func(s *Service) { s.seedTeams = append(s.seedTeams, teams...) }
}

// WithStages seeds the stage registry.
func WithStages(stages ...model.Stage) Option {
	return func(s *Service) { s.seedStages = append(s.seedStages, stages...) }
}

// WithIntentQueueSize sets the maximum number of pending intents.
func WithIntentQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithIntentWorkerCount sets the number of intent delivery workers.
func WithIntentWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithIntentTimeout bounds each delivery to the sink.
func WithIntentTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.intentTimeout = d
		}
	}
}

// WithSyncChannel sets the channel CRUD intents are emitted on.
func WithSyncChannel(channel string) Option {
	return func(s *Service) {
		if channel != "" {
			s.syncChannel = channel
		}
	}
}

// WithRankingTopic sets the topic stage selections are broadcast on.
func WithRankingTopic(topic string) Option {
	return func(s *Service) {
		if topic != "" {
			s.rankingTopic = topic
		}
	}
}

// WithSink sets the synchronization sink. Without one the service publishes
// to an in-process pub/sub.
func WithSink(sink intent.Sink) Option {
	return func(s *Service) { s.sink = sink }
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

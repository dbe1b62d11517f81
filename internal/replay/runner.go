package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/scoreboard/internal/adapters/storage"
	"github.com/okian/scoreboard/internal/domain/registry"
	"github.com/okian/scoreboard/pkg/logger"
)

// Run executes a complete replay: health check, submission, and
// verification of the resulting scoreboard.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting score replay",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("scoresFile", cfg.ScoresFile),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
		logger.Bool("clear", cfg.Clear))

	teams := registry.NewTeamRegistry()
	if err := teams.LoadFile(ctx, cfg.TeamsFile); err != nil {
		return stats, err
	}
	stages := registry.NewStageRegistry()
	if err := stages.LoadFile(ctx, cfg.StagesFile); err != nil {
		return stats, err
	}

	collection, err := storage.NewFileStore(cfg.ScoresFile).Load(ctx)
	if err != nil {
		return stats, err
	}
	stats.ScoresRead = len(collection.Scores)

	client := NewClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: Check service health
	if err := client.Health(ctx); err != nil {
		return stats, err
	}

	// Step 2: Start from an empty service if asked to
	if cfg.Clear {
		if err := client.Clear(ctx); err != nil {
			return stats, fmt.Errorf("clearing scores failed: %w", err)
		}
	}

	// Step 3: Submit scores concurrently
	if err := submitScores(ctx, cfg, client, collection.Scores, stats); err != nil {
		return stats, fmt.Errorf("score submission failed: %w", err)
	}

	// Step 4: Read back what the service stored
	records, err := client.Records(ctx)
	if err != nil {
		return stats, fmt.Errorf("record retrieval failed: %w", err)
	}
	stats.RecordsFetched = len(records)
	for _, r := range records {
		if r.Kind != "" {
			stats.InvalidRecords++
		}
	}

	board, err := client.Scoreboard(ctx)
	if err != nil {
		return stats, fmt.Errorf("scoreboard retrieval failed: %w", err)
	}

	// Step 5: Verify results
	verr := verifyResults(ctx, cfg, teams, stages, records, board, stats)

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if verr != nil {
		return stats, fmt.Errorf("result verification failed: %w", verr)
	}
	logger.Get().Info(ctx, "replay completed successfully")
	return stats, nil
}

// displayFinalStats logs the final replay statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var scoresPerSecond float64
	if stats.Duration > 0 {
		scoresPerSecond = float64(stats.ScoresSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("scoresRead", stats.ScoresRead),
		logger.Int("scoresSubmitted", stats.ScoresSubmitted),
		logger.Int("scoresCreated", stats.ScoresCreated),
		logger.Int("scoresDeferred", stats.ScoresDeferred),
		logger.Int("scoresFailed", stats.ScoresFailed),
		logger.Int("recordsFetched", stats.RecordsFetched),
		logger.Int("invalidRecords", stats.InvalidRecords),
		logger.Int("stagesCompared", stats.StagesCompared),
		logger.Duration("duration", stats.Duration),
		logger.Float64("scoresPerSecond", scoresPerSecond))
}

package replay

import (
	"context"
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/okian/scoreboard/internal/adapters/repository"
	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/domain/registry"
	"github.com/okian/scoreboard/internal/domain/types"
	"github.com/okian/scoreboard/pkg/logger"
)

// Expected recomputes the scoreboard from records in the order the service
// stored them, against the given registries.
func Expected(ctx context.Context, teams registry.Teams, stages registry.Stages, records []types.Record) (types.Scoreboard, []types.Record) {
	store := repository.NewStore(teams, stages)
	raws := make([]model.RawScore, len(records))
	for i, r := range records {
		raws[i] = r.Raw()
	}

	store.BeginUpdate()
	store.Ingest(ctx, raws)
	_ = store.EndUpdate(ctx)

	local := store.Records()
	out := make([]types.Record, len(local))
	for i, r := range local {
		out[i] = types.NewRecord(r)
	}
	return types.NewScoreboard(store.Scoreboard()), out
}

// verifyResults compares the service's view with the local recomputation.
func verifyResults(ctx context.Context, cfg *Config, teams registry.Teams, stages registry.Stages,
	records []types.Record, remote types.Scoreboard, stats *Stats,
) error {
	logger.Get().Info(ctx, "verifying results")

	board, local := Expected(ctx, teams, stages, records)
	stats.StagesCompared = len(board)

	var mismatches int
	for i := range records {
		if records[i].Kind != local[i].Kind {
			mismatches++
			if cfg.Verbose {
				logger.Get().Warn(ctx, "validation outcome differs",
					logger.String("id", records[i].ID),
					logger.String("remote", records[i].Kind),
					logger.String("local", local[i].Kind))
			}
		}
	}

	if diff := cmp.Diff(board, remote, cmpopts.EquateEmpty()); diff != "" {
		if cfg.Verbose {
			logger.Get().Warn(ctx, "scoreboard differs (-local +remote)", logger.String("diff", diff))
		}
		return fmt.Errorf("%w: scoreboards differ", ErrMismatch)
	}
	if mismatches > 0 {
		return fmt.Errorf("%w: %d validation outcomes differ", ErrMismatch, mismatches)
	}

	displayLeaders(ctx, remote)
	logger.Get().Info(ctx, "result verification completed", logger.Int("stages", stats.StagesCompared))
	return nil
}

// displayLeaders logs the rank 1 entries of every stage.
func displayLeaders(ctx context.Context, board types.Scoreboard) {
	for stageID, entries := range board {
		for _, e := range entries {
			if e.Rank != 1 {
				break
			}
			logger.Get().Info(ctx, "leader",
				logger.String("stage", stageID),
				logger.Int("team", e.TeamNumber),
				logger.String("name", e.TeamName),
				logger.String("highest", e.Highest.String()))
		}
	}
}

// Package validation classifies raw score submissions against the team and
// stage registries and the slots already taken by valid scores.
//
// Checks run in a fixed order and the first failure decides the error:
// team, stage, round range, score shape, duplicate.
package validation

import (
	"context"

	"github.com/okian/scoreboard/internal/domain/dedupe"
	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/domain/registry"
	"github.com/okian/scoreboard/internal/domain/scoring"
)

// Validator resolves and classifies score records.
type Validator struct {
	teams    registry.Teams
	stages   registry.Stages
	accepted dedupe.Deduper
}

// New creates a Validator. accepted holds the keys of valid records seen so
// far and is shared with the owner that resets it.
func New(teams registry.Teams, stages registry.Stages, accepted dedupe.Deduper) *Validator {
	return &Validator{teams: teams, stages: stages, accepted: accepted}
}

// Validate resolves rec in place and returns its validation error, which is
// also stored in rec.Error. References are resolved as far as the checks got;
// a valid record claims its slot.
func (v *Validator) Validate(ctx context.Context, rec *model.ScoreRecord) error {
	rec.Team, rec.Stage, rec.Value, rec.Error = nil, nil, scoring.AbsentValue(), nil
	rec.Error = v.classify(ctx, rec)
	return rec.Error
}

func (v *Validator) classify(ctx context.Context, rec *model.ScoreRecord) error {
	team, ok := v.teams.TeamByNumber(rec.TeamNumber)
	if !ok {
		return &UnknownTeamError{record: rec}
	}
	rec.Team = team

	stage, ok := v.stages.StageByID(rec.StageID)
	if !ok {
		return &UnknownStageError{record: rec}
	}
	rec.Stage = stage

	if rec.Round < 1 || rec.Round > stage.Rounds {
		return &UnknownRoundError{record: rec}
	}
	value, err := scoring.Parse(rec.Score)
	if err != nil {
		return &InvalidScoreError{record: rec, cause: err}
	}
	if v.accepted.SeenAndRecord(ctx, rec.Key(), rec.ID) {
		original, _ := v.accepted.Owner(ctx, rec.Key())
		return &DuplicateScoreError{record: rec, Original: original}
	}

	rec.Value = value
	return nil
}

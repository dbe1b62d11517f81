package validation

import (
	"errors"
	"fmt"

	"github.com/okian/scoreboard/internal/domain/model"
)

// Sentinel kinds; every validation error unwraps to exactly one of them.
var (
	ErrUnknownTeam    = errors.New("unknown team")
	ErrUnknownStage   = errors.New("unknown stage")
	ErrUnknownRound   = errors.New("unknown round")
	ErrInvalidScore   = errors.New("invalid score")
	ErrDuplicateScore = errors.New("duplicate score")
)

// Error is implemented by every validation error.
type Error interface {
	error
	Record() *model.ScoreRecord
	Kind() string
}

// UnknownTeamError: the team number is not in the team registry.
type UnknownTeamError struct{ record *model.ScoreRecord }

// UnknownStageError: the stage id is not in the stage registry.
type UnknownStageError struct{ record *model.ScoreRecord }

// UnknownRoundError: the round is outside 1..stage.Rounds.
type UnknownRoundError struct{ record *model.ScoreRecord }

// InvalidScoreError: the score is neither a finite number nor a sentinel.
type InvalidScoreError struct {
	record *model.ScoreRecord
	cause  error
}

// DuplicateScoreError: a valid score for the same team, stage and round was
// accepted earlier.
type DuplicateScoreError struct {
	record   *model.ScoreRecord
	Original string
}

func (e *UnknownTeamError) Error() string {
	return fmt.Sprintf("unknown team %d", e.record.TeamNumber)
}
func (e *UnknownTeamError) Unwrap() error              { return ErrUnknownTeam }
func (e *UnknownTeamError) Record() *model.ScoreRecord { return e.record }
func (e *UnknownTeamError) Kind() string               { return "unknown_team" }

func (e *UnknownStageError) Error() string {
	return fmt.Sprintf("unknown stage %q", e.record.StageID)
}
func (e *UnknownStageError) Unwrap() error              { return ErrUnknownStage }
func (e *UnknownStageError) Record() *model.ScoreRecord { return e.record }
func (e *UnknownStageError) Kind() string               { return "unknown_stage" }

func (e *UnknownRoundError) Error() string {
	return fmt.Sprintf("unknown round %d for stage %q", e.record.Round, e.record.StageID)
}
func (e *UnknownRoundError) Unwrap() error              { return ErrUnknownRound }
func (e *UnknownRoundError) Record() *model.ScoreRecord { return e.record }
func (e *UnknownRoundError) Kind() string               { return "unknown_round" }

func (e *InvalidScoreError) Error() string {
	return fmt.Sprintf("invalid score for team %d stage %q round %d: %v",
		e.record.TeamNumber, e.record.StageID, e.record.Round, e.cause)
}
func (e *InvalidScoreError) Unwrap() []error            { return []error{ErrInvalidScore, e.cause} }
func (e *InvalidScoreError) Record() *model.ScoreRecord { return e.record }
func (e *InvalidScoreError) Kind() string               { return "invalid_score" }

func (e *DuplicateScoreError) Error() string {
	return fmt.Sprintf("duplicate score for team %d stage %q round %d",
		e.record.TeamNumber, e.record.StageID, e.record.Round)
}
func (e *DuplicateScoreError) Unwrap() error              { return ErrDuplicateScore }
func (e *DuplicateScoreError) Record() *model.ScoreRecord { return e.record }
func (e *DuplicateScoreError) Kind() string               { return "duplicate_score" }

// KindOf returns the stable tag of a validation error, or "" for nil and
// foreign errors.
func KindOf(err error) string {
	var verr Error
	if errors.As(err, &verr) {
		return verr.Kind()
	}
	return ""
}

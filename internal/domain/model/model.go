// Package model contains domain models passed between layers.
package model

import (
	"fmt"

	"github.com/okian/scoreboard/internal/domain/scoring"
)

// Team is owned by the team registry; everything else holds a pointer.
type Team struct {
	Number int    `json:"number" yaml:"number"`
	Name   string `json:"name" yaml:"name"`
}

// Stage is owned by the stage registry; everything else holds a pointer.
type Stage struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Rounds int    `json:"rounds" yaml:"rounds"`
}

// RawScore is a submission before validation. Team and stage are referenced
// by key and resolved against the registries.
type RawScore struct {
	ID            string
	File          string
	TeamNumber    int
	StageID       string
	Round         int
	Score         any
	OriginalScore any
	Published     bool
	Edited        string
	Table         string
}

// ScoreRecord is one ingested submission. Records with a non-nil Error stay
// in the store but never take part in ranking.
type ScoreRecord struct {
	ID            string
	File          string
	TeamNumber    int
	StageID       string
	Round         int
	Score         any
	OriginalScore any
	Published     bool
	Edited        string
	Table         string

	// Resolved by validation; nil while unresolved.
	Team  *Team
	Stage *Stage
	// Parsed Score, meaningful only when Error is nil.
	Value scoring.Value
	Error error
}

// NewScoreRecord builds an unvalidated record from a submission.
func NewScoreRecord(raw RawScore) *ScoreRecord {
	return &ScoreRecord{
		ID:            raw.ID,
		File:          raw.File,
		TeamNumber:    raw.TeamNumber,
		StageID:       raw.StageID,
		Round:         raw.Round,
		Score:         raw.Score,
		OriginalScore: raw.OriginalScore,
		Published:     raw.Published,
		Edited:        raw.Edited,
		Table:         raw.Table,
	}
}

// Raw returns the submission the record was built from.
func (r *ScoreRecord) Raw() RawScore {
	return RawScore{
		ID:            r.ID,
		File:          r.File,
		TeamNumber:    r.TeamNumber,
		StageID:       r.StageID,
		Round:         r.Round,
		Score:         r.Score,
		OriginalScore: r.OriginalScore,
		Published:     r.Published,
		Edited:        r.Edited,
		Table:         r.Table,
	}
}

// Valid reports whether the record passed validation.
func (r *ScoreRecord) Valid() bool { return r.Error == nil }

// Key identifies a (team, stage, round) slot.
func (r *ScoreRecord) Key() Key {
	return Key{TeamNumber: r.TeamNumber, StageID: r.StageID, Round: r.Round}
}

// Key identifies a (team, stage, round) slot; at most one valid record per key.
type Key struct {
	TeamNumber int
	StageID    string
	Round      int
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%s/%d", k.TeamNumber, k.StageID, k.Round)
}

// LeaderboardEntry is one team's row on a stage leaderboard.
type LeaderboardEntry struct {
	Team    *Team
	Scores  []scoring.Value
	Highest scoring.Value
	Rank    int
}

// Scoreboard maps every known stage id to its ordered leaderboard.
type Scoreboard map[string][]LeaderboardEntry

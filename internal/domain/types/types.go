// Package types contains the wire shapes shared by the HTTP API and the
// score file.
package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/domain/scoring"
	"github.com/okian/scoreboard/internal/domain/validation"
)

// Score is the persisted and transported form of one score record.
type Score struct {
	ID            string      `json:"id,omitempty"`
	File          string      `json:"file,omitempty"`
	TeamNumber    int         `json:"teamNumber"`
	StageID       string      `json:"stageId"`
	Round         json.Number `json:"round"`
	Score         any         `json:"score"`
	OriginalScore any         `json:"originalScore,omitempty"`
	Published     bool        `json:"published"`
	Edited        string      `json:"edited,omitempty"`
	Table         string      `json:"table,omitempty"`
}

// Raw converts the wire form to a submission. A round that is not an integer
// becomes 0, which validation reports as an unknown round.
func (s Score) Raw() model.RawScore {
	return model.RawScore{
		ID:            s.ID,
		File:          s.File,
		TeamNumber:    s.TeamNumber,
		StageID:       s.StageID,
		Round:         roundNumber(s.Round),
		Score:         s.Score,
		OriginalScore: s.OriginalScore,
		Published:     s.Published,
		Edited:        s.Edited,
		Table:         s.Table,
	}
}

func roundNumber(n json.Number) int {
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0
	}
	return int(f)
}

// ErrNotObject is returned by DecodeScore for JSON that is not an object.
var ErrNotObject = errors.New("score is not a JSON object")

// DecodeScore parses one score leniently. Keys of the wrong type are mapped
// to values that cannot resolve (team 0, stage "", round 0) so validation
// classifies the record instead of the decode failing. Only malformed JSON
// and non-objects are errors.
func DecodeScore(b []byte) (Score, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Score{}, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return Score{}, ErrNotObject
	}
	published, _ := m["published"].(bool)
	return Score{
		ID:            text(m["id"]),
		File:          text(m["file"]),
		TeamNumber:    teamNumber(m["teamNumber"]),
		StageID:       stageID(m["stageId"]),
		Round:         round(m["round"]),
		Score:         m["score"],
		OriginalScore: m["originalScore"],
		Published:     published,
		Edited:        text(m["edited"]),
		Table:         text(m["table"]),
	}, nil
}

func text(v any) string {
	s, _ := v.(string)
	return s
}

// teamNumber accepts integral numbers and integer strings.
func teamNumber(v any) int {
	var f float64
	switch t := v.(type) {
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return 0
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		f = n
	default:
		return 0
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0
	}
	return int(f)
}

// stageID accepts strings and numbers, the latter by their literal text.
func stageID(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

func round(v any) json.Number {
	switch t := v.(type) {
	case json.Number:
		return t
	case string:
		t = strings.TrimSpace(t)
		if _, err := strconv.ParseFloat(t, 64); err != nil || !json.Valid([]byte(t)) {
			return ""
		}
		return json.Number(t)
	default:
		return ""
	}
}

// FromRecord converts a stored record to its wire form.
func FromRecord(r *model.ScoreRecord) Score {
	return Score{
		ID:            r.ID,
		File:          r.File,
		TeamNumber:    r.TeamNumber,
		StageID:       r.StageID,
		Round:         json.Number(strconv.Itoa(r.Round)),
		Score:         r.Score,
		OriginalScore: r.OriginalScore,
		Published:     r.Published,
		Edited:        r.Edited,
		Table:         r.Table,
	}
}

// Record is a stored score with its validation outcome.
type Record struct {
	Score
	Error string `json:"error,omitempty"`
	Kind  string `json:"errorKind,omitempty"`
}

// NewRecord converts a stored record for display.
func NewRecord(r *model.ScoreRecord) Record {
	out := Record{Score: FromRecord(r)}
	if r.Error != nil {
		out.Error = r.Error.Error()
		out.Kind = validation.KindOf(r.Error)
	}
	return out
}

// Entry is one leaderboard row.
type Entry struct {
	Rank       int             `json:"rank"`
	TeamNumber int             `json:"teamNumber"`
	TeamName   string          `json:"teamName"`
	Scores     []scoring.Value `json:"scores"`
	Highest    scoring.Value   `json:"highest"`
}

// Scoreboard maps stage ids to leaderboards.
type Scoreboard map[string][]Entry

// NewScoreboard converts a domain scoreboard for transport.
func NewScoreboard(board model.Scoreboard) Scoreboard {
	out := make(Scoreboard, len(board))
	for id, entries := range board {
		rows := make([]Entry, len(entries))
		for i, e := range entries {
			rows[i] = Entry{Rank: e.Rank, Scores: e.Scores, Highest: e.Highest}
			if e.Team != nil {
				rows[i].TeamNumber = e.Team.Number
				rows[i].TeamName = e.Team.Name
			}
		}
		out[id] = rows
	}
	return out
}

// ValidationIssue is one entry of the validation error list.
type ValidationIssue struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Record  Score  `json:"record"`
}

// NewValidationIssues converts records tagged with errors, keeping order.
func NewValidationIssues(records []*model.ScoreRecord) []ValidationIssue {
	out := make([]ValidationIssue, 0, len(records))
	for _, r := range records {
		if r.Error == nil {
			continue
		}
		out = append(out, ValidationIssue{
			Kind:    validation.KindOf(r.Error),
			Message: r.Error.Error(),
			Record:  FromRecord(r),
		})
	}
	return out
}

// StageSelection is broadcast when a stage becomes the active one.
type StageSelection struct {
	Stage       model.Stage `json:"stage"`
	Leaderboard []Entry     `json:"leaderboard"`
}

// LoadSummary reports the outcome of loading the score file.
type LoadSummary struct {
	Scores  int `json:"scores"`
	Invalid int `json:"invalid"`
	Sheets  int `json:"sheets"`
}

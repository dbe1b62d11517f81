// Package ranking builds stage leaderboards from validated score records.
//
// Ordering: each team's round values are sorted best to worst and the sorted
// sequences are compared lexicographically with scoring.Compare. Teams with
// identical sorted sequences share a rank; the next group gets rank+1. Within
// a shared rank teams are listed by ascending number.
package ranking

import (
	"slices"
	"sort"

	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/domain/registry"
	"github.com/okian/scoreboard/internal/domain/scoring"
)

// row is a leaderboard entry plus its sorted scores used as the sort key.
type row struct {
	entry  model.LeaderboardEntry
	sorted []scoring.Value
}

// Build returns the leaderboard of stage over rounds 1..rounds. Records with a
// validation error, of another stage, or outside the round window are ignored.
// A team appears iff it has at least one record inside the window.
func Build(stage *model.Stage, records []*model.ScoreRecord, rounds int) []model.LeaderboardEntry {
	if stage == nil {
		return []model.LeaderboardEntry{}
	}
	rounds = min(max(rounds, 0), stage.Rounds)

	byTeam := make(map[int]*row)
	var order []int
	for _, rec := range records {
		if !rec.Valid() || rec.StageID != stage.ID || rec.Round < 1 || rec.Round > rounds {
			continue
		}
		r, ok := byTeam[rec.TeamNumber]
		if !ok {
			r = &row{entry: model.LeaderboardEntry{
				Team:   rec.Team,
				Scores: make([]scoring.Value, rounds),
			}}
			byTeam[rec.TeamNumber] = r
			order = append(order, rec.TeamNumber)
		}
		r.entry.Scores[rec.Round-1] = rec.Value
	}

	rows := make([]*row, 0, len(order))
	for _, n := range order {
		r := byTeam[n]
		r.entry.Highest = scoring.Best(r.entry.Scores)
		r.sorted = sortedBestFirst(r.entry.Scores)
		rows = append(rows, r)
	}

	sortRows(rows)
	assignRanksWithTies(rows)

	out := make([]model.LeaderboardEntry, len(rows))
	for i, r := range rows {
		out[i] = r.entry
	}
	return out
}

// BuildAll ranks every stage known to stages, so stages without scores map to
// an empty leaderboard. limits optionally restricts a stage to its first n
// rounds.
func BuildAll(stages registry.Stages, records []*model.ScoreRecord, limits map[string]int) model.Scoreboard {
	ids := stages.StageIDs()
	board := make(model.Scoreboard, len(ids))
	for _, id := range ids {
		stage, ok := stages.StageByID(id)
		if !ok {
			board[id] = []model.LeaderboardEntry{}
			continue
		}
		rounds := stage.Rounds
		if n, ok := limits[id]; ok {
			rounds = n
		}
		board[id] = Build(stage, records, rounds)
	}
	return board
}

func sortedBestFirst(vs []scoring.Value) []scoring.Value {
	sorted := slices.Clone(vs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return scoring.Compare(sorted[i], sorted[j]) < 0
	})
	return sorted
}

// compareSorted compares two best-first sequences; the first differing
// position decides.
func compareSorted(a, b []scoring.Value) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := scoring.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

func teamNumber(r *row) int {
	if r.entry.Team == nil {
		return 0
	}
	return r.entry.Team.Number
}

func sortRows(rows []*row) {
	sort.Slice(rows, func(i, j int) bool {
		if c := compareSorted(rows[i].sorted, rows[j].sorted); c != 0 {
			return c < 0
		}
		return teamNumber(rows[i]) < teamNumber(rows[j])
	})
}

// assignRanksWithTies gives every tie-group one rank; ranks are consecutive.
func assignRanksWithTies(rows []*row) {
	currentRank := 0
	for i, r := range rows {
		if i == 0 || compareSorted(rows[i-1].sorted, r.sorted) != 0 {
			currentRank++
		}
		r.entry.Rank = currentRank
	}
}

// Package registry holds the team and stage tables the score engine resolves
// submissions against. The tables own their entries; callers keep pointers.
package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/okian/scoreboard/internal/domain/model"
)

// Sentinel errors for registry operations.
var (
	ErrInvalidTeam  = errors.New("invalid team")
	ErrInvalidStage = errors.New("invalid stage")
	ErrLoad         = errors.New("load registry failed")
)

// Teams resolves teams by number.
type Teams interface {
	TeamByNumber(number int) (*model.Team, bool)
}

// Stages resolves stages by id and enumerates them in registry order.
type Stages interface {
	StageByID(id string) (*model.Stage, bool)
	StageIDs() []string
}

// TeamRegistry is an in-memory Teams implementation.
type TeamRegistry struct {
	mu    sync.RWMutex
	teams map[int]*model.Team
	order []int
}

// NewTeamRegistry creates a registry holding teams.
func NewTeamRegistry(teams ...model.Team) *TeamRegistry {
	r := &TeamRegistry{teams: make(map[int]*model.Team)}
	for _, t := range teams {
		_, _ = r.Add(t)
	}
	return r
}

// Add inserts a team or replaces the one with the same number and returns the
// stored entry.
func (r *TeamRegistry) Add(team model.Team) (*model.Team, error) {
	if team.Number <= 0 {
		return nil, fmt.Errorf("%w: number %d must be positive", ErrInvalidTeam, team.Number)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	t := &model.Team{Number: team.Number, Name: team.Name}
	if _, exists := r.teams[team.Number]; !exists {
		r.order = append(r.order, team.Number)
	}
	r.teams[team.Number] = t
	return t, nil
}

// Remove deletes a team; it reports whether the team existed.
func (r *TeamRegistry) Remove(number int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.teams[number]; !exists {
		return false
	}
	delete(r.teams, number)
	for i, n := range r.order {
		if n == number {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Clear removes every team.
func (r *TeamRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.teams = make(map[int]*model.Team)
	r.order = nil
}

// TeamByNumber implements Teams.
func (r *TeamRegistry) TeamByNumber(number int) (*model.Team, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.teams[number]
	return t, ok
}

// All returns the registered teams in insertion order.
func (r *TeamRegistry) All() []*model.Team {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.Team, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.teams[n])
	}
	return out
}

// LoadFile replaces the registry content with the team list in path.
// JSON files load as well since the decoder reads YAML.
func (r *TeamRegistry) LoadFile(_ context.Context, path string) error {
	var teams []model.Team
	if err := readList(path, &teams); err != nil {
		return err
	}
	r.Clear()
	for _, t := range teams {
		if _, err := r.Add(t); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrLoad, path, err)
		}
	}
	return nil
}

// StageRegistry is an in-memory Stages implementation.
type StageRegistry struct {
	mu     sync.RWMutex
	stages map[string]*model.Stage
	order  []string
}

// NewStageRegistry creates a registry holding stages.
func NewStageRegistry(stages ...model.Stage) *StageRegistry {
	r := &StageRegistry{stages: make(map[string]*model.Stage)}
	for _, s := range stages {
		_, _ = r.Add(s)
	}
	return r
}

// Add inserts a stage or replaces the one with the same id. A missing id is
// derived from the name with spaces replaced by underscores.
func (r *StageRegistry) Add(stage model.Stage) (*model.Stage, error) {
	id := stage.ID
	if id == "" {
		id = strings.ReplaceAll(strings.TrimSpace(stage.Name), " ", "_")
	}
	if id == "" {
		return nil, fmt.Errorf("%w: id or name required", ErrInvalidStage)
	}
	if stage.Rounds < 0 {
		return nil, fmt.Errorf("%w: %s has negative rounds", ErrInvalidStage, id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s := &model.Stage{ID: id, Name: stage.Name, Rounds: stage.Rounds}
	if _, exists := r.stages[id]; !exists {
		r.order = append(r.order, id)
	}
	r.stages[id] = s
	return s, nil
}

// Remove deletes a stage; it reports whether the stage existed.
func (r *StageRegistry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.stages[id]; !exists {
		return false
	}
	delete(r.stages, id)
	for i, s := range r.order {
		if s == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Clear removes every stage.
func (r *StageRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = make(map[string]*model.Stage)
	r.order = nil
}

// StageByID implements Stages.
func (r *StageRegistry) StageByID(id string) (*model.Stage, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stages[id]
	return s, ok
}

// StageIDs implements Stages.
func (r *StageRegistry) StageIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// LoadFile replaces the registry content with the stage list in path.
func (r *StageRegistry) LoadFile(_ context.Context, path string) error {
	var stages []model.Stage
	if err := readList(path, &stages); err != nil {
		return err
	}
	r.Clear()
	for _, s := range stages {
		if _, err := r.Add(s); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrLoad, path, err)
		}
	}
	return nil
}

func readList(path string, out any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoad, err)
	}
	if err := yaml.Unmarshal(b, out); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrLoad, path, err)
	}
	return nil
}

// Package repository holds the score record store: the ordered sequence of
// ingested records, the derived validation error list and the published
// scoreboard.
package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/scoreboard/internal/domain/dedupe"
	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/domain/ranking"
	"github.com/okian/scoreboard/internal/domain/registry"
	"github.com/okian/scoreboard/internal/domain/validation"
	"github.com/okian/scoreboard/pkg/logger"
	"github.com/okian/scoreboard/pkg/metrics"
)

// Snapshot is the immutable read model published after every completed
// recomputation.
type Snapshot struct {
	Scoreboard model.Scoreboard
	// Valid holds copies of the records the scoreboard was built from, so
	// filtered rankings see the same state as the scoreboard.
	Valid []*model.ScoreRecord
	// Stages maps every stage id of the scoreboard to a copy of its stage.
	Stages map[string]*model.Stage
	Built  time.Time
}

// Store serializes all mutations behind a mutex and publishes a Snapshot
// through an atomic pointer; readers never observe a partially applied batch.
type Store struct {
	teams     registry.Teams
	stages    registry.Stages
	accepted  dedupe.Deduper
	validator *validation.Validator
	newID     func() string

	mu      sync.Mutex
	records []*model.ScoreRecord
	errors  []*model.ScoreRecord
	depth   int
	dirty   bool

	snapshot atomic.Pointer[Snapshot]
}

// NewStore creates an empty store validating against teams and stages.
func NewStore(teams registry.Teams, stages registry.Stages, opts ...Option) *Store {
	s := &Store{
		teams:  teams,
		stages: stages,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.resetAcceptedLocked(0)

	s.mu.Lock()
	s.recomputeLocked(context.Background())
	s.mu.Unlock()
	return s
}

// Clear empties the record sequence and the error list.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	s.errors = nil
	s.accepted.Reset(ctx)
	s.markDirtyLocked(ctx)
	logger.Get().Debug(ctx, "score store cleared")
}

// BeginUpdate opens a batch; recomputation is deferred until the outermost
// batch is closed.
func (s *Store) BeginUpdate() {
	s.mu.Lock()
	s.depth++
	s.mu.Unlock()
}

// EndUpdate closes a batch and recomputes if it was the outermost one and
// anything changed.
func (s *Store) EndUpdate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.depth == 0 {
		return ErrNoBatch
	}
	s.depth--
	if s.depth == 0 && s.dirty {
		s.recomputeLocked(ctx)
	}
	return nil
}

// AddRawScore validates raw, appends the resulting record and returns a copy
// of it. Validation errors are attached to the record, never returned.
func (s *Store) AddRawScore(ctx context.Context, raw model.RawScore) model.ScoreRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.addLocked(ctx, raw)
	out := *rec
	s.markDirtyLocked(ctx)
	return out
}

// Ingest adds raws as one batch and returns how many of them were invalid.
func (s *Store) Ingest(ctx context.Context, raws []model.RawScore) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.records) == 0 && len(raws) > 0 {
		s.resetAcceptedLocked(len(raws))
	}
	invalid := 0
	for _, raw := range raws {
		if !s.addLocked(ctx, raw).Valid() {
			invalid++
		}
	}
	if len(raws) > 0 {
		s.markDirtyLocked(ctx)
	}
	logger.Get().Info(ctx, "scores ingested",
		logger.Int("count", len(raws)),
		logger.Int("invalid", invalid))
	return invalid
}

func (s *Store) addLocked(ctx context.Context, raw model.RawScore) *model.ScoreRecord {
	if raw.ID == "" {
		raw.ID = s.newID()
	}
	rec := s.validateLocked(ctx, model.NewScoreRecord(raw))
	s.records = append(s.records, rec)
	return rec
}

// validateLocked classifies rec against the current accepted set, so records
// added inside a batch carry their outcome before the batch closes.
func (s *Store) validateLocked(ctx context.Context, rec *model.ScoreRecord) *model.ScoreRecord {
	if err := s.validator.Validate(ctx, rec); err != nil {
		s.errors = append(s.errors, rec)
		metrics.RecordScoreIngested(validation.KindOf(err))
		logger.Get().Debug(ctx, "score rejected",
			logger.String("id", rec.ID),
			logger.String("key", rec.Key().String()),
			logger.Error(err))
	} else {
		metrics.RecordScoreIngested("valid")
	}
	return rec
}

// releaseLocked frees the slot held by rec so a later record may take it.
func (s *Store) releaseLocked(ctx context.Context, rec *model.ScoreRecord) {
	if !rec.Valid() {
		return
	}
	if owner, ok := s.accepted.Owner(ctx, rec.Key()); ok && owner == rec.ID {
		s.accepted.Unrecord(ctx, rec.Key())
	}
}

func (s *Store) resetAcceptedLocked(capacity int) {
	s.accepted = dedupe.NewInMemoryDeduper(dedupe.WithCapacityHint(capacity))
	s.validator = validation.New(s.teams, s.stages, s.accepted)
}

// Update replaces the record identified by id with raw, keeping the id and
// the record's position.
func (s *Store) Update(ctx context.Context, id string, raw model.RawScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		metrics.RecordErrorByComponent("repository", "not_found")
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	raw.ID = id
	s.releaseLocked(ctx, s.records[i])
	s.dropErrorLocked(id)
	s.records[i] = s.validateLocked(ctx, model.NewScoreRecord(raw))
	s.markDirtyLocked(ctx)
	return nil
}

// Remove deletes the record identified by id.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		metrics.RecordErrorByComponent("repository", "not_found")
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.releaseLocked(ctx, s.records[i])
	s.records = slices.Delete(s.records, i, i+1)
	s.dropErrorLocked(id)
	s.markDirtyLocked(ctx)
	return nil
}

// Refresh revalidates every record against the current registries and
// rebuilds the scoreboard, e.g. after teams or stages changed.
func (s *Store) Refresh(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markDirtyLocked(ctx)
}

// Record returns a copy of the record identified by id.
func (s *Store) Record(id string) (model.ScoreRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return model.ScoreRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return *s.records[i], nil
}

// Records returns copies of all records in insertion order.
func (s *Store) Records() []*model.ScoreRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRecords(s.records)
}

// ValidationErrors returns copies of the records tagged with an error, in the
// order they were added.
func (s *Store) ValidationErrors() []*model.ScoreRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRecords(s.errors)
}

// Count returns the number of records and how many of them are invalid.
func (s *Store) Count() (records, invalid int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records), len(s.errors)
}

// Scoreboard returns the full-round leaderboards of every known stage. The
// result is shared with other readers and must not be modified.
func (s *Store) Scoreboard() model.Scoreboard {
	metrics.RecordRankingQuery(false)
	return s.snapshot.Load().Scoreboard
}

// Rankings returns a new scoreboard in which every stage named in filter is
// ranked over its first n rounds only; other stages keep their full-round
// leaderboard. Stored state is not modified.
func (s *Store) Rankings(filter map[string]int) (model.Scoreboard, error) {
	snap := s.snapshot.Load()
	for id, n := range filter {
		stage, ok := snap.Stages[id]
		if !ok {
			metrics.RecordErrorByComponent("repository", "invalid_filter")
			return nil, fmt.Errorf("%w: unknown stage %q", ErrInvalidFilter, id)
		}
		if n < 1 || n > stage.Rounds {
			metrics.RecordErrorByComponent("repository", "invalid_filter")
			return nil, fmt.Errorf("%w: stage %q has %d rounds, got %d", ErrInvalidFilter, id, stage.Rounds, n)
		}
	}
	metrics.RecordRankingQuery(len(filter) > 0)

	out := make(model.Scoreboard, len(snap.Scoreboard))
	for id, entries := range snap.Scoreboard {
		n, ok := filter[id]
		if !ok {
			out[id] = entries
			continue
		}
		out[id] = ranking.Build(snap.Stages[id], snap.Valid, n)
	}
	return out, nil
}

func (s *Store) indexLocked(id string) int {
	return slices.IndexFunc(s.records, func(r *model.ScoreRecord) bool { return r.ID == id })
}

func (s *Store) dropErrorLocked(id string) {
	s.errors = slices.DeleteFunc(s.errors, func(r *model.ScoreRecord) bool { return r.ID == id })
}

func (s *Store) markDirtyLocked(ctx context.Context) {
	if s.depth > 0 {
		s.dirty = true
		return
	}
	s.recomputeLocked(ctx)
}

// recomputeLocked revalidates all records in insertion order, ranks every
// known stage and publishes the result.
func (s *Store) recomputeLocked(ctx context.Context) {
	start := time.Now()

	s.accepted.Reset(ctx)
	s.errors = s.errors[:0]
	for _, rec := range s.records {
		if err := s.validator.Validate(ctx, rec); err != nil {
			s.errors = append(s.errors, rec)
		}
	}

	valid := make([]*model.ScoreRecord, 0, len(s.records)-len(s.errors))
	for _, rec := range s.records {
		if rec.Valid() {
			c := *rec
			valid = append(valid, &c)
		}
	}

	board := ranking.BuildAll(s.stages, valid, nil)
	stages := make(map[string]*model.Stage, len(board))
	for id := range board {
		if stage, ok := s.stages.StageByID(id); ok {
			c := *stage
			stages[id] = &c
		}
	}

	s.snapshot.Store(&Snapshot{Scoreboard: board, Valid: valid, Stages: stages, Built: time.Now()})
	s.dirty = false

	metrics.ResetLeaderboardEntries()
	for id, entries := range board {
		metrics.UpdateLeaderboardEntries(id, len(entries))
	}
	metrics.UpdateRecordCounts(len(s.records), len(s.errors))
	metrics.RecordRecompute(float64(time.Since(start).Microseconds()) / 1000)

	logger.Get().Debug(ctx, "scoreboard recomputed",
		logger.Int("records", len(s.records)),
		logger.Int("invalid", len(s.errors)),
		logger.Int("stages", len(board)),
		logger.Duration("took", time.Since(start)))
}

func cloneRecords(in []*model.ScoreRecord) []*model.ScoreRecord {
	out := make([]*model.ScoreRecord, len(in))
	for i, rec := range in {
		c := *rec
		out[i] = &c
	}
	return out
}

// Package service provides the application service that implements the
// dependencies required by the HTTP API: score ingestion and projection,
// score file persistence and synchronization intents.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/okian/scoreboard/internal/adapters/mq/intent"
	"github.com/okian/scoreboard/internal/adapters/mq/queue"
	"github.com/okian/scoreboard/internal/adapters/mq/worker"
	"github.com/okian/scoreboard/internal/adapters/repository"
	"github.com/okian/scoreboard/internal/adapters/storage"
	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/domain/registry"
	"github.com/okian/scoreboard/internal/domain/types"
	"github.com/okian/scoreboard/pkg/logger"
	"github.com/okian/scoreboard/pkg/metrics"
)

// Intent paths emitted on the sync channel.
const (
	PathCreate = "/scores/create"
	PathUpdate = "/scores/update/"
	PathDelete = "/scores/delete/"
	PathSelect = "/stages/select/"
)

// Service wires the registries, the score store, the score file and the
// intent dispatcher.
type Service struct {
	mu sync.RWMutex

	// Core components
	teams  *registry.TeamRegistry
	stages *registry.StageRegistry
	store  *repository.Store
	files  *storage.FileStore
	queue  *queue.InMemoryQueue
	pool   *worker.Pool
	sink   intent.Sink
	pubsub *gochannel.GoChannel

	// Configuration
	teamsFile     string
	stagesFile    string
	scoresFile    string
	queueSize     int
	workerCount   int
	intentTimeout time.Duration
	syncChannel   string
	rankingTopic  string
	seedTeams     []model.Team
	seedStages    []model.Stage
	seedErr       error

	// State
	sheets      []json.RawMessage
	activeStage string
	started     bool

	logger logger.Logger
}

// New constructs a Service. Registries and the store are usable right away;
// intents need Start.
func New(opts ...Option) *Service {
	s := &Service{
		queueSize:     1024,
		workerCount:   1,
		intentTimeout: 10 * time.Second,
		syncChannel:   "scores",
		rankingTopic:  "ranking",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.teams = registry.NewTeamRegistry()
	s.stages = registry.NewStageRegistry()
	var errs []error
	for _, t := range s.seedTeams {
		if _, err := s.teams.Add(t); err != nil {
			errs = append(errs, err)
		}
	}
	for _, st := range s.seedStages {
		if _, err := s.stages.Add(st); err != nil {
			errs = append(errs, err)
		}
	}
	s.seedErr = errors.Join(errs...)

	s.store = repository.NewStore(s.teams, s.stages)
	if s.scoresFile != "" {
		s.files = storage.NewFileStore(s.scoresFile)
	}
	return s
}

// Start seeds the registries from their files, loads the score file and
// starts the intent workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.seedErr != nil {
		return s.seedErr
	}
	s.logger.Info(ctx, "starting scoreboard service...")

	if s.teamsFile != "" {
		if err := s.teams.LoadFile(ctx, s.teamsFile); err != nil {
			return err
		}
	}
	if s.stagesFile != "" {
		if err := s.stages.LoadFile(ctx, s.stagesFile); err != nil {
			return err
		}
	}
	s.store.Refresh(ctx)

	if s.files != nil {
		if _, err := s.loadLocked(ctx); err != nil {
			return err
		}
	}

	if s.sink == nil {
		s.pubsub = intent.NewGoChannel(logger.Slog())
		s.sink = intent.NewWatermillSink(s.pubsub)
	}
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.sink, worker.WithDeliveryTimeout(s.intentTimeout))
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "scoreboard service started",
		logger.Int("teams", len(s.teams.All())),
		logger.Int("stages", len(s.stages.StageIDs())),
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize))
	return nil
}

// Stop drains pending intents and shuts down the dispatcher.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping scoreboard service...")

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "intent workers did not stop cleanly", logger.Error(err))
	}
	if s.pubsub != nil {
		if err := s.pubsub.Close(); err != nil {
			s.logger.Warn(ctx, "closing pub/sub failed", logger.Error(err))
		}
		s.pubsub = nil
		s.sink = nil
	}

	s.started = false
	s.logger.Info(ctx, "scoreboard service stopped")
}

// Subscribe returns messages published on topic by the in-process pub/sub.
// Messages must be acked; publishers wait for it.
func (s *Service) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.pubsub == nil {
		return nil, ErrNotStarted
	}
	return s.pubsub.Subscribe(ctx, topic)
}

// Teams returns the team registry.
func (s *Service) Teams() *registry.TeamRegistry { return s.teams }

// Stages returns the stage registry.
func (s *Service) Stages() *registry.StageRegistry { return s.stages }

// Load replaces all records with the content of the score file, ingested as
// one batch.
func (s *Service) Load(ctx context.Context) (types.LoadSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

func (s *Service) loadLocked(ctx context.Context) (types.LoadSummary, error) {
	if s.files == nil {
		return types.LoadSummary{}, ErrNoScoreFile
	}
	c, err := s.files.Load(ctx)
	if err != nil {
		metrics.RecordErrorByComponent("service", "load")
		return types.LoadSummary{}, err
	}

	raws := make([]model.RawScore, len(c.Scores))
	for i, sc := range c.Scores {
		raws[i] = sc.Raw()
	}

	s.store.BeginUpdate()
	s.store.Clear(ctx)
	invalid := s.store.Ingest(ctx, raws)
	if err := s.store.EndUpdate(ctx); err != nil {
		return types.LoadSummary{}, err
	}
	s.sheets = c.Sheets

	return types.LoadSummary{Scores: len(raws), Invalid: invalid, Sheets: len(c.Sheets)}, nil
}

// Save writes all records and the sheets read by the last Load to the score
// file.
func (s *Service) Save(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.files == nil {
		return ErrNoScoreFile
	}
	records := s.store.Records()
	scores := make([]types.Score, len(records))
	for i, r := range records {
		scores[i] = types.FromRecord(r)
	}
	if err := s.files.Save(ctx, &storage.Collection{Scores: scores, Sheets: s.sheets}); err != nil {
		metrics.RecordErrorByComponent("service", "save")
		return err
	}
	return nil
}

// Clear removes every record.
func (s *Service) Clear(ctx context.Context) {
	s.store.Clear(ctx)
}

// Refresh revalidates every record, e.g. after the registries changed.
func (s *Service) Refresh(ctx context.Context) {
	s.store.Refresh(ctx)
}

// Create adds raw to the store and emits a create intent. The record is kept
// even when the sink fails; the sink's error is returned unchanged.
func (s *Service) Create(ctx context.Context, raw model.RawScore) (types.Record, error) {
	rec := s.store.AddRawScore(ctx, raw)
	out := types.NewRecord(&rec)
	return out, s.emit(ctx, PathCreate, out.Score)
}

// Update replaces the record identified by id and emits an update intent.
// Unknown ids still emit; the remote side is authoritative.
func (s *Service) Update(ctx context.Context, id string, raw model.RawScore) (types.Record, error) {
	raw.ID = id
	out := types.NewRecord(model.NewScoreRecord(raw))
	switch err := s.store.Update(ctx, id, raw); {
	case err == nil:
		if rec, err := s.store.Record(id); err == nil {
			out = types.NewRecord(&rec)
		}
	case errors.Is(err, repository.ErrNotFound):
		s.logger.Debug(ctx, "update of unknown record", logger.String("id", id))
	default:
		return out, err
	}
	return out, s.emit(ctx, PathUpdate+id, out.Score)
}

// Delete removes the record identified by id and emits a delete intent.
// Unknown ids still emit.
func (s *Service) Delete(ctx context.Context, id string) error {
	payload := types.Score{ID: id}
	if rec, err := s.store.Record(id); err == nil {
		payload = types.FromRecord(&rec)
	}
	if err := s.store.Remove(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return s.emit(ctx, PathDelete+id, payload)
}

// SelectStage makes stageID the active stage and broadcasts it with its
// current leaderboard on the ranking topic. Selecting the stage that is
// already active does nothing. The stage only becomes active once the
// broadcast succeeded, so a failed selection can be retried.
func (s *Service) SelectStage(ctx context.Context, stageID string) error {
	stage, ok := s.stages.StageByID(stageID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStage, stageID)
	}
	if s.ActiveStage() == stageID {
		logger.Get().Debug(ctx, "stage already active", logger.String("stage", stageID))
		return nil
	}
	board := types.NewScoreboard(s.store.Scoreboard())
	leaderboard := board[stageID]
	if leaderboard == nil {
		leaderboard = []types.Entry{}
	}

	payload, err := json.Marshal(types.StageSelection{Stage: *stage, Leaderboard: leaderboard})
	if err != nil {
		return err
	}
	if err := s.submit(ctx, intent.Intent{Channel: s.rankingTopic, Path: PathSelect + stageID, Payload: payload}); err != nil {
		return err
	}

	s.mu.Lock()
	s.activeStage = stageID
	s.mu.Unlock()
	return nil
}

// ActiveStage returns the last selected stage id.
func (s *Service) ActiveStage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeStage
}

func (s *Service) emit(ctx context.Context, path string, score types.Score) error {
	payload, err := json.Marshal(score)
	if err != nil {
		return err
	}
	return s.submit(ctx, intent.Intent{Channel: s.syncChannel, Path: path, Payload: payload})
}

func (s *Service) submit(ctx context.Context, in intent.Intent) error {
	s.mu.RLock()
	pool := s.pool
	started := s.started
	s.mu.RUnlock()

	if !started {
		return ErrNotStarted
	}
	return pool.Submit(ctx, in)
}

// Scoreboard returns the full-round leaderboard of every known stage.
func (s *Service) Scoreboard() types.Scoreboard {
	return types.NewScoreboard(s.store.Scoreboard())
}

// Rankings returns the scoreboard with the stages named in filter ranked
// over their first n rounds.
func (s *Service) Rankings(filter map[string]int) (types.Scoreboard, error) {
	board, err := s.store.Rankings(filter)
	if err != nil {
		return nil, err
	}
	return types.NewScoreboard(board), nil
}

// Records returns every record with its validation outcome.
func (s *Service) Records() []types.Record {
	records := s.store.Records()
	out := make([]types.Record, len(records))
	for i, r := range records {
		out[i] = types.NewRecord(r)
	}
	return out
}

// Record returns one record by id.
func (s *Service) Record(id string) (types.Record, error) {
	rec, err := s.store.Record(id)
	if err != nil {
		return types.Record{}, err
	}
	return types.NewRecord(&rec), nil
}

// ValidationErrors returns the records tagged with an error.
func (s *Service) ValidationErrors() []types.ValidationIssue {
	return types.NewValidationIssues(s.store.ValidationErrors())
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, invalid := s.store.Count()
	stats := map[string]interface{}{
		"started":          s.started,
		"records":          records,
		"validationErrors": invalid,
		"teams":            len(s.teams.All()),
		"stages":           len(s.stages.StageIDs()),
		"activeStage":      s.activeStage,
		"scoresFile":       s.scoresFile,
		"queueCapacity":    s.queueSize,
		"workerCount":      s.workerCount,
	}

	if s.started {
		queueLen := s.queue.Len(context.Background())
		stats["queueLength"] = queueLen
		metrics.UpdateQueueSize(queueLen)
	}

	return stats
}

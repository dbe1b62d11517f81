// Package storage reads and writes the persisted score collection.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"

	"github.com/okian/scoreboard/internal/domain/types"
	"github.com/okian/scoreboard/pkg/logger"
	"github.com/okian/scoreboard/pkg/metrics"
)

// CurrentVersion is written by Save.
const CurrentVersion = 1

var validate = validator.New() //nolint:gochecknoglobals // stateless, caches struct metadata

// Collection is the on-disk score file. Scores are validated by the domain
// after ingestion, never here; sheets are opaque.
type Collection struct {
	Version int               `json:"version" validate:"gte=1"`
	Scores  []types.Score     `json:"scores"`
	Sheets  []json.RawMessage `json:"sheets"`
}

// FileStore persists a Collection as JSON at a fixed path.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore for path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the file the store reads and writes.
func (f *FileStore) Path() string { return f.path }

// Load reads the collection. A missing file is an empty collection.
func (f *FileStore) Load(ctx context.Context) (*Collection, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Get().Info(ctx, "score file not found, starting empty", logger.String("path", f.path))
		metrics.RecordFileOperation("load", "missing")
		return &Collection{Version: CurrentVersion}, nil
	}
	if err != nil {
		metrics.RecordFileOperation("load", "error")
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	c, err := Decode(b)
	if err != nil {
		metrics.RecordFileOperation("load", "error")
		return nil, err
	}
	metrics.RecordFileOperation("load", "ok")
	logger.Get().Info(ctx, "score file loaded",
		logger.String("path", f.path),
		logger.Int("version", c.Version),
		logger.Int("scores", len(c.Scores)),
		logger.Int("sheets", len(c.Sheets)))
	return c, nil
}

// Decode parses and validates a score collection. Each score is decoded on
// its own and leniently, so one malformed record never fails the load; it
// reaches validation and is tagged there.
func Decode(b []byte) (*Collection, error) {
	var wire struct {
		Version int               `json:"version"`
		Scores  []json.RawMessage `json:"scores"`
		Sheets  []json.RawMessage `json:"sheets"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	c := Collection{Version: wire.Version, Sheets: wire.Sheets}
	if wire.Scores != nil {
		c.Scores = make([]types.Score, len(wire.Scores))
	}
	for i, raw := range wire.Scores {
		s, err := types.DecodeScore(raw)
		if err != nil {
			logger.Get().Named("storage").Warn(context.Background(), "score record is not an object",
				logger.Int("index", i))
		}
		c.Scores[i] = s
	}
	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	return &c, nil
}

// Save writes c atomically: the data goes to a temporary file in the same
// directory which then replaces the target.
func (f *FileStore) Save(ctx context.Context, c *Collection) error {
	if c.Version == 0 {
		c.Version = CurrentVersion
	}
	if c.Scores == nil {
		c.Scores = []types.Score{}
	}
	if c.Sheets == nil {
		c.Sheets = []json.RawMessage{}
	}
	if err := validate.Struct(c); err != nil {
		metrics.RecordFileOperation("save", "error")
		return fmt.Errorf("%w: %w", ErrSave, err)
	}

	b, err := json.Marshal(c)
	if err != nil {
		metrics.RecordFileOperation("save", "error")
		return fmt.Errorf("%w: %w", ErrSave, err)
	}
	if err := writeAtomic(f.path, b); err != nil {
		metrics.RecordFileOperation("save", "error")
		return fmt.Errorf("%w: %w", ErrSave, err)
	}

	metrics.RecordFileOperation("save", "ok")
	logger.Get().Info(ctx, "score file saved",
		logger.String("path", f.path),
		logger.Int("scores", len(c.Scores)))
	return nil
}

func writeAtomic(path string, b []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

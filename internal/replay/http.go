package replay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/scoreboard/internal/domain/types"
	"github.com/okian/scoreboard/pkg/logger"
)

// Client talks to the scoreboard HTTP API.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}
	if out != nil && len(data) > 0 && resp.StatusCode < http.StatusBadRequest {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	}
	return resp.StatusCode, nil
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	code, err := c.do(ctx, http.MethodGet, "/healthz", nil, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	if code != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, code)
	}
	return nil
}

// Clear removes every record on the service.
func (c *Client) Clear(ctx context.Context) error {
	code, err := c.do(ctx, http.MethodDelete, "/scores", nil, nil)
	if err != nil {
		return err
	}
	if code != http.StatusNoContent {
		return fmt.Errorf("%w: clear returned %d", ErrStatus, code)
	}
	return nil
}

// Create posts one score and returns the response status.
func (c *Client) Create(ctx context.Context, s types.Score) (int, error) {
	return c.do(ctx, http.MethodPost, "/scores", s, nil)
}

// Records fetches every stored record in insertion order.
func (c *Client) Records(ctx context.Context) ([]types.Record, error) {
	var out []types.Record
	code, err := c.do(ctx, http.MethodGet, "/scores", nil, &out)
	if err != nil {
		return nil, err
	}
	if code != http.StatusOK {
		return nil, fmt.Errorf("%w: records returned %d", ErrStatus, code)
	}
	return out, nil
}

// Scoreboard fetches the full-round scoreboard.
func (c *Client) Scoreboard(ctx context.Context) (types.Scoreboard, error) {
	var out types.Scoreboard
	code, err := c.do(ctx, http.MethodGet, "/scoreboard", nil, &out)
	if err != nil {
		return nil, err
	}
	if code != http.StatusOK {
		return nil, fmt.Errorf("%w: scoreboard returned %d", ErrStatus, code)
	}
	return out, nil
}

// submitScores posts scores with at most cfg.Workers requests in flight.
func submitScores(ctx context.Context, cfg *Config, client *Client, scores []types.Score, stats *Stats) error {
	logger.Get().Info(ctx, "submitting scores",
		logger.Int("scores", len(scores)),
		logger.Int("workers", cfg.Workers))

	var submitted, created, deferred, failed int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))
	for _, s := range scores {
		s := s
		s.ID = "" // the service assigns ids
		g.Go(func() error {
			code, err := client.Create(gctx, s)
			atomic.AddInt64(&submitted, 1)
			switch {
			case err != nil:
				atomic.AddInt64(&failed, 1)
				if gctx.Err() != nil {
					return gctx.Err()
				}
			case code == http.StatusCreated:
				atomic.AddInt64(&created, 1)
			case code == http.StatusAccepted:
				atomic.AddInt64(&deferred, 1)
			default:
				atomic.AddInt64(&failed, 1)
			}
			if err != nil && cfg.Verbose {
				logger.Get().Warn(gctx, "score submission failed", logger.Error(err))
			}
			return nil
		})
	}
	err := g.Wait()

	stats.ScoresSubmitted = int(submitted)
	stats.ScoresCreated = int(created)
	stats.ScoresDeferred = int(deferred)
	stats.ScoresFailed = int(failed)

	logger.Get().Info(ctx, "score submission completed",
		logger.Int("created", stats.ScoresCreated),
		logger.Int("deferred", stats.ScoresDeferred),
		logger.Int("failed", stats.ScoresFailed))
	return err
}

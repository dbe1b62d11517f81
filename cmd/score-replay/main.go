package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/scoreboard/internal/replay"
	"github.com/okian/scoreboard/pkg/logger"
)

// Default configuration constants.
const (
	defaultTimeout       = 30 * time.Second
	defaultReplayTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		scoresFile = flag.String("scores", "data/scores.json", "Score file to submit")
		teamsFile  = flag.String("teams", "", "Team list the service was started with")
		stagesFile = flag.String("stages", "", "Stage list the service was started with")
		workers    = flag.Int("workers", 1, "Number of concurrent submitters")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		clearFirst = flag.Bool("clear", false, "Remove existing records before submitting")
		format     = flag.String("format", "text", "Log format: text or json")
		verbose    = flag.Bool("verbose", false, "Log every mismatch")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help || *teamsFile == "" || *stagesFile == "" {
		replay.ShowHelp()
		return
	}

	if err := logger.Init(logger.WithFormat(*format)); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultReplayTimeout)
	defer cancel()

	cfg := &replay.Config{
		BaseURL:    *baseURL,
		ScoresFile: *scoresFile,
		TeamsFile:  *teamsFile,
		StagesFile: *stagesFile,
		Workers:    *workers,
		Timeout:    *timeout,
		Clear:      *clearFirst,
		Verbose:    *verbose,
	}

	_, err := replay.Run(ctx, cfg)
	cancel()
	if err != nil {
		os.Stderr.WriteString("Replay failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}

// Package replay submits a score file to a running scoreboard service and
// checks the service's leaderboards against a local recomputation.
package replay

import "time"

// Config holds configuration for a replay run.
type Config struct {
	BaseURL    string        // Base URL of the service
	ScoresFile string        // Score collection to submit
	TeamsFile  string        // Team list the service was started with
	StagesFile string        // Stage list the service was started with
	Workers    int           // Number of concurrent submitters
	Timeout    time.Duration // HTTP request timeout
	Clear      bool          // Remove existing records before submitting
	Verbose    bool          // Log every mismatch
}

// Stats holds replay statistics.
type Stats struct {
	ScoresRead      int
	ScoresSubmitted int
	ScoresCreated   int
	ScoresDeferred  int // stored by the service but not forwarded
	ScoresFailed    int
	RecordsFetched  int
	InvalidRecords  int
	StagesCompared  int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}

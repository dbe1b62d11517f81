package replay

import "os"

// ShowHelp prints usage information for the replay tool.
func ShowHelp() {
	os.Stdout.WriteString(`Scoreboard Replay Tool
======================

Submits every score of a score file to a running scoreboard service, then
recomputes the leaderboards locally and compares them with the service's.

Usage:
  go run ./cmd/score-replay [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -scores string
        Score file to submit (default "data/scores.json")
  -teams string
        Team list the service was started with (required)
  -stages string
        Stage list the service was started with (required)
  -workers int
        Number of concurrent submitters (default 1)
  -timeout duration
        HTTP request timeout (default 30s)
  -clear
        Remove existing records before submitting
  -format string
        Log format, text or json (default "text")
  -verbose
        Log every mismatch
  -help
        Show this help message

Examples:
  # Replay in file order
  go run ./cmd/score-replay -teams teams.yaml -stages stages.yaml -clear

  # Replay concurrently against another host
  go run ./cmd/score-replay -url http://localhost:8080 -workers 8 -teams teams.yaml -stages stages.yaml
`)
}

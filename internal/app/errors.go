package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrUnknownStage = errors.New("unknown stage")
	ErrNoScoreFile  = errors.New("no score file configured")
	ErrNotStarted   = errors.New("service not started")
)

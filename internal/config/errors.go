package config

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrInvalidConfig wraps field constraint violations.
	ErrInvalidConfig = errors.New("invalid scoreboard config")
	// ErrLoadConfig wraps failures reading the config file or environment.
	ErrLoadConfig = errors.New("load scoreboard config failed")
)

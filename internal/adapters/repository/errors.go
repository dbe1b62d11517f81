package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound      = errors.New("score record not found")
	ErrInvalidFilter = errors.New("invalid ranking filter")
	ErrNoBatch       = errors.New("no update batch in progress")
)

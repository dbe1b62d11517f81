package storage

import "errors"

// Sentinel kinds for score file errors.
var (
	ErrLoad = errors.New("load score file")
	ErrSave = errors.New("save score file")
)

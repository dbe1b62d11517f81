package intent

import "errors"

// Sentinel kinds for intent delivery errors.
var (
	ErrRejected = errors.New("intent rejected: queue full or closed")
	ErrNoSink   = errors.New("no sink configured")
)

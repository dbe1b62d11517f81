package replay

import "errors"

// Sentinel errors.
var (
	ErrUnhealthy = errors.New("service is not healthy")
	ErrStatus    = errors.New("unexpected status")
	ErrMismatch  = errors.New("scoreboard mismatch")
)

package api

import "errors"

// ErrBadRequest marks malformed request input.
var ErrBadRequest = errors.New("bad request")

package api

import "errors"

// ErrBadRequest marks malformed input: bodies, path values or query values.
var ErrBadRequest = errors.New("bad request")

package queue

import "errors"

// ErrBackpressure is returned by callers that could not enqueue because the
// queue is full or closed.
var ErrBackpressure = errors.New("recompute queue is full")

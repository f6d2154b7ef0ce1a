package leaderboard

import "errors"

// Sentinel kinds for leaderboard errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
	ErrEmptyScope   = errors.New("snapshot has no scope id")
)

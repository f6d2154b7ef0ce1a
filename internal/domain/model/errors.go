package model

import "errors"

// ErrInvalidRecord marks a record rejected by validation.
var ErrInvalidRecord = errors.New("invalid record")

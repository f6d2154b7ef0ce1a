package repository

import "errors"

// Sentinel errors of the document store.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidDocument = errors.New("invalid document")
	ErrClosed          = errors.New("store closed")
	ErrPathRequired    = errors.New("storage path is required")
)

package client

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("not found")
	// ErrMultipleRows is returned when a single row was requested and more matched
	ErrMultipleRows = errors.New("multiple rows")
)

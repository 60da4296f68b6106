package query

import "errors"

// ErrInvalidQuery is returned for malformed query modifiers and for queries
// referencing columns which do not exist.
var ErrInvalidQuery = errors.New("invalid query")

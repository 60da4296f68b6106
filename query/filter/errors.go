package filter

import "errors"

// ErrInvalidFilter is returned when a filter has an unknown operation, a
// value of the wrong shape, or when a composite filter has no children.
var ErrInvalidFilter = errors.New("invalid filter")

package filter

// RawFilter is a caller supplied SQL condition with ? placeholders.
//
// The condition is passed to the database verbatim. It is neither quoted nor
// validated, and the caller must make sure the number of arguments matches
// the number of placeholders. Never build the condition from untrusted input;
// pass values as arguments instead.
type RawFilter struct {
	condition string
	args      []interface{}
}

// NewRawFilter creates a raw filter
func NewRawFilter(condition string, args ...interface{}) *RawFilter {
	copied := make([]interface{}, len(args))
	copy(copied, args)
	return &RawFilter{condition: condition, args: copied}
}

func (*RawFilter) isFilter() {}

// Condition returns the SQL condition
func (f *RawFilter) Condition() string { return f.condition }

// Arguments returns a copy of the arguments
func (f *RawFilter) Arguments() []interface{} {
	copied := make([]interface{}, len(f.args))
	copy(copied, f.args)
	return copied
}

// Validate implements Filter. Raw filters are trusted and always valid.
func (f *RawFilter) Validate() error { return nil }

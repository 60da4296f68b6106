// Package query provides the value objects shared by the query builder:
// SQL segments, ordering, limits and aggregates.
package query

import "strings"

// Segment is a piece of SQL together with its positional arguments.
// The number of arguments always matches the number of ? placeholders in SQL.
type Segment struct {
	SQL  string
	Args []interface{}
}

// Row is a single result row keyed by column name
type Row = map[string]interface{}

// NewSegment creates a new segment
func NewSegment(sql string, args ...interface{}) Segment {
	if args == nil {
		args = []interface{}{}
	}
	return Segment{SQL: sql, Args: args}
}

// IsEmpty returns true if the segment holds no SQL
func (s Segment) IsEmpty() bool {
	return s.SQL == ""
}

// Placeholders returns the number of ? placeholders in the SQL text
func (s Segment) Placeholders() int {
	return strings.Count(s.SQL, "?")
}

// String returns the SQL text
func (s Segment) String() string {
	return s.SQL
}

// Combine joins two segments with a space
func Combine(a, b Segment) Segment {
	return Implode(" ", []Segment{a, b})
}

// Implode joins segments using glue. Arguments keep the order of the segments.
func Implode(glue string, segments []Segment) Segment {
	parts := make([]string, len(segments))
	args := []interface{}{}
	for i, segment := range segments {
		parts[i] = segment.SQL
		args = append(args, segment.Args...)
	}
	return Segment{SQL: strings.Join(parts, glue), Args: args}
}

// Reduce joins all non-empty segments with a space
func Reduce(segments ...Segment) Segment {
	nonEmpty := make([]Segment, 0, len(segments))
	for _, segment := range segments {
		if !segment.IsEmpty() {
			nonEmpty = append(nonEmpty, segment)
		}
	}
	return Implode(" ", nonEmpty)
}

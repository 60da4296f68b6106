package sqlgen

import "strings"

// Quoter wraps identifiers in dialect specific quote characters
type Quoter interface {
	Quote(identifier string) string
}

// DoubleQuoter quotes with double quotes, as used by PostgreSQL and SQLite
type DoubleQuoter struct{}

func (DoubleQuoter) Quote(name string) string {
	return quoteWith(name, `"`, `"`)
}

// BacktickQuoter quotes with backticks, as used by MySQL
type BacktickQuoter struct{}

func (BacktickQuoter) Quote(name string) string {
	return quoteWith(name, "`", "`")
}

// BracketQuoter quotes with square brackets, as used by SQL Server
type BracketQuoter struct{}

func (BracketQuoter) Quote(name string) string {
	return quoteWith(name, "[", "]")
}

// quoteWith quotes name, doubling any embedded closing quote. The star
// wildcard is returned as is.
func quoteWith(name, open, close string) string {
	if name == "*" {
		return name
	}
	return open + strings.ReplaceAll(name, close, close+close) + close
}

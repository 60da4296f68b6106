package filter

import "github.com/alecthomas/participle/v2/lexer"

// expressionLexer tokenizes filter expressions such as
// `name like 'a%' and (id in (1, 2) or email is not null)`.
var expressionLexer = lexer.MustSimple([]lexer.SimpleRule{
	// Keywords must precede identifiers
	{Name: "Keyword", Pattern: `(?i)\b(?:and|or|not|in|is|null|between|like|ilike|true|false)\b`},

	{Name: "String", Pattern: `'(?:''|[^'])*'`},
	{Name: "Number", Pattern: `-?\d+(?:\.\d+)?`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},

	{Name: "Operator", Pattern: `!=|<>|>=|<=|=|>|<`},
	{Name: "Punct", Pattern: `[(),]`},

	{Name: "Whitespace", Pattern: `\s+`},
})

package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
)

// exprOr is the root of the grammar: OR binds weaker than AND.
type exprOr struct {
	Terms []*exprAnd `@@ ( "OR" @@ )*`
}

type exprAnd struct {
	Terms []*exprTerm `@@ ( "AND" @@ )*`
}

type exprTerm struct {
	Group      *exprOr     `  "(" @@ ")"`
	Comparison *comparison `| @@`
}

type comparison struct {
	Column    string     `@Ident`
	Predicate *predicate `@@`
}

type predicate struct {
	Null    *nullTest    `  @@`
	Between *betweenTest `| @@`
	In      *inTest      `| @@`
	Like    *likeTest    `| @@`
	Compare *compareTest `| @@`
}

type nullTest struct {
	Not bool `"IS" @"NOT"? "NULL"`
}

type betweenTest struct {
	Low  *literal `"BETWEEN" @@`
	High *literal `"AND" @@`
}

type inTest struct {
	Not    bool       `@"NOT"?`
	Values []*literal `"IN" "(" @@ ( "," @@ )* ")"`
}

type likeTest struct {
	Not   bool     `@"NOT"?`
	Op    string   `@( "LIKE" | "ILIKE" )`
	Value *literal `@@`
}

type compareTest struct {
	Op    string   `@Operator`
	Value *literal `@@`
}

type literal struct {
	String *string `  @String`
	Number *string `| @Number`
	Bool   *string `| @( "TRUE" | "FALSE" )`
}

var expressionParser = participle.MustBuild[exprOr](
	participle.Lexer(expressionLexer),
	participle.Elide("Whitespace"),
	participle.CaseInsensitive("Keyword"),
	participle.UseLookahead(4),
)

// Parse parses a textual filter expression into a filter tree.
//
// Supported forms are comparisons (=, !=, <>, >, >=, <, <=), [NOT] LIKE,
// ILIKE, [NOT] IN (...), BETWEEN x AND y and IS [NOT] NULL, combined with
// AND, OR and parentheses. AND binds tighter than OR. Strings are single
// quoted, with '' as an escaped quote.
func Parse(expr string) (Filter, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("%w: empty filter expression", ErrInvalidFilter)
	}
	tree, err := expressionParser.ParseString("", expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	return tree.build()
}

func (e *exprOr) build() (Filter, error) {
	filters := make([]Filter, 0, len(e.Terms))
	for _, term := range e.Terms {
		f, err := term.build()
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	if len(filters) == 1 {
		return filters[0], nil
	}
	return Or(filters...), nil
}

func (e *exprAnd) build() (Filter, error) {
	filters := make([]Filter, 0, len(e.Terms))
	for _, term := range e.Terms {
		f, err := term.build()
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	if len(filters) == 1 {
		return filters[0], nil
	}
	return And(filters...), nil
}

func (e *exprTerm) build() (Filter, error) {
	if e.Group != nil {
		return e.Group.build()
	}
	return e.Comparison.build()
}

func (c *comparison) build() (Filter, error) {
	p := c.Predicate
	switch {
	case p.Null != nil:
		if p.Null.Not {
			return column(c.Column, string(OpNotNull), nil)
		}
		return column(c.Column, string(OpIsNull), nil)

	case p.Between != nil:
		values, err := literalValues([]*literal{p.Between.Low, p.Between.High})
		if err != nil {
			return nil, err
		}
		return column(c.Column, string(OpBetween), values)

	case p.In != nil:
		op := OpIn
		if p.In.Not {
			op = OpNotIn
		}
		values, err := literalValues(p.In.Values)
		if err != nil {
			return nil, err
		}
		return column(c.Column, string(op), values)

	case p.Like != nil:
		op := Operation(strings.ToUpper(p.Like.Op))
		if p.Like.Not {
			if op == OpILike {
				return nil, fmt.Errorf("%w: NOT ILIKE is not supported", ErrInvalidFilter)
			}
			op = OpNotLike
		}
		value, err := p.Like.Value.value()
		if err != nil {
			return nil, err
		}
		return column(c.Column, string(op), value)
	}

	value, err := p.Compare.Value.value()
	if err != nil {
		return nil, err
	}
	return column(c.Column, p.Compare.Op, value)
}

func literalValues(literals []*literal) ([]interface{}, error) {
	values := make([]interface{}, len(literals))
	for i, l := range literals {
		v, err := l.value()
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func (l *literal) value() (interface{}, error) {
	switch {
	case l == nil:
		return nil, nil
	case l.String != nil:
		s := *l.String
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'"), nil
	case l.Number != nil:
		if strings.Contains(*l.Number, ".") {
			f, err := strconv.ParseFloat(*l.Number, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid number %s", ErrInvalidFilter, *l.Number)
			}
			return f, nil
		}
		n, err := strconv.ParseInt(*l.Number, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid number %s", ErrInvalidFilter, *l.Number)
		}
		return n, nil
	case l.Bool != nil:
		return strings.EqualFold(*l.Bool, "true"), nil
	}
	return nil, nil
}

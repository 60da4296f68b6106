package sqlgen

import (
	"fmt"
	"strings"

	"github.com/phormium-go/phormium/query"
	"github.com/phormium-go/phormium/query/filter"
)

// FilterRenderer renders filter trees into query segments with positional
// placeholders. Rendering is deterministic and has no side effects.
type FilterRenderer struct {
	quoter Quoter
}

// NewFilterRenderer creates a renderer quoting columns with q
func NewFilterRenderer(q Quoter) *FilterRenderer {
	return &FilterRenderer{quoter: q}
}

// RenderFilter validates f and renders it. Raw filters are passed through
// without quoting or validation.
func (r *FilterRenderer) RenderFilter(f filter.Filter) (query.Segment, error) {
	if f == nil {
		return query.Segment{}, fmt.Errorf("%w: cannot render a nil filter", filter.ErrInvalidFilter)
	}
	if err := f.Validate(); err != nil {
		return query.Segment{}, err
	}
	return r.render(f)
}

func (r *FilterRenderer) render(f filter.Filter) (query.Segment, error) {
	switch v := f.(type) {
	case *filter.ColumnFilter:
		return r.renderColumn(v), nil
	case *filter.CompositeFilter:
		return r.renderComposite(v)
	case *filter.RawFilter:
		return query.NewSegment(v.Condition(), v.Arguments()...), nil
	}
	return query.Segment{}, fmt.Errorf("%w: unsupported filter type %T", filter.ErrInvalidFilter, f)
}

func (r *FilterRenderer) renderComposite(f *filter.CompositeFilter) (query.Segment, error) {
	children := f.Filters()
	segments := make([]query.Segment, 0, len(children))
	for _, child := range children {
		seg, err := r.render(child)
		if err != nil {
			return query.Segment{}, err
		}
		segments = append(segments, seg)
	}

	joined := query.Implode(" "+string(f.Operation())+" ", segments)
	return query.NewSegment("("+joined.SQL+")", joined.Args...), nil
}

func (r *FilterRenderer) renderColumn(f *filter.ColumnFilter) query.Segment {
	column := r.quoter.Quote(f.Column())
	op := f.Operation()
	values := f.Values()

	switch op {
	case filter.OpIn, filter.OpNotIn:
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
		return query.NewSegment(fmt.Sprintf("%s %s (%s)", column, op, placeholders), values...)

	case filter.OpBetween:
		return query.NewSegment(column+" BETWEEN ? AND ?", values...)

	case filter.OpIsNull, filter.OpNotNull:
		return query.NewSegment(fmt.Sprintf("%s %s", column, op))

	case filter.OpILike:
		return query.NewSegment(fmt.Sprintf("lower(%s) LIKE lower(?)", column), values...)
	}

	return query.NewSegment(fmt.Sprintf("%s %s ?", column, op), values...)
}

package sqlgen

import (
	"fmt"
	"strings"

	"github.com/phormium-go/phormium/query"
	"github.com/phormium-go/phormium/query/filter"
	"github.com/phormium-go/phormium/runtime/types"
)

// buildAggregate renders a single aggregate over the rows matching f:
//
//	SELECT AVG("price") FROM "trade" WHERE ...
func (b *base) buildAggregate(meta *types.Meta, f filter.Filter, agg query.Aggregate, toBool func(bool) interface{}) (query.Segment, error) {
	if agg.Type() == "" {
		return query.Segment{}, fmt.Errorf("%w: aggregate type not set", query.ErrInvalidQuery)
	}

	column := agg.Column()
	if column != "*" && !meta.HasColumn(column) {
		return query.Segment{}, fmt.Errorf("%w: error forming aggregate query, column [%s] does not exist in table [%s]",
			query.ErrInvalidQuery, column, meta.Table)
	}

	where, err := b.where(f)
	if err != nil {
		return query.Segment{}, err
	}

	selectAgg := query.NewSegment(fmt.Sprintf("SELECT %s(%s) FROM %s",
		strings.ToUpper(string(agg.Type())), b.quoter.Quote(column), b.quoter.Quote(meta.Table)))

	return bindBools(query.Reduce(selectAgg, where), toBool), nil
}

package query

import "github.com/roach88/druidq/internal/wire"

// GroupBy groups by any number of dimensions.
type GroupBy struct {
	base
}

func (*GroupBy) Shape() Shape { return ShapeGroupBy }

func (q *GroupBy) Wire() wire.Object {
	obj := q.common(ShapeGroupBy)
	obj["dimensions"] = q.dimensionSpecs()
	obj["granularity"] = q.granularity()
	q.setMetrics(obj)
	if q.st.having != nil {
		obj["having"] = q.st.having.Wire()
	}
	if !q.st.limit.empty() {
		obj["limitSpec"] = q.st.limit.limitSpec(q.st.metricNames())
	}
	if len(q.st.subtotals) > 0 {
		sets := make(wire.Array, len(q.st.subtotals))
		for i, set := range q.st.subtotals {
			sets[i] = wire.Strings(set)
		}
		obj["subtotalsSpec"] = sets
	}
	return obj
}

func (q *GroupBy) MarshalJSON() ([]byte, error) { return wire.MarshalCanonical(q.Wire()) }

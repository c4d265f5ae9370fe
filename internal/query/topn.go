package query

import (
	"slices"

	"github.com/roach88/druidq/internal/comparator"
	"github.com/roach88/druidq/internal/wire"
)

// TopN ranks the values of one dimension by a metric.
type TopN struct {
	base
}

func (*TopN) Shape() Shape { return ShapeTopN }

func (q *TopN) Wire() wire.Object {
	obj := q.common(ShapeTopN)
	obj["granularity"] = q.granularity()
	obj["dimension"] = q.st.dimensions[0].Wire()
	n, _ := q.st.limit.Count()
	obj["threshold"] = wire.Int(n)
	obj["metric"] = q.metric()
	q.setMetrics(obj)
	return obj
}

// metric renders the ordering. Ordering by a metric is numeric and
// descending by nature, so ascending wraps it in "inverted". Ordering by
// the dimension itself is ascending by nature, so descending is inverted.
func (q *TopN) metric() wire.Object {
	o := q.st.limit.columns[0]
	dim := q.st.dimensions[0]

	if o.Dimension == dim.OutputName() && !slices.Contains(q.st.metricNames(), o.Dimension) {
		ordering := o.Collation
		if ordering == "" {
			ordering = comparator.Lexicographic
		}
		spec := wire.NewObject(
			wire.P("type", wire.String("dimension")),
			wire.P("ordering", wire.String(ordering)),
		)
		if o.direction() == Descending {
			return inverted(spec)
		}
		return spec
	}

	spec := wire.NewObject(
		wire.P("type", wire.String("numeric")),
		wire.P("metric", wire.String(o.Dimension)),
	)
	if o.direction() == Ascending {
		return inverted(spec)
	}
	return spec
}

func inverted(metric wire.Object) wire.Object {
	return wire.NewObject(
		wire.P("type", wire.String("inverted")),
		wire.P("metric", metric),
	)
}

func (q *TopN) MarshalJSON() ([]byte, error) { return wire.MarshalCanonical(q.Wire()) }

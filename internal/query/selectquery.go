package query

import "github.com/roach88/druidq/internal/wire"

// Select pages through raw rows with paging identifiers.
type Select struct {
	base
}

func (*Select) Shape() Shape { return ShapeSelect }

func (q *Select) Wire() wire.Object {
	obj := q.common(ShapeSelect)
	obj["descending"] = q.descending()
	obj["dimensions"] = q.dimensionSpecs()
	obj["metrics"] = wire.Strings(q.st.metrics)
	obj["granularity"] = q.granularity()

	ids := make(wire.Object, len(q.st.pagingIDs))
	for segment, offset := range q.st.pagingIDs {
		ids[segment] = wire.Int(offset)
	}
	n, _ := q.st.limit.Count()
	obj["pagingSpec"] = wire.NewObject(
		wire.P("pagingIdentifiers", ids),
		wire.P("threshold", wire.Int(n)),
	)
	return obj
}

func (q *Select) MarshalJSON() ([]byte, error) { return wire.MarshalCanonical(q.Wire()) }

package query

import (
	"github.com/roach88/druidq/internal/comparator"
	"github.com/roach88/druidq/internal/wire"
)

// Search finds dimension values matching a search spec.
type Search struct {
	base
}

func (*Search) Shape() Shape { return ShapeSearch }

func (q *Search) Wire() wire.Object {
	obj := q.common(ShapeSearch)
	obj["granularity"] = q.granularity()

	sort := q.st.searchSort
	if sort == "" {
		sort = comparator.Lexicographic
	}
	obj["sort"] = wire.NewObject(wire.P("type", wire.String(sort)))
	obj["query"] = q.st.search.Wire()

	q.setLimit(obj)
	if len(q.st.dimensions) > 0 {
		dims := make(wire.Array, len(q.st.dimensions))
		for i, d := range q.st.dimensions {
			if d.Plain() && d.OutputType == "" {
				dims[i] = wire.String(d.Column)
			} else {
				dims[i] = d.Wire()
			}
		}
		obj["searchDimensions"] = dims
	}
	return obj
}

func (q *Search) MarshalJSON() ([]byte, error) { return wire.MarshalCanonical(q.Wire()) }

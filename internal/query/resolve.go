package query

// Shape is a Druid native query type.
type Shape string

const (
	ShapeScan       Shape = "scan"
	ShapeTimeSeries Shape = "timeseries"
	ShapeTopN       Shape = "topN"
	ShapeSelect     Shape = "select"
	ShapeSearch     Shape = "search"
	ShapeGroupBy    Shape = "groupBy"
)

// Shapes lists every shape in resolution priority order.
var Shapes = []Shape{ShapeScan, ShapeTimeSeries, ShapeTopN, ShapeSelect, ShapeSearch, ShapeGroupBy}

// resolve picks the first shape whose conditions hold:
//
//  1. scan: no aggregations and every dimension is a plain passthrough
//  2. timeseries: a single dimension on the time column without extraction,
//     ordered by time if at all
//  3. topN: a single dimension, a limit count and exactly one order-by
//     column
//  4. select: paging identifiers set and no aggregations
//  5. search: a search query spec set
//  6. groupBy: everything else
func resolve(st state) Shape {
	switch {
	case isScan(st):
		return ShapeScan
	case isTimeSeries(st):
		return ShapeTimeSeries
	case isTopN(st):
		return ShapeTopN
	case st.paging && len(st.aggregations) == 0:
		return ShapeSelect
	case st.search != nil:
		return ShapeSearch
	default:
		return ShapeGroupBy
	}
}

func isScan(st state) bool {
	if len(st.aggregations) > 0 {
		return false
	}
	for _, d := range st.dimensions {
		if !d.Plain() {
			return false
		}
	}
	return true
}

func isTimeSeries(st state) bool {
	return len(st.dimensions) == 1 &&
		st.dimensions[0].IsTime() &&
		st.dimensions[0].Extraction == nil &&
		!st.ordersByNonTime()
}

func isTopN(st state) bool {
	if len(st.dimensions) != 1 {
		return false
	}
	_, ok := st.limit.Count()
	return ok && len(st.limit.columns) == 1
}

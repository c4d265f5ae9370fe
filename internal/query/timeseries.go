package query

import "github.com/roach88/druidq/internal/wire"

// TimeSeries aggregates over time buckets.
type TimeSeries struct {
	base
}

func (*TimeSeries) Shape() Shape { return ShapeTimeSeries }

// TimeOutputName is the name callers gave the time column, used when
// decoding results. It is not part of the request.
func (q *TimeSeries) TimeOutputName() string {
	if len(q.st.dimensions) == 0 {
		return "timestamp"
	}
	return q.st.dimensions[0].OutputName()
}

func (q *TimeSeries) Wire() wire.Object {
	obj := q.common(ShapeTimeSeries)
	obj["granularity"] = q.granularity()
	obj["descending"] = q.descending()
	q.setMetrics(obj)
	q.setLimit(obj)
	return obj
}

func (q *TimeSeries) MarshalJSON() ([]byte, error) { return wire.MarshalCanonical(q.Wire()) }

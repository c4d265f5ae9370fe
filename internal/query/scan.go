package query

import "github.com/roach88/druidq/internal/wire"

// Scan streams raw rows.
type Scan struct {
	base
}

func (*Scan) Shape() Shape { return ShapeScan }

// Columns returns the selected source columns. Empty means all columns.
func (q *Scan) Columns() []string { return q.columns() }

func (q *Scan) Wire() wire.Object {
	obj := q.common(ShapeScan)

	format := q.st.scan.ResultFormat
	if format == "" {
		format = ResultFormatList
	}
	obj["resultFormat"] = wire.String(format)
	obj["columns"] = wire.Strings(q.columns())

	if q.st.scan.BatchSize > 0 {
		obj["batchSize"] = wire.Int(q.st.scan.BatchSize)
	}
	q.setLimit(obj)
	if off := q.st.limit.Offset(); off > 0 {
		obj["offset"] = wire.Int(off)
	}
	if q.st.scan.Legacy {
		obj["legacy"] = wire.Bool(true)
	}
	if dir := q.st.timeDirection(); dir != "" {
		obj["order"] = wire.String(dir)
	}
	return obj
}

func (q *Scan) MarshalJSON() ([]byte, error) { return wire.MarshalCanonical(q.Wire()) }

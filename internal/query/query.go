package query

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/multierr"

	"github.com/roach88/druidq/internal/datasource"
	"github.com/roach88/druidq/internal/wire"
)

// Query is a built, immutable native query.
//
// This is a sealed interface - only Scan, TimeSeries, TopN, GroupBy, Select
// and Search implement it.
type Query interface {
	// Shape returns the query type.
	Shape() Shape
	// DataSource returns the data source the query reads.
	DataSource() datasource.DataSource
	// Wire renders the request object. Each call returns a fresh object.
	Wire() wire.Object
	// MarshalJSON renders the request as canonical JSON.
	MarshalJSON() ([]byte, error)

	query()
}

// base holds the state snapshot every shape renders from.
type base struct {
	st state
}

func (base) query() {}

func (q base) DataSource() datasource.DataSource { return q.st.dataSource }

// common renders the keys shared by every shape.
func (q base) common(shape Shape) wire.Object {
	intervals := make(wire.Array, len(q.st.intervals))
	for i, iv := range q.st.intervals {
		intervals[i] = wire.String(iv.String())
	}
	obj := wire.NewObject(
		wire.P("queryType", wire.String(shape)),
		wire.P("dataSource", q.st.dataSource.Wire()),
		wire.P("intervals", intervals),
	)
	if q.st.filter != nil {
		obj["filter"] = q.st.filter.Wire()
	}
	if len(q.st.context) > 0 {
		obj["context"] = q.st.context.Clone()
	}
	return obj
}

func (q base) granularity() wire.Value {
	return wire.String(q.st.granularityOrDefault())
}

func (q base) descending() wire.Value {
	return wire.Bool(q.st.timeDirection() == Descending)
}

func (q base) dimensionSpecs() wire.Array {
	arr := make(wire.Array, len(q.st.dimensions))
	for i, d := range q.st.dimensions {
		arr[i] = d.Wire()
	}
	return arr
}

func (q base) columns() []string {
	cols := make([]string, len(q.st.dimensions))
	for i, d := range q.st.dimensions {
		cols[i] = d.Column
	}
	return cols
}

// setMetrics adds virtualColumns, aggregations and postAggregations when
// present.
func (q base) setMetrics(obj wire.Object) {
	if len(q.st.virtualColumns) > 0 {
		arr := make(wire.Array, len(q.st.virtualColumns))
		for i, v := range q.st.virtualColumns {
			arr[i] = v.Wire()
		}
		obj["virtualColumns"] = arr
	}
	if len(q.st.aggregations) > 0 {
		arr := make(wire.Array, len(q.st.aggregations))
		for i, a := range q.st.aggregations {
			arr[i] = a.Wire()
		}
		obj["aggregations"] = arr
	}
	if len(q.st.postAggregations) > 0 {
		obj["postAggregations"] = wirePostAggregations(q.st.postAggregations)
	}
}

func (q base) setLimit(obj wire.Object) {
	if n, ok := q.st.limit.Count(); ok {
		obj["limit"] = wire.Int(n)
	}
}

// Build resolves the shape and builds it. The returned query holds a copy
// of the builder's state.
func (b *Builder) Build() (Query, error) {
	st := b.snapshot()
	switch resolve(st) {
	case ShapeScan:
		return finish(b.buildScan(st))
	case ShapeTimeSeries:
		return finish(b.buildTimeSeries(st))
	case ShapeTopN:
		return finish(b.buildTopN(st))
	case ShapeSelect:
		return finish(b.buildSelect(st))
	case ShapeSearch:
		return finish(b.buildSearch(st))
	default:
		return finish(b.buildGroupBy(st))
	}
}

// BuildScan builds a scan query regardless of what Build would pick.
func (b *Builder) BuildScan() (*Scan, error) { return b.buildScan(b.snapshot()) }

// BuildTimeSeries builds a timeseries query.
func (b *Builder) BuildTimeSeries() (*TimeSeries, error) { return b.buildTimeSeries(b.snapshot()) }

// BuildTopN builds a topN query.
func (b *Builder) BuildTopN() (*TopN, error) { return b.buildTopN(b.snapshot()) }

// BuildGroupBy builds a groupBy query.
func (b *Builder) BuildGroupBy() (*GroupBy, error) { return b.buildGroupBy(b.snapshot()) }

// BuildSelect builds a select query.
func (b *Builder) BuildSelect() (*Select, error) { return b.buildSelect(b.snapshot()) }

// BuildSearch builds a search query.
func (b *Builder) BuildSearch() (*Search, error) { return b.buildSearch(b.snapshot()) }

func finish[Q Query](q Q, err error) (Query, error) {
	if err != nil {
		return nil, err
	}
	return q, nil
}

// check combines pending accumulation errors, the checks every shape
// shares and the shape's own violations. All errors are tagged with shape.
func (b *Builder) check(st state, shape Shape, violations ...error) error {
	errs := b.pending()
	if err := datasource.Validate(st.dataSource); err != nil {
		errs = multierr.Append(errs, newConfigError(ErrCodeNoDataSource, "", "%v", err))
	}
	if len(st.intervals) == 0 {
		errs = multierr.Append(errs, newConfigError(ErrCodeNoIntervals, "", "at least one interval is required"))
	}
	errs = multierr.Combine(append(append([]error{errs}, unsupported(st, shape)...), violations...)...)
	return withShape(errs, shape)
}

// unsupported reports accumulated state that shape has no field for.
// Aggregations on scan and select are checked by their builders.
func unsupported(st state, shape Shape) []error {
	var errs []error
	reject := func(set bool, what string) {
		if set {
			errs = append(errs, newConfigError(ErrCodeShapeMismatch, "", "%s is not supported by %s", what, shape))
		}
	}

	grouped := shape == ShapeGroupBy
	metrics := shape == ShapeTimeSeries || shape == ShapeTopN || grouped
	timed := shape == ShapeScan || shape == ShapeTimeSeries || shape == ShapeSelect

	reject(!grouped && st.having != nil, "having")
	reject(!grouped && len(st.subtotals) > 0, "subtotals")
	reject(shape == ShapeSearch && len(st.aggregations) > 0, "aggregations")
	reject(!metrics && len(st.postAggregations) > 0, "postAggregations")
	reject(!metrics && len(st.virtualColumns) > 0, "virtualColumns")
	reject(shape != ShapeScan && !grouped && st.limit.Offset() > 0, "offset")
	reject(!timed && st.timeOrder != "", "time ordering")

	// TopN ranks by its one order-by column and groupBy sorts in its limit
	// spec. The others sort by time only.
	if shape != ShapeTopN && !grouped {
		for _, o := range st.limit.columns {
			if !st.sortsByTime(o) {
				reject(true, fmt.Sprintf("ordering by %q", o.Dimension))
			}
		}
	}
	return errs
}

// withShape returns copies of the ConfigErrors in err tagged with shape, so
// errors recorded on the builder are never modified.
func withShape(err error, shape Shape) error {
	if err == nil {
		return nil
	}
	var out []error
	for _, e := range multierr.Errors(err) {
		var ce *ConfigError
		if errors.As(e, &ce) && ce.Shape == "" {
			tagged := *ce
			tagged.Shape = shape
			out = append(out, &tagged)
			continue
		}
		out = append(out, e)
	}
	return multierr.Combine(out...)
}

func (b *Builder) buildScan(st state) (*Scan, error) {
	var violations []error
	if len(st.aggregations) > 0 {
		violations = append(violations, newConfigError(ErrCodeShapeMismatch, "", "scan cannot aggregate"))
	}
	if slices.ContainsFunc(st.dimensions, func(d Dimension) bool { return !d.Plain() }) {
		violations = append(violations, newConfigError(ErrCodeShapeMismatch, "", "scan columns cannot carry an alias or extraction"))
	}
	if err := b.check(st, ShapeScan, violations...); err != nil {
		return nil, err
	}
	return &Scan{base{st}}, nil
}

func (b *Builder) buildTimeSeries(st state) (*TimeSeries, error) {
	var violations []error
	notTime := func(d Dimension) bool { return !d.IsTime() || d.Extraction != nil }
	if len(st.dimensions) > 1 || slices.ContainsFunc(st.dimensions, notTime) {
		violations = append(violations, newConfigError(ErrCodeShapeMismatch, "",
			"timeseries allows only the %s column without extraction as dimension", TimeColumn))
	}
	if err := b.check(st, ShapeTimeSeries, violations...); err != nil {
		return nil, err
	}
	return &TimeSeries{base{st}}, nil
}

func (b *Builder) buildTopN(st state) (*TopN, error) {
	var violations []error
	if len(st.dimensions) != 1 {
		violations = append(violations, newConfigError(ErrCodeShapeMismatch, "",
			"topN needs exactly one dimension, got %d", len(st.dimensions)))
	}
	if _, ok := st.limit.Count(); !ok {
		violations = append(violations, newConfigError(ErrCodeNoLimit, "", "topN needs a limit"))
	}
	if len(st.limit.columns) != 1 {
		violations = append(violations, newConfigError(ErrCodeNoOrderBy, "",
			"topN needs exactly one order by column, got %d", len(st.limit.columns)))
	}
	if err := b.check(st, ShapeTopN, violations...); err != nil {
		return nil, err
	}
	return &TopN{base{st}}, nil
}

func (b *Builder) buildGroupBy(st state) (*GroupBy, error) {
	if err := b.check(st, ShapeGroupBy); err != nil {
		return nil, err
	}
	return &GroupBy{base{st}}, nil
}

func (b *Builder) buildSelect(st state) (*Select, error) {
	var violations []error
	if len(st.aggregations) > 0 {
		violations = append(violations, newConfigError(ErrCodeShapeMismatch, "", "select cannot aggregate"))
	}
	if _, ok := st.limit.Count(); !ok {
		violations = append(violations, newConfigError(ErrCodeNoLimit, "", "select needs a limit for its paging threshold"))
	}
	if err := b.check(st, ShapeSelect, violations...); err != nil {
		return nil, err
	}
	return &Select{base{st}}, nil
}

func (b *Builder) buildSearch(st state) (*Search, error) {
	var violations []error
	if st.search == nil {
		violations = append(violations, newConfigError(ErrCodeNoSearchFilter, "", "search needs a search query"))
	}
	if err := b.check(st, ShapeSearch, violations...); err != nil {
		return nil, err
	}
	return &Search{base{st}}, nil
}

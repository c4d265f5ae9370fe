package querydoc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/druidq/internal/comparator"
	"github.com/roach88/druidq/internal/filter"
	"github.com/roach88/druidq/internal/having"
	"github.com/roach88/druidq/internal/query"
)

// Apply replays d on b, in document order: data source, intervals,
// granularity, virtual columns, dimensions, aggregations, post
// aggregations, where, having, ordering and options. Having comes after
// the aggregations so equality clauses see their names.
func (d *Document) Apply(b *query.Builder) error {
	if err := d.apply(b); err != nil {
		var de *Error
		if errors.As(err, &de) && de.Document == "" {
			de.Document = d.Name
		}
		return err
	}
	return nil
}

func (d *Document) apply(b *query.Builder) error {
	ds, err := d.DataSource.compile()
	if err != nil {
		return err
	}
	b.DataSource(ds)

	for i, raw := range d.Intervals {
		field := fmt.Sprintf("intervals[%d]", i)
		start, stop, ok := strings.Cut(raw, "/")
		if !ok {
			return fieldError(field, `expected "start/stop", got %q`, raw)
		}
		if err := b.Interval(start, stop); err != nil {
			return wrapError(field, err)
		}
	}
	if d.Granularity != "" {
		if err := b.Granularity(d.Granularity); err != nil {
			return wrapError("granularity", err)
		}
	}

	for i, vc := range d.VirtualColumns {
		vt, err := query.ParseValueType(vc.Type)
		if err != nil {
			return wrapError(fmt.Sprintf("virtual_columns[%d]", i), err)
		}
		b.VirtualColumn(vc.Name, vc.Expression, vt)
	}

	for i, dim := range d.Dimensions {
		field := fmt.Sprintf("dimensions[%d]", i)
		vt, err := query.ParseValueType(dim.Type)
		if err != nil {
			return wrapError(field, err)
		}
		fn, err := compileSteps(field+".extraction", dim.Extraction)
		if err != nil {
			return err
		}
		b.SelectDimension(query.Dimension{Column: dim.Column, Alias: dim.Alias, OutputType: vt, Extraction: fn})
	}

	for i, a := range d.Aggregations {
		agg, err := a.compile(fmt.Sprintf("aggregations[%d]", i))
		if err != nil {
			return err
		}
		b.Aggregate(agg)
	}
	for i, p := range d.PostAggregations {
		post, err := p.compile(fmt.Sprintf("post_aggregations[%d]", i))
		if err != nil {
			return err
		}
		b.PostAggregate(post)
	}

	if len(d.Where) > 0 {
		// Validate before touching the builder.
		if err := addFilterConditions("where", filter.NewBuilder(), d.Where); err != nil {
			return err
		}
		b.Filter(func(fb *filter.Builder) { _ = addFilterConditions("where", fb, d.Where) })
	}
	if len(d.Having) > 0 {
		if err := addHavingConditions("having", having.NewBuilder(nil), d.Having); err != nil {
			return err
		}
		b.HavingWith(func(hb *having.Builder) { _ = addHavingConditions("having", hb, d.Having) })
	}

	for i, o := range d.OrderBy {
		ob, err := o.compile(fmt.Sprintf("order_by[%d]", i))
		if err != nil {
			return err
		}
		b.Order(ob)
	}
	if d.Limit != 0 {
		b.Limit(d.Limit)
	}
	if d.Offset != 0 {
		b.Offset(d.Offset)
	}
	if d.Descending {
		b.OrderByTime(query.Descending)
	}

	if len(d.Context) > 0 {
		if err := b.Context(d.Context); err != nil {
			return wrapError("context", err)
		}
	}
	if len(d.Subtotals) > 0 {
		b.Subtotals(d.Subtotals...)
	}

	if d.Select != nil {
		paging := d.Select.Paging
		if paging == nil {
			paging = map[string]int{}
		}
		b.PagingIdentifiers(paging)
		if len(d.Select.Metrics) > 0 {
			b.Metrics(d.Select.Metrics...)
		}
	}
	if d.Search != nil {
		spec, err := d.Search.spec()
		if err != nil {
			return err
		}
		b.SearchFor(spec)
		if d.Search.Sort != "" {
			c, err := comparator.Parse(d.Search.Sort)
			if err != nil {
				return wrapError("search.sort", err)
			}
			b.SearchSort(c)
		}
	}
	if d.Scan != nil {
		err := b.Scan(query.ScanOptions{
			ResultFormat: d.Scan.ResultFormat,
			BatchSize:    d.Scan.BatchSize,
			Legacy:       d.Scan.Legacy,
		})
		if err != nil {
			return wrapError("scan", err)
		}
	}
	return nil
}

// Builder returns a fresh builder with d applied.
func (d *Document) Builder() (*query.Builder, error) {
	b := query.New(nil)
	if err := d.Apply(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Build applies d and builds it, forcing Shape when the document names
// one.
func (d *Document) Build() (query.Query, error) {
	b, err := d.Builder()
	if err != nil {
		return nil, err
	}
	if d.Shape == "" {
		return b.Build()
	}
	shape, err := ParseShape(d.Shape)
	if err != nil {
		return nil, &Error{Document: d.Name, Field: "shape", Message: err.Error()}
	}
	switch shape {
	case query.ShapeScan:
		return built(b.BuildScan())
	case query.ShapeTimeSeries:
		return built(b.BuildTimeSeries())
	case query.ShapeTopN:
		return built(b.BuildTopN())
	case query.ShapeSelect:
		return built(b.BuildSelect())
	case query.ShapeSearch:
		return built(b.BuildSearch())
	case query.ShapeGroupBy:
		return built(b.BuildGroupBy())
	default:
		return nil, fmt.Errorf("unsupported shape: %s", shape)
	}
}

func built[Q query.Query](q Q, err error) (query.Query, error) {
	if err != nil {
		return nil, err
	}
	return q, nil
}

// ParseShape accepts a shape name in any case.
func ParseShape(s string) (query.Shape, error) {
	for _, shape := range query.Shapes {
		if strings.EqualFold(s, string(shape)) {
			return shape, nil
		}
	}
	return "", fmt.Errorf("unknown shape %q", s)
}

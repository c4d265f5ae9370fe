package query

import (
	"fmt"
	"maps"
	"slices"

	"go.uber.org/multierr"

	"github.com/roach88/druidq/internal/comparator"
	"github.com/roach88/druidq/internal/datasource"
	"github.com/roach88/druidq/internal/extraction"
	"github.com/roach88/druidq/internal/filter"
	"github.com/roach88/druidq/internal/having"
	"github.com/roach88/druidq/internal/timespec"
	"github.com/roach88/druidq/internal/wire"
)

// Scan result formats.
const (
	ResultFormatList          = "list"
	ResultFormatCompactedList = "compactedList"
)

// ScanOptions tune scan queries.
type ScanOptions struct {
	// ResultFormat is "list" (default) or "compactedList".
	ResultFormat string
	// BatchSize is rows per batch. Zero leaves it to the server.
	BatchSize int
	// Legacy requests the legacy scan result layout.
	Legacy bool
}

// state is everything a query is rendered from. Built queries own a copy.
type state struct {
	dataSource       datasource.DataSource
	intervals        []timespec.Interval
	granularity      timespec.Granularity
	dimensions       []Dimension
	aggregations     []Aggregation
	postAggregations []PostAggregation
	virtualColumns   []VirtualColumn
	filter           filter.Predicate
	having           having.Spec
	limit            Limit
	timeOrder        Direction
	context          wire.Object
	subtotals        [][]string
	paging           bool
	pagingIDs        map[string]int
	metrics          []string
	search           filter.SearchSpec
	searchSort       comparator.Comparator
	scan             ScanOptions
}

func (s state) clone() state {
	out := s
	out.intervals = slices.Clone(s.intervals)
	out.dimensions = slices.Clone(s.dimensions)
	out.aggregations = slices.Clone(s.aggregations)
	out.postAggregations = slices.Clone(s.postAggregations)
	out.virtualColumns = slices.Clone(s.virtualColumns)
	out.limit = s.limit.clone()
	out.context = s.context.Clone()
	out.pagingIDs = maps.Clone(s.pagingIDs)
	out.metrics = slices.Clone(s.metrics)
	if s.subtotals != nil {
		out.subtotals = make([][]string, len(s.subtotals))
		for i, set := range s.subtotals {
			out.subtotals[i] = slices.Clone(set)
		}
	}
	return out
}

// metricNames returns aggregation and post-aggregation output names.
func (s state) metricNames() []string {
	names := make([]string, 0, len(s.aggregations)+len(s.postAggregations))
	for _, a := range s.aggregations {
		names = append(names, a.Name())
	}
	for _, p := range s.postAggregations {
		names = append(names, p.Name())
	}
	return names
}

func (s state) granularityOrDefault() timespec.Granularity {
	if s.granularity == "" {
		return timespec.GranularityAll
	}
	return s.granularity
}

// sortsByTime reports whether o sorts by the time column, named directly or
// by the output name of a time dimension.
func (s state) sortsByTime(o OrderBy) bool {
	if o.Dimension == TimeColumn {
		return true
	}
	return slices.ContainsFunc(s.dimensions, func(d Dimension) bool {
		return d.IsTime() && d.OutputName() == o.Dimension
	})
}

func (s state) ordersByNonTime() bool {
	return slices.ContainsFunc(s.limit.columns, func(o OrderBy) bool { return !s.sortsByTime(o) })
}

// timeDirection is the time ordering set with OrderByTime, falling back to
// the first order-by column on time. Empty means unset.
func (s state) timeDirection() Direction {
	if s.timeOrder != "" {
		return s.timeOrder
	}
	for _, o := range s.limit.columns {
		if s.sortsByTime(o) {
			return o.direction()
		}
	}
	return ""
}

// Builder accumulates query state.
//
// Methods that validate their input immediately (intervals, granularity,
// context, scan options) return an error. The chainable methods record
// problems and Build reports them all together.
type Builder struct {
	st     state
	filter *filter.Builder
	having *having.Builder
	errs   error
}

// New returns a builder reading from ds.
func New(ds datasource.DataSource) *Builder {
	return &Builder{
		st:     state{dataSource: ds},
		filter: filter.NewBuilder(),
		having: having.NewBuilder(nil),
	}
}

// Clone returns an independent copy of the builder.
func (b *Builder) Clone() *Builder {
	return &Builder{
		st:     b.st.clone(),
		filter: b.filter.Clone(),
		having: b.having.Clone(),
		errs:   b.errs,
	}
}

func (b *Builder) fail(code ErrorCode, format string, args ...any) {
	b.errs = multierr.Append(b.errs, newConfigError(code, "", format, args...))
}

// DataSource replaces the data source.
func (b *Builder) DataSource(ds datasource.DataSource) *Builder {
	b.st.dataSource = ds
	return b
}

// Interval adds the interval [start, stop). Both ends accept any date
// format dateparse understands.
func (b *Builder) Interval(start, stop string) error {
	iv, err := timespec.ParseInterval(start, stop)
	if err != nil {
		return &ConfigError{Code: ErrCodeInvalidInterval, Message: err.Error()}
	}
	b.st.intervals = append(b.st.intervals, iv)
	return nil
}

// AddInterval adds an already validated interval.
func (b *Builder) AddInterval(iv timespec.Interval) *Builder {
	b.st.intervals = append(b.st.intervals, iv)
	return b
}

// Granularity sets the query granularity.
func (b *Builder) Granularity(g string) error {
	parsed, err := timespec.ParseGranularity(g)
	if err != nil {
		return &ConfigError{Code: ErrCodeInvalidGranularity, Message: err.Error()}
	}
	b.st.granularity = parsed
	return nil
}

// Select adds a dimension. An alias equal to column, or empty, keeps the
// column name. Extraction steps are chained in the order given.
func (b *Builder) Select(column, alias string, steps ...extraction.Function) *Builder {
	chain := extraction.NewChain(steps...)
	return b.SelectDimension(Dimension{Column: column, Alias: alias, Extraction: chain.Function()})
}

// SelectDimension adds a fully specified dimension.
func (b *Builder) SelectDimension(d Dimension) *Builder {
	if d.Column == "" {
		b.fail(ErrCodeInvalidValue, "dimension without a column")
		return b
	}
	b.st.dimensions = append(b.st.dimensions, d)
	return b
}

// Aggregate adds an aggregation.
func (b *Builder) Aggregate(a Aggregation) *Builder {
	if a == nil {
		b.fail(ErrCodeInvalidValue, "nil aggregation")
		return b
	}
	if err := a.Validate(); err != nil {
		b.fail(ErrCodeInvalidValue, "%v", err)
		return b
	}
	b.st.aggregations = append(b.st.aggregations, a)
	return b
}

// Count adds a row count.
func (b *Builder) Count(name string) *Builder {
	return b.Aggregate(Count{Output: name})
}

// Sum adds a sum of field.
func (b *Builder) Sum(name, field string, vt ValueType) *Builder {
	return b.Aggregate(Field{Kind: KindSum, ValueType: vt, Output: name, FieldName: field})
}

// Min adds a minimum of field.
func (b *Builder) Min(name, field string, vt ValueType) *Builder {
	return b.Aggregate(Field{Kind: KindMin, ValueType: vt, Output: name, FieldName: field})
}

// Max adds a maximum of field.
func (b *Builder) Max(name, field string, vt ValueType) *Builder {
	return b.Aggregate(Field{Kind: KindMax, ValueType: vt, Output: name, FieldName: field})
}

// First adds the earliest value of field.
func (b *Builder) First(name, field string, vt ValueType) *Builder {
	return b.Aggregate(Field{Kind: KindFirst, ValueType: vt, Output: name, FieldName: field})
}

// Last adds the latest value of field.
func (b *Builder) Last(name, field string, vt ValueType) *Builder {
	return b.Aggregate(Field{Kind: KindLast, ValueType: vt, Output: name, FieldName: field})
}

// DistinctCount adds a cardinality estimate over fields.
func (b *Builder) DistinctCount(name string, fields ...string) *Builder {
	return b.Aggregate(Cardinality{Output: name, Fields: slices.Clone(fields)})
}

// PostAggregate adds a post aggregation.
func (b *Builder) PostAggregate(p PostAggregation) *Builder {
	if err := validatePostAggregation(p); err != nil {
		b.fail(ErrCodeInvalidValue, "%v", err)
		return b
	}
	b.st.postAggregations = append(b.st.postAggregations, p)
	return b
}

// VirtualColumn adds an expression column.
func (b *Builder) VirtualColumn(name, expression string, outputType ValueType) *Builder {
	if name == "" || expression == "" {
		b.fail(ErrCodeInvalidValue, "virtual column needs a name and an expression")
		return b
	}
	b.st.virtualColumns = append(b.st.virtualColumns, VirtualColumn{Name: name, Expression: expression, OutputType: outputType})
	return b
}

// Where adds a row filter condition joined with "and".
func (b *Builder) Where(column, operator string, value any, steps ...extraction.Function) *Builder {
	b.filter.Where(column, operator, value, steps...)
	return b
}

// OrWhere adds a row filter condition joined with "or".
func (b *Builder) OrWhere(column, operator string, value any, steps ...extraction.Function) *Builder {
	b.filter.OrWhere(column, operator, value, steps...)
	return b
}

// Filter runs fn against the row filter builder, for the helpers Where and
// OrWhere do not cover.
func (b *Builder) Filter(fn func(*filter.Builder)) *Builder {
	fn(b.filter)
	return b
}

// Having adds a having condition joined with "and". Names of aggregations
// and post aggregations added so far are the known aggregation names.
func (b *Builder) Having(name, operator string, value any) *Builder {
	b.having.SetKnown(b.st.metricNames())
	b.having.Having(name, operator, value)
	return b
}

// OrHaving adds a having condition joined with "or".
func (b *Builder) OrHaving(name, operator string, value any) *Builder {
	b.having.SetKnown(b.st.metricNames())
	b.having.OrHaving(name, operator, value)
	return b
}

// HavingWith runs fn against the having builder.
func (b *Builder) HavingWith(fn func(*having.Builder)) *Builder {
	b.having.SetKnown(b.st.metricNames())
	fn(b.having)
	return b
}

// Limit requests at most n rows.
func (b *Builder) Limit(n int) *Builder {
	if n <= 0 {
		b.fail(ErrCodeInvalidValue, "limit must be positive, got %d", n)
		return b
	}
	b.st.limit.count, b.st.limit.hasCount = n, true
	return b
}

// Offset skips the first n rows.
func (b *Builder) Offset(n int) *Builder {
	if n < 0 {
		b.fail(ErrCodeInvalidValue, "offset must not be negative, got %d", n)
		return b
	}
	b.st.limit.offset = n
	return b
}

// OrderBy sorts by an output column.
func (b *Builder) OrderBy(column string, direction Direction) *Builder {
	return b.Order(OrderBy{Dimension: column, Direction: direction})
}

// Order adds a fully specified order-by column.
func (b *Builder) Order(o OrderBy) *Builder {
	if o.Dimension == "" {
		b.fail(ErrCodeInvalidValue, "order by without a column")
		return b
	}
	b.st.limit.columns = append(b.st.limit.columns, o)
	return b
}

// OrderByTime sets the time ordering of timeseries, scan and select
// results.
func (b *Builder) OrderByTime(direction Direction) *Builder {
	b.st.timeOrder = direction
	return b
}

// Context merges entries into the query context. Values must be strings,
// booleans or numbers.
func (b *Builder) Context(entries map[string]any) error {
	merged := b.st.context.Clone()
	if merged == nil {
		merged = wire.Object{}
	}
	for _, k := range slices.Sorted(maps.Keys(entries)) {
		v, err := wire.FromGo(entries[k])
		if err != nil {
			return &ConfigError{Code: ErrCodeInvalidValue, Message: fmt.Sprintf("context %q: %v", k, err)}
		}
		switch v.(type) {
		case wire.String, wire.Bool, wire.Int, wire.Float:
		default:
			return &ConfigError{Code: ErrCodeInvalidValue, Message: fmt.Sprintf("context %q: want string, bool or number", k)}
		}
		merged[k] = v
	}
	b.st.context = merged
	return nil
}

// Subtotals sets GroupBy subtotal dimension sets.
func (b *Builder) Subtotals(sets ...[]string) *Builder {
	b.st.subtotals = nil
	for _, set := range sets {
		b.st.subtotals = append(b.st.subtotals, slices.Clone(set))
	}
	return b
}

// PagingIdentifiers sets select paging state: segment identifier to
// offset. Setting it, even to an empty map, marks the query as a select.
func (b *Builder) PagingIdentifiers(ids map[string]int) *Builder {
	b.st.paging = true
	b.st.pagingIDs = maps.Clone(ids)
	return b
}

// Metrics sets the metric columns a select query returns.
func (b *Builder) Metrics(names ...string) *Builder {
	b.st.metrics = slices.Clone(names)
	return b
}

// SearchFor sets the search query spec.
func (b *Builder) SearchFor(spec filter.SearchSpec) *Builder {
	b.st.search = spec
	return b
}

// SearchContains searches for values containing value.
func (b *Builder) SearchContains(value string, caseSensitive bool) *Builder {
	return b.SearchFor(filter.Contains{Value: value, CaseSensitive: caseSensitive})
}

// SearchFragments searches for values containing every fragment.
func (b *Builder) SearchFragments(fragments []string, caseSensitive bool) *Builder {
	return b.SearchFor(filter.Fragment{Values: slices.Clone(fragments), CaseSensitive: caseSensitive})
}

// SearchRegex searches for values matching pattern.
func (b *Builder) SearchRegex(pattern string) *Builder {
	return b.SearchFor(filter.RegexSearch{Pattern: pattern})
}

// SearchSort sets the search result ordering.
func (b *Builder) SearchSort(c comparator.Comparator) *Builder {
	b.st.searchSort = c
	return b
}

// Scan sets scan options.
func (b *Builder) Scan(opts ScanOptions) error {
	switch opts.ResultFormat {
	case "", ResultFormatList, ResultFormatCompactedList:
	default:
		return &ConfigError{Code: ErrCodeInvalidValue, Message: fmt.Sprintf("unknown scan result format %q", opts.ResultFormat)}
	}
	if opts.BatchSize < 0 {
		return &ConfigError{Code: ErrCodeInvalidValue, Message: fmt.Sprintf("batch size must not be negative, got %d", opts.BatchSize)}
	}
	b.st.scan = opts
	return nil
}

// Shape returns the shape Build would produce.
func (b *Builder) Shape() Shape {
	return resolve(b.snapshot())
}

// snapshot copies the builder's state, including the current filter and
// having trees.
func (b *Builder) snapshot() state {
	st := b.st.clone()
	st.filter = b.filter.Predicate()
	st.having = b.having.Spec()
	return st
}

// pending returns recorded accumulation errors, including those of the
// filter and having builders.
func (b *Builder) pending() error {
	errs := b.errs
	if err := b.filter.Err(); err != nil {
		errs = multierr.Append(errs, &ConfigError{Code: ErrCodeInvalidFilter, Message: err.Error()})
	}
	if err := b.having.Err(); err != nil {
		errs = multierr.Append(errs, &ConfigError{Code: ErrCodeInvalidHaving, Message: err.Error()})
	}
	return errs
}

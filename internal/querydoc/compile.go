package querydoc

import (
	"fmt"
	"strings"

	"github.com/roach88/druidq/internal/comparator"
	"github.com/roach88/druidq/internal/datasource"
	"github.com/roach88/druidq/internal/extraction"
	"github.com/roach88/druidq/internal/filter"
	"github.com/roach88/druidq/internal/having"
	"github.com/roach88/druidq/internal/query"
)

func (s DataSource) compile() (datasource.DataSource, error) {
	var (
		ds datasource.DataSource
		n  int
	)
	if s.Table != "" {
		ds, n = datasource.Table{Name: s.Table}, n+1
	}
	if s.Lookup != "" {
		ds, n = datasource.Lookup{Lookup: s.Lookup}, n+1
	}
	if len(s.Union) > 0 {
		ds, n = datasource.Union{Names: s.Union}, n+1
	}
	if s.Inline != nil {
		inline, err := datasource.NewInline(s.Inline.Columns, s.Inline.Rows)
		if err != nil {
			return nil, wrapError("datasource.inline", err)
		}
		ds, n = inline, n+1
	}
	if n != 1 {
		return nil, fieldError("datasource", "exactly one of table, lookup, union or inline is required")
	}
	if err := datasource.Validate(ds); err != nil {
		return nil, wrapError("datasource", err)
	}
	return ds, nil
}

func compileSteps(field string, steps []Step) (extraction.Function, error) {
	var chain extraction.Chain
	for i, s := range steps {
		fn, err := s.compile()
		if err != nil {
			return nil, wrapError(fmt.Sprintf("%s[%d]", field, i), err)
		}
		chain.Add(fn)
	}
	return chain.Function(), nil
}

func (s Step) compile() (extraction.Function, error) {
	switch s.Type {
	case "substring":
		return extraction.Substring{Index: s.Index, Length: s.Length}, nil
	case "upper":
		return extraction.Upper{Locale: s.Locale}, nil
	case "lower":
		return extraction.Lower{Locale: s.Locale}, nil
	case "stringFormat":
		return extraction.StringFormat{Format: s.Format, NullHandling: extraction.NullHandling(s.NullHandling)}, nil
	case "strlen":
		return extraction.Strlen{}, nil
	case "regex":
		return extraction.Regex{
			Expr:                    s.Expr,
			Index:                   s.Index,
			ReplaceMissingValue:     s.ReplaceMissingValue,
			ReplaceMissingValueWith: s.ReplaceMissingValueWith,
		}, nil
	case "partial":
		return extraction.Partial{Expr: s.Expr}, nil
	case "searchQuery":
		return extraction.SearchQuery{Value: s.Value, CaseSensitive: s.CaseSensitive}, nil
	case "bucket":
		return extraction.Bucket{Size: s.Size, Offset: s.Offset}, nil
	case "javascript":
		return extraction.JavaScript{Function: s.Function, Injective: s.Injective}, nil
	case "registeredLookup":
		return extraction.RegisteredLookup{
			Lookup:                  s.Lookup,
			RetainMissingValue:      s.RetainMissingValue,
			ReplaceMissingValueWith: s.ReplaceMissingValueWith,
			Injective:               s.Injective,
		}, nil
	case "lookup":
		return extraction.InlineLookup{
			Map:                     s.Map,
			RetainMissingValue:      s.RetainMissingValue,
			ReplaceMissingValueWith: s.ReplaceMissingValueWith,
			Injective:               s.Injective,
		}, nil
	case "timeFormat":
		return extraction.TimeFormat{
			Format:      s.Format,
			TimeZone:    s.TimeZone,
			Locale:      s.Locale,
			Granularity: s.Granularity,
			AsMillis:    s.AsMillis,
		}, nil
	case "time":
		return extraction.TimeParse{TimeFormat: s.TimeFormat, ResultFormat: s.ResultFormat, Joda: s.Joda}, nil
	}
	return nil, fmt.Errorf("unsupported extraction type %q", s.Type)
}

var valueTypePrefixes = []query.ValueType{query.TypeLong, query.TypeDouble, query.TypeFloat}

var kinds = []query.Kind{query.KindSum, query.KindMin, query.KindMax, query.KindFirst, query.KindLast, query.KindAny}

func (a Aggregation) compile(field string) (query.Aggregation, error) {
	var agg query.Aggregation
	switch a.Type {
	case "count":
		agg = query.Count{Output: a.Name}
	case "cardinality":
		fields := a.Fields
		if len(fields) == 0 && a.Field != "" {
			fields = []string{a.Field}
		}
		agg = query.Cardinality{Output: a.Name, Fields: fields, ByRow: a.ByRow, Round: a.Round}
	case "hyperUnique":
		agg = query.HyperUnique{Output: a.Name, FieldName: a.Field, Round: a.Round}
	default:
		f, ok := parseFieldAggregation(a.Type)
		if !ok {
			return nil, fieldError(field, "unsupported aggregation type %q", a.Type)
		}
		f.Output, f.FieldName = a.Name, a.Field
		agg = f
	}

	if len(a.Filter) == 0 {
		return agg, nil
	}
	fb := filter.NewBuilder()
	if err := addFilterConditions(field+".filter", fb, a.Filter); err != nil {
		return nil, err
	}
	if err := fb.Err(); err != nil {
		return nil, wrapError(field+".filter", err)
	}
	if fb.Empty() {
		return agg, nil
	}
	return query.Filtered{Filter: fb.Predicate(), Aggregator: agg}, nil
}

// parseFieldAggregation splits names such as "longSum" or "doubleFirst".
func parseFieldAggregation(typ string) (query.Field, bool) {
	for _, vt := range valueTypePrefixes {
		rest, ok := strings.CutPrefix(typ, string(vt))
		if !ok {
			continue
		}
		for _, k := range kinds {
			if strings.EqualFold(rest, string(k)) {
				return query.Field{Kind: k, ValueType: vt}, true
			}
		}
	}
	return query.Field{}, false
}

func (p PostAggregation) compile(field string) (query.PostAggregation, error) {
	fields := func() ([]query.PostAggregation, error) {
		out := make([]query.PostAggregation, 0, len(p.Fields))
		for i, sub := range p.Fields {
			c, err := sub.compile(fmt.Sprintf("%s.fields[%d]", field, i))
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
		return out, nil
	}

	switch p.Type {
	case "arithmetic":
		fs, err := fields()
		if err != nil {
			return nil, err
		}
		return query.Arithmetic{Output: p.Name, Fn: p.Fn, Fields: fs, Ordering: p.Ordering}, nil
	case "fieldAccess":
		return query.FieldAccess{Output: p.Name, FieldName: p.Field}, nil
	case "finalizingFieldAccess":
		return query.FinalizingFieldAccess{Output: p.Name, FieldName: p.Field}, nil
	case "constant":
		return query.Constant{Output: p.Name, Value: p.Value}, nil
	case "hyperUniqueCardinality":
		return query.HyperUniqueCardinality{Output: p.Name, FieldName: p.Field}, nil
	case "expression":
		return query.ExpressionPost{Output: p.Name, Expression: p.Expression, Ordering: p.Ordering}, nil
	case "greatest", "least":
		vt, err := query.ParseValueType(p.ValueType)
		if err != nil {
			return nil, wrapError(field, err)
		}
		if p.ValueType == "" {
			vt = query.TypeDouble
		}
		fs, err := fields()
		if err != nil {
			return nil, err
		}
		return query.Extreme{Output: p.Name, Greatest: p.Type == "greatest", ValueType: vt, Fields: fs}, nil
	}
	return nil, fieldError(field, "unsupported post aggregation type %q", p.Type)
}

func boolean(c Condition) filter.Boolean {
	if c.Or {
		return filter.BoolOr
	}
	return filter.BoolAnd
}

func addFilterConditions(field string, b *filter.Builder, conds []Condition) error {
	compiled := make([]filter.Condition, len(conds))
	for i, c := range conds {
		fc, err := c.filterCondition(fmt.Sprintf("%s[%d]", field, i))
		if err != nil {
			return err
		}
		compiled[i] = fc
	}
	for i, fc := range compiled {
		b.Add(fc, boolean(conds[i]))
	}
	return nil
}

func (c Condition) filterCondition(field string) (filter.Condition, error) {
	var cond filter.Condition
	switch {
	case len(c.Group) > 0:
		// Compile eagerly so errors surface here, not inside the callback.
		inner := filter.NewBuilder()
		if err := addFilterConditions(field+".group", inner, c.Group); err != nil {
			return nil, err
		}
		group := c.Group
		cond = filter.Group(func(b *filter.Builder) {
			_ = addFilterConditions(field+".group", b, group)
		})
	case c.Column == "" || c.Op == "":
		return nil, fieldError(field, "column and op are required")
	default:
		fn, err := compileSteps(field+".extraction", c.Extraction)
		if err != nil {
			return nil, err
		}
		cond = filter.Compare{Column: c.Column, Operator: c.Op, Value: c.Value, Extraction: fn}
	}
	if !c.Not {
		return cond, nil
	}
	return filter.Negated{Group: func(b *filter.Builder) { b.Add(cond, filter.BoolAnd) }}, nil
}

func addHavingConditions(field string, b *having.Builder, conds []Condition) error {
	compiled := make([]having.Condition, len(conds))
	for i, c := range conds {
		hc, err := c.havingCondition(fmt.Sprintf("%s[%d]", field, i))
		if err != nil {
			return err
		}
		compiled[i] = hc
	}
	for i, hc := range compiled {
		b.Add(hc, boolean(conds[i]))
	}
	return nil
}

func (c Condition) havingCondition(field string) (having.Condition, error) {
	var cond having.Condition
	switch {
	case len(c.Group) > 0:
		inner := having.NewBuilder(nil)
		if err := addHavingConditions(field+".group", inner, c.Group); err != nil {
			return nil, err
		}
		group := c.Group
		cond = having.Group(func(b *having.Builder) {
			_ = addHavingConditions(field+".group", b, group)
		})
	case c.Column == "" || c.Op == "":
		return nil, fieldError(field, "column and op are required")
	default:
		fn, err := compileSteps(field+".extraction", c.Extraction)
		if err != nil {
			return nil, err
		}
		cond = having.Compare{Name: c.Column, Operator: c.Op, Value: c.Value, Extraction: fn}
	}
	if !c.Not {
		return cond, nil
	}
	return having.Negated{Group: func(b *having.Builder) { b.Add(cond, filter.BoolAnd) }}, nil
}

func (s SearchOptions) spec() (filter.SearchSpec, error) {
	var (
		spec filter.SearchSpec
		n    int
	)
	if s.Contains != "" {
		spec, n = filter.Contains{Value: s.Contains, CaseSensitive: s.CaseSensitive}, n+1
	}
	if len(s.Fragments) > 0 {
		spec, n = filter.Fragment{Values: s.Fragments, CaseSensitive: s.CaseSensitive}, n+1
	}
	if s.Regex != "" {
		spec, n = filter.RegexSearch{Pattern: s.Regex}, n+1
	}
	if n != 1 {
		return nil, fieldError("search", "exactly one of contains, fragments or regex is required")
	}
	return spec, nil
}

func (o Order) compile(field string) (query.OrderBy, error) {
	dir, err := query.ParseDirection(o.Direction)
	if err != nil {
		return query.OrderBy{}, wrapError(field, err)
	}
	var collation comparator.Comparator
	if o.Collation != "" {
		if collation, err = comparator.Parse(o.Collation); err != nil {
			return query.OrderBy{}, wrapError(field, err)
		}
	}
	return query.OrderBy{Dimension: o.Column, Direction: dir, Collation: collation}, nil
}

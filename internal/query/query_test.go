package query

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/druidq/internal/comparator"
	"github.com/roach88/druidq/internal/datasource"
	"github.com/roach88/druidq/internal/extraction"
	"github.com/roach88/druidq/internal/filter"
	"github.com/roach88/druidq/internal/wire"
)

func render(t *testing.T, q Query) wire.Object {
	t.Helper()
	data, err := q.MarshalJSON()
	require.NoError(t, err)
	var obj wire.Object
	require.NoError(t, json.Unmarshal(data, &obj))
	return obj
}

func TestBuild_Idempotent(t *testing.T) {
	b := newWikipedia(t).Select("channel", "").Select("page", "").Sum("added", "added", TypeLong)
	q, err := b.Build()
	require.NoError(t, err)

	first, err := q.MarshalJSON()
	require.NoError(t, err)
	second, err := q.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	again, err := b.Build()
	require.NoError(t, err)
	third, err := again.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, first, third)
}

func TestBuild_ShapePriority(t *testing.T) {
	b := newWikipedia(t).Select(TimeColumn, "hour").Count("edits")
	assert.Equal(t, ShapeTimeSeries, b.Shape())

	b.Limit(10).OrderBy("edits", Descending)
	assert.Equal(t, ShapeTopN, b.Shape())

	b.Select("user", "")
	assert.Equal(t, ShapeGroupBy, b.Shape(), "a second dimension forces groupBy")

	topN := newWikipedia(t).Select("page", "title").Limit(10).OrderBy("edits", Descending)
	assert.Equal(t, ShapeTopN, topN.Shape())
}

func TestBuild_TopHoursByMetric(t *testing.T) {
	q, err := newWikipedia(t).
		Select(TimeColumn, "hour").
		Count("edits").
		Limit(10).
		OrderBy("edits", Descending).
		Build()
	require.NoError(t, err)
	require.Equal(t, ShapeTopN, q.Shape())

	obj := q.Wire()
	assert.Equal(t, wire.Int(10), obj["threshold"])
	data, err := wire.MarshalCanonical(obj["metric"])
	require.NoError(t, err)
	assert.Equal(t, `{"metric":"edits","type":"numeric"}`, string(data))
	dim := obj["dimension"].(wire.Object)
	assert.Equal(t, wire.String(TimeColumn), dim["dimension"])
	assert.Equal(t, wire.String("hour"), dim["outputName"])
}

func TestBuild_TimeOrderingStaysTimeSeries(t *testing.T) {
	tests := []struct {
		name   string
		column string
	}{
		{"time column", TimeColumn},
		{"time output name", "hour"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := newWikipedia(t).
				Select(TimeColumn, "hour").
				Count("edits").
				Limit(24).
				OrderBy(tt.column, Descending).
				Build()
			require.NoError(t, err)
			require.Equal(t, ShapeTimeSeries, q.Shape())

			obj := q.Wire()
			assert.Equal(t, wire.Bool(true), obj["descending"])
			assert.Equal(t, wire.Int(24), obj["limit"])
		})
	}
}

func TestBuild_RejectsStateTheShapeCannotRender(t *testing.T) {
	arith := Arithmetic{Output: "r", Fn: "/", Fields: []PostAggregation{
		FieldAccess{FieldName: "n"}, FieldAccess{FieldName: "n"},
	}}

	tests := []struct {
		name  string
		shape Shape
		setup func(b *Builder)
	}{
		{"aggregations on search", ShapeSearch, func(b *Builder) {
			b.Select("page", "").Select("user", "").Count("n").SearchContains("x", false)
		}},
		{"post aggregations on search", ShapeSearch, func(b *Builder) {
			b.SearchContains("x", false).PostAggregate(arith)
		}},
		{"virtual columns on search", ShapeSearch, func(b *Builder) {
			b.SearchContains("x", false).VirtualColumn("len", "strlen(page)", TypeLong)
		}},
		{"offset on topN", ShapeTopN, func(b *Builder) {
			b.Select("page", "").Count("n").Limit(5).Offset(5).OrderBy("n", Descending)
		}},
		{"offset on timeseries", ShapeTimeSeries, func(b *Builder) {
			b.Select(TimeColumn, "hour").Count("n").Offset(5)
		}},
		{"subtotals on topN", ShapeTopN, func(b *Builder) {
			b.Select("page", "").Count("n").Limit(5).OrderBy("n", Descending).Subtotals([]string{"page"})
		}},
		{"subtotals on scan", ShapeScan, func(b *Builder) {
			b.Select("page", "").Subtotals([]string{"page"})
		}},
		{"metric ordering on timeseries", ShapeTimeSeries, func(b *Builder) {
			b.Select(TimeColumn, "hour").Count("n").OrderBy("n", Descending)
		}},
		{"column ordering on scan", ShapeScan, func(b *Builder) {
			b.Select("page", "").Limit(5).OrderBy("page", Ascending)
		}},
		{"time ordering on groupBy", ShapeGroupBy, func(b *Builder) {
			b.Select("page", "").Select("user", "").Count("n").OrderByTime(Descending)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newWikipedia(t)
			tt.setup(b)

			var err error
			switch tt.shape {
			case ShapeSearch:
				_, err = b.BuildSearch()
			case ShapeTopN:
				_, err = b.BuildTopN()
			case ShapeTimeSeries:
				_, err = b.BuildTimeSeries()
			case ShapeScan:
				_, err = b.BuildScan()
			case ShapeGroupBy:
				_, err = b.BuildGroupBy()
			}
			require.Error(t, err)
			assert.Equal(t, []ErrorCode{ErrCodeShapeMismatch}, Codes(err))

			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.shape, ce.Shape)
		})
	}
}

func TestBuild_SearchWithAggregationsFails(t *testing.T) {
	b := newWikipedia(t).Select("page", "").Select("user", "").Count("n").SearchContains("x", false)
	require.Equal(t, ShapeSearch, b.Shape())

	q, err := b.Build()
	assert.Nil(t, q)
	assert.True(t, HasCode(err, ErrCodeShapeMismatch))
	assert.Contains(t, err.Error(), "aggregations is not supported by search")
}

func TestBuild_TwoDimensionsAndSumIsGroupBy(t *testing.T) {
	for _, limit := range []int{0, 1, 1000} {
		b := newWikipedia(t).Select("channel", "").Select("page", "").Sum("added", "added", TypeLong)
		if limit > 0 {
			b.Limit(limit).OrderBy("added", Descending)
		}
		q, err := b.Build()
		require.NoError(t, err)
		assert.Equal(t, ShapeGroupBy, q.Shape())
	}
}

func TestBuild_ScanColumnsRoundTrip(t *testing.T) {
	q, err := newWikipedia(t).Select("a", "").Select("b", "b").Build()
	require.NoError(t, err)
	require.Equal(t, ShapeScan, q.Shape())

	obj := render(t, q)
	assert.Equal(t, wire.Array{wire.String("a"), wire.String("b")}, obj["columns"])
	assert.NotContains(t, obj, "aggregations")
	assert.NotContains(t, obj, "filter")
	assert.NotContains(t, obj, "context")
	assert.NotContains(t, obj, "limit")
}

func TestBuild_WhereScenario(t *testing.T) {
	b := newWikipedia(t).
		Select("page", "title").
		Count("rows").
		Where("age", ">", 18).
		Where("age", "<", 65)

	q, err := b.Build()
	require.NoError(t, err)

	root, ok := q.(*GroupBy).st.filter.(filter.And)
	require.True(t, ok)
	require.Len(t, root.Fields, 2)

	lower, ok := root.Fields[0].(filter.Bound)
	require.True(t, ok)
	assert.Equal(t, "age", lower.Dimension)
	assert.Equal(t, wire.Int(18), lower.Lower)
	assert.True(t, lower.LowerStrict)
	assert.Nil(t, lower.Upper)

	upper, ok := root.Fields[1].(filter.Bound)
	require.True(t, ok)
	assert.Equal(t, "age", upper.Dimension)
	assert.Equal(t, wire.Int(65), upper.Upper)
	assert.True(t, upper.UpperStrict)
	assert.Nil(t, upper.Lower)
}

func TestBuild_ExtractionOrder(t *testing.T) {
	a := extraction.InlineLookup{Map: map[string]string{"x": "y"}}
	bFn := extraction.StringFormat{Format: "[%s]"}

	q, err := newWikipedia(t).Select("d", "out", a, bFn).Count("n").Build()
	require.NoError(t, err)

	dims := render(t, q)["dimensions"].(wire.Array)
	fn := dims[0].(wire.Object)["extractionFn"].(wire.Object)
	assert.Equal(t, wire.String("cascade"), fn["type"])
	steps := fn["extractionFns"].(wire.Array)
	require.Len(t, steps, 2)
	assert.Equal(t, wire.String("lookup"), steps[0].(wire.Object)["type"])
	assert.Equal(t, wire.String("stringFormat"), steps[1].(wire.Object)["type"])

	got, err := extraction.NewChain(a, bFn).Function().Apply("x")
	require.NoError(t, err)
	assert.Equal(t, "[y]", got)
}

func TestBuild_SnapshotIsolation(t *testing.T) {
	b := newWikipedia(t).Select("page", "").Count("edits").Where("a", "=", "1")
	q, err := b.Build()
	require.NoError(t, err)
	before, err := q.MarshalJSON()
	require.NoError(t, err)

	b.Select("user", "").Where("b", "=", "2").Limit(3)
	require.NoError(t, b.Context(map[string]any{"priority": 1}))
	require.NoError(t, b.Interval("2024-02-01", "2024-02-02"))

	after, err := q.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestBuild_WireIsFreshCopy(t *testing.T) {
	b := newWikipedia(t).Select("page", "")
	require.NoError(t, b.Context(map[string]any{"priority": 1}))
	q, err := b.Build()
	require.NoError(t, err)

	obj := q.Wire()
	obj["context"].(wire.Object)["priority"] = wire.Int(99)
	obj["queryType"] = wire.String("mutated")

	again := q.Wire()
	assert.Equal(t, wire.Int(1), again["context"].(wire.Object)["priority"])
	assert.Equal(t, wire.String("scan"), again["queryType"])
}

func TestBuild_NoIntervals(t *testing.T) {
	_, err := New(datasource.Table{Name: "t"}).Select("a", "").Build()
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
	assert.True(t, HasCode(err, ErrCodeNoIntervals))
}

func TestBuild_NoDataSource(t *testing.T) {
	b := New(nil)
	require.NoError(t, b.Interval("2024-01-01", "2024-01-02"))
	_, err := b.Build()
	assert.True(t, HasCode(err, ErrCodeNoDataSource))
}

func TestBuildTopN_Preconditions(t *testing.T) {
	_, err := New(datasource.Table{Name: "t"}).Select("page", "").Count("n").BuildTopN()
	require.Error(t, err)
	assert.ElementsMatch(t, []ErrorCode{ErrCodeNoIntervals, ErrCodeNoLimit, ErrCodeNoOrderBy}, Codes(err))

	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ShapeTopN, ce.Shape)

	_, err = newWikipedia(t).Select("a", "").Select("b", "").Limit(1).OrderBy("n", Descending).BuildTopN()
	assert.True(t, HasCode(err, ErrCodeShapeMismatch))
}

func TestBuildSelect_NeedsLimit(t *testing.T) {
	_, err := newWikipedia(t).Select("page", "").PagingIdentifiers(nil).BuildSelect()
	assert.True(t, HasCode(err, ErrCodeNoLimit))
}

func TestBuildSearch_NeedsSearchSpec(t *testing.T) {
	_, err := newWikipedia(t).Select("page", "").BuildSearch()
	assert.True(t, HasCode(err, ErrCodeNoSearchFilter))
}

func TestBuildScan_RejectsAggregations(t *testing.T) {
	_, err := newWikipedia(t).Count("n").BuildScan()
	assert.True(t, HasCode(err, ErrCodeShapeMismatch))
}

func TestBuildTimeSeries_RejectsOtherDimensions(t *testing.T) {
	_, err := newWikipedia(t).Select("page", "").Count("n").BuildTimeSeries()
	assert.True(t, HasCode(err, ErrCodeShapeMismatch))

	q, err := newWikipedia(t).Count("n").BuildTimeSeries()
	require.NoError(t, err)
	assert.Equal(t, "timestamp", q.TimeOutputName())
}

func TestBuild_HavingOutsideGroupBy(t *testing.T) {
	_, err := newWikipedia(t).Select(TimeColumn, "t").Count("n").Having("n", ">", 1).Build()
	assert.True(t, HasCode(err, ErrCodeShapeMismatch))
}

func TestBuild_AccumulationErrorsSurface(t *testing.T) {
	b := newWikipedia(t).
		Select("page", "").
		Sum("s", "field", TypeString).
		Where("page", "like", nil).
		Limit(-1)

	_, err := b.Build()
	require.Error(t, err)
	codes := Codes(err)
	assert.Contains(t, codes, ErrCodeInvalidValue)
	assert.Contains(t, codes, ErrCodeInvalidFilter)

	for _, code := range Codes(b.errs) {
		assert.Equal(t, ErrCodeInvalidValue, code)
	}
	// The builder's own errors are never tagged with a shape.
	var ce *ConfigError
	require.ErrorAs(t, b.errs, &ce)
	assert.Empty(t, ce.Shape)
}

func TestBuilder_ImmediateValidation(t *testing.T) {
	b := New(datasource.Table{Name: "t"})

	err := b.Interval("2024-02-01", "2024-01-01")
	assert.True(t, HasCode(err, ErrCodeInvalidInterval))

	err = b.Interval("not a date", "2024-01-01")
	assert.True(t, HasCode(err, ErrCodeInvalidInterval))

	err = b.Granularity("fortnight")
	assert.True(t, HasCode(err, ErrCodeInvalidGranularity))

	err = b.Context(map[string]any{"nested": map[string]any{"a": 1}})
	assert.True(t, HasCode(err, ErrCodeInvalidValue))

	err = b.Context(map[string]any{"missing": nil})
	assert.True(t, HasCode(err, ErrCodeInvalidValue))

	err = b.Scan(ScanOptions{ResultFormat: "table"})
	assert.True(t, HasCode(err, ErrCodeInvalidValue))

	assert.Empty(t, b.st.intervals)
	assert.Empty(t, b.st.granularity)
	assert.Nil(t, b.st.context)
}

func TestTopN_MetricDirection(t *testing.T) {
	tests := []struct {
		name  string
		order OrderBy
		want  string
	}{
		{
			name:  "metric descending",
			order: OrderBy{Dimension: "edits", Direction: Descending},
			want:  `{"metric":"edits","type":"numeric"}`,
		},
		{
			name:  "metric ascending is inverted",
			order: OrderBy{Dimension: "edits", Direction: Ascending},
			want:  `{"metric":{"metric":"edits","type":"numeric"},"type":"inverted"}`,
		},
		{
			name:  "dimension ascending",
			order: OrderBy{Dimension: "page", Direction: Ascending, Collation: comparator.Alphanumeric},
			want:  `{"ordering":"alphanumeric","type":"dimension"}`,
		},
		{
			name:  "dimension descending is inverted",
			order: OrderBy{Dimension: "page", Direction: Descending},
			want:  `{"metric":{"ordering":"lexicographic","type":"dimension"},"type":"inverted"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := newWikipedia(t).Select("page", "").Count("edits").Limit(3).Order(tt.order).BuildTopN()
			require.NoError(t, err)
			data, err := wire.MarshalCanonical(q.Wire()["metric"])
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
		})
	}
}

func TestGroupBy_LimitSpecOmittedWhenUnset(t *testing.T) {
	q, err := newWikipedia(t).Select("a", "").Select("b", "").Count("n").BuildGroupBy()
	require.NoError(t, err)
	obj := q.Wire()
	assert.NotContains(t, obj, "limitSpec")
	assert.NotContains(t, obj, "having")
	assert.NotContains(t, obj, "subtotalsSpec")
	assert.NotContains(t, obj, "postAggregations")
	assert.Equal(t, wire.String("all"), obj["granularity"])
}

func TestScan_Options(t *testing.T) {
	b := newWikipedia(t).Select("a", "").Offset(5)
	require.NoError(t, b.Scan(ScanOptions{ResultFormat: ResultFormatCompactedList, BatchSize: 100, Legacy: true}))

	q, err := b.BuildScan()
	require.NoError(t, err)
	obj := q.Wire()
	assert.Equal(t, wire.String("compactedList"), obj["resultFormat"])
	assert.Equal(t, wire.Int(100), obj["batchSize"])
	assert.Equal(t, wire.Int(5), obj["offset"])
	assert.Equal(t, wire.Bool(true), obj["legacy"])
	assert.NotContains(t, obj, "order")
	assert.Equal(t, []string{"a"}, q.Columns())
}

func TestSearch_Options(t *testing.T) {
	b := newWikipedia(t).SearchFragments([]string{"a", "b"}, true).SearchSort(comparator.Strlen)
	q, err := b.BuildSearch()
	require.NoError(t, err)

	obj := q.Wire()
	assert.NotContains(t, obj, "searchDimensions")
	assert.NotContains(t, obj, "limit")
	data, err := wire.MarshalCanonical(obj["sort"])
	require.NoError(t, err)
	assert.Equal(t, `{"type":"strlen"}`, string(data))
}

func TestBuilder_Clone(t *testing.T) {
	b := newWikipedia(t).Select("a", "").Where("x", "=", "1")
	c := b.Clone()

	c.Select("b", "").Count("n").Where("y", "=", "2")
	require.NoError(t, c.Interval("2024-03-01", "2024-03-02"))

	assert.Len(t, b.st.dimensions, 1)
	assert.Len(t, b.st.intervals, 1)
	assert.Empty(t, b.st.aggregations)
	assert.IsType(t, filter.Selector{}, b.filter.Predicate())
	assert.IsType(t, filter.And{}, c.filter.Predicate())
}

func TestBuilder_HavingUsesKnownAggregations(t *testing.T) {
	q, err := newWikipedia(t).
		Select("a", "").
		Select("b", "").
		Count("n").
		Having("n", "=", 3).
		Having("a", "=", "x").
		BuildGroupBy()
	require.NoError(t, err)

	data, err := wire.MarshalCanonical(q.Wire()["having"])
	require.NoError(t, err)
	assert.Equal(t,
		`{"havingSpecs":[{"aggregation":"n","type":"equalTo","value":3},{"dimension":"a","type":"dimSelector","value":"x"}],"type":"and"}`,
		string(data))
}

func TestDimension(t *testing.T) {
	d := Dimension{Column: "added", Alias: "a", OutputType: TypeLong}
	assert.Equal(t, "a", d.OutputName())
	assert.False(t, d.Plain())

	data, err := wire.MarshalCanonical(d.Wire())
	require.NoError(t, err)
	assert.Equal(t, `{"dimension":"added","outputName":"a","outputType":"LONG","type":"default"}`, string(data))

	assert.True(t, Dimension{Column: "x", Alias: "x"}.Plain())
	assert.True(t, Dimension{Column: TimeColumn}.IsTime())
}

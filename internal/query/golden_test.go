package query

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/roach88/druidq/internal/datasource"
	"github.com/roach88/druidq/internal/extraction"
)

func newWikipedia(t *testing.T) *Builder {
	t.Helper()
	b := New(datasource.Table{Name: "wikipedia"})
	require.NoError(t, b.Interval("2024-01-01", "2024-01-02"))
	return b
}

func TestBuild_Golden(t *testing.T) {
	tests := []struct {
		name  string
		shape Shape
		setup func(t *testing.T, b *Builder)
	}{
		{
			name:  "scan_basic",
			shape: ShapeScan,
			setup: func(t *testing.T, b *Builder) {
				b.Select("page", "").
					Select("user", "").
					Where("channel", "=", "#en.wikipedia").
					Limit(10).
					OrderByTime(Descending)
			},
		},
		{
			name:  "timeseries_hourly",
			shape: ShapeTimeSeries,
			setup: func(t *testing.T, b *Builder) {
				require.NoError(t, b.Granularity("hour"))
				require.NoError(t, b.Context(map[string]any{"timeout": 30000}))
				b.Select(TimeColumn, "hour").
					Count("rows").
					Sum("added", "added", TypeLong).
					PostAggregate(Arithmetic{
						Output: "avg_added",
						Fn:     "/",
						Fields: []PostAggregation{
							FieldAccess{FieldName: "added"},
							FieldAccess{FieldName: "rows"},
						},
					})
			},
		},
		{
			name:  "topn_pages",
			shape: ShapeTopN,
			setup: func(t *testing.T, b *Builder) {
				b.Select("page", "").
					Count("edits").
					Where("namespace", "=", "Main").
					Limit(5).
					OrderBy("edits", Descending)
			},
		},
		{
			name:  "groupby_having",
			shape: ShapeGroupBy,
			setup: func(t *testing.T, b *Builder) {
				require.NoError(t, b.Granularity("day"))
				b.Select("channel", "").
					Select("page", "title", extraction.Upper{}).
					Count("edits").
					Sum("delta", "delta", TypeDouble).
					VirtualColumn("len", "strlen(page)", TypeLong).
					Having("edits", ">", 10).
					Limit(100).
					Offset(20).
					OrderBy("edits", Descending).
					Subtotals([]string{"channel"}, []string{"channel", "title"})
			},
		},
		{
			name:  "select_paging",
			shape: ShapeSelect,
			setup: func(t *testing.T, b *Builder) {
				b.Select("page", "title").
					Metrics("added").
					PagingIdentifiers(map[string]int{"seg1": 5}).
					Limit(20)
			},
		},
		{
			name:  "search_contains",
			shape: ShapeSearch,
			setup: func(t *testing.T, b *Builder) {
				b.Select("page", "", extraction.Lower{}).
					SearchContains("wiki", false).
					Limit(50)
			},
		},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newWikipedia(t)
			tt.setup(t, b)

			q, err := b.Build()
			require.NoError(t, err)
			require.Equal(t, tt.shape, q.Shape())

			data, err := q.MarshalJSON()
			require.NoError(t, err)
			g.Assert(t, tt.name, data)
		})
	}
}

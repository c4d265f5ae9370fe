package having

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/druidq/internal/filter"
	"github.com/roach88/druidq/internal/wire"
)

var known = []string{"count", "revenue"}

func canonical(t *testing.T, s Spec) string {
	t.Helper()
	data, err := wire.MarshalCanonical(s.Wire())
	require.NoError(t, err)
	return string(data)
}

func TestCompareResolve(t *testing.T) {
	tests := []struct {
		name string
		cmp  Compare
		want string
	}{
		{
			name: "equality on aggregation",
			cmp:  Compare{Name: "count", Operator: "=", Value: 10},
			want: `{"aggregation":"count","type":"equalTo","value":10}`,
		},
		{
			name: "equality on dimension",
			cmp:  Compare{Name: "page", Operator: "=", Value: "Home"},
			want: `{"dimension":"page","type":"dimSelector","value":"Home"}`,
		},
		{
			name: "not equal on aggregation",
			cmp:  Compare{Name: "count", Operator: "!=", Value: 10},
			want: `{"havingSpec":{"aggregation":"count","type":"equalTo","value":10},"type":"not"}`,
		},
		{
			name: "diamond on dimension",
			cmp:  Compare{Name: "page", Operator: "<>", Value: "Home"},
			want: `{"havingSpec":{"dimension":"page","type":"dimSelector","value":"Home"},"type":"not"}`,
		},
		{
			name: "greater than numeric string",
			cmp:  Compare{Name: "count", Operator: ">", Value: "10"},
			want: `{"aggregation":"count","type":"greaterThan","value":10}`,
		},
		{
			name: "less than float",
			cmp:  Compare{Name: "revenue", Operator: "<", Value: 2.5},
			want: `{"aggregation":"revenue","type":"lessThan","value":2.5}`,
		},
		{
			name: "greater or equal",
			cmp:  Compare{Name: "count", Operator: ">=", Value: 3},
			want: `{"havingSpecs":[{"aggregation":"count","type":"greaterThan","value":3},{"aggregation":"count","type":"equalTo","value":3}],"type":"or"}`,
		},
		{
			name: "less or equal",
			cmp:  Compare{Name: "count", Operator: "<=", Value: 3},
			want: `{"havingSpecs":[{"aggregation":"count","type":"lessThan","value":3},{"aggregation":"count","type":"equalTo","value":3}],"type":"or"}`,
		},
		{
			name: "like wraps filter",
			cmp:  Compare{Name: "page", Operator: "like", Value: "A%"},
			want: `{"filter":{"dimension":"page","pattern":"A%","type":"like"},"type":"filter"}`,
		},
		{
			name: "in wraps filter",
			cmp:  Compare{Name: "page", Operator: "in", Value: []string{"a", "b"}},
			want: `{"filter":{"dimension":"page","type":"in","values":["a","b"]},"type":"filter"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := tt.cmp.Resolve(known)
			require.NoError(t, err)
			assert.Equal(t, tt.want, canonical(t, s))
		})
	}
}

func TestCompareResolve_Errors(t *testing.T) {
	_, err := Compare{Name: "count", Operator: "between", Value: 1}.Resolve(known)
	assert.ErrorIs(t, err, ErrUnknownOperator)
	assert.ErrorIs(t, err, filter.ErrUnknownOperator)

	_, err = Compare{Name: "count", Operator: ">", Value: "many"}.Resolve(known)
	assert.Error(t, err)

	_, err = Compare{Name: "count", Operator: "=", Value: "NaN"}.Resolve(known)
	assert.Error(t, err)
}

func TestBuilder_Flattens(t *testing.T) {
	b := NewBuilder(known).
		Having("count", ">", 10).
		Having("revenue", "<", 100).
		Having("page", "=", "Home")

	root, ok := b.Spec().(And)
	require.True(t, ok)
	require.Len(t, root.Specs, 3)
	assert.Equal(t, GreaterThan{Aggregation: "count", Value: wire.Int(10)}, root.Specs[0])
	assert.Equal(t, LessThan{Aggregation: "revenue", Value: wire.Int(100)}, root.Specs[1])
	assert.Equal(t, DimSelector{Dimension: "page", Value: wire.String("Home")}, root.Specs[2])
}

func TestBuilder_InclusiveRangeUnderAnd(t *testing.T) {
	b := NewBuilder(known).
		Having("count", ">=", 1).
		Having("count", "<=", 9)

	want := And{Specs: []Spec{
		Or{Specs: []Spec{
			GreaterThan{Aggregation: "count", Value: wire.Int(1)},
			EqualTo{Aggregation: "count", Value: wire.Int(1)},
		}},
		Or{Specs: []Spec{
			LessThan{Aggregation: "count", Value: wire.Int(9)},
			EqualTo{Aggregation: "count", Value: wire.Int(9)},
		}},
	}}
	assert.Equal(t, want, b.Spec())
}

func TestBuilder_InclusiveRangeUnderOrIsSpliced(t *testing.T) {
	b := NewBuilder(known).
		Having("count", "=", 0).
		OrHaving("count", ">=", 5)

	root, ok := b.Spec().(Or)
	require.True(t, ok)
	assert.Len(t, root.Specs, 3)
}

func TestBuilder_GroupSharesKnownNames(t *testing.T) {
	b := NewBuilder(known).
		Having("page", "=", "Home").
		OrHavingGroup(func(g *Builder) {
			g.Having("count", "=", 1).Having("revenue", "=", 2)
		})

	want := Or{Specs: []Spec{
		DimSelector{Dimension: "page", Value: wire.String("Home")},
		And{Specs: []Spec{
			EqualTo{Aggregation: "count", Value: wire.Int(1)},
			EqualTo{Aggregation: "revenue", Value: wire.Int(2)},
		}},
	}}
	assert.Equal(t, want, b.Spec())
}

func TestBuilder_HavingNot(t *testing.T) {
	b := NewBuilder(known).HavingNot(func(g *Builder) {
		g.Having("count", ">", 1)
	})
	assert.Equal(t, Not{Spec: GreaterThan{Aggregation: "count", Value: wire.Int(1)}}, b.Spec())
}

func TestBuilder_UnknownOperatorIsNoOp(t *testing.T) {
	b := NewBuilder(known).Having("count", ">", 1).Having("count", "~", 2)

	assert.NoError(t, b.Err())
	assert.Equal(t, GreaterThan{Aggregation: "count", Value: wire.Int(1)}, b.Spec())
}

func TestBuilder_StickyError(t *testing.T) {
	b := NewBuilder(known).Having("count", ">", "x").Having("count", "<", 3)

	assert.Error(t, b.Err())
	assert.Equal(t, LessThan{Aggregation: "count", Value: wire.Int(3)}, b.Spec())
}

func TestBuilder_KnownNamesAreExplicit(t *testing.T) {
	names := []string{"count"}
	b := NewBuilder(names)
	names[0] = "other"

	b.Having("count", "=", 1)
	assert.Equal(t, EqualTo{Aggregation: "count", Value: wire.Int(1)}, b.Spec())

	b.SetKnown(nil)
	b.OrHaving("count", "=", "1")
	root, ok := b.Spec().(Or)
	require.True(t, ok)
	assert.Equal(t, DimSelector{Dimension: "count", Value: wire.String("1")}, root.Specs[1])
}

func TestBuilder_CloneIsIndependent(t *testing.T) {
	b := NewBuilder(known).Having("count", ">", 1)
	c := b.Clone()
	c.Having("revenue", ">", 2)

	assert.Equal(t, GreaterThan{Aggregation: "count", Value: wire.Int(1)}, b.Spec())
	assert.IsType(t, And{}, c.Spec())
}

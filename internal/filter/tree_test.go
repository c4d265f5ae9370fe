package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/druidq/internal/extraction"
	"github.com/roach88/druidq/internal/timespec"
	"github.com/roach88/druidq/internal/wire"
)

func sel(dim, value string) Selector {
	return Selector{Dimension: dim, Value: wire.String(value)}
}

func TestBuilder_SinglePredicateIsRoot(t *testing.T) {
	b := NewBuilder().Where("a", "=", "1")
	assert.Equal(t, sel("a", "1"), b.Predicate())
}

func TestBuilder_FlattensSameBoolean(t *testing.T) {
	b := NewBuilder().
		Where("a", "=", "1").
		Where("b", "=", "2").
		Where("c", "=", "3")

	assert.Equal(t, And{Fields: []Predicate{sel("a", "1"), sel("b", "2"), sel("c", "3")}}, b.Predicate())
}

func TestBuilder_WrapsOnBooleanChange(t *testing.T) {
	b := NewBuilder().
		Where("a", "=", "1").
		Where("b", "=", "2").
		OrWhere("c", "=", "3").
		OrWhere("d", "=", "4")

	want := Or{Fields: []Predicate{
		And{Fields: []Predicate{sel("a", "1"), sel("b", "2")}},
		sel("c", "3"),
		sel("d", "4"),
	}}
	assert.Equal(t, want, b.Predicate())
}

func TestBuilder_GroupStaysNested(t *testing.T) {
	b := NewBuilder().
		Where("a", "=", "1").
		WhereGroup(func(g *Builder) {
			g.Where("b", "=", "2").OrWhere("c", "=", "3")
		})

	want := And{Fields: []Predicate{
		sel("a", "1"),
		Or{Fields: []Predicate{sel("b", "2"), sel("c", "3")}},
	}}
	assert.Equal(t, want, b.Predicate())
}

func TestBuilder_SameKindGroupIsNotSpliced(t *testing.T) {
	b := NewBuilder().
		Where("a", "=", "1").
		Where("x", "=", "0").
		WhereGroup(func(g *Builder) {
			g.Where("b", "=", "2").Where("c", "=", "3")
		})

	root, ok := b.Predicate().(And)
	require.True(t, ok)
	require.Len(t, root.Fields, 3)
	assert.Equal(t, And{Fields: []Predicate{sel("b", "2"), sel("c", "3")}}, root.Fields[2])
}

func TestBuilder_RawSameKindIsSpliced(t *testing.T) {
	raw := And{Fields: []Predicate{sel("b", "2"), sel("c", "3")}}
	b := NewBuilder().Where("a", "=", "1").Add(Raw{Predicate: raw}, BoolAnd)

	assert.Equal(t, And{Fields: []Predicate{sel("a", "1"), sel("b", "2"), sel("c", "3")}}, b.Predicate())
}

func TestBuilder_EarlierTreeUnchanged(t *testing.T) {
	b := NewBuilder().Where("a", "=", "1").Where("b", "=", "2")
	before := b.Predicate()

	b.Where("c", "=", "3")

	assert.Equal(t, And{Fields: []Predicate{sel("a", "1"), sel("b", "2")}}, before)
	assert.Len(t, b.Predicate().(And).Fields, 3)
}

func TestBuilder_CloneIsIndependent(t *testing.T) {
	b := NewBuilder().Where("a", "=", "1").Where("b", "=", "2")
	c := b.Clone()

	c.Where("c", "=", "3")
	b.OrWhere("d", "=", "4")

	assert.Len(t, c.Predicate().(And).Fields, 3)
	assert.IsType(t, Or{}, b.Predicate())
}

func TestBuilder_UnknownOperatorIsNoOp(t *testing.T) {
	b := NewBuilder().Where("a", "=", "1").Where("b", "===", "2")

	assert.NoError(t, b.Err())
	assert.Equal(t, sel("a", "1"), b.Predicate())

	empty := NewBuilder().Where("b", "between", "2")
	assert.True(t, empty.Empty())
	assert.NoError(t, empty.Err())
}

func TestBuilder_StickyError(t *testing.T) {
	b := NewBuilder().
		Where("a", "like", nil).
		Where("b", "=", "2")

	require.Error(t, b.Err())
	assert.Contains(t, b.Err().Error(), `"a"`)
	assert.Equal(t, sel("b", "2"), b.Predicate())
}

func TestBuilder_EmptyGroupIsNoOp(t *testing.T) {
	b := NewBuilder().Where("a", "=", "1").WhereGroup(func(*Builder) {})
	assert.Equal(t, sel("a", "1"), b.Predicate())
}

func TestBuilder_WhereNot(t *testing.T) {
	b := NewBuilder().WhereNot(func(g *Builder) {
		g.Where("a", "=", "1").Where("b", "=", "2")
	})
	want := Not{Field: And{Fields: []Predicate{sel("a", "1"), sel("b", "2")}}}
	assert.Equal(t, want, b.Predicate())
}

func TestBuilder_ExtractionChain(t *testing.T) {
	b := NewBuilder().Where("d", "=", "AB", extraction.Substring{Index: 0, Length: 2}, extraction.Upper{})

	s, ok := b.Predicate().(Selector)
	require.True(t, ok)
	assert.Equal(t, extraction.Cascade{Steps: []extraction.Function{
		extraction.Substring{Index: 0, Length: 2},
		extraction.Upper{},
	}}, s.Extraction)
}

func TestBuilder_Helpers(t *testing.T) {
	iv, err := timespec.ParseInterval("2024-01-01", "2024-02-01")
	require.NoError(t, err)

	b := NewBuilder().
		WhereEquals("a", "1").
		WhereIn("b", []string{"x", "y"}).
		WhereNotIn("c", []string{"z"}).
		WhereBetween("n", 1, 5).
		WhereNotBetween("s", "a", "m").
		WhereInterval("__time", iv).
		WhereColumn("l", "r").
		WhereExpression("x == 1")
	require.NoError(t, b.Err())

	want := `{"fields":[` +
		`{"dimension":"a","type":"selector","value":"1"},` +
		`{"dimension":"b","type":"in","values":["x","y"]},` +
		`{"field":{"dimension":"c","type":"in","values":["z"]},"type":"not"},` +
		`{"dimension":"n","lower":"1","ordering":"numeric","type":"bound","upper":"5"},` +
		`{"field":{"dimension":"s","lower":"a","ordering":"lexicographic","type":"bound","upper":"m"},"type":"not"},` +
		`{"dimension":"__time","intervals":["2024-01-01T00:00:00.000Z/2024-02-01T00:00:00.000Z"],"type":"interval"},` +
		`{"dimensions":["l","r"],"type":"columnComparison"},` +
		`{"expression":"x == 1","type":"expression"}` +
		`],"type":"and"}`
	assert.Equal(t, want, canonical(t, b.Predicate()))
}

func TestBuilder_HelperErrors(t *testing.T) {
	assert.Error(t, NewBuilder().WhereColumn("only").Err())
	assert.Error(t, NewBuilder().WhereInterval("__time").Err())
	assert.Error(t, NewBuilder().WhereBetween("n", struct{}{}, 1).Err())
}

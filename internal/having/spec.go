package having

import (
	"github.com/roach88/druidq/internal/extraction"
	"github.com/roach88/druidq/internal/filter"
	"github.com/roach88/druidq/internal/wire"
)

// Spec is a node of a having tree.
//
// This is a sealed interface - only types in this package implement it.
type Spec interface {
	Type() string
	Wire() wire.Object

	havingSpec()
}

// GreaterThan matches rows whose aggregation is strictly greater than Value.
type GreaterThan struct {
	Aggregation string
	Value       wire.Value
}

// LessThan matches rows whose aggregation is strictly less than Value.
type LessThan struct {
	Aggregation string
	Value       wire.Value
}

// EqualTo matches rows whose aggregation equals Value.
type EqualTo struct {
	Aggregation string
	Value       wire.Value
}

// DimSelector matches rows whose dimension equals Value.
type DimSelector struct {
	Dimension  string
	Value      wire.Value
	Extraction extraction.Function
}

// Filter applies a row filter to the aggregated rows.
type Filter struct {
	Filter filter.Predicate
}

// And matches when every spec matches.
type And struct {
	Specs []Spec
}

// Or matches when any spec matches.
type Or struct {
	Specs []Spec
}

// Not inverts Spec.
type Not struct {
	Spec Spec
}

func (GreaterThan) havingSpec() {}
func (LessThan) havingSpec()    {}
func (EqualTo) havingSpec()     {}
func (DimSelector) havingSpec() {}
func (Filter) havingSpec()      {}
func (And) havingSpec()         {}
func (Or) havingSpec()          {}
func (Not) havingSpec()         {}

func (GreaterThan) Type() string { return "greaterThan" }
func (LessThan) Type() string    { return "lessThan" }
func (EqualTo) Type() string     { return "equalTo" }
func (DimSelector) Type() string { return "dimSelector" }
func (Filter) Type() string      { return "filter" }
func (And) Type() string         { return "and" }
func (Or) Type() string          { return "or" }
func (Not) Type() string         { return "not" }

func (s GreaterThan) Wire() wire.Object { return numericWire(s.Type(), s.Aggregation, s.Value) }
func (s LessThan) Wire() wire.Object    { return numericWire(s.Type(), s.Aggregation, s.Value) }
func (s EqualTo) Wire() wire.Object     { return numericWire(s.Type(), s.Aggregation, s.Value) }

func numericWire(typ, aggregation string, value wire.Value) wire.Object {
	return wire.NewObject(
		wire.P("type", wire.String(typ)),
		wire.P("aggregation", wire.String(aggregation)),
		wire.P("value", value),
	)
}

func (s DimSelector) Wire() wire.Object {
	var value wire.Value = wire.Null{}
	if text, ok := wire.Text(s.Value); ok {
		value = wire.String(text)
	}
	return wire.NewObject(
		wire.P("type", wire.String(s.Type())),
		wire.P("dimension", wire.String(s.Dimension)),
		wire.P("value", value),
		wire.P("extractionFn", extraction.WireOf(s.Extraction)),
	)
}

func (s Filter) Wire() wire.Object {
	var f wire.Value
	if s.Filter != nil {
		f = s.Filter.Wire()
	}
	return wire.NewObject(
		wire.P("type", wire.String(s.Type())),
		wire.P("filter", f),
	)
}

func (s And) Wire() wire.Object {
	return wire.NewObject(
		wire.P("type", wire.String(s.Type())),
		wire.P("havingSpecs", wireAll(s.Specs)),
	)
}

func (s Or) Wire() wire.Object {
	return wire.NewObject(
		wire.P("type", wire.String(s.Type())),
		wire.P("havingSpecs", wireAll(s.Specs)),
	)
}

func (s Not) Wire() wire.Object {
	var inner wire.Value
	if s.Spec != nil {
		inner = s.Spec.Wire()
	}
	return wire.NewObject(
		wire.P("type", wire.String(s.Type())),
		wire.P("havingSpec", inner),
	)
}

func wireAll(specs []Spec) wire.Array {
	arr := make(wire.Array, len(specs))
	for i, s := range specs {
		arr[i] = s.Wire()
	}
	return arr
}

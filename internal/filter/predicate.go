package filter

import (
	"github.com/roach88/druidq/internal/comparator"
	"github.com/roach88/druidq/internal/extraction"
	"github.com/roach88/druidq/internal/timespec"
	"github.com/roach88/druidq/internal/wire"
)

// Predicate is a node of a filter tree.
//
// This is a sealed interface - only types in this package implement it.
type Predicate interface {
	// Type returns the Druid "type" discriminator.
	Type() string
	// Wire renders the predicate's JSON object.
	Wire() wire.Object

	predicate()
}

// Selector matches rows whose dimension equals Value. A Null value matches
// rows where the dimension is missing.
type Selector struct {
	Dimension  string
	Value      wire.Value
	Extraction extraction.Function
}

// Bound matches a range. A nil Lower or Upper leaves that side open.
type Bound struct {
	Dimension   string
	Lower       wire.Value
	Upper       wire.Value
	LowerStrict bool
	UpperStrict bool
	Ordering    comparator.Comparator
	Extraction  extraction.Function
}

// Like matches a SQL LIKE pattern.
type Like struct {
	Dimension  string
	Pattern    string
	Escape     string
	Extraction extraction.Function
}

// Regex matches a Java regular expression.
type Regex struct {
	Dimension  string
	Pattern    string
	Extraction extraction.Function
}

// JavaScript matches rows for which Function returns true.
type JavaScript struct {
	Dimension  string
	Function   string
	Extraction extraction.Function
}

// Search matches rows using a search query spec.
type Search struct {
	Dimension  string
	Query      SearchSpec
	Extraction extraction.Function
}

// In matches rows whose dimension equals any of Values.
type In struct {
	Dimension  string
	Values     []wire.Value
	Extraction extraction.Function
}

// Interval matches rows whose (time-like) dimension falls in any interval.
type Interval struct {
	Dimension  string
	Intervals  []timespec.Interval
	Extraction extraction.Function
}

// ColumnComparison matches rows where all listed dimensions hold equal values.
type ColumnComparison struct {
	Dimensions []string
}

// Expression matches rows for which a Druid expression is true.
type Expression struct {
	Expression string
}

// And matches when every field matches.
type And struct {
	Fields []Predicate
}

// Or matches when any field matches.
type Or struct {
	Fields []Predicate
}

// Not inverts Field.
type Not struct {
	Field Predicate
}

func (Selector) predicate()         {}
func (Bound) predicate()            {}
func (Like) predicate()             {}
func (Regex) predicate()            {}
func (JavaScript) predicate()       {}
func (Search) predicate()           {}
func (In) predicate()               {}
func (Interval) predicate()         {}
func (ColumnComparison) predicate() {}
func (Expression) predicate()       {}
func (And) predicate()              {}
func (Or) predicate()               {}
func (Not) predicate()              {}

func (Selector) Type() string         { return "selector" }
func (Bound) Type() string            { return "bound" }
func (Like) Type() string             { return "like" }
func (Regex) Type() string            { return "regex" }
func (JavaScript) Type() string       { return "javascript" }
func (Search) Type() string           { return "search" }
func (In) Type() string               { return "in" }
func (Interval) Type() string         { return "interval" }
func (ColumnComparison) Type() string { return "columnComparison" }
func (Expression) Type() string       { return "expression" }
func (And) Type() string              { return "and" }
func (Or) Type() string               { return "or" }
func (Not) Type() string              { return "not" }

func (p Selector) Wire() wire.Object {
	return wire.NewObject(
		wire.P("type", wire.String(p.Type())),
		wire.P("dimension", wire.String(p.Dimension)),
		wire.P("value", scalar(p.Value)),
		wire.P("extractionFn", extraction.WireOf(p.Extraction)),
	)
}

func (p Bound) Wire() wire.Object {
	obj := wire.NewObject(
		wire.P("type", wire.String(p.Type())),
		wire.P("dimension", wire.String(p.Dimension)),
		wire.P("ordering", wire.String(p.Ordering.OrDefault())),
		wire.P("extractionFn", extraction.WireOf(p.Extraction)),
	)
	if p.Lower != nil {
		obj["lower"] = scalar(p.Lower)
		if p.LowerStrict {
			obj["lowerStrict"] = wire.Bool(true)
		}
	}
	if p.Upper != nil {
		obj["upper"] = scalar(p.Upper)
		if p.UpperStrict {
			obj["upperStrict"] = wire.Bool(true)
		}
	}
	return obj
}

func (p Like) Wire() wire.Object {
	obj := wire.NewObject(
		wire.P("type", wire.String(p.Type())),
		wire.P("dimension", wire.String(p.Dimension)),
		wire.P("pattern", wire.String(p.Pattern)),
		wire.P("extractionFn", extraction.WireOf(p.Extraction)),
	)
	if p.Escape != "" {
		obj["escape"] = wire.String(p.Escape)
	}
	return obj
}

func (p Regex) Wire() wire.Object {
	return wire.NewObject(
		wire.P("type", wire.String(p.Type())),
		wire.P("dimension", wire.String(p.Dimension)),
		wire.P("pattern", wire.String(p.Pattern)),
		wire.P("extractionFn", extraction.WireOf(p.Extraction)),
	)
}

func (p JavaScript) Wire() wire.Object {
	return wire.NewObject(
		wire.P("type", wire.String(p.Type())),
		wire.P("dimension", wire.String(p.Dimension)),
		wire.P("function", wire.String(p.Function)),
		wire.P("extractionFn", extraction.WireOf(p.Extraction)),
	)
}

func (p Search) Wire() wire.Object {
	var query wire.Value
	if p.Query != nil {
		query = p.Query.Wire()
	}
	return wire.NewObject(
		wire.P("type", wire.String(p.Type())),
		wire.P("dimension", wire.String(p.Dimension)),
		wire.P("query", query),
		wire.P("extractionFn", extraction.WireOf(p.Extraction)),
	)
}

func (p In) Wire() wire.Object {
	values := make(wire.Array, len(p.Values))
	for i, v := range p.Values {
		values[i] = scalar(v)
	}
	return wire.NewObject(
		wire.P("type", wire.String(p.Type())),
		wire.P("dimension", wire.String(p.Dimension)),
		wire.P("values", values),
		wire.P("extractionFn", extraction.WireOf(p.Extraction)),
	)
}

func (p Interval) Wire() wire.Object {
	intervals := make(wire.Array, len(p.Intervals))
	for i, iv := range p.Intervals {
		intervals[i] = wire.String(iv.String())
	}
	return wire.NewObject(
		wire.P("type", wire.String(p.Type())),
		wire.P("dimension", wire.String(p.Dimension)),
		wire.P("intervals", intervals),
		wire.P("extractionFn", extraction.WireOf(p.Extraction)),
	)
}

func (p ColumnComparison) Wire() wire.Object {
	return wire.NewObject(
		wire.P("type", wire.String(p.Type())),
		wire.P("dimensions", wire.Strings(p.Dimensions)),
	)
}

func (p Expression) Wire() wire.Object {
	return wire.NewObject(
		wire.P("type", wire.String(p.Type())),
		wire.P("expression", wire.String(p.Expression)),
	)
}

func (p And) Wire() wire.Object {
	return wire.NewObject(
		wire.P("type", wire.String(p.Type())),
		wire.P("fields", wireAll(p.Fields)),
	)
}

func (p Or) Wire() wire.Object {
	return wire.NewObject(
		wire.P("type", wire.String(p.Type())),
		wire.P("fields", wireAll(p.Fields)),
	)
}

func (p Not) Wire() wire.Object {
	var field wire.Value
	if p.Field != nil {
		field = p.Field.Wire()
	}
	return wire.NewObject(
		wire.P("type", wire.String(p.Type())),
		wire.P("field", field),
	)
}

func wireAll(fields []Predicate) wire.Array {
	arr := make(wire.Array, len(fields))
	for i, f := range fields {
		arr[i] = f.Wire()
	}
	return arr
}

// scalar renders a comparison value in a string position. Druid compares
// filter values as strings, so numbers and booleans are rendered as text.
func scalar(v wire.Value) wire.Value {
	s, ok := wire.Text(v)
	if !ok {
		return wire.Null{}
	}
	return wire.String(s)
}

package query

import (
	"fmt"
	"strings"

	"github.com/roach88/druidq/internal/filter"
	"github.com/roach88/druidq/internal/wire"
)

// Aggregation computes one metric per result row.
//
// This is a sealed interface - only types in this package implement it.
type Aggregation interface {
	// Name returns the output name.
	Name() string
	Wire() wire.Object
	// Validate reports an aggregation Druid would reject.
	Validate() error

	aggregation()
}

// Kind names a field aggregator family.
type Kind string

const (
	KindSum   Kind = "sum"
	KindMin   Kind = "min"
	KindMax   Kind = "max"
	KindFirst Kind = "first"
	KindLast  Kind = "last"
	KindAny   Kind = "any"
)

// Count counts rows.
type Count struct {
	Output string
}

// Field aggregates one column with a Kind and a ValueType, for example
// longSum or doubleMax.
type Field struct {
	Kind      Kind
	ValueType ValueType
	Output    string
	FieldName string
}

// Cardinality estimates distinct values over one or more columns.
type Cardinality struct {
	Output string
	Fields []string
	ByRow  bool
	Round  bool
}

// HyperUnique estimates distinct values of a pre-aggregated hyperUnique
// column.
type HyperUnique struct {
	Output    string
	FieldName string
	Round     bool
}

// JavaScriptAggregation aggregates with user-supplied functions.
type JavaScriptAggregation struct {
	Output      string
	FieldNames  []string
	FnAggregate string
	FnCombine   string
	FnReset     string
}

// Filtered applies Aggregator only to rows matching Filter.
type Filtered struct {
	Filter     filter.Predicate
	Aggregator Aggregation
}

func (Count) aggregation()                 {}
func (Field) aggregation()                 {}
func (Cardinality) aggregation()           {}
func (HyperUnique) aggregation()           {}
func (JavaScriptAggregation) aggregation() {}
func (Filtered) aggregation()              {}

func (a Count) Name() string                 { return a.Output }
func (a Field) Name() string                 { return a.Output }
func (a Cardinality) Name() string           { return a.Output }
func (a HyperUnique) Name() string           { return a.Output }
func (a JavaScriptAggregation) Name() string { return a.Output }

func (a Filtered) Name() string {
	if a.Aggregator == nil {
		return ""
	}
	return a.Aggregator.Name()
}

func (a Count) Wire() wire.Object {
	return wire.NewObject(
		wire.P("type", wire.String("count")),
		wire.P("name", wire.String(a.Output)),
	)
}

// Type returns the Druid aggregator type, e.g. "longSum".
func (a Field) Type() string {
	vt := a.ValueType
	if vt == "" {
		vt = TypeLong
	}
	k := string(a.Kind)
	if k == "" {
		return string(vt)
	}
	return string(vt) + strings.ToUpper(k[:1]) + k[1:]
}

func (a Field) Wire() wire.Object {
	return wire.NewObject(
		wire.P("type", wire.String(a.Type())),
		wire.P("name", wire.String(a.Output)),
		wire.P("fieldName", wire.String(a.FieldName)),
	)
}

func (a Cardinality) Wire() wire.Object {
	obj := wire.NewObject(
		wire.P("type", wire.String("cardinality")),
		wire.P("name", wire.String(a.Output)),
		wire.P("fields", wire.Strings(a.Fields)),
	)
	if a.ByRow {
		obj["byRow"] = wire.Bool(true)
	}
	if a.Round {
		obj["round"] = wire.Bool(true)
	}
	return obj
}

func (a HyperUnique) Wire() wire.Object {
	obj := wire.NewObject(
		wire.P("type", wire.String("hyperUnique")),
		wire.P("name", wire.String(a.Output)),
		wire.P("fieldName", wire.String(a.FieldName)),
	)
	if a.Round {
		obj["round"] = wire.Bool(true)
	}
	return obj
}

func (a JavaScriptAggregation) Wire() wire.Object {
	return wire.NewObject(
		wire.P("type", wire.String("javascript")),
		wire.P("name", wire.String(a.Output)),
		wire.P("fieldNames", wire.Strings(a.FieldNames)),
		wire.P("fnAggregate", wire.String(a.FnAggregate)),
		wire.P("fnCombine", wire.String(a.FnCombine)),
		wire.P("fnReset", wire.String(a.FnReset)),
	)
}

func (a Filtered) Wire() wire.Object {
	var f, agg wire.Value
	if a.Filter != nil {
		f = a.Filter.Wire()
	}
	if a.Aggregator != nil {
		agg = a.Aggregator.Wire()
	}
	return wire.NewObject(
		wire.P("type", wire.String("filtered")),
		wire.P("filter", f),
		wire.P("aggregator", agg),
	)
}

func (a Count) Validate() error {
	return requireName(a.Output)
}

func (a Field) Validate() error {
	if err := requireName(a.Output); err != nil {
		return err
	}
	if a.FieldName == "" {
		return fmt.Errorf("aggregation %q: no field", a.Output)
	}
	switch a.Kind {
	case KindSum, KindMin, KindMax:
		if a.ValueType == TypeString {
			return fmt.Errorf("aggregation %q: %s does not support string values", a.Output, a.Kind)
		}
	case KindFirst, KindLast, KindAny:
	default:
		return fmt.Errorf("aggregation %q: unknown kind %q", a.Output, a.Kind)
	}
	return nil
}

func (a Cardinality) Validate() error {
	if err := requireName(a.Output); err != nil {
		return err
	}
	if len(a.Fields) == 0 {
		return fmt.Errorf("aggregation %q: no fields", a.Output)
	}
	return nil
}

func (a HyperUnique) Validate() error {
	if err := requireName(a.Output); err != nil {
		return err
	}
	if a.FieldName == "" {
		return fmt.Errorf("aggregation %q: no field", a.Output)
	}
	return nil
}

func (a JavaScriptAggregation) Validate() error {
	if err := requireName(a.Output); err != nil {
		return err
	}
	if a.FnAggregate == "" || a.FnCombine == "" || a.FnReset == "" {
		return fmt.Errorf("aggregation %q: javascript needs aggregate, combine and reset functions", a.Output)
	}
	return nil
}

func (a Filtered) Validate() error {
	if a.Aggregator == nil {
		return fmt.Errorf("filtered aggregation without an aggregator")
	}
	if a.Filter == nil {
		return fmt.Errorf("filtered aggregation %q without a filter", a.Aggregator.Name())
	}
	return a.Aggregator.Validate()
}

func requireName(name string) error {
	if name == "" {
		return fmt.Errorf("aggregation without an output name")
	}
	return nil
}

package query

import (
	"fmt"
	"slices"

	"github.com/roach88/druidq/internal/wire"
)

// PostAggregation computes a value from aggregation results.
//
// This is a sealed interface - only types in this package implement it.
type PostAggregation interface {
	// Name returns the output name. Nested field references may be unnamed.
	Name() string
	Wire() wire.Object

	postAggregation()
}

// ArithmeticFns lists the accepted arithmetic functions.
var ArithmeticFns = []string{"+", "-", "*", "/", "quotient"}

// Arithmetic applies Fn left to right over Fields.
type Arithmetic struct {
	Output string
	Fn     string
	Fields []PostAggregation
	// Ordering is "numericFirst" or empty.
	Ordering string
}

// FieldAccess reads an aggregation's raw value.
type FieldAccess struct {
	Output    string
	FieldName string
}

// FinalizingFieldAccess reads an aggregation's finalized value.
type FinalizingFieldAccess struct {
	Output    string
	FieldName string
}

// Constant is a fixed number.
type Constant struct {
	Output string
	Value  float64
}

// HyperUniqueCardinality finalizes a hyperUnique aggregation.
type HyperUniqueCardinality struct {
	Output    string
	FieldName string
}

// ExpressionPost evaluates a Druid expression over aggregation outputs.
type ExpressionPost struct {
	Output     string
	Expression string
	Ordering   string
}

// Extreme picks the greatest or least of Fields.
type Extreme struct {
	Output    string
	Greatest  bool
	ValueType ValueType
	Fields    []PostAggregation
}

// JavaScriptPost computes a value with a javascript function.
type JavaScriptPost struct {
	Output     string
	FieldNames []string
	Function   string
}

func (Arithmetic) postAggregation()             {}
func (FieldAccess) postAggregation()            {}
func (FinalizingFieldAccess) postAggregation()  {}
func (Constant) postAggregation()               {}
func (HyperUniqueCardinality) postAggregation() {}
func (ExpressionPost) postAggregation()         {}
func (Extreme) postAggregation()                {}
func (JavaScriptPost) postAggregation()         {}

func (p Arithmetic) Name() string             { return p.Output }
func (p FieldAccess) Name() string            { return p.Output }
func (p FinalizingFieldAccess) Name() string  { return p.Output }
func (p Constant) Name() string               { return p.Output }
func (p HyperUniqueCardinality) Name() string { return p.Output }
func (p ExpressionPost) Name() string         { return p.Output }
func (p Extreme) Name() string                { return p.Output }
func (p JavaScriptPost) Name() string         { return p.Output }

func optionalName(name string) wire.Value {
	if name == "" {
		return nil
	}
	return wire.String(name)
}

func (p Arithmetic) Wire() wire.Object {
	obj := wire.NewObject(
		wire.P("type", wire.String("arithmetic")),
		wire.P("name", wire.String(p.Output)),
		wire.P("fn", wire.String(p.Fn)),
		wire.P("fields", wirePostAggregations(p.Fields)),
	)
	if p.Ordering != "" {
		obj["ordering"] = wire.String(p.Ordering)
	}
	return obj
}

func (p FieldAccess) Wire() wire.Object {
	return wire.NewObject(
		wire.P("type", wire.String("fieldAccess")),
		wire.P("name", optionalName(p.Output)),
		wire.P("fieldName", wire.String(p.FieldName)),
	)
}

func (p FinalizingFieldAccess) Wire() wire.Object {
	return wire.NewObject(
		wire.P("type", wire.String("finalizingFieldAccess")),
		wire.P("name", optionalName(p.Output)),
		wire.P("fieldName", wire.String(p.FieldName)),
	)
}

func (p Constant) Wire() wire.Object {
	return wire.NewObject(
		wire.P("type", wire.String("constant")),
		wire.P("name", optionalName(p.Output)),
		wire.P("value", wire.Float(p.Value)),
	)
}

func (p HyperUniqueCardinality) Wire() wire.Object {
	return wire.NewObject(
		wire.P("type", wire.String("hyperUniqueCardinality")),
		wire.P("name", optionalName(p.Output)),
		wire.P("fieldName", wire.String(p.FieldName)),
	)
}

func (p ExpressionPost) Wire() wire.Object {
	obj := wire.NewObject(
		wire.P("type", wire.String("expression")),
		wire.P("name", wire.String(p.Output)),
		wire.P("expression", wire.String(p.Expression)),
	)
	if p.Ordering != "" {
		obj["ordering"] = wire.String(p.Ordering)
	}
	return obj
}

// Type returns the Druid type, e.g. "doubleGreatest".
func (p Extreme) Type() string {
	vt := p.ValueType
	if vt == "" || vt == TypeString {
		vt = TypeDouble
	}
	if p.Greatest {
		return string(vt) + "Greatest"
	}
	return string(vt) + "Least"
}

func (p Extreme) Wire() wire.Object {
	return wire.NewObject(
		wire.P("type", wire.String(p.Type())),
		wire.P("name", wire.String(p.Output)),
		wire.P("fields", wirePostAggregations(p.Fields)),
	)
}

func (p JavaScriptPost) Wire() wire.Object {
	return wire.NewObject(
		wire.P("type", wire.String("javascript")),
		wire.P("name", wire.String(p.Output)),
		wire.P("fieldNames", wire.Strings(p.FieldNames)),
		wire.P("function", wire.String(p.Function)),
	)
}

func wirePostAggregations(fields []PostAggregation) wire.Array {
	arr := make(wire.Array, len(fields))
	for i, f := range fields {
		arr[i] = f.Wire()
	}
	return arr
}

// validatePostAggregation checks a top-level post aggregation.
func validatePostAggregation(p PostAggregation) error {
	if p.Name() == "" {
		return fmt.Errorf("post aggregation %T without an output name", p)
	}
	return validatePostTree(p)
}

func validatePostTree(p PostAggregation) error {
	switch p := p.(type) {
	case Arithmetic:
		if !slices.Contains(ArithmeticFns, p.Fn) {
			return fmt.Errorf("post aggregation %q: unknown arithmetic fn %q", p.Output, p.Fn)
		}
		if len(p.Fields) < 2 {
			return fmt.Errorf("post aggregation %q: arithmetic needs at least two fields", p.Output)
		}
		return validateFields(p.Fields)
	case Extreme:
		if len(p.Fields) == 0 {
			return fmt.Errorf("post aggregation %q: no fields", p.Output)
		}
		return validateFields(p.Fields)
	case FieldAccess:
		return requireField(p.Output, p.FieldName)
	case FinalizingFieldAccess:
		return requireField(p.Output, p.FieldName)
	case HyperUniqueCardinality:
		return requireField(p.Output, p.FieldName)
	case ExpressionPost:
		if p.Expression == "" {
			return fmt.Errorf("post aggregation %q: empty expression", p.Output)
		}
	case JavaScriptPost:
		if p.Function == "" {
			return fmt.Errorf("post aggregation %q: empty function", p.Output)
		}
	case Constant:
	case nil:
		return fmt.Errorf("nil post aggregation")
	default:
		return fmt.Errorf("unsupported post aggregation %T", p)
	}
	return nil
}

func validateFields(fields []PostAggregation) error {
	for _, f := range fields {
		if err := validatePostTree(f); err != nil {
			return err
		}
	}
	return nil
}

func requireField(name, field string) error {
	if field == "" {
		return fmt.Errorf("post aggregation %q: no field name", name)
	}
	return nil
}

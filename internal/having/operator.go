package having

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/roach88/druidq/internal/extraction"
	"github.com/roach88/druidq/internal/filter"
	"github.com/roach88/druidq/internal/wire"
)

// ErrUnknownOperator is shared with package filter.
var ErrUnknownOperator = filter.ErrUnknownOperator

// Compare is a name/operator/value condition. Name refers to an aggregation
// or post-aggregation output, or to a dimension for "=" on a name that is
// not a known aggregation.
type Compare struct {
	Name       string
	Operator   string
	Value      any
	Extraction extraction.Function
}

// Resolve maps the condition onto a having spec:
//
//	=                       equalTo when Name is in known, else dimSelector
//	!= <>                   not(the "=" form)
//	>  <                    greaterThan, lessThan
//	>= <=                   or(greaterThan, equalTo), or(lessThan, equalTo)
//	like regex regexp
//	javascript search in    filter wrapping the row filter of the same operator
func (c Compare) Resolve(known []string) (Spec, error) {
	op := strings.ToLower(strings.TrimSpace(c.Operator))
	if !slices.Contains(filter.Operators, op) {
		return nil, fmt.Errorf("%w %q", ErrUnknownOperator, c.Operator)
	}

	switch op {
	case "=":
		return c.equality(known)
	case "!=", "<>":
		s, err := c.equality(known)
		if err != nil {
			return nil, err
		}
		return Not{Spec: s}, nil
	case ">", "<", ">=", "<=":
		v, err := c.number()
		if err != nil {
			return nil, err
		}
		switch op {
		case ">":
			return GreaterThan{Aggregation: c.Name, Value: v}, nil
		case "<":
			return LessThan{Aggregation: c.Name, Value: v}, nil
		case ">=":
			return Or{Specs: []Spec{
				GreaterThan{Aggregation: c.Name, Value: v},
				EqualTo{Aggregation: c.Name, Value: v},
			}}, nil
		default:
			return Or{Specs: []Spec{
				LessThan{Aggregation: c.Name, Value: v},
				EqualTo{Aggregation: c.Name, Value: v},
			}}, nil
		}
	}

	p, err := filter.Compare{
		Column:     c.Name,
		Operator:   op,
		Value:      c.Value,
		Extraction: c.Extraction,
	}.Resolve()
	if err != nil {
		return nil, err
	}
	return Filter{Filter: p}, nil
}

func (c Compare) equality(known []string) (Spec, error) {
	if slices.Contains(known, c.Name) {
		v, err := c.number()
		if err != nil {
			return nil, err
		}
		return EqualTo{Aggregation: c.Name, Value: v}, nil
	}
	v, err := wire.FromGo(c.Value)
	if err != nil {
		return nil, fmt.Errorf("having on %q: %w", c.Name, err)
	}
	return DimSelector{Dimension: c.Name, Value: v, Extraction: c.Extraction}, nil
}

// number converts Value to a numeric wire value. Numeric strings are
// accepted.
func (c Compare) number() (wire.Value, error) {
	v, err := wire.FromGo(c.Value)
	if err != nil {
		return nil, fmt.Errorf("having on %q: %w", c.Name, err)
	}
	if wire.IsNumeric(v) {
		return v, nil
	}
	f, ok := wire.Number(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("having on %q: operator %s needs a number, got %v", c.Name, c.Operator, c.Value)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return wire.Int(int64(f)), nil
	}
	return wire.Float(f), nil
}

package filter

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/druidq/internal/comparator"
	"github.com/roach88/druidq/internal/extraction"
	"github.com/roach88/druidq/internal/wire"
)

// ErrUnknownOperator is returned by Compare.Resolve for an operator outside
// the table below. Builder treats it as "no predicate".
var ErrUnknownOperator = errors.New("unknown filter operator")

// Operators lists the accepted comparison operators, lower-case.
var Operators = []string{
	"=", "!=", "<>", ">", ">=", "<", "<=",
	"like", "regex", "regexp", "javascript", "search", "in",
}

// Compare is a column/operator/value condition.
//
// Ordering only applies to the range operators. When unset, numeric values
// compare numerically and everything else lexicographically.
type Compare struct {
	Column     string
	Operator   string
	Value      any
	Extraction extraction.Function
	Ordering   comparator.Comparator
}

// Resolve maps the condition onto a predicate:
//
//	=                 selector
//	!= <>             not(selector)
//	> >= < <=         bound, strict for > and <
//	like              like
//	regex regexp      regex
//	javascript        javascript
//	search            search; a string is a contains query, a list a fragment query
//	in                in; a scalar becomes a single-element list
//
// Operators are matched case-insensitively.
func (c Compare) Resolve() (Predicate, error) {
	op := strings.ToLower(strings.TrimSpace(c.Operator))
	if !slices.Contains(Operators, op) {
		return nil, fmt.Errorf("%w %q", ErrUnknownOperator, c.Operator)
	}

	v, err := wire.FromGo(c.Value)
	if err != nil {
		return nil, fmt.Errorf("filter on %q: %w", c.Column, err)
	}

	switch op {
	case "=":
		return Selector{Dimension: c.Column, Value: v, Extraction: c.Extraction}, nil
	case "!=", "<>":
		return Not{Field: Selector{Dimension: c.Column, Value: v, Extraction: c.Extraction}}, nil
	case ">", ">=", "<", "<=":
		if _, ok := wire.Text(v); !ok {
			return nil, fmt.Errorf("filter on %q: operator %s needs a scalar value", c.Column, op)
		}
		b := Bound{Dimension: c.Column, Ordering: c.ordering(v), Extraction: c.Extraction}
		switch op {
		case ">":
			b.Lower, b.LowerStrict = v, true
		case ">=":
			b.Lower = v
		case "<":
			b.Upper, b.UpperStrict = v, true
		case "<=":
			b.Upper = v
		}
		return b, nil
	case "like":
		s, err := c.text(op, v)
		if err != nil {
			return nil, err
		}
		return Like{Dimension: c.Column, Pattern: s, Extraction: c.Extraction}, nil
	case "regex", "regexp":
		s, err := c.text(op, v)
		if err != nil {
			return nil, err
		}
		return Regex{Dimension: c.Column, Pattern: s, Extraction: c.Extraction}, nil
	case "javascript":
		s, err := c.text(op, v)
		if err != nil {
			return nil, err
		}
		return JavaScript{Dimension: c.Column, Function: s, Extraction: c.Extraction}, nil
	case "search":
		spec, err := c.searchSpec(v)
		if err != nil {
			return nil, err
		}
		return Search{Dimension: c.Column, Query: spec, Extraction: c.Extraction}, nil
	case "in":
		values, ok := v.(wire.Array)
		if !ok {
			values = wire.Array{v}
		}
		return In{Dimension: c.Column, Values: values, Extraction: c.Extraction}, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownOperator, c.Operator)
}

func (c Compare) ordering(v wire.Value) comparator.Comparator {
	if c.Ordering != "" {
		return c.Ordering
	}
	if wire.IsNumeric(v) {
		return comparator.Numeric
	}
	return comparator.Lexicographic
}

func (c Compare) text(op string, v wire.Value) (string, error) {
	s, ok := wire.Text(v)
	if !ok {
		return "", fmt.Errorf("filter on %q: operator %s needs a scalar value", c.Column, op)
	}
	return s, nil
}

func (c Compare) searchSpec(v wire.Value) (SearchSpec, error) {
	if arr, ok := v.(wire.Array); ok {
		values := make([]string, 0, len(arr))
		for _, elem := range arr {
			s, ok := wire.Text(elem)
			if !ok {
				return nil, fmt.Errorf("filter on %q: search fragments must be scalars", c.Column)
			}
			values = append(values, s)
		}
		return Fragment{Values: values}, nil
	}
	s, err := c.text("search", v)
	if err != nil {
		return nil, err
	}
	return Contains{Value: s}, nil
}

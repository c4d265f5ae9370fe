package filter

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/druidq/internal/comparator"
	"github.com/roach88/druidq/internal/extraction"
	"github.com/roach88/druidq/internal/timespec"
	"github.com/roach88/druidq/internal/wire"
)

// Boolean joins a new condition to the existing tree.
type Boolean string

const (
	BoolAnd Boolean = "and"
	BoolOr  Boolean = "or"
)

// Condition is one input to Builder.Add.
//
// This is a sealed interface - only Compare, Equal, Raw, Group and Negated
// implement it.
type Condition interface {
	condition()
}

// Equal is shorthand for Compare with operator "=".
type Equal struct {
	Column     string
	Value      any
	Extraction extraction.Function
}

// Raw adds an already-built predicate.
type Raw struct {
	Predicate Predicate
}

// Group collects conditions on a fresh builder and adds the result as one
// explicitly nested node.
type Group func(*Builder)

// Negated adds not(result of Group).
type Negated struct {
	Group Group
}

func (Compare) condition() {}
func (Equal) condition()   {}
func (Raw) condition()     {}
func (Group) condition()   {}
func (Negated) condition() {}

// Builder accumulates a filter tree.
//
// Adding a condition joined by the same boolean as the current root extends
// the root's fields instead of nesting, so a, b, c joined by "and" yield
// and(a, b, c). Combinators are never mutated after creation: each insert
// builds a new node, so a Predicate returned earlier stays unchanged.
//
// Errors from value conversion are sticky and reported by Err.
type Builder struct {
	root Predicate
	err  error
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Predicate returns the current tree, or nil if nothing was added.
func (b *Builder) Predicate() Predicate {
	return b.root
}

// Err returns the first error recorded while adding conditions.
func (b *Builder) Err() error {
	return b.err
}

// Empty reports whether no predicate has been added.
func (b *Builder) Empty() bool {
	return b.root == nil
}

// Clone returns an independent copy of the builder.
func (b *Builder) Clone() *Builder {
	c := *b
	return &c
}

// Add joins c to the tree with boolean. Any value other than BoolOr is
// treated as BoolAnd. A Compare with an unknown operator adds nothing.
func (b *Builder) Add(c Condition, boolean Boolean) *Builder {
	p, grouped, err := resolve(c)
	if errors.Is(err, ErrUnknownOperator) {
		slog.Debug("ignoring filter condition", "error", err)
		return b
	}
	if err != nil {
		b.fail(err)
		return b
	}
	if p == nil {
		return b
	}
	b.insert(p, boolean, grouped)
	return b
}

// Where adds column/operator/value joined with "and". Extraction steps are
// chained in the order given.
func (b *Builder) Where(column, operator string, value any, steps ...extraction.Function) *Builder {
	return b.Add(compare(column, operator, value, steps), BoolAnd)
}

// OrWhere adds column/operator/value joined with "or".
func (b *Builder) OrWhere(column, operator string, value any, steps ...extraction.Function) *Builder {
	return b.Add(compare(column, operator, value, steps), BoolOr)
}

// WhereEquals adds a selector joined with "and".
func (b *Builder) WhereEquals(column string, value any) *Builder {
	return b.Add(Equal{Column: column, Value: value}, BoolAnd)
}

// WhereGroup adds a nested group joined with "and".
func (b *Builder) WhereGroup(fn func(*Builder)) *Builder {
	return b.Add(Group(fn), BoolAnd)
}

// OrWhereGroup adds a nested group joined with "or".
func (b *Builder) OrWhereGroup(fn func(*Builder)) *Builder {
	return b.Add(Group(fn), BoolOr)
}

// WhereNot adds not(group) joined with "and".
func (b *Builder) WhereNot(fn func(*Builder)) *Builder {
	return b.Add(Negated{Group: fn}, BoolAnd)
}

// WhereIn adds an in filter joined with "and".
func (b *Builder) WhereIn(column string, values any) *Builder {
	return b.Add(Compare{Column: column, Operator: "in", Value: values}, BoolAnd)
}

// WhereNotIn adds not(in) joined with "and".
func (b *Builder) WhereNotIn(column string, values any) *Builder {
	p, err := Compare{Column: column, Operator: "in", Value: values}.Resolve()
	if err != nil {
		b.fail(err)
		return b
	}
	return b.Add(Raw{Predicate: Not{Field: p}}, BoolAnd)
}

// WhereBetween adds min <= column <= max joined with "and".
func (b *Builder) WhereBetween(column string, lower, upper any) *Builder {
	p, err := between(column, lower, upper)
	if err != nil {
		b.fail(err)
		return b
	}
	return b.Add(Raw{Predicate: p}, BoolAnd)
}

// WhereNotBetween adds not(min <= column <= max) joined with "and".
func (b *Builder) WhereNotBetween(column string, lower, upper any) *Builder {
	p, err := between(column, lower, upper)
	if err != nil {
		b.fail(err)
		return b
	}
	return b.Add(Raw{Predicate: Not{Field: p}}, BoolAnd)
}

// WhereInterval adds an interval filter joined with "and".
func (b *Builder) WhereInterval(column string, intervals ...timespec.Interval) *Builder {
	if len(intervals) == 0 {
		b.fail(fmt.Errorf("interval filter on %q: no intervals", column))
		return b
	}
	return b.Add(Raw{Predicate: Interval{Dimension: column, Intervals: slices.Clone(intervals)}}, BoolAnd)
}

// WhereColumn adds a column comparison joined with "and".
func (b *Builder) WhereColumn(columns ...string) *Builder {
	if len(columns) < 2 {
		b.fail(fmt.Errorf("column comparison needs at least two columns, got %d", len(columns)))
		return b
	}
	return b.Add(Raw{Predicate: ColumnComparison{Dimensions: slices.Clone(columns)}}, BoolAnd)
}

// WhereExpression adds an expression filter joined with "and".
func (b *Builder) WhereExpression(expression string) *Builder {
	return b.Add(Raw{Predicate: Expression{Expression: expression}}, BoolAnd)
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *Builder) insert(p Predicate, boolean Boolean, grouped bool) {
	if boolean != BoolOr {
		boolean = BoolAnd
	}
	if b.root == nil {
		b.root = p
		return
	}

	fields, same := fieldsOf(b.root, boolean)
	if same {
		fields = slices.Clone(fields)
	} else {
		fields = []Predicate{b.root}
	}

	if sub, ok := fieldsOf(p, boolean); ok && !grouped {
		fields = append(fields, sub...)
	} else {
		fields = append(fields, p)
	}

	if boolean == BoolOr {
		b.root = Or{Fields: fields}
	} else {
		b.root = And{Fields: fields}
	}
}

func fieldsOf(p Predicate, boolean Boolean) ([]Predicate, bool) {
	switch n := p.(type) {
	case And:
		return n.Fields, boolean == BoolAnd
	case Or:
		return n.Fields, boolean == BoolOr
	}
	return nil, false
}

func resolve(c Condition) (Predicate, bool, error) {
	switch c := c.(type) {
	case nil:
		return nil, false, nil
	case Compare:
		p, err := c.Resolve()
		return p, false, err
	case Equal:
		p, err := Compare{Column: c.Column, Operator: "=", Value: c.Value, Extraction: c.Extraction}.Resolve()
		return p, false, err
	case Raw:
		return c.Predicate, false, nil
	case Group:
		p, err := subtree(c)
		return p, true, err
	case Negated:
		p, err := subtree(c.Group)
		if err != nil || p == nil {
			return nil, true, err
		}
		return Not{Field: p}, true, nil
	default:
		return nil, false, fmt.Errorf("unsupported condition %T", c)
	}
}

func subtree(fn Group) (Predicate, error) {
	if fn == nil {
		return nil, nil
	}
	sub := NewBuilder()
	fn(sub)
	return sub.root, sub.err
}

func compare(column, operator string, value any, steps []extraction.Function) Compare {
	chain := extraction.NewChain(steps...)
	return Compare{Column: column, Operator: operator, Value: value, Extraction: chain.Function()}
}

func between(column string, lower, upper any) (Predicate, error) {
	lo, err := wire.FromGo(lower)
	if err != nil {
		return nil, fmt.Errorf("between on %q: %w", column, err)
	}
	hi, err := wire.FromGo(upper)
	if err != nil {
		return nil, fmt.Errorf("between on %q: %w", column, err)
	}
	ordering := comparator.Lexicographic
	if wire.IsNumeric(lo) && wire.IsNumeric(hi) {
		ordering = comparator.Numeric
	}
	return Bound{Dimension: column, Lower: lo, Upper: hi, Ordering: ordering}, nil
}

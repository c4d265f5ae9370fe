package having

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/druidq/internal/extraction"
	"github.com/roach88/druidq/internal/filter"
)

// Condition is one input to Builder.Add.
//
// This is a sealed interface - only Compare, Raw, Group and Negated
// implement it.
type Condition interface {
	condition()
}

// Raw adds an already-built spec.
type Raw struct {
	Spec Spec
}

// Group collects conditions on a fresh builder sharing the known names and
// adds the result as one nested node.
type Group func(*Builder)

// Negated adds not(result of Group).
type Negated struct {
	Group Group
}

func (Compare) condition() {}
func (Raw) condition()     {}
func (Group) condition()   {}
func (Negated) condition() {}

// Builder accumulates a having tree. See filter.Builder for the flattening
// rules, which are identical.
type Builder struct {
	known []string
	root  Spec
	err   error
}

// NewBuilder returns a builder that treats names in known as aggregation
// outputs.
func NewBuilder(known []string) *Builder {
	return &Builder{known: slices.Clone(known)}
}

// Spec returns the current tree, or nil if nothing was added.
func (b *Builder) Spec() Spec {
	return b.root
}

// Err returns the first error recorded while adding conditions.
func (b *Builder) Err() error {
	return b.err
}

// Empty reports whether no spec has been added.
func (b *Builder) Empty() bool {
	return b.root == nil
}

// Clone returns an independent copy of the builder.
func (b *Builder) Clone() *Builder {
	return &Builder{known: slices.Clone(b.known), root: b.root, err: b.err}
}

// SetKnown replaces the aggregation output names consulted by later
// equality conditions. Specs already added are unaffected.
func (b *Builder) SetKnown(known []string) {
	b.known = slices.Clone(known)
}

// Add joins c to the tree with boolean. A Compare with an unknown operator
// adds nothing.
func (b *Builder) Add(c Condition, boolean filter.Boolean) *Builder {
	s, grouped, err := b.resolve(c)
	if errors.Is(err, ErrUnknownOperator) {
		slog.Debug("ignoring having condition", "error", err)
		return b
	}
	if err != nil {
		if b.err == nil {
			b.err = err
		}
		return b
	}
	if s == nil {
		return b
	}
	b.insert(s, boolean, grouped)
	return b
}

// Having adds name/operator/value joined with "and".
func (b *Builder) Having(name, operator string, value any, steps ...extraction.Function) *Builder {
	return b.Add(compare(name, operator, value, steps), filter.BoolAnd)
}

// OrHaving adds name/operator/value joined with "or".
func (b *Builder) OrHaving(name, operator string, value any, steps ...extraction.Function) *Builder {
	return b.Add(compare(name, operator, value, steps), filter.BoolOr)
}

// HavingGroup adds a nested group joined with "and".
func (b *Builder) HavingGroup(fn func(*Builder)) *Builder {
	return b.Add(Group(fn), filter.BoolAnd)
}

// OrHavingGroup adds a nested group joined with "or".
func (b *Builder) OrHavingGroup(fn func(*Builder)) *Builder {
	return b.Add(Group(fn), filter.BoolOr)
}

// HavingNot adds not(group) joined with "and".
func (b *Builder) HavingNot(fn func(*Builder)) *Builder {
	return b.Add(Negated{Group: fn}, filter.BoolAnd)
}

func (b *Builder) insert(s Spec, boolean filter.Boolean, grouped bool) {
	if boolean != filter.BoolOr {
		boolean = filter.BoolAnd
	}
	if b.root == nil {
		b.root = s
		return
	}

	specs, same := specsOf(b.root, boolean)
	if same {
		specs = slices.Clone(specs)
	} else {
		specs = []Spec{b.root}
	}

	if sub, ok := specsOf(s, boolean); ok && !grouped {
		specs = append(specs, sub...)
	} else {
		specs = append(specs, s)
	}

	if boolean == filter.BoolOr {
		b.root = Or{Specs: specs}
	} else {
		b.root = And{Specs: specs}
	}
}

func specsOf(s Spec, boolean filter.Boolean) ([]Spec, bool) {
	switch n := s.(type) {
	case And:
		return n.Specs, boolean == filter.BoolAnd
	case Or:
		return n.Specs, boolean == filter.BoolOr
	}
	return nil, false
}

func (b *Builder) resolve(c Condition) (Spec, bool, error) {
	switch c := c.(type) {
	case nil:
		return nil, false, nil
	case Compare:
		s, err := c.Resolve(b.known)
		return s, false, err
	case Raw:
		return c.Spec, false, nil
	case Group:
		s, err := b.subtree(c)
		return s, true, err
	case Negated:
		s, err := b.subtree(c.Group)
		if err != nil || s == nil {
			return nil, true, err
		}
		return Not{Spec: s}, true, nil
	default:
		return nil, false, fmt.Errorf("unsupported condition %T", c)
	}
}

func (b *Builder) subtree(fn Group) (Spec, error) {
	if fn == nil {
		return nil, nil
	}
	sub := NewBuilder(b.known)
	fn(sub)
	return sub.root, sub.err
}

func compare(name, operator string, value any, steps []extraction.Function) Compare {
	chain := extraction.NewChain(steps...)
	return Compare{Name: name, Operator: operator, Value: value, Extraction: chain.Function()}
}

package extraction

import (
	"fmt"
	"slices"

	"github.com/roach88/druidq/internal/wire"
)

// Cascade applies its steps left to right.
type Cascade struct {
	Steps []Function
}

func (Cascade) extractionFn() {}

func (Cascade) Type() string { return "cascade" }

func (f Cascade) Wire() wire.Object {
	fns := make(wire.Array, len(f.Steps))
	for i, step := range f.Steps {
		fns[i] = step.Wire()
	}
	return wire.NewObject(
		wire.P("type", wire.String(f.Type())),
		wire.P("extractionFns", fns),
	)
}

// Apply returns steps[n-1](...steps[1](steps[0](value))).
func (f Cascade) Apply(value string) (string, error) {
	out := value
	for i, step := range f.Steps {
		var err error
		out, err = step.Apply(out)
		if err != nil {
			return "", fmt.Errorf("cascade step %d (%s): %w", i, step.Type(), err)
		}
	}
	return out, nil
}

// Chain accumulates extraction steps for one dimension or filter.
// The zero value is an empty chain.
type Chain struct {
	fn Function
}

// NewChain returns a chain holding the given steps in order.
func NewChain(steps ...Function) Chain {
	var c Chain
	for _, s := range steps {
		c.Add(s)
	}
	return c
}

// Add appends a step:
//   - empty chain: the step is stored as a single function
//   - single function: replaced by Cascade{existing, step}
//   - cascade: step is appended to a copy of its steps
//
// A nil step is ignored.
func (c *Chain) Add(step Function) {
	if step == nil {
		return
	}
	switch cur := c.fn.(type) {
	case nil:
		c.fn = step
	case Cascade:
		// Copy so a function already handed out is never mutated.
		steps := slices.Clone(cur.Steps)
		c.fn = Cascade{Steps: append(steps, step)}
	default:
		c.fn = Cascade{Steps: []Function{cur, step}}
	}
}

// Function returns the accumulated function, or nil for an empty chain.
func (c Chain) Function() Function {
	return c.fn
}

// Empty reports whether no step has been added.
func (c Chain) Empty() bool {
	return c.fn == nil
}

// WireOf renders fn for embedding under an "extractionFn" key. A nil
// function yields nil so wire.NewObject drops the key.
func WireOf(fn Function) wire.Value {
	if fn == nil {
		return nil
	}
	return fn.Wire()
}

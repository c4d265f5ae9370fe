// Package extraction models Druid extraction functions: value transforms
// applied to a dimension before it is grouped, filtered or returned.
//
// Function is a sealed interface. Every step renders its wire form and,
// where the transform does not need server-side state, can be evaluated
// locally with Apply. Registered lookups and javascript functions cannot
// and report ErrNotEvaluable.
//
// Chain accumulates steps. The first step is stored as is; adding a second
// step upgrades it to a Cascade and later steps are appended. Steps apply
// strictly in insertion order: step i sees the output of step i-1.
package extraction

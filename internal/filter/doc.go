// Package filter builds Druid filter trees.
//
// Leaf predicates (selector, bound, like, regex, search, in, ...) are
// combined with and/or/not. Callers normally go through Builder, which maps
// comparison operators onto predicates and keeps the tree flat: a run of
// conditions joined by the same boolean produces a single combinator rather
// than a nested chain.
package filter

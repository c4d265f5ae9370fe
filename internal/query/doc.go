// Package query accumulates the parts of a Druid native query and renders
// the cheapest query shape that can answer it.
//
// A Builder collects dimensions, aggregations, filters and the rest. Build
// picks a shape in fixed priority order (scan, timeseries, topN, select,
// search, groupBy), validates that shape's preconditions and returns an
// immutable Query holding a copy of the builder's state. Later changes to
// the builder never reach a Query that was already built.
//
// A Builder is not safe for concurrent use. Clone it first.
package query

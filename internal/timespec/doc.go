// Package timespec holds the time-related inputs of a query: half-open
// intervals and the enumerated granularities.
//
// Both are validated when they are created, so a query builder never holds
// a malformed interval or granularity and serialization cannot fail on them.
package timespec

// Package testutil provides deterministic time and id sources for tests
// that record or send queries.
package testutil

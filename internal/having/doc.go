// Package having builds GroupBy having specs.
//
// The tree is assembled the same way as a row filter (see package filter):
// same-boolean conditions flatten into one combinator and groups nest. The
// builder is told up front which output names are aggregations so that the
// equality shorthand can pick between a numeric equalTo and a dimSelector.
package having

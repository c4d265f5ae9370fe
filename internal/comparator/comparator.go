// Package comparator enumerates Druid's string comparators, the collations
// used by bound filters, limit specs, TopN dimension metrics and search sort.
package comparator

import (
	"fmt"
	"slices"
	"strings"
)

// Comparator names a collation.
type Comparator string

const (
	Lexicographic Comparator = "lexicographic"
	Alphanumeric  Comparator = "alphanumeric"
	Numeric       Comparator = "numeric"
	Strlen        Comparator = "strlen"
	Version       Comparator = "version"
	Natural       Comparator = "natural"
)

// All lists every accepted comparator.
var All = []Comparator{Lexicographic, Alphanumeric, Numeric, Strlen, Version, Natural}

// Parse validates s against the known comparators. The empty string maps to
// Lexicographic.
func Parse(s string) (Comparator, error) {
	if s == "" {
		return Lexicographic, nil
	}
	c := Comparator(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(All, c) {
		return "", fmt.Errorf("unknown comparator %q", s)
	}
	return c, nil
}

// OrDefault returns c, or Lexicographic when c is empty.
func (c Comparator) OrDefault() Comparator {
	if c == "" {
		return Lexicographic
	}
	return c
}

package filter

import "github.com/roach88/druidq/internal/wire"

// SearchSpec is the "query" object of a search filter or search query.
//
// This is a sealed interface - only types in this package implement it.
type SearchSpec interface {
	Type() string
	Wire() wire.Object

	searchSpec()
}

// Contains matches values containing Value.
type Contains struct {
	Value         string
	CaseSensitive bool
}

// Fragment matches values containing every one of Values.
type Fragment struct {
	Values        []string
	CaseSensitive bool
}

// RegexSearch matches values against a regular expression.
type RegexSearch struct {
	Pattern string
}

func (Contains) searchSpec()    {}
func (Fragment) searchSpec()    {}
func (RegexSearch) searchSpec() {}

func (Contains) Type() string    { return "contains" }
func (Fragment) Type() string    { return "fragment" }
func (RegexSearch) Type() string { return "regex" }

func (s Contains) Wire() wire.Object {
	return wire.NewObject(
		wire.P("type", wire.String(s.Type())),
		wire.P("value", wire.String(s.Value)),
		wire.P("caseSensitive", wire.Bool(s.CaseSensitive)),
	)
}

func (s Fragment) Wire() wire.Object {
	return wire.NewObject(
		wire.P("type", wire.String(s.Type())),
		wire.P("values", wire.Strings(s.Values)),
		wire.P("caseSensitive", wire.Bool(s.CaseSensitive)),
	)
}

func (s RegexSearch) Wire() wire.Object {
	return wire.NewObject(
		wire.P("type", wire.String(s.Type())),
		wire.P("pattern", wire.String(s.Pattern)),
	)
}

package extraction

import (
	"github.com/roach88/druidq/internal/wire"
)

// RegisteredLookup maps values through a lookup table registered on the
// cluster. Only the server can evaluate it.
type RegisteredLookup struct {
	Lookup string
	// RetainMissingValue keeps values the lookup has no entry for.
	RetainMissingValue bool
	// ReplaceMissingValueWith replaces values the lookup has no entry for.
	// Ignored when RetainMissingValue is set.
	ReplaceMissingValueWith string
	Injective               bool
	Optimize                bool
}

func (RegisteredLookup) extractionFn() {}

func (RegisteredLookup) Type() string { return "registeredLookup" }

func (f RegisteredLookup) Wire() wire.Object {
	obj := wire.NewObject(
		wire.P("type", wire.String(f.Type())),
		wire.P("lookup", wire.String(f.Lookup)),
		wire.P("retainMissingValue", wire.Bool(f.RetainMissingValue)),
	)
	if !f.RetainMissingValue && f.ReplaceMissingValueWith != "" {
		obj["replaceMissingValueWith"] = wire.String(f.ReplaceMissingValueWith)
	}
	if f.Injective {
		obj["injective"] = wire.Bool(true)
	}
	if f.Optimize {
		obj["optimize"] = wire.Bool(true)
	}
	return obj
}

func (RegisteredLookup) Apply(string) (string, error) {
	return "", ErrNotEvaluable
}

// InlineLookup maps values through a map carried inside the request.
type InlineLookup struct {
	Map                     map[string]string
	RetainMissingValue      bool
	ReplaceMissingValueWith string
	Injective               bool
}

func (InlineLookup) extractionFn() {}

func (InlineLookup) Type() string { return "lookup" }

func (f InlineLookup) Wire() wire.Object {
	entries := make(wire.Object, len(f.Map))
	for k, v := range f.Map {
		entries[k] = wire.String(v)
	}
	obj := wire.NewObject(
		wire.P("type", wire.String(f.Type())),
		wire.P("lookup", wire.NewObject(
			wire.P("type", wire.String("map")),
			wire.P("map", entries),
		)),
		wire.P("retainMissingValue", wire.Bool(f.RetainMissingValue)),
	)
	if !f.RetainMissingValue && f.ReplaceMissingValueWith != "" {
		obj["replaceMissingValueWith"] = wire.String(f.ReplaceMissingValueWith)
	}
	if f.Injective {
		obj["injective"] = wire.Bool(true)
	}
	return obj
}

func (f InlineLookup) Apply(value string) (string, error) {
	if mapped, ok := f.Map[value]; ok {
		return mapped, nil
	}
	if f.RetainMissingValue {
		return value, nil
	}
	return f.ReplaceMissingValueWith, nil
}

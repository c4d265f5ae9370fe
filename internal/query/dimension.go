package query

import (
	"fmt"
	"strings"

	"github.com/roach88/druidq/internal/extraction"
	"github.com/roach88/druidq/internal/wire"
)

// TimeColumn is Druid's reserved time pseudo-column.
const TimeColumn = "__time"

// ValueType is a column or aggregation value type.
type ValueType string

const (
	TypeString ValueType = "string"
	TypeLong   ValueType = "long"
	TypeFloat  ValueType = "float"
	TypeDouble ValueType = "double"
)

// ParseValueType accepts a value type in any case. The empty string is
// TypeString.
func ParseValueType(s string) (ValueType, error) {
	switch t := ValueType(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return TypeString, nil
	case TypeString, TypeLong, TypeFloat, TypeDouble:
		return t, nil
	}
	return "", fmt.Errorf("unknown value type %q", s)
}

// wireName renders the type the way column specs spell it: "LONG".
func (t ValueType) wireName() string {
	return strings.ToUpper(string(t))
}

// Dimension is one selected column.
type Dimension struct {
	// Column is the source column.
	Column string

	// Alias is the output name. Empty means Column.
	Alias string

	// OutputType is the output value type. Empty means string.
	OutputType ValueType

	// Extraction transforms values before grouping.
	Extraction extraction.Function
}

// OutputName returns the name the dimension has in results.
func (d Dimension) OutputName() string {
	if d.Alias == "" {
		return d.Column
	}
	return d.Alias
}

// Plain reports whether the dimension passes the column through unchanged:
// no alias differing from the column and no extraction.
func (d Dimension) Plain() bool {
	return d.OutputName() == d.Column && d.Extraction == nil
}

// IsTime reports whether the dimension reads the time pseudo-column.
func (d Dimension) IsTime() bool {
	return d.Column == TimeColumn
}

// Wire renders the dimension spec.
func (d Dimension) Wire() wire.Object {
	typ := "default"
	if d.Extraction != nil {
		typ = "extraction"
	}
	obj := wire.NewObject(
		wire.P("type", wire.String(typ)),
		wire.P("dimension", wire.String(d.Column)),
		wire.P("outputName", wire.String(d.OutputName())),
		wire.P("extractionFn", extraction.WireOf(d.Extraction)),
	)
	if d.OutputType != "" && d.OutputType != TypeString {
		obj["outputType"] = wire.String(d.OutputType.wireName())
	}
	return obj
}

// VirtualColumn computes a column from an expression at query time.
type VirtualColumn struct {
	Name       string
	Expression string
	OutputType ValueType
}

// Wire renders the virtual column.
func (v VirtualColumn) Wire() wire.Object {
	obj := wire.NewObject(
		wire.P("type", wire.String("expression")),
		wire.P("name", wire.String(v.Name)),
		wire.P("expression", wire.String(v.Expression)),
	)
	if v.OutputType != "" {
		obj["outputType"] = wire.String(v.OutputType.wireName())
	}
	return obj
}

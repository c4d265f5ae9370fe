package query

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/druidq/internal/comparator"
	"github.com/roach88/druidq/internal/wire"
)

// Direction is a sort direction.
type Direction string

const (
	Ascending  Direction = "ascending"
	Descending Direction = "descending"
)

// ParseDirection accepts "asc", "ascending", "desc" and "descending" in any
// case. The empty string is Ascending.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	}
	return "", fmt.Errorf("unknown direction %q", s)
}

// OrderBy sorts results by one output column.
type OrderBy struct {
	Dimension string
	Direction Direction
	// Collation is the comparator. Empty means numeric for metrics and
	// lexicographic for everything else.
	Collation comparator.Comparator
}

func (o OrderBy) direction() Direction {
	if o.Direction == "" {
		return Ascending
	}
	return o.Direction
}

// Limit caps and orders results. The zero value requests no limit.
type Limit struct {
	count    int
	hasCount bool
	offset   int
	columns  []OrderBy
}

// Count returns the requested row count and whether one was requested.
func (l Limit) Count() (int, bool) {
	return l.count, l.hasCount
}

// Offset returns the number of rows skipped.
func (l Limit) Offset() int {
	return l.offset
}

// Columns returns the order-by columns.
func (l Limit) Columns() []OrderBy {
	return slices.Clone(l.columns)
}

// empty reports whether nothing was set.
func (l Limit) empty() bool {
	return !l.hasCount && l.offset == 0 && len(l.columns) == 0
}

func (l Limit) clone() Limit {
	l.columns = slices.Clone(l.columns)
	return l
}

// limitSpec renders a GroupBy "default" limit spec. metrics holds the
// aggregation and post-aggregation output names.
func (l Limit) limitSpec(metrics []string) wire.Object {
	obj := wire.NewObject(wire.P("type", wire.String("default")))
	if l.hasCount {
		obj["limit"] = wire.Int(l.count)
	}
	if l.offset > 0 {
		obj["offset"] = wire.Int(l.offset)
	}
	if len(l.columns) > 0 {
		cols := make(wire.Array, len(l.columns))
		for i, o := range l.columns {
			cols[i] = wire.NewObject(
				wire.P("dimension", wire.String(o.Dimension)),
				wire.P("direction", wire.String(o.direction())),
				wire.P("dimensionOrder", wire.String(collation(o, metrics))),
			)
		}
		obj["columns"] = cols
	}
	return obj
}

func collation(o OrderBy, metrics []string) comparator.Comparator {
	if o.Collation != "" {
		return o.Collation
	}
	if slices.Contains(metrics, o.Dimension) {
		return comparator.Numeric
	}
	return comparator.Lexicographic
}

// Package datasource describes what a query reads from.
package datasource

import (
	"fmt"
	"strings"

	"github.com/roach88/druidq/internal/wire"
)

// DataSource is a query's "dataSource".
//
// This is a sealed interface - only types in this package implement it.
type DataSource interface {
	Type() string
	Wire() wire.Object
	// String is a short human-readable name used in logs and history.
	String() string

	dataSource()
}

// Table reads a regular datasource.
type Table struct {
	Name string
}

// Lookup reads a lookup table as a datasource.
type Lookup struct {
	Lookup string
}

// Union reads several tables with identical schemas.
type Union struct {
	Names []string
}

// Inline carries its rows in the request.
type Inline struct {
	ColumnNames []string
	Rows        []wire.Array
}

// JoinType is the join kind.
type JoinType string

const (
	JoinInner JoinType = "INNER"
	JoinLeft  JoinType = "LEFT"
)

// Join joins Left with Right on Condition, a Druid expression referencing
// right-hand columns through RightPrefix.
type Join struct {
	Left        DataSource
	Right       DataSource
	RightPrefix string
	Condition   string
	JoinType    JoinType
}

// Subquery is anything that renders to a native query object.
type Subquery interface {
	Wire() wire.Object
}

// Query reads the result of a nested query.
type Query struct {
	Query Subquery
}

func (Table) dataSource()  {}
func (Lookup) dataSource() {}
func (Union) dataSource()  {}
func (Inline) dataSource() {}
func (Join) dataSource()   {}
func (Query) dataSource()  {}

func (Table) Type() string  { return "table" }
func (Lookup) Type() string { return "lookup" }
func (Union) Type() string  { return "union" }
func (Inline) Type() string { return "inline" }
func (Join) Type() string   { return "join" }
func (Query) Type() string  { return "query" }

func (d Table) Wire() wire.Object {
	return wire.NewObject(
		wire.P("type", wire.String(d.Type())),
		wire.P("name", wire.String(d.Name)),
	)
}

func (d Lookup) Wire() wire.Object {
	return wire.NewObject(
		wire.P("type", wire.String(d.Type())),
		wire.P("lookup", wire.String(d.Lookup)),
	)
}

func (d Union) Wire() wire.Object {
	return wire.NewObject(
		wire.P("type", wire.String(d.Type())),
		wire.P("dataSources", wire.Strings(d.Names)),
	)
}

func (d Inline) Wire() wire.Object {
	rows := make(wire.Array, len(d.Rows))
	for i, r := range d.Rows {
		rows[i] = r
	}
	return wire.NewObject(
		wire.P("type", wire.String(d.Type())),
		wire.P("columnNames", wire.Strings(d.ColumnNames)),
		wire.P("rows", rows),
	)
}

func (d Join) Wire() wire.Object {
	joinType := d.JoinType
	if joinType == "" {
		joinType = JoinInner
	}
	return wire.NewObject(
		wire.P("type", wire.String(d.Type())),
		wire.P("left", wireOf(d.Left)),
		wire.P("right", wireOf(d.Right)),
		wire.P("rightPrefix", wire.String(d.RightPrefix)),
		wire.P("condition", wire.String(d.Condition)),
		wire.P("joinType", wire.String(joinType)),
	)
}

func (d Query) Wire() wire.Object {
	var q wire.Value
	if d.Query != nil {
		q = d.Query.Wire()
	}
	return wire.NewObject(
		wire.P("type", wire.String(d.Type())),
		wire.P("query", q),
	)
}

func wireOf(d DataSource) wire.Value {
	if d == nil {
		return nil
	}
	return d.Wire()
}

func (d Table) String() string  { return d.Name }
func (d Lookup) String() string { return "lookup:" + d.Lookup }
func (d Union) String() string  { return "union(" + strings.Join(d.Names, ",") + ")" }
func (d Inline) String() string { return fmt.Sprintf("inline(%d rows)", len(d.Rows)) }
func (d Query) String() string  { return "query" }

func (d Join) String() string {
	return fmt.Sprintf("join(%s,%s)", stringOf(d.Left), stringOf(d.Right))
}

func stringOf(d DataSource) string {
	if d == nil {
		return "<nil>"
	}
	return d.String()
}

// NewInline converts rows of Go values. Every row must have one value per
// column.
func NewInline(columns []string, rows [][]any) (Inline, error) {
	out := Inline{ColumnNames: append([]string(nil), columns...)}
	for i, row := range rows {
		if len(row) != len(columns) {
			return Inline{}, fmt.Errorf("inline row %d: %d values for %d columns", i, len(row), len(columns))
		}
		v, err := wire.FromGo(row)
		if err != nil {
			return Inline{}, fmt.Errorf("inline row %d: %w", i, err)
		}
		out.Rows = append(out.Rows, v.(wire.Array))
	}
	return out, nil
}

// Validate reports structural problems that Druid would reject.
func Validate(d DataSource) error {
	switch d := d.(type) {
	case nil:
		return fmt.Errorf("no data source")
	case Table:
		if d.Name == "" {
			return fmt.Errorf("table data source without a name")
		}
	case Lookup:
		if d.Lookup == "" {
			return fmt.Errorf("lookup data source without a name")
		}
	case Union:
		if len(d.Names) == 0 {
			return fmt.Errorf("union data source without tables")
		}
	case Inline:
		if len(d.ColumnNames) == 0 {
			return fmt.Errorf("inline data source without columns")
		}
	case Join:
		if err := Validate(d.Left); err != nil {
			return fmt.Errorf("join left: %w", err)
		}
		if err := Validate(d.Right); err != nil {
			return fmt.Errorf("join right: %w", err)
		}
		if d.RightPrefix == "" || d.Condition == "" {
			return fmt.Errorf("join needs a right prefix and a condition")
		}
		if d.JoinType != "" && d.JoinType != JoinInner && d.JoinType != JoinLeft {
			return fmt.Errorf("unknown join type %q", d.JoinType)
		}
	case Query:
		if d.Query == nil {
			return fmt.Errorf("query data source without a query")
		}
	default:
		return fmt.Errorf("unsupported data source %T", d)
	}
	return nil
}

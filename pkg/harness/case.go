// Package harness runs load cases against a SQL Server loader.
//
// A case names a fixture table and how rows reach it: streamed through a
// bulk session (BulkCase), inserted by one parameterised statement
// (ExecCase), or nothing at all beyond a connection check (ConnectCase).
// The Runner executes cases, compares affected-row counts and, on request,
// reads the table back and compares an order-independent digest of what
// was sent with what the server stores.
package harness

import (
	"fmt"
	"strings"

	"github.com/ruslano69/mssql-typeload/pkg/core/schema"
)

// Mode selects how a case loads its rows.
type Mode int

const (
	ModeBulk Mode = iota
	ModeExec
	ModeConnect
)

func (m Mode) String() string {
	switch m {
	case ModeBulk:
		return "bulk"
	case ModeExec:
		return "exec"
	case ModeConnect:
		return "connect"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// RowFunc returns row i of a bulk case. It must be deterministic.
type RowFunc func(i int) schema.Row

// Case is one parameterised load: table, row source and expected count.
type Case struct {
	Name string
	Mode Mode

	// Spec is the fixture table; bulk rows and exec parameters follow its
	// column order.
	Spec schema.TableSpec

	// Rows and Row drive bulk cases.
	Rows int
	Row  RowFunc

	// SQL and Params drive exec cases. Empty SQL means an INSERT of Params
	// into every column of Spec.
	SQL    string
	Params schema.Row
}

// BulkCase builds a case streaming rows generated by fn into spec.Table.
func BulkCase(name string, spec schema.TableSpec, rows int, fn RowFunc) Case {
	return Case{Name: name, Mode: ModeBulk, Spec: spec, Rows: rows, Row: fn}
}

// ExecCase builds a case inserting one row of params with a single
// statement.
func ExecCase(name string, spec schema.TableSpec, params ...schema.Value) Case {
	return Case{Name: name, Mode: ModeExec, Spec: spec, Params: params}
}

// ConnectCase builds a case that only connects and pings.
func ConnectCase(name string) Case {
	return Case{Name: name, Mode: ModeConnect}
}

// Statement returns the SQL text of an exec case.
func (c Case) Statement() string {
	if c.SQL != "" {
		return c.SQL
	}
	return InsertSQL(c.Spec)
}

// Expected returns the row count the server must report.
func (c Case) Expected() int64 {
	switch c.Mode {
	case ModeBulk:
		return int64(c.Rows)
	case ModeExec:
		return 1
	default:
		return 0
	}
}

// WithRows returns a copy of a bulk case with a different row count.
// Other cases and empty bulk cases are returned unchanged.
func (c Case) WithRows(n int) Case {
	if c.Mode == ModeBulk && c.Rows > 0 && n > 0 {
		c.Rows = n
	}
	return c
}

// HasTable reports whether the case touches a fixture table.
func (c Case) HasTable() bool {
	return c.Mode != ModeConnect && c.Spec.Table != ""
}

// InsertSQL renders "INSERT INTO t (a, b) VALUES (@P1, @P2)" for spec.
func InsertSQL(spec schema.TableSpec) string {
	cols := make([]string, len(spec.Columns))
	params := make([]string, len(spec.Columns))
	for i, c := range spec.Columns {
		cols[i] = schema.QuoteName(c.Name)
		params[i] = fmt.Sprintf("@P%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		schema.QuoteName(spec.Table), strings.Join(cols, ", "), strings.Join(params, ", "))
}

package mssql

import (
	"fmt"
	"strings"

	"github.com/ruslano69/mssql-typeload/pkg/core/schema"
)

// Type metadata as reported by INFORMATION_SCHEMA.COLUMNS
//
// DATA_TYPE          CHARACTER_MAXIMUM_LENGTH   NUMERIC_*     DATETIME_PRECISION
// ─────────────────────────────────────────────────────────────────────────────
// char/varchar       length, -1 for MAX
// nchar/nvarchar     length in characters, -1 for MAX
// binary/varbinary   length, -1 for MAX
// text/ntext/image   2^31-1 / 2^30-1 (ignored)
// xml                -1 (ignored)
// decimal/numeric                               precision, scale
// float/real                                    53 / 24
// time/datetime2                                              0..7
// datetimeoffset                                              0..7

// columnInfo is one row of INFORMATION_SCHEMA.COLUMNS.
type columnInfo struct {
	Name              string
	DataType          string
	Length            int
	Precision         int
	Scale             int
	DateTimePrecision int
}

// toColumn builds a schema.Column from server metadata.
func (ci columnInfo) toColumn() (schema.Column, error) {
	dt := schema.DataType(strings.ToUpper(strings.TrimSpace(ci.DataType)))
	if !schema.IsValidType(dt) {
		return schema.Column{Name: ci.Name, Type: dt}, fmt.Errorf("column %s has unsupported type %s", ci.Name, ci.DataType)
	}

	c := schema.Column{Name: ci.Name, Type: dt}

	switch dt {
	case schema.TypeChar, schema.TypeVarChar, schema.TypeNChar, schema.TypeNVarChar,
		schema.TypeBinary, schema.TypeVarBinary:
		if ci.Length < 0 {
			c.Length = schema.MaxLength
		} else {
			c.Length = ci.Length
		}
	case schema.TypeDecimal, schema.TypeNumeric:
		c.Precision = ci.Precision
		c.Scale = ci.Scale
		c.HasScale = true
	case schema.TypeTime, schema.TypeDateTime2, schema.TypeDateTimeOffset:
		c.Scale = ci.DateTimePrecision
		c.HasScale = true
	}

	return c, nil
}

// checkDeclared compares a declared column against the table's column.
// Only the base type must agree; lengths and scales are enforced by the
// server.
func checkDeclared(declared, actual schema.Column) error {
	if declared.Type != actual.Type {
		return fmt.Errorf("column %s is declared %s but the table has %s",
			declared.Name, declared.SQLType(), actual.SQLType())
	}
	return nil
}

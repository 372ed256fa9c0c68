package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// DataType is a SQL Server column type name.
type DataType string

// Supported SQL Server data types.
const (
	TypeBit              DataType = "BIT"
	TypeTinyInt          DataType = "TINYINT"
	TypeSmallInt         DataType = "SMALLINT"
	TypeInt              DataType = "INT"
	TypeBigInt           DataType = "BIGINT"
	TypeFloat            DataType = "FLOAT"
	TypeReal             DataType = "REAL"
	TypeDecimal          DataType = "DECIMAL"
	TypeNumeric          DataType = "NUMERIC"
	TypeMoney            DataType = "MONEY"
	TypeSmallMoney       DataType = "SMALLMONEY"
	TypeChar             DataType = "CHAR"
	TypeVarChar          DataType = "VARCHAR"
	TypeNChar            DataType = "NCHAR"
	TypeNVarChar         DataType = "NVARCHAR"
	TypeText             DataType = "TEXT"
	TypeNText            DataType = "NTEXT"
	TypeBinary           DataType = "BINARY"
	TypeVarBinary        DataType = "VARBINARY"
	TypeImage            DataType = "IMAGE"
	TypeUniqueIdentifier DataType = "UNIQUEIDENTIFIER"
	TypeDate             DataType = "DATE"
	TypeTime             DataType = "TIME"
	TypeDateTime         DataType = "DATETIME"
	TypeDateTime2        DataType = "DATETIME2"
	TypeDateTimeOffset   DataType = "DATETIMEOFFSET"
	TypeSmallDateTime    DataType = "SMALLDATETIME"
	TypeXML              DataType = "XML"
)

// MaxLength marks a (MAX) column in Column.Length.
const MaxLength = -1

// Default precision and scale used by SQL Server when a type is declared
// without parameters.
const (
	DefaultDecimalPrecision = 18
	DefaultDecimalScale     = 0
	DefaultFractionalScale  = 7
)

var knownTypes = map[DataType]bool{
	TypeBit: true, TypeTinyInt: true, TypeSmallInt: true, TypeInt: true, TypeBigInt: true,
	TypeFloat: true, TypeReal: true, TypeDecimal: true, TypeNumeric: true,
	TypeMoney: true, TypeSmallMoney: true,
	TypeChar: true, TypeVarChar: true, TypeNChar: true, TypeNVarChar: true,
	TypeText: true, TypeNText: true,
	TypeBinary: true, TypeVarBinary: true, TypeImage: true, TypeUniqueIdentifier: true,
	TypeDate: true, TypeTime: true, TypeDateTime: true, TypeDateTime2: true,
	TypeDateTimeOffset: true, TypeSmallDateTime: true,
	TypeXML: true,
}

// IsValidType reports whether t is a supported SQL Server type.
func IsValidType(t DataType) bool {
	return knownTypes[t]
}

// IsBulkType reports whether columns of type t can be loaded through the
// bulk copy stream. Legacy LOB types, xml and the money types go through
// scalar execute; the driver has no bulk encoder for money.
func IsBulkType(t DataType) bool {
	switch t {
	case TypeText, TypeNText, TypeImage, TypeXML, TypeMoney, TypeSmallMoney:
		return false
	default:
		return IsValidType(t)
	}
}

// IsFixedLength reports whether values of t are padded to the declared length.
func IsFixedLength(t DataType) bool {
	return t == TypeChar || t == TypeNChar || t == TypeBinary
}

// IsUnicode reports whether t stores UTF-16 text.
func IsUnicode(t DataType) bool {
	return t == TypeNChar || t == TypeNVarChar || t == TypeNText || t == TypeXML
}

// Column describes one column of a target table.
type Column struct {
	Name string
	Type DataType

	// Length is the declared length for character and binary types.
	// 0 means the SQL Server default (1), MaxLength means (MAX).
	Length int

	// Precision and Scale apply to decimal/numeric. Scale is also the
	// fractional seconds precision of time, datetime2 and datetimeoffset.
	Precision int
	Scale     int

	// HasScale is set when Scale was declared explicitly, so that a
	// declared scale of 0 differs from the default.
	HasScale bool
}

// Col builds a column from a type string such as "NVARCHAR(50)" or
// "decimal(18,6)". It panics on an unknown type and is meant for fixtures.
func Col(name, sqlType string) Column {
	c, err := ParseColumn(name, sqlType)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseColumn builds a column from a SQL Server type string.
func ParseColumn(name, sqlType string) (Column, error) {
	baseType, length, precision, scale, hasScale := ParseType(sqlType)
	dt := DataType(baseType)
	if !IsValidType(dt) {
		return Column{}, fmt.Errorf("unsupported SQL Server type %q for column %s", sqlType, name)
	}

	c := Column{Name: name, Type: dt, Length: length}

	switch dt {
	case TypeDecimal, TypeNumeric:
		// DECIMAL(10) arrives as a length from ParseType
		if precision == 0 && length > 0 {
			precision = length
		}
		c.Length = 0
		c.Precision = precision
		c.Scale = scale
		c.HasScale = hasScale
	case TypeTime, TypeDateTime2, TypeDateTimeOffset:
		if length > 0 || strings.Contains(sqlType, "(") {
			c.Scale = length
			c.HasScale = true
		}
		c.Length = 0
	case TypeFloat:
		// FLOAT(n) with n <= 24 is a REAL
		if length > 0 && length <= 24 {
			c.Type = TypeReal
		}
		c.Length = 0
	}

	return c, nil
}

// ParseType parses a SQL Server type string and extracts its parameters.
// Examples:
//   - "INT" → ("INT", 0, 0, 0, false)
//   - "NVARCHAR(100)" → ("NVARCHAR", 100, 0, 0, false)
//   - "DECIMAL(18,2)" → ("DECIMAL", 0, 18, 2, true)
//   - "VARBINARY(MAX)" → ("VARBINARY", -1, 0, 0, false)
func ParseType(sqlType string) (baseType string, length, precision, scale int, hasScale bool) {
	sqlType = strings.ToUpper(strings.TrimSpace(sqlType))
	baseType = extractBaseType(sqlType)

	idx := strings.Index(sqlType, "(")
	if idx == -1 {
		return
	}
	paramsStr := strings.TrimSpace(strings.TrimSuffix(sqlType[idx+1:], ")"))

	if paramsStr == "MAX" {
		length = MaxLength
		return
	}

	if strings.Contains(paramsStr, ",") {
		parts := strings.Split(paramsStr, ",")
		if len(parts) == 2 {
			precision, _ = strconv.Atoi(strings.TrimSpace(parts[0]))
			scale, _ = strconv.Atoi(strings.TrimSpace(parts[1]))
			hasScale = true
		}
		return
	}

	length, _ = strconv.Atoi(paramsStr)
	return
}

func extractBaseType(sqlType string) string {
	if idx := strings.Index(sqlType, "("); idx != -1 {
		sqlType = sqlType[:idx]
	}
	return strings.TrimSpace(sqlType)
}

// EffectiveLength returns the declared length, resolving the implicit
// default of 1 for char/binary types declared without a length.
func (c Column) EffectiveLength() int {
	switch c.Type {
	case TypeChar, TypeVarChar, TypeNChar, TypeNVarChar, TypeBinary, TypeVarBinary:
		if c.Length == 0 {
			return 1
		}
		return c.Length
	default:
		return 0
	}
}

// EffectivePrecision returns the decimal precision, defaulting to 18.
func (c Column) EffectivePrecision() int {
	switch c.Type {
	case TypeMoney:
		return 19
	case TypeSmallMoney:
		return 10
	}
	if c.Precision == 0 {
		return DefaultDecimalPrecision
	}
	return c.Precision
}

// EffectiveScale returns the decimal scale, or the fractional seconds
// precision for time types.
func (c Column) EffectiveScale() int {
	switch c.Type {
	case TypeMoney, TypeSmallMoney:
		return 4
	case TypeTime, TypeDateTime2, TypeDateTimeOffset:
		if !c.HasScale {
			return DefaultFractionalScale
		}
		return c.Scale
	}
	return c.Scale
}

// SQLType renders the column type as it appears in DDL.
func (c Column) SQLType() string {
	switch c.Type {
	case TypeChar, TypeVarChar, TypeNChar, TypeNVarChar, TypeBinary, TypeVarBinary:
		switch {
		case c.Length == MaxLength:
			return fmt.Sprintf("%s(MAX)", c.Type)
		case c.Length > 0:
			return fmt.Sprintf("%s(%d)", c.Type, c.Length)
		}
		return string(c.Type)
	case TypeDecimal, TypeNumeric:
		return fmt.Sprintf("%s(%d,%d)", c.Type, c.EffectivePrecision(), c.Scale)
	case TypeTime, TypeDateTime2, TypeDateTimeOffset:
		if c.HasScale {
			return fmt.Sprintf("%s(%d)", c.Type, c.Scale)
		}
		return string(c.Type)
	default:
		return string(c.Type)
	}
}

// TableSpec is the caller-declared shape of a target table: the table name
// and the ordered list of columns every row must match.
type TableSpec struct {
	Table   string
	Columns []Column
}

// NewTableSpec builds a TableSpec.
func NewTableSpec(table string, columns ...Column) TableSpec {
	return TableSpec{Table: table, Columns: columns}
}

// ColumnNames returns the column names in declaration order.
func (s TableSpec) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// CreateTableSQL renders a CREATE TABLE statement guarded by OBJECT_ID so it
// can be replayed against an existing fixture database.
func (s TableSpec) CreateTableSQL() string {
	cols := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		cols[i] = fmt.Sprintf("[%s] %s NULL", c.Name, c.SQLType())
	}
	return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL\nCREATE TABLE %s (\n    %s\n)",
		strings.ReplaceAll(s.Table, "'", "''"), QuoteName(s.Table), strings.Join(cols, ",\n    "))
}

// QuoteName brackets a possibly schema-qualified identifier.
func QuoteName(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		p = strings.TrimSuffix(strings.TrimPrefix(p, "["), "]")
		parts[i] = "[" + strings.ReplaceAll(p, "]", "]]") + "]"
	}
	return strings.Join(parts, ".")
}

package schema

import (
	"strings"
	"testing"

	"github.com/golang-sql/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSpec(t *testing.T) {
	tests := []struct {
		name    string
		spec    TableSpec
		bulk    bool
		wantErr string
	}{
		{
			name: "valid",
			spec: NewTableSpec("t", Col("a", "int"), Col("b", "nvarchar(50)")),
		},
		{
			name:    "empty table",
			spec:    NewTableSpec(" ", Col("a", "int")),
			wantErr: "table name is empty",
		},
		{
			name:    "no columns",
			spec:    NewTableSpec("t"),
			wantErr: "has no columns",
		},
		{
			name:    "duplicate column",
			spec:    NewTableSpec("t", Col("a", "int"), Col("A", "bigint")),
			wantErr: "duplicate column name",
		},
		{
			name:    "unknown type",
			spec:    NewTableSpec("t", Column{Name: "a", Type: "GEOGRAPHY"}),
			wantErr: "unsupported type",
		},
		{
			name:    "text in bulk",
			spec:    NewTableSpec("t", Col("a", "text")),
			bulk:    true,
			wantErr: "cannot be bulk loaded",
		},
		{
			name:    "money in bulk",
			spec:    NewTableSpec("t", Col("a", "smallmoney"), Col("b", "money")),
			bulk:    true,
			wantErr: "cannot be bulk loaded",
		},
		{
			name: "money in scalar",
			spec: NewTableSpec("t", Col("a", "smallmoney"), Col("b", "money")),
		},
		{
			name: "text in scalar",
			spec: NewTableSpec("t", Col("a", "text"), Col("b", "xml")),
		},
		{
			name:    "precision out of range",
			spec:    NewTableSpec("t", Column{Name: "a", Type: TypeDecimal, Precision: 39}),
			wantErr: "precision must be between 1 and 38",
		},
		{
			name:    "scale above precision",
			spec:    NewTableSpec("t", Col("a", "decimal(4,6)")),
			wantErr: "scale must be between 0 and precision",
		},
		{
			name:    "fractional scale",
			spec:    NewTableSpec("t", Column{Name: "a", Type: TypeTime, Scale: 8, HasScale: true}),
			wantErr: "fractional seconds precision",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator()
			if tt.bulk {
				v = NewBulkValidator()
			}
			err := v.ValidateSpec(tt.spec)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateValue(t *testing.T) {
	tests := []struct {
		name    string
		col     Column
		val     Value
		wantErr bool
	}{
		{"null always fits", Col("c", "int"), Null(), false},
		{"int32 into int", Col("c", "int"), Int32(7), false},
		{"int64 into int", Col("c", "int"), Int64(7), true},
		{"float32 into real", Col("c", "real"), Float32(1.5), false},
		{"float64 into real", Col("c", "real"), Float64(1.5), true},
		{"ansi into varchar", Col("c", "varchar(5)"), AnsiString("abc"), false},
		{"ansi into nvarchar", Col("c", "nvarchar(5)"), AnsiString("abc"), true},
		{"varchar too long", Col("c", "varchar(2)"), String("abc"), true},
		{"varchar max", Col("c", "varchar(max)"), String(strings.Repeat("x", 9000)), false},
		{"char default length", Col("c", "char"), String("ab"), true},
		{"nchar counts utf16 units", Col("c", "nchar(2)"), String("🙂"), false},
		{"nchar surrogate overflow", Col("c", "nchar(3)"), String("🙂🙂"), true},
		{"binary too long", Col("c", "binary(1)"), Bytes([]byte{1, 2}), true},
		{"varbinary fits", Col("c", "varbinary(2)"), Bytes([]byte{1, 2}), false},
		{"decimal fits", Col("c", "decimal(18,6)"), MustDecimal("1.690601"), false},
		{"decimal rounds into scale", Col("c", "decimal(5,2)"), MustDecimal("123.004"), false},
		{"decimal too many digits", Col("c", "decimal(5,2)"), MustDecimal("1234.5"), true},
		{"decimal rounding overflows", Col("c", "decimal(3,0)"), MustDecimal("999.5"), true},
		{"money fits", Col("c", "money"), MustDecimal("701321588.2505"), false},
		{"smallmoney overflow", Col("c", "smallmoney"), MustDecimal("214748.3648"), true},
		{"smallmoney min", Col("c", "smallmoney"), MustDecimal("-214748.3648"), false},
		{
			"datetime before 1753", Col("c", "datetime"),
			DateTime(civil.DateTime{Date: civil.Date{Year: 1752, Month: 12, Day: 31}}), true,
		},
		{
			"smalldatetime after 2079", Col("c", "smalldatetime"),
			DateTime(civil.DateTime{Date: civil.Date{Year: 2079, Month: 6, Day: 7}}), true,
		},
		{
			"datetime2 early date", Col("c", "datetime2"),
			DateTime(civil.DateTime{Date: civil.Date{Year: 1, Month: 1, Day: 1}}), false,
		},
		{"date out of range", Col("c", "date"), Date(civil.Date{Year: 10000, Month: 1, Day: 1}), true},
		{"uuid into char", Col("c", "char(36)"), UUID([16]byte{}), true},
		{"accented text into varchar", Col("c", "varchar(10)"), String("café"), true},
		{"emoji into varchar max", Col("c", "varchar(max)"), String("CD 💿"), true},
		{"accented ansi into char", Col("c", "char(10)"), AnsiString("café"), true},
		{"accented ansi into text", Col("c", "text"), AnsiString("café"), true},
		{"ascii into text", Col("c", "text"), AnsiString("There is text data in the row"), false},
		{"accented text into nvarchar", Col("c", "nvarchar(10)"), String("café 💿"), false},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateValue(tt.val, tt.col)
			if tt.wantErr {
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, "c", verr.Column)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateRows(t *testing.T) {
	spec := NewTableSpec("t", Col("id", "int"), Col("name", "varchar(3)"))
	v := NewBulkValidator()

	rows := []Row{
		{Int32(1), String("ok")},
		{Int32(2)},
		{Int32(3), String("toolong")},
		{Int32(4), Null()},
	}

	err := v.ValidateRows(rows, spec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 errors occurred")
	assert.Contains(t, err.Error(), "row 2: column 't': row has 1 values but table has 2 columns")
	assert.Contains(t, err.Error(), "row 3: column 'name'")

	assert.NoError(t, v.ValidateRows(rows[:1], spec))
	assert.NoError(t, v.ValidateRows(nil, spec))
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Column: "c", Message: "bad"}
	assert.Equal(t, "column 'c': bad", err.Error())

	err = &ValidationError{Column: "c", Message: "bad", Value: "x"}
	assert.Equal(t, "column 'c': bad (value: 'x')", err.Error())

	long := strings.Repeat("é", 100)
	msg := truncateForMessage(long)
	assert.Equal(t, strings.Repeat("é", 64)+"...", msg)
}

func TestSingleByteErrorMessage(t *testing.T) {
	err := NewBulkValidator().ValidateValue(String("café 💿"), Col("c", "varchar(10)"))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, `non-ASCII character 'é' at byte 3`)
	assert.Contains(t, verr.Message, "VARCHAR(10)")
}

package mssql

import (
	"testing"
	"time"

	mssqldb "github.com/denisenkom/go-mssqldb"
	"github.com/golang-sql/civil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruslano69/mssql-typeload/pkg/core/schema"
)

func TestBulkValue(t *testing.T) {
	dto := time.Date(2024, 2, 29, 12, 30, 0, 0, time.FixedZone("", -5*3600))

	tests := []struct {
		name string
		col  string
		in   schema.Value
		want any
	}{
		{"null", "INT", schema.Null(), nil},
		{"bit", "BIT", schema.Bool(true), true},
		{"tinyint", "TINYINT", schema.Uint8(255), int64(255)},
		{"smallint", "SMALLINT", schema.Int16(-1), int64(-1)},
		{"int", "INT", schema.Int32(7), int64(7)},
		{"bigint", "BIGINT", schema.Int64(1 << 40), int64(1 << 40)},
		{"float", "FLOAT", schema.Float64(1.25), 1.25},
		{"real", "REAL", schema.Float32(0.5), 0.5},
		{"numeric", "NUMERIC(18,0)", schema.MustDecimal("30024"), "30024"},
		{"decimal scale", "DECIMAL(18,6)", schema.MustDecimal("1.690601"), "1.690601"},
		{"decimal pad", "DECIMAL(18,4)", schema.MustDecimal("4.3"), "4.3000"},
		{"decimal round", "DECIMAL(10,2)", schema.MustDecimal("1.005"), "1.01"},
		{"varchar", "VARCHAR(50)", schema.AnsiString("Floppy: 1"), "Floppy: 1"},
		{"nvarchar", "NVARCHAR(MAX)", schema.String("SSD 🗄️: 1"), "SSD 🗄️: 1"},
		{"varbinary", "VARBINARY(100)", schema.Bytes([]byte("T")), []byte("T")},
		{"date", "DATE", schema.Date(civil.Date{Year: 2023, Month: 6, Day: 30}),
			time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC)},
		{"time", "TIME", schema.Time(civil.Time{Hour: 1, Minute: 2, Second: 3, Nanosecond: 400}),
			time.Date(1, 1, 1, 1, 2, 3, 400, time.UTC)},
		{"datetime2", "DATETIME2", schema.DateTime(civil.DateTime{
			Date: civil.Date{Year: 2022, Month: 8, Day: 1}, Time: civil.Time{Second: 59}}),
			time.Date(2022, 8, 1, 0, 0, 59, 0, time.UTC)},
		{"smalldatetime", "SMALLDATETIME", schema.DateTime(civil.DateTime{
			Date: civil.Date{Year: 2023, Month: 10, Day: 1}, Time: civil.Time{Minute: 5, Second: 31}}),
			time.Date(2023, 10, 1, 0, 6, 0, 0, time.UTC)},
		{"datetimeoffset", "DATETIMEOFFSET", schema.DateTimeOffset(dto), dto},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := bulkValue(schema.Col("c", tt.col), tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBulkValue_UniqueIdentifier(t *testing.T) {
	u := uuid.MustParse("00112233-4455-6677-8899-aabbccddeeff")

	got, err := bulkValue(schema.Col("c", "UNIQUEIDENTIFIER"), schema.UUID(u))
	require.NoError(t, err)

	want := []byte{0x33, 0x22, 0x11, 0x00, 0x55, 0x44, 0x77, 0x66,
		0x88, 0x99, 0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	assert.Equal(t, want, got)
}

func TestBulkValue_UnsupportedType(t *testing.T) {
	_, err := bulkValue(schema.Col("c", "XML"), schema.String("<a/>"))
	assert.Error(t, err)

	for _, col := range []string{"MONEY", "SMALLMONEY"} {
		_, err := bulkValue(schema.Col("c", col), schema.MustDecimal("701321588.2505"))
		assert.ErrorContains(t, err, "cannot be bulk loaded", col)
	}
}

func TestTickAligned(t *testing.T) {
	day := time.Date(2022, 8, 1, 0, 0, 0, 0, time.UTC)

	for _, ns := range []int64{0, 1, 7, 1_666_666, 1_666_667, 3_333_333, 5_000_000, 59_999_999_999, 86_399_998_333_333} {
		in := day.Add(time.Duration(ns))
		ticks := (ns*300 + 500_000_000) / 1_000_000_000

		out := tickAligned(in)
		got := int64(out.Sub(day))

		// truncating and rounding encoders agree on the tick
		assert.Equal(t, ticks, got*300/1_000_000_000, "truncated tick for %d", ns)
		assert.Equal(t, ticks, (got*300+500_000_000)/1_000_000_000, "rounded tick for %d", ns)
	}
}

func TestTickAligned_MatchesCanonical(t *testing.T) {
	col := schema.Col("c", "DATETIME")
	in := civil.DateTime{Date: civil.Date{Year: 2022, Month: 8, Day: 1}, Time: civil.Time{Second: 7, Nanosecond: 7_000_000}}

	sent := tickAligned(in.In(time.UTC))
	// the driver reads ticks back as rounded milliseconds
	ticks := int64(sent.Sub(time.Date(2022, 8, 1, 0, 0, 7, 0, time.UTC))) * 300 / 1_000_000_000
	ms := (ticks*10 + 1) / 3
	read := civil.DateTime{Date: in.Date, Time: civil.Time{Second: 7, Nanosecond: int(ms) * 1_000_000}}

	assert.True(t, schema.Equal(schema.Canonical(col, schema.DateTime(in)), schema.Canonical(col, schema.DateTime(read))))
}

func TestParamValue(t *testing.T) {
	u := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	d := civil.Date{Year: 2023, Month: 6, Day: 30}

	assert.Nil(t, paramValue(schema.Null()))
	assert.Equal(t, true, paramValue(schema.Bool(true)))
	assert.Equal(t, int64(42), paramValue(schema.Uint8(42)))
	assert.Equal(t, float32(1.5), paramValue(schema.Float32(1.5)))
	assert.Equal(t, 2.5, paramValue(schema.Float64(2.5)))
	assert.Equal(t, "701321588.2505", paramValue(schema.MustDecimal("701321588.2505")))
	assert.Equal(t, "text", paramValue(schema.String("text")))
	assert.Equal(t, mssqldb.VarChar("ansi"), paramValue(schema.AnsiString("ansi")))
	assert.Equal(t, []byte{1, 5}, paramValue(schema.Bytes([]byte{1, 5})))
	assert.Equal(t, mssqldb.UniqueIdentifier(u), paramValue(schema.UUID(u)))
	assert.Equal(t, d, paramValue(schema.Date(d)))
}

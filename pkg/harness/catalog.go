package harness

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ruslano69/mssql-typeload/pkg/core/schema"
)

// Default row counts.
const (
	DefaultRows              = 1000000
	DefaultBitRows           = 100000
	DefaultSmallDateTimeRows = 10000
)

// guidSeed is xored with the row number to build distinct identifiers.
var guidSeed = uuid.MustParse("bf3ba35b-44de-49dc-86ea-f1b5c69bcc8e")

// xmlSample is the document loaded by the xml case.
const xmlSample = `<calculator>
    <hex base="16">163</hex>
    <dec base="10">355</dec>
    <oct base="8">543</oct>
    <bin base="2">0001 0110 0011</bin>
</calculator>`

// Fixture tables.
var (
	bitTable = schema.NewTableSpec("random_bit",
		schema.Col("a_bit_column", "BIT"),
	)

	floatTable = schema.NewTableSpec("random_float",
		schema.Col("a_float_column", "FLOAT"),
		schema.Col("a_real_column", "REAL"),
	)

	integerTable = schema.NewTableSpec("random_integer",
		schema.Col("a_tinyint_column", "TINYINT"),
		schema.Col("a_smallint_column", "SMALLINT"),
		schema.Col("a_int_column", "INT"),
		schema.Col("a_bigint_column", "BIGINT"),
	)

	decimalTable = schema.NewTableSpec("random_decimal",
		schema.Col("a_numeric_column", "NUMERIC(18,0)"),
		schema.Col("a_decimal_column", "DECIMAL(18,0)"),
	)

	stringTable = schema.NewTableSpec("random_string",
		schema.Col("a_char_column", "CHAR(30)"),
		schema.Col("a_nchar_column", "NCHAR(30)"),
		schema.Col("a_varchar_column", "VARCHAR(50)"),
		schema.Col("a_varchar_max_column", "VARCHAR(MAX)"),
		schema.Col("a_nvarchar_column", "NVARCHAR(50)"),
		schema.Col("a_nvarchar_max_column", "NVARCHAR(MAX)"),
	)

	binaryTable = schema.NewTableSpec("random_binary",
		schema.Col("a_binary_column", "BINARY(1)"),
		schema.Col("a_binary_specific_column", "BINARY(2)"),
		schema.Col("a_varbinary_column", "VARBINARY(1)"),
		schema.Col("a_varbinary_specific_column", "VARBINARY(100)"),
		schema.Col("a_varbinary_max_column", "VARBINARY(MAX)"),
	)

	guidTable = schema.NewTableSpec("random_guid",
		schema.Col("a_uniqueidentifier_column", "UNIQUEIDENTIFIER"),
	)

	datetimeTable = schema.NewTableSpec("random_datetime",
		schema.Col("a_datetime_column", "DATETIME"),
	)

	datetime2Table = schema.NewTableSpec("random_datetime2",
		schema.Col("a_datetime2_column", "DATETIME2"),
	)

	datetimeOffsetTable = schema.NewTableSpec("random_datetimeoffset",
		schema.Col("a_datetimeoffset_column", "DATETIMEOFFSET"),
	)

	smallDateTimeTable = schema.NewTableSpec("random_smalldatetime",
		schema.Col("a_smalldatetime_column", "SMALLDATETIME"),
	)

	timeTable = schema.NewTableSpec("random_time",
		schema.Col("a_time_column", "TIME"),
	)

	severalColumnsTable = schema.NewTableSpec("random_data_several_columns",
		schema.Col("a_bit_column", "BIT"),
		schema.Col("a_float_column", "FLOAT"),
		schema.Col("a_tinyint_column", "TINYINT"),
		schema.Col("a_smallint_column", "SMALLINT"),
		schema.Col("a_int_column", "INT"),
		schema.Col("a_bigint_column", "BIGINT"),
		schema.Col("a_numeric_column", "NUMERIC(18,0)"),
		schema.Col("a_decimal_column", "DECIMAL(18,0)"),
		schema.Col("a_char_column", "CHAR(30)"),
		schema.Col("a_nchar_column", "NCHAR(30)"),
		schema.Col("a_varchar_column", "VARCHAR(50)"),
		schema.Col("a_nvarchar_column", "NVARCHAR(50)"),
		schema.Col("a_binary_column", "BINARY(4)"),
		schema.Col("a_varbinary_column", "VARBINARY(50)"),
		schema.Col("a_uniqueidentifier_column", "UNIQUEIDENTIFIER"),
		schema.Col("a_datetimeoffset_column", "DATETIMEOFFSET"),
	)

	moneyTable = schema.NewTableSpec("random_money",
		schema.Col("a_smallmoney_column", "SMALLMONEY"),
		schema.Col("a_money_column", "MONEY"),
	)

	textImageTable = schema.NewTableSpec("random_text_image",
		schema.Col("a_text_column", "TEXT"),
		schema.Col("a_ntext_column", "NTEXT"),
		schema.Col("a_image_column", "IMAGE"),
	)

	xmlTable = schema.NewTableSpec("random_xml",
		schema.Col("a_xml_column", "XML"),
	)

	dateTable = schema.NewTableSpec("random_date",
		schema.Col("a_date_column", "DATE"),
	)

	datetimeDatetime2Table = schema.NewTableSpec("random_datetime_datetime2",
		schema.Col("a_datetime_column", "DATETIME"),
		schema.Col("a_datetime2_column", "DATETIME2"),
	)

	precisionDecimalTable = schema.NewTableSpec("random_precision_decimal",
		schema.Col("a_numeric_precision_column", "NUMERIC(18,6)"),
		schema.Col("a_decimal_precision_column", "DECIMAL(18,4)"),
	)

	unicodeTextTable = schema.NewTableSpec("random_unicode_text",
		schema.Col("a_nvarchar_column", "NVARCHAR(100)"),
		schema.Col("a_nvarchar_max_column", "NVARCHAR(MAX)"),
	)
)

// Catalog returns every case, bulk cases first, in a stable order.
func Catalog() []Case {
	return []Case{
		BulkCase("bit", bitTable, DefaultBitRows, bitRow),
		BulkCase("float", floatTable, DefaultRows, floatRow),
		BulkCase("integer", integerTable, DefaultRows, integerRow),
		BulkCase("decimal", decimalTable, DefaultRows, decimalRow),
		BulkCase("string", stringTable, DefaultRows, stringRow),
		BulkCase("binary", binaryTable, DefaultRows, binaryRow),
		BulkCase("guid", guidTable, DefaultRows, guidRow),
		BulkCase("datetime", datetimeTable, DefaultRows, datetimeRow),
		BulkCase("datetime2", datetime2Table, DefaultRows, datetime2Row),
		BulkCase("datetimeoffset", datetimeOffsetTable, DefaultRows, datetimeOffsetRow),
		BulkCase("smalldatetime", smallDateTimeTable, DefaultSmallDateTimeRows, smallDateTimeRow),
		BulkCase("time", timeTable, DefaultRows, timeRow),
		BulkCase("several_columns", severalColumnsTable, DefaultRows, severalColumnsRow),
		BulkCase("empty", bitTable, 0, bitRow),

		ConnectCase("connect"),
		ExecCase("money", moneyTable,
			schema.MustDecimal("1316"),
			schema.MustDecimal("701321588.2505"),
		),
		ExecCase("text_image", textImageTable,
			schema.AnsiString("There is text data in the row"),
			schema.String("There is ntext data in the row"),
			schema.Bytes([]byte{1, 5}),
		),
		ExecCase("xml", xmlTable,
			schema.String(xmlSample),
		),
		ExecCase("date", dateTable,
			schema.Date(civil.Date{Year: 2023, Month: time.June, Day: 30}),
		),
		ExecCase("datetime_datetime2", datetimeDatetime2Table,
			schema.DateTime(civil.DateTimeOf(time.UnixMilli(126000).UTC())),
			schema.DateTime(civil.DateTimeOf(time.UnixMilli(231688).UTC())),
		),
		ExecCase("precision_decimal", precisionDecimalTable,
			schema.Decimal(decimal.New(1690601, -6)),
			schema.Decimal(decimal.New(0xABCD, -4)),
		),
		ExecCase("unicode_text", unicodeTextTable,
			schema.String("SSD 🗄️ and CD 💿"),
			schema.String("Solid State Drive 1 is faster than hard disk 💽 1"),
		),
	}
}

// Tables returns the distinct fixture tables of cases in first-seen order.
func Tables(cases []Case) []schema.TableSpec {
	seen := make(map[string]bool)
	var specs []schema.TableSpec
	for _, c := range cases {
		if !c.HasTable() || seen[c.Spec.Table] {
			continue
		}
		seen[c.Spec.Table] = true
		specs = append(specs, c.Spec)
	}
	return specs
}

// Select returns the named cases in catalog order. No names selects all.
func Select(catalog []Case, names ...string) ([]Case, error) {
	if len(names) == 0 {
		return catalog, nil
	}

	byName := make(map[string]bool, len(names))
	for _, n := range names {
		byName[n] = true
	}

	var selected []Case
	for _, c := range catalog {
		if byName[c.Name] {
			selected = append(selected, c)
			delete(byName, c.Name)
		}
	}

	if len(byName) > 0 {
		unknown := make([]string, 0, len(byName))
		for n := range byName {
			unknown = append(unknown, n)
		}
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown cases: %v", unknown)
	}

	return selected, nil
}

// ========== Row generators ==========

func bitRow(i int) schema.Row {
	return schema.Row{schema.Bool(i%2 == 1)}
}

func floatRow(i int) schema.Row {
	return schema.Row{
		schema.Float64(float64(i)),
		schema.Float32(float32(i)),
	}
}

func integerRow(i int) schema.Row {
	return schema.Row{
		schema.Uint8(uint8(i)),
		schema.Int16(int16(i)),
		schema.Int32(int32(i)),
		schema.Int64(int64(i)),
	}
}

func decimalRow(i int) schema.Row {
	return schema.Row{
		schema.Decimal(decimal.NewFromInt(int64(i))),
		schema.Decimal(decimal.NewFromInt(int64(i))),
	}
}

func stringRow(i int) schema.Row {
	n := strconv.Itoa(i)
	return schema.Row{
		schema.String("Hard disk : " + n),
		schema.String("CD 💿: " + n),
		schema.AnsiString("Floppy: " + n),
		schema.AnsiString("Floppy " + n + " is no longer used nowadays."),
		schema.String("SSD 🗄️: " + n),
		schema.String("Solid State Drive " + n + " is faster than hard disk 💽 " + n),
	}
}

func binaryRow(i int) schema.Row {
	return schema.Row{
		schema.Bytes([]byte{10}),
		schema.Bytes([]byte{10, 20}),
		schema.Bytes([]byte("T")),
		schema.Bytes([]byte("There is varbinary data in the row: " + strconv.Itoa(i))),
		schema.Bytes(int32LE(i)),
	}
}

func guidRow(i int) schema.Row {
	return schema.Row{schema.UUID(seededGUID(guidSeed, uint64(i)))}
}

func datetimeRow(i int) schema.Row {
	return schema.Row{schema.DateTime(civil.DateTime{
		Date: civil.Date{Year: 2022, Month: time.August, Day: 1},
		Time: civil.Time{Second: i % 60, Nanosecond: i},
	})}
}

func datetime2Row(i int) schema.Row {
	return schema.Row{schema.DateTime(civil.DateTime{
		Date: civil.Date{Year: 2022, Month: time.August, Day: 1},
		Time: civil.Time{Second: i % 60},
	})}
}

// offsetBase is the first instant of the datetimeoffset rows.
var offsetBase = time.Date(2024, time.January, 15, 8, 30, 0, 0, time.UTC)

func datetimeOffsetRow(i int) schema.Row {
	// offsets cycle through -12:00..+14:00 in whole hours
	zone := time.FixedZone("", (i%27-12)*3600)
	t := offsetBase.Add(time.Duration(i) * time.Microsecond).In(zone)
	return schema.Row{schema.DateTimeOffset(t)}
}

func smallDateTimeRow(i int) schema.Row {
	return schema.Row{schema.DateTime(civil.DateTime{
		Date: civil.Date{Year: 2023, Month: time.October, Day: 1},
		Time: civil.Time{Second: i % 60},
	})}
}

func timeRow(i int) schema.Row {
	return schema.Row{schema.Time(civil.Time{Second: i % 60})}
}

var (
	severalNumeric = decimal.NewFromInt(30024)
	severalDecimal = decimal.NewFromInt(29540577)
)

func severalColumnsRow(i int) schema.Row {
	n := strconv.Itoa(i)
	return schema.Row{
		schema.Bool(i%3 == 0),
		schema.Float64(float64(i + 1)),
		schema.Uint8(uint8(i)),
		schema.Int16(-1),
		schema.Int32(int32(i + 4)),
		schema.Int64(int64(i + 5)),
		schema.Decimal(severalNumeric),
		schema.Decimal(severalDecimal),
		schema.String(n + " strawberry"),
		schema.String(n + " blueberry 🫐"),
		schema.AnsiString(n + " kiwi"),
		schema.String(n + " tangerine 🍊"),
		schema.Bytes(int32LE(i)),
		schema.Bytes(int32LE(i)),
		schema.UUID(seededGUID(uuid.UUID{}, uint64(i))),
		schema.DateTimeOffset(offsetBase),
	}
}

func int32LE(i int) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(int32(i)))
	return b
}

// seededGUID xors n into the low 64 bits of seed, read as a big-endian
// 128-bit number.
func seededGUID(seed uuid.UUID, n uint64) uuid.UUID {
	u := seed
	low := binary.BigEndian.Uint64(u[8:]) ^ n
	binary.BigEndian.PutUint64(u[8:], low)
	return u
}

package mssql

import (
	"fmt"
	"time"

	mssqldb "github.com/denisenkom/go-mssqldb"

	"github.com/ruslano69/mssql-typeload/pkg/core/schema"
)

// bulkValue converts a validated value into what the driver's bulk copy
// encoder accepts for the column type.
//
//	bit                      bool
//	tinyint..bigint          int64
//	float, real              float64 (narrowed by the driver for real)
//	decimal, numeric         fixed-scale string
//	char..nvarchar           string
//	binary, varbinary        []byte
//	uniqueidentifier         []byte in wire order
//	date/time family         time.Time
func bulkValue(col schema.Column, v schema.Value) (any, error) {
	if v.IsNull() {
		return nil, nil
	}

	switch col.Type {
	case schema.TypeBit:
		return v.AsBool(), nil

	case schema.TypeTinyInt, schema.TypeSmallInt, schema.TypeInt, schema.TypeBigInt:
		return v.AsInt64(), nil

	case schema.TypeFloat, schema.TypeReal:
		return v.AsFloat64(), nil

	case schema.TypeDecimal, schema.TypeNumeric:
		scale := int32(col.EffectiveScale())
		return v.AsDecimal().Round(scale).StringFixed(scale), nil

	case schema.TypeChar, schema.TypeVarChar, schema.TypeNChar, schema.TypeNVarChar:
		return v.AsString(), nil

	case schema.TypeBinary, schema.TypeVarBinary:
		return v.AsBytes(), nil

	case schema.TypeUniqueIdentifier:
		return guidBytes(v), nil

	case schema.TypeDate:
		return v.AsDate().In(time.UTC), nil

	case schema.TypeTime:
		t := v.AsTime()
		return time.Date(1, time.January, 1, t.Hour, t.Minute, t.Second, t.Nanosecond, time.UTC), nil

	case schema.TypeDateTime:
		return tickAligned(v.AsDateTime().In(time.UTC)), nil

	case schema.TypeSmallDateTime:
		return v.AsDateTime().In(time.UTC).Round(time.Minute), nil

	case schema.TypeDateTime2:
		return v.AsDateTime().In(time.UTC), nil

	case schema.TypeDateTimeOffset:
		return v.AsTimeOffset(), nil
	}

	return nil, fmt.Errorf("column %s: type %s cannot be bulk loaded", col.Name, col.Type)
}

// paramValue converts a value into a statement parameter. The server
// converts it to the column type of the target expression.
func paramValue(v schema.Value) any {
	switch v.Kind() {
	case schema.KindNull:
		return nil
	case schema.KindBool:
		return v.AsBool()
	case schema.KindUint8, schema.KindInt16, schema.KindInt32, schema.KindInt64:
		return v.AsInt64()
	case schema.KindFloat32:
		return float32(v.AsFloat64())
	case schema.KindFloat64:
		return v.AsFloat64()
	case schema.KindDecimal:
		// exact text, converted by the server without float rounding
		return v.AsDecimal().String()
	case schema.KindString:
		return v.AsString()
	case schema.KindAnsiString:
		return mssqldb.VarChar(v.AsString())
	case schema.KindBytes:
		return v.AsBytes()
	case schema.KindUUID:
		return mssqldb.UniqueIdentifier(v.AsUUID())
	case schema.KindDate:
		return v.AsDate()
	case schema.KindTime:
		return v.AsTime()
	case schema.KindDateTime:
		return v.AsDateTime()
	case schema.KindDateTimeOffset:
		return v.AsTimeOffset()
	default:
		return v.Interface()
	}
}

// guidBytes returns the uniqueidentifier wire layout: the first three
// groups little-endian, the rest as is.
func guidBytes(v schema.Value) []byte {
	b, _ := mssqldb.UniqueIdentifier(v.AsUUID()).Value()
	return b.([]byte)
}

// tickAligned moves t to the start of its nearest 1/300 second datetime
// tick. Encoders that truncate and encoders that round both land on that
// tick, which is also the value read back.
func tickAligned(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	ns := int64(t.Sub(day))
	ticks := (ns*300 + 500_000_000) / 1_000_000_000
	return day.Add(time.Duration((ticks*1_000_000_000 + 299) / 300))
}

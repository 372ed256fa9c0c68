package schema

import (
	"fmt"
	"time"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind is the Go-side type of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindUint8
	KindInt16
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindDecimal
	KindString
	KindAnsiString
	KindBytes
	KindUUID
	KindDate
	KindTime
	KindDateTime
	KindDateTimeOffset
)

var kindNames = [...]string{
	KindNull:           "null",
	KindBool:           "bool",
	KindUint8:          "uint8",
	KindInt16:          "int16",
	KindInt32:          "int32",
	KindInt64:          "int64",
	KindFloat32:        "float32",
	KindFloat64:        "float64",
	KindDecimal:        "decimal",
	KindString:         "string",
	KindAnsiString:     "ansi string",
	KindBytes:          "bytes",
	KindUUID:           "uuid",
	KindDate:           "date",
	KindTime:           "time",
	KindDateTime:       "datetime",
	KindDateTimeOffset: "datetimeoffset",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Value is one nullable typed cell of a Row.
//
// The zero Value is NULL. Values are built with the constructor functions
// below, which fix the payload type for each Kind.
type Value struct {
	kind Kind
	v    any
}

// Row is an ordered tuple of values matching a TableSpec.
type Row []Value

// Null returns a NULL value.
func Null() Value { return Value{} }

func Bool(v bool) Value                { return Value{KindBool, v} }
func Uint8(v uint8) Value              { return Value{KindUint8, int64(v)} }
func Int16(v int16) Value              { return Value{KindInt16, int64(v)} }
func Int32(v int32) Value              { return Value{KindInt32, int64(v)} }
func Int64(v int64) Value              { return Value{KindInt64, v} }
func Float32(v float32) Value          { return Value{KindFloat32, float64(v)} }
func Float64(v float64) Value          { return Value{KindFloat64, v} }
func Decimal(v decimal.Decimal) Value  { return Value{KindDecimal, v} }
func String(v string) Value            { return Value{KindString, v} }
func AnsiString(v string) Value        { return Value{KindAnsiString, v} }
func UUID(v uuid.UUID) Value           { return Value{KindUUID, v} }
func Date(v civil.Date) Value          { return Value{KindDate, v} }
func Time(v civil.Time) Value          { return Value{KindTime, v} }
func DateTime(v civil.DateTime) Value  { return Value{KindDateTime, v} }
func DateTimeOffset(v time.Time) Value { return Value{KindDateTimeOffset, v} }
func Bytes(v []byte) Value {
	if v == nil {
		v = []byte{}
	}
	return Value{KindBytes, v}
}

// MustDecimal parses a decimal literal and panics on error. For fixtures.
func MustDecimal(s string) Value {
	return Decimal(decimal.RequireFromString(s))
}

// Kind returns the value kind; KindNull for NULL.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is NULL.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Interface returns the payload: bool, int64 (all integer kinds),
// float64 (both float kinds), decimal.Decimal, string, []byte, uuid.UUID,
// civil.Date, civil.Time, civil.DateTime or time.Time. NULL returns nil.
func (v Value) Interface() any { return v.v }

func (v Value) AsBool() bool               { b, _ := v.v.(bool); return b }
func (v Value) AsInt64() int64             { i, _ := v.v.(int64); return i }
func (v Value) AsFloat64() float64         { f, _ := v.v.(float64); return f }
func (v Value) AsDecimal() decimal.Decimal { d, _ := v.v.(decimal.Decimal); return d }
func (v Value) AsString() string           { s, _ := v.v.(string); return s }
func (v Value) AsBytes() []byte            { b, _ := v.v.([]byte); return b }
func (v Value) AsUUID() uuid.UUID          { u, _ := v.v.(uuid.UUID); return u }
func (v Value) AsDate() civil.Date         { d, _ := v.v.(civil.Date); return d }
func (v Value) AsTime() civil.Time         { t, _ := v.v.(civil.Time); return t }
func (v Value) AsDateTime() civil.DateTime { dt, _ := v.v.(civil.DateTime); return dt }
func (v Value) AsTimeOffset() time.Time    { t, _ := v.v.(time.Time); return t }

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindBytes:
		return fmt.Sprintf("0x%X", v.AsBytes())
	case KindDateTimeOffset:
		return v.AsTimeOffset().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v.v)
	}
}

// Accepts reports whether a value of kind k may be stored in a column of
// type t without coercion.
func Accepts(t DataType, k Kind) bool {
	if k == KindNull {
		return true
	}
	switch t {
	case TypeBit:
		return k == KindBool
	case TypeTinyInt:
		return k == KindUint8
	case TypeSmallInt:
		return k == KindInt16
	case TypeInt:
		return k == KindInt32
	case TypeBigInt:
		return k == KindInt64
	case TypeFloat:
		return k == KindFloat64
	case TypeReal:
		return k == KindFloat32
	case TypeDecimal, TypeNumeric, TypeMoney, TypeSmallMoney:
		return k == KindDecimal
	case TypeChar, TypeVarChar, TypeText:
		return k == KindString || k == KindAnsiString
	case TypeNChar, TypeNVarChar, TypeNText, TypeXML:
		return k == KindString
	case TypeBinary, TypeVarBinary, TypeImage:
		return k == KindBytes
	case TypeUniqueIdentifier:
		return k == KindUUID
	case TypeDate:
		return k == KindDate
	case TypeTime:
		return k == KindTime
	case TypeDateTime, TypeDateTime2, TypeSmallDateTime:
		return k == KindDateTime
	case TypeDateTimeOffset:
		return k == KindDateTimeOffset
	default:
		return false
	}
}

package schema

import (
	"bytes"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/golang-sql/civil"
)

// Canonical maps a value to the form the column actually stores, so that a
// value sent to the server and the value read back compare equal.
//
//   - real: float32 precision
//   - decimal/numeric: rounded to the column scale; money types to scale 4
//   - datetime: rounded to the nearest 1/300 second tick, as read back
//     (millisecond resolution)
//   - smalldatetime: nearest minute
//   - time, datetime2, datetimeoffset: truncated to the fractional precision
//   - char/nchar: trailing blanks removed; binary(n): zero padded to n
//   - char/varchar/text: ANSI strings become plain strings
//   - xml: whitespace between tags removed, as the server stores it
func Canonical(col Column, v Value) Value {
	if v.IsNull() {
		return v
	}

	switch col.Type {
	case TypeReal:
		return Float32(float32(v.AsFloat64()))

	case TypeDecimal, TypeNumeric, TypeMoney, TypeSmallMoney:
		return Decimal(v.AsDecimal().Round(int32(col.EffectiveScale())))

	case TypeChar, TypeNChar:
		return String(strings.TrimRight(v.AsString(), " "))

	case TypeVarChar, TypeText:
		return String(v.AsString())

	case TypeXML:
		return String(xmlTagGap.ReplaceAllString(strings.TrimSpace(v.AsString()), "><"))

	case TypeBinary:
		b := v.AsBytes()
		if n := col.EffectiveLength(); len(b) < n {
			padded := make([]byte, n)
			copy(padded, b)
			return Bytes(padded)
		}
		return v

	case TypeDateTime:
		return DateTime(roundDateTimeTicks(v.AsDateTime()))

	case TypeSmallDateTime:
		t := v.AsDateTime().In(time.UTC).Round(time.Minute)
		return DateTime(civil.DateTimeOf(t))

	case TypeDateTime2:
		unit := fractionalUnit(col.EffectiveScale())
		t := v.AsDateTime().In(time.UTC).Truncate(unit)
		return DateTime(civil.DateTimeOf(t))

	case TypeTime:
		tm := v.AsTime()
		unit := int(fractionalUnit(col.EffectiveScale()))
		tm.Nanosecond -= tm.Nanosecond % unit
		return Time(tm)

	case TypeDateTimeOffset:
		t := v.AsTimeOffset()
		_, offset := t.Zone()
		t = t.Truncate(fractionalUnit(col.EffectiveScale()))
		return DateTimeOffset(t.In(time.FixedZone("", offset)))
	}

	return v
}

var xmlTagGap = regexp.MustCompile(`>\s+<`)

// CanonicalRow applies Canonical to every value of a row.
func CanonicalRow(spec TableSpec, row Row) Row {
	out := make(Row, len(row))
	for i, v := range row {
		if i < len(spec.Columns) {
			out[i] = Canonical(spec.Columns[i], v)
		} else {
			out[i] = v
		}
	}
	return out
}

// Equal reports whether two values are identical in kind and payload.
// Compare canonical values to get round-trip equality.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}

	switch a.kind {
	case KindNull:
		return true
	case KindFloat32, KindFloat64:
		fa, fb := a.AsFloat64(), b.AsFloat64()
		return fa == fb || (math.IsNaN(fa) && math.IsNaN(fb))
	case KindDecimal:
		return a.AsDecimal().Equal(b.AsDecimal())
	case KindBytes:
		return bytes.Equal(a.AsBytes(), b.AsBytes())
	case KindDateTimeOffset:
		ta, tb := a.AsTimeOffset(), b.AsTimeOffset()
		_, oa := ta.Zone()
		_, ob := tb.Zone()
		return ta.Equal(tb) && oa == ob
	default:
		return a.v == b.v
	}
}

// EqualRows compares two rows value by value after canonicalisation.
// It returns the index of the first differing column, or -1.
func EqualRows(spec TableSpec, a, b Row) int {
	if len(a) != len(b) {
		return min(len(a), len(b))
	}
	for i := range a {
		col := spec.Columns[i]
		if !Equal(Canonical(col, a[i]), Canonical(col, b[i])) {
			return i
		}
	}
	return -1
}

// fractionalUnit returns the resolution of a time type with n fractional
// digits: 10^(9-n) nanoseconds.
func fractionalUnit(n int) time.Duration {
	if n < 0 || n > 7 {
		n = DefaultFractionalScale
	}
	unit := time.Duration(1)
	for i := 0; i < 9-n; i++ {
		unit *= 10
	}
	return unit
}

// roundDateTimeTicks rounds to the datetime resolution of 1/300 second and
// returns the millisecond value the server reports for that tick.
func roundDateTimeTicks(dt civil.DateTime) civil.DateTime {
	t := dt.In(time.UTC)
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	ns := int64(t.Sub(day))

	ticks := (ns*300 + 500_000_000) / 1_000_000_000
	secs := ticks / 300
	ms := (ticks%300*10 + 1) / 3

	return civil.DateTimeOf(day.Add(time.Duration(secs)*time.Second + time.Duration(ms)*time.Millisecond))
}

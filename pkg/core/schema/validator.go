package schema

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/golang-sql/civil"
	"github.com/hashicorp/go-multierror"
	"github.com/shopspring/decimal"
)

// ValidationError reports a value or spec that does not fit the table.
type ValidationError struct {
	Column  string
	Message string
	Value   string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("column '%s': %s", e.Column, e.Message)
	}
	return fmt.Sprintf("column '%s': %s (value: '%s')", e.Column, e.Message, e.Value)
}

var (
	smallMoneyMax = decimal.RequireFromString("214748.3647")
	smallMoneyMin = decimal.RequireFromString("-214748.3648")
	moneyMax      = decimal.RequireFromString("922337203685477.5807")
	moneyMin      = decimal.RequireFromString("-922337203685477.5808")

	dateTimeMin      = civil.Date{Year: 1753, Month: 1, Day: 1}
	smallDateTimeMin = civil.Date{Year: 1900, Month: 1, Day: 1}
	smallDateTimeMax = civil.DateTime{
		Date: civil.Date{Year: 2079, Month: 6, Day: 6},
		Time: civil.Time{Hour: 23, Minute: 59},
	}
)

// Validator checks table specs and rows before they reach the driver.
type Validator struct {
	// Bulk restricts specs to column types the bulk copy stream can carry.
	Bulk bool
}

// NewValidator creates a validator for scalar statements.
func NewValidator() *Validator {
	return &Validator{}
}

// NewBulkValidator creates a validator for bulk sessions.
func NewBulkValidator() *Validator {
	return &Validator{Bulk: true}
}

// ValidateSpec checks that a table spec is well formed.
func (v *Validator) ValidateSpec(spec TableSpec) error {
	if strings.TrimSpace(spec.Table) == "" {
		return &ValidationError{Column: "", Message: "table name is empty"}
	}
	if len(spec.Columns) == 0 {
		return &ValidationError{Column: "", Message: fmt.Sprintf("table %s has no columns", spec.Table)}
	}

	seen := make(map[string]bool, len(spec.Columns))
	for i, c := range spec.Columns {
		if c.Name == "" {
			return &ValidationError{Column: fmt.Sprintf("#%d", i+1), Message: "empty column name"}
		}
		key := strings.ToLower(c.Name)
		if seen[key] {
			return &ValidationError{Column: c.Name, Message: "duplicate column name"}
		}
		seen[key] = true

		if !IsValidType(c.Type) {
			return &ValidationError{Column: c.Name, Message: fmt.Sprintf("unsupported type %s", c.Type)}
		}
		if v.Bulk && !IsBulkType(c.Type) {
			return &ValidationError{Column: c.Name, Message: fmt.Sprintf("type %s cannot be bulk loaded", c.Type)}
		}

		switch c.Type {
		case TypeDecimal, TypeNumeric:
			p := c.EffectivePrecision()
			if p < 1 || p > 38 {
				return &ValidationError{Column: c.Name, Message: "precision must be between 1 and 38"}
			}
			if c.Scale < 0 || c.Scale > p {
				return &ValidationError{Column: c.Name, Message: "scale must be between 0 and precision"}
			}
		case TypeTime, TypeDateTime2, TypeDateTimeOffset:
			if s := c.EffectiveScale(); s < 0 || s > 7 {
				return &ValidationError{Column: c.Name, Message: "fractional seconds precision must be between 0 and 7"}
			}
		}
	}

	return nil
}

// ValidateRow checks that a row matches the table spec in arity, kind and range.
func (v *Validator) ValidateRow(row Row, spec TableSpec) error {
	if len(row) != len(spec.Columns) {
		return &ValidationError{
			Column:  spec.Table,
			Message: fmt.Sprintf("row has %d values but table has %d columns", len(row), len(spec.Columns)),
		}
	}

	for i, val := range row {
		if err := v.ValidateValue(val, spec.Columns[i]); err != nil {
			return err
		}
	}

	return nil
}

// ValidateRows checks many rows and collects every failure.
func (v *Validator) ValidateRows(rows []Row, spec TableSpec) error {
	var result *multierror.Error

	for i, row := range rows {
		if err := v.ValidateRow(row, spec); err != nil {
			result = multierror.Append(result, fmt.Errorf("row %d: %w", i+1, err))
		}
	}

	return result.ErrorOrNil()
}

// ValidateValue checks one value against its destination column.
func (v *Validator) ValidateValue(val Value, col Column) error {
	if val.IsNull() {
		return nil
	}

	if !Accepts(col.Type, val.Kind()) {
		return &ValidationError{
			Column:  col.Name,
			Message: fmt.Sprintf("%s value does not match %s column", val.Kind(), col.Type),
		}
	}

	switch col.Type {
	case TypeChar, TypeVarChar, TypeText:
		if err := checkSingleByte(col, val); err != nil {
			return err
		}
		if col.Type == TypeText {
			break
		}
		if n := col.EffectiveLength(); n != MaxLength && len(val.AsString()) > n {
			return tooLong(col, len(val.AsString()), val)
		}
	case TypeNChar, TypeNVarChar:
		units := len(utf16.Encode([]rune(val.AsString())))
		if n := col.EffectiveLength(); n != MaxLength && units > n {
			return tooLong(col, units, val)
		}
	case TypeBinary, TypeVarBinary:
		if n := col.EffectiveLength(); n != MaxLength && len(val.AsBytes()) > n {
			return tooLong(col, len(val.AsBytes()), val)
		}
	case TypeDecimal, TypeNumeric:
		return checkDecimalDigits(col, val.AsDecimal())
	case TypeMoney:
		return checkRange(col, val.AsDecimal(), moneyMin, moneyMax)
	case TypeSmallMoney:
		return checkRange(col, val.AsDecimal(), smallMoneyMin, smallMoneyMax)
	case TypeDateTime:
		if val.AsDateTime().Date.Before(dateTimeMin) {
			return &ValidationError{Column: col.Name, Message: "datetime is earlier than 1753-01-01", Value: val.String()}
		}
	case TypeSmallDateTime:
		dt := val.AsDateTime()
		if dt.Date.Before(smallDateTimeMin) || dt.After(smallDateTimeMax) {
			return &ValidationError{Column: col.Name, Message: "smalldatetime is outside 1900-01-01..2079-06-06", Value: val.String()}
		}
	case TypeDate, TypeDateTime2:
		d := val.AsDate()
		if col.Type == TypeDateTime2 {
			d = val.AsDateTime().Date
		}
		if d.Year < 1 || d.Year > 9999 {
			return &ValidationError{Column: col.Name, Message: "year is outside 0001..9999", Value: val.String()}
		}
	}

	return nil
}

// checkSingleByte rejects text a single-byte column would store as
// replacement characters. Only ASCII is common to every code page.
func checkSingleByte(col Column, val Value) error {
	for i, r := range val.AsString() {
		if r > unicode.MaxASCII {
			return &ValidationError{
				Column:  col.Name,
				Message: fmt.Sprintf("non-ASCII character %q at byte %d cannot be stored in %s, use nchar/nvarchar/ntext", r, i, col.SQLType()),
				Value:   truncateForMessage(val.String()),
			}
		}
	}
	return nil
}

func tooLong(col Column, got int, val Value) error {
	return &ValidationError{
		Column:  col.Name,
		Message: fmt.Sprintf("value length %d exceeds %s", got, col.SQLType()),
		Value:   truncateForMessage(val.String()),
	}
}

func checkDecimalDigits(col Column, d decimal.Decimal) error {
	scale := col.Scale
	abs := d.Round(int32(scale)).Abs()
	intDigits := 0
	if abs.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		intDigits = len(abs.Truncate(0).String())
	}
	if limit := col.EffectivePrecision() - scale; intDigits > limit {
		return &ValidationError{
			Column:  col.Name,
			Message: fmt.Sprintf("%d integer digits exceed %s", intDigits, col.SQLType()),
			Value:   d.String(),
		}
	}
	return nil
}

func checkRange(col Column, d, lo, hi decimal.Decimal) error {
	if d.LessThan(lo) || d.GreaterThan(hi) {
		return &ValidationError{
			Column:  col.Name,
			Message: fmt.Sprintf("value out of %s range", col.Type),
			Value:   d.String(),
		}
	}
	return nil
}

func truncateForMessage(s string) string {
	const limit = 64
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}

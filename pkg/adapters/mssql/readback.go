package mssql

import (
	"context"
	"fmt"
	"strings"
	"time"

	mssqldb "github.com/denisenkom/go-mssqldb"
	"github.com/golang-sql/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ruslano69/mssql-typeload/pkg/adapters"
	"github.com/ruslano69/mssql-typeload/pkg/core/schema"
)

// ========== Read Back ==========

// ReadRows implements adapters.Loader.
// Selects the table spec columns of the table and decodes every row into the
// value kinds the table spec accepts, calling fn once per row. Row order is the
// server's.
func (a *Adapter) ReadRows(ctx context.Context, spec schema.TableSpec, fn func(schema.Row) error) error {
	if err := schema.NewValidator().ValidateSpec(spec); err != nil {
		return adapters.EncodingError("read", spec.Table, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	conn, err := a.idle()
	if err != nil {
		return adapters.ConnectionError("read", spec.Table, err)
	}

	cols := make([]string, len(spec.Columns))
	for i, c := range spec.Columns {
		cols[i] = schema.QuoteName(c.Name)
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), schema.QuoteName(spec.Table))

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return adapters.TransportError("read", spec.Table, err)
	}
	defer rows.Close()

	raw := make([]any, len(spec.Columns))
	ptrs := make([]any, len(spec.Columns))
	for i := range raw {
		ptrs[i] = &raw[i]
	}

	var n int64
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return adapters.TransportError("read", spec.Table, fmt.Errorf("failed to scan row: %w", err))
		}
		n++

		row := make(schema.Row, len(spec.Columns))
		for i, col := range spec.Columns {
			v, err := decodeValue(col, raw[i])
			if err != nil {
				return adapters.EncodingError("read", spec.Table, fmt.Errorf("row %d: %w", n, err))
			}
			row[i] = v
		}

		if err := fn(row); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return adapters.TransportError("read", spec.Table, err)
	}

	return nil
}

// decodeValue converts a value scanned from the driver into the kind the
// column accepts. Legacy char types come back as plain strings.
func decodeValue(col schema.Column, src any) (schema.Value, error) {
	if src == nil {
		return schema.Null(), nil
	}

	switch col.Type {
	case schema.TypeBit:
		if b, ok := src.(bool); ok {
			return schema.Bool(b), nil
		}

	case schema.TypeTinyInt, schema.TypeSmallInt, schema.TypeInt, schema.TypeBigInt:
		i, ok := src.(int64)
		if !ok {
			break
		}
		switch col.Type {
		case schema.TypeTinyInt:
			return schema.Uint8(uint8(i)), nil
		case schema.TypeSmallInt:
			return schema.Int16(int16(i)), nil
		case schema.TypeInt:
			return schema.Int32(int32(i)), nil
		default:
			return schema.Int64(i), nil
		}

	case schema.TypeFloat, schema.TypeReal:
		var f float64
		switch v := src.(type) {
		case float64:
			f = v
		case float32:
			f = float64(v)
		default:
			return schema.Value{}, mismatch(col, src)
		}
		if col.Type == schema.TypeReal {
			return schema.Float32(float32(f)), nil
		}
		return schema.Float64(f), nil

	case schema.TypeDecimal, schema.TypeNumeric, schema.TypeMoney, schema.TypeSmallMoney:
		var text string
		switch v := src.(type) {
		case []byte:
			text = string(v)
		case string:
			text = v
		case float64:
			return schema.Decimal(decimal.NewFromFloat(v)), nil
		case int64:
			return schema.Decimal(decimal.NewFromInt(v)), nil
		default:
			return schema.Value{}, mismatch(col, src)
		}
		d, err := decimal.NewFromString(text)
		if err != nil {
			return schema.Value{}, fmt.Errorf("column %s: %w", col.Name, err)
		}
		return schema.Decimal(d), nil

	case schema.TypeChar, schema.TypeVarChar, schema.TypeNChar, schema.TypeNVarChar,
		schema.TypeText, schema.TypeNText, schema.TypeXML:
		switch v := src.(type) {
		case string:
			return schema.String(v), nil
		case []byte:
			return schema.String(string(v)), nil
		}

	case schema.TypeBinary, schema.TypeVarBinary, schema.TypeImage:
		if b, ok := src.([]byte); ok {
			return schema.Bytes(append([]byte(nil), b...)), nil
		}

	case schema.TypeUniqueIdentifier:
		var u mssqldb.UniqueIdentifier
		if err := u.Scan(src); err != nil {
			return schema.Value{}, fmt.Errorf("column %s: %w", col.Name, err)
		}
		return schema.UUID(uuid.UUID(u)), nil

	case schema.TypeDate:
		if t, ok := src.(time.Time); ok {
			return schema.Date(civil.DateOf(t)), nil
		}

	case schema.TypeTime:
		if t, ok := src.(time.Time); ok {
			return schema.Time(civil.TimeOf(t)), nil
		}

	case schema.TypeDateTime, schema.TypeDateTime2, schema.TypeSmallDateTime:
		if t, ok := src.(time.Time); ok {
			return schema.DateTime(civil.DateTimeOf(t)), nil
		}

	case schema.TypeDateTimeOffset:
		if t, ok := src.(time.Time); ok {
			return schema.DateTimeOffset(t), nil
		}
	}

	return schema.Value{}, mismatch(col, src)
}

func mismatch(col schema.Column, src any) error {
	return fmt.Errorf("column %s: cannot decode %T as %s", col.Name, src, col.Type)
}

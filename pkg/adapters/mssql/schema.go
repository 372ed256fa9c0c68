package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ruslano69/mssql-typeload/pkg/adapters"
	"github.com/ruslano69/mssql-typeload/pkg/core/schema"
)

// ========== Schema Operations ==========

// GetTableColumns returns the table columns in ordinal order, read from
// INFORMATION_SCHEMA. A missing table yields ErrTableNotFound.
func (a *Adapter) GetTableColumns(ctx context.Context, tableName string) ([]schema.Column, error) {
	conn, err := a.pinned()
	if err != nil {
		return nil, err
	}
	return queryTableColumns(ctx, conn, tableName)
}

func queryTableColumns(ctx context.Context, conn *sql.Conn, tableName string) ([]schema.Column, error) {
	schemaName, table := parseTableName(tableName)

	query := `
		SELECT
			c.COLUMN_NAME,
			c.DATA_TYPE,
			c.CHARACTER_MAXIMUM_LENGTH,
			CAST(c.NUMERIC_PRECISION AS INT),
			c.NUMERIC_SCALE,
			c.DATETIME_PRECISION
		FROM INFORMATION_SCHEMA.COLUMNS c
		WHERE c.TABLE_SCHEMA = @p1 AND c.TABLE_NAME = @p2
		ORDER BY c.ORDINAL_POSITION
	`

	rows, err := conn.QueryContext(ctx, query, schemaName, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query table schema: %w", err)
	}
	defer rows.Close()

	var columns []schema.Column

	for rows.Next() {
		var (
			columnName string
			dataType   string
			length     sql.NullInt64
			precision  sql.NullInt64
			scale      sql.NullInt64
			dtPrec     sql.NullInt64
		)

		if err := rows.Scan(&columnName, &dataType, &length, &precision, &scale, &dtPrec); err != nil {
			return nil, fmt.Errorf("failed to scan column info: %w", err)
		}

		info := columnInfo{
			Name:              columnName,
			DataType:          dataType,
			Length:            int(length.Int64),
			Precision:         int(precision.Int64),
			Scale:             int(scale.Int64),
			DateTimePrecision: int(dtPrec.Int64),
		}

		// unsupported types keep their raw name so callers can report them
		col, _ := info.toColumn()
		columns = append(columns, col)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	if len(columns) == 0 {
		return nil, fmt.Errorf("%s.%s: %w", schemaName, table, adapters.ErrTableNotFound)
	}

	return columns, nil
}

// TableExists checks if a table exists.
func (a *Adapter) TableExists(ctx context.Context, tableName string) (bool, error) {
	conn, err := a.pinned()
	if err != nil {
		return false, err
	}

	schemaName, table := parseTableName(tableName)

	query := `
		SELECT COUNT(*)
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = @p1
		  AND TABLE_NAME = @p2
		  AND TABLE_TYPE = 'BASE TABLE'
	`

	var count int
	if err := conn.QueryRowContext(ctx, query, schemaName, table).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check table existence: %w", err)
	}

	return count > 0, nil
}

// GetRowCount returns the row count from partition metadata.
func (a *Adapter) GetRowCount(ctx context.Context, tableName string) (int64, error) {
	conn, err := a.pinned()
	if err != nil {
		return 0, err
	}

	schemaName, table := parseTableName(tableName)

	query := `
		SELECT SUM(p.rows)
		FROM sys.tables t
		INNER JOIN sys.schemas s ON t.schema_id = s.schema_id
		INNER JOIN sys.partitions p ON t.object_id = p.object_id
		WHERE s.name = @p1
			AND t.name = @p2
			AND p.index_id IN (0, 1)
	`

	var count sql.NullInt64
	if err := conn.QueryRowContext(ctx, query, schemaName, table).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get row count: %w", err)
	}

	return count.Int64, nil
}

// Truncate removes all rows of a fixture table.
func (a *Adapter) Truncate(ctx context.Context, tableName string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	conn, err := a.idle()
	if err != nil {
		return adapters.ConnectionError("truncate", tableName, err)
	}

	if _, err := conn.ExecContext(ctx, "TRUNCATE TABLE "+schema.QuoteName(tableName)); err != nil {
		return adapters.TransportError("truncate", tableName, err)
	}
	return nil
}

// parseTableName splits a table name into schema and name.
// Examples:
//
//	"Users" → ("dbo", "Users")
//	"dbo.Users" → ("dbo", "Users")
//	"[custom].[Users]" → ("custom", "Users")
func parseTableName(fullName string) (schemaName, table string) {
	unquote := func(s string) string {
		s = strings.TrimSpace(s)
		s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
		return strings.ReplaceAll(s, "]]", "]")
	}

	parts := strings.Split(fullName, ".")
	if len(parts) == 2 {
		return unquote(parts[0]), unquote(parts[1])
	}

	return "dbo", unquote(fullName)
}

// Package mssql provides the Microsoft SQL Server loader.
//
// The adapter pins one connection of github.com/denisenkom/go-mssqldb and
// runs everything on it: bulk sessions, scalar statements, read-back and
// schema discovery. TDS framing, login and wire encoding belong to the
// driver; the adapter dials the TCP stream, checks rows against the
// declared table shape and converts values into what the driver encodes.
//
// Features:
//   - Bulk load through the driver's CopyIn stream (open, send, finalize)
//   - Abort by connection teardown, nothing committed
//   - Scalar execute with positional @P1..@Pn parameters
//   - Column discovery from INFORMATION_SCHEMA
//   - Read-back of rows decoded into typed values for round-trip checks
//   - Driver log stream routed into zerolog
//
// Usage:
//
//	cfg, _ := adapters.FromEnv(nil)
//
//	loader, err := mssql.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer loader.Close(ctx)
//
//	spec := schema.NewTableSpec("random_bit", schema.Col("a_bit_column", "BIT"))
//	session, err := loader.OpenBulk(ctx, spec, adapters.WithTablock())
//	if err != nil {
//	    return err
//	}
//	for i := 0; i < 100000; i++ {
//	    if err := session.Send(ctx, schema.Row{schema.Bool(i%2 == 1)}); err != nil {
//	        return err // the session is already aborted
//	    }
//	}
//	done, err := session.Finalize(ctx)
//
// Type Mapping (bulk stream):
//
//	SQL Server Type            Value Kind        Sent As
//	──────────────────────────────────────────────────────────────────
//	BIT                        Bool              bool
//	TINYINT..BIGINT            Uint8..Int64      int64
//	FLOAT, REAL                Float64, Float32  float64
//	DECIMAL, NUMERIC           Decimal           text at column scale
//	CHAR..NVARCHAR             String            string
//	BINARY, VARBINARY          Bytes             []byte
//	UNIQUEIDENTIFIER           UUID              []byte, mixed endian
//	DATE, TIME                 Date, Time        time.Time (UTC)
//	DATETIME, SMALLDATETIME    DateTime          time.Time, tick aligned
//	DATETIME2                  DateTime          time.Time (UTC)
//	DATETIMEOFFSET             DateTimeOffset    time.Time with zone
//
// TEXT, NTEXT, IMAGE, XML, MONEY and SMALLMONEY are not carried by the
// bulk stream; load them with Execute. CHAR, VARCHAR and TEXT accept ASCII
// only; non-ASCII text belongs in the national types.
package mssql

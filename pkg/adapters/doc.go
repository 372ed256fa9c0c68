/*
Package adapters defines the contract between typed value producers and a
SQL Server loader.

# Architecture

	┌─────────────────────────────────────────┐
	│    Producers                            │
	│  - harness cases                        │
	│  - schema.TableSpec / schema.Row        │
	└─────────────────┬───────────────────────┘
	                  │
	┌─────────────────▼───────────────────────┐
	│  Level 1: Loader interface              │  ← pkg/adapters/adapter.go
	│                                         │
	│  type Loader interface {                │
	│    Connect(ctx, Config) error           │
	│    OpenBulk(ctx, spec, opts...)         │
	│    Execute(ctx, sql, params...)         │
	│    ...                                  │
	│  }                                      │
	└─────────────────┬───────────────────────┘
	                  │
	          ┌───────▼────────┐
	          │ MS SQL Server  │  ← Level 2: pkg/adapters/mssql
	          │ (go-mssqldb)   │
	          └────────────────┘

# Connection descriptor

Config is parsed by the driver's msdsn parser from an ADO.NET, odbc: or
sqlserver:// connection string:

	cfg, err := adapters.ParseConnString(
	    `server=tcp:localhost\sql2022d,22828;database=DestinationDB;user=developer;password=developer;TrustServerCertificate=true`)

FromEnv reads SQL_AUTH_CONN_STRING (or DefaultConnString) once; the result
is passed explicitly to every Connect.

# Bulk load

	loader, err := adapters.New(ctx, cfg)
	if err != nil {
	    log.Fatal(err)
	}
	defer loader.Close(ctx)

	spec := schema.NewTableSpec("random_bit", schema.Col("a_bit_column", "bit"))
	session, err := loader.OpenBulk(ctx, spec, adapters.WithTablock())
	if err != nil {
	    log.Fatal(err)
	}
	for i := 0; i < 100000; i++ {
	    if err := session.Send(ctx, schema.Row{schema.Bool(i%2 == 1)}); err != nil {
	        log.Fatal(err) // session is already aborted
	    }
	}
	res, err := session.Finalize(ctx)

Rows are committed in the order sent. Send validates arity and value kinds
against the table spec. Finalize is terminal: later Send or Finalize calls return
ErrSessionClosed.

# Scalar execute

	res, err := loader.Execute(ctx,
	    "INSERT INTO random_money (a_smallmoney_column, a_money_column) VALUES (@P1, @P2)",
	    schema.MustDecimal("1316"), schema.MustDecimal("701321588.2505"))

# Errors

Every failure is an *Error of kind KindConnection, KindEncoding or
KindTransport and matches ErrConnection, ErrEncoding or ErrTransport with
errors.Is. Nothing is retried. A failed bulk session may leave the table
partially loaded.
*/
package adapters

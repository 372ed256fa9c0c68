package adapters

import (
	"context"
	"time"

	"github.com/ruslano69/mssql-typeload/pkg/core/schema"
)

// Config - connection descriptor for one SQL Server endpoint.
// Built from an ADO connection string (ParseConnString) or from the YAML
// config; never read from the environment by the adapters themselves.
type Config struct {
	// Type - adapter type registered in the factory: "mssql"
	Type string

	// Host and Instance come from "server=tcp:host\instance,port"
	Host     string
	Instance string

	// Port - TCP port, 0 means the default 1433
	Port int

	Database string
	User     string
	Password string

	// TrustServerCertificate skips server certificate validation
	TrustServerCertificate bool

	// Encrypt - "", "true", "false" or "disable" (plaintext login)
	Encrypt string

	// AppName is reported to the server as the program name
	AppName string

	// ConnectTimeout bounds dial plus login, 0 means no limit
	ConnectTimeout time.Duration

	// KeepAlive - TCP keep-alive period, 0 means the dialer default
	KeepAlive time.Duration

	// DriverLog - driver log categories bit set (msdsn.Log), 0 disables
	DriverLog uint64
}

// Completion - server confirmation of a finished operation.
type Completion struct {
	// RowsAffected - rows the server reported as written
	RowsAffected int64
}

// Loader - universal interface of a typed value loader.
// Implemented by pkg/adapters/mssql and registered in the factory.
type Loader interface {
	// ========== Lifecycle ==========

	// Connect dials, authenticates and pins one connection
	Connect(ctx context.Context, cfg Config) error

	// Close closes the connection, aborting an open bulk session
	Close(ctx context.Context) error

	// Ping checks the pinned connection
	Ping(ctx context.Context) error

	// ========== Load ==========

	// OpenBulk opens a bulk row stream into an existing table
	OpenBulk(ctx context.Context, spec schema.TableSpec, opts ...BulkOption) (BulkSession, error)

	// Execute runs one parameterised statement
	Execute(ctx context.Context, sqlText string, params ...schema.Value) (Completion, error)

	// ========== Read back ==========

	// ReadRows streams the table rows decoded against spec
	ReadRows(ctx context.Context, spec schema.TableSpec, fn func(schema.Row) error) error

	// Truncate removes every row of the table
	Truncate(ctx context.Context, table string) error

	// ========== Schema ==========

	// TableExists reports whether the table exists
	TableExists(ctx context.Context, table string) (bool, error)

	// GetTableColumns returns the table columns in ordinal order
	GetTableColumns(ctx context.Context, table string) ([]schema.Column, error)

	// ========== Metadata ==========

	// ServerVersion returns the server product version
	ServerVersion() string

	// GetDatabaseType returns the adapter type: "mssql"
	GetDatabaseType() string
}

// BulkSession - one open bulk load stream.
//
// A session is created by Loader.OpenBulk, fed with Send and closed by
// Finalize (commit) or Abort (connection teardown, nothing committed).
// Any failure aborts the session; there is no resume.
type BulkSession interface {
	// Send appends one row; rows are batched by the driver
	Send(ctx context.Context, row schema.Row) error

	// Finalize flushes, ends the stream and waits for the server
	Finalize(ctx context.Context) (Completion, error)

	// Abort tears the stream down without committing
	Abort() error

	// Sent returns the number of rows accepted by Send
	Sent() int64
}

// BulkOptions - server side bulk load hints.
type BulkOptions struct {
	CheckConstraints  bool     `yaml:"check_constraints"`
	FireTriggers      bool     `yaml:"fire_triggers"`
	KeepNulls         bool     `yaml:"keep_nulls"`
	KilobytesPerBatch int      `yaml:"kilobytes_per_batch"`
	RowsPerBatch      int      `yaml:"rows_per_batch"`
	Order             []string `yaml:"order,omitempty"`
	Tablock           bool     `yaml:"tablock"`
}

// BulkOption adjusts BulkOptions.
type BulkOption func(*BulkOptions)

// WithBulkOptions replaces all options at once.
func WithBulkOptions(o BulkOptions) BulkOption {
	return func(dst *BulkOptions) { *dst = o }
}

// WithTablock takes a table lock for the load.
func WithTablock() BulkOption {
	return func(o *BulkOptions) { o.Tablock = true }
}

// WithRowsPerBatch sets the server side batch size in rows.
func WithRowsPerBatch(n int) BulkOption {
	return func(o *BulkOptions) { o.RowsPerBatch = n }
}

// WithKilobytesPerBatch sets the server side batch size in kilobytes.
func WithKilobytesPerBatch(n int) BulkOption {
	return func(o *BulkOptions) { o.KilobytesPerBatch = n }
}

// WithCheckConstraints enforces constraints during the load.
func WithCheckConstraints() BulkOption {
	return func(o *BulkOptions) { o.CheckConstraints = true }
}

// WithFireTriggers runs insert triggers during the load.
func WithFireTriggers() BulkOption {
	return func(o *BulkOptions) { o.FireTriggers = true }
}

// WithKeepNulls stores NULL instead of column defaults.
func WithKeepNulls() BulkOption {
	return func(o *BulkOptions) { o.KeepNulls = true }
}

// WithOrder declares the sort order of the incoming rows.
func WithOrder(columns ...string) BulkOption {
	return func(o *BulkOptions) { o.Order = columns }
}

// ApplyBulkOptions folds opts into a BulkOptions value.
func ApplyBulkOptions(opts ...BulkOption) BulkOptions {
	var o BulkOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

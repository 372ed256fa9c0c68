package mssql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	mssqldb "github.com/denisenkom/go-mssqldb"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ruslano69/mssql-typeload/pkg/adapters"
)

// AdapterType is the factory key of this adapter.
const AdapterType = "mssql"

// Adapter implements adapters.Loader for Microsoft SQL Server.
//
// One Adapter owns one pinned connection: a bulk session and scalar
// statements never run on different sessions of the server.
type Adapter struct {
	mu     sync.Mutex
	db     *sql.DB
	conn   *sql.Conn
	config adapters.Config
	logger zerolog.Logger
	hasLog bool

	// Version information
	serverVersion    int    // Major version: 11=2012, 13=2016, 14=2017, 15=2019, 16=2022
	serverVersionStr string // Full version string
	compatLevel      int    // Database compatibility level: 110=2012, 130=2016, etc.

	// open bulk session, nil when idle
	bulk *BulkSession
}

func init() {
	// Register MS SQL Server adapter in factory
	adapters.Register(AdapterType, func() adapters.Loader {
		return &Adapter{}
	})
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger used for connection and session events.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
		a.hasLog = true
	}
}

// New creates an adapter that is not connected yet.
func New(opts ...Option) *Adapter {
	a := &Adapter{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Connect creates an adapter and connects it.
func Connect(ctx context.Context, cfg adapters.Config, opts ...Option) (*Adapter, error) {
	a := New(opts...)
	if err := a.Connect(ctx, cfg); err != nil {
		return nil, err
	}
	return a, nil
}

// Connect implements adapters.Loader.
// Dials the TCP stream, logs in, pins one connection and detects the
// server version.
func (a *Adapter) Connect(ctx context.Context, cfg adapters.Config) error {
	if !a.hasLog {
		a.logger = log.Logger
	}
	a.logger = a.logger.With().Str("component", "mssql").Str("server", cfg.Addr()).Logger()

	if err := cfg.Validate(); err != nil {
		return adapters.ConnectionError("connect", "", err)
	}

	connector, err := mssqldb.NewConnector(cfg.DSN())
	if err != nil {
		return adapters.ConnectionError("connect", "", fmt.Errorf("invalid connection settings: %w", err))
	}
	connector.Dialer = newTCPDialer(cfg, a.logger)

	db := sql.OpenDB(connector)

	// Pin one connection; the bulk stream and scalar statements share it
	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return adapters.ConnectionError("connect", "", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		db.Close()
		return adapters.ConnectionError("connect", "", fmt.Errorf("failed to ping database: %w", err))
	}

	a.mu.Lock()
	a.db = db
	a.conn = conn
	a.config = cfg
	a.mu.Unlock()

	// Detect server version and compatibility level
	if err := a.detectCompatibility(ctx); err != nil {
		a.Close(ctx)
		return adapters.ConnectionError("connect", "", fmt.Errorf("failed to detect compatibility: %w", err))
	}

	a.logger.Info().
		Str("database", cfg.Database).
		Str("version", a.ServerVersion()).
		Int("compat_level", a.compatLevel).
		Msg("connected")

	return nil
}

// detectCompatibility detects SQL Server version and database compatibility level.
func (a *Adapter) detectCompatibility(ctx context.Context) error {
	conn, err := a.pinned()
	if err != nil {
		return err
	}

	// 1. Detect server version
	var version string
	err = conn.QueryRowContext(ctx, "SELECT CAST(SERVERPROPERTY('ProductVersion') AS NVARCHAR(128))").Scan(&version)
	if err != nil {
		return fmt.Errorf("failed to get server version: %w", err)
	}

	a.serverVersionStr = version
	a.serverVersion = parseServerVersion(version)

	// 2. Detect database compatibility level
	err = conn.QueryRowContext(ctx, `
		SELECT CAST(compatibility_level AS INT)
		FROM sys.databases
		WHERE name = DB_NAME()
	`).Scan(&a.compatLevel)
	if err != nil {
		return fmt.Errorf("failed to get compatibility level: %w", err)
	}

	return nil
}

// parseServerVersion parses SQL Server version string to major version number.
// Examples:
//   - "11.0.2100.60" → 11 (SQL Server 2012)
//   - "13.0.5026.0"  → 13 (SQL Server 2016)
//   - "16.0.1000.6"  → 16 (SQL Server 2022)
func parseServerVersion(version string) int {
	parts := strings.Split(version, ".")
	if len(parts) == 0 {
		return 0
	}

	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0
	}

	return major
}

// serverVersionName returns human-readable server version name.
func serverVersionName(major int) string {
	switch major {
	case 11:
		return "SQL Server 2012"
	case 12:
		return "SQL Server 2014"
	case 13:
		return "SQL Server 2016"
	case 14:
		return "SQL Server 2017"
	case 15:
		return "SQL Server 2019"
	case 16:
		return "SQL Server 2022"
	default:
		return fmt.Sprintf("SQL Server (version %d)", major)
	}
}

// ServerVersion returns the server name and product version.
func (a *Adapter) ServerVersion() string {
	if a.serverVersionStr == "" {
		return ""
	}
	return fmt.Sprintf("%s (%s)", serverVersionName(a.serverVersion), a.serverVersionStr)
}

// CompatibilityLevel returns the compatibility level of the current database.
func (a *Adapter) CompatibilityLevel() int {
	return a.compatLevel
}

// GetDatabaseType returns the adapter type.
func (a *Adapter) GetDatabaseType() string {
	return AdapterType
}

// Close aborts an open bulk session and closes the connection.
func (a *Adapter) Close(ctx context.Context) error {
	a.mu.Lock()
	session := a.bulk
	a.mu.Unlock()

	if session != nil {
		_ = session.Abort()
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	var result *multierror.Error
	if a.conn != nil {
		if err := a.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
			result = multierror.Append(result, err)
		}
		a.conn = nil
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		a.db = nil
	}

	return result.ErrorOrNil()
}

// Ping tests the pinned connection.
func (a *Adapter) Ping(ctx context.Context) error {
	conn, err := a.pinned()
	if err != nil {
		return adapters.ConnectionError("ping", "", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		return adapters.ConnectionError("ping", "", err)
	}
	return nil
}

// pinned returns the pinned connection or ErrNotConnected.
func (a *Adapter) pinned() (*sql.Conn, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn == nil {
		return nil, adapters.ErrNotConnected
	}
	return a.conn, nil
}

// idle returns the pinned connection when no bulk session is open.
// The caller must hold a.mu.
func (a *Adapter) idle() (*sql.Conn, error) {
	if a.conn == nil {
		return nil, adapters.ErrNotConnected
	}
	if a.bulk != nil {
		return nil, adapters.ErrSessionActive
	}
	return a.conn, nil
}

// discard drops the pinned connection without a graceful logout, so the
// server rolls back whatever the bulk stream has not committed.
func (a *Adapter) discard() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.bulk = nil
	if a.conn == nil {
		return nil
	}

	err := a.conn.Raw(func(any) error { return driver.ErrBadConn })
	a.conn = nil
	if err == nil || errors.Is(err, driver.ErrBadConn) {
		return nil
	}
	return err
}

// release marks the bulk session finished and the connection reusable.
func (a *Adapter) release(s *BulkSession) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.bulk == s {
		a.bulk = nil
	}
}

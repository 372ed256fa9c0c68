package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	mssqldb "github.com/denisenkom/go-mssqldb"
	"github.com/rs/zerolog"

	"github.com/ruslano69/mssql-typeload/pkg/adapters"
	"github.com/ruslano69/mssql-typeload/pkg/core/schema"
)

// ========== Bulk Load ==========

// bulkStmt is the prepared CopyIn statement. Exec with values adds a row,
// Exec without values ends the stream and reports the row count.
type bulkStmt interface {
	ExecContext(ctx context.Context, args ...any) (sql.Result, error)
	Close() error
}

type sessionState int

const (
	sessionOpen sessionState = iota
	sessionFinalized
	sessionAborted
)

func (s sessionState) String() string {
	switch s {
	case sessionOpen:
		return "open"
	case sessionFinalized:
		return "finalized"
	default:
		return "aborted"
	}
}

// BulkSession streams rows into one table over the adapter's pinned
// connection. Send, Finalize and Abort are serialized; a session ends
// exactly once, by Finalize or by Abort.
type BulkSession struct {
	mu sync.Mutex

	adapter   *Adapter
	spec      schema.TableSpec
	stmt      bulkStmt
	validator *schema.Validator
	logger    zerolog.Logger

	state   sessionState
	sent    int64
	started time.Time
}

// OpenBulk implements adapters.Loader.
//
// The table spec must name existing columns of an existing table with matching
// base types. Columns it omits take their defaults.
func (a *Adapter) OpenBulk(ctx context.Context, spec schema.TableSpec, opts ...adapters.BulkOption) (adapters.BulkSession, error) {
	s, err := a.openBulk(ctx, spec, adapters.ApplyBulkOptions(opts...))
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (a *Adapter) openBulk(ctx context.Context, spec schema.TableSpec, opts adapters.BulkOptions) (*BulkSession, error) {
	validator := schema.NewBulkValidator()
	if err := validator.ValidateSpec(spec); err != nil {
		return nil, adapters.EncodingError("open bulk", spec.Table, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	conn, err := a.idle()
	if err != nil {
		return nil, adapters.ConnectionError("open bulk", spec.Table, err)
	}

	actual, err := queryTableColumns(ctx, conn, spec.Table)
	if err != nil {
		return nil, adapters.ConnectionError("open bulk", spec.Table, err)
	}
	if err := matchColumns(spec, actual); err != nil {
		return nil, adapters.EncodingError("open bulk", spec.Table, err)
	}

	stmt, err := conn.PrepareContext(ctx, mssqldb.CopyIn(schema.QuoteName(spec.Table), driverBulkOptions(opts), spec.ColumnNames()...))
	if err != nil {
		return nil, adapters.ConnectionError("open bulk", spec.Table, err)
	}

	s := &BulkSession{
		adapter:   a,
		spec:      spec,
		stmt:      stmt,
		validator: validator,
		logger:    a.logger.With().Str("table", spec.Table).Logger(),
		started:   time.Now(),
	}
	a.bulk = s

	s.logger.Debug().
		Int("columns", len(spec.Columns)).
		Bool("tablock", opts.Tablock).
		Msg("bulk session opened")

	return s, nil
}

// matchColumns checks every declared column against the table.
func matchColumns(spec schema.TableSpec, actual []schema.Column) error {
	byName := make(map[string]schema.Column, len(actual))
	for _, c := range actual {
		byName[strings.ToLower(c.Name)] = c
	}

	for _, declared := range spec.Columns {
		c, ok := byName[strings.ToLower(declared.Name)]
		if !ok {
			return fmt.Errorf("table %s has no column %s", spec.Table, declared.Name)
		}
		if err := checkDeclared(declared, c); err != nil {
			return err
		}
	}
	return nil
}

func driverBulkOptions(o adapters.BulkOptions) mssqldb.BulkOptions {
	return mssqldb.BulkOptions{
		CheckConstraints:  o.CheckConstraints,
		FireTriggers:      o.FireTriggers,
		KeepNulls:         o.KeepNulls,
		KilobytesPerBatch: o.KilobytesPerBatch,
		RowsPerBatch:      o.RowsPerBatch,
		Order:             o.Order,
		Tablock:           o.Tablock,
	}
}

// Send validates row against the session spec and hands it to the driver.
// The driver batches rows; there is no per-row acknowledgement. Any failure
// aborts the session.
func (s *BulkSession) Send(ctx context.Context, row schema.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != sessionOpen {
		return fmt.Errorf("send %s: %w", s.spec.Table, adapters.ErrSessionClosed)
	}

	if err := s.validator.ValidateRow(row, s.spec); err != nil {
		s.abortLocked()
		return adapters.EncodingError("send", s.spec.Table, fmt.Errorf("row %d: %w", s.sent+1, err))
	}

	values := make([]any, len(row))
	for i, v := range row {
		dv, err := bulkValue(s.spec.Columns[i], v)
		if err != nil {
			s.abortLocked()
			return adapters.EncodingError("send", s.spec.Table, fmt.Errorf("row %d: %w", s.sent+1, err))
		}
		values[i] = dv
	}

	if _, err := s.stmt.ExecContext(ctx, values...); err != nil {
		s.abortLocked()
		return adapters.TransportError("send", s.spec.Table, fmt.Errorf("row %d: %w", s.sent+1, err))
	}

	s.sent++
	return nil
}

// Finalize flushes buffered rows, ends the stream and waits for the server
// to confirm. The session is closed afterwards whatever the outcome.
func (s *BulkSession) Finalize(ctx context.Context) (adapters.Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != sessionOpen {
		return adapters.Completion{}, fmt.Errorf("finalize %s: %w", s.spec.Table, adapters.ErrSessionClosed)
	}

	res, err := s.stmt.ExecContext(ctx)
	if err != nil {
		s.abortLocked()
		return adapters.Completion{}, adapters.TransportError("finalize", s.spec.Table, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		s.abortLocked()
		return adapters.Completion{}, adapters.TransportError("finalize", s.spec.Table, err)
	}

	s.state = sessionFinalized
	if err := s.stmt.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to close bulk statement")
	}
	if s.adapter != nil {
		s.adapter.release(s)
	}

	s.logger.Info().
		Int64("sent", s.sent).
		Int64("rows_affected", n).
		Dur("elapsed", time.Since(s.started)).
		Msg("bulk session finalized")

	return adapters.Completion{RowsAffected: n}, nil
}

// Abort drops the connection so the server discards the uncommitted
// stream. Aborting a closed session is a no-op.
func (s *BulkSession) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != sessionOpen {
		return nil
	}
	return s.abortLocked()
}

func (s *BulkSession) abortLocked() error {
	s.state = sessionAborted

	// the statement is bound to the connection being discarded
	_ = s.stmt.Close()

	var err error
	if s.adapter != nil {
		err = s.adapter.discard()
	}

	s.logger.Warn().Int64("sent", s.sent).Msg("bulk session aborted")

	if err != nil {
		return adapters.ConnectionError("abort", s.spec.Table, err)
	}
	return nil
}

// Sent returns the number of rows accepted by Send.
func (s *BulkSession) Sent() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent
}

// Table returns the target table name.
func (s *BulkSession) Table() string {
	return s.spec.Table
}

package main

import (
	"context"
	"strings"
	"sync"

	"github.com/ruslano69/mssql-typeload/pkg/adapters"
	"github.com/ruslano69/mssql-typeload/pkg/core/schema"
)

// memServer is an in-memory stand-in for SQL Server.
type memServer struct {
	mu      sync.Mutex
	tables  map[string][]schema.Row
	execs   []string
	configs []adapters.Config
}

func newMemServer() *memServer {
	return &memServer{tables: make(map[string][]schema.Row)}
}

func (s *memServer) connect(ctx context.Context, cfg adapters.Config) (adapters.Loader, error) {
	s.mu.Lock()
	s.configs = append(s.configs, cfg)
	s.mu.Unlock()
	return &memLoader{server: s}, nil
}

func (s *memServer) append(table string, row schema.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[table] = append(s.tables[table], row)
}

type memLoader struct {
	server *memServer
}

func (l *memLoader) Connect(ctx context.Context, cfg adapters.Config) error { return nil }
func (l *memLoader) Close(ctx context.Context) error                        { return nil }
func (l *memLoader) Ping(ctx context.Context) error                         { return nil }
func (l *memLoader) ServerVersion() string                                  { return "16.0.4135.4" }
func (l *memLoader) GetDatabaseType() string                                { return "mssql" }

func (l *memLoader) OpenBulk(ctx context.Context, spec schema.TableSpec, opts ...adapters.BulkOption) (adapters.BulkSession, error) {
	return &memSession{server: l.server, table: spec.Table}, nil
}

func (l *memLoader) Execute(ctx context.Context, sqlText string, params ...schema.Value) (adapters.Completion, error) {
	l.server.mu.Lock()
	l.server.execs = append(l.server.execs, sqlText)
	l.server.mu.Unlock()

	if !strings.HasPrefix(sqlText, "INSERT INTO ") {
		return adapters.Completion{}, nil
	}
	l.server.append(strings.Trim(strings.Fields(sqlText)[2], "[]"), schema.Row(params))
	return adapters.Completion{RowsAffected: 1}, nil
}

func (l *memLoader) ReadRows(ctx context.Context, spec schema.TableSpec, fn func(schema.Row) error) error {
	l.server.mu.Lock()
	rows := l.server.tables[spec.Table]
	l.server.mu.Unlock()
	for _, row := range rows {
		if err := fn(row); err != nil {
			return err
		}
	}
	return nil
}

func (l *memLoader) Truncate(ctx context.Context, table string) error {
	l.server.mu.Lock()
	defer l.server.mu.Unlock()
	delete(l.server.tables, table)
	return nil
}

func (l *memLoader) TableExists(ctx context.Context, table string) (bool, error) {
	return true, nil
}

func (l *memLoader) GetTableColumns(ctx context.Context, table string) ([]schema.Column, error) {
	return nil, nil
}

type memSession struct {
	server *memServer
	table  string
	rows   []schema.Row
}

func (s *memSession) Send(ctx context.Context, row schema.Row) error {
	s.rows = append(s.rows, row)
	return nil
}

func (s *memSession) Finalize(ctx context.Context) (adapters.Completion, error) {
	for _, row := range s.rows {
		s.server.append(s.table, row)
	}
	return adapters.Completion{RowsAffected: int64(len(s.rows))}, nil
}

func (s *memSession) Abort() error { return nil }
func (s *memSession) Sent() int64  { return int64(len(s.rows)) }

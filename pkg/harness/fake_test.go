package harness

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ruslano69/mssql-typeload/pkg/adapters"
	"github.com/ruslano69/mssql-typeload/pkg/core/schema"
)

// fakeServer keeps tables in memory and hands out loaders.
type fakeServer struct {
	mu     sync.Mutex
	tables map[string][]schema.Row
	execs  []string

	// fault injection
	connectErr  error
	abortErr    error
	countDelta  int64
	corruptRead bool
	aborts      atomic.Int64

	// concurrency accounting
	active    atomic.Int64
	maxActive atomic.Int64
	perTable  map[string]*atomic.Int64
	tableMax  atomic.Int64
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		tables:   make(map[string][]schema.Row),
		perTable: make(map[string]*atomic.Int64),
	}
}

func (s *fakeServer) connect(ctx context.Context) (adapters.Loader, error) {
	if s.connectErr != nil {
		return nil, adapters.ConnectionError("connect", "", s.connectErr)
	}
	n := s.active.Add(1)
	for {
		m := s.maxActive.Load()
		if n <= m || s.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	return &fakeLoader{server: s}, nil
}

func (s *fakeServer) enterTable(table string) func() {
	s.mu.Lock()
	c, ok := s.perTable[strings.ToLower(table)]
	if !ok {
		c = &atomic.Int64{}
		s.perTable[strings.ToLower(table)] = c
	}
	s.mu.Unlock()

	n := c.Add(1)
	for {
		m := s.tableMax.Load()
		if n <= m || s.tableMax.CompareAndSwap(m, n) {
			break
		}
	}
	return func() { c.Add(-1) }
}

func (s *fakeServer) rows(table string) []schema.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tables[table]
}

type fakeLoader struct {
	server *fakeServer
	closed bool
	leave  func()
}

func (l *fakeLoader) Connect(ctx context.Context, cfg adapters.Config) error { return nil }

func (l *fakeLoader) Close(ctx context.Context) error {
	if !l.closed {
		l.closed = true
		l.server.active.Add(-1)
		if l.leave != nil {
			l.leave()
		}
	}
	return nil
}

func (l *fakeLoader) Ping(ctx context.Context) error { return nil }

func (l *fakeLoader) OpenBulk(ctx context.Context, spec schema.TableSpec, opts ...adapters.BulkOption) (adapters.BulkSession, error) {
	if err := schema.NewBulkValidator().ValidateSpec(spec); err != nil {
		return nil, adapters.EncodingError("open bulk", spec.Table, err)
	}
	if l.leave == nil {
		l.leave = l.server.enterTable(spec.Table)
	}
	return &fakeSession{server: l.server, spec: spec}, nil
}

func (l *fakeLoader) Execute(ctx context.Context, sqlText string, params ...schema.Value) (adapters.Completion, error) {
	s := l.server
	s.mu.Lock()
	s.execs = append(s.execs, sqlText)
	s.mu.Unlock()

	if !strings.HasPrefix(sqlText, "INSERT INTO ") {
		return adapters.Completion{}, nil
	}

	table := strings.Trim(strings.Fields(sqlText)[2], "[]")
	s.mu.Lock()
	s.tables[table] = append(s.tables[table], schema.Row(params))
	s.mu.Unlock()
	return adapters.Completion{RowsAffected: 1 + s.countDelta}, nil
}

func (l *fakeLoader) ReadRows(ctx context.Context, spec schema.TableSpec, fn func(schema.Row) error) error {
	rows := l.server.rows(spec.Table)
	for i, row := range rows {
		if l.server.corruptRead && i == len(rows)-1 {
			row = append(schema.Row(nil), row...)
			row[0] = schema.Null()
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return nil
}

func (l *fakeLoader) Truncate(ctx context.Context, table string) error {
	if l.leave == nil {
		l.leave = l.server.enterTable(table)
	}
	l.server.mu.Lock()
	defer l.server.mu.Unlock()
	delete(l.server.tables, table)
	return nil
}

func (l *fakeLoader) TableExists(ctx context.Context, table string) (bool, error) {
	return true, nil
}

func (l *fakeLoader) GetTableColumns(ctx context.Context, table string) ([]schema.Column, error) {
	return nil, errors.New("not implemented")
}

func (l *fakeLoader) ServerVersion() string   { return "fake" }
func (l *fakeLoader) GetDatabaseType() string { return "fake" }

type fakeSession struct {
	server *fakeServer
	spec   schema.TableSpec
	rows   []schema.Row
	closed bool
}

func (f *fakeSession) Send(ctx context.Context, row schema.Row) error {
	if f.closed {
		return adapters.ErrSessionClosed
	}
	if err := schema.NewBulkValidator().ValidateRow(row, f.spec); err != nil {
		f.closed = true
		return adapters.EncodingError("send", f.spec.Table, err)
	}
	f.rows = append(f.rows, row)
	return nil
}

func (f *fakeSession) Finalize(ctx context.Context) (adapters.Completion, error) {
	if f.closed {
		return adapters.Completion{}, adapters.ErrSessionClosed
	}
	f.closed = true

	f.server.mu.Lock()
	f.server.tables[f.spec.Table] = append(f.server.tables[f.spec.Table], f.rows...)
	f.server.mu.Unlock()

	return adapters.Completion{RowsAffected: int64(len(f.rows)) + f.server.countDelta}, nil
}

func (f *fakeSession) Abort() error {
	f.closed = true
	f.server.aborts.Add(1)
	return f.server.abortErr
}

func (f *fakeSession) Sent() int64 { return int64(len(f.rows)) }

package mssql

import (
	"context"
	"time"

	"github.com/ruslano69/mssql-typeload/pkg/adapters"
	"github.com/ruslano69/mssql-typeload/pkg/core/schema"
)

// ========== Scalar Execute ==========

// Execute implements adapters.Loader.
//
// Parameters bind positionally to @P1..@Pn. Execute on a connection with
// an open bulk session fails without touching the stream.
func (a *Adapter) Execute(ctx context.Context, sqlText string, params ...schema.Value) (adapters.Completion, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	conn, err := a.idle()
	if err != nil {
		return adapters.Completion{}, adapters.ConnectionError("execute", "", err)
	}

	args := make([]any, len(params))
	for i, p := range params {
		args[i] = paramValue(p)
	}

	start := time.Now()
	res, err := conn.ExecContext(ctx, sqlText, args...)
	if err != nil {
		return adapters.Completion{}, adapters.TransportError("execute", "", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return adapters.Completion{}, adapters.TransportError("execute", "", err)
	}

	a.logger.Debug().
		Int("params", len(params)).
		Int64("rows_affected", n).
		Dur("elapsed", time.Since(start)).
		Msg("statement executed")

	return adapters.Completion{RowsAffected: n}, nil
}

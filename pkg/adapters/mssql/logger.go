package mssql

import (
	"context"

	mssqldb "github.com/denisenkom/go-mssqldb"
	"github.com/denisenkom/go-mssqldb/msdsn"
	"github.com/rs/zerolog"
)

// driverLogLevels maps driver log categories to zerolog levels.
var driverLogLevels = map[msdsn.Log]zerolog.Level{
	msdsn.LogErrors:      zerolog.ErrorLevel,
	msdsn.LogMessages:    zerolog.InfoLevel,
	msdsn.LogRows:        zerolog.DebugLevel,
	msdsn.LogSQL:         zerolog.DebugLevel,
	msdsn.LogParams:      zerolog.DebugLevel,
	msdsn.LogTransaction: zerolog.DebugLevel,
	msdsn.LogDebug:       zerolog.TraceLevel,
}

var driverLogNames = map[msdsn.Log]string{
	msdsn.LogErrors:      "errors",
	msdsn.LogMessages:    "messages",
	msdsn.LogRows:        "rows",
	msdsn.LogSQL:         "sql",
	msdsn.LogParams:      "params",
	msdsn.LogTransaction: "transaction",
	msdsn.LogDebug:       "debug",
}

// zerologContextLogger implements the driver's ContextLogger on top of zerolog.
type zerologContextLogger struct {
	logger zerolog.Logger
}

// Log emits a driver message at the level of its category.
func (l *zerologContextLogger) Log(ctx context.Context, category msdsn.Log, msg string) {
	level, ok := driverLogLevels[category]
	if !ok {
		level = zerolog.DebugLevel
	}
	name, ok := driverLogNames[category]
	if !ok {
		name = "other"
	}
	l.logger.WithLevel(level).Str("category", name).Msg(msg)
}

// SetDriverLogger routes the driver's own log stream into logger.
// Which categories the driver emits is chosen by Config.DriverLog.
// The driver keeps one logger per process.
func SetDriverLogger(logger zerolog.Logger) {
	mssqldb.SetContextLogger(&zerologContextLogger{
		logger: logger.With().Str("component", "go-mssqldb").Logger(),
	})
}

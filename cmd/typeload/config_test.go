package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruslano69/mssql-typeload/pkg/adapters"
)

func envWith(conn string) adapters.LookupFunc {
	return func(key string) (string, bool) {
		if key == adapters.EnvConnString {
			return conn, true
		}
		return "", false
	}
}

func TestConnection(t *testing.T) {
	fields := DatabaseConfig{
		Host:           "file.host",
		Port:           1444,
		Database:       "FromFile",
		User:           "u",
		Password:       "p",
		ConnectTimeout: 15,
		DriverLog:      1,
	}

	tests := []struct {
		name     string
		db       DatabaseConfig
		env      adapters.LookupFunc
		wantHost string
		wantDB   string
	}{
		{
			name:     "environment wins",
			db:       DatabaseConfig{ConnString: "server=file.host;user=u"},
			env:      envWith("server=env.host;database=FromEnv;user=e"),
			wantHost: "env.host",
			wantDB:   "FromEnv",
		},
		{
			name:     "connection string",
			db:       DatabaseConfig{ConnString: "server=tcp:cs.host,1500;database=FromString;user=u"},
			env:      noEnv,
			wantHost: "cs.host",
			wantDB:   "FromString",
		},
		{
			name:     "discrete fields",
			db:       fields,
			env:      noEnv,
			wantHost: "file.host",
			wantDB:   "FromFile",
		},
		{
			name:     "built-in default",
			env:      noEnv,
			wantHost: "localhost",
			wantDB:   "DestinationDB",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Database: tt.db}
			got, err := cfg.Connection(tt.env)
			require.NoError(t, err)

			assert.Equal(t, tt.wantHost, got.Host)
			assert.Equal(t, tt.wantDB, got.Database)
			assert.Equal(t, "mssql", got.Type)
			assert.Equal(t, "typeload", got.AppName)
		})
	}

	got, err := (&Config{Database: fields}).Connection(noEnv)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, got.ConnectTimeout)
	assert.Equal(t, uint64(1), got.DriverLog)
	assert.Equal(t, "file.host:1444", got.Addr())
}

func TestConnection_Invalid(t *testing.T) {
	_, err := (&Config{}).Connection(envWith("database=NoServer"))
	assert.ErrorContains(t, err, adapters.EnvConnString)

	_, err = (&Config{Database: DatabaseConfig{ConnString: "server=x;encrypt=maybe"}}).Connection(noEnv)
	assert.Error(t, err)
}

func TestRunOptions(t *testing.T) {
	opts := RunConfig{Rows: 10, Parallel: 3, Verify: true}.Options()
	assert.Equal(t, 10, opts.Rows)
	assert.Equal(t, 3, opts.Parallel)
	assert.True(t, opts.Verify)
	assert.Empty(t, opts.Bulk)

	opts = RunConfig{Bulk: adapters.BulkOptions{Tablock: true, RowsPerBatch: 5000}}.Options()
	require.Len(t, opts.Bulk, 1)
	applied := adapters.ApplyBulkOptions(opts.Bulk...)
	assert.True(t, applied.Tablock)
	assert.Equal(t, 5000, applied.RowsPerBatch)
}

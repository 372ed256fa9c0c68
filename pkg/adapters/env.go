package adapters

import (
	"fmt"
	"os"
)

// EnvConnString - environment variable holding the ADO connection string
const EnvConnString = "SQL_AUTH_CONN_STRING"

// DefaultConnString is used when EnvConnString is not set.
const DefaultConnString = `server=tcp:localhost\sql2022d,22828;database=DestinationDB;user=developer;password=developer;TrustServerCertificate=true`

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// FromEnv resolves the connection descriptor from EnvConnString, falling
// back to DefaultConnString. Call it once at start-up and pass the Config
// down. A nil lookup reads the process environment.
func FromEnv(lookup LookupFunc) (Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	connStr, ok := lookup(EnvConnString)
	if !ok || connStr == "" {
		connStr = DefaultConnString
	}

	cfg, err := ParseConnString(connStr)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", EnvConnString, err)
	}
	return cfg, nil
}

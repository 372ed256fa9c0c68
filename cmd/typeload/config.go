package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ruslano69/mssql-typeload/pkg/adapters"
	"github.com/ruslano69/mssql-typeload/pkg/harness"
	"github.com/ruslano69/mssql-typeload/pkg/logging"
	"github.com/ruslano69/mssql-typeload/pkg/resultlog"
)

// Config represents the main configuration structure
type Config struct {
	Database  DatabaseConfig   `yaml:"database"`
	Run       RunConfig        `yaml:"run,omitempty"`
	Log       logging.Config   `yaml:"log,omitempty"`
	ResultLog resultlog.Config `yaml:"result_log,omitempty"`
	Metrics   MetricsConfig    `yaml:"metrics,omitempty"`
}

// DatabaseConfig contains database connection settings.
// ConnString wins over the discrete fields.
type DatabaseConfig struct {
	Type                   string `yaml:"type"`                  // mssql
	ConnString             string `yaml:"conn_string,omitempty"` // ADO connection string
	Host                   string `yaml:"host,omitempty"`
	Instance               string `yaml:"instance,omitempty"`
	Port                   int    `yaml:"port,omitempty"`
	Database               string `yaml:"database,omitempty"`
	User                   string `yaml:"user,omitempty"`
	Password               string `yaml:"password,omitempty"`
	TrustServerCertificate bool   `yaml:"trust_server_certificate,omitempty"`
	Encrypt                string `yaml:"encrypt,omitempty"`         // true, false, disable
	AppName                string `yaml:"app_name,omitempty"`        // reported to the server
	ConnectTimeout         int    `yaml:"connect_timeout,omitempty"` // seconds
	DriverLog              uint64 `yaml:"driver_log,omitempty"`      // msdsn.Log bit set
}

// RunConfig contains case selection and runner settings
type RunConfig struct {
	Cases         []string             `yaml:"cases,omitempty"` // empty runs the whole catalog
	Rows          int                  `yaml:"rows,omitempty"`  // row count override for bulk cases
	Parallel      int                  `yaml:"parallel,omitempty"`
	Verify        bool                 `yaml:"verify"`
	Truncate      bool                 `yaml:"truncate"`
	FailFast      bool                 `yaml:"fail_fast"`
	ProgressEvery int                  `yaml:"progress_every,omitempty"`
	Bulk          adapters.BulkOptions `yaml:"bulk,omitempty"`
}

// MetricsConfig for the Prometheus endpoint
type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty"` // e.g. :9108, empty disables
}

// LoadConfig loads configuration from YAML file
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// SaveConfig saves configuration to YAML file
func SaveConfig(filename string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// CreateSampleConfig creates a sample configuration
func CreateSampleConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Type:                   "mssql",
			Host:                   "localhost",
			Instance:               "sql2022d",
			Port:                   22828,
			Database:               "DestinationDB",
			User:                   "developer",
			Password:               "developer",
			TrustServerCertificate: true,
			AppName:                "typeload",
			ConnectTimeout:         30,
		},
		Run: RunConfig{
			Parallel:      4,
			Verify:        true,
			Truncate:      true,
			ProgressEvery: 100000,
			Bulk: adapters.BulkOptions{
				Tablock: true,
			},
		},
		Log: logging.Config{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
		ResultLog: resultlog.Config{
			Enabled: false,
			Address: "localhost:6379",
			Prefix:  resultlog.DefaultPrefix,
			TTL:     86400,
		},
	}
}

// Connection resolves the connection descriptor. A non-empty
// SQL_AUTH_CONN_STRING overrides the file; with neither, the built-in
// default connection string is used.
func (c *Config) Connection(lookup adapters.LookupFunc) (adapters.Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	var (
		cfg adapters.Config
		err error
	)

	db := c.Database
	if v, ok := lookup(adapters.EnvConnString); ok && v != "" {
		cfg, err = adapters.FromEnv(lookup)
	} else if db.ConnString != "" {
		cfg, err = adapters.ParseConnString(db.ConnString)
	} else if db.Host != "" {
		cfg = adapters.Config{
			Host:                   db.Host,
			Instance:               db.Instance,
			Port:                   db.Port,
			Database:               db.Database,
			User:                   db.User,
			Password:               db.Password,
			TrustServerCertificate: db.TrustServerCertificate,
			Encrypt:                db.Encrypt,
			AppName:                db.AppName,
			ConnectTimeout:         time.Duration(db.ConnectTimeout) * time.Second,
		}
	} else {
		cfg, err = adapters.FromEnv(lookup)
	}
	if err != nil {
		return adapters.Config{}, err
	}

	cfg.Type = db.Type
	if cfg.Type == "" {
		cfg.Type = "mssql"
	}
	if cfg.AppName == "" {
		cfg.AppName = "typeload"
	}
	if db.DriverLog != 0 {
		cfg.DriverLog = db.DriverLog
	}

	return cfg, nil
}

// Options converts the run section, applying command line overrides
// already written into it.
func (r RunConfig) Options() harness.Options {
	opts := harness.Options{
		Rows:          r.Rows,
		Parallel:      r.Parallel,
		Truncate:      r.Truncate,
		Verify:        r.Verify,
		FailFast:      r.FailFast,
		ProgressEvery: r.ProgressEvery,
	}
	if !isZeroBulk(r.Bulk) {
		opts.Bulk = []adapters.BulkOption{adapters.WithBulkOptions(r.Bulk)}
	}
	return opts
}

func isZeroBulk(o adapters.BulkOptions) bool {
	return !o.CheckConstraints && !o.FireTriggers && !o.KeepNulls && !o.Tablock &&
		o.KilobytesPerBatch == 0 && o.RowsPerBatch == 0 && len(o.Order) == 0
}

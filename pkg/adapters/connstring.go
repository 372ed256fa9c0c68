package adapters

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/denisenkom/go-mssqldb/msdsn"
)

// DefaultPort - SQL Server default TCP port
const DefaultPort = 1433

// ParseConnString parses a connection string with the driver's own parser:
//
//	server=tcp:localhost\sql2022d,22828;database=DestinationDB;user=developer;password=developer;TrustServerCertificate=true
//
// ADO, odbc: and sqlserver:// forms are accepted. Keys are case-insensitive
// and unknown keys are ignored.
func ParseConnString(s string) (Config, error) {
	p, params, err := msdsn.Parse(s)
	if err != nil {
		return Config{}, fmt.Errorf("connection string: %w", err)
	}

	// msdsn falls back to localhost for an empty server
	if strings.TrimSpace(params["server"]) == "" {
		return Config{}, fmt.Errorf("connection string has no server")
	}
	for _, key := range []string{"integrated security", "trusted_connection"} {
		v, ok := params[key]
		if !ok {
			continue
		}
		if b, _ := strconv.ParseBool(v); b || strings.EqualFold(v, "sspi") {
			return Config{}, fmt.Errorf("integrated security is not supported, use SQL authentication")
		}
	}

	cfg := Config{
		Type:           "mssql",
		Host:           p.Host,
		Instance:       p.Instance,
		Port:           int(p.Port),
		Database:       p.Database,
		User:           p.User,
		Password:       p.Password,
		ConnectTimeout: p.ConnTimeout,
		DriverLog:      uint64(p.LogFlags),
	}

	if v, ok := params["trustservercertificate"]; ok {
		// already validated by msdsn
		cfg.TrustServerCertificate, _ = strconv.ParseBool(v)
	}
	if _, ok := params["encrypt"]; ok {
		switch p.Encryption {
		case msdsn.EncryptionRequired:
			cfg.Encrypt = "true"
		case msdsn.EncryptionDisabled:
			cfg.Encrypt = "disable"
		default:
			cfg.Encrypt = "false"
		}
	}
	// msdsn defaults AppName to the driver name
	if _, ok := params["app name"]; ok {
		cfg.AppName = p.AppName
	}

	return cfg, nil
}

// EffectivePort returns the configured port or DefaultPort.
func (c Config) EffectivePort() int {
	if c.Port == 0 {
		return DefaultPort
	}
	return c.Port
}

// Addr returns the host:port the TCP stream is dialed to.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.EffectivePort()))
}

// DSN renders the config as a sqlserver:// URL understood by go-mssqldb.
func (c Config) DSN() string {
	q := url.Values{}
	if c.Database != "" {
		q.Set("database", c.Database)
	}
	if c.TrustServerCertificate {
		q.Set("TrustServerCertificate", "true")
	}
	if c.Encrypt != "" {
		q.Set("encrypt", c.Encrypt)
	}
	if c.AppName != "" {
		q.Set("app name", c.AppName)
	}
	if c.ConnectTimeout > 0 {
		q.Set("connection timeout", strconv.Itoa(int(c.ConnectTimeout/time.Second)))
	}
	if c.DriverLog > 0 {
		q.Set("log", strconv.FormatUint(c.DriverLog, 10))
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		Host:     c.Addr(),
		RawQuery: q.Encode(),
	}
	if c.User != "" {
		u.User = url.UserPassword(c.User, c.Password)
	}
	if c.Instance != "" && c.Port == 0 {
		// no explicit port: let the driver ask SQL Browser for it
		u.Host = c.Host
		u.Path = c.Instance
	}
	return u.String()
}

// Validate checks the fields every connection needs.
func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("server host is required")
	}
	if c.User == "" {
		return fmt.Errorf("user is required for SQL authentication")
	}
	return nil
}

// String renders the config without the password.
func (c Config) String() string {
	server := c.Host
	if c.Instance != "" {
		server += `\` + c.Instance
	}
	return fmt.Sprintf("%s,%d database=%s user=%s", server, c.EffectivePort(), c.Database, c.User)
}

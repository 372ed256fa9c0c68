// Package logging builds the zerolog logger used by the typeload tools.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config - log output settings.
type Config struct {
	// Level is one of trace, debug, info, warn, error. Empty means info.
	Level string `yaml:"level"`

	// Format is "console" or "json". Empty means console.
	Format string `yaml:"format"`

	// File, when set, receives JSON lines in addition to stderr.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// New builds a logger writing to out and, if configured, to a rotated file.
// The returned closer flushes the file and must be called on exit.
func New(cfg Config, out io.Writer) (zerolog.Logger, io.Closer, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}

	var console io.Writer
	switch strings.ToLower(cfg.Format) {
	case "", "console":
		console = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	case "json":
		console = out
	default:
		return zerolog.Nop(), nopCloser{}, fmt.Errorf("invalid log format %q", cfg.Format)
	}

	var closer io.Closer = nopCloser{}
	writer := console
	if cfg.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		writer = zerolog.MultiLevelWriter(console, file)
		closer = file
	}

	logger := zerolog.New(writer).Level(level).With().Timestamp().Logger()
	return logger, closer, nil
}

// Setup is New writing to stderr.
func Setup(cfg Config) (zerolog.Logger, io.Closer, error) {
	return New(cfg, os.Stderr)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

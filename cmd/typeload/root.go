package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ruslano69/mssql-typeload/pkg/adapters"
	"github.com/ruslano69/mssql-typeload/pkg/adapters/mssql"
	"github.com/ruslano69/mssql-typeload/pkg/logging"
)

const defaultConfigPath = "typeload.yaml"

// offlineAnnotation marks commands that never talk to the server.
const offlineAnnotation = "offline"

// ConnectFunc opens a connected loader.
type ConnectFunc func(ctx context.Context, cfg adapters.Config) (adapters.Loader, error)

// app carries the state shared by the commands of one invocation.
type app struct {
	lookup  adapters.LookupFunc
	connect ConnectFunc

	configPath string
	logLevel   string

	cfg      *Config
	conn     adapters.Config
	logger   zerolog.Logger
	logClose io.Closer
}

func newApp(lookup adapters.LookupFunc, connect ConnectFunc) *app {
	if connect == nil {
		connect = adapters.New
	}
	return &app{lookup: lookup, connect: connect, logger: zerolog.Nop()}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "typeload",
		Short:         "SQL Server type loader",
		Long:          "Loads every SQL Server data type through bulk copy and parameterised inserts and verifies the stored rows.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.prepare(cmd)
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return a.close()
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", defaultConfigPath, "path to the YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level override (trace, debug, info, warn, error)")

	root.AddCommand(
		newConnectCmd(a),
		newListCmd(a),
		newSetupCmd(a),
		newRunCmd(a),
		newConfigCmd(a),
	)
	return root
}

// prepare loads the config, sets up logging and resolves the connection once.
func (a *app) prepare(cmd *cobra.Command) error {
	cfg, err := LoadConfig(a.configPath)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config"):
		cfg = &Config{}
	default:
		return err
	}
	a.cfg = cfg

	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	logger, closer, err := logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.logger, a.logClose = logger, closer
	log.Logger = logger
	mssql.SetDriverLogger(logger)

	if cmd.Annotations[offlineAnnotation] != "" {
		return nil
	}

	conn, err := cfg.Connection(a.lookup)
	if err != nil {
		return fmt.Errorf("invalid connection settings: %w", err)
	}
	a.conn = conn
	return nil
}

func (a *app) close() error {
	if a.logClose == nil {
		return nil
	}
	err := a.logClose.Close()
	a.logClose = nil
	return err
}

// open connects a loader with the resolved connection.
func (a *app) open(ctx context.Context) (adapters.Loader, error) {
	return a.connect(ctx, a.conn)
}

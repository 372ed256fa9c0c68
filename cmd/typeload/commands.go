package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ruslano69/mssql-typeload/pkg/adapters"
	"github.com/ruslano69/mssql-typeload/pkg/harness"
	"github.com/ruslano69/mssql-typeload/pkg/metrics"
	"github.com/ruslano69/mssql-typeload/pkg/resultlog"
)

func newConnectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Connect, print the server version and disconnect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			loader, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer loader.Close(ctx)

			if err := loader.Ping(ctx); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Connected to %s (%s %s)\n",
				a.conn, loader.GetDatabaseType(), loader.ServerVersion())
			return nil
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "list",
		Short:       "List the case catalog",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{offlineAnnotation: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CASE\tMODE\tTABLE\tROWS")
			for _, c := range harness.Catalog() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", c.Name, c.Mode, c.Spec.Table, c.Expected())
			}
			return w.Flush()
		},
	}
}

func newSetupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "setup [case...]",
		Short: "Create the missing fixture tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cases, err := a.selectCases(args)
			if err != nil {
				return err
			}

			loader, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer loader.Close(ctx)

			if err := harness.Setup(ctx, loader, cases); err != nil {
				return err
			}

			tables := harness.Tables(cases)
			a.logger.Info().Int("tables", len(tables)).Msg("fixture tables ready")
			for _, spec := range tables {
				fmt.Fprintln(cmd.OutOrStdout(), spec.Table)
			}
			return nil
		},
	}
}

type runFlags struct {
	rows        int
	parallel    int
	verify      bool
	truncate    bool
	failFast    bool
	setup       bool
	progress    int
	metricsAddr string
}

func newRunCmd(a *app) *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run [case...]",
		Short: "Run load cases, the whole catalog by default",
		RunE: func(cmd *cobra.Command, args []string) error {
			a.applyRunFlags(cmd, f)
			return a.run(cmd, args, f.setup)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&f.rows, "rows", 0, "row count override for bulk cases")
	flags.IntVarP(&f.parallel, "parallel", "p", 1, "tables loaded at once")
	flags.BoolVar(&f.verify, "verify", false, "read tables back and compare digests (implies --truncate)")
	flags.BoolVar(&f.truncate, "truncate", false, "empty fixture tables before loading")
	flags.BoolVar(&f.failFast, "fail-fast", false, "stop after the first failed case")
	flags.BoolVar(&f.setup, "setup", false, "create missing fixture tables first")
	flags.IntVar(&f.progress, "progress", 0, "log bulk progress every n rows")
	flags.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

// applyRunFlags writes explicitly set flags over the run section.
func (a *app) applyRunFlags(cmd *cobra.Command, f runFlags) {
	run := &a.cfg.Run
	flags := cmd.Flags()
	if flags.Changed("rows") {
		run.Rows = f.rows
	}
	if flags.Changed("parallel") {
		run.Parallel = f.parallel
	}
	if flags.Changed("verify") {
		run.Verify = f.verify
	}
	if flags.Changed("truncate") {
		run.Truncate = f.truncate
	}
	if flags.Changed("fail-fast") {
		run.FailFast = f.failFast
	}
	if flags.Changed("progress") {
		run.ProgressEvery = f.progress
	}
	if flags.Changed("metrics-addr") {
		a.cfg.Metrics.Addr = f.metricsAddr
	}
}

func (a *app) run(cmd *cobra.Command, args []string, setup bool) error {
	ctx := cmd.Context()

	cases, err := a.selectCases(args)
	if err != nil {
		return err
	}

	if setup {
		loader, err := a.open(ctx)
		if err != nil {
			return err
		}
		err = harness.Setup(ctx, loader, cases)
		loader.Close(ctx)
		if err != nil {
			return err
		}
	}

	m := metrics.New()
	if addr := a.cfg.Metrics.Addr; addr != "" {
		srv := &http.Server{Addr: addr, Handler: m.Handler(), ReadHeaderTimeout: 10 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
			}
		}()
		defer srv.Close()
		a.logger.Info().Str("addr", addr).Msg("metrics server started")
	}

	var publisher *resultlog.RedisPublisher
	if a.cfg.ResultLog.Enabled {
		publisher = resultlog.NewRedisPublisher(a.cfg.ResultLog)
		defer publisher.Close()
	}

	runner := harness.NewRunner(func(ctx context.Context) (adapters.Loader, error) {
		return a.open(ctx)
	}, a.cfg.Run.Options(), a.logger)

	runner.OnResult(func(res harness.Result) {
		m.Observe(res)
		if publisher == nil {
			return
		}
		if err := publisher.Publish(ctx, res); err != nil {
			a.logger.Warn().Err(err).Str("case", res.Name).Msg("failed to publish result")
		}
	})

	results, runErr := runner.Run(ctx, cases)
	if err := printResults(cmd, results); err != nil {
		return err
	}
	return runErr
}

func printResults(cmd *cobra.Command, results []harness.Result) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CASE\tMODE\tSENT\tAFFECTED\tDURATION\tVERIFIED\tSTATUS")

	failed := 0
	for _, r := range results {
		status := "ok"
		if !r.OK() {
			status = "FAILED"
			failed++
		}
		verified := "-"
		if r.Verified {
			verified = fmt.Sprintf("%t", r.Match)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			r.Name, r.Mode, r.RowsSent, r.RowsAffected, r.Duration.Round(time.Millisecond), verified, status)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n%d cases, %d failed\n", len(results), failed)
	return nil
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:         "init [path]",
		Short:       "Write a sample config file",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{offlineAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.configPath
			if len(args) == 1 {
				path = args[0]
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", path)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}

			if err := SaveConfig(path, CreateSampleConfig()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sample config written to %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}

// selectCases picks args, else the configured cases, else the catalog.
func (a *app) selectCases(args []string) ([]harness.Case, error) {
	names := args
	if len(names) == 0 {
		names = a.cfg.Run.Cases
	}
	return harness.Select(harness.Catalog(), names...)
}

package harness

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ruslano69/mssql-typeload/pkg/adapters"
	"github.com/ruslano69/mssql-typeload/pkg/core/schema"
)

var (
	// ErrRowCount - the server reported a different affected-row count
	ErrRowCount = errors.New("affected row count mismatch")

	// ErrDigestMismatch - the rows read back differ from the rows sent
	ErrDigestMismatch = errors.New("read-back digest mismatch")
)

// ConnectFunc opens a new connected loader. Every case gets its own.
type ConnectFunc func(ctx context.Context) (adapters.Loader, error)

// Options control a run.
type Options struct {
	// Rows overrides the row count of non-empty bulk cases, 0 keeps them
	Rows int

	// Parallel bounds how many tables load at once, values below 1 mean 1
	Parallel int

	// Truncate empties each fixture table before its case runs
	Truncate bool

	// Verify reads each table back and compares digests; implies Truncate
	Verify bool

	// FailFast cancels the remaining cases after the first failure
	FailFast bool

	// ProgressEvery logs bulk progress every n rows, 0 disables
	ProgressEvery int

	// Bulk options passed to every bulk session
	Bulk []adapters.BulkOption
}

// Result is the outcome of one case.
type Result struct {
	Name         string
	Mode         Mode
	Table        string
	Expected     int64
	RowsSent     int64
	RowsAffected int64
	StartedAt    time.Time
	Duration     time.Duration

	// Verified is set when the table was read back; Digest is the digest
	// of the rows sent and Match the comparison outcome
	Verified bool
	Digest   string
	Match    bool

	Err error
}

// OK reports whether the case succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Runner executes cases against loaders produced by a ConnectFunc.
type Runner struct {
	connect  ConnectFunc
	opts     Options
	logger   zerolog.Logger
	onResult func(Result)
}

// NewRunner creates a runner.
func NewRunner(connect ConnectFunc, opts Options, logger zerolog.Logger) *Runner {
	if opts.Parallel < 1 {
		opts.Parallel = 1
	}
	if opts.Verify {
		opts.Truncate = true
	}
	return &Runner{
		connect: connect,
		opts:    opts,
		logger:  logger.With().Str("component", "harness").Logger(),
	}
}

// OnResult registers fn to be called after every case. Calls may come
// from several goroutines.
func (r *Runner) OnResult(fn func(Result)) {
	r.onResult = fn
}

// Run executes cases and returns one result per case, in input order.
// Cases sharing a table run sequentially in input order; different tables
// run concurrently up to Options.Parallel. The returned error aggregates
// every failed case.
func (r *Runner) Run(ctx context.Context, cases []Case) ([]Result, error) {
	results := make([]Result, len(cases))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Parallel)

	for _, group := range groupByTable(cases) {
		group := group
		g.Go(func() error {
			var failed error
			for _, i := range group {
				if r.opts.FailFast {
					if failed == nil {
						failed = gctx.Err()
					}
					if failed != nil {
						results[i] = skipped(cases[i], failed)
						continue
					}
				}

				results[i] = r.RunCase(gctx, cases[i])

				if r.opts.FailFast && results[i].Err != nil {
					failed = results[i].Err
				}
			}
			return failed
		})
	}

	// failures are collected from results below
	_ = g.Wait()

	var result *multierror.Error
	for _, res := range results {
		if res.Err != nil {
			result = multierror.Append(result, fmt.Errorf("case %s: %w", res.Name, res.Err))
		}
	}

	return results, result.ErrorOrNil()
}

func skipped(c Case, err error) Result {
	return Result{
		Name:     c.Name,
		Mode:     c.Mode,
		Table:    c.Spec.Table,
		Expected: c.Expected(),
		Err:      fmt.Errorf("skipped: %w", err),
	}
}

// groupByTable returns case indices grouped by fixture table, groups in
// order of first appearance. Cases without a table are groups of their own.
func groupByTable(cases []Case) [][]int {
	var groups [][]int
	byTable := make(map[string]int)

	for i, c := range cases {
		if !c.HasTable() {
			groups = append(groups, []int{i})
			continue
		}
		key := strings.ToLower(c.Spec.Table)
		if g, ok := byTable[key]; ok {
			groups[g] = append(groups[g], i)
			continue
		}
		byTable[key] = len(groups)
		groups = append(groups, []int{i})
	}

	return groups
}

// RunCase runs one case on a fresh loader.
func (r *Runner) RunCase(ctx context.Context, c Case) Result {
	if r.opts.Rows > 0 {
		c = c.WithRows(r.opts.Rows)
	}

	res := Result{
		Name:      c.Name,
		Mode:      c.Mode,
		Table:     c.Spec.Table,
		Expected:  c.Expected(),
		StartedAt: time.Now(),
	}

	logger := r.logger.With().Str("case", c.Name).Str("mode", c.Mode.String()).Logger()
	logger.Info().Str("table", c.Spec.Table).Int64("expected", res.Expected).Msg("case started")

	res.Err = r.runCase(ctx, c, &res, logger)
	res.Duration = time.Since(res.StartedAt)

	if res.Err != nil {
		logger.Error().Err(res.Err).
			Int64("sent", res.RowsSent).
			Dur("elapsed", res.Duration).
			Msg("case failed")
	} else {
		logger.Info().
			Int64("rows_affected", res.RowsAffected).
			Bool("verified", res.Verified).
			Dur("elapsed", res.Duration).
			Msg("case passed")
	}

	if r.onResult != nil {
		r.onResult(res)
	}

	return res
}

func (r *Runner) runCase(ctx context.Context, c Case, res *Result, logger zerolog.Logger) (err error) {
	loader, err := r.connect(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := loader.Close(ctx); cerr != nil && err == nil {
			logger.Warn().Err(cerr).Msg("failed to close loader")
		}
	}()

	switch c.Mode {
	case ModeConnect:
		return loader.Ping(ctx)
	case ModeBulk:
		return r.runBulk(ctx, loader, c, res, logger)
	case ModeExec:
		return r.runExec(ctx, loader, c, res)
	default:
		return fmt.Errorf("unknown case mode %s", c.Mode)
	}
}

func (r *Runner) runBulk(ctx context.Context, loader adapters.Loader, c Case, res *Result, logger zerolog.Logger) error {
	if r.opts.Truncate {
		if err := loader.Truncate(ctx, c.Spec.Table); err != nil {
			return err
		}
	}

	var want *schema.Digest
	if r.opts.Verify {
		want = schema.NewDigest(c.Spec)
	}

	session, err := loader.OpenBulk(ctx, c.Spec, r.opts.Bulk...)
	if err != nil {
		return err
	}

	abort := func(cause error) error {
		if aerr := session.Abort(); aerr != nil {
			logger.Warn().Err(aerr).Msg("failed to abort bulk session")
		}
		res.RowsSent = session.Sent()
		return cause
	}

	for i := 0; i < c.Rows; i++ {
		if err := ctx.Err(); err != nil {
			return abort(err)
		}
		row := c.Row(i)

		if err := session.Send(ctx, row); err != nil {
			res.RowsSent = session.Sent()
			return err
		}

		if want != nil {
			if err := want.Add(row); err != nil {
				return abort(err)
			}
		}

		if r.opts.ProgressEvery > 0 && (i+1)%r.opts.ProgressEvery == 0 {
			logger.Debug().Int("sent", i+1).Int("total", c.Rows).Msg("loading")
		}
	}

	done, err := session.Finalize(ctx)
	res.RowsSent = session.Sent()
	if err != nil {
		return err
	}
	res.RowsAffected = done.RowsAffected

	if done.RowsAffected != res.Expected {
		return fmt.Errorf("%w: expected %d, got %d", ErrRowCount, res.Expected, done.RowsAffected)
	}

	if want != nil {
		return r.verify(ctx, loader, c.Spec, want, res)
	}
	return nil
}

func (r *Runner) runExec(ctx context.Context, loader adapters.Loader, c Case, res *Result) error {
	if r.opts.Truncate {
		if err := loader.Truncate(ctx, c.Spec.Table); err != nil {
			return err
		}
	}

	done, err := loader.Execute(ctx, c.Statement(), c.Params...)
	if err != nil {
		return err
	}
	res.RowsSent = 1
	res.RowsAffected = done.RowsAffected

	if done.RowsAffected != res.Expected {
		return fmt.Errorf("%w: expected %d, got %d", ErrRowCount, res.Expected, done.RowsAffected)
	}

	if r.opts.Verify {
		want := schema.NewDigest(c.Spec)
		if err := want.Add(c.Params); err != nil {
			return err
		}
		return r.verify(ctx, loader, c.Spec, want, res)
	}
	return nil
}

// verify reads the table back and compares its digest with want.
func (r *Runner) verify(ctx context.Context, loader adapters.Loader, spec schema.TableSpec, want *schema.Digest, res *Result) error {
	got := schema.NewDigest(spec)
	if err := loader.ReadRows(ctx, spec, got.Add); err != nil {
		return err
	}

	res.Verified = true
	res.Digest = want.Sum()
	res.Match = want.Equal(got)

	if !res.Match {
		return fmt.Errorf("%w: sent %d rows (%s), read %d rows (%s)",
			ErrDigestMismatch, want.Count(), want.Sum(), got.Count(), got.Sum())
	}
	return nil
}

// Setup creates every missing fixture table of cases.
func Setup(ctx context.Context, loader adapters.Loader, cases []Case) error {
	for _, spec := range Tables(cases) {
		if _, err := loader.Execute(ctx, spec.CreateTableSQL()); err != nil {
			return fmt.Errorf("failed to create table %s: %w", spec.Table, err)
		}
	}
	return nil
}

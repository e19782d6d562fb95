package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/cellsim/internal/engine"
	"github.com/roach88/cellsim/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Grid           GridSource
	Ticks          int
	UntilStable    bool
	Database       string
	Workers        int
	MaxGenerations int64
	PrintGrid      bool

	// RunIDGenerator allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDGenerator engine.RunIDGenerator
}

// RunResult is the outcome of the run command.
type RunResult struct {
	engine.RunSummary
	Ruleset     string   `json:"ruleset"`
	RulesetHash string   `json:"ruleset_hash"`
	Width       int      `json:"width"`
	Height      int      `json:"height"`
	Rows        []string `json:"rows,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <ruleset>",
		Short: "Run a ruleset over a grid",
		Long: `Run a ruleset headlessly over an initial grid.

The grid comes from a YAML grid file (--grid) or a seeded random fill
(--width, --height, --seed). Either step a fixed number of generations
(--ticks) or until a generation repeats (--until-stable), bounded by
--max-generations.

With --db every generation hash and rule firing count is appended to a
SQLite run log for later replay and trace.

Environment: CELLSIM_DB, CELLSIM_WORKERS, CELLSIM_MAX_GENERATIONS.

Examples:
  cellsim run circuit.toml --grid start.yaml --ticks 10
  cellsim run circuit.toml --width 64 --height 64 --seed 7 --until-stable --db runs.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			applyRunDefaults(opts, cmd)
			return runSimulation(opts, args[0], cmd)
		},
	}

	addGridFlags(cmd, &opts.Grid)
	cmd.Flags().IntVar(&opts.Ticks, "ticks", 1, "generations to compute")
	cmd.Flags().BoolVar(&opts.UntilStable, "until-stable", false, "step until a generation repeats")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run log (optional)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "parallel row bands (0 = GOMAXPROCS)")
	cmd.Flags().Int64Var(&opts.MaxGenerations, "max-generations", engine.DefaultMaxGenerations, "limit for --until-stable")
	cmd.Flags().BoolVar(&opts.PrintGrid, "print", false, "print the final grid")

	return cmd
}

// addGridFlags registers the flags that build the initial grid.
func addGridFlags(cmd *cobra.Command, g *GridSource) {
	cmd.Flags().StringVar(&g.File, "grid", "", "YAML grid file {rows: [...]}")
	cmd.Flags().IntVar(&g.Width, "width", 0, "random grid width")
	cmd.Flags().IntVar(&g.Height, "height", 0, "random grid height")
	cmd.Flags().Uint64Var(&g.Seed, "seed", 0, "random fill seed")
	cmd.Flags().StringSliceVar(&g.Types, "types", nil, "cell types for the random fill (default all)")
}

// applyRunDefaults fills flags the user did not set from the environment.
func applyRunDefaults(opts *RunOptions, cmd *cobra.Command) {
	cfg := opts.Config
	if !cmd.Flags().Changed("db") && cfg.DB != "" {
		opts.Database = cfg.DB
	}
	if !cmd.Flags().Changed("workers") && cfg.Workers > 0 {
		opts.Workers = cfg.Workers
	}
	if !cmd.Flags().Changed("max-generations") && cfg.MaxGenerations > 0 {
		opts.MaxGenerations = cfg.MaxGenerations
	}
}

func runSimulation(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := opts.logger()

	if opts.Ticks < 0 {
		return NewExitError(ExitCommandError, "--ticks must be non-negative")
	}
	if opts.MaxGenerations <= 0 {
		return NewExitError(ExitCommandError, "--max-generations must be positive")
	}

	rs, err := LoadRuleset(path)
	if err != nil {
		return formatter.commandError("failed to load ruleset", err)
	}
	logger.Info("ruleset loaded", "rules", rs.Table.Len(), "types", len(rs.Decl.Cells), "hash", rs.Hash)

	grid, err := opts.Grid.Build(rs)
	if err != nil {
		return formatter.commandError("failed to build grid", err)
	}

	simOpts := []engine.SimulationOption{
		engine.WithWorkers(opts.Workers),
		engine.WithMaxGenerations(opts.MaxGenerations),
		engine.WithLogger(logger),
		engine.WithRulesetHash(rs.Hash),
	}
	if opts.RunIDGenerator != nil {
		simOpts = append(simOpts, engine.WithRunIDGenerator(opts.RunIDGenerator))
	}

	if opts.Database != "" {
		logger.Info("opening run log", "path", opts.Database)
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		simOpts = append(simOpts, engine.WithRecorder(st))
	}

	sim, err := engine.New(rs.Table, grid, simOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start simulation", err)
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	var sum engine.RunSummary
	if opts.UntilStable {
		sum, err = sim.RunUntilStable(ctx)
	} else {
		sum, err = sim.Run(ctx, opts.Ticks)
	}

	result := RunResult{
		RunSummary:  sum,
		Ruleset:     rs.Decl.Name,
		RulesetHash: rs.Hash,
		Width:       grid.Width(),
		Height:      grid.Height(),
	}
	if opts.PrintGrid {
		result.Rows = grid.Rows(rs.Registry)
	}

	if err != nil {
		return outputRunError(formatter, result, err)
	}
	return outputRunResult(formatter, result)
}

// signalContext cancels on SIGINT/SIGTERM. Cancellation is observed
// between generations.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	// Use command's context if available (for testing), otherwise create one
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// outputRunError maps engine errors to exit codes. A run cut short by the
// generation quota or a signal is a failure, not a command error.
func outputRunError(formatter *OutputFormatter, result RunResult, err error) error {
	code := "E_RUN"
	switch {
	case engine.IsQuotaError(err):
		code = string(engine.ErrCodeGenerationsExceeded)
	case engine.IsInvariantError(err):
		code = string(engine.ErrCodeInvariantViolation)
	}

	if formatter.JSON() {
		if encErr := formatter.Failure(code, err.Error(), result); encErr != nil {
			return encErr
		}
	} else {
		fmt.Fprintf(formatter.Writer, "✗ Run %s stopped at generation %d\n", result.RunID, result.Generation)
		fmt.Fprintf(formatter.Writer, "  %s\n", err)
	}
	return WrapExitError(ExitFailure, "run failed", err)
}

// outputRunResult outputs the run summary.
func outputRunResult(formatter *OutputFormatter, result RunResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Run %s: %s on %dx%d\n", result.RunID, result.Ruleset, result.Width, result.Height)
	fmt.Fprintf(w, "  Generation: %d\n", result.Generation)
	fmt.Fprintf(w, "  Changed: %d cell(s)\n", result.Changed)
	fmt.Fprintf(w, "  Hash: %s\n", result.Hash)
	if result.Settled {
		fmt.Fprintf(w, "  Settled: period %d\n", result.Period)
	}
	for _, row := range result.Rows {
		fmt.Fprintf(w, "  | %s\n", row)
	}
	return nil
}

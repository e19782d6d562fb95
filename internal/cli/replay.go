package cli

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cellsim/internal/engine"
	"github.com/roach88/cellsim/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - defaults to the latest run
	Grid     GridSource
	Workers  int
}

// ReplayResult holds the replay result for a single run.
type ReplayResult struct {
	RunID         string            `json:"run_id"`
	Generations   int               `json:"generations"` // recorded generations, including 0
	Deterministic bool              `json:"deterministic"`
	Mismatch      string            `json:"mismatch,omitempty"`
	Details       map[string]string `json:"details,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <ruleset>",
		Short: "Re-run a recorded run and verify determinism",
		Long: `Re-run a recorded run and compare every generation hash.

The run log stores hashes, not grids, so the initial grid must be given
again with the same flags as the original run (--grid, or --width,
--height and --seed). The ruleset, grid size and generation 0 hash are
checked before stepping.

Exit codes:
  0 - Every generation matched
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, unknown run, etc.)

Examples:
  cellsim replay circuit.toml --db runs.db --grid start.yaml
  cellsim replay circuit.toml --db runs.db --run 0190... --width 64 --height 64 --seed 7`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("db") && opts.Config.DB != "" {
				opts.Database = opts.Config.DB
			}
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run log (required)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id (default: latest run)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "parallel row bands (0 = GOMAXPROCS)")
	addGridFlags(cmd, &opts.Grid)

	return cmd
}

func runReplay(opts *ReplayOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()

	if opts.Database == "" {
		return NewExitError(ExitCommandError, "required flag \"db\" not set")
	}

	// Open database
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	runID := opts.RunID
	if runID == "" {
		latest, err := st.LatestRun(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return NewExitError(ExitCommandError, "no runs found in database")
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to find latest run", err)
		}
		runID = latest.ID
	}

	run, gens, err := st.LoadRun(ctx, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return NewExitError(ExitCommandError, fmt.Sprintf("run %s not found", runID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load run", err)
	}
	formatter.VerboseLog("Loaded run %s with %d generation(s)", run.ID, len(gens))

	rs, err := LoadRuleset(path)
	if err != nil {
		return formatter.commandError("failed to load ruleset", err)
	}
	grid, err := opts.Grid.Build(rs)
	if err != nil {
		return formatter.commandError("failed to build grid", err)
	}

	sim, err := engine.New(rs.Table, grid,
		engine.WithWorkers(opts.Workers),
		engine.WithLogger(opts.logger()),
		engine.WithRulesetHash(rs.Hash),
		engine.WithRunIDGenerator(engine.NewFixedGenerator(run.ID)),
	)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start simulation", err)
	}

	result := ReplayResult{RunID: run.ID, Generations: len(gens), Deterministic: true}
	if err := engine.Verify(ctx, sim, run, gens); err != nil {
		var re *engine.RuntimeError
		if !engine.IsReplayMismatch(err) || !errors.As(err, &re) {
			return WrapExitError(ExitCommandError, "replay failed", err)
		}
		result.Deterministic = false
		result.Mismatch = re.Error()
		result.Details = re.Details
	}

	if formatter.JSON() {
		return outputReplayJSON(formatter, result)
	}
	return outputReplayText(formatter, result)
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(formatter *OutputFormatter, result ReplayResult) error {
	if result.Deterministic {
		return formatter.Success(result)
	}
	if err := formatter.Failure("E_DETERMINISM", "determinism verification failed", result); err != nil {
		return err
	}
	// Determinism failure = exit code 1
	return NewExitError(ExitFailure, "determinism verification failed")
}

// outputReplayText outputs the replay result as text.
func outputReplayText(formatter *OutputFormatter, result ReplayResult) error {
	w := formatter.Writer

	if result.Deterministic {
		fmt.Fprintf(w, "✓ Run %s verified deterministic (%d generation(s))\n", result.RunID, result.Generations)
		return nil
	}

	fmt.Fprintf(w, "✗ Run %s: determinism verification failed\n", result.RunID)
	fmt.Fprintf(w, "  %s\n", result.Mismatch)
	if want, ok := result.Details["want"]; ok {
		fmt.Fprintf(w, "  recorded: %s\n", want)
		fmt.Fprintf(w, "  replayed: %s\n", result.Details["got"])
	}
	// Determinism failure = exit code 1
	return NewExitError(ExitFailure, "determinism verification failed")
}

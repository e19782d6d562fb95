package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cellsim/internal/ir"
	"github.com/roach88/cellsim/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Database string
	Filter   store.RunFilter
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs",
		Long: `List the runs in a run log, oldest first.

Filter flags narrow the listing to runs with a given ruleset hash or
grid size.

Examples:
  cellsim runs --db runs.db
  cellsim runs --db runs.db --width 64 --height 64
  cellsim runs --db runs.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("db") && opts.Config.DB != "" {
				opts.Database = opts.Config.DB
			}
			return runListRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run log (required)")
	cmd.Flags().StringVar(&opts.Filter.RulesetHash, "ruleset-hash", "", "only runs of this ruleset hash")
	cmd.Flags().IntVar(&opts.Filter.Width, "width", 0, "only runs of this grid width")
	cmd.Flags().IntVar(&opts.Filter.Height, "height", 0, "only runs of this grid height")

	return cmd
}

func runListRuns(opts *RunsOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if opts.Database == "" {
		return NewExitError(ExitCommandError, "required flag \"db\" not set")
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	runs, err := st.FindRuns(cmd.Context(), opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	if formatter.JSON() {
		return formatter.Success(runs)
	}
	return outputRunsText(formatter, runs)
}

func outputRunsText(formatter *OutputFormatter, runs []ir.RunRecord) error {
	w := formatter.Writer
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found.")
		return nil
	}
	for _, run := range runs {
		fmt.Fprintf(w, "%s  %dx%d  ruleset %s\n", run.ID, run.Width, run.Height, shortHash(run.RulesetHash))
	}
	return nil
}

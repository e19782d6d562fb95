package cli

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cellsim/internal/ir"
	"github.com/roach88/cellsim/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database    string
	RunID       string // optional - defaults to the latest run
	Ruleset     string // optional - labels rules with their patterns
	Generations bool   // include the per-generation timeline
}

// RuleStat is the firing total of one rule over a run.
type RuleStat struct {
	Rule        int    `json:"rule"`
	Label       string `json:"label,omitempty"` // "in -> out" when the ruleset is known
	Count       int64  `json:"count"`
	Generations int    `json:"generations"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Run      ir.RunRecord          `json:"run"`
	Rules    []RuleStat            `json:"rules"`
	Timeline []ir.GenerationRecord `json:"timeline,omitempty"`
	Stats    TraceStats            `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	LastGeneration int64 `json:"last_generation"`
	TotalFirings   int64 `json:"total_firings"`
	RulesFired     int   `json:"rules_fired"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Report rule firings for a recorded run",
		Long: `Report which rules rewrote how many cells over a recorded run.

The output includes:
- Rules: per-rule firing totals and the number of generations each fired in
- Timeline: per-generation hash, change count and firings (--generations)
- Stats: summary statistics for the run

With --ruleset each rule is labelled with its input and output pattern.

Examples:
  cellsim trace --db runs.db
  cellsim trace --db runs.db --run 0190... --ruleset circuit.toml
  cellsim trace --db runs.db --generations --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("db") && opts.Config.DB != "" {
				opts.Database = opts.Config.DB
			}
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run log (required)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id (default: latest run)")
	cmd.Flags().StringVar(&opts.Ruleset, "ruleset", "", "ruleset file for rule labels")
	cmd.Flags().BoolVar(&opts.Generations, "generations", false, "include the per-generation timeline")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
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

	var run ir.RunRecord
	if opts.RunID == "" {
		run, err = st.LatestRun(ctx)
	} else {
		run, err = st.ReadRun(ctx, opts.RunID)
	}
	if errors.Is(err, sql.ErrNoRows) {
		if opts.RunID == "" {
			return NewExitError(ExitCommandError, "no runs found in database")
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("run %s not found", opts.RunID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	labels, err := ruleLabels(opts, run, formatter)
	if err != nil {
		return formatter.commandError("failed to load ruleset", err)
	}

	totals, err := st.ReadFiringTotals(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read rule firings", err)
	}

	result := TraceResult{Run: run, Rules: make([]RuleStat, 0, len(totals))}
	for _, t := range totals {
		stat := RuleStat{Rule: t.Rule, Count: t.Count, Generations: t.Generations}
		if t.Rule < len(labels) {
			stat.Label = labels[t.Rule]
		}
		result.Rules = append(result.Rules, stat)
		result.Stats.TotalFirings += t.Count
	}
	result.Stats.RulesFired = len(totals)

	last, err := st.LastGeneration(ctx, run.ID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return WrapExitError(ExitCommandError, "failed to read generations", err)
	}
	result.Stats.LastGeneration = last

	if opts.Generations {
		result.Timeline, err = st.ReadGenerations(ctx, run.ID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read generations", err)
		}
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	return outputTraceText(formatter, result, labels)
}

// ruleLabels renders "in -> out" for every rule of the --ruleset file.
// Without --ruleset there are no labels.
func ruleLabels(opts *TraceOptions, run ir.RunRecord, formatter *OutputFormatter) ([]string, error) {
	if opts.Ruleset == "" {
		return nil, nil
	}
	rs, err := LoadRuleset(opts.Ruleset)
	if err != nil {
		return nil, err
	}
	if run.RulesetHash != "" && run.RulesetHash != rs.Hash {
		fmt.Fprintf(formatter.GetErrWriter(), "warning: %s differs from the ruleset of run %s; labels may be wrong\n", opts.Ruleset, run.ID)
	}

	labels := make([]string, len(rs.Decl.Rules))
	for i, r := range rs.Decl.Rules {
		labels[i] = fmt.Sprintf("%s -> %s", r.In, r.Out)
	}
	return labels, nil
}

// outputTraceText outputs the trace as text.
func outputTraceText(formatter *OutputFormatter, result TraceResult, labels []string) error {
	w := formatter.Writer
	run := result.Run

	fmt.Fprintf(w, "Run: %s (%dx%d, generation %d)\n", run.ID, run.Width, run.Height, result.Stats.LastGeneration)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Rules:")
	if len(result.Rules) == 0 {
		fmt.Fprintln(w, "  (no rule fired)")
	}
	for _, r := range result.Rules {
		label := ""
		if r.Label != "" {
			label = "  " + r.Label
		}
		fmt.Fprintf(w, "  [%d] %d cell(s) over %d generation(s)%s\n", r.Rule, r.Count, r.Generations, label)
	}

	if len(result.Timeline) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Timeline:")
		for _, gen := range result.Timeline {
			fmt.Fprintf(w, "  %d: %s changed=%d", gen.Generation, shortHash(gen.Hash), gen.Changed)
			for _, f := range gen.Firings {
				fmt.Fprintf(w, " [%d]x%d", f.Rule, f.Count)
			}
			fmt.Fprintln(w)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Stats: %d firing(s) across %d rule(s)", result.Stats.TotalFirings, result.Stats.RulesFired)
	if labels != nil {
		fmt.Fprintf(w, " of %d", len(labels))
	}
	fmt.Fprintln(w)
	return nil
}

// shortHash abbreviates a generation hash for display.
func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

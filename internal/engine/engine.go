package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/cellsim/internal/ir"
	"github.com/roach88/cellsim/internal/rules"
)

// DefaultMaxGenerations bounds RunUntilStable when no limit is configured.
const DefaultMaxGenerations = 10000

// Recorder receives the run header and every settled generation.
// Implemented by store.Store.
type Recorder interface {
	WriteRun(ctx context.Context, run ir.RunRecord) error
	RecordGeneration(ctx context.Context, gen ir.GenerationRecord) error
}

// Simulation drives one grid through generations with one rule table.
//
// Thread-safety model:
//   - Step, Run, RunUntilStable: call from one goroutine at a time
//   - Grid reads (At, Generation): safe between ticks
//
// INVARIANTS:
//   - the table never changes after construction
//   - every cell of the grid holds a state of the table's registry
//   - generation 0 is reported to the recorder before generation 1
type Simulation struct {
	table   *rules.Table
	reg     *rules.Registry
	grid    *Grid
	stepper *Stepper
	settle  *SettleDetector
	runID   string

	rulesetHash    string
	initialHash    string
	workers        int
	maxGenerations int64
	recorder       Recorder
	runIDGen       RunIDGenerator
	logger         *slog.Logger
	started        bool
	period         int64 // > 0 once a generation hash has repeated
}

// SimulationOption configures a Simulation.
type SimulationOption func(*Simulation)

// WithWorkers sets the number of parallel row bands.
// Default: runtime.GOMAXPROCS(0). The result never depends on it.
func WithWorkers(n int) SimulationOption {
	return func(s *Simulation) {
		s.workers = n
	}
}

// WithMaxGenerations sets the tick limit for RunUntilStable.
//
// Default: 10000 generations (DefaultMaxGenerations).
func WithMaxGenerations(n int64) SimulationOption {
	return func(s *Simulation) {
		s.maxGenerations = n
	}
}

// WithRecorder sends the run header and every generation to r.
func WithRecorder(r Recorder) SimulationOption {
	return func(s *Simulation) {
		s.recorder = r
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) SimulationOption {
	return func(s *Simulation) {
		s.logger = l
	}
}

// WithRunIDGenerator sets the run id source. Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) SimulationOption {
	return func(s *Simulation) {
		s.runIDGen = g
	}
}

// WithRulesetHash stamps the run record with the ruleset identity.
func WithRulesetHash(hash string) SimulationOption {
	return func(s *Simulation) {
		s.rulesetHash = hash
	}
}

// DiscardLogger returns a logger that drops everything. Used by tests and
// by the CLI when output must stay machine-readable.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// New creates a simulation of grid under table. The grid's current
// generation becomes generation 0 of the run; it must not be modified
// through Set afterwards.
func New(table *rules.Table, grid *Grid, opts ...SimulationOption) (*Simulation, error) {
	s := &Simulation{
		table:          table,
		reg:            table.Registry(),
		grid:           grid,
		settle:         NewSettleDetector(),
		maxGenerations: DefaultMaxGenerations,
		runIDGen:       UUIDv7Generator{},
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	for i, st := range grid.current() {
		if s.reg.TypeOf(st) == nil {
			return nil, fmt.Errorf("cell (%d,%d) holds unregistered state %d", i%grid.width, i/grid.width, st)
		}
	}
	if s.reg.TypeOf(grid.boundary) == nil {
		return nil, fmt.Errorf("boundary state %d is not registered", grid.boundary)
	}

	hash, err := grid.Hash(s.reg)
	if err != nil {
		return nil, fmt.Errorf("hash initial generation: %w", err)
	}
	s.initialHash = hash
	s.stepper = NewStepper(table, s.workers)
	s.runID = s.runIDGen.Generate()
	return s, nil
}

// RunID returns the run identifier.
func (s *Simulation) RunID() string { return s.runID }

// Grid returns the simulated grid.
func (s *Simulation) Grid() *Grid { return s.grid }

// Table returns the rule table.
func (s *Simulation) Table() *rules.Table { return s.table }

// Generation returns the current generation number.
func (s *Simulation) Generation() int64 { return s.grid.Generation() }

// Settled reports whether a generation has repeated, and the period of the
// loop it entered.
func (s *Simulation) Settled() (period int64, ok bool) {
	return s.period, s.period > 0
}

// RunRecord describes the run for the run log.
func (s *Simulation) RunRecord() ir.RunRecord {
	return ir.RunRecord{
		ID:            s.runID,
		RulesetHash:   s.rulesetHash,
		Width:         s.grid.width,
		Height:        s.grid.height,
		InitialHash:   s.initialHash,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}
}

// begin writes the run header and generation 0 once.
func (s *Simulation) begin(ctx context.Context) error {
	if s.started {
		return nil
	}
	s.started = true

	s.logger.Info("run started",
		"run_id", s.runID,
		"width", s.grid.width,
		"height", s.grid.height,
		"rules", s.table.Len(),
		"workers", s.stepper.Workers(),
	)
	s.settle.Observe(s.grid.Generation(), s.initialHash)

	if s.recorder == nil {
		return nil
	}
	if err := s.recorder.WriteRun(ctx, s.RunRecord()); err != nil {
		return fmt.Errorf("write run %s: %w", s.runID, err)
	}
	gen0 := ir.GenerationRecord{RunID: s.runID, Generation: s.grid.Generation(), Hash: s.initialHash}
	if err := s.recorder.RecordGeneration(ctx, gen0); err != nil {
		return fmt.Errorf("record generation %d: %w", gen0.Generation, err)
	}
	return nil
}

// Step advances one generation and returns its record.
func (s *Simulation) Step(ctx context.Context) (ir.GenerationRecord, error) {
	if err := s.begin(ctx); err != nil {
		return ir.GenerationRecord{}, err
	}

	stats, err := s.stepper.Step(ctx, s.grid)
	if err != nil {
		var re *RuntimeError
		if errors.As(err, &re) {
			re.RunID = s.runID
		}
		return ir.GenerationRecord{}, err
	}

	hash, err := s.grid.Hash(s.reg)
	if err != nil {
		return ir.GenerationRecord{}, fmt.Errorf("hash generation %d: %w", stats.Generation, err)
	}

	rec := ir.GenerationRecord{
		RunID:      s.runID,
		Generation: stats.Generation,
		Hash:       hash,
		Changed:    stats.Changed,
		Firings:    firingsOf(stats.Firings),
	}

	if period, ok := s.settle.Observe(rec.Generation, rec.Hash); ok && s.period == 0 {
		s.period = period
	}

	s.logger.Debug("generation computed",
		"run_id", s.runID,
		"generation", rec.Generation,
		"changed", rec.Changed,
	)

	if s.recorder != nil {
		if err := s.recorder.RecordGeneration(ctx, rec); err != nil {
			return rec, fmt.Errorf("record generation %d: %w", rec.Generation, err)
		}
	}
	return rec, nil
}

// RunSummary reports the outcome of Run or RunUntilStable.
type RunSummary struct {
	RunID      string `json:"run_id"`
	Generation int64  `json:"generation"` // last generation computed
	Hash       string `json:"hash"`       // hash of that generation
	Settled    bool   `json:"settled"`    // a generation repeated
	Period     int64  `json:"period,omitempty"`
	Changed    int    `json:"changed"` // total cell changes over the run
}

// Run advances n generations. It does not stop when the run settles.
func (s *Simulation) Run(ctx context.Context, n int) (RunSummary, error) {
	if err := s.begin(ctx); err != nil {
		return RunSummary{}, err
	}
	sum := s.summary()
	for range n {
		rec, err := s.Step(ctx)
		if err != nil {
			return sum, err
		}
		s.accumulate(&sum, rec)
	}
	s.logger.Info("run finished",
		"run_id", s.runID,
		"generation", sum.Generation,
		"changed", sum.Changed,
	)
	return sum, nil
}

// RunUntilStable advances until a generation repeats (a fixed point or an
// oscillator) or the generation quota runs out. A repeat is detected on the
// first recurrence of a generation hash. A run that has already settled
// returns at once.
func (s *Simulation) RunUntilStable(ctx context.Context) (RunSummary, error) {
	if err := s.begin(ctx); err != nil {
		return RunSummary{}, err
	}
	sum := s.summary()
	if sum.Settled {
		return sum, nil
	}
	quota := NewGenerationQuota(s.maxGenerations)

	for {
		if err := quota.Check(s.runID); err != nil {
			s.logger.Error("generation quota exceeded",
				"run_id", s.runID,
				"generation", sum.Generation,
				"limit", quota.Max(),
			)
			return sum, err
		}

		rec, err := s.Step(ctx)
		if err != nil {
			return sum, err
		}
		s.accumulate(&sum, rec)

		if sum.Settled {
			s.logger.Info("run settled",
				"run_id", s.runID,
				"generation", sum.Generation,
				"period", sum.Period,
			)
			return sum, nil
		}
	}
}

func (s *Simulation) summary() RunSummary {
	hash, _ := s.grid.Hash(s.reg)
	return RunSummary{
		RunID:      s.runID,
		Generation: s.grid.Generation(),
		Hash:       hash,
		Settled:    s.period > 0,
		Period:     s.period,
	}
}

func (s *Simulation) accumulate(sum *RunSummary, rec ir.GenerationRecord) {
	sum.Generation = rec.Generation
	sum.Hash = rec.Hash
	sum.Changed += rec.Changed
	sum.Settled = s.period > 0
	sum.Period = s.period
}

// firingsOf converts per-rule counts into records, skipping rules that did
// not fire. Output is ordered by rule index.
func firingsOf(counts []int) []ir.RuleFiring {
	var out []ir.RuleFiring
	for rule, n := range counts {
		if n > 0 {
			out = append(out, ir.RuleFiring{Rule: rule, Count: n})
		}
	}
	return out
}

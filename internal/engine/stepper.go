package engine

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/cellsim/internal/rules"
)

// StepStats summarizes one tick.
type StepStats struct {
	Generation int64 // generation produced by the tick
	Changed    int   // cells whose state differs from the previous generation
	Firings    []int // cells rewritten per rule index
}

// Stepper advances grids by one generation using a rule table.
//
// Rows are split into contiguous bands evaluated in parallel. Workers share
// the table and the current buffer read-only and write disjoint slots of
// the next buffer, so no locking is needed.
type Stepper struct {
	table   *rules.Table
	workers int
}

// NewStepper creates a stepper. workers <= 0 means runtime.GOMAXPROCS(0).
func NewStepper(table *rules.Table, workers int) *Stepper {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Stepper{table: table, workers: workers}
}

// Table returns the rule table.
func (s *Stepper) Table() *rules.Table { return s.table }

// Workers returns the maximum number of concurrent bands.
func (s *Stepper) Workers() int { return s.workers }

type band struct {
	lo, hi int // rows [lo, hi)
}

type bandStats struct {
	changed int
	firings []int
}

// Step computes the next generation of g and swaps it in.
//
// The context is checked once before the tick; a tick in progress always
// runs to the barrier. If any worker fails the next buffer is discarded, g
// keeps its current generation and the error is a RuntimeError with
// ErrCodeInvariantViolation.
func (s *Stepper) Step(ctx context.Context, g *Grid) (StepStats, error) {
	if err := ctx.Err(); err != nil {
		return StepStats{}, err
	}

	gen := g.Generation() + 1
	bands := splitRows(g.height, s.workers)
	partials := make([]bandStats, len(bands))

	var eg errgroup.Group
	eg.SetLimit(s.workers)
	for i, b := range bands {
		eg.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = NewInvariantError(gen, "rows %d..%d: %v", b.lo, b.hi-1, r)
				}
			}()
			partials[i], err = s.evalBand(g, b, gen)
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return StepStats{}, err
	}

	stats := StepStats{Firings: make([]int, s.table.Len())}
	for _, p := range partials {
		stats.Changed += p.changed
		for i, n := range p.firings {
			stats.Firings[i] += n
		}
	}
	stats.Generation = g.swap()
	return stats, nil
}

// evalBand writes the next state of every cell in rows [b.lo, b.hi).
func (s *Stepper) evalBand(g *Grid, b band, gen int64) (bandStats, error) {
	reg := s.table.Registry()
	cur, next := g.current(), g.next()
	st := bandStats{firings: make([]int, s.table.Len())}

	for y := b.lo; y < b.hi; y++ {
		for x := 0; x < g.width; x++ {
			i := y*g.width + x
			state := cur[i]
			if reg.TypeOf(state) == nil {
				return bandStats{}, NewInvariantError(gen, "cell (%d,%d) holds unregistered state %d", x, y, state)
			}
			nb := g.Neighborhood(x, y)
			out, rule := s.table.ResolveIndex(state, &nb)
			if rule >= 0 {
				st.firings[rule]++
			}
			if out != state {
				st.changed++
			}
			next[i] = out
		}
	}
	return st, nil
}

// splitRows divides height rows into at most n contiguous bands of
// near-equal size.
func splitRows(height, n int) []band {
	n = max(1, min(n, height))
	bands := make([]band, 0, n)
	size, extra := height/n, height%n
	lo := 0
	for i := range n {
		hi := lo + size
		if i < extra {
			hi++
		}
		bands = append(bands, band{lo: lo, hi: hi})
		lo = hi
	}
	return bands
}

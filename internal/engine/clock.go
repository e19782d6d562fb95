package engine

import "sync/atomic"

// Clock is the logical generation counter of a grid.
//
// Generation 0 is the initial grid; each completed tick advances it by one.
// Wall time never takes part in ordering.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations), so
// Generation may be read while a Simulation is stepping.
type Clock struct {
	gen atomic.Int64
}

// NewClock creates a clock at generation 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next advances the clock and returns the new generation.
func (c *Clock) Next() int64 {
	return c.gen.Add(1)
}

// Current returns the current generation without advancing.
func (c *Clock) Current() int64 {
	return c.gen.Load()
}

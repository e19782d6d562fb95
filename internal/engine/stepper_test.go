package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cellsim/internal/rules"
)

func step(t *testing.T, s *Stepper, g *Grid) StepStats {
	t.Helper()
	stats, err := s.Step(context.Background(), g)
	require.NoError(t, err)
	return stats
}

func TestStep_BatteryPowersWire(t *testing.T) {
	reg, table := loadCircuit(t)
	g := gridOf(t, table, "battery wire air")
	s := NewStepper(table, 1)

	stats := step(t, s, g)
	assert.Equal(t, int64(1), stats.Generation)
	assert.Equal(t, 1, stats.Changed)
	assert.Equal(t, 1, stats.Firings[3]) // wire -> power[source:west]
	assert.Equal(t, []string{"battery power[source:west] air"}, g.Rows(reg))

	// Power fed from the west stays powered.
	stats = step(t, s, g)
	assert.Equal(t, 0, stats.Changed)
	assert.Equal(t, []string{"battery power[source:west] air"}, g.Rows(reg))
}

func TestStep_PowerTravelsOneCellPerTick(t *testing.T) {
	reg, table := loadCircuit(t)
	g := gridOf(t, table, "battery wire wire")
	s := NewStepper(table, 1)

	step(t, s, g)
	assert.Equal(t, []string{"battery power[source:west] wire"}, g.Rows(reg))

	stats := step(t, s, g)
	assert.Equal(t, 1, stats.Firings[7]) // wire -> power[source:west] from adjacent power
	assert.Equal(t, []string{"battery power[source:west] power[source:west]"}, g.Rows(reg))
	assert.Equal(t, int64(2), g.Generation())
}

func TestStep_UnfedPowerReverts(t *testing.T) {
	reg, table := loadCircuit(t)
	g := gridOf(t, table, "power[source:north] air")
	s := NewStepper(table, 1)

	stats := step(t, s, g)
	assert.Equal(t, 1, stats.Firings[8])
	assert.Equal(t, []string{"wire air"}, g.Rows(reg))
}

func TestStep_NoRuleIsIdentity(t *testing.T) {
	reg, table := loadCircuit(t)
	rows := []string{"air battery", "air air"}
	g := gridOf(t, table, rows...)

	stats := step(t, NewStepper(table, 2), g)
	assert.Equal(t, 0, stats.Changed)
	for _, n := range stats.Firings {
		assert.Zero(t, n)
	}
	assert.Equal(t, rows, g.Rows(reg))
}

func TestStep_ReadsOnlyPreviousGeneration(t *testing.T) {
	// If cells were updated in place, the second wire would see the first
	// one's new power in the same tick.
	reg, table := loadCircuit(t)
	g := gridOf(t, table, "battery wire wire wire")

	step(t, NewStepper(table, 1), g)
	assert.Equal(t, []string{"battery power[source:west] wire wire"}, g.Rows(reg))
}

func TestStep_WorkerCountDoesNotChangeResult(t *testing.T) {
	reg, table := loadCircuit(t)

	build := func() *Grid {
		g, err := NewGrid(23, 17, table.Boundary(), table.Boundary())
		require.NoError(t, err)
		require.NoError(t, Randomize(g, reg, 42))
		return g
	}

	serial := build()
	serialStepper := NewStepper(table, 1)
	for range 10 {
		step(t, serialStepper, serial)
	}

	for _, workers := range []int{2, 3, 8, 64} {
		g := build()
		s := NewStepper(table, workers)
		for range 10 {
			step(t, s, g)
		}
		assert.Equal(t, serial.Cells(), g.Cells(), "workers=%d", workers)
	}
}

func TestStep_Locality(t *testing.T) {
	reg, table := loadCircuit(t)
	build := func(seed uint64) *Grid {
		g, err := NewGrid(9, 9, table.Boundary(), table.Boundary())
		require.NoError(t, err)
		require.NoError(t, Randomize(g, reg, seed))
		return g
	}

	a := build(7)
	b := build(7)
	require.NoError(t, b.Set(4, 4, stateOf(t, reg, "battery")))
	require.NoError(t, a.Set(4, 4, stateOf(t, reg, "air")))

	s := NewStepper(table, 3)
	step(t, s, a)
	step(t, s, b)

	for y := range 9 {
		for x := range 9 {
			dx, dy := x-4, y-4
			if dx*dx+dy*dy <= 1 {
				continue
			}
			assert.Equal(t, a.At(x, y), b.At(x, y), "cell (%d,%d)", x, y)
		}
	}
}

func TestStep_UnregisteredStateAbortsTick(t *testing.T) {
	reg, table := loadCircuit(t)
	g := gridOf(t, table, "battery wire", "air air")
	require.NoError(t, g.Set(1, 1, rules.State(reg.NumStates()+5)))
	before := g.Cells()

	_, err := NewStepper(table, 2).Step(context.Background(), g)
	require.Error(t, err)
	assert.True(t, IsInvariantError(err))
	assert.Equal(t, int64(0), g.Generation(), "no partial tick")
	assert.Equal(t, before, g.Cells())
}

func TestStep_CancelledContext(t *testing.T) {
	_, table := loadCircuit(t)
	g := gridOf(t, table, "battery wire")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewStepper(table, 1).Step(ctx, g)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(0), g.Generation())
}

func TestNewStepper_DefaultWorkers(t *testing.T) {
	_, table := loadCircuit(t)
	assert.Positive(t, NewStepper(table, 0).Workers())
	assert.Equal(t, 4, NewStepper(table, 4).Workers())
}

func TestSplitRows(t *testing.T) {
	tests := []struct {
		height, n int
		expected  []band
	}{
		{1, 4, []band{{0, 1}}},
		{4, 1, []band{{0, 4}}},
		{5, 2, []band{{0, 3}, {3, 5}}},
		{7, 3, []band{{0, 3}, {3, 5}, {5, 7}}},
		{3, 0, []band{{0, 3}}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, splitRows(tt.height, tt.n), "height=%d n=%d", tt.height, tt.n)
	}
}

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomize_SameSeedSameGrid(t *testing.T) {
	reg, table := loadCircuit(t)

	fill := func(seed uint64) *Grid {
		g, err := NewGrid(16, 16, table.Boundary(), table.Boundary())
		require.NoError(t, err)
		require.NoError(t, Randomize(g, reg, seed))
		return g
	}

	assert.Equal(t, fill(1).Cells(), fill(1).Cells())
	assert.NotEqual(t, fill(1).Cells(), fill(2).Cells())
}

func TestRandomize_UsesDefaultStates(t *testing.T) {
	reg, table := loadCircuit(t)
	g, err := NewGrid(8, 8, table.Boundary(), table.Boundary())
	require.NoError(t, err)
	require.NoError(t, Randomize(g, reg, 3))

	defaults := map[string]bool{}
	for _, ct := range reg.Types() {
		defaults[reg.String(ct.DefaultState())] = true
	}
	for _, text := range g.Texts(reg) {
		assert.True(t, defaults[text], "%s is not a default state", text)
	}
}

func TestRandomize_RestrictedTypes(t *testing.T) {
	reg, table := loadCircuit(t)
	g, err := NewGrid(10, 10, table.Boundary(), table.Boundary())
	require.NoError(t, err)
	require.NoError(t, Randomize(g, reg, 9, "wire", "battery"))

	seen := map[string]int{}
	for _, text := range g.Texts(reg) {
		seen[text]++
	}
	assert.Equal(t, 100, seen["wire"]+seen["battery"])
	assert.Positive(t, seen["wire"])
	assert.Positive(t, seen["battery"])
}

func TestRandomize_UnknownType(t *testing.T) {
	reg, table := loadCircuit(t)
	g, err := NewGrid(2, 2, table.Boundary(), table.Boundary())
	require.NoError(t, err)
	assert.Error(t, Randomize(g, reg, 1, "lava"))
}

package engine

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClock(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Current())
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())
}

func TestClock_Concurrent(t *testing.T) {
	c := NewClock()
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				c.Next()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(5000), c.Current())
}

func TestSettleDetector(t *testing.T) {
	d := NewSettleDetector()

	_, ok := d.Observe(0, "a")
	assert.False(t, ok)
	_, ok = d.Observe(1, "b")
	assert.False(t, ok)
	_, ok = d.Observe(2, "c")
	assert.False(t, ok)

	period, ok := d.Observe(3, "b")
	assert.True(t, ok)
	assert.Equal(t, int64(2), period)

	// the first sighting stays the reference point
	period, ok = d.Observe(7, "b")
	assert.True(t, ok)
	assert.Equal(t, int64(6), period)

	period, ok = d.Observe(8, "c")
	assert.True(t, ok)
	assert.Equal(t, int64(6), period)
}

func TestGenerationQuota(t *testing.T) {
	q := NewGenerationQuota(2)
	require.NoError(t, q.Check("run"))
	require.NoError(t, q.Check("run"))
	assert.Equal(t, int64(2), q.Max())

	err := q.Check("run")
	require.Error(t, err)
	assert.True(t, IsGenerationsExceededError(err))
	assert.True(t, IsQuotaError(fmt.Errorf("wrapped: %w", err)))
	assert.Contains(t, err.Error(), "3 generations > 2 limit")
}

func TestRuntimeError(t *testing.T) {
	inv := NewInvariantError(5, "rows %d..%d: boom", 0, 3)
	assert.Equal(t, "INVARIANT_VIOLATION: rows 0..3: boom (generation=5)", inv.Error())
	assert.True(t, IsInvariantError(fmt.Errorf("tick: %w", inv)))
	assert.False(t, IsReplayMismatch(inv))
	assert.False(t, IsQuotaError(inv))

	mm := NewReplayMismatchError("run-9", 4, "aa", "bb")
	assert.Equal(t, "REPLAY_MISMATCH: generation hash differs from the recorded run (run=run-9, generation=4)", mm.Error())
	assert.True(t, IsReplayMismatch(mm))

	quota := &RuntimeError{Code: ErrCodeGenerationsExceeded}
	assert.True(t, IsQuotaError(quota))
}

func TestUUIDv7Generator(t *testing.T) {
	gen := UUIDv7Generator{}
	a, b := gen.Generate(), gen.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
	assert.Less(t, a, b, "UUIDv7 ids sort by creation time")
}

func TestFixedGenerator(t *testing.T) {
	gen := NewFixedGenerator("run-1", "run-2")
	assert.Equal(t, "run-1", gen.Generate())
	assert.Equal(t, "run-2", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}

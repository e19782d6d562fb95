package engine

// SettleDetector recognizes when a run stops producing new generations.
//
// It remembers the hash of every generation it has seen and the generation
// number where it first appeared. Seeing a hash again means the grid has
// entered a loop: period 1 is a fixed point, anything longer an oscillator.
// Because stepping is deterministic, the first repeat proves the run will
// cycle forever.
//
// A SettleDetector belongs to one Simulation and is not safe for concurrent
// use.
type SettleDetector struct {
	seenAt map[string]int64 // generation hash -> first generation
}

// NewSettleDetector creates an empty detector.
func NewSettleDetector() *SettleDetector {
	return &SettleDetector{seenAt: make(map[string]int64)}
}

// Observe records the hash of generation gen. If the hash was seen before it
// returns the period of the loop and true.
func (d *SettleDetector) Observe(gen int64, hash string) (period int64, settled bool) {
	if first, ok := d.seenAt[hash]; ok {
		return gen - first, true
	}
	d.seenAt[hash] = gen
	return 0, false
}

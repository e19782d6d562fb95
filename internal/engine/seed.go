package engine

import (
	"fmt"
	"math/rand/v2"

	"github.com/roach88/cellsim/internal/rules"
)

// Randomize fills every cell of g with the default state of a randomly
// chosen type. With names the choice is limited to those types; otherwise
// every registered type is eligible. The same seed always produces the
// same grid.
//
// Call it before New: the simulation hashes generation 0 at construction.
func Randomize(g *Grid, reg *rules.Registry, seed uint64, names ...string) error {
	var choices []rules.State
	if len(names) == 0 {
		for _, t := range reg.Types() {
			choices = append(choices, t.DefaultState())
		}
	} else {
		for _, name := range names {
			s, err := reg.Default(name)
			if err != nil {
				return fmt.Errorf("randomize: %w", err)
			}
			choices = append(choices, s)
		}
	}
	if len(choices) == 0 {
		return fmt.Errorf("randomize: no cell types to choose from")
	}

	rng := rand.New(rand.NewPCG(seed, 0))
	cur := g.current()
	for i := range cur {
		cur[i] = choices[rng.IntN(len(choices))]
	}
	return nil
}

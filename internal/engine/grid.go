package engine

import (
	"fmt"
	"strings"

	"github.com/roach88/cellsim/internal/ir"
	"github.com/roach88/cellsim/internal/rules"
)

// Grid is a fixed-size rectangle of cells with two buffers: the current
// generation and the one being computed. Coordinates outside the rectangle
// read as the boundary state.
//
// Thread-safety: reads are safe while no tick is in progress. Stepper is the
// only writer of the next buffer and swaps it in after its barrier.
type Grid struct {
	width    int
	height   int
	bufs     [2][]rules.State
	cur      int
	boundary rules.State
	clock    *Clock
}

// MaxCells bounds width*height. Each cell costs two buffer slots.
const MaxCells = 1 << 24

// NewGrid creates a width x height grid with every cell set to fill.
func NewGrid(width, height int, fill, boundary rules.State) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("grid size %dx%d: both dimensions must be positive", width, height)
	}
	if width > MaxCells/height {
		return nil, fmt.Errorf("grid size %dx%d: more than %d cells", width, height, MaxCells)
	}
	g := &Grid{
		width:    width,
		height:   height,
		boundary: boundary,
		clock:    NewClock(),
	}
	for i := range g.bufs {
		g.bufs[i] = make([]rules.State, width*height)
	}
	for i := range g.bufs[0] {
		g.bufs[0][i] = fill
	}
	return g, nil
}

// GridFromDecl builds a grid from rows of whitespace-separated state texts.
// Every row must have the same number of cells.
func GridFromDecl(reg *rules.Registry, decl *ir.GridDecl, boundary rules.State) (*Grid, error) {
	if decl == nil || len(decl.Rows) == 0 {
		return nil, fmt.Errorf("grid has no rows")
	}

	rows := make([][]string, len(decl.Rows))
	for y, row := range decl.Rows {
		rows[y] = strings.Fields(row)
		if len(rows[y]) == 0 {
			return nil, fmt.Errorf("grid row %d is empty", y)
		}
		if len(rows[y]) != len(rows[0]) {
			return nil, fmt.Errorf("grid row %d has %d cells, row 0 has %d", y, len(rows[y]), len(rows[0]))
		}
	}

	g, err := NewGrid(len(rows[0]), len(rows), boundary, boundary)
	if err != nil {
		return nil, err
	}
	for y, row := range rows {
		for x, text := range row {
			s, err := reg.ParseState(text)
			if err != nil {
				return nil, fmt.Errorf("grid cell (%d,%d): %w", x, y, err)
			}
			g.bufs[0][y*g.width+x] = s
		}
	}
	return g, nil
}

// Width returns the number of columns.
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.height }

// Generation returns the number of completed ticks.
func (g *Grid) Generation() int64 { return g.clock.Current() }

// Boundary returns the state read outside the grid.
func (g *Grid) Boundary() rules.State { return g.boundary }

// At returns the current state at (x, y), or the boundary state when the
// coordinate is outside the grid.
func (g *Grid) At(x, y int) rules.State {
	if x < 0 || y < 0 || x >= g.width || y >= g.height {
		return g.boundary
	}
	return g.bufs[g.cur][y*g.width+x]
}

// Set overwrites the current state at (x, y). It is meant for building an
// initial generation, not for use during a run.
func (g *Grid) Set(x, y int, s rules.State) error {
	if x < 0 || y < 0 || x >= g.width || y >= g.height {
		return fmt.Errorf("cell (%d,%d) outside %dx%d grid", x, y, g.width, g.height)
	}
	g.bufs[g.cur][y*g.width+x] = s
	return nil
}

// Neighborhood returns the four neighbors of (x, y) in the current buffer.
func (g *Grid) Neighborhood(x, y int) rules.Neighborhood {
	var nb rules.Neighborhood
	for _, d := range ir.AllDirections {
		dx, dy := d.Offset()
		nb[d] = g.At(x+dx, y+dy)
	}
	return nb
}

// Cells returns a copy of the current generation in row-major order.
func (g *Grid) Cells() []rules.State {
	return append([]rules.State(nil), g.bufs[g.cur]...)
}

// Texts renders every current cell canonically in row-major order.
func (g *Grid) Texts(reg *rules.Registry) []string {
	cur := g.bufs[g.cur]
	texts := make([]string, len(cur))
	for i, s := range cur {
		texts[i] = reg.String(s)
	}
	return texts
}

// Rows renders the current generation as one space-separated line per row,
// the same form GridFromDecl reads.
func (g *Grid) Rows(reg *rules.Registry) []string {
	texts := g.Texts(reg)
	rows := make([]string, g.height)
	for y := range rows {
		rows[y] = strings.Join(texts[y*g.width:(y+1)*g.width], " ")
	}
	return rows
}

// Hash returns the generation hash of the current buffer.
func (g *Grid) Hash(reg *rules.Registry) (string, error) {
	return ir.GenerationHash(g.width, g.height, g.Texts(reg))
}

// next returns the buffer being computed.
func (g *Grid) next() []rules.State {
	return g.bufs[1-g.cur]
}

// current returns the buffer being read.
func (g *Grid) current() []rules.State {
	return g.bufs[g.cur]
}

// swap publishes the next buffer and advances the clock.
func (g *Grid) swap() int64 {
	g.cur = 1 - g.cur
	return g.clock.Next()
}

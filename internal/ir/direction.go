package ir

import (
	"fmt"
	"strings"
)

// Direction is one of the four cardinal neighbor directions.
type Direction uint8

const (
	North Direction = iota
	East
	South
	West
)

// NumDirections is the size of a cardinal neighborhood.
const NumDirections = 4

// AllDirections lists the cardinal directions in canonical order.
var AllDirections = []Direction{North, East, South, West}

var directionLetters = [NumDirections]byte{'n', 'e', 's', 'w'}

var directionNames = [NumDirections]string{"north", "east", "south", "west"}

// Offset returns the grid delta for the direction. North is y-1.
func (d Direction) Offset() (dx, dy int) {
	switch d {
	case North:
		return 0, -1
	case East:
		return 1, 0
	case South:
		return 0, 1
	default:
		return -1, 0
	}
}

// Opposite returns the direction facing back.
func (d Direction) Opposite() Direction {
	return (d + 2) % NumDirections
}

// Letter returns the single-letter code.
func (d Direction) Letter() byte {
	return directionLetters[d%NumDirections]
}

func (d Direction) String() string {
	return directionNames[d%NumDirections]
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte{d.Letter()}, nil
}

// ParseDirections parses packed direction letters such as "nw" or "n e".
// Letters are case-insensitive; whitespace is ignored. Repeated letters are
// rejected. An empty string is an error; callers decide what omission means.
func ParseDirections(text string) ([]Direction, error) {
	var dirs []Direction
	var seen [NumDirections]bool
	for _, r := range strings.ToLower(text) {
		if r == ' ' || r == '\t' {
			continue
		}
		idx := strings.IndexRune("nesw", r)
		if idx < 0 {
			return nil, fmt.Errorf("invalid direction letter %q in %q (expected n, e, s, w)", r, text)
		}
		if seen[idx] {
			return nil, fmt.Errorf("direction %q repeated in %q", r, text)
		}
		seen[idx] = true
		dirs = append(dirs, Direction(idx))
	}
	if len(dirs) == 0 {
		return nil, fmt.Errorf("no directions in %q", text)
	}
	return dirs, nil
}

// FormatDirections renders directions as packed letters.
func FormatDirections(dirs []Direction) string {
	b := make([]byte, len(dirs))
	for i, d := range dirs {
		b[i] = d.Letter()
	}
	return string(b)
}

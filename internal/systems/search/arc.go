package search

import (
	"fmt"
	"math"

	"github.com/Kelvintronic/inhabited/internal/core/types"
)

// Arc is one directed step between neighbouring cells.
type Arc struct {
	Tail   types.VectorInt
	Head   types.VectorInt
	Action string
	Cost   float64

	// Transient marks a step into a soft obstacle. Such arcs are recorded
	// on the job but never expanded.
	Transient bool
}

// startTail is the sentinel tail of the first arc of every path.
var startTail = types.VectorInt{X: math.MinInt, Y: math.MinInt}

func startArc(node types.VectorInt) Arc {
	return Arc{Tail: startTail, Head: node, Action: "START"}
}

func (a Arc) IsStart() bool { return a.Tail == startTail }

func (a Arc) String() string {
	return fmt.Sprintf("%s %v->%v (%.1f)", a.Action, a.Tail, a.Head, a.Cost)
}

type direction struct {
	action string
	dx, dy int
	cost   float64
}

const (
	orthogonalCost = 1.0
	diagonalCost   = 1.1
)

// Successor order matters for tie-breaking and is part of the behaviour.
var directions = [...]direction{
	{"N", 0, 1, orthogonalCost},
	{"NE", 1, 1, diagonalCost},
	{"E", 1, 0, orthogonalCost},
	{"SE", 1, -1, diagonalCost},
	{"S", 0, -1, orthogonalCost},
	{"SW", -1, -1, diagonalCost},
	{"W", -1, 0, orthogonalCost},
	{"NW", -1, 1, diagonalCost},
}

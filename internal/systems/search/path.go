package search

// Path is an immutable chain of arcs. Extending a path shares its prefix,
// so frontier entries cost one node each instead of a full copy.
type Path struct {
	parent *Path
	arc    Arc
	cost   float64
	n      int
}

func newPath(first Arc) *Path {
	return &Path{arc: first, cost: first.Cost, n: 1}
}

// Extend returns a new path with a appended.
func (p *Path) Extend(a Arc) *Path {
	return &Path{parent: p, arc: a, cost: p.cost + a.Cost, n: p.n + 1}
}

func (p *Path) Cost() float64 { return p.cost }
func (p *Path) Len() int      { return p.n }

// End is the last arc; its Head is where the path currently stands.
func (p *Path) End() Arc { return p.arc }

// Arcs returns the arcs in walking order, starting with the START arc.
func (p *Path) Arcs() []Arc {
	arcs := make([]Arc, p.n)
	for i, node := p.n-1, p; node != nil; i, node = i-1, node.parent {
		arcs[i] = node.arc
	}
	return arcs
}

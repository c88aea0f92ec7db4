package search

import (
	"iter"

	"github.com/Kelvintronic/inhabited/internal/core/types"
	"github.com/Kelvintronic/inhabited/internal/core/types/enums"
)

// Map is the read-only view of the world the search runs over.
type Map interface {
	Width() int
	Height() int
	TypeAt(x, y int) enums.ObjectType
	OccupantAt(x, y int) int32
}

// passThrough reports cell types an NPC may route across.
func passThrough(t enums.ObjectType) bool {
	switch t {
	case enums.ObjectNone, enums.ObjectNPCIntent,
		enums.ObjectNPCSpider, enums.ObjectNPCMantis,
		enums.ObjectNPCBug, enums.ObjectNPCMercenary, enums.ObjectNPCTrader:
		return true
	}
	return false
}

// outgoingArcs yields the neighbours of node in compass order. Walls and
// off-map cells yield nothing; soft obstacles yield a Transient arc.
func outgoingArcs(m Map, node types.VectorInt) iter.Seq[Arc] {
	return func(yield func(Arc) bool) {
		if m == nil {
			return
		}
		for _, d := range directions {
			x, y := node.X+d.dx, node.Y+d.dy
			if x < 0 || x >= m.Width() || y < 0 || y >= m.Height() {
				continue
			}
			kind := m.TypeAt(x, y)
			if kind == enums.ObjectWall {
				continue
			}
			arc := Arc{
				Tail:      node,
				Head:      types.VectorInt{X: x, Y: y},
				Action:    d.action,
				Cost:      d.cost,
				Transient: !passThrough(kind),
			}
			if !yield(arc) {
				return
			}
		}
	}
}

// Search is one job's A* run, suspended between Step calls. All of its
// progress lives in fields so a step can stop after any pop.
type Search struct {
	job      *Job
	grid     Map
	frontier *frontier
	maxCost  float64
	pops     int
	done     bool
}

func newSearch(job *Job, grid Map, maxCost float64) *Search {
	job.state = JobRunning
	return &Search{
		job:      job,
		grid:     grid,
		frontier: newFrontier(job.start, job.EstimatedCostToGoal(job.start)),
		maxCost:  maxCost,
	}
}

func (s *Search) Job() *Job  { return s.job }
func (s *Search) Done() bool { return s.done }

// Pops is the number of frontier paths examined so far.
func (s *Search) Pops() int { return s.pops }

// Step pops at most budget paths from the frontier and returns how many it
// used. It returns once the job is finished, cancelled or out of budget.
func (s *Search) Step(budget int) int {
	used := 0
	for !s.done && used < budget {
		if s.job.cancelled {
			s.done = true
			break
		}
		path, ok := s.frontier.next()
		if !ok {
			s.job.finish(nil)
			s.done = true
			break
		}
		used++
		s.pops++

		head := path.End().Head
		if s.job.IsGoal(head) {
			s.job.finish(path)
			s.done = true
			break
		}

		for arc := range outgoingArcs(s.grid, head) {
			if arc.Transient {
				s.job.AddTransient(arc.Head, s.grid.OccupantAt(arc.Head.X, arc.Head.Y))
				continue
			}
			next := path.Extend(arc)
			if next.Cost() > s.maxCost {
				continue
			}
			s.frontier.add(next, s.job.EstimatedCostToGoal(arc.Head))
		}
	}
	return used
}

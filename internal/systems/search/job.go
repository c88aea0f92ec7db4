package search

import (
	"fmt"

	"github.com/Kelvintronic/inhabited/internal/core/types"
)

// JobState tracks a job through the scheduler.
type JobState int

const (
	JobPending JobState = iota
	JobRunning
	JobFinished
	JobCancelled
)

func (s JobState) String() string {
	switch s {
	case JobPending:
		return "pending"
	case JobRunning:
		return "running"
	case JobFinished:
		return "finished"
	case JobCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("JobState(%d)", int(s))
}

// Job is one start-to-goal request. The requester keeps the pointer and
// polls it; the scheduler fills in the result once the search ends.
type Job struct {
	start, goal types.VectorInt

	state     JobState
	cancelled bool
	solution  []Arc
	cost      float64

	transients    []Transient
	transientSeen map[types.VectorInt]struct{}
}

// Transient is a soft obstacle the search ran into: the cell and the id
// of whatever occupied it at the time.
type Transient struct {
	Cell types.VectorInt
	ID   int32
}

func NewJob(start, goal types.VectorInt) *Job {
	return &Job{start: start, goal: goal}
}

func (j *Job) Start() types.VectorInt { return j.start }
func (j *Job) Goal() types.VectorInt  { return j.goal }
func (j *Job) State() JobState        { return j.state }

func (j *Job) IsGoal(c types.VectorInt) bool { return c == j.goal }

// EstimatedCostToGoal is the Chebyshev distance from c to the goal. Every
// step costs at least 1 and covers at most one cell per axis, so it never
// overestimates.
func (j *Job) EstimatedCostToGoal(c types.VectorInt) float64 {
	return float64(c.Chebyshev(j.goal))
}

// Cancel asks the scheduler to drop the job. A running search stops at its
// next pop and a cancelled job never reaches the finished list.
func (j *Job) Cancel() {
	j.cancelled = true
	if j.state != JobFinished {
		j.state = JobCancelled
	}
}

func (j *Job) IsCancelled() bool { return j.cancelled }

// IsFinished reports whether the search ran to completion, with or without
// a solution.
func (j *Job) IsFinished() bool { return j.state == JobFinished }

func (j *Job) HasSolution() bool { return j.solution != nil }

// Solution is the arc list from the START arc to the goal, or nil.
func (j *Job) Solution() []Arc { return j.solution }

func (j *Job) SolutionCost() float64 { return j.cost }

// Transients lists the soft obstacles met, in discovery order.
func (j *Job) Transients() []Transient { return j.transients }

// IsPathBlockedByTransient reports a failed search that met soft obstacles,
// meaning a path may open up once they are cleared.
func (j *Job) IsPathBlockedByTransient() bool {
	return j.IsFinished() && !j.HasSolution() && len(j.transients) > 0
}

// AddTransient records a soft-obstacle cell once.
func (j *Job) AddTransient(c types.VectorInt, id int32) {
	if j.transientSeen == nil {
		j.transientSeen = make(map[types.VectorInt]struct{})
	}
	if _, ok := j.transientSeen[c]; ok {
		return
	}
	j.transientSeen[c] = struct{}{}
	j.transients = append(j.transients, Transient{Cell: c, ID: id})
}

func (j *Job) finish(p *Path) {
	j.state = JobFinished
	if p != nil {
		j.solution = p.Arcs()
		j.cost = p.Cost()
	}
}

func (j *Job) String() string {
	return fmt.Sprintf("job %v->%v (%s)", j.start, j.goal, j.state)
}

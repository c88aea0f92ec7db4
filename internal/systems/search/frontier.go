package search

import (
	"container/heap"

	"github.com/Kelvintronic/inhabited/internal/core/types"
)

// frontierItem is a candidate path ordered by cost plus heuristic, with
// insertion order breaking ties.
type frontierItem struct {
	path     *Path
	estimate float64
	seq      uint64
	index    int
}

type frontierQueue []*frontierItem

func (q frontierQueue) Len() int { return len(q) }

func (q frontierQueue) Less(i, j int) bool {
	if q[i].estimate != q[j].estimate {
		return q[i].estimate < q[j].estimate
	}
	return q[i].seq < q[j].seq
}

func (q frontierQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *frontierQueue) Push(x any) {
	item := x.(*frontierItem)
	item.index = len(*q)
	*q = append(*q, item)
}

func (q *frontierQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*q = old[:n-1]
	return item
}

// frontier yields paths whose end cell has not been expanded yet.
// The first path to reach a cell wins; later arrivals are dropped.
type frontier struct {
	queue    frontierQueue
	expanded map[types.VectorInt]struct{}
	seq      uint64
}

func newFrontier(start types.VectorInt, heuristic float64) *frontier {
	f := &frontier{expanded: make(map[types.VectorInt]struct{})}
	f.add(newPath(startArc(start)), heuristic)
	return f
}

func (f *frontier) add(p *Path, heuristic float64) {
	heap.Push(&f.queue, &frontierItem{path: p, estimate: p.Cost() + heuristic, seq: f.seq})
	f.seq++
}

// next pops the cheapest path ending on an unexpanded cell.
func (f *frontier) next() (*Path, bool) {
	for f.queue.Len() > 0 {
		item := heap.Pop(&f.queue).(*frontierItem)
		head := item.path.End().Head
		if _, done := f.expanded[head]; done {
			continue
		}
		f.expanded[head] = struct{}{}
		return item.path, true
	}
	return nil, false
}

func (f *frontier) size() int { return f.queue.Len() }

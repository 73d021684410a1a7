package domain

import (
	"container/heap"
	"slices"
)

// TaskGraph is a validated dependency DAG over tasks.
//
// The structure is fixed at construction; only the tasks' runtime status
// changes during a trial. A task depending on an id that is not in the graph
// is kept but can never become ready.
type TaskGraph struct {
	tasks        map[int]*Task // Task ID -> task
	order        []int         // Insertion order of task IDs
	index        map[int]int   // Task ID -> insertion index
	edges        map[int][]int // Task ID -> IDs of tasks that depend on it (outgoing edges)
	reverseEdges map[int][]int // Task ID -> IDs of resolvable dependencies (incoming edges)
	unresolved   map[int][]int // Task ID -> dependency IDs missing from the graph
	topo         []int
}

// NewTaskGraph builds the graph and rejects it when tasks are nil, ids repeat,
// or the dependency relation contains a cycle.
func NewTaskGraph(tasks []*Task) (*TaskGraph, error) {
	g := &TaskGraph{
		tasks:        make(map[int]*Task, len(tasks)),
		order:        make([]int, 0, len(tasks)),
		index:        make(map[int]int, len(tasks)),
		edges:        make(map[int][]int, len(tasks)),
		reverseEdges: make(map[int][]int, len(tasks)),
		unresolved:   make(map[int][]int),
	}

	for i, t := range tasks {
		if t == nil {
			return nil, invalidf("nil task at position %d", i)
		}
		if _, exists := g.tasks[t.ID]; exists {
			return nil, invalidf("duplicate task id %d", t.ID)
		}
		g.tasks[t.ID] = t
		g.index[t.ID] = len(g.order)
		g.order = append(g.order, t.ID)
	}

	for _, id := range g.order {
		seen := make(map[int]struct{}, len(g.tasks[id].Dependencies))
		for _, dep := range g.tasks[id].Dependencies {
			if _, dup := seen[dep]; dup {
				continue
			}
			seen[dep] = struct{}{}
			if _, ok := g.tasks[dep]; !ok {
				g.unresolved[id] = append(g.unresolved[id], dep)
				continue
			}
			g.edges[dep] = append(g.edges[dep], id)
			g.reverseEdges[id] = append(g.reverseEdges[id], dep)
		}
	}

	topo := g.kahn()
	if len(topo) != len(g.order) {
		return nil, cycleError(g.findCycle())
	}
	g.topo = topo
	return g, nil
}

// Len returns the number of tasks.
func (g *TaskGraph) Len() int { return len(g.order) }

// Task returns a task by id.
func (g *TaskGraph) Task(id int) (*Task, bool) {
	t, ok := g.tasks[id]
	return t, ok
}

// Tasks returns all tasks in insertion order.
func (g *TaskGraph) Tasks() []*Task {
	out := make([]*Task, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.tasks[id])
	}
	return out
}

// Dependencies returns the resolvable dependencies of a task.
func (g *TaskGraph) Dependencies(id int) []int {
	return slices.Clone(g.reverseEdges[id])
}

// Dependents returns the tasks that directly depend on id.
func (g *TaskGraph) Dependents(id int) []int {
	return slices.Clone(g.edges[id])
}

// IsBlocked reports whether the task cites a dependency missing from the graph.
func (g *TaskGraph) IsBlocked(id int) bool {
	return len(g.unresolved[id]) > 0
}

// Blocked returns, in insertion order, the ids of tasks with unresolvable dependencies.
func (g *TaskGraph) Blocked() []int {
	out := make([]int, 0, len(g.unresolved))
	for _, id := range g.order {
		if g.IsBlocked(id) {
			out = append(out, id)
		}
	}
	return out
}

// ReadyTasks returns the non-terminal tasks whose dependencies have all
// completed, in insertion order.
func (g *TaskGraph) ReadyTasks() []*Task {
	ready := make([]*Task, 0)
	for _, id := range g.order {
		t := g.tasks[id]
		if t.Status != Pending && t.Status != Ready {
			continue
		}
		if g.IsBlocked(id) {
			continue
		}
		depsOK := true
		for _, dep := range g.reverseEdges[id] {
			if g.tasks[dep].Status != Completed {
				depsOK = false
				break
			}
		}
		if depsOK {
			ready = append(ready, t)
		}
	}
	return ready
}

// Pending counts tasks that have not reached a terminal state.
func (g *TaskGraph) Pending() int {
	n := 0
	for _, t := range g.tasks {
		if !IsTerminal(t.Status) {
			n++
		}
	}
	return n
}

// TopologicalOrder returns the tasks in dependency order. Ties are broken by
// insertion order. The graph is validated at construction so this cannot fail.
func (g *TaskGraph) TopologicalOrder() []*Task {
	out := make([]*Task, 0, len(g.topo))
	for _, id := range g.topo {
		out = append(out, g.tasks[id])
	}
	return out
}

// CriticalPath returns the dependency chain with the largest total duration
// and that duration. It is the lower bound on the makespan of the workload.
func (g *TaskGraph) CriticalPath() ([]int, float64) {
	finish := make(map[int]float64, len(g.topo))
	predecessor := make(map[int]int, len(g.topo))

	for _, id := range g.topo {
		task := g.tasks[id]
		best := task.Duration
		pred := -1
		for _, dep := range g.reverseEdges[id] {
			if finish[dep]+task.Duration > best {
				best = finish[dep] + task.Duration
				pred = dep
			}
		}
		finish[id] = best
		predecessor[id] = pred
	}

	end, longest := -1, 0.0
	for _, id := range g.topo {
		if end == -1 || finish[id] > longest {
			end, longest = id, finish[id]
		}
	}
	if end == -1 {
		return nil, 0
	}

	path := make([]int, 0)
	for cur := end; ; cur = predecessor[cur] {
		path = append(path, cur)
		if predecessor[cur] == -1 {
			break
		}
	}
	slices.Reverse(path)
	return path, longest
}

// kahn performs Kahn's algorithm with a min-heap over insertion indices so the
// order is deterministic.
func (g *TaskGraph) kahn() []int {
	indeg := make([]int, len(g.order))
	for i, id := range g.order {
		indeg[i] = len(g.reverseEdges[id])
	}

	ready := &indexHeap{}
	for i := range indeg {
		if indeg[i] == 0 {
			heap.Push(ready, i)
		}
	}

	out := make([]int, 0, len(g.order))
	for ready.Len() > 0 {
		id := g.order[heap.Pop(ready).(int)]
		out = append(out, id)
		for _, next := range g.edges[id] {
			j := g.index[next]
			indeg[j]--
			if indeg[j] == 0 {
				heap.Push(ready, j)
			}
		}
	}
	return out
}

// findCycle extracts one cycle, as task ids along dependency edges, for error reporting.
func (g *TaskGraph) findCycle() []int {
	const (
		white = iota
		gray
		black
	)

	color := make(map[int]int, len(g.order))
	stack := make([]int, 0)
	var cycle []int

	var visit func(id int) bool
	visit = func(id int) bool {
		color[id] = gray
		stack = append(stack, id)
		for _, next := range g.edges[id] {
			switch color[next] {
			case gray:
				start := slices.Index(stack, next)
				cycle = append(slices.Clone(stack[start:]), next)
				return true
			case white:
				if visit(next) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return false
	}

	for _, id := range g.order {
		if color[id] == white && visit(id) {
			break
		}
	}
	return cycle
}

type indexHeap []int

func (h indexHeap) Len() int           { return len(h) }
func (h indexHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h indexHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *indexHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *indexHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

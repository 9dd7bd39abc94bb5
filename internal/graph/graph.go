// Package graph validates a task batch and indexes its dependency
// relation for scheduling.
//
// Tasks are stored in an arena indexed by dense integers with adjacency
// lists of indices in both directions, so readiness checks and failure
// propagation are array scans and the whole structure is discarded with
// the batch.
package graph

import (
	"github.com/taskmill/taskmill/pkg/models"
)

// node is one task in the arena. order equals the task's submission
// position and is the stable scheduling tie-break.
type node struct {
	task       models.TaskDescriptor
	order      int
	deps       []int
	dependents []int
}

// Graph is the validated, indexed form of one batch's dependency
// relation. It is immutable after Build and safe for concurrent reads.
type Graph struct {
	nodes []node
	index map[string]int
}

// Build validates the batch and returns its dependency graph.
// It rejects duplicate task IDs, references to tasks outside the batch,
// and cyclic dependency relations (self-references included). Build has
// no side effects; a rejected batch runs nothing.
func Build(tasks []models.TaskDescriptor) (*Graph, error) {
	g := &Graph{
		nodes: make([]node, 0, len(tasks)),
		index: make(map[string]int, len(tasks)),
	}

	for i, task := range tasks {
		if _, exists := g.index[task.ID]; exists {
			return nil, &DuplicateTaskIDError{TaskID: task.ID}
		}
		g.index[task.ID] = i
		g.nodes = append(g.nodes, node{task: task, order: i})
	}

	// Second pass: resolve edges now that every ID is registered.
	for i := range g.nodes {
		task := g.nodes[i].task
		for _, depID := range task.DependsOn {
			j, exists := g.index[depID]
			if !exists {
				return nil, &UnknownDependencyError{TaskID: task.ID, DependsOn: depID}
			}
			g.nodes[i].deps = append(g.nodes[i].deps, j)
			g.nodes[j].dependents = append(g.nodes[j].dependents, i)
		}
	}

	if cycle := g.findCycle(); cycle != nil {
		return nil, &CycleError{Path: cycle}
	}

	return g, nil
}

// findCycle runs a depth-first traversal with a recursion-stack marker.
// It returns the task IDs on the first cycle found, or nil.
func (g *Graph) findCycle() []string {
	const (
		white = iota // unvisited
		gray         // on the recursion stack
		black        // fully explored
	)

	colors := make([]int, len(g.nodes))
	stack := make([]int, 0, len(g.nodes))

	var cycle []string
	var visit func(i int) bool
	visit = func(i int) bool {
		colors[i] = gray
		stack = append(stack, i)

		for _, j := range g.nodes[i].deps {
			switch colors[j] {
			case gray:
				// Back edge: the cycle is the stack segment from j onward.
				for k, idx := range stack {
					if idx == j {
						for _, n := range stack[k:] {
							cycle = append(cycle, g.nodes[n].task.ID)
						}
						break
					}
				}
				cycle = append(cycle, g.nodes[j].task.ID)
				return true
			case white:
				if visit(j) {
					return true
				}
			}
		}

		stack = stack[:len(stack)-1]
		colors[i] = black
		return false
	}

	for i := range g.nodes {
		if colors[i] == white {
			if visit(i) {
				return cycle
			}
		}
	}
	return nil
}

// Len returns the number of tasks in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Task returns the descriptor at arena index i.
func (g *Graph) Task(i int) models.TaskDescriptor {
	return g.nodes[i].task
}

// Order returns the submission position of the task at index i.
func (g *Graph) Order(i int) int {
	return g.nodes[i].order
}

// Dependencies returns the arena indices the task at i depends on.
func (g *Graph) Dependencies(i int) []int {
	return g.nodes[i].deps
}

// Dependents returns the arena indices of tasks depending on i.
// This is the reverse-edge list used to unblock tasks as prerequisites
// finish.
func (g *Graph) Dependents(i int) []int {
	return g.nodes[i].dependents
}

// IndexOf returns the arena index for a task ID.
func (g *Graph) IndexOf(id string) (int, bool) {
	i, ok := g.index[id]
	return i, ok
}

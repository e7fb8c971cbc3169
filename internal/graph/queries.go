package graph

import (
	"fmt"

	"github.com/BayFX/omts/internal/types"
)

// ReachableFrom returns the ids of every vertex reachable from start in the
// given direction, including start itself. Plain BFS, no depth limit. The
// result lists ids in file insertion order so identical inputs produce
// identical output.
func (g *Graph) ReachableFrom(start types.NodeID, dir Direction, edgeTypes []types.EdgeTypeTag) ([]types.NodeID, error) {
	startIdx, ok := g.byID[start]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNodeNotFound, start)
	}
	filter := newEdgeTypeFilter(edgeTypes)

	visited := make([]bool, len(g.vertices))
	visited[startIdx] = true
	queue := []int{startIdx}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		g.neighbors(current, dir, filter, func(_, neighbor int) {
			if !visited[neighbor] {
				visited[neighbor] = true
				queue = append(queue, neighbor)
			}
		})
	}

	var out []types.NodeID
	for i, v := range g.vertices {
		if visited[i] {
			out = append(out, v.localID)
		}
	}
	return out, nil
}

// ShortestPath returns one shortest vertex sequence from from to to under
// unit edge cost, or nil when to is unreachable. Ties break toward the lower
// edge insertion index, then the lower vertex index, which the BFS achieves
// by expanding neighbours in ascending edge order.
func (g *Graph) ShortestPath(from, to types.NodeID, dir Direction, edgeTypes []types.EdgeTypeTag) ([]types.NodeID, error) {
	fromIdx, ok := g.byID[from]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNodeNotFound, from)
	}
	toIdx, ok := g.byID[to]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNodeNotFound, to)
	}
	if fromIdx == toIdx {
		return []types.NodeID{g.vertices[fromIdx].localID}, nil
	}

	filter := newEdgeTypeFilter(edgeTypes)
	parent := make([]int, len(g.vertices))
	for i := range parent {
		parent[i] = -1
	}
	parent[fromIdx] = fromIdx

	queue := []int{fromIdx}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		found := false
		g.neighbors(current, dir, filter, func(_, neighbor int) {
			if found || parent[neighbor] != -1 {
				return
			}
			parent[neighbor] = current
			if neighbor == toIdx {
				found = true
				return
			}
			queue = append(queue, neighbor)
		})
		if found {
			break
		}
	}

	if parent[toIdx] == -1 {
		return nil, nil
	}

	var reversed []int
	for v := toIdx; v != fromIdx; v = parent[v] {
		reversed = append(reversed, v)
	}
	reversed = append(reversed, fromIdx)

	path := make([]types.NodeID, len(reversed))
	for i, v := range reversed {
		path[len(reversed)-1-i] = g.vertices[v].localID
	}
	return path, nil
}

// DetectCycles returns one cycle per non-trivial strongly connected
// component of the subgraph restricted to the given edge types (nil means
// all edges). A component is non-trivial when it has more than one vertex or
// a self-loop. Each cycle lists the component's vertices in SCC discovery
// order.
func (g *Graph) DetectCycles(edgeTypes []types.EdgeTypeTag) [][]types.NodeID {
	filter := newEdgeTypeFilter(edgeTypes)

	n := len(g.vertices)
	index := make([]int, n)
	lowlink := make([]int, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = -1
	}

	var stack []int
	var cycles [][]types.NodeID
	counter := 0

	// Iterative Tarjan with an explicit work stack: each frame tracks the
	// vertex and the position within its outgoing edge list.
	type frame struct {
		v    int
		next int
	}

	selfLoop := make([]bool, n)
	for _, e := range g.edges {
		if e.from == e.to && filter.allows(e.edgeType) {
			selfLoop[e.from] = true
		}
	}

	for root := 0; root < n; root++ {
		if index[root] != -1 {
			continue
		}
		work := []frame{{v: root}}
		index[root] = counter
		lowlink[root] = counter
		counter++
		stack = append(stack, root)
		onStack[root] = true

		for len(work) > 0 {
			f := &work[len(work)-1]
			advanced := false
			for f.next < len(g.out[f.v]) {
				e := g.out[f.v][f.next]
				f.next++
				if !filter.allows(g.edges[e].edgeType) {
					continue
				}
				w := g.edges[e].to
				if index[w] == -1 {
					index[w] = counter
					lowlink[w] = counter
					counter++
					stack = append(stack, w)
					onStack[w] = true
					work = append(work, frame{v: w})
					advanced = true
					break
				}
				if onStack[w] && index[w] < lowlink[f.v] {
					lowlink[f.v] = index[w]
				}
			}
			if advanced {
				continue
			}

			v := f.v
			work = work[:len(work)-1]
			if len(work) > 0 {
				parentV := work[len(work)-1].v
				if lowlink[v] < lowlink[parentV] {
					lowlink[parentV] = lowlink[v]
				}
			}
			if lowlink[v] != index[v] {
				continue
			}

			// v is an SCC root; pop the component.
			var component []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				component = append(component, w)
				if w == v {
					break
				}
			}
			if len(component) == 1 && !selfLoop[component[0]] {
				continue
			}
			// Components pop in reverse discovery order; flip them back.
			cycle := make([]types.NodeID, len(component))
			for i, w := range component {
				cycle[len(component)-1-i] = g.vertices[w].localID
			}
			cycles = append(cycles, cycle)
		}
	}
	return cycles
}

package graph

import (
	"fmt"

	"github.com/BayFX/omts/internal/types"
)

// InducedSubgraph returns a new file containing exactly the given nodes and
// every edge whose source and target are both kept. Node order follows the
// original file. Header fields are preserved; reporting_entity survives only
// when its referent does.
func (g *Graph) InducedSubgraph(nodeIDs []types.NodeID) (*types.File, error) {
	included := make(map[int]bool, len(nodeIDs))
	for _, id := range nodeIDs {
		idx, ok := g.byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrNodeNotFound, id)
		}
		included[idx] = true
	}
	return g.assembleSubgraph(included), nil
}

// EgoGraph BFS-expands center by radius hops in the given direction, then
// extracts the induced subgraph of the visited set. radius 0 yields the
// center alone.
func (g *Graph) EgoGraph(center types.NodeID, radius int, dir Direction) (*types.File, error) {
	centerIdx, ok := g.byID[center]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNodeNotFound, center)
	}
	visited := g.expand(map[int]bool{centerIdx: true}, radius, dir)
	return g.assembleSubgraph(visited), nil
}

// SelectorSubgraph evaluates selectors, folds seed-edge endpoints into the
// seed node set, expands the seeds by expand undirected hops, and assembles
// the induced subgraph. When no node and no edge matched, the result is an
// ErrEmptyResult error.
func (g *Graph) SelectorSubgraph(selectors *SelectorSet, expand int) (*types.File, error) {
	if selectors.IsEmpty() {
		all := make(map[int]bool, len(g.vertices))
		for i := range g.vertices {
			all[i] = true
		}
		return g.assembleSubgraph(all), nil
	}

	seeds := make(map[int]bool)
	anyEdgeMatched := false

	if selectors.HasNodeSelectors() {
		if selectors.nodeTypeIndexOnly() {
			for _, t := range selectors.NodeTypes {
				for _, v := range g.byNodeType[t] {
					seeds[v] = true
				}
			}
		} else {
			for i := range g.file.Nodes {
				if selectors.MatchesNode(&g.file.Nodes[i]) {
					if idx, ok := g.byID[g.file.Nodes[i].ID]; ok {
						seeds[idx] = true
					}
				}
			}
		}
	}

	if selectors.HasEdgeSelectors() {
		if selectors.edgeTypeIndexOnly() {
			for _, t := range selectors.EdgeTypes {
				for _, e := range g.byEdgeType[t] {
					anyEdgeMatched = true
					seeds[g.edges[e].from] = true
					seeds[g.edges[e].to] = true
				}
			}
		} else {
			for e := range g.edges {
				if selectors.MatchesEdge(g.EdgeData(e)) {
					anyEdgeMatched = true
					seeds[g.edges[e].from] = true
					seeds[g.edges[e].to] = true
				}
			}
		}
	}

	if len(seeds) == 0 && !anyEdgeMatched {
		return nil, ErrEmptyResult
	}

	visited := g.expand(seeds, expand, Both)
	return g.assembleSubgraph(visited), nil
}

// expand performs a bounded BFS from the seed set, returning the visited
// vertex set (seeds included).
func (g *Graph) expand(seeds map[int]bool, hops int, dir Direction) map[int]bool {
	visited := make(map[int]bool, len(seeds))
	type item struct {
		v    int
		hops int
	}
	var queue []item
	// Seed the frontier in vertex order for deterministic traversal.
	for v := 0; v < len(g.vertices); v++ {
		if seeds[v] {
			visited[v] = true
			queue = append(queue, item{v: v})
		}
	}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current.hops >= hops {
			continue
		}
		g.neighbors(current.v, dir, nil, func(_, neighbor int) {
			if !visited[neighbor] {
				visited[neighbor] = true
				queue = append(queue, item{v: neighbor, hops: current.hops + 1})
			}
		})
	}
	return visited
}

// assembleSubgraph copies the included nodes (file order), the edges with
// both endpoints included, and the header. reporting_entity is dropped when
// its referent did not survive.
func (g *Graph) assembleSubgraph(included map[int]bool) *types.File {
	out := types.File{
		Version:             g.file.Version,
		SnapshotDate:        g.file.SnapshotDate,
		FileSalt:            g.file.FileSalt,
		Extra:               g.file.Extra.Clone(),
		PreviousSnapshotRef: nil,
		Nodes:               []types.Node{},
		Edges:               []types.Edge{},
	}
	if g.file.DisclosureScope != nil {
		scope := *g.file.DisclosureScope
		out.DisclosureScope = &scope
	}
	if g.file.PreviousSnapshotRef != nil {
		ref := *g.file.PreviousSnapshotRef
		out.PreviousSnapshotRef = &ref
	}
	if g.file.SnapshotSequence != nil {
		seq := *g.file.SnapshotSequence
		out.SnapshotSequence = &seq
	}

	keptIDs := make(map[types.NodeID]bool, len(included))
	for v := 0; v < len(g.vertices); v++ {
		if included[v] {
			node := g.file.Nodes[g.vertices[v].dataIndex].Clone()
			out.Nodes = append(out.Nodes, node)
			keptIDs[node.ID] = true
		}
	}

	for e := range g.edges {
		if included[g.edges[e].from] && included[g.edges[e].to] {
			out.Edges = append(out.Edges, g.file.Edges[g.edges[e].dataIndex].Clone())
		}
	}

	if g.file.ReportingEntity != nil && keptIDs[*g.file.ReportingEntity] {
		re := *g.file.ReportingEntity
		out.ReportingEntity = &re
	}
	return &out
}

// Package graph builds an indexed directed graph over a parsed file and
// answers reachability, path, cycle, and subgraph-extraction queries.
//
// The graph borrows the file immutably: vertices and edges carry integer
// indices back into the file's node and edge sequences, so no cyclic object
// graph exists and the index can be discarded independently of the file.
package graph

import (
	"errors"
	"fmt"

	"github.com/BayFX/omts/internal/types"
)

// Graph error kinds, matched with errors.Is.
var (
	ErrDuplicateNodeID   = errors.New("duplicate node id")
	ErrDuplicateEdgeID   = errors.New("duplicate edge id")
	ErrDanglingReference = errors.New("dangling edge reference")
	ErrNodeNotFound      = errors.New("node not found")
	ErrEmptyResult       = errors.New("no nodes or edges matched")
)

// DanglingReferenceError reports an edge endpoint that names a missing node.
type DanglingReferenceError struct {
	EdgeID    types.NodeID
	Endpoint  string // "source" or "target"
	MissingID types.NodeID
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("edge %q %s %q does not reference an existing node",
		e.EdgeID, e.Endpoint, e.MissingID)
}

func (e *DanglingReferenceError) Unwrap() error { return ErrDanglingReference }

// Direction selects which edges a traversal follows.
type Direction int

const (
	// Forward follows outgoing edges.
	Forward Direction = iota
	// Backward follows incoming edges.
	Backward
	// Both follows edges in either direction.
	Both
)

type vertex struct {
	localID   types.NodeID
	dataIndex int
}

type edgeInfo struct {
	edgeType  types.EdgeTypeTag
	dataIndex int
	from      int
	to        int
}

// Graph is the index structure. It holds no copies of node or edge data —
// only handles into the file it was built from.
type Graph struct {
	file     *types.File
	vertices []vertex
	edges    []edgeInfo

	out [][]int // per-vertex outgoing edge indices, insertion order
	in  [][]int // per-vertex incoming edge indices, insertion order

	byID       map[types.NodeID]int
	byNodeType map[types.NodeTypeTag][]int
	byEdgeType map[types.EdgeTypeTag][]int
}

// Build constructs the index. It fails on duplicate node or edge ids and on
// edges whose endpoints do not resolve; no partial graph is returned.
func Build(file *types.File) (*Graph, error) {
	g := &Graph{
		file:       file,
		vertices:   make([]vertex, 0, len(file.Nodes)),
		edges:      make([]edgeInfo, 0, len(file.Edges)),
		out:        make([][]int, len(file.Nodes)),
		in:         make([][]int, len(file.Nodes)),
		byID:       make(map[types.NodeID]int, len(file.Nodes)),
		byNodeType: make(map[types.NodeTypeTag][]int),
		byEdgeType: make(map[types.EdgeTypeTag][]int),
	}

	for i := range file.Nodes {
		node := &file.Nodes[i]
		if _, exists := g.byID[node.ID]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateNodeID, node.ID)
		}
		idx := len(g.vertices)
		g.vertices = append(g.vertices, vertex{localID: node.ID, dataIndex: i})
		g.byID[node.ID] = idx
		g.byNodeType[node.Type] = append(g.byNodeType[node.Type], idx)
	}

	seenEdgeIDs := make(map[types.NodeID]bool, len(file.Edges))
	for i := range file.Edges {
		edge := &file.Edges[i]
		if seenEdgeIDs[edge.ID] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateEdgeID, edge.ID)
		}
		seenEdgeIDs[edge.ID] = true

		from, ok := g.byID[edge.Source]
		if !ok {
			return nil, &DanglingReferenceError{EdgeID: edge.ID, Endpoint: "source", MissingID: edge.Source}
		}
		to, ok := g.byID[edge.Target]
		if !ok {
			return nil, &DanglingReferenceError{EdgeID: edge.ID, Endpoint: "target", MissingID: edge.Target}
		}

		edgeIdx := len(g.edges)
		g.edges = append(g.edges, edgeInfo{edgeType: edge.Type, dataIndex: i, from: from, to: to})
		g.out[from] = append(g.out[from], edgeIdx)
		g.in[to] = append(g.in[to], edgeIdx)
		g.byEdgeType[edge.Type] = append(g.byEdgeType[edge.Type], edgeIdx)
	}

	return g, nil
}

// File returns the file the graph indexes.
func (g *Graph) File() *types.File { return g.file }

// NumVertices returns the vertex count.
func (g *Graph) NumVertices() int { return len(g.vertices) }

// NumEdges returns the edge count.
func (g *Graph) NumEdges() int { return len(g.edges) }

// VertexIndex resolves a node id to its vertex index.
func (g *Graph) VertexIndex(id types.NodeID) (int, bool) {
	idx, ok := g.byID[id]
	return idx, ok
}

// VerticesOfType returns the vertex indices of nodes with the given type, in
// insertion order.
func (g *Graph) VerticesOfType(t types.NodeTypeTag) []int { return g.byNodeType[t] }

// EdgesOfType returns the edge indices of edges with the given type, in
// insertion order.
func (g *Graph) EdgesOfType(t types.EdgeTypeTag) []int { return g.byEdgeType[t] }

// NodeData returns the file node backing the vertex.
func (g *Graph) NodeData(vertexIdx int) *types.Node {
	return &g.file.Nodes[g.vertices[vertexIdx].dataIndex]
}

// EdgeData returns the file edge backing the edge index.
func (g *Graph) EdgeData(edgeIdx int) *types.Edge {
	return &g.file.Edges[g.edges[edgeIdx].dataIndex]
}

// edgeTypeFilter is a nil-able allow set over edge types.
type edgeTypeFilter map[types.EdgeTypeTag]bool

func newEdgeTypeFilter(edgeTypes []types.EdgeTypeTag) edgeTypeFilter {
	if edgeTypes == nil {
		return nil
	}
	f := make(edgeTypeFilter, len(edgeTypes))
	for _, t := range edgeTypes {
		f[t] = true
	}
	return f
}

func (f edgeTypeFilter) allows(t types.EdgeTypeTag) bool {
	return f == nil || f[t]
}

// neighbors iterates the traversal steps from vertex v in the given
// direction, in ascending edge-insertion order, calling visit with the edge
// index and the vertex on the far side. For Both, outgoing and incoming
// lists are merged by edge index so the tie-break order stays global.
func (g *Graph) neighbors(v int, dir Direction, filter edgeTypeFilter, visit func(edgeIdx, neighbor int)) {
	emit := func(edgeIdx int, neighbor int) {
		if filter.allows(g.edges[edgeIdx].edgeType) {
			visit(edgeIdx, neighbor)
		}
	}
	switch dir {
	case Forward:
		for _, e := range g.out[v] {
			emit(e, g.edges[e].to)
		}
	case Backward:
		for _, e := range g.in[v] {
			emit(e, g.edges[e].from)
		}
	case Both:
		outs, ins := g.out[v], g.in[v]
		i, j := 0, 0
		for i < len(outs) || j < len(ins) {
			switch {
			case j >= len(ins) || (i < len(outs) && outs[i] <= ins[j]):
				e := outs[i]
				emit(e, g.edges[e].to)
				// A self-loop appears in both lists with the same index;
				// advance both so it is stepped once.
				if j < len(ins) && ins[j] == e {
					j++
				}
				i++
			default:
				e := ins[j]
				emit(e, g.edges[e].from)
				j++
			}
		}
	}
}

package graph

import (
	"sort"
	"strings"

	"github.com/BayFX/omts/internal/types"
)

// KeyValue is a two-part selector alternative (label key/value or identifier
// scheme/value).
type KeyValue struct {
	Key   string
	Value string
}

// SelectorSet groups property predicates for subgraph extraction. Groups are
// ORed: an element matches when any alternative in any applicable group
// matches it. Node-only groups (node type, labels, jurisdiction, name) never
// match edges, and the edge-type group never matches nodes; identifier
// groups apply to both, since both carry identifier records. An empty set
// matches everything.
type SelectorSet struct {
	NodeTypes              []types.NodeTypeTag
	EdgeTypes              []types.EdgeTypeTag
	LabelKeys              []string
	LabelKeyValues         []KeyValue
	IdentifierSchemes      []string
	IdentifierSchemeValues []KeyValue
	Jurisdictions          []string
	Names                  []string
}

// IsEmpty reports whether no selector group is populated.
func (s *SelectorSet) IsEmpty() bool {
	return len(s.NodeTypes) == 0 && len(s.EdgeTypes) == 0 &&
		len(s.LabelKeys) == 0 && len(s.LabelKeyValues) == 0 &&
		len(s.IdentifierSchemes) == 0 && len(s.IdentifierSchemeValues) == 0 &&
		len(s.Jurisdictions) == 0 && len(s.Names) == 0
}

// HasNodeSelectors reports whether any node-applicable group is populated.
func (s *SelectorSet) HasNodeSelectors() bool {
	return len(s.NodeTypes) > 0 || len(s.LabelKeys) > 0 || len(s.LabelKeyValues) > 0 ||
		len(s.IdentifierSchemes) > 0 || len(s.IdentifierSchemeValues) > 0 ||
		len(s.Jurisdictions) > 0 || len(s.Names) > 0
}

// HasEdgeSelectors reports whether any edge-applicable group is populated.
func (s *SelectorSet) HasEdgeSelectors() bool {
	return len(s.EdgeTypes) > 0 ||
		len(s.IdentifierSchemes) > 0 || len(s.IdentifierSchemeValues) > 0
}

// nodeTypeIndexOnly reports whether the node-type index can replace a linear
// node scan (node types are the only populated node-applicable group).
func (s *SelectorSet) nodeTypeIndexOnly() bool {
	return len(s.NodeTypes) > 0 &&
		len(s.LabelKeys) == 0 && len(s.LabelKeyValues) == 0 &&
		len(s.IdentifierSchemes) == 0 && len(s.IdentifierSchemeValues) == 0 &&
		len(s.Jurisdictions) == 0 && len(s.Names) == 0
}

// edgeTypeIndexOnly reports whether the edge-type index can replace a linear
// edge scan.
func (s *SelectorSet) edgeTypeIndexOnly() bool {
	return len(s.EdgeTypes) > 0 &&
		len(s.IdentifierSchemes) == 0 && len(s.IdentifierSchemeValues) == 0
}

// MatchesNode evaluates the node-applicable groups against a node.
func (s *SelectorSet) MatchesNode(node *types.Node) bool {
	for _, t := range s.NodeTypes {
		if node.Type == t {
			return true
		}
	}
	for _, key := range s.LabelKeys {
		for _, l := range node.Labels {
			if l.Key == key {
				return true
			}
		}
	}
	for _, kv := range s.LabelKeyValues {
		for _, l := range node.Labels {
			if l.Key == kv.Key && l.Value != nil && *l.Value == kv.Value {
				return true
			}
		}
	}
	if matchIdentifiers(node.Identifiers, s.IdentifierSchemes, s.IdentifierSchemeValues) {
		return true
	}
	for _, j := range s.Jurisdictions {
		if node.Jurisdiction != nil && *node.Jurisdiction == j {
			return true
		}
	}
	for _, name := range s.Names {
		if node.Name != nil && strings.Contains(strings.ToLower(*node.Name), strings.ToLower(name)) {
			return true
		}
	}
	return false
}

// MatchesEdge evaluates the edge-applicable groups against an edge.
func (s *SelectorSet) MatchesEdge(edge *types.Edge) bool {
	for _, t := range s.EdgeTypes {
		if edge.Type == t {
			return true
		}
	}
	return matchIdentifiers(edge.Identifiers, s.IdentifierSchemes, s.IdentifierSchemeValues)
}

func matchIdentifiers(ids []types.Identifier, schemes []string, schemeValues []KeyValue) bool {
	for _, scheme := range schemes {
		for i := range ids {
			if ids[i].Scheme == scheme {
				return true
			}
		}
	}
	for _, kv := range schemeValues {
		for i := range ids {
			if ids[i].Scheme == kv.Key && ids[i].Value == kv.Value {
				return true
			}
		}
	}
	return false
}

// MatchResult holds the indices of matching elements from a selector scan.
type MatchResult struct {
	NodeIndices []int
	EdgeIndices []int
}

// SelectorMatch returns the indices of all nodes and edges in the file that
// match the selector set, without assembling a subgraph. An empty set
// matches every node and edge. When the only active group is node-type or
// edge-type the scan uses the type indices instead of a linear pass.
func (g *Graph) SelectorMatch(selectors *SelectorSet) MatchResult {
	var result MatchResult

	if selectors.IsEmpty() {
		result.NodeIndices = make([]int, len(g.file.Nodes))
		for i := range result.NodeIndices {
			result.NodeIndices[i] = i
		}
		result.EdgeIndices = make([]int, len(g.file.Edges))
		for i := range result.EdgeIndices {
			result.EdgeIndices[i] = i
		}
		return result
	}

	if selectors.HasNodeSelectors() {
		if selectors.nodeTypeIndexOnly() {
			seen := make(map[int]bool)
			for _, t := range selectors.NodeTypes {
				for _, v := range g.byNodeType[t] {
					di := g.vertices[v].dataIndex
					if !seen[di] {
						seen[di] = true
						result.NodeIndices = append(result.NodeIndices, di)
					}
				}
			}
			sort.Ints(result.NodeIndices)
		} else {
			for i := range g.file.Nodes {
				if selectors.MatchesNode(&g.file.Nodes[i]) {
					result.NodeIndices = append(result.NodeIndices, i)
				}
			}
		}
	}

	if selectors.HasEdgeSelectors() {
		if selectors.edgeTypeIndexOnly() {
			seen := make(map[int]bool)
			for _, t := range selectors.EdgeTypes {
				for _, e := range g.byEdgeType[t] {
					di := g.edges[e].dataIndex
					if !seen[di] {
						seen[di] = true
						result.EdgeIndices = append(result.EdgeIndices, di)
					}
				}
			}
			sort.Ints(result.EdgeIndices)
		} else {
			for i := range g.file.Edges {
				if selectors.MatchesEdge(&g.file.Edges[i]) {
					result.EdgeIndices = append(result.EdgeIndices, i)
				}
			}
		}
	}

	return result
}

package diff

import (
	"encoding/json"
	"fmt"

	"github.com/BayFX/omts/internal/identity"
	"github.com/BayFX/omts/internal/types"
	"github.com/BayFX/omts/internal/unionfind"
)

// Diff compares file A against file B with no filter.
func Diff(a, b *types.File) (*Result, error) {
	return DiffFiltered(a, b, nil)
}

// DiffFiltered compares file A against file B. The filter, when non-nil,
// whitelists node and edge types and suppresses ignored fields. Matching
// always runs over the full node sets so edge endpoints resolve; the filter
// shapes what is reported.
func DiffFiltered(a, b *types.File, filter *Filter) (*Result, error) {
	if filter == nil {
		filter = &Filter{}
	}
	ignore := make(map[string]bool, len(filter.IgnoreFields))
	for _, f := range filter.IgnoreFields {
		ignore[f] = true
	}
	nodeAllowed := typeAllow(filter.NodeTypes)
	edgeAllowed := typeAllow(filter.EdgeTypes)

	result := &Result{
		Nodes:    NodesDiff{Added: []NodeRef{}, Removed: []NodeRef{}, Modified: []NodeDiff{}},
		Edges:    EdgesDiff{Added: []EdgeRef{}, Removed: []EdgeRef{}, Modified: []EdgeDiff{}},
		Warnings: []string{},
	}

	nA := len(a.Nodes)
	total := nA + len(b.Nodes)
	uf := unionfind.New(total)

	// Identifier index across both files, keyed by canonical string, skipping
	// internal-scheme identifiers. Ordinals 0..nA-1 are A nodes, the rest B.
	type entry struct {
		ordinal int
		id      *types.Identifier
	}
	buckets := make(map[string][]entry)
	collect := func(nodes []types.Node, offset int) {
		for i := range nodes {
			for j := range nodes[i].Identifiers {
				ident := &nodes[i].Identifiers[j]
				if ident.Scheme == types.SchemeInternal {
					continue
				}
				key := types.CanonicalKey(ident)
				buckets[key] = append(buckets[key], entry{ordinal: offset + i, id: ident})
			}
		}
	}
	collect(a.Nodes, 0)
	collect(b.Nodes, nA)

	for _, bucket := range buckets {
		for i := 0; i < len(bucket); i++ {
			for j := i + 1; j < len(bucket); j++ {
				if bucket[i].ordinal == bucket[j].ordinal {
					continue
				}
				if identity.IdentifiersMatch(bucket[i].id, bucket[j].id) {
					uf.Union(bucket[i].ordinal, bucket[j].ordinal)
				}
			}
		}
	}

	// Group ordinals by representative, in insertion order.
	components := make(map[int][]int)
	var repOrder []int
	for ord := 0; ord < total; ord++ {
		rep := uf.Find(ord)
		if _, seen := components[rep]; !seen {
			repOrder = append(repOrder, rep)
		}
		components[rep] = append(components[rep], ord)
	}

	matchedA := make([]int, nA) // A ordinal → B node index, -1 when unmatched
	for i := range matchedA {
		matchedA[i] = -1
	}
	matchedB := make([]bool, len(b.Nodes))

	for _, rep := range repOrder {
		var aSide, bSide []int
		for _, ord := range components[rep] {
			if ord < nA {
				aSide = append(aSide, ord)
			} else {
				bSide = append(bSide, ord-nA)
			}
		}
		if len(aSide) > 1 || len(bSide) > 1 {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"ambiguous identifier match group (%d nodes in A, %d nodes in B); matching greedily in file order",
				len(aSide), len(bSide)))
		}
		for i := 0; i < len(aSide) && i < len(bSide); i++ {
			matchedA[aSide[i]] = bSide[i]
			matchedB[bSide[i]] = true
		}
	}

	// Classify nodes.
	for i := range a.Nodes {
		nodeA := &a.Nodes[i]
		if !nodeAllowed(string(nodeA.Type)) {
			continue
		}
		j := matchedA[i]
		if j < 0 {
			result.Nodes.Removed = append(result.Nodes.Removed, NodeRef{ID: nodeA.ID, Type: nodeA.Type})
			result.Summary.NodesRemoved++
			continue
		}
		nodeB := &b.Nodes[j]
		pair, changed, err := classifyNodePair(nodeA, nodeB, ignore)
		if err != nil {
			return nil, err
		}
		if changed {
			result.Nodes.Modified = append(result.Nodes.Modified, pair)
			result.Summary.NodesModified++
		} else {
			result.Summary.NodesUnchanged++
		}
	}
	for j := range b.Nodes {
		nodeB := &b.Nodes[j]
		if !nodeAllowed(string(nodeB.Type)) || matchedB[j] {
			continue
		}
		result.Nodes.Added = append(result.Nodes.Added, NodeRef{ID: nodeB.ID, Type: nodeB.Type})
		result.Summary.NodesAdded++
	}

	diffEdges(a, b, nA, uf, edgeAllowed, ignore, result)
	return result, nil
}

// typeAllow builds a whitelist predicate over node or edge type tags; a nil
// list allows everything.
func typeAllow[T ~string](allowed []T) func(string) bool {
	if allowed == nil {
		return func(string) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, t := range allowed {
		set[string(t)] = true
	}
	return func(t string) bool { return set[t] }
}

func classifyNodePair(nodeA, nodeB *types.Node, ignore map[string]bool) (NodeDiff, bool, error) {
	aScalars, err := nodeA.ScalarValues()
	if err != nil {
		return NodeDiff{}, false, err
	}
	bScalars, err := nodeB.ScalarValues()
	if err != nil {
		return NodeDiff{}, false, err
	}

	changes := scalarChanges(types.NodeScalarFields, aScalars, bScalars, nodeA.Extra, nodeB.Extra, ignore)
	dqChange := dataQualityChange(nodeA.DataQuality, nodeB.DataQuality, ignore)
	if dqChange != nil {
		changes = append(changes, *dqChange)
	}

	pair := NodeDiff{
		IDA:               nodeA.ID,
		IDB:               nodeB.ID,
		Type:              nodeA.Type,
		MatchedBy:         MatchedByIdentifier,
		PropertyChanges:   changes,
		IdentifierChanges: diffIdentifierSets(nodeA.Identifiers, nodeB.Identifiers),
		LabelChanges:      diffLabelSets(nodeA.Labels, nodeB.Labels),
	}
	if nodeA.Type != nodeB.Type {
		typeOld, _ := json.Marshal(string(nodeA.Type))
		typeNew, _ := json.Marshal(string(nodeB.Type))
		pair.PropertyChanges = append([]PropertyChange{{Field: "type", Old: typeOld, New: typeNew}}, pair.PropertyChanges...)
	}
	changed := len(pair.PropertyChanges) > 0 || !pair.IdentifierChanges.Empty() || !pair.LabelChanges.Empty()
	return pair, changed, nil
}

func dataQualityChange(a, b types.ExtraMap, ignore map[string]bool) *PropertyChange {
	if ignore["data_quality"] || (a == nil && b == nil) {
		return nil
	}
	var out []PropertyChange
	var aRaw, bRaw json.RawMessage
	if a != nil {
		aRaw = marshalSortedObject(a)
	}
	if b != nil {
		bRaw = marshalSortedObject(b)
	}
	maybeChange("data_quality", aRaw, bRaw, ignore, &out)
	if len(out) == 0 {
		return nil
	}
	return &out[0]
}

func marshalSortedObject(m types.ExtraMap) json.RawMessage {
	obj := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		obj[k] = v
	}
	raw, _ := json.Marshal(obj)
	return raw
}

// diffEdges matches and classifies edges after node matching. Candidate
// buckets share (resolved source, resolved target, type); within a bucket an
// edge pairs with the first unconsumed counterpart sharing an external
// identifier, or — when both lack external identifiers — agreeing on the
// per-type identity fields. same_as edges never match.
func diffEdges(a, b *types.File, nA int, uf *unionfind.UnionFind, edgeAllowed func(string) bool, ignore map[string]bool, result *Result) {
	aIndex := nodeOrdinals(a.Nodes, 0)
	bIndex := nodeOrdinals(b.Nodes, nA)

	type bucketKey struct {
		srcRep, tgtRep int
		edgeType       types.EdgeTypeTag
	}
	resolve := func(index map[types.NodeID]int, id types.NodeID) (int, bool) {
		ord, ok := index[id]
		if !ok {
			return 0, false
		}
		return uf.Find(ord), true
	}

	type bEdgeEntry struct {
		index    int
		consumed bool
	}
	bBuckets := make(map[bucketKey][]*bEdgeEntry)
	var bBucketOrder []bucketKey
	for i := range b.Edges {
		edge := &b.Edges[i]
		if edge.Type == types.EdgeSameAs || !edgeAllowed(string(edge.Type)) {
			continue
		}
		srcRep, okSrc := resolve(bIndex, edge.Source)
		tgtRep, okTgt := resolve(bIndex, edge.Target)
		if !okSrc || !okTgt {
			continue
		}
		key := bucketKey{srcRep: srcRep, tgtRep: tgtRep, edgeType: edge.Type}
		if _, seen := bBuckets[key]; !seen {
			bBucketOrder = append(bBucketOrder, key)
		}
		bBuckets[key] = append(bBuckets[key], &bEdgeEntry{index: i})
	}

	for i := range a.Edges {
		edgeA := &a.Edges[i]
		if edgeA.Type == types.EdgeSameAs || !edgeAllowed(string(edgeA.Type)) {
			continue
		}
		srcRep, okSrc := resolve(aIndex, edgeA.Source)
		tgtRep, okTgt := resolve(aIndex, edgeA.Target)
		var candidates []*bEdgeEntry
		if okSrc && okTgt {
			candidates = bBuckets[bucketKey{srcRep: srcRep, tgtRep: tgtRep, edgeType: edgeA.Type}]
		}

		var match *bEdgeEntry
		matchedBy := MatchedByIdentifier
		for _, cand := range candidates {
			if cand.consumed {
				continue
			}
			edgeB := &b.Edges[cand.index]
			if by, ok := edgesPair(edgeA, edgeB); ok {
				match = cand
				matchedBy = by
				break
			}
		}

		if match == nil {
			result.Edges.Removed = append(result.Edges.Removed, EdgeRef{
				ID: edgeA.ID, Type: edgeA.Type, Source: edgeA.Source, Target: edgeA.Target,
			})
			result.Summary.EdgesRemoved++
			continue
		}
		match.consumed = true
		edgeB := &b.Edges[match.index]

		pair, changed, err := classifyEdgePair(edgeA, edgeB, matchedBy, ignore)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("edge %q: %v", edgeA.ID, err))
			continue
		}
		if changed {
			result.Edges.Modified = append(result.Edges.Modified, pair)
			result.Summary.EdgesModified++
		} else {
			result.Summary.EdgesUnchanged++
		}
	}

	for _, key := range bBucketOrder {
		for _, entry := range bBuckets[key] {
			if entry.consumed {
				continue
			}
			edgeB := &b.Edges[entry.index]
			result.Edges.Added = append(result.Edges.Added, EdgeRef{
				ID: edgeB.ID, Type: edgeB.Type, Source: edgeB.Source, Target: edgeB.Target,
			})
			result.Summary.EdgesAdded++
		}
	}
}

func nodeOrdinals(nodes []types.Node, offset int) map[types.NodeID]int {
	m := make(map[types.NodeID]int, len(nodes))
	for i := range nodes {
		if _, exists := m[nodes[i].ID]; !exists {
			m[nodes[i].ID] = offset + i
		}
	}
	return m
}

// edgesPair decides whether two bucket-mates match, and how. Buckets already
// guarantee endpoints and type.
func edgesPair(edgeA, edgeB *types.Edge) (MatchedBy, bool) {
	aExternal := edgeA.ExternalIdentifiers()
	bExternal := edgeB.ExternalIdentifiers()
	if len(aExternal) > 0 || len(bExternal) > 0 {
		for i := range aExternal {
			for j := range bExternal {
				if identity.IdentifiersMatch(&aExternal[i], &bExternal[j]) {
					return MatchedByIdentifier, true
				}
			}
		}
		return "", false
	}
	if identity.EdgeIdentityPropertiesMatch(edgeA.Type, &edgeA.Properties, &edgeB.Properties) {
		return MatchedByProperties, true
	}
	return "", false
}

func classifyEdgePair(edgeA, edgeB *types.Edge, matchedBy MatchedBy, ignore map[string]bool) (EdgeDiff, bool, error) {
	aScalars, err := edgeA.Properties.ScalarValues()
	if err != nil {
		return EdgeDiff{}, false, err
	}
	bScalars, err := edgeB.Properties.ScalarValues()
	if err != nil {
		return EdgeDiff{}, false, err
	}

	changes := scalarChanges(types.EdgePropertyScalarFields, aScalars, bScalars, edgeA.Properties.Extra, edgeB.Properties.Extra, ignore)
	if dq := dataQualityChange(edgeA.Properties.DataQuality, edgeB.Properties.DataQuality, ignore); dq != nil {
		changes = append(changes, *dq)
	}

	pair := EdgeDiff{
		IDA:               edgeA.ID,
		IDB:               edgeB.ID,
		Type:              edgeA.Type,
		MatchedBy:         matchedBy,
		PropertyChanges:   changes,
		IdentifierChanges: diffIdentifierSets(edgeA.Identifiers, edgeB.Identifiers),
	}
	changed := len(changes) > 0 || !pair.IdentifierChanges.Empty()
	return pair, changed, nil
}

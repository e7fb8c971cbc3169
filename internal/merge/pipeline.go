package merge

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/BayFX/omts/internal/identity"
	"github.com/BayFX/omts/internal/types"
	"github.com/BayFX/omts/internal/unionfind"
	"github.com/BayFX/omts/internal/validation"
)

// Merge runs the eight-phase pipeline over the inputs. Phases 1-7 never fail
// on data; the only error sources are an empty input slice, salt generation,
// and the post-merge L1 validation gate.
func Merge(inputs []Input, cfg Config) (*Output, error) {
	if len(inputs) == 0 {
		return nil, ErrNoInputFiles
	}
	if cfg.GroupSizeLimit == 0 {
		cfg.GroupSizeLimit = DefaultConfig().GroupSizeLimit
	}
	if cfg.SameAsThreshold == "" {
		cfg.SameAsThreshold = ThresholdDefinite
	}
	if cfg.DefaultSourceLabel == "" {
		cfg.DefaultSourceLabel = DefaultConfig().DefaultSourceLabel
	}

	// Phase 1: concatenate all nodes into one ordinal space and build the
	// per-file id → ordinal maps that edge resolution uses.
	type nodeRef struct {
		node    *types.Node
		fileIdx int
		source  string
	}
	var flat []nodeRef
	ordinalMaps := make([]map[types.NodeID]int, len(inputs))
	sources := make([]string, len(inputs))
	for fi, in := range inputs {
		source := in.Source
		if source == "" {
			source = cfg.DefaultSourceLabel
		}
		sources[fi] = source
		ordinalMaps[fi] = make(map[types.NodeID]int, len(in.File.Nodes))
		for ni := range in.File.Nodes {
			node := &in.File.Nodes[ni]
			if _, dup := ordinalMaps[fi][node.ID]; !dup {
				ordinalMaps[fi][node.ID] = len(flat)
			}
			flat = append(flat, nodeRef{node: node, fileIdx: fi, source: source})
		}
	}

	uf := unionfind.New(len(flat))

	// Phase 2: identifier-index union-find, skipping internal schemes and
	// annulled LEIs.
	type idEntry struct {
		ordinal int
		id      *types.Identifier
	}
	buckets := make(map[string][]idEntry)
	for ord, ref := range flat {
		for j := range ref.node.Identifiers {
			ident := &ref.node.Identifiers[j]
			if ident.Scheme == types.SchemeInternal || identity.IsLEIAnnulled(ident) {
				continue
			}
			key := types.CanonicalKey(ident)
			buckets[key] = append(buckets[key], idEntry{ordinal: ord, id: ident})
		}
	}
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

	// Phase 3: same_as edges meeting the confidence threshold extend the
	// groups.
	for fi, in := range inputs {
		for ei := range in.File.Edges {
			edge := &in.File.Edges[ei]
			if edge.Type != types.EdgeSameAs {
				continue
			}
			confidence, _ := edge.SameAsConfidence()
			if !cfg.SameAsThreshold.Honours(confidence) {
				continue
			}
			srcOrd, okSrc := ordinalMaps[fi][edge.Source]
			tgtOrd, okTgt := ordinalMaps[fi][edge.Target]
			if !okSrc || !okTgt {
				continue
			}
			uf.Union(srcOrd, tgtOrd)
		}
	}

	// Phase 4: oversized-group warnings.
	groups := make(map[int][]int)
	var repOrder []int
	for ord := range flat {
		rep := uf.Find(ord)
		if _, seen := groups[rep]; !seen {
			repOrder = append(repOrder, rep)
		}
		groups[rep] = append(groups[rep], ord)
	}
	var warnings []Warning
	for _, rep := range repOrder {
		if size := len(groups[rep]); size > cfg.GroupSizeLimit {
			warnings = append(warnings, Warning{
				RepresentativeOrdinal: rep,
				GroupSize:             size,
				Limit:                 cfg.GroupSizeLimit,
			})
		}
	}

	// Phase 5: per-group node merge.
	conflictCount := 0
	chosenID := make(map[int]types.NodeID, len(groups))
	var mergedNodes []types.Node
	for _, rep := range repOrder {
		members := groups[rep]

		id := flat[members[0]].node.ID
		for _, ord := range members[1:] {
			if flat[ord].node.ID < id {
				id = flat[ord].node.ID
			}
		}
		chosenID[rep] = id

		node, conflicts, err := mergeNodeGroup(id, members, func(ord int) (*types.Node, string) {
			return flat[ord].node, flat[ord].source
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInternalData, err)
		}
		conflictCount += conflicts
		mergedNodes = append(mergedNodes, node)
	}

	// Phase 6: edge candidate grouping and per-partition merge. same_as
	// edges are dropped — their intent now lives in the union-find.
	type edgeKey struct {
		srcRep, tgtRep int
		edgeType       types.EdgeTypeTag
	}
	edgeBuckets := make(map[edgeKey][]edgeRef)
	var edgeKeyOrder []edgeKey
	for fi, in := range inputs {
		for ei := range in.File.Edges {
			edge := &in.File.Edges[ei]
			if edge.Type == types.EdgeSameAs {
				continue
			}
			srcOrd, okSrc := ordinalMaps[fi][edge.Source]
			tgtOrd, okTgt := ordinalMaps[fi][edge.Target]
			if !okSrc || !okTgt {
				continue
			}
			key := edgeKey{srcRep: uf.Find(srcOrd), tgtRep: uf.Find(tgtOrd), edgeType: edge.Type}
			if _, seen := edgeBuckets[key]; !seen {
				edgeKeyOrder = append(edgeKeyOrder, key)
			}
			edgeBuckets[key] = append(edgeBuckets[key], edgeRef{
				edge: edge, source: sources[fi], srcRep: key.srcRep, tgtRep: key.tgtRep,
			})
		}
	}

	var mergedEdges []types.Edge
	for _, key := range edgeKeyOrder {
		bucket := edgeBuckets[key]

		// Partition the bucket by the edge-identity predicate; each edge
		// joins the first partition whose representative it matches.
		var partitions [][]edgeRef
		for _, ref := range bucket {
			placed := false
			for pi := range partitions {
				head := partitions[pi][0]
				if identity.EdgesMatch(head.srcRep, head.tgtRep, ref.srcRep, ref.tgtRep, head.edge, ref.edge) {
					partitions[pi] = append(partitions[pi], ref)
					placed = true
					break
				}
			}
			if !placed {
				partitions = append(partitions, []edgeRef{ref})
			}
		}

		for _, part := range partitions {
			edge, conflicts, err := mergeEdgePartition(part[0].edge.Type,
				chosenID[key.srcRep], chosenID[key.tgtRep], part)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInternalData, err)
			}
			conflictCount += conflicts
			mergedEdges = append(mergedEdges, edge)
		}
	}

	// Phase 7: deterministic ordering.
	sort.SliceStable(mergedNodes, func(i, j int) bool { return mergedNodes[i].ID < mergedNodes[j].ID })
	sort.SliceStable(mergedEdges, func(i, j int) bool {
		a, b := &mergedEdges[i], &mergedEdges[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Target != b.Target {
			return a.Target < b.Target
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.ID < b.ID
	})

	// Reporting entities, remapped through the union-find: two inputs that
	// declare different ids for the same merged group agree on the entity.
	var reportingEntities []string
	seenRE := make(map[string]bool)
	for fi, in := range inputs {
		if in.File.ReportingEntity == nil {
			continue
		}
		re := string(*in.File.ReportingEntity)
		if ord, ok := ordinalMaps[fi][*in.File.ReportingEntity]; ok {
			re = string(chosenID[uf.Find(ord)])
		}
		if !seenRE[re] {
			seenRE[re] = true
			reportingEntities = append(reportingEntities, re)
		}
	}
	sort.Strings(reportingEntities)

	// Header assembly and merge metadata.
	out, metadata, err := assembleHeader(inputs, sources, reportingEntities, mergedNodes, mergedEdges, conflictCount)
	if err != nil {
		return nil, err
	}

	// Phase 8: post-merge validation against the structural L1 rules the
	// pipeline is answerable for. Warnings pass; the first error aborts.
	diags := validation.RunRules(out, validation.StructuralL1(), nil)
	for _, d := range diags {
		if d.Severity == validation.SeverityError {
			return nil, fmt.Errorf("%w: %s", ErrPostMergeValidationFailed, d.Message)
		}
	}

	return &Output{
		File:          out,
		Metadata:      metadata,
		Warnings:      warnings,
		ConflictCount: conflictCount,
	}, nil
}

// mergeNodeGroup folds one merge group into a single output node and
// returns the number of conflict records appended to its _conflicts array.
func mergeNodeGroup(id types.NodeID, members []int, lookup func(int) (*types.Node, string)) (types.Node, int, error) {
	var conflicts []Conflict
	obj := make(map[string]json.RawMessage)

	idRaw, _ := json.Marshal(string(id))
	obj["id"] = idRaw

	// Type: the chosen-id node's type wins; disagreement is recorded.
	var typeInputs []ScalarInput
	chosenType := ""
	for _, ord := range members {
		node, source := lookup(ord)
		raw, _ := json.Marshal(string(node.Type))
		typeInputs = append(typeInputs, ScalarInput{Raw: raw, Source: source})
		if node.ID == id && chosenType == "" {
			chosenType = string(node.Type)
		}
	}
	if agreed, entries := MergeScalars(typeInputs); entries != nil {
		conflicts = append(conflicts, Conflict{Field: "type", Values: entries})
		typeRaw, _ := json.Marshal(chosenType)
		obj["type"] = typeRaw
	} else {
		obj["type"] = agreed
	}

	// Scalar fields under the agreement-or-conflict policy.
	scalarMaps := make([]map[string]json.RawMessage, len(members))
	memberSources := make([]string, len(members))
	for i, ord := range members {
		node, source := lookup(ord)
		values, err := node.ScalarValues()
		if err != nil {
			return types.Node{}, 0, err
		}
		scalarMaps[i] = values
		memberSources[i] = source
	}
	for _, field := range types.NodeScalarFields {
		var inputs []ScalarInput
		for i := range members {
			inputs = append(inputs, ScalarInput{Raw: scalarMaps[i][field], Source: memberSources[i]})
		}
		agreed, entries := MergeScalars(inputs)
		if entries != nil {
			conflicts = append(conflicts, Conflict{Field: field, Values: entries})
			continue
		}
		if agreed != nil {
			obj[field] = agreed
		}
	}

	// Identifiers and labels: deduplicated sorted unions.
	var idInputs [][]types.Identifier
	var labelInputs [][]types.Label
	var dqInputs, extraInputs []ScalarMapInput
	for _, ord := range members {
		node, source := lookup(ord)
		idInputs = append(idInputs, node.Identifiers)
		labelInputs = append(labelInputs, node.Labels)
		dqInputs = append(dqInputs, ScalarMapInput{Map: node.DataQuality, Source: source})
		extraInputs = append(extraInputs, ScalarMapInput{Map: node.Extra, Source: source})
	}
	if ids := MergeIdentifiers(idInputs); ids != nil {
		raw, err := json.Marshal(ids)
		if err != nil {
			return types.Node{}, 0, err
		}
		obj["identifiers"] = raw
	}
	if labels := MergeLabels(labelInputs); labels != nil {
		raw, err := json.Marshal(labels)
		if err != nil {
			return types.Node{}, 0, err
		}
		obj["labels"] = raw
	}

	// data_quality and extension maps: sub-field unions under the same
	// conflict policy.
	if dq, dqConflicts := mergeExtraMaps(dqInputs, "data_quality."); dq != nil || dqConflicts != nil {
		conflicts = append(conflicts, dqConflicts...)
		if dq != nil {
			raw, err := json.Marshal(map[string]json.RawMessage(dq))
			if err != nil {
				return types.Node{}, 0, err
			}
			obj["data_quality"] = raw
		}
	}
	extra, extraConflicts := mergeExtraMaps(extraInputs, "")
	conflicts = append(conflicts, extraConflicts...)
	for k, v := range extra {
		obj[k] = v
	}

	if len(conflicts) > 0 {
		sortConflicts(conflicts)
		raw, err := json.Marshal(conflicts)
		if err != nil {
			return types.Node{}, 0, err
		}
		obj["_conflicts"] = raw
	}

	node, err := types.NodeFromObject(obj)
	if err != nil {
		return types.Node{}, 0, err
	}
	return node, len(conflicts), nil
}

// edgeRef tracks one input edge with its provenance and resolved endpoint
// representatives.
type edgeRef struct {
	edge   *types.Edge
	source string
	srcRep int
	tgtRep int
}

// mergeEdgePartition folds one edge partition into a single output edge
// whose endpoints are rewritten to the merged groups' chosen ids.
func mergeEdgePartition(edgeType types.EdgeTypeTag, source, target types.NodeID, part []edgeRef) (types.Edge, int, error) {
	id := part[0].edge.ID
	for _, ref := range part[1:] {
		if ref.edge.ID < id {
			id = ref.edge.ID
		}
	}

	var conflicts []Conflict
	props := make(map[string]json.RawMessage)

	scalarMaps := make([]map[string]json.RawMessage, len(part))
	for i, ref := range part {
		values, err := ref.edge.Properties.ScalarValues()
		if err != nil {
			return types.Edge{}, 0, err
		}
		scalarMaps[i] = values
	}
	for _, field := range types.EdgePropertyScalarFields {
		var inputs []ScalarInput
		for i, ref := range part {
			inputs = append(inputs, ScalarInput{Raw: scalarMaps[i][field], Source: ref.source})
		}
		agreed, entries := MergeScalars(inputs)
		if entries != nil {
			conflicts = append(conflicts, Conflict{Field: "properties." + field, Values: entries})
			continue
		}
		if agreed != nil {
			props[field] = agreed
		}
	}

	var idInputs [][]types.Identifier
	var dqInputs, propExtraInputs, edgeExtraInputs []ScalarMapInput
	for _, ref := range part {
		idInputs = append(idInputs, ref.edge.Identifiers)
		dqInputs = append(dqInputs, ScalarMapInput{Map: ref.edge.Properties.DataQuality, Source: ref.source})
		propExtraInputs = append(propExtraInputs, ScalarMapInput{Map: ref.edge.Properties.Extra, Source: ref.source})
		edgeExtraInputs = append(edgeExtraInputs, ScalarMapInput{Map: ref.edge.Extra, Source: ref.source})
	}
	if dq, dqConflicts := mergeExtraMaps(dqInputs, "properties.data_quality."); dq != nil || dqConflicts != nil {
		conflicts = append(conflicts, dqConflicts...)
		if dq != nil {
			raw, err := json.Marshal(map[string]json.RawMessage(dq))
			if err != nil {
				return types.Edge{}, 0, err
			}
			props["data_quality"] = raw
		}
	}
	propExtra, propConflicts := mergeExtraMaps(propExtraInputs, "properties.")
	conflicts = append(conflicts, propConflicts...)
	for k, v := range propExtra {
		props[k] = v
	}

	obj := make(map[string]json.RawMessage)
	put := func(key string, v any) error {
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		obj[key] = raw
		return nil
	}
	if err := put("id", string(id)); err != nil {
		return types.Edge{}, 0, err
	}
	if err := put("type", string(edgeType)); err != nil {
		return types.Edge{}, 0, err
	}
	if err := put("source", string(source)); err != nil {
		return types.Edge{}, 0, err
	}
	if err := put("target", string(target)); err != nil {
		return types.Edge{}, 0, err
	}
	if err := put("properties", props); err != nil {
		return types.Edge{}, 0, err
	}
	if ids := MergeIdentifiers(idInputs); ids != nil {
		if err := put("identifiers", ids); err != nil {
			return types.Edge{}, 0, err
		}
	}

	edgeExtra, edgeConflicts := mergeExtraMaps(edgeExtraInputs, "")
	conflicts = append(conflicts, edgeConflicts...)
	for k, v := range edgeExtra {
		obj[k] = v
	}
	if len(conflicts) > 0 {
		sortConflicts(conflicts)
		if err := put("_conflicts", conflicts); err != nil {
			return types.Edge{}, 0, err
		}
	}

	objRaw, err := json.Marshal(obj)
	if err != nil {
		return types.Edge{}, 0, err
	}
	var edge types.Edge
	if err := json.Unmarshal(objRaw, &edge); err != nil {
		return types.Edge{}, 0, err
	}
	return edge, len(conflicts), nil
}

// assembleHeader builds the merged file's header: the highest input
// version, the latest snapshot date, a fresh salt, and the merge metadata
// extension. reporting_entity survives only when every declaring source
// resolves to the same merged node.
func assembleHeader(inputs []Input, sources []string, reportingEntities []string, nodes []types.Node, edges []types.Edge, conflictCount int) (*types.File, Metadata, error) {
	version := inputs[0].File.Version
	snapshotDate := inputs[0].File.SnapshotDate
	for _, in := range inputs[1:] {
		if semverLess(version, in.File.Version) {
			version = in.File.Version
		}
		if snapshotDate.Before(in.File.SnapshotDate) {
			snapshotDate = in.File.SnapshotDate
		}
	}

	salt, err := types.GenerateFileSalt()
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("%w: %v", ErrSaltGenerationFailed, err)
	}

	sortedSources := append([]string(nil), sources...)
	sort.Strings(sortedSources)
	sortedSources = dedupStrings(sortedSources)

	out := &types.File{
		Version:      version,
		SnapshotDate: snapshotDate,
		FileSalt:     salt,
		Nodes:        nodes,
		Edges:        edges,
	}
	if len(reportingEntities) == 1 {
		re := types.NodeID(reportingEntities[0])
		out.ReportingEntity = &re
	}

	metadata := Metadata{
		SourceFiles:       sortedSources,
		ReportingEntities: reportingEntities,
		Timestamp:         time.Now().UTC().Format(time.RFC3339),
		MergedNodeCount:   len(nodes),
		MergedEdgeCount:   len(edges),
		ConflictCount:     conflictCount,
	}
	metaRaw, err := json.Marshal(metadata)
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("%w: %v", ErrInternalData, err)
	}
	out.Extra = types.ExtraMap{"merge_metadata": metaRaw}

	return out, metadata, nil
}

func semverLess(a, b types.SemVer) bool {
	var aMaj, aMin, aPat, bMaj, bMin, bPat int
	fmt.Sscanf(string(a), "%d.%d.%d", &aMaj, &aMin, &aPat)
	fmt.Sscanf(string(b), "%d.%d.%d", &bMaj, &bMin, &bPat)
	if aMaj != bMaj {
		return aMaj < bMaj
	}
	if aMin != bMin {
		return aMin < bMin
	}
	return aPat < bPat
}

func dedupStrings(sorted []string) []string {
	out := sorted[:0]
	for _, s := range sorted {
		if len(out) == 0 || out[len(out)-1] != s {
			out = append(out, s)
		}
	}
	return out
}

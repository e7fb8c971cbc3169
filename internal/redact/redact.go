// Package redact rewrites a file for release at a lower disclosure scope:
// nodes outside the retained set become synthetic boundary_ref nodes that
// preserve edge topology without leaking entity identity, and identifiers
// above the target scope's sensitivity ceiling are stripped.
package redact

import (
	"encoding/hex"

	"lukechampine.com/blake3"

	"github.com/BayFX/omts/internal/types"
)

// OpaqueValue derives the boundary_ref identifier value for a node:
// lowercase hex of blake3(file_salt ‖ original_id). The salt keeps opaque
// values unlinkable across files while staying stable within one.
func OpaqueValue(salt types.FileSalt, originalID types.NodeID) string {
	h := blake3.New(32, nil)
	h.Write([]byte(salt))
	h.Write([]byte(originalID))
	return hex.EncodeToString(h.Sum(nil))
}

// Redact returns a new file reduced to targetScope. Nodes whose id is in
// retain keep their data (minus over-sensitive identifiers); every other
// node is replaced by a boundary_ref whose id and single opaque identifier
// are the salted hash of the original id. Edge endpoints are rewritten to
// the new ids, reporting_entity is dropped when its referent was redacted,
// and the output's disclosure_scope is set to targetScope. Running the same
// redaction twice is a no-op: boundary_ref nodes pass through unchanged and
// retained nodes keep their ids.
func Redact(file *types.File, targetScope types.DisclosureScope, retain map[types.NodeID]bool) *types.File {
	ceiling := scopeCeiling(targetScope)

	out := file.Clone()
	scope := targetScope
	out.DisclosureScope = &scope

	idRewrite := make(map[types.NodeID]types.NodeID, len(file.Nodes))
	for i := range out.Nodes {
		node := &out.Nodes[i]
		if retain[node.ID] {
			idRewrite[node.ID] = node.ID
			node.Identifiers = filterIdentifiers(node.Identifiers, ceiling)
			continue
		}
		replacement := boundaryRef(file.FileSalt, node)
		idRewrite[node.ID] = replacement.ID
		out.Nodes[i] = replacement
	}

	for i := range out.Edges {
		edge := &out.Edges[i]
		if newID, ok := idRewrite[edge.Source]; ok {
			edge.Source = newID
		}
		if newID, ok := idRewrite[edge.Target]; ok {
			edge.Target = newID
		}
		edge.Identifiers = filterIdentifiers(edge.Identifiers, ceiling)
	}

	if out.ReportingEntity != nil {
		if newID, ok := idRewrite[*out.ReportingEntity]; ok && newID != *out.ReportingEntity {
			out.ReportingEntity = nil
		}
	}

	return &out
}

// boundaryRef synthesizes the replacement node. A node that is already a
// boundary_ref keeps its id and opaque identifier, which makes redaction
// idempotent.
func boundaryRef(salt types.FileSalt, node *types.Node) types.Node {
	if node.Type == types.NodeBoundaryRef {
		kept := types.Node{ID: node.ID, Type: types.NodeBoundaryRef}
		for i := range node.Identifiers {
			if node.Identifiers[i].Scheme == types.SchemeOpaque {
				kept.Identifiers = []types.Identifier{node.Identifiers[i].Clone()}
				break
			}
		}
		return kept
	}
	opaque := OpaqueValue(salt, node.ID)
	return types.Node{
		ID:   types.NodeID(opaque),
		Type: types.NodeBoundaryRef,
		Identifiers: []types.Identifier{{
			Scheme: types.SchemeOpaque,
			Value:  opaque,
		}},
	}
}

// filterIdentifiers drops identifiers whose effective sensitivity exceeds
// the scope ceiling. A nil result stays nil so the field round-trips as
// absent.
func filterIdentifiers(ids []types.Identifier, ceiling types.Sensitivity) []types.Identifier {
	if ids == nil {
		return nil
	}
	out := make([]types.Identifier, 0, len(ids))
	for i := range ids {
		if types.EffectiveSensitivity(&ids[i]).Exceeds(ceiling) {
			continue
		}
		out = append(out, ids[i])
	}
	return out
}

// scopeCeiling maps a disclosure scope to the highest effective sensitivity
// it admits.
func scopeCeiling(scope types.DisclosureScope) types.Sensitivity {
	switch scope {
	case types.ScopePublic:
		return types.SensitivityPublic
	case types.ScopePartner:
		return types.SensitivityRestricted
	}
	return types.SensitivityConfidential
}

// Package diff structurally compares two parsed files, producing classified
// added/removed/modified node and edge sets with property-level change
// records. Matching reuses the identity predicates and a union-find pass, as
// the merge engine does. Node matching skips only internal-scheme
// identifiers: annulled LEIs still match, and same_as edges do not join
// nodes.
package diff

import (
	"encoding/json"

	"github.com/BayFX/omts/internal/types"
)

// Filter narrows a diff: nil type lists mean all types; IgnoreFields drops
// the named scalar fields from property comparison.
type Filter struct {
	NodeTypes    []types.NodeTypeTag
	EdgeTypes    []types.EdgeTypeTag
	IgnoreFields []string
}

// MatchedBy records what established a pair.
type MatchedBy string

const (
	// MatchedByIdentifier means a shared external identifier.
	MatchedByIdentifier MatchedBy = "identifier"
	// MatchedByProperties means agreeing per-type identity properties.
	MatchedByProperties MatchedBy = "properties"
)

// NodeRef names a node in an added/removed set.
type NodeRef struct {
	ID   types.NodeID      `json:"id"`
	Type types.NodeTypeTag `json:"type"`
}

// EdgeRef names an edge in an added/removed set.
type EdgeRef struct {
	ID     types.NodeID      `json:"id"`
	Type   types.EdgeTypeTag `json:"type"`
	Source types.NodeID      `json:"source"`
	Target types.NodeID      `json:"target"`
}

// PropertyChange reports one diverging scalar field. A nil Old means the
// field appeared; a nil New means it disappeared.
type PropertyChange struct {
	Field string          `json:"field"`
	Old   json.RawMessage `json:"old,omitempty"`
	New   json.RawMessage `json:"new,omitempty"`
}

// IdentifierFieldChange reports one changed field on a matched identifier.
type IdentifierFieldChange struct {
	Field string          `json:"field"`
	Old   json.RawMessage `json:"old,omitempty"`
	New   json.RawMessage `json:"new,omitempty"`
}

// IdentifierChange reports field-level changes on one identifier, keyed by
// its canonical string.
type IdentifierChange struct {
	Canonical string                  `json:"canonical"`
	Changes   []IdentifierFieldChange `json:"changes"`
}

// IdentifierSetDiff is the set diff of two identifier sequences keyed by
// canonical string.
type IdentifierSetDiff struct {
	Added    []types.Identifier `json:"added,omitempty"`
	Removed  []types.Identifier `json:"removed,omitempty"`
	Modified []IdentifierChange `json:"modified,omitempty"`
}

// Empty reports whether no identifier changed.
func (d *IdentifierSetDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Modified) == 0
}

// LabelSetDiff is the set diff of two label sequences keyed by (key, value).
type LabelSetDiff struct {
	Added   []types.Label `json:"added,omitempty"`
	Removed []types.Label `json:"removed,omitempty"`
}

// Empty reports whether no label changed.
func (d *LabelSetDiff) Empty() bool { return len(d.Added) == 0 && len(d.Removed) == 0 }

// NodeDiff is one modified node pair.
type NodeDiff struct {
	IDA               types.NodeID      `json:"id_a"`
	IDB               types.NodeID      `json:"id_b"`
	Type              types.NodeTypeTag `json:"type"`
	MatchedBy         MatchedBy         `json:"matched_by"`
	PropertyChanges   []PropertyChange  `json:"property_changes"`
	IdentifierChanges IdentifierSetDiff `json:"identifier_changes"`
	LabelChanges      LabelSetDiff      `json:"label_changes"`
}

// EdgeDiff is one modified edge pair.
type EdgeDiff struct {
	IDA               types.NodeID      `json:"id_a"`
	IDB               types.NodeID      `json:"id_b"`
	Type              types.EdgeTypeTag `json:"type"`
	MatchedBy         MatchedBy         `json:"matched_by"`
	PropertyChanges   []PropertyChange  `json:"property_changes"`
	IdentifierChanges IdentifierSetDiff `json:"identifier_changes"`
}

// NodesDiff groups the classified node sets.
type NodesDiff struct {
	Added    []NodeRef  `json:"added"`
	Removed  []NodeRef  `json:"removed"`
	Modified []NodeDiff `json:"modified"`
}

// EdgesDiff groups the classified edge sets.
type EdgesDiff struct {
	Added    []EdgeRef  `json:"added"`
	Removed  []EdgeRef  `json:"removed"`
	Modified []EdgeDiff `json:"modified"`
}

// Summary counts the classification outcome.
type Summary struct {
	NodesAdded     int `json:"nodes_added"`
	NodesRemoved   int `json:"nodes_removed"`
	NodesModified  int `json:"nodes_modified"`
	NodesUnchanged int `json:"nodes_unchanged"`
	EdgesAdded     int `json:"edges_added"`
	EdgesRemoved   int `json:"edges_removed"`
	EdgesModified  int `json:"edges_modified"`
	EdgesUnchanged int `json:"edges_unchanged"`
}

// Result is the full diff output.
type Result struct {
	Summary  Summary   `json:"summary"`
	Nodes    NodesDiff `json:"nodes"`
	Edges    EdgesDiff `json:"edges"`
	Warnings []string  `json:"warnings"`
}

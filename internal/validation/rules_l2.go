package validation

import (
	"fmt"

	"github.com/BayFX/omts/internal/types"
)

// L2-GDM-01 — every facility should be connected to an organization via an
// operates, operational_control or tolls edge, or its operator field. An
// isolated facility usually means an incomplete graph.
type l2GdmRule01 struct{}

func (l2GdmRule01) ID() RuleID   { return "L2-GDM-01" }
func (l2GdmRule01) Level() Level { return L2 }

func (l2GdmRule01) Check(file *types.File, diags *[]Diagnostic, _ External) {
	orgIDs := make(map[types.NodeID]bool)
	facilityIDs := make(map[types.NodeID]bool)
	for i := range file.Nodes {
		switch file.Nodes[i].Type {
		case types.NodeOrganization:
			orgIDs[file.Nodes[i].ID] = true
		case types.NodeFacility:
			facilityIDs[file.Nodes[i].ID] = true
		}
	}

	connected := make(map[types.NodeID]bool)
	for i := range file.Nodes {
		node := &file.Nodes[i]
		if node.Type == types.NodeFacility && node.Operator != nil && orgIDs[*node.Operator] {
			connected[node.ID] = true
		}
	}
	for i := range file.Edges {
		edge := &file.Edges[i]
		var facilitySide, orgSide types.NodeID
		switch edge.Type {
		case types.EdgeOperates, types.EdgeOperationalControl:
			facilitySide, orgSide = edge.Target, edge.Source
		case types.EdgeTolls:
			facilitySide, orgSide = edge.Source, edge.Target
		default:
			continue
		}
		if facilityIDs[facilitySide] && orgIDs[orgSide] {
			connected[facilitySide] = true
		}
	}

	for i := range file.Nodes {
		node := &file.Nodes[i]
		if node.Type != types.NodeFacility || connected[node.ID] {
			continue
		}
		*diags = append(*diags, Diagnostic{
			RuleID:   "L2-GDM-01",
			Severity: SeverityWarning,
			Location: NodeLocation(node.ID, ""),
			Message: fmt.Sprintf("facility %q has no edge or `operator` field connecting it to an organisation; consider adding an `operates` or `operational_control` edge",
				node.ID),
		})
	}
}

// L2-GDM-02 — ownership edges should carry valid_from; without a start date
// they are ambiguous in temporal merges.
type l2GdmRule02 struct{}

func (l2GdmRule02) ID() RuleID   { return "L2-GDM-02" }
func (l2GdmRule02) Level() Level { return L2 }

func (l2GdmRule02) Check(file *types.File, diags *[]Diagnostic, _ External) {
	for i := range file.Edges {
		edge := &file.Edges[i]
		if edge.Type != types.EdgeOwnership || edge.Properties.ValidFrom != nil {
			continue
		}
		*diags = append(*diags, Diagnostic{
			RuleID:   "L2-GDM-02",
			Severity: SeverityWarning,
			Location: EdgeLocation(edge.ID, "properties.valid_from"),
			Message: fmt.Sprintf("ownership edge %q is missing `valid_from`; temporal merge correctness requires a start date on ownership relationships",
				edge.ID),
		})
	}
}

// L2-GDM-03 — organization and facility nodes, and supplies, subcontracts
// and tolls edges, should carry a data_quality object. Provenance metadata
// drives merge conflict resolution and audit trails.
type l2GdmRule03 struct{}

func (l2GdmRule03) ID() RuleID   { return "L2-GDM-03" }
func (l2GdmRule03) Level() Level { return L2 }

func (l2GdmRule03) Check(file *types.File, diags *[]Diagnostic, _ External) {
	for i := range file.Nodes {
		node := &file.Nodes[i]
		if node.Type != types.NodeOrganization && node.Type != types.NodeFacility {
			continue
		}
		if node.DataQuality != nil {
			continue
		}
		*diags = append(*diags, Diagnostic{
			RuleID:   "L2-GDM-03",
			Severity: SeverityWarning,
			Location: NodeLocation(node.ID, "data_quality"),
			Message: fmt.Sprintf("%s node %q is missing a `data_quality` object; provenance metadata is essential for merge conflict resolution",
				node.Type, node.ID),
		})
	}
	for i := range file.Edges {
		edge := &file.Edges[i]
		switch edge.Type {
		case types.EdgeSupplies, types.EdgeSubcontracts, types.EdgeTolls:
		default:
			continue
		}
		if edge.Properties.DataQuality != nil {
			continue
		}
		*diags = append(*diags, Diagnostic{
			RuleID:   "L2-GDM-03",
			Severity: SeverityWarning,
			Location: EdgeLocation(edge.ID, "properties.data_quality"),
			Message: fmt.Sprintf("%s edge %q is missing a `data_quality` object; provenance metadata is essential for merge conflict resolution",
				edge.Type, edge.ID),
		})
	}
}

// L2-GDM-04 — a supplies edge carrying tier needs a reporting_entity in the
// header; tier counts are anchored to the reporting entity's position.
type l2GdmRule04 struct{}

func (l2GdmRule04) ID() RuleID   { return "L2-GDM-04" }
func (l2GdmRule04) Level() Level { return L2 }

func (l2GdmRule04) Check(file *types.File, diags *[]Diagnostic, _ External) {
	if file.ReportingEntity != nil {
		return
	}
	for i := range file.Edges {
		edge := &file.Edges[i]
		if edge.Type != types.EdgeSupplies || edge.Properties.Tier == nil {
			continue
		}
		*diags = append(*diags, Diagnostic{
			RuleID:   "L2-GDM-04",
			Severity: SeverityWarning,
			Location: EdgeLocation(edge.ID, "properties.tier"),
			Message: fmt.Sprintf("supplies edge %q carries a `tier` property but the file has no `reporting_entity`; `tier` values are ambiguous without an anchor",
				edge.ID),
		})
	}
}

// L2-EID-01 — organizations should have at least one non-internal
// identifier; without one they cannot participate in cross-file merge.
type l2EidRule01 struct{}

func (l2EidRule01) ID() RuleID   { return "L2-EID-01" }
func (l2EidRule01) Level() Level { return L2 }

func (l2EidRule01) Check(file *types.File, diags *[]Diagnostic, _ External) {
	for i := range file.Nodes {
		node := &file.Nodes[i]
		if node.Type != types.NodeOrganization {
			continue
		}
		hasExternal := false
		for j := range node.Identifiers {
			if node.Identifiers[j].Scheme != types.SchemeInternal {
				hasExternal = true
				break
			}
		}
		if hasExternal {
			continue
		}
		*diags = append(*diags, Diagnostic{
			RuleID:   "L2-EID-01",
			Severity: SeverityWarning,
			Location: NodeLocation(node.ID, "identifiers"),
			Message: fmt.Sprintf("organisation %q has no external identifiers (non-`internal` scheme); cross-file merge requires at least one external identifier such as `lei`, `duns`, `nat-reg`, or `vat`",
				node.ID),
		})
	}
}

// L2-EID-04 — vat authority values should be valid ISO 3166-1 alpha-2
// country codes. A missing authority is already an L1-EID-03 error and is
// not re-reported.
type l2EidRule04 struct{}

func (l2EidRule04) ID() RuleID   { return "L2-EID-04" }
func (l2EidRule04) Level() Level { return L2 }

func (l2EidRule04) Check(file *types.File, diags *[]Diagnostic, _ External) {
	forEachIdentifier(file, func(node *types.Node, index int, id *types.Identifier) {
		if id.Scheme != types.SchemeVAT || id.Authority == nil {
			return
		}
		if types.IsValidCountryCode(*id.Authority) {
			return
		}
		*diags = append(*diags, Diagnostic{
			RuleID:   "L2-EID-04",
			Severity: SeverityWarning,
			Location: IdentifierLocation(node.ID, index, "authority"),
			Message: fmt.Sprintf("node %q identifiers[%d]: `vat` authority %q is not a valid ISO 3166-1 alpha-2 country code",
				node.ID, index, *id.Authority),
		})
	})
}

// L3-GDM-01 — previous-snapshot continuity. When the header names a
// previous_snapshot_ref, the external source must know it, and when both
// snapshots declare sequence numbers this file's must be strictly greater.
type l3GdmRule01 struct{}

func (l3GdmRule01) ID() RuleID   { return "L3-GDM-01" }
func (l3GdmRule01) Level() Level { return L3 }

func (l3GdmRule01) Check(file *types.File, diags *[]Diagnostic, external External) {
	if file.PreviousSnapshotRef == nil || external == nil {
		return
	}
	ref := *file.PreviousSnapshotRef
	prevSeq, known := external.KnownSnapshot(ref)
	if !known {
		*diags = append(*diags, Diagnostic{
			RuleID:   "L3-GDM-01",
			Severity: SeverityError,
			Location: HeaderLocation("previous_snapshot_ref"),
			Message:  fmt.Sprintf("previous_snapshot_ref %q does not name a known snapshot", ref),
		})
		return
	}
	if prevSeq == nil || file.SnapshotSequence == nil {
		return
	}
	if *file.SnapshotSequence <= *prevSeq {
		*diags = append(*diags, Diagnostic{
			RuleID:   "L3-GDM-01",
			Severity: SeverityError,
			Location: HeaderLocation("snapshot_sequence"),
			Message: fmt.Sprintf("snapshot_sequence %d is not greater than previous snapshot's sequence %d",
				*file.SnapshotSequence, *prevSeq),
		})
	}
}

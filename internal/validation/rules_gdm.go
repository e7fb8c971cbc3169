package validation

import (
	"fmt"
	"strings"

	"github.com/BayFX/omts/internal/types"
)

// nodeIDMap builds an id → node index shared by several rules.
func nodeIDMap(file *types.File) map[types.NodeID]*types.Node {
	m := make(map[types.NodeID]*types.Node, len(file.Nodes))
	for i := range file.Nodes {
		node := &file.Nodes[i]
		if _, exists := m[node.ID]; !exists {
			m[node.ID] = node
		}
	}
	return m
}

// L1-GDM-01 — node ids are unique within the file. Non-emptiness is already
// a parse-time constraint; each duplicate beyond the first produces one
// diagnostic.
type gdmRule01 struct{}

func (gdmRule01) ID() RuleID   { return "L1-GDM-01" }
func (gdmRule01) Level() Level { return L1 }

func (gdmRule01) Check(file *types.File, diags *[]Diagnostic, _ External) {
	seen := make(map[types.NodeID]bool, len(file.Nodes))
	for i := range file.Nodes {
		id := file.Nodes[i].ID
		if seen[id] {
			*diags = append(*diags, Diagnostic{
				RuleID:   "L1-GDM-01",
				Severity: SeverityError,
				Location: NodeLocation(id, ""),
				Message:  fmt.Sprintf("duplicate node id %q", id),
			})
			continue
		}
		seen[id] = true
	}
}

// L1-GDM-02 — edge ids are unique within the file.
type gdmRule02 struct{}

func (gdmRule02) ID() RuleID   { return "L1-GDM-02" }
func (gdmRule02) Level() Level { return L1 }

func (gdmRule02) Check(file *types.File, diags *[]Diagnostic, _ External) {
	seen := make(map[types.NodeID]bool, len(file.Edges))
	for i := range file.Edges {
		id := file.Edges[i].ID
		if seen[id] {
			*diags = append(*diags, Diagnostic{
				RuleID:   "L1-GDM-02",
				Severity: SeverityError,
				Location: EdgeLocation(id, ""),
				Message:  fmt.Sprintf("duplicate edge id %q", id),
			})
			continue
		}
		seen[id] = true
	}
}

// L1-GDM-03 — every edge source and target references an existing node.
// Both endpoints are checked independently.
type gdmRule03 struct{}

func (gdmRule03) ID() RuleID   { return "L1-GDM-03" }
func (gdmRule03) Level() Level { return L1 }

func (gdmRule03) Check(file *types.File, diags *[]Diagnostic, _ External) {
	nodeIDs := make(map[types.NodeID]bool, len(file.Nodes))
	for i := range file.Nodes {
		nodeIDs[file.Nodes[i].ID] = true
	}
	for i := range file.Edges {
		edge := &file.Edges[i]
		if !nodeIDs[edge.Source] {
			*diags = append(*diags, Diagnostic{
				RuleID:   "L1-GDM-03",
				Severity: SeverityError,
				Location: EdgeLocation(edge.ID, "source"),
				Message:  fmt.Sprintf("edge %q source %q does not reference an existing node", edge.ID, edge.Source),
			})
		}
		if !nodeIDs[edge.Target] {
			*diags = append(*diags, Diagnostic{
				RuleID:   "L1-GDM-03",
				Severity: SeverityError,
				Location: EdgeLocation(edge.ID, "target"),
				Message:  fmt.Sprintf("edge %q target %q does not reference an existing node", edge.ID, edge.Target),
			})
		}
	}
}

// L1-GDM-04 — edge type is a core type or a reverse-domain extension.
type gdmRule04 struct{}

func (gdmRule04) ID() RuleID   { return "L1-GDM-04" }
func (gdmRule04) Level() Level { return L1 }

func (gdmRule04) Check(file *types.File, diags *[]Diagnostic, _ External) {
	for i := range file.Edges {
		edge := &file.Edges[i]
		if edge.Type.Known() || edge.Type.Extension() {
			continue
		}
		*diags = append(*diags, Diagnostic{
			RuleID:   "L1-GDM-04",
			Severity: SeverityError,
			Location: EdgeLocation(edge.ID, "type"),
			Message: fmt.Sprintf("edge %q has unrecognised type %q; must be a core type or a reverse-domain extension (e.g. \"com.example.custom\")",
				edge.ID, edge.Type),
		})
	}
}

// L1-GDM-05 — reporting_entity, when present, references an existing
// organization node. A missing node and a node of the wrong type produce
// distinct messages.
type gdmRule05 struct{}

func (gdmRule05) ID() RuleID   { return "L1-GDM-05" }
func (gdmRule05) Level() Level { return L1 }

func (gdmRule05) Check(file *types.File, diags *[]Diagnostic, _ External) {
	if file.ReportingEntity == nil {
		return
	}
	ref := *file.ReportingEntity
	node := nodeIDMap(file)[ref]
	switch {
	case node == nil:
		*diags = append(*diags, Diagnostic{
			RuleID:   "L1-GDM-05",
			Severity: SeverityError,
			Location: HeaderLocation("reporting_entity"),
			Message:  fmt.Sprintf("reporting_entity %q does not reference an existing node", ref),
		})
	case node.Type != types.NodeOrganization:
		*diags = append(*diags, Diagnostic{
			RuleID:   "L1-GDM-05",
			Severity: SeverityError,
			Location: HeaderLocation("reporting_entity"),
			Message: fmt.Sprintf("reporting_entity %q references a node that is not an organization (found type: %s)",
				ref, node.Type),
		})
	}
}

// permittedEndpointTypes returns the allowed source and target node types
// for a core edge type, or ok=false when the type is unconstrained
// (same_as).
func permittedEndpointTypes(edgeType types.EdgeTypeTag) (src, tgt []types.NodeTypeTag, ok bool) {
	org := []types.NodeTypeTag{types.NodeOrganization}
	orgFac := []types.NodeTypeTag{types.NodeOrganization, types.NodeFacility}
	fac := []types.NodeTypeTag{types.NodeFacility}
	goodCons := []types.NodeTypeTag{types.NodeGood, types.NodeConsignment}
	orgFacGoodCons := []types.NodeTypeTag{types.NodeOrganization, types.NodeFacility, types.NodeGood, types.NodeConsignment}
	att := []types.NodeTypeTag{types.NodeAttestation}
	person := []types.NodeTypeTag{types.NodePerson}

	switch edgeType {
	case types.EdgeOwnership, types.EdgeLegalParentage, types.EdgeFormerIdentity,
		types.EdgeSupplies, types.EdgeSubcontracts, types.EdgeDistributes,
		types.EdgeBrokers, types.EdgeSellsTo:
		return org, org, true
	case types.EdgeOperationalControl:
		return org, orgFac, true
	case types.EdgeBeneficialOwnership:
		return person, org, true
	case types.EdgeTolls:
		return orgFac, org, true
	case types.EdgeOperates:
		return org, fac, true
	case types.EdgeProduces:
		return fac, goodCons, true
	case types.EdgeComposedOf:
		return goodCons, goodCons, true
	case types.EdgeAttestedBy:
		return orgFacGoodCons, att, true
	}
	return nil, nil, false
}

// L1-GDM-06 — edge endpoint node types fall within the permitted-types
// table. boundary_ref nodes are accepted at any endpoint: they stand in for
// redacted nodes of arbitrary type. Extension edges and extension node types
// are exempt; dangling endpoints are L1-GDM-03's concern.
type gdmRule06 struct{}

func (gdmRule06) ID() RuleID   { return "L1-GDM-06" }
func (gdmRule06) Level() Level { return L1 }

func (gdmRule06) Check(file *types.File, diags *[]Diagnostic, _ External) {
	nodes := nodeIDMap(file)

	checkEndpoint := func(edge *types.Edge, endpoint string, id types.NodeID, permitted []types.NodeTypeTag) {
		node := nodes[id]
		if node == nil || !node.Type.Known() || node.Type == types.NodeBoundaryRef {
			return
		}
		for _, t := range permitted {
			if node.Type == t {
				return
			}
		}
		names := make([]string, len(permitted))
		for i, t := range permitted {
			names[i] = string(t)
		}
		*diags = append(*diags, Diagnostic{
			RuleID:   "L1-GDM-06",
			Severity: SeverityError,
			Location: EdgeLocation(edge.ID, endpoint),
			Message: fmt.Sprintf("edge %q (type %q) %s %q has type %q, which is not permitted; expected one of: %s",
				edge.ID, edge.Type, endpoint, id, node.Type, strings.Join(names, ", ")),
		})
	}

	for i := range file.Edges {
		edge := &file.Edges[i]
		if !edge.Type.Known() {
			continue
		}
		src, tgt, ok := permittedEndpointTypes(edge.Type)
		if !ok {
			continue
		}
		checkEndpoint(edge, "source", edge.Source, src)
		checkEndpoint(edge, "target", edge.Target, tgt)
	}
}

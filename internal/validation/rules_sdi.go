package validation

import (
	"fmt"

	"github.com/BayFX/omts/internal/types"
)

// L1-SDI-01 — a boundary_ref node carries exactly one identifier, and that
// identifier's scheme is opaque. Zero identifiers, extra identifiers, and
// non-opaque schemes each produce a diagnostic.
type sdiRule01 struct{}

func (sdiRule01) ID() RuleID   { return "L1-SDI-01" }
func (sdiRule01) Level() Level { return L1 }

func (sdiRule01) Check(file *types.File, diags *[]Diagnostic, _ External) {
	for i := range file.Nodes {
		node := &file.Nodes[i]
		if node.Type != types.NodeBoundaryRef {
			continue
		}

		if len(node.Identifiers) == 0 {
			*diags = append(*diags, Diagnostic{
				RuleID:   "L1-SDI-01",
				Severity: SeverityError,
				Location: NodeLocation(node.ID, "identifiers"),
				Message: fmt.Sprintf("boundary_ref node %q has no identifiers; must have exactly one identifier with scheme \"opaque\"",
					node.ID),
			})
			continue
		}

		opaqueCount := 0
		for j := range node.Identifiers {
			if node.Identifiers[j].Scheme == types.SchemeOpaque {
				opaqueCount++
			}
		}

		if opaqueCount == 0 {
			*diags = append(*diags, Diagnostic{
				RuleID:   "L1-SDI-01",
				Severity: SeverityError,
				Location: NodeLocation(node.ID, "identifiers"),
				Message: fmt.Sprintf("boundary_ref node %q has no identifier with scheme \"opaque\"; must have exactly one",
					node.ID),
			})
		} else if opaqueCount > 1 {
			*diags = append(*diags, Diagnostic{
				RuleID:   "L1-SDI-01",
				Severity: SeverityError,
				Location: NodeLocation(node.ID, "identifiers"),
				Message: fmt.Sprintf("boundary_ref node %q has %d identifiers with scheme \"opaque\"; must have exactly one",
					node.ID, opaqueCount),
			})
		}

		if len(node.Identifiers) > 1 {
			*diags = append(*diags, Diagnostic{
				RuleID:   "L1-SDI-01",
				Severity: SeverityError,
				Location: NodeLocation(node.ID, "identifiers"),
				Message: fmt.Sprintf("boundary_ref node %q has %d identifiers; must have exactly one identifier with scheme \"opaque\"",
					node.ID, len(node.Identifiers)),
			})
		}
	}
}

// L1-SDI-02 — a declared disclosure_scope forbids identifiers whose
// effective sensitivity exceeds the scope's ceiling: partner forbids
// confidential, public forbids confidential and restricted. Internal scope
// and an absent scope impose nothing.
type sdiRule02 struct{}

func (sdiRule02) ID() RuleID   { return "L1-SDI-02" }
func (sdiRule02) Level() Level { return L1 }

func (sdiRule02) Check(file *types.File, diags *[]Diagnostic, _ External) {
	if file.DisclosureScope == nil {
		return
	}
	var ceiling types.Sensitivity
	switch *file.DisclosureScope {
	case types.ScopeInternal:
		return
	case types.ScopePartner:
		ceiling = types.SensitivityRestricted
	case types.ScopePublic:
		ceiling = types.SensitivityPublic
	default:
		return
	}

	forEachIdentifier(file, func(node *types.Node, index int, id *types.Identifier) {
		eff := types.EffectiveSensitivity(id)
		if !eff.Exceeds(ceiling) {
			return
		}
		*diags = append(*diags, Diagnostic{
			RuleID:   "L1-SDI-02",
			Severity: SeverityError,
			Location: IdentifierLocation(node.ID, index, "sensitivity"),
			Message: fmt.Sprintf("node %q identifiers[%d] has effective sensitivity %q which violates disclosure_scope %q",
				node.ID, index, eff, *file.DisclosureScope),
		})
	})
}

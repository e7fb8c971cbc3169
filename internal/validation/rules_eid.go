package validation

import (
	"fmt"
	"regexp"

	"github.com/BayFX/omts/internal/types"
)

var (
	leiRe  = regexp.MustCompile(`^[A-Z0-9]{18}[0-9]{2}$`)
	dunsRe = regexp.MustCompile(`^[0-9]{9}$`)
	glnRe  = regexp.MustCompile(`^[0-9]{13}$`)
)

// eidDiag builds an identifier-located error diagnostic.
func eidDiag(rule RuleID, nodeID types.NodeID, index int, field, message string) Diagnostic {
	return Diagnostic{
		RuleID:   rule,
		Severity: SeverityError,
		Location: IdentifierLocation(nodeID, index, field),
		Message:  message,
	}
}

// forEachIdentifier visits every identifier record in document order: nodes
// in file order, identifiers within a node by index.
func forEachIdentifier(file *types.File, visit func(node *types.Node, index int, id *types.Identifier)) {
	for i := range file.Nodes {
		node := &file.Nodes[i]
		for j := range node.Identifiers {
			visit(node, j, &node.Identifiers[j])
		}
	}
}

// L1-EID-01 — identifier scheme is non-empty.
type eidRule01 struct{}

func (eidRule01) ID() RuleID   { return "L1-EID-01" }
func (eidRule01) Level() Level { return L1 }

func (eidRule01) Check(file *types.File, diags *[]Diagnostic, _ External) {
	forEachIdentifier(file, func(node *types.Node, index int, id *types.Identifier) {
		if id.Scheme == "" {
			*diags = append(*diags, eidDiag("L1-EID-01", node.ID, index, "scheme",
				"identifier `scheme` must not be empty"))
		}
	})
}

// L1-EID-02 — identifier value is non-empty.
type eidRule02 struct{}

func (eidRule02) ID() RuleID   { return "L1-EID-02" }
func (eidRule02) Level() Level { return L1 }

func (eidRule02) Check(file *types.File, diags *[]Diagnostic, _ External) {
	forEachIdentifier(file, func(node *types.Node, index int, id *types.Identifier) {
		if id.Value == "" {
			*diags = append(*diags, eidDiag("L1-EID-02", node.ID, index, "value",
				"identifier `value` must not be empty"))
		}
	})
}

// L1-EID-03 — nat-reg, vat and internal schemes require a non-empty
// authority.
type eidRule03 struct{}

func (eidRule03) ID() RuleID   { return "L1-EID-03" }
func (eidRule03) Level() Level { return L1 }

func (eidRule03) Check(file *types.File, diags *[]Diagnostic, _ External) {
	forEachIdentifier(file, func(node *types.Node, index int, id *types.Identifier) {
		if !types.SchemeRequiresAuthority(id.Scheme) {
			return
		}
		if id.Authority == nil || *id.Authority == "" {
			*diags = append(*diags, eidDiag("L1-EID-03", node.ID, index, "authority",
				fmt.Sprintf("scheme `%s` requires a non-empty `authority` field", id.Scheme)))
		}
	})
}

// L1-EID-04 — scheme is a core scheme or a reverse-domain extension. An
// empty scheme is L1-EID-01's concern and is skipped here.
type eidRule04 struct{}

func (eidRule04) ID() RuleID   { return "L1-EID-04" }
func (eidRule04) Level() Level { return L1 }

func (eidRule04) Check(file *types.File, diags *[]Diagnostic, _ External) {
	forEachIdentifier(file, func(node *types.Node, index int, id *types.Identifier) {
		if id.Scheme == "" || types.IsValidScheme(id.Scheme) {
			return
		}
		*diags = append(*diags, eidDiag("L1-EID-04", node.ID, index, "scheme",
			fmt.Sprintf("scheme `%s` is not a recognised core scheme or reverse-domain extension", id.Scheme)))
	})
}

// L1-EID-05 — lei values match ^[A-Z0-9]{18}[0-9]{2}$ and pass MOD 97-10.
type eidRule05 struct{}

func (eidRule05) ID() RuleID   { return "L1-EID-05" }
func (eidRule05) Level() Level { return L1 }

func (eidRule05) Check(file *types.File, diags *[]Diagnostic, _ External) {
	forEachIdentifier(file, func(node *types.Node, index int, id *types.Identifier) {
		if id.Scheme != types.SchemeLEI {
			return
		}
		switch {
		case !leiRe.MatchString(id.Value):
			*diags = append(*diags, eidDiag("L1-EID-05", node.ID, index, "value",
				fmt.Sprintf("LEI `%s` does not match `^[A-Z0-9]{18}[0-9]{2}$`", id.Value)))
		case !types.Mod97_10(id.Value):
			*diags = append(*diags, eidDiag("L1-EID-05", node.ID, index, "value",
				fmt.Sprintf("LEI `%s` fails MOD 97-10 check digit verification", id.Value)))
		}
	})
}

// L1-EID-06 — duns values are exactly nine digits.
type eidRule06 struct{}

func (eidRule06) ID() RuleID   { return "L1-EID-06" }
func (eidRule06) Level() Level { return L1 }

func (eidRule06) Check(file *types.File, diags *[]Diagnostic, _ External) {
	forEachIdentifier(file, func(node *types.Node, index int, id *types.Identifier) {
		if id.Scheme != types.SchemeDUNS {
			return
		}
		if !dunsRe.MatchString(id.Value) {
			*diags = append(*diags, eidDiag("L1-EID-06", node.ID, index, "value",
				fmt.Sprintf("DUNS `%s` does not match `^[0-9]{9}$`", id.Value)))
		}
	})
}

// L1-EID-07 — gln values are thirteen digits passing GS1 mod-10.
type eidRule07 struct{}

func (eidRule07) ID() RuleID   { return "L1-EID-07" }
func (eidRule07) Level() Level { return L1 }

func (eidRule07) Check(file *types.File, diags *[]Diagnostic, _ External) {
	forEachIdentifier(file, func(node *types.Node, index int, id *types.Identifier) {
		if id.Scheme != types.SchemeGLN {
			return
		}
		switch {
		case !glnRe.MatchString(id.Value):
			*diags = append(*diags, eidDiag("L1-EID-07", node.ID, index, "value",
				fmt.Sprintf("GLN `%s` does not match `^[0-9]{13}$`", id.Value)))
		case !types.GS1Mod10(id.Value):
			*diags = append(*diags, eidDiag("L1-EID-07", node.ID, index, "value",
				fmt.Sprintf("GLN `%s` fails GS1 mod-10 check digit verification", id.Value)))
		}
	})
}

// L1-EID-08 — valid_from and valid_to are semantically valid calendar dates.
// The YYYY-MM-DD shape is already enforced at parse time, so this rule
// checks month ranges, day ranges, and leap years.
type eidRule08 struct{}

func (eidRule08) ID() RuleID   { return "L1-EID-08" }
func (eidRule08) Level() Level { return L1 }

func (eidRule08) Check(file *types.File, diags *[]Diagnostic, _ External) {
	forEachIdentifier(file, func(node *types.Node, index int, id *types.Identifier) {
		if id.ValidFrom != nil && !id.ValidFrom.CalendarValid() {
			*diags = append(*diags, eidDiag("L1-EID-08", node.ID, index, "valid_from",
				fmt.Sprintf("`valid_from` `%s` is not a valid ISO 8601 date", *id.ValidFrom)))
		}
		if id.ValidTo != nil && !id.ValidTo.Null && !id.ValidTo.Date.CalendarValid() {
			*diags = append(*diags, eidDiag("L1-EID-08", node.ID, index, "valid_to",
				fmt.Sprintf("`valid_to` `%s` is not a valid ISO 8601 date", id.ValidTo.Date)))
		}
	})
}

// L1-EID-09 — valid_from ≤ valid_to when both are concrete dates.
type eidRule09 struct{}

func (eidRule09) ID() RuleID   { return "L1-EID-09" }
func (eidRule09) Level() Level { return L1 }

func (eidRule09) Check(file *types.File, diags *[]Diagnostic, _ External) {
	forEachIdentifier(file, func(node *types.Node, index int, id *types.Identifier) {
		if id.ValidFrom == nil || id.ValidTo == nil || id.ValidTo.Null {
			return
		}
		if id.ValidTo.Date.Before(*id.ValidFrom) {
			*diags = append(*diags, eidDiag("L1-EID-09", node.ID, index, "",
				fmt.Sprintf("`valid_from` `%s` is after `valid_to` `%s`", *id.ValidFrom, id.ValidTo.Date)))
		}
	})
}

// L1-EID-10 — sensitivity is one of public, restricted, confidential. The
// enum is validated at parse time, so typed data always satisfies this rule;
// it stays registered to cover identifiers constructed programmatically.
type eidRule10 struct{}

func (eidRule10) ID() RuleID   { return "L1-EID-10" }
func (eidRule10) Level() Level { return L1 }

func (eidRule10) Check(file *types.File, diags *[]Diagnostic, _ External) {
	forEachIdentifier(file, func(node *types.Node, index int, id *types.Identifier) {
		if id.Sensitivity != nil && !id.Sensitivity.Valid() {
			*diags = append(*diags, eidDiag("L1-EID-10", node.ID, index, "sensitivity",
				fmt.Sprintf("sensitivity `%s` is not one of public, restricted, confidential", *id.Sensitivity)))
		}
	})
}

// L1-EID-11 — no duplicate (scheme, value, authority) triple within a node.
type eidRule11 struct{}

func (eidRule11) ID() RuleID   { return "L1-EID-11" }
func (eidRule11) Level() Level { return L1 }

func (eidRule11) Check(file *types.File, diags *[]Diagnostic, _ External) {
	type triple struct {
		scheme, value string
		authority     string
		hasAuthority  bool
	}
	for i := range file.Nodes {
		node := &file.Nodes[i]
		seen := make(map[triple]bool, len(node.Identifiers))
		for j := range node.Identifiers {
			id := &node.Identifiers[j]
			key := triple{scheme: id.Scheme, value: id.Value}
			if id.Authority != nil {
				key.authority = *id.Authority
				key.hasAuthority = true
			}
			if seen[key] {
				authority := "<none>"
				if key.hasAuthority {
					authority = key.authority
				}
				*diags = append(*diags, eidDiag("L1-EID-11", node.ID, j, "",
					fmt.Sprintf("duplicate identifier tuple (scheme=`%s`, value=`%s`, authority=%s)",
						id.Scheme, id.Value, authority)))
				continue
			}
			seen[key] = true
		}
	}
}

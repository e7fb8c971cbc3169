// Package validation evaluates a parsed file against the leveled rule set:
// L1 structural MUSTs, L2 semantic SHOULDs, and L3 cross-file checks that
// need externally supplied data. The validator itself never fails — every
// outcome is a diagnostic, and callers decide what counts as fatal.
package validation

import (
	"encoding/json"

	"github.com/BayFX/omts/internal/types"
)

// Level classifies a rule.
type Level int

const (
	// L1 rules are structural MUSTs; violations are errors.
	L1 Level = 1
	// L2 rules are semantic SHOULDs; violations are warnings.
	L2 Level = 2
	// L3 rules check cross-file consistency against external data.
	L3 Level = 3
)

// Severity grades a diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// RuleID is a structured rule code of the form L{1|2|3}-{GDM|EID|SDI|...}-{NN}.
type RuleID string

// LocationKind discriminates the Location union.
type LocationKind string

const (
	LocHeader     LocationKind = "header"
	LocNode       LocationKind = "node"
	LocEdge       LocationKind = "edge"
	LocIdentifier LocationKind = "identifier"
)

// Location pins a diagnostic to a precise place in the file: a header field,
// a node, an edge, or one identifier record on a node, each optionally
// narrowed to a field name.
type Location struct {
	Kind  LocationKind
	ID    types.NodeID // node or edge id; the node id for identifier locations
	Index int          // identifier index within the node
	Field string       // field name; the header field for header locations
}

// HeaderLocation points at a header field.
func HeaderLocation(field string) Location {
	return Location{Kind: LocHeader, Field: field}
}

// NodeLocation points at a node, optionally at one of its fields.
func NodeLocation(id types.NodeID, field string) Location {
	return Location{Kind: LocNode, ID: id, Field: field}
}

// EdgeLocation points at an edge, optionally at one of its fields.
func EdgeLocation(id types.NodeID, field string) Location {
	return Location{Kind: LocEdge, ID: id, Field: field}
}

// IdentifierLocation points at one identifier record on a node.
func IdentifierLocation(nodeID types.NodeID, index int, field string) Location {
	return Location{Kind: LocIdentifier, ID: nodeID, Index: index, Field: field}
}

// MarshalJSON renders the tagged-union shape consumed by external
// formatters.
func (l Location) MarshalJSON() ([]byte, error) {
	out := map[string]any{"kind": string(l.Kind)}
	switch l.Kind {
	case LocHeader:
		out["field"] = l.Field
	case LocNode:
		out["node_id"] = string(l.ID)
		if l.Field != "" {
			out["field"] = l.Field
		}
	case LocEdge:
		out["edge_id"] = string(l.ID)
		if l.Field != "" {
			out["field"] = l.Field
		}
	case LocIdentifier:
		out["node_id"] = string(l.ID)
		out["index"] = l.Index
		if l.Field != "" {
			out["field"] = l.Field
		}
	}
	return json.Marshal(out)
}

// Diagnostic is one finding. The shape {rule_id, severity, location,
// message} is part of the external interface.
type Diagnostic struct {
	RuleID   RuleID   `json:"rule_id"`
	Severity Severity `json:"severity"`
	Location Location `json:"location"`
	Message  string   `json:"message"`
}

// External supplies cross-file knowledge to L3 rules: which earlier
// snapshots exist and what sequence number each carried. A nil External
// disables L3 evaluation.
type External interface {
	// KnownSnapshot reports whether ref names a snapshot the caller knows,
	// and that snapshot's sequence number when it declared one.
	KnownSnapshot(ref string) (sequence *uint64, known bool)
}

// Rule is one stateless validation rule. Check must scan the whole file and
// append every distinct violation — no short-circuiting on the first hit.
type Rule interface {
	ID() RuleID
	Level() Level
	Check(file *types.File, diags *[]Diagnostic, external External)
}

// Config selects which levels run.
type Config struct {
	L1 bool
	L2 bool
	L3 bool
}

// DefaultConfig runs L1 and L2.
func DefaultConfig() Config { return Config{L1: true, L2: true} }

// BuildRegistry returns the enabled rules in registry order: all L1 rules,
// then L2, then L3. Within a level, rules are independent; their relative
// order fixes diagnostic ordering.
func BuildRegistry(cfg Config) []Rule {
	var rules []Rule
	if cfg.L1 {
		rules = append(rules,
			gdmRule01{}, gdmRule02{}, gdmRule03{}, gdmRule04{}, gdmRule05{}, gdmRule06{},
			eidRule01{}, eidRule02{}, eidRule03{}, eidRule04{}, eidRule05{}, eidRule06{},
			eidRule07{}, eidRule08{}, eidRule09{}, eidRule10{}, eidRule11{},
			sdiRule01{}, sdiRule02{},
		)
	}
	if cfg.L2 {
		rules = append(rules,
			l2GdmRule01{}, l2GdmRule02{}, l2GdmRule03{}, l2GdmRule04{},
			l2EidRule01{}, l2EidRule04{},
		)
	}
	if cfg.L3 {
		rules = append(rules, l3GdmRule01{})
	}
	return rules
}

// StructuralL1 returns the L1 rules whose invariants a well-formed
// transformation must itself guarantee: graph structure (GDM) and
// boundary_ref shape (SDI-01). The merge pipeline's post-merge gate runs
// exactly these — identifier-format violations inherited from the inputs
// are input data issues, not pipeline failures.
func StructuralL1() []Rule {
	return []Rule{
		gdmRule01{}, gdmRule02{}, gdmRule03{}, gdmRule04{}, gdmRule05{}, gdmRule06{},
		sdiRule01{},
	}
}

// RunRules evaluates an explicit rule list over the file.
func RunRules(file *types.File, rules []Rule, external External) []Diagnostic {
	var diags []Diagnostic
	for _, rule := range rules {
		if rule.Level() == L3 && external == nil {
			continue
		}
		rule.Check(file, &diags, external)
	}
	return diags
}

// Validate runs the enabled rules over the file and returns every
// diagnostic, in registry order and document order within each rule.
func Validate(file *types.File, cfg Config, external External) []Diagnostic {
	var diags []Diagnostic
	for _, rule := range BuildRegistry(cfg) {
		if rule.Level() == L3 && external == nil {
			continue
		}
		rule.Check(file, &diags, external)
	}
	return diags
}

// HasErrors reports whether any diagnostic has error severity.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

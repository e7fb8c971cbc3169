package types

import "strings"

// NodeTypeTag is a node type: one of the core types below, or a
// reverse-domain extension string (contains a dot).
type NodeTypeTag string

// Core node types.
const (
	NodeOrganization NodeTypeTag = "organization"
	NodeFacility     NodeTypeTag = "facility"
	NodeGood         NodeTypeTag = "good"
	NodePerson       NodeTypeTag = "person"
	NodeAttestation  NodeTypeTag = "attestation"
	NodeConsignment  NodeTypeTag = "consignment"
	NodeBoundaryRef  NodeTypeTag = "boundary_ref"
)

var coreNodeTypes = map[NodeTypeTag]bool{
	NodeOrganization: true,
	NodeFacility:     true,
	NodeGood:         true,
	NodePerson:       true,
	NodeAttestation:  true,
	NodeConsignment:  true,
	NodeBoundaryRef:  true,
}

// Known reports whether the tag is one of the core node types.
func (t NodeTypeTag) Known() bool { return coreNodeTypes[t] }

// Extension reports whether the tag follows the reverse-domain extension
// convention (contains at least one dot).
func (t NodeTypeTag) Extension() bool { return strings.Contains(string(t), ".") }

// EdgeTypeTag is an edge type: one of the core types below, or a
// reverse-domain extension string.
type EdgeTypeTag string

// Core edge types.
const (
	EdgeOwnership           EdgeTypeTag = "ownership"
	EdgeOperationalControl  EdgeTypeTag = "operational_control"
	EdgeLegalParentage      EdgeTypeTag = "legal_parentage"
	EdgeFormerIdentity      EdgeTypeTag = "former_identity"
	EdgeBeneficialOwnership EdgeTypeTag = "beneficial_ownership"
	EdgeSupplies            EdgeTypeTag = "supplies"
	EdgeSubcontracts        EdgeTypeTag = "subcontracts"
	EdgeTolls               EdgeTypeTag = "tolls"
	EdgeDistributes         EdgeTypeTag = "distributes"
	EdgeBrokers             EdgeTypeTag = "brokers"
	EdgeOperates            EdgeTypeTag = "operates"
	EdgeProduces            EdgeTypeTag = "produces"
	EdgeComposedOf          EdgeTypeTag = "composed_of"
	EdgeSellsTo             EdgeTypeTag = "sells_to"
	EdgeAttestedBy          EdgeTypeTag = "attested_by"
	EdgeSameAs              EdgeTypeTag = "same_as"
)

var coreEdgeTypes = map[EdgeTypeTag]bool{
	EdgeOwnership:           true,
	EdgeOperationalControl:  true,
	EdgeLegalParentage:      true,
	EdgeFormerIdentity:      true,
	EdgeBeneficialOwnership: true,
	EdgeSupplies:            true,
	EdgeSubcontracts:        true,
	EdgeTolls:               true,
	EdgeDistributes:         true,
	EdgeBrokers:             true,
	EdgeOperates:            true,
	EdgeProduces:            true,
	EdgeComposedOf:          true,
	EdgeSellsTo:             true,
	EdgeAttestedBy:          true,
	EdgeSameAs:              true,
}

// Known reports whether the tag is one of the core edge types.
func (t EdgeTypeTag) Known() bool { return coreEdgeTypes[t] }

// Extension reports whether the tag follows the reverse-domain extension
// convention.
func (t EdgeTypeTag) Extension() bool { return strings.Contains(string(t), ".") }

// DisclosureScope controls which identifier sensitivities may appear in a
// file. Information release narrows public ≤ partner ≤ internal.
type DisclosureScope string

const (
	ScopeInternal DisclosureScope = "internal"
	ScopePartner  DisclosureScope = "partner"
	ScopePublic   DisclosureScope = "public"
)

// Valid reports whether s is a recognised disclosure scope.
func (s DisclosureScope) Valid() bool {
	switch s {
	case ScopeInternal, ScopePartner, ScopePublic:
		return true
	}
	return false
}

// Sensitivity classifies how widely an identifier may be shared.
type Sensitivity string

const (
	SensitivityPublic       Sensitivity = "public"
	SensitivityRestricted   Sensitivity = "restricted"
	SensitivityConfidential Sensitivity = "confidential"
)

// Valid reports whether s is a recognised sensitivity.
func (s Sensitivity) Valid() bool {
	switch s {
	case SensitivityPublic, SensitivityRestricted, SensitivityConfidential:
		return true
	}
	return false
}

// rank orders sensitivities public < restricted < confidential.
func (s Sensitivity) rank() int {
	switch s {
	case SensitivityPublic:
		return 0
	case SensitivityRestricted:
		return 1
	case SensitivityConfidential:
		return 2
	}
	return 2
}

// Exceeds reports whether s releases less freely than max allows.
func (s Sensitivity) Exceeds(max Sensitivity) bool { return s.rank() > max.rank() }

// VerificationStatus records how an identifier value was established.
type VerificationStatus string

const (
	VerificationVerified   VerificationStatus = "verified"
	VerificationReported   VerificationStatus = "reported"
	VerificationInferred   VerificationStatus = "inferred"
	VerificationUnverified VerificationStatus = "unverified"
)

// Valid reports whether v is a recognised verification status.
func (v VerificationStatus) Valid() bool {
	switch v {
	case VerificationVerified, VerificationReported, VerificationInferred, VerificationUnverified:
		return true
	}
	return false
}

// Core identifier schemes. Any dot-bearing string is a permitted extension
// scheme.
const (
	SchemeLEI      = "lei"
	SchemeDUNS     = "duns"
	SchemeGLN      = "gln"
	SchemeNatReg   = "nat-reg"
	SchemeVAT      = "vat"
	SchemeInternal = "internal"
	SchemeOpaque   = "opaque"
)

var coreSchemes = map[string]bool{
	SchemeLEI:      true,
	SchemeDUNS:     true,
	SchemeGLN:      true,
	SchemeNatReg:   true,
	SchemeVAT:      true,
	SchemeInternal: true,
	SchemeOpaque:   true,
}

// IsCoreScheme reports whether scheme is one of the core scheme codes.
func IsCoreScheme(scheme string) bool { return coreSchemes[scheme] }

// IsValidScheme reports whether scheme is a core scheme or a reverse-domain
// extension scheme.
func IsValidScheme(scheme string) bool {
	return coreSchemes[scheme] || strings.Contains(scheme, ".")
}

// SchemeRequiresAuthority reports whether the scheme needs a non-empty
// authority field (nat-reg, vat, internal).
func SchemeRequiresAuthority(scheme string) bool {
	switch scheme {
	case SchemeNatReg, SchemeVAT, SchemeInternal:
		return true
	}
	return false
}

// EffectiveSensitivity returns the identifier's explicit sensitivity, or the
// scheme default when none is set: nat-reg, vat and internal default to
// restricted; lei, duns, gln and opaque default to public; unknown schemes
// default to restricted.
func EffectiveSensitivity(id *Identifier) Sensitivity {
	if id.Sensitivity != nil {
		return *id.Sensitivity
	}
	switch id.Scheme {
	case SchemeLEI, SchemeDUNS, SchemeGLN, SchemeOpaque:
		return SensitivityPublic
	case SchemeNatReg, SchemeVAT, SchemeInternal:
		return SensitivityRestricted
	}
	return SensitivityRestricted
}

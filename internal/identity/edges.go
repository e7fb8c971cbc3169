package identity

import (
	"math"

	"github.com/BayFX/omts/internal/types"
)

// EdgeCompositeKey groups edge merge candidates: two edges fall in the same
// bucket when their endpoints resolve to the same union-find representatives
// and their types are equal.
type EdgeCompositeKey struct {
	SourceRep int
	TargetRep int
	Type      types.EdgeTypeTag
}

// EdgeIdentityPropertiesMatch reports whether two property sets agree on the
// per-type identity fields. It is consulted only for edge pairs without a
// matching external identifier.
//
// Per-type identity fields beyond type and endpoints:
//
//	ownership             percentage, direct
//	operational_control   control_type
//	legal_parentage       consolidation_basis
//	former_identity       event_type, effective_date
//	beneficial_ownership  control_type, percentage
//	supplies, subcontracts, sells_to   commodity, contract_ref
//	tolls, brokers        commodity
//	distributes           service_type
//	attested_by           scope
//	operates, produces, composed_of, extension   type + endpoints suffice
//	same_as               never matched
func EdgeIdentityPropertiesMatch(edgeType types.EdgeTypeTag, a, b *types.EdgeProperties) bool {
	switch edgeType {
	case types.EdgeOwnership:
		return floatPtrEq(a.Percentage, b.Percentage) && boolPtrEq(a.Direct, b.Direct)
	case types.EdgeOperationalControl:
		return strPtrEq(a.ControlType, b.ControlType)
	case types.EdgeLegalParentage:
		return strPtrEq(a.ConsolidationBasis, b.ConsolidationBasis)
	case types.EdgeFormerIdentity:
		return strPtrEq(a.EventType, b.EventType) && datePtrEq(a.EffectiveDate, b.EffectiveDate)
	case types.EdgeBeneficialOwnership:
		return strPtrEq(a.ControlType, b.ControlType) && floatPtrEq(a.Percentage, b.Percentage)
	case types.EdgeSupplies, types.EdgeSubcontracts, types.EdgeSellsTo:
		return strPtrEq(a.Commodity, b.Commodity) && strPtrEq(a.ContractRef, b.ContractRef)
	case types.EdgeTolls, types.EdgeBrokers:
		return strPtrEq(a.Commodity, b.Commodity)
	case types.EdgeDistributes:
		return strPtrEq(a.ServiceType, b.ServiceType)
	case types.EdgeAttestedBy:
		return strPtrEq(a.Scope, b.Scope)
	case types.EdgeSameAs:
		return false
	}
	// operates, produces, composed_of, and extension types: the composite
	// key already guarantees type and endpoint identity.
	return true
}

// EdgesMatch reports whether two edges are merge candidates: same resolved
// endpoints, same type, and either a shared external identifier or (when
// both lack external identifiers) agreeing per-type identity fields.
// same_as edges never match.
func EdgesMatch(sourceRepA, targetRepA, sourceRepB, targetRepB int, a, b *types.Edge) bool {
	if a.Type == types.EdgeSameAs || b.Type == types.EdgeSameAs {
		return false
	}
	if sourceRepA != sourceRepB || targetRepA != targetRepB {
		return false
	}
	if a.Type != b.Type {
		return false
	}

	aExternal := a.ExternalIdentifiers()
	bExternal := b.ExternalIdentifiers()
	if len(aExternal) > 0 || len(bExternal) > 0 {
		for i := range aExternal {
			for j := range bExternal {
				if IdentifiersMatch(&aExternal[i], &bExternal[j]) {
					return true
				}
			}
		}
		return false
	}

	return EdgeIdentityPropertiesMatch(a.Type, &a.Properties, &b.Properties)
}

func strPtrEq(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func boolPtrEq(a, b *bool) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func floatPtrEq(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	// Bitwise comparison: values parsed from the same representation share
	// bits. Two NaNs with the same bit pattern compare equal, and 0 and -0
	// compare unequal.
	return math.Float64bits(*a) == math.Float64bits(*b)
}

func datePtrEq(a, b *types.CalendarDate) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

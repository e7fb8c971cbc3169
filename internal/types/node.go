package types

import (
	"encoding/json"
	"fmt"
)

// Node is one graph entity. Only id and type are required; the remaining
// fields apply to subsets of the node types and stay nil when absent so a
// single struct covers every subtype without per-type variants.
type Node struct {
	ID   NodeID
	Type NodeTypeTag

	Name                *string
	Jurisdiction        *string
	Status              *string
	GovernanceStructure *string
	Operator            *NodeID
	Address             *string
	Geo                 json.RawMessage
	CommodityCode       *string
	Unit                *string
	Role                *string

	// Attestation fields.
	AttestationType   *string
	Standard          *string
	Issuer            *string
	ValidFrom         *CalendarDate
	ValidTo           *NullableDate
	Outcome           *string
	AttestationStatus *string
	Reference         *string
	RiskSeverity      *string
	RiskLikelihood    *string

	// Consignment fields.
	LotID                 *string
	Quantity              *float64
	ProductionDate        *CalendarDate
	OriginCountry         *string
	DirectEmissionsCO2e   *float64
	IndirectEmissionsCO2e *float64
	EmissionFactorSource  *string
	InstallationID        *string

	Identifiers []Identifier
	Labels      []Label
	DataQuality ExtraMap
	Extra       ExtraMap
}

// NodeScalarFields lists the optional scalar fields of a node in emission
// order. The merge and diff engines iterate this list; id, type and the
// structured collections (identifiers, labels, data_quality) are handled
// separately.
var NodeScalarFields = []string{
	"name", "jurisdiction", "status", "governance_structure", "operator",
	"address", "geo", "commodity_code", "unit", "role",
	"attestation_type", "standard", "issuer", "valid_from", "valid_to",
	"outcome", "attestation_status", "reference", "risk_severity",
	"risk_likelihood",
	"lot_id", "quantity", "production_date", "origin_country",
	"direct_emissions_co2e", "indirect_emissions_co2e",
	"emission_factor_source", "installation_id",
}

var nodeKnownFields = append([]string{"id", "type", "identifiers", "labels", "data_quality"}, NodeScalarFields...)

// MarshalJSON emits id and type first, the applicable scalar fields in the
// NodeScalarFields order, then identifiers, labels, data_quality, and
// finally extension fields in sorted key order.
func (n Node) MarshalJSON() ([]byte, error) {
	w := newObjectWriter()
	w.field("id", string(n.ID))
	w.field("type", string(n.Type))
	writeOptString(w, "name", n.Name)
	writeOptString(w, "jurisdiction", n.Jurisdiction)
	writeOptString(w, "status", n.Status)
	writeOptString(w, "governance_structure", n.GovernanceStructure)
	if n.Operator != nil {
		w.field("operator", string(*n.Operator))
	}
	writeOptString(w, "address", n.Address)
	if len(n.Geo) > 0 {
		w.raw("geo", n.Geo)
	}
	writeOptString(w, "commodity_code", n.CommodityCode)
	writeOptString(w, "unit", n.Unit)
	writeOptString(w, "role", n.Role)
	writeOptString(w, "attestation_type", n.AttestationType)
	writeOptString(w, "standard", n.Standard)
	writeOptString(w, "issuer", n.Issuer)
	if n.ValidFrom != nil {
		w.field("valid_from", string(*n.ValidFrom))
	}
	if n.ValidTo != nil {
		raw, err := n.ValidTo.MarshalJSON()
		if err != nil {
			return nil, err
		}
		w.raw("valid_to", raw)
	}
	writeOptString(w, "outcome", n.Outcome)
	writeOptString(w, "attestation_status", n.AttestationStatus)
	writeOptString(w, "reference", n.Reference)
	writeOptString(w, "risk_severity", n.RiskSeverity)
	writeOptString(w, "risk_likelihood", n.RiskLikelihood)
	writeOptString(w, "lot_id", n.LotID)
	writeOptFloat(w, "quantity", n.Quantity)
	if n.ProductionDate != nil {
		w.field("production_date", string(*n.ProductionDate))
	}
	writeOptString(w, "origin_country", n.OriginCountry)
	writeOptFloat(w, "direct_emissions_co2e", n.DirectEmissionsCO2e)
	writeOptFloat(w, "indirect_emissions_co2e", n.IndirectEmissionsCO2e)
	writeOptString(w, "emission_factor_source", n.EmissionFactorSource)
	writeOptString(w, "installation_id", n.InstallationID)
	if n.Identifiers != nil {
		w.field("identifiers", n.Identifiers)
	}
	if n.Labels != nil {
		w.field("labels", n.Labels)
	}
	if n.DataQuality != nil {
		w.raw("data_quality", marshalExtraObject(n.DataQuality))
	}
	w.extras(n.Extra)
	return w.finish(), nil
}

func writeOptString(w *objectWriter, name string, v *string) {
	if v != nil {
		w.field(name, *v)
	}
}

func writeOptFloat(w *objectWriter, name string, v *float64) {
	if v != nil {
		w.field(name, *v)
	}
}

// marshalExtraObject renders an ExtraMap as a JSON object with sorted keys.
func marshalExtraObject(m ExtraMap) json.RawMessage {
	w := newObjectWriter()
	w.extras(m)
	return w.finish()
}

// UnmarshalJSON validates id and type, decodes the known fields, and
// captures the rest into Extra.
func (n *Node) UnmarshalJSON(data []byte) error {
	obj, err := decodeObject(data)
	if err != nil {
		return err
	}
	*n = Node{}

	var rawID string
	if raw, ok := obj["id"]; ok {
		if err := json.Unmarshal(raw, &rawID); err != nil {
			return fmt.Errorf("node id: %w", err)
		}
	}
	id, err := NewNodeID(rawID)
	if err != nil {
		return fmt.Errorf("node id: %w", err)
	}
	n.ID = id

	var rawType string
	if raw, ok := obj["type"]; ok {
		if err := json.Unmarshal(raw, &rawType); err != nil {
			return fmt.Errorf("node %q type: %w", rawID, err)
		}
	}
	if rawType == "" {
		return fmt.Errorf("node %q is missing a type", rawID)
	}
	n.Type = NodeTypeTag(rawType)

	if err := n.decodeScalars(obj); err != nil {
		return err
	}

	if raw, ok := obj["identifiers"]; ok && !isJSONNull(raw) {
		if err := json.Unmarshal(raw, &n.Identifiers); err != nil {
			return fmt.Errorf("node %q identifiers: %w", rawID, err)
		}
	}
	if raw, ok := obj["labels"]; ok && !isJSONNull(raw) {
		if err := json.Unmarshal(raw, &n.Labels); err != nil {
			return fmt.Errorf("node %q labels: %w", rawID, err)
		}
	}
	if raw, ok := obj["data_quality"]; ok && !isJSONNull(raw) {
		dq, err := decodeObject(raw)
		if err != nil {
			return fmt.Errorf("node %q data_quality: %w", rawID, err)
		}
		n.DataQuality = ExtraMap(dq)
	}

	for _, f := range nodeKnownFields {
		delete(obj, f)
	}
	if len(obj) > 0 {
		n.Extra = ExtraMap(obj)
	}
	return nil
}

func (n *Node) decodeScalars(obj map[string]json.RawMessage) error {
	strFields := map[string]**string{
		"name":                   &n.Name,
		"jurisdiction":           &n.Jurisdiction,
		"status":                 &n.Status,
		"governance_structure":   &n.GovernanceStructure,
		"address":                &n.Address,
		"commodity_code":         &n.CommodityCode,
		"unit":                   &n.Unit,
		"role":                   &n.Role,
		"attestation_type":       &n.AttestationType,
		"standard":               &n.Standard,
		"issuer":                 &n.Issuer,
		"outcome":                &n.Outcome,
		"attestation_status":     &n.AttestationStatus,
		"reference":              &n.Reference,
		"risk_severity":          &n.RiskSeverity,
		"risk_likelihood":        &n.RiskLikelihood,
		"lot_id":                 &n.LotID,
		"origin_country":         &n.OriginCountry,
		"emission_factor_source": &n.EmissionFactorSource,
		"installation_id":        &n.InstallationID,
	}
	for field, dst := range strFields {
		raw, ok := obj[field]
		if !ok || isJSONNull(raw) {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("node %q %s: %w", n.ID, field, err)
		}
		*dst = &s
	}

	numFields := map[string]**float64{
		"quantity":                &n.Quantity,
		"direct_emissions_co2e":   &n.DirectEmissionsCO2e,
		"indirect_emissions_co2e": &n.IndirectEmissionsCO2e,
	}
	for field, dst := range numFields {
		raw, ok := obj[field]
		if !ok || isJSONNull(raw) {
			continue
		}
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return fmt.Errorf("node %q %s: %w", n.ID, field, err)
		}
		*dst = &f
	}

	if raw, ok := obj["operator"]; ok && !isJSONNull(raw) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("node %q operator: %w", n.ID, err)
		}
		op, err := NewNodeID(s)
		if err != nil {
			return fmt.Errorf("node %q operator: %w", n.ID, err)
		}
		n.Operator = &op
	}
	if raw, ok := obj["geo"]; ok && !isJSONNull(raw) {
		n.Geo = append(json.RawMessage(nil), raw...)
	}
	if raw, ok := obj["valid_from"]; ok && !isJSONNull(raw) {
		d, err := unmarshalDate(raw, "valid_from")
		if err != nil {
			return fmt.Errorf("node %q: %w", n.ID, err)
		}
		n.ValidFrom = &d
	}
	if raw, ok := obj["valid_to"]; ok {
		nd, err := unmarshalNullableDate(raw, "valid_to")
		if err != nil {
			return fmt.Errorf("node %q: %w", n.ID, err)
		}
		n.ValidTo = nd
	}
	if raw, ok := obj["production_date"]; ok && !isJSONNull(raw) {
		d, err := unmarshalDate(raw, "production_date")
		if err != nil {
			return fmt.Errorf("node %q: %w", n.ID, err)
		}
		n.ProductionDate = &d
	}
	return nil
}

// ScalarValues returns the node's scalar fields as raw JSON values keyed by
// field name. Absent fields are omitted. The merge and diff engines compare
// these values generically.
func (n *Node) ScalarValues() (map[string]json.RawMessage, error) {
	full, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}
	obj, err := decodeObject(full)
	if err != nil {
		return nil, err
	}
	out := make(map[string]json.RawMessage)
	for _, f := range NodeScalarFields {
		if raw, ok := obj[f]; ok {
			out[f] = raw
		}
	}
	return out, nil
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	out := n
	out.Name = clonePtr(n.Name)
	out.Jurisdiction = clonePtr(n.Jurisdiction)
	out.Status = clonePtr(n.Status)
	out.GovernanceStructure = clonePtr(n.GovernanceStructure)
	out.Operator = clonePtr(n.Operator)
	out.Address = clonePtr(n.Address)
	out.Geo = append(json.RawMessage(nil), n.Geo...)
	out.CommodityCode = clonePtr(n.CommodityCode)
	out.Unit = clonePtr(n.Unit)
	out.Role = clonePtr(n.Role)
	out.AttestationType = clonePtr(n.AttestationType)
	out.Standard = clonePtr(n.Standard)
	out.Issuer = clonePtr(n.Issuer)
	out.ValidFrom = clonePtr(n.ValidFrom)
	if n.ValidTo != nil {
		vt := *n.ValidTo
		out.ValidTo = &vt
	}
	out.Outcome = clonePtr(n.Outcome)
	out.AttestationStatus = clonePtr(n.AttestationStatus)
	out.Reference = clonePtr(n.Reference)
	out.RiskSeverity = clonePtr(n.RiskSeverity)
	out.RiskLikelihood = clonePtr(n.RiskLikelihood)
	out.LotID = clonePtr(n.LotID)
	out.Quantity = clonePtr(n.Quantity)
	out.ProductionDate = clonePtr(n.ProductionDate)
	out.OriginCountry = clonePtr(n.OriginCountry)
	out.DirectEmissionsCO2e = clonePtr(n.DirectEmissionsCO2e)
	out.IndirectEmissionsCO2e = clonePtr(n.IndirectEmissionsCO2e)
	out.EmissionFactorSource = clonePtr(n.EmissionFactorSource)
	out.InstallationID = clonePtr(n.InstallationID)
	if n.Identifiers != nil {
		out.Identifiers = make([]Identifier, len(n.Identifiers))
		for i, ident := range n.Identifiers {
			out.Identifiers[i] = ident.Clone()
		}
	}
	if n.Labels != nil {
		out.Labels = make([]Label, len(n.Labels))
		for i, l := range n.Labels {
			out.Labels[i] = l.Clone()
		}
	}
	out.DataQuality = n.DataQuality.Clone()
	out.Extra = n.Extra.Clone()
	return out
}

// NodeFromObject rebuilds a Node from a raw JSON object assembled by the
// merge pipeline.
func NodeFromObject(obj map[string]json.RawMessage) (Node, error) {
	w := newObjectWriter()
	w.extras(ExtraMap(obj))
	var n Node
	if err := json.Unmarshal(w.finish(), &n); err != nil {
		return Node{}, err
	}
	return n, nil
}

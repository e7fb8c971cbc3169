package types

import (
	"encoding/json"
	"fmt"
)

// Edge is one directed relationship between two nodes, referenced by id.
type Edge struct {
	ID          NodeID
	Type        EdgeTypeTag
	Source      NodeID
	Target      NodeID
	Properties  EdgeProperties
	Identifiers []Identifier
	Extra       ExtraMap
}

// EdgeProperties carries the temporal bounds and per-type semantic fields of
// an edge, plus its own extension map.
type EdgeProperties struct {
	ValidFrom          *CalendarDate
	ValidTo            *NullableDate
	Percentage         *float64
	Direct             *bool
	ControlType        *string
	ConsolidationBasis *string
	EventType          *string
	EffectiveDate      *CalendarDate
	Commodity          *string
	ContractRef        *string
	Tier               *int64
	Volume             *float64
	VolumeUnit         *string
	AnnualValue        *float64
	ValueCurrency      *string
	ServiceType        *string
	Scope              *string
	ShareOfBuyerDemand *float64
	DataQuality        ExtraMap
	Extra              ExtraMap
}

// EdgePropertyScalarFields lists the scalar property fields in emission
// order, for generic iteration by the merge and diff engines.
var EdgePropertyScalarFields = []string{
	"valid_from", "valid_to", "percentage", "direct", "control_type",
	"consolidation_basis", "event_type", "effective_date", "commodity",
	"contract_ref", "tier", "volume", "volume_unit", "annual_value",
	"value_currency", "service_type", "scope", "share_of_buyer_demand",
}

var edgePropKnownFields = append([]string{"data_quality"}, EdgePropertyScalarFields...)

// MarshalJSON emits the property fields in a fixed order, then data_quality,
// then extension fields.
func (p EdgeProperties) MarshalJSON() ([]byte, error) {
	w := newObjectWriter()
	if p.ValidFrom != nil {
		w.field("valid_from", string(*p.ValidFrom))
	}
	if p.ValidTo != nil {
		raw, err := p.ValidTo.MarshalJSON()
		if err != nil {
			return nil, err
		}
		w.raw("valid_to", raw)
	}
	writeOptFloat(w, "percentage", p.Percentage)
	if p.Direct != nil {
		w.field("direct", *p.Direct)
	}
	writeOptString(w, "control_type", p.ControlType)
	writeOptString(w, "consolidation_basis", p.ConsolidationBasis)
	writeOptString(w, "event_type", p.EventType)
	if p.EffectiveDate != nil {
		w.field("effective_date", string(*p.EffectiveDate))
	}
	writeOptString(w, "commodity", p.Commodity)
	writeOptString(w, "contract_ref", p.ContractRef)
	if p.Tier != nil {
		w.field("tier", *p.Tier)
	}
	writeOptFloat(w, "volume", p.Volume)
	writeOptString(w, "volume_unit", p.VolumeUnit)
	writeOptFloat(w, "annual_value", p.AnnualValue)
	writeOptString(w, "value_currency", p.ValueCurrency)
	writeOptString(w, "service_type", p.ServiceType)
	writeOptString(w, "scope", p.Scope)
	writeOptFloat(w, "share_of_buyer_demand", p.ShareOfBuyerDemand)
	if p.DataQuality != nil {
		w.raw("data_quality", marshalExtraObject(p.DataQuality))
	}
	w.extras(p.Extra)
	return w.finish(), nil
}

// UnmarshalJSON captures unknown property keys into Extra.
func (p *EdgeProperties) UnmarshalJSON(data []byte) error {
	obj, err := decodeObject(data)
	if err != nil {
		return err
	}
	*p = EdgeProperties{}

	strFields := map[string]**string{
		"control_type":        &p.ControlType,
		"consolidation_basis": &p.ConsolidationBasis,
		"event_type":          &p.EventType,
		"commodity":           &p.Commodity,
		"contract_ref":        &p.ContractRef,
		"volume_unit":         &p.VolumeUnit,
		"value_currency":      &p.ValueCurrency,
		"service_type":        &p.ServiceType,
		"scope":               &p.Scope,
	}
	for field, dst := range strFields {
		raw, ok := obj[field]
		if !ok || isJSONNull(raw) {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("edge properties %s: %w", field, err)
		}
		*dst = &s
	}

	numFields := map[string]**float64{
		"percentage":            &p.Percentage,
		"volume":                &p.Volume,
		"annual_value":          &p.AnnualValue,
		"share_of_buyer_demand": &p.ShareOfBuyerDemand,
	}
	for field, dst := range numFields {
		raw, ok := obj[field]
		if !ok || isJSONNull(raw) {
			continue
		}
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return fmt.Errorf("edge properties %s: %w", field, err)
		}
		*dst = &f
	}

	if raw, ok := obj["valid_from"]; ok && !isJSONNull(raw) {
		d, err := unmarshalDate(raw, "valid_from")
		if err != nil {
			return err
		}
		p.ValidFrom = &d
	}
	if raw, ok := obj["valid_to"]; ok {
		nd, err := unmarshalNullableDate(raw, "valid_to")
		if err != nil {
			return err
		}
		p.ValidTo = nd
	}
	if raw, ok := obj["direct"]; ok && !isJSONNull(raw) {
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return fmt.Errorf("edge properties direct: %w", err)
		}
		p.Direct = &b
	}
	if raw, ok := obj["effective_date"]; ok && !isJSONNull(raw) {
		d, err := unmarshalDate(raw, "effective_date")
		if err != nil {
			return err
		}
		p.EffectiveDate = &d
	}
	if raw, ok := obj["tier"]; ok && !isJSONNull(raw) {
		var t int64
		if err := json.Unmarshal(raw, &t); err != nil {
			return fmt.Errorf("edge properties tier: %w", err)
		}
		p.Tier = &t
	}
	if raw, ok := obj["data_quality"]; ok && !isJSONNull(raw) {
		dq, err := decodeObject(raw)
		if err != nil {
			return fmt.Errorf("edge properties data_quality: %w", err)
		}
		p.DataQuality = ExtraMap(dq)
	}

	for _, f := range edgePropKnownFields {
		delete(obj, f)
	}
	if len(obj) > 0 {
		p.Extra = ExtraMap(obj)
	}
	return nil
}

// ScalarValues returns the property scalar fields as raw JSON values keyed
// by field name.
func (p *EdgeProperties) ScalarValues() (map[string]json.RawMessage, error) {
	full, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	obj, err := decodeObject(full)
	if err != nil {
		return nil, err
	}
	out := make(map[string]json.RawMessage)
	for _, f := range EdgePropertyScalarFields {
		if raw, ok := obj[f]; ok {
			out[f] = raw
		}
	}
	return out, nil
}

// Clone returns a deep copy of the properties.
func (p EdgeProperties) Clone() EdgeProperties {
	out := p
	out.ValidFrom = clonePtr(p.ValidFrom)
	if p.ValidTo != nil {
		vt := *p.ValidTo
		out.ValidTo = &vt
	}
	out.Percentage = clonePtr(p.Percentage)
	out.Direct = clonePtr(p.Direct)
	out.ControlType = clonePtr(p.ControlType)
	out.ConsolidationBasis = clonePtr(p.ConsolidationBasis)
	out.EventType = clonePtr(p.EventType)
	out.EffectiveDate = clonePtr(p.EffectiveDate)
	out.Commodity = clonePtr(p.Commodity)
	out.ContractRef = clonePtr(p.ContractRef)
	out.Tier = clonePtr(p.Tier)
	out.Volume = clonePtr(p.Volume)
	out.VolumeUnit = clonePtr(p.VolumeUnit)
	out.AnnualValue = clonePtr(p.AnnualValue)
	out.ValueCurrency = clonePtr(p.ValueCurrency)
	out.ServiceType = clonePtr(p.ServiceType)
	out.Scope = clonePtr(p.Scope)
	out.ShareOfBuyerDemand = clonePtr(p.ShareOfBuyerDemand)
	out.DataQuality = p.DataQuality.Clone()
	out.Extra = p.Extra.Clone()
	return out
}

var edgeKnownFields = []string{"id", "type", "source", "target", "properties", "identifiers"}

// MarshalJSON emits id, type, source, target, properties, identifiers, then
// extension fields. The properties object is always emitted, matching the
// wire format's required properties key.
func (e Edge) MarshalJSON() ([]byte, error) {
	w := newObjectWriter()
	w.field("id", string(e.ID))
	w.field("type", string(e.Type))
	w.field("source", string(e.Source))
	w.field("target", string(e.Target))
	props, err := e.Properties.MarshalJSON()
	if err != nil {
		return nil, err
	}
	w.raw("properties", props)
	if e.Identifiers != nil {
		w.field("identifiers", e.Identifiers)
	}
	w.extras(e.Extra)
	return w.finish(), nil
}

// UnmarshalJSON validates id, type and endpoints, and captures unknown keys
// into Extra.
func (e *Edge) UnmarshalJSON(data []byte) error {
	obj, err := decodeObject(data)
	if err != nil {
		return err
	}
	*e = Edge{}

	var rawID string
	if raw, ok := obj["id"]; ok {
		if err := json.Unmarshal(raw, &rawID); err != nil {
			return fmt.Errorf("edge id: %w", err)
		}
	}
	id, err := NewNodeID(rawID)
	if err != nil {
		return fmt.Errorf("edge id: %w", err)
	}
	e.ID = id

	var rawType string
	if raw, ok := obj["type"]; ok {
		if err := json.Unmarshal(raw, &rawType); err != nil {
			return fmt.Errorf("edge %q type: %w", rawID, err)
		}
	}
	if rawType == "" {
		return fmt.Errorf("edge %q is missing a type", rawID)
	}
	e.Type = EdgeTypeTag(rawType)

	for _, endpoint := range []struct {
		field string
		dst   *NodeID
	}{{"source", &e.Source}, {"target", &e.Target}} {
		var s string
		if raw, ok := obj[endpoint.field]; ok {
			if err := json.Unmarshal(raw, &s); err != nil {
				return fmt.Errorf("edge %q %s: %w", rawID, endpoint.field, err)
			}
		}
		ref, err := NewNodeID(s)
		if err != nil {
			return fmt.Errorf("edge %q %s: %w", rawID, endpoint.field, err)
		}
		*endpoint.dst = ref
	}

	if raw, ok := obj["properties"]; ok && !isJSONNull(raw) {
		if err := json.Unmarshal(raw, &e.Properties); err != nil {
			return fmt.Errorf("edge %q properties: %w", rawID, err)
		}
	}
	if raw, ok := obj["identifiers"]; ok && !isJSONNull(raw) {
		if err := json.Unmarshal(raw, &e.Identifiers); err != nil {
			return fmt.Errorf("edge %q identifiers: %w", rawID, err)
		}
	}

	for _, f := range edgeKnownFields {
		delete(obj, f)
	}
	if len(obj) > 0 {
		e.Extra = ExtraMap(obj)
	}
	return nil
}

// ExternalIdentifiers returns the edge's identifiers whose scheme is not
// internal.
func (e *Edge) ExternalIdentifiers() []Identifier {
	var out []Identifier
	for _, id := range e.Identifiers {
		if id.Scheme != SchemeInternal {
			out = append(out, id)
		}
	}
	return out
}

// SameAsConfidence returns the confidence string of a same_as edge, looking
// in the properties extension map first and the edge-level map second.
func (e *Edge) SameAsConfidence() (string, bool) {
	if s, ok := e.Properties.Extra.GetString("confidence"); ok {
		return s, true
	}
	return e.Extra.GetString("confidence")
}

// Clone returns a deep copy of the edge.
func (e Edge) Clone() Edge {
	out := e
	out.Properties = e.Properties.Clone()
	if e.Identifiers != nil {
		out.Identifiers = make([]Identifier, len(e.Identifiers))
		for i, ident := range e.Identifiers {
			out.Identifiers[i] = ident.Clone()
		}
	}
	out.Extra = e.Extra.Clone()
	return out
}

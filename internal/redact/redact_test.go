package redact

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/BayFX/omts/internal/types"
	"github.com/BayFX/omts/internal/validation"
)

func parseFile(t *testing.T, src string) *types.File {
	t.Helper()
	var f types.File
	if err := json.Unmarshal([]byte(src), &f); err != nil {
		t.Fatalf("parse test file: %v", err)
	}
	return &f
}

const redactInput = `{
	"omts_version": "1.0.0",
	"snapshot_date": "2026-01-01",
	"file_salt": "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff",
	"disclosure_scope": "internal",
	"reporting_entity": "org-1",
	"nodes": [
		{"id": "org-1", "type": "organization", "name": "Acme",
		 "identifiers": [
			{"scheme": "lei", "value": "529900T8BM49AURSDO55"},
			{"scheme": "nat-reg", "value": "HRB1", "authority": "DE"},
			{"scheme": "internal", "value": "sap:1", "authority": "acme", "sensitivity": "confidential"}
		 ]},
		{"id": "org-2", "type": "organization", "name": "Secret Supplier",
		 "identifiers": [{"scheme": "lei", "value": "X"}]}
	],
	"edges": [
		{"id": "e1", "type": "supplies", "source": "org-2", "target": "org-1", "properties": {}}
	]
}`

func TestRedactReplacesUnretainedNodes(t *testing.T) {
	f := parseFile(t, redactInput)
	out := Redact(f, types.ScopePartner, map[types.NodeID]bool{"org-1": true})

	if out.DisclosureScope == nil || *out.DisclosureScope != types.ScopePartner {
		t.Error("output scope must be the target scope")
	}

	if out.Nodes[0].ID != "org-1" || out.Nodes[0].Type != types.NodeOrganization {
		t.Errorf("retained node must keep its identity: %+v", out.Nodes[0])
	}

	replaced := out.Nodes[1]
	if replaced.Type != types.NodeBoundaryRef {
		t.Fatalf("unretained node must become boundary_ref, got %s", replaced.Type)
	}
	if replaced.Name != nil || replaced.Jurisdiction != nil {
		t.Error("boundary_ref nodes carry no other fields")
	}
	if len(replaced.Identifiers) != 1 || replaced.Identifiers[0].Scheme != types.SchemeOpaque {
		t.Fatalf("boundary_ref must carry exactly one opaque identifier: %+v", replaced.Identifiers)
	}
	want := OpaqueValue(f.FileSalt, "org-2")
	if replaced.Identifiers[0].Value != want {
		t.Errorf("opaque value = %s, want blake3(salt || id) = %s", replaced.Identifiers[0].Value, want)
	}
	if string(replaced.ID) != want {
		t.Errorf("boundary_ref id should be the opaque value, got %s", replaced.ID)
	}

	// Edge endpoints follow the rewrite.
	if out.Edges[0].Source != replaced.ID || out.Edges[0].Target != "org-1" {
		t.Errorf("edge endpoints must be rewritten: %+v", out.Edges[0])
	}
}

func TestRedactDropsOverSensitiveIdentifiers(t *testing.T) {
	f := parseFile(t, redactInput)

	partner := Redact(f, types.ScopePartner, map[types.NodeID]bool{"org-1": true, "org-2": true})
	ids := partner.Nodes[0].Identifiers
	if len(ids) != 2 {
		t.Fatalf("partner scope keeps lei and nat-reg, drops confidential internal: %+v", ids)
	}

	public := Redact(f, types.ScopePublic, map[types.NodeID]bool{"org-1": true, "org-2": true})
	ids = public.Nodes[0].Identifiers
	if len(ids) != 1 || ids[0].Scheme != "lei" {
		t.Fatalf("public scope keeps only the public lei: %+v", ids)
	}
}

func TestRedactDropsReportingEntityWhenRedacted(t *testing.T) {
	f := parseFile(t, redactInput)
	out := Redact(f, types.ScopePartner, map[types.NodeID]bool{"org-2": true})
	if out.ReportingEntity != nil {
		t.Error("reporting_entity must be dropped when its referent became a boundary_ref")
	}

	kept := Redact(f, types.ScopePartner, map[types.NodeID]bool{"org-1": true})
	if kept.ReportingEntity == nil || *kept.ReportingEntity != "org-1" {
		t.Error("reporting_entity must survive when its referent is retained")
	}
}

func TestRedactIdempotent(t *testing.T) {
	f := parseFile(t, redactInput)
	retain := map[types.NodeID]bool{"org-1": true}

	once := Redact(f, types.ScopePartner, retain)
	twice := Redact(once, types.ScopePartner, retain)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("redaction must be idempotent:\n once: %#v\ntwice: %#v", once, twice)
	}
}

func TestRedactOutputPassesL1(t *testing.T) {
	f := parseFile(t, redactInput)
	out := Redact(f, types.ScopePublic, map[types.NodeID]bool{"org-1": true})

	diags := validation.Validate(out, validation.Config{L1: true}, nil)
	for _, d := range diags {
		if d.Severity == validation.SeverityError {
			t.Errorf("redacted output must pass L1, got: %+v", d)
		}
	}
}

func TestOpaqueValueProperties(t *testing.T) {
	salt := types.FileSalt(strings.Repeat("ab", 32))
	v1 := OpaqueValue(salt, "org-1")
	v2 := OpaqueValue(salt, "org-2")
	if v1 == v2 {
		t.Error("different ids must hash differently")
	}
	if v1 != OpaqueValue(salt, "org-1") {
		t.Error("hash must be deterministic")
	}
	other := types.FileSalt(strings.Repeat("cd", 32))
	if v1 == OpaqueValue(other, "org-1") {
		t.Error("different salts must make values unlinkable")
	}
	if len(v1) != 64 || strings.ToLower(v1) != v1 {
		t.Errorf("opaque value must be 64 lowercase hex chars, got %q", v1)
	}
}

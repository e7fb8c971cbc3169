package types

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

const minimalFile = `{
	"omts_version": "1.0.0",
	"snapshot_date": "2026-01-01",
	"file_salt": "0000000000000000000000000000000000000000000000000000000000000000",
	"nodes": [],
	"edges": []
}`

func parseFile(t *testing.T, jsonStr string) *File {
	t.Helper()
	var f File
	if err := json.Unmarshal([]byte(jsonStr), &f); err != nil {
		t.Fatalf("parse test file: %v", err)
	}
	return &f
}

func TestMinimalFileRoundTrip(t *testing.T) {
	f := parseFile(t, minimalFile)
	if len(f.Nodes) != 0 || len(f.Edges) != 0 {
		t.Fatalf("expected empty file, got %d nodes, %d edges", len(f.Nodes), len(f.Edges))
	}

	out, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	again := parseFile(t, string(out))
	if !reflect.DeepEqual(f, again) {
		t.Errorf("round trip changed the file:\n first: %#v\nsecond: %#v", f, again)
	}
}

func TestUnknownFieldsRoundTrip(t *testing.T) {
	src := `{
		"omts_version": "1.0.0",
		"snapshot_date": "2026-01-01",
		"file_salt": "` + strings.Repeat("a", 64) + `",
		"x_custom_header": {"k": [1, 2]},
		"nodes": [
			{"id": "org-1", "type": "organization", "name": "Acme", "x_rating": 5,
			 "identifiers": [{"scheme": "lei", "value": "529900T8BM49AURSDO55", "x_origin": "registry"}]}
		],
		"edges": [
			{"id": "e-1", "type": "supplies", "source": "org-1", "target": "org-1",
			 "properties": {"commodity": "steel", "x_note": "spot"}, "x_flag": true}
		]
	}`
	f := parseFile(t, src)

	if _, ok := f.Extra["x_custom_header"]; !ok {
		t.Error("header extension field lost")
	}
	if _, ok := f.Nodes[0].Extra["x_rating"]; !ok {
		t.Error("node extension field lost")
	}
	if _, ok := f.Nodes[0].Identifiers[0].Extra["x_origin"]; !ok {
		t.Error("identifier extension field lost")
	}
	if _, ok := f.Edges[0].Extra["x_flag"]; !ok {
		t.Error("edge extension field lost")
	}
	if _, ok := f.Edges[0].Properties.Extra["x_note"]; !ok {
		t.Error("edge property extension field lost")
	}

	out, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	again := parseFile(t, string(out))
	if !reflect.DeepEqual(f, again) {
		t.Error("round trip with unknown fields changed the file")
	}
}

func TestValidToTriState(t *testing.T) {
	src := `{
		"omts_version": "1.0.0",
		"snapshot_date": "2026-01-01",
		"file_salt": "` + strings.Repeat("b", 64) + `",
		"nodes": [
			{"id": "n-1", "type": "organization", "identifiers": [
				{"scheme": "lei", "value": "A"},
				{"scheme": "lei", "value": "B", "valid_to": null},
				{"scheme": "lei", "value": "C", "valid_to": "2030-12-31"}
			]}
		],
		"edges": []
	}`
	f := parseFile(t, src)
	ids := f.Nodes[0].Identifiers

	if ids[0].ValidTo != nil {
		t.Error("absent valid_to should stay nil")
	}
	if ids[1].ValidTo == nil || !ids[1].ValidTo.Null {
		t.Error("explicit null valid_to should be the no-expiry state")
	}
	if ids[2].ValidTo == nil || ids[2].ValidTo.Null || ids[2].ValidTo.Date != "2030-12-31" {
		t.Error("dated valid_to should carry the date")
	}

	out, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	text := string(out)
	if !strings.Contains(text, `"value":"B","valid_to":null`) {
		t.Errorf("explicit null must be emitted as null, got: %s", text)
	}
	if strings.Contains(text, `"value":"A","valid_to"`) {
		t.Errorf("absent valid_to must stay absent, got: %s", text)
	}

	again := parseFile(t, text)
	if !reflect.DeepEqual(f, again) {
		t.Error("tri-state valid_to changed across round trip")
	}
}

func TestParseRejectsBadHeader(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{name: "bad version", src: `{"omts_version":"1.0","snapshot_date":"2026-01-01","file_salt":"` + strings.Repeat("c", 64) + `","nodes":[],"edges":[]}`},
		{name: "bad date", src: `{"omts_version":"1.0.0","snapshot_date":"Jan 1","file_salt":"` + strings.Repeat("c", 64) + `","nodes":[],"edges":[]}`},
		{name: "bad salt", src: `{"omts_version":"1.0.0","snapshot_date":"2026-01-01","file_salt":"xyz","nodes":[],"edges":[]}`},
		{name: "bad scope", src: `{"omts_version":"1.0.0","snapshot_date":"2026-01-01","file_salt":"` + strings.Repeat("c", 64) + `","disclosure_scope":"secret","nodes":[],"edges":[]}`},
		{name: "negative sequence", src: `{"omts_version":"1.0.0","snapshot_date":"2026-01-01","file_salt":"` + strings.Repeat("c", 64) + `","snapshot_sequence":-1,"nodes":[],"edges":[]}`},
		{name: "empty node id", src: `{"omts_version":"1.0.0","snapshot_date":"2026-01-01","file_salt":"` + strings.Repeat("c", 64) + `","nodes":[{"id":"","type":"organization"}],"edges":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f File
			if err := json.Unmarshal([]byte(tt.src), &f); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}

func TestNodeScalarValues(t *testing.T) {
	name := "Acme"
	q := 10.5
	n := Node{ID: "n-1", Type: NodeConsignment, Name: &name, Quantity: &q}
	values, err := n.ScalarValues()
	if err != nil {
		t.Fatalf("ScalarValues: %v", err)
	}
	if string(values["name"]) != `"Acme"` {
		t.Errorf("name = %s", values["name"])
	}
	if string(values["quantity"]) != "10.5" {
		t.Errorf("quantity = %s", values["quantity"])
	}
	if _, ok := values["jurisdiction"]; ok {
		t.Error("absent field should not appear")
	}
}

func TestEffectiveSensitivity(t *testing.T) {
	confidential := SensitivityConfidential
	tests := []struct {
		name string
		id   Identifier
		want Sensitivity
	}{
		{name: "explicit wins", id: Identifier{Scheme: "lei", Sensitivity: &confidential}, want: SensitivityConfidential},
		{name: "lei defaults public", id: Identifier{Scheme: "lei"}, want: SensitivityPublic},
		{name: "opaque defaults public", id: Identifier{Scheme: "opaque"}, want: SensitivityPublic},
		{name: "nat-reg defaults restricted", id: Identifier{Scheme: "nat-reg"}, want: SensitivityRestricted},
		{name: "unknown defaults restricted", id: Identifier{Scheme: "com.example.x"}, want: SensitivityRestricted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EffectiveSensitivity(&tt.id); got != tt.want {
				t.Errorf("EffectiveSensitivity = %v, want %v", got, tt.want)
			}
		})
	}
}

package diff

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/BayFX/omts/internal/types"
)

func parseFile(t *testing.T, src string) *types.File {
	t.Helper()
	var f types.File
	if err := json.Unmarshal([]byte(src), &f); err != nil {
		t.Fatalf("parse test file: %v", err)
	}
	return &f
}

func fileWith(nodes, edges string) string {
	return `{"omts_version":"1.0.0","snapshot_date":"2026-01-01",` +
		`"file_salt":"` + strings.Repeat("0", 64) + `",` +
		`"nodes":` + nodes + `,"edges":` + edges + `}`
}

const baseNodes = `[
	{"id":"org-1","type":"organization","name":"Acme",
	 "identifiers":[{"scheme":"lei","value":"529900T8BM49AURSDO55"}]},
	{"id":"org-2","type":"organization","name":"Beta",
	 "identifiers":[{"scheme":"duns","value":"123456789"}]}
]`

const baseEdges = `[
	{"id":"e1","type":"supplies","source":"org-1","target":"org-2",
	 "properties":{"commodity":"steel"}}
]`

func TestDiffIdentity(t *testing.T) {
	f := parseFile(t, fileWith(baseNodes, baseEdges))
	result, err := Diff(f, f)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(result.Nodes.Added)+len(result.Nodes.Removed)+len(result.Nodes.Modified) != 0 {
		t.Errorf("diff(f, f) should report no node changes: %+v", result.Nodes)
	}
	if len(result.Edges.Added)+len(result.Edges.Removed)+len(result.Edges.Modified) != 0 {
		t.Errorf("diff(f, f) should report no edge changes: %+v", result.Edges)
	}
	if result.Summary.NodesUnchanged != 2 || result.Summary.EdgesUnchanged != 1 {
		t.Errorf("unexpected summary: %+v", result.Summary)
	}
}

func TestDiffAddedRemoved(t *testing.T) {
	a := parseFile(t, fileWith(baseNodes, baseEdges))
	b := parseFile(t, fileWith(`[
		{"id":"org-1","type":"organization","name":"Acme",
		 "identifiers":[{"scheme":"lei","value":"529900T8BM49AURSDO55"}]},
		{"id":"org-3","type":"organization","name":"New Corp",
		 "identifiers":[{"scheme":"gln","value":"4006381333931"}]}
	]`, `[]`))

	result, err := Diff(a, b)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(result.Nodes.Added) != 1 || result.Nodes.Added[0].ID != "org-3" {
		t.Errorf("org-3 should be added: %+v", result.Nodes.Added)
	}
	if len(result.Nodes.Removed) != 1 || result.Nodes.Removed[0].ID != "org-2" {
		t.Errorf("org-2 should be removed: %+v", result.Nodes.Removed)
	}
	if len(result.Edges.Removed) != 1 || result.Edges.Removed[0].ID != "e1" {
		t.Errorf("e1 should be removed: %+v", result.Edges.Removed)
	}
}

func TestDiffModifiedAcrossRenamedIDs(t *testing.T) {
	// Same LEI, different local id and name: the nodes match by identifier
	// and the name divergence is a property change.
	a := parseFile(t, fileWith(`[
		{"id":"org-1","type":"organization","name":"Acme",
		 "identifiers":[{"scheme":"lei","value":"529900T8BM49AURSDO55"}]}
	]`, `[]`))
	b := parseFile(t, fileWith(`[
		{"id":"acme-gmbh","type":"organization","name":"Acme GmbH",
		 "identifiers":[{"scheme":"lei","value":"529900T8BM49AURSDO55"}]}
	]`, `[]`))

	result, err := Diff(a, b)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(result.Nodes.Modified) != 1 {
		t.Fatalf("expected one modified pair, got %+v", result.Nodes)
	}
	mod := result.Nodes.Modified[0]
	if mod.IDA != "org-1" || mod.IDB != "acme-gmbh" || mod.MatchedBy != MatchedByIdentifier {
		t.Errorf("unexpected pair: %+v", mod)
	}
	if len(mod.PropertyChanges) != 1 || mod.PropertyChanges[0].Field != "name" {
		t.Errorf("expected a single name change, got %+v", mod.PropertyChanges)
	}
}

func TestDiffAntisymmetry(t *testing.T) {
	a := parseFile(t, fileWith(baseNodes, baseEdges))
	b := parseFile(t, fileWith(`[
		{"id":"org-1","type":"organization","name":"Acme Holdings",
		 "identifiers":[{"scheme":"lei","value":"529900T8BM49AURSDO55"}]},
		{"id":"org-3","type":"organization",
		 "identifiers":[{"scheme":"gln","value":"4006381333931"}]}
	]`, `[]`))

	ab, err := Diff(a, b)
	if err != nil {
		t.Fatalf("Diff(a,b): %v", err)
	}
	ba, err := Diff(b, a)
	if err != nil {
		t.Fatalf("Diff(b,a): %v", err)
	}

	if len(ab.Nodes.Added) != len(ba.Nodes.Removed) || len(ab.Nodes.Removed) != len(ba.Nodes.Added) {
		t.Errorf("added/removed should swap: ab=%+v ba=%+v", ab.Nodes, ba.Nodes)
	}
	if len(ab.Nodes.Modified) != 1 || len(ba.Nodes.Modified) != 1 {
		t.Fatalf("both directions should see one modification")
	}
	if ab.Nodes.Modified[0].IDA != ba.Nodes.Modified[0].IDB ||
		ab.Nodes.Modified[0].IDB != ba.Nodes.Modified[0].IDA {
		t.Errorf("id_a/id_b should swap: %+v vs %+v", ab.Nodes.Modified[0], ba.Nodes.Modified[0])
	}
}

func TestDiffSemanticEquality(t *testing.T) {
	// A numeric wobble below epsilon is not a change.
	a := parseFile(t, fileWith(`[
		{"id":"c-1","type":"consignment","quantity":10.0,"production_date":"2026-02-09",
		 "identifiers":[{"scheme":"gln","value":"4006381333931"}]}
	]`, `[]`))
	b := parseFile(t, fileWith(`[
		{"id":"c-1","type":"consignment","quantity":10.0000000000001,"production_date":"2026-02-09",
		 "identifiers":[{"scheme":"gln","value":"4006381333931"}]}
	]`, `[]`))

	result, err := Diff(a, b)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(result.Nodes.Modified) != 0 {
		t.Errorf("epsilon-close quantities should not be a change: %+v", result.Nodes.Modified)
	}
}

func TestDiffIdentifierAndLabelChanges(t *testing.T) {
	a := parseFile(t, fileWith(`[
		{"id":"org-1","type":"organization",
		 "identifiers":[
			{"scheme":"lei","value":"529900T8BM49AURSDO55"},
			{"scheme":"duns","value":"123456789"}],
		 "labels":[{"key":"sector","value":"steel"}]}
	]`, `[]`))
	b := parseFile(t, fileWith(`[
		{"id":"org-1","type":"organization",
		 "identifiers":[
			{"scheme":"lei","value":"529900T8BM49AURSDO55","sensitivity":"restricted"},
			{"scheme":"gln","value":"4006381333931"}],
		 "labels":[{"key":"sector","value":"metals"}]}
	]`, `[]`))

	result, err := Diff(a, b)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(result.Nodes.Modified) != 1 {
		t.Fatalf("expected one modified node, got %+v", result.Nodes)
	}
	idc := result.Nodes.Modified[0].IdentifierChanges
	if len(idc.Added) != 1 || idc.Added[0].Scheme != "gln" {
		t.Errorf("gln identifier should be added: %+v", idc)
	}
	if len(idc.Removed) != 1 || idc.Removed[0].Scheme != "duns" {
		t.Errorf("duns identifier should be removed: %+v", idc)
	}
	if len(idc.Modified) != 1 || len(idc.Modified[0].Changes) != 1 || idc.Modified[0].Changes[0].Field != "sensitivity" {
		t.Errorf("lei sensitivity change should be reported: %+v", idc.Modified)
	}

	lc := result.Nodes.Modified[0].LabelChanges
	if len(lc.Added) != 1 || len(lc.Removed) != 1 {
		t.Errorf("label value change appears as one added and one removed: %+v", lc)
	}
}

func TestDiffEdgeModification(t *testing.T) {
	a := parseFile(t, fileWith(baseNodes, baseEdges))
	b := parseFile(t, fileWith(baseNodes, `[
		{"id":"e1","type":"supplies","source":"org-1","target":"org-2",
		 "properties":{"commodity":"steel","volume":120.5}}
	]`))

	result, err := Diff(a, b)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(result.Edges.Modified) != 1 {
		t.Fatalf("expected one modified edge, got %+v", result.Edges)
	}
	mod := result.Edges.Modified[0]
	if mod.MatchedBy != MatchedByProperties {
		t.Errorf("no external identifiers: matched_by should be properties, got %s", mod.MatchedBy)
	}
	if len(mod.PropertyChanges) != 1 || mod.PropertyChanges[0].Field != "volume" {
		t.Errorf("expected a volume change, got %+v", mod.PropertyChanges)
	}
}

func TestDiffSameAsNeverMatches(t *testing.T) {
	nodes := `[
		{"id":"a","type":"organization","identifiers":[{"scheme":"lei","value":"X"}]},
		{"id":"b","type":"organization","identifiers":[{"scheme":"duns","value":"123456789"}]}
	]`
	sameAs := `[{"id":"s1","type":"same_as","source":"a","target":"b","properties":{}}]`
	a := parseFile(t, fileWith(nodes, sameAs))
	b := parseFile(t, fileWith(nodes, sameAs))

	result, err := Diff(a, b)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	// same_as edges are excluded from matching entirely: not added, not
	// removed, not modified.
	if len(result.Edges.Added)+len(result.Edges.Removed)+len(result.Edges.Modified) != 0 {
		t.Errorf("same_as edges must not participate in the diff: %+v", result.Edges)
	}
}

func TestDiffAmbiguousMatchWarns(t *testing.T) {
	// Two nodes in A share the identifier of one node in B.
	a := parseFile(t, fileWith(`[
		{"id":"a1","type":"organization","identifiers":[{"scheme":"lei","value":"X"}]},
		{"id":"a2","type":"organization","identifiers":[{"scheme":"lei","value":"X"}]}
	]`, `[]`))
	b := parseFile(t, fileWith(`[
		{"id":"b1","type":"organization","identifiers":[{"scheme":"lei","value":"X"}]}
	]`, `[]`))

	result, err := Diff(a, b)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(result.Warnings) == 0 {
		t.Error("ambiguous match group should produce a warning")
	}
	// Greedy pairing: a1-b1 matched; a2 removed.
	if len(result.Nodes.Removed) != 1 || result.Nodes.Removed[0].ID != "a2" {
		t.Errorf("a2 should be left unmatched: %+v", result.Nodes)
	}
}

func TestDiffFilter(t *testing.T) {
	a := parseFile(t, fileWith(baseNodes, baseEdges))
	b := parseFile(t, fileWith(`[
		{"id":"org-1","type":"organization","name":"Acme Renamed",
		 "identifiers":[{"scheme":"lei","value":"529900T8BM49AURSDO55"}]},
		{"id":"org-2","type":"organization","name":"Beta",
		 "identifiers":[{"scheme":"duns","value":"123456789"}]}
	]`, baseEdges))

	// Ignoring the name field suppresses the only change.
	result, err := DiffFiltered(a, b, &Filter{IgnoreFields: []string{"name"}})
	if err != nil {
		t.Fatalf("DiffFiltered: %v", err)
	}
	if len(result.Nodes.Modified) != 0 {
		t.Errorf("ignored field should not count as a change: %+v", result.Nodes.Modified)
	}

	// A node-type whitelist that excludes organizations reports nothing.
	result2, err := DiffFiltered(a, b, &Filter{NodeTypes: []types.NodeTypeTag{types.NodeFacility}})
	if err != nil {
		t.Fatalf("DiffFiltered: %v", err)
	}
	if len(result2.Nodes.Modified)+len(result2.Nodes.Added)+len(result2.Nodes.Removed) != 0 {
		t.Errorf("filtered-out node types should not be reported: %+v", result2.Nodes)
	}
}

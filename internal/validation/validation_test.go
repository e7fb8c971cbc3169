package validation

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

func fileWith(nodes, edges string, header ...string) string {
	extra := strings.Join(header, "")
	return `{"omts_version":"1.0.0","snapshot_date":"2026-01-01",` +
		`"file_salt":"` + strings.Repeat("0", 64) + `",` + extra +
		`"nodes":` + nodes + `,"edges":` + edges + `}`
}

// rulesHit collects the distinct rule ids among the diagnostics.
func rulesHit(diags []Diagnostic) map[RuleID]int {
	out := make(map[RuleID]int)
	for _, d := range diags {
		out[d.RuleID]++
	}
	return out
}

func TestCleanFilePasses(t *testing.T) {
	f := parseFile(t, fileWith(
		`[{"id":"org-1","type":"organization","name":"Acme",
		   "identifiers":[{"scheme":"lei","value":"529900T8BM49AURSDO55"}],
		   "data_quality":{"confidence":"high"}}]`,
		`[]`,
		`"reporting_entity":"org-1",`))
	diags := Validate(f, Config{L1: true, L2: true}, nil)
	if len(diags) != 0 {
		t.Errorf("clean file should produce no diagnostics, got %v", diags)
	}
}

func TestGdmRules(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		rule  RuleID
		count int
	}{
		{
			name: "duplicate node ids",
			src: fileWith(`[{"id":"n","type":"organization"},{"id":"n","type":"organization"}]`,
				`[]`),
			rule:  "L1-GDM-01",
			count: 1,
		},
		{
			name: "duplicate edge ids",
			src: fileWith(`[{"id":"a","type":"organization"},{"id":"b","type":"organization"}]`,
				`[{"id":"e","type":"supplies","source":"a","target":"b","properties":{}},
				  {"id":"e","type":"supplies","source":"b","target":"a","properties":{}}]`),
			rule:  "L1-GDM-02",
			count: 1,
		},
		{
			name: "dangling endpoints counted independently",
			src: fileWith(`[{"id":"a","type":"organization"}]`,
				`[{"id":"e","type":"supplies","source":"x","target":"y","properties":{}}]`),
			rule:  "L1-GDM-03",
			count: 2,
		},
		{
			name: "unknown edge type without dot",
			src: fileWith(`[{"id":"a","type":"organization"},{"id":"b","type":"organization"}]`,
				`[{"id":"e","type":"mystery","source":"a","target":"b","properties":{}}]`),
			rule:  "L1-GDM-04",
			count: 1,
		},
		{
			name: "missing reporting entity",
			src: fileWith(`[{"id":"a","type":"organization"}]`, `[]`,
				`"reporting_entity":"ghost",`),
			rule:  "L1-GDM-05",
			count: 1,
		},
		{
			name: "reporting entity wrong type",
			src: fileWith(`[{"id":"f","type":"facility"}]`, `[]`,
				`"reporting_entity":"f",`),
			rule:  "L1-GDM-05",
			count: 1,
		},
		{
			name: "operates endpoint types",
			src: fileWith(`[{"id":"a","type":"good"},{"id":"f","type":"facility"}]`,
				`[{"id":"e","type":"operates","source":"a","target":"f","properties":{}}]`),
			rule:  "L1-GDM-06",
			count: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diags := Validate(parseFile(t, tt.src), Config{L1: true}, nil)
			if got := rulesHit(diags)[tt.rule]; got != tt.count {
				t.Errorf("rule %s fired %d times, want %d; all: %v", tt.rule, got, tt.count, diags)
			}
		})
	}
}

func TestGdm06BoundaryRefAccepted(t *testing.T) {
	f := parseFile(t, fileWith(
		`[{"id":"br","type":"boundary_ref","identifiers":[{"scheme":"opaque","value":"abc"}]},
		  {"id":"f","type":"facility"}]`,
		`[{"id":"e","type":"operates","source":"br","target":"f","properties":{}}]`))
	diags := Validate(f, Config{L1: true}, nil)
	if got := rulesHit(diags)["L1-GDM-06"]; got != 0 {
		t.Errorf("boundary_ref endpoints must be accepted universally, got %v", diags)
	}
}

func TestEidRules(t *testing.T) {
	node := func(identifier string) string {
		return `[{"id":"n","type":"organization","identifiers":[` + identifier + `]}]`
	}

	tests := []struct {
		name  string
		src   string
		rule  RuleID
		count int
	}{
		{name: "empty scheme", src: fileWith(node(`{"scheme":"","value":"v"}`), `[]`), rule: "L1-EID-01", count: 1},
		{name: "empty value", src: fileWith(node(`{"scheme":"lei","value":""}`), `[]`), rule: "L1-EID-02", count: 1},
		{name: "nat-reg needs authority", src: fileWith(node(`{"scheme":"nat-reg","value":"HRB1"}`), `[]`), rule: "L1-EID-03", count: 1},
		{name: "unknown dotless scheme", src: fileWith(node(`{"scheme":"mystery","value":"v"}`), `[]`), rule: "L1-EID-04", count: 1},
		{name: "extension scheme ok", src: fileWith(node(`{"scheme":"com.example.id","value":"v"}`), `[]`), rule: "L1-EID-04", count: 0},
		{name: "valid lei", src: fileWith(node(`{"scheme":"lei","value":"529900T8BM49AURSDO55"}`), `[]`), rule: "L1-EID-05", count: 0},
		{name: "lei bad check digits", src: fileWith(node(`{"scheme":"lei","value":"529900T8BM49AURSDO54"}`), `[]`), rule: "L1-EID-05", count: 1},
		{name: "lei bad format", src: fileWith(node(`{"scheme":"lei","value":"abc"}`), `[]`), rule: "L1-EID-05", count: 1},
		{name: "duns not nine digits", src: fileWith(node(`{"scheme":"duns","value":"12345"}`), `[]`), rule: "L1-EID-06", count: 1},
		{name: "gln valid", src: fileWith(node(`{"scheme":"gln","value":"4006381333931"}`), `[]`), rule: "L1-EID-07", count: 0},
		{name: "gln bad check digit", src: fileWith(node(`{"scheme":"gln","value":"4006381333932"}`), `[]`), rule: "L1-EID-07", count: 1},
		{name: "leap day accepted", src: fileWith(node(`{"scheme":"lei","value":"X","valid_from":"2024-02-29"}`), `[]`), rule: "L1-EID-08", count: 0},
		{name: "non leap day rejected", src: fileWith(node(`{"scheme":"lei","value":"X","valid_from":"2023-02-29"}`), `[]`), rule: "L1-EID-08", count: 1},
		{name: "valid_to before valid_from", src: fileWith(node(`{"scheme":"lei","value":"X","valid_from":"2024-01-01","valid_to":"2023-01-01"}`), `[]`), rule: "L1-EID-09", count: 1},
		{name: "null valid_to skips ordering", src: fileWith(node(`{"scheme":"lei","value":"X","valid_from":"2024-01-01","valid_to":null}`), `[]`), rule: "L1-EID-09", count: 0},
		{
			name:  "duplicate triple",
			src:   fileWith(node(`{"scheme":"lei","value":"X"},{"scheme":"lei","value":"X"}`), `[]`),
			rule:  "L1-EID-11",
			count: 1,
		},
		{
			name:  "same value different authority is fine",
			src:   fileWith(node(`{"scheme":"nat-reg","value":"X","authority":"DE"},{"scheme":"nat-reg","value":"X","authority":"FR"}`), `[]`),
			rule:  "L1-EID-11",
			count: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diags := Validate(parseFile(t, tt.src), Config{L1: true}, nil)
			if got := rulesHit(diags)[tt.rule]; got != tt.count {
				t.Errorf("rule %s fired %d times, want %d; all: %v", tt.rule, got, tt.count, diags)
			}
		})
	}
}

func TestLEISingleCharacterMutationFails(t *testing.T) {
	const valid = "529900T8BM49AURSDO55"
	mutated := "A" + valid[1:]
	f := parseFile(t, fileWith(
		`[{"id":"n","type":"organization","identifiers":[{"scheme":"lei","value":"`+mutated+`"}]}]`, `[]`))
	diags := Validate(f, Config{L1: true}, nil)
	if got := rulesHit(diags)["L1-EID-05"]; got != 1 {
		t.Errorf("mutated LEI should fail L1-EID-05, got %v", diags)
	}
}

func TestSdi01(t *testing.T) {
	tests := []struct {
		name  string
		ids   string
		count int
	}{
		{name: "exactly one opaque", ids: `[{"scheme":"opaque","value":"a"}]`, count: 0},
		{name: "no identifiers", ids: `null`, count: 1},
		{name: "no opaque", ids: `[{"scheme":"lei","value":"X"}]`, count: 1},
		{name: "opaque plus extra", ids: `[{"scheme":"opaque","value":"a"},{"scheme":"lei","value":"X"}]`, count: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := tt.ids
			var node string
			if ids == "null" {
				node = `[{"id":"br","type":"boundary_ref"}]`
			} else {
				node = `[{"id":"br","type":"boundary_ref","identifiers":` + ids + `}]`
			}
			diags := Validate(parseFile(t, fileWith(node, `[]`)), Config{L1: true}, nil)
			if got := rulesHit(diags)["L1-SDI-01"]; got != tt.count {
				t.Errorf("L1-SDI-01 fired %d times, want %d; all: %v", got, tt.count, diags)
			}
		})
	}
}

func TestSdi02(t *testing.T) {
	nodes := `[{"id":"n","type":"organization","identifiers":[
		{"scheme":"lei","value":"X"},
		{"scheme":"nat-reg","value":"Y","authority":"DE"},
		{"scheme":"lei","value":"Z","sensitivity":"confidential"}]}]`

	tests := []struct {
		name  string
		scope string
		count int
	}{
		{name: "internal allows everything", scope: "internal", count: 0},
		{name: "partner forbids confidential", scope: "partner", count: 1},
		{name: "public forbids restricted and confidential", scope: "public", count: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := fileWith(nodes, `[]`, `"disclosure_scope":"`+tt.scope+`",`)
			diags := Validate(parseFile(t, src), Config{L1: true}, nil)
			if got := rulesHit(diags)["L1-SDI-02"]; got != tt.count {
				t.Errorf("L1-SDI-02 fired %d times, want %d; all: %v", got, tt.count, diags)
			}
		})
	}
}

func TestL2Rules(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		rule  RuleID
		count int
	}{
		{
			name: "isolated facility",
			src:  fileWith(`[{"id":"f","type":"facility","data_quality":{}}]`, `[]`),
			rule: "L2-GDM-01", count: 1,
		},
		{
			name: "facility connected via operator field",
			src: fileWith(`[{"id":"o","type":"organization","identifiers":[{"scheme":"lei","value":"X"}],"data_quality":{}},
				{"id":"f","type":"facility","operator":"o","data_quality":{}}]`, `[]`),
			rule: "L2-GDM-01", count: 0,
		},
		{
			name: "ownership without valid_from",
			src: fileWith(`[{"id":"a","type":"organization","identifiers":[{"scheme":"lei","value":"X"}],"data_quality":{}},
				{"id":"b","type":"organization","identifiers":[{"scheme":"lei","value":"Y"}],"data_quality":{}}]`,
				`[{"id":"e","type":"ownership","source":"a","target":"b","properties":{}}]`),
			rule: "L2-GDM-02", count: 1,
		},
		{
			name: "missing data_quality on org",
			src:  fileWith(`[{"id":"a","type":"organization","identifiers":[{"scheme":"lei","value":"X"}]}]`, `[]`),
			rule: "L2-GDM-03", count: 1,
		},
		{
			name: "tier without reporting entity",
			src: fileWith(`[{"id":"a","type":"organization","identifiers":[{"scheme":"lei","value":"X"}],"data_quality":{}},
				{"id":"b","type":"organization","identifiers":[{"scheme":"lei","value":"Y"}],"data_quality":{}}]`,
				`[{"id":"e","type":"supplies","source":"a","target":"b","properties":{"tier":1,"data_quality":{}}}]`),
			rule: "L2-GDM-04", count: 1,
		},
		{
			name: "org with only internal identifiers",
			src:  fileWith(`[{"id":"a","type":"organization","identifiers":[{"scheme":"internal","value":"X","authority":"me"}],"data_quality":{}}]`, `[]`),
			rule: "L2-EID-01", count: 1,
		},
		{
			name: "vat authority not a country",
			src:  fileWith(`[{"id":"a","type":"organization","identifiers":[{"scheme":"vat","value":"X","authority":"XX"}],"data_quality":{}}]`, `[]`),
			rule: "L2-EID-04", count: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diags := Validate(parseFile(t, tt.src), Config{L1: true, L2: true}, nil)
			if got := rulesHit(diags)[tt.rule]; got != tt.count {
				t.Errorf("rule %s fired %d times, want %d; all: %v", tt.rule, got, tt.count, diags)
			}
			for _, d := range diags {
				if d.RuleID == tt.rule && d.Severity != SeverityWarning {
					t.Errorf("L2 diagnostics must be warnings, got %s", d.Severity)
				}
			}
		})
	}
}

type fakeExternal struct {
	snapshots map[string]*uint64
}

func (f *fakeExternal) KnownSnapshot(ref string) (*uint64, bool) {
	seq, ok := f.snapshots[ref]
	return seq, ok
}

func TestL3PreviousSnapshotContinuity(t *testing.T) {
	seq := func(n uint64) *uint64 { return &n }
	src := fileWith(`[]`, `[]`, `"previous_snapshot_ref":"snap-1","snapshot_sequence":5,`)
	f := parseFile(t, src)

	// Without external data, L3 is skipped entirely.
	if diags := Validate(f, Config{L3: true}, nil); len(diags) != 0 {
		t.Errorf("L3 without external data should be silent, got %v", diags)
	}

	tests := []struct {
		name  string
		ext   *fakeExternal
		count int
	}{
		{name: "known snapshot with lower sequence", ext: &fakeExternal{snapshots: map[string]*uint64{"snap-1": seq(4)}}, count: 0},
		{name: "unknown snapshot", ext: &fakeExternal{snapshots: map[string]*uint64{}}, count: 1},
		{name: "sequence not increasing", ext: &fakeExternal{snapshots: map[string]*uint64{"snap-1": seq(5)}}, count: 1},
		{name: "no sequence on previous", ext: &fakeExternal{snapshots: map[string]*uint64{"snap-1": nil}}, count: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diags := Validate(f, Config{L3: true}, tt.ext)
			if got := rulesHit(diags)["L3-GDM-01"]; got != tt.count {
				t.Errorf("L3-GDM-01 fired %d times, want %d; all: %v", got, tt.count, diags)
			}
		})
	}
}

func TestDiagnosticLocationJSON(t *testing.T) {
	d := Diagnostic{
		RuleID:   "L1-EID-05",
		Severity: SeverityError,
		Location: IdentifierLocation("n-1", 2, "value"),
		Message:  "bad LEI",
	}
	raw, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	text := string(raw)
	for _, want := range []string{`"kind":"identifier"`, `"node_id":"n-1"`, `"index":2`, `"field":"value"`, `"rule_id":"L1-EID-05"`} {
		if !strings.Contains(text, want) {
			t.Errorf("diagnostic JSON missing %s: %s", want, text)
		}
	}
}

func TestDiagnosticsKeepDocumentOrder(t *testing.T) {
	// Two bad identifiers on two nodes: diagnostics come out in node order
	// then identifier index order, within a single rule.
	f := parseFile(t, fileWith(
		`[{"id":"n1","type":"organization","identifiers":[{"scheme":"lei","value":"bad1"},{"scheme":"lei","value":"bad2"}]},
		  {"id":"n2","type":"organization","identifiers":[{"scheme":"lei","value":"bad3"}]}]`, `[]`))
	var hits []Location
	for _, d := range Validate(f, Config{L1: true}, nil) {
		if d.RuleID == "L1-EID-05" {
			hits = append(hits, d.Location)
		}
	}
	if len(hits) != 3 {
		t.Fatalf("expected 3 LEI diagnostics, got %d", len(hits))
	}
	if hits[0].ID != "n1" || hits[0].Index != 0 ||
		hits[1].ID != "n1" || hits[1].Index != 1 ||
		hits[2].ID != "n2" || hits[2].Index != 0 {
		t.Errorf("diagnostics out of document order: %v", hits)
	}
}

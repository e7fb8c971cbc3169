package graph

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/BayFX/omts/internal/types"
)

// chainFile is three organizations A -> B -> C linked by supplies edges.
const chainFile = `{
	"omts_version": "1.0.0",
	"snapshot_date": "2026-01-01",
	"file_salt": "0000000000000000000000000000000000000000000000000000000000000000",
	"nodes": [
		{"id": "A", "type": "organization", "name": "Alpha"},
		{"id": "B", "type": "organization", "name": "Beta"},
		{"id": "C", "type": "organization", "name": "Gamma"}
	],
	"edges": [
		{"id": "e1", "type": "supplies", "source": "A", "target": "B", "properties": {}},
		{"id": "e2", "type": "supplies", "source": "B", "target": "C", "properties": {}}
	]
}`

func buildFromJSON(t *testing.T, src string) (*Graph, *types.File) {
	t.Helper()
	var f types.File
	if err := json.Unmarshal([]byte(src), &f); err != nil {
		t.Fatalf("parse: %v", err)
	}
	g, err := Build(&f)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return g, &f
}

func ids(nodes []types.NodeID) string {
	parts := make([]string, len(nodes))
	for i, id := range nodes {
		parts[i] = string(id)
	}
	return strings.Join(parts, ",")
}

func TestBuildErrors(t *testing.T) {
	base := `{"omts_version":"1.0.0","snapshot_date":"2026-01-01","file_salt":"%s","nodes":%s,"edges":%s}`
	salt := strings.Repeat("0", 64)

	tests := []struct {
		name  string
		nodes string
		edges string
		want  error
	}{
		{
			name:  "duplicate node id",
			nodes: `[{"id":"A","type":"organization"},{"id":"A","type":"organization"}]`,
			edges: `[]`,
			want:  ErrDuplicateNodeID,
		},
		{
			name:  "duplicate edge id",
			nodes: `[{"id":"A","type":"organization"},{"id":"B","type":"organization"}]`,
			edges: `[{"id":"e","type":"supplies","source":"A","target":"B","properties":{}},{"id":"e","type":"supplies","source":"B","target":"A","properties":{}}]`,
			want:  ErrDuplicateEdgeID,
		},
		{
			name:  "dangling source",
			nodes: `[{"id":"A","type":"organization"}]`,
			edges: `[{"id":"e","type":"supplies","source":"missing","target":"A","properties":{}}]`,
			want:  ErrDanglingReference,
		},
		{
			name:  "dangling target",
			nodes: `[{"id":"A","type":"organization"}]`,
			edges: `[{"id":"e","type":"supplies","source":"A","target":"missing","properties":{}}]`,
			want:  ErrDanglingReference,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f types.File
			src := strings.Replace(base, "%s", salt, 1)
			src = strings.Replace(src, "%s", tt.nodes, 1)
			src = strings.Replace(src, "%s", tt.edges, 1)
			if err := json.Unmarshal([]byte(src), &f); err != nil {
				t.Fatalf("parse: %v", err)
			}
			_, err := Build(&f)
			if !errors.Is(err, tt.want) {
				t.Errorf("Build error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDanglingReferenceDetails(t *testing.T) {
	var f types.File
	src := `{"omts_version":"1.0.0","snapshot_date":"2026-01-01","file_salt":"` + strings.Repeat("0", 64) + `",
		"nodes":[{"id":"A","type":"organization"}],
		"edges":[{"id":"e9","type":"supplies","source":"A","target":"ghost","properties":{}}]}`
	if err := json.Unmarshal([]byte(src), &f); err != nil {
		t.Fatalf("parse: %v", err)
	}
	_, err := Build(&f)
	var dangling *DanglingReferenceError
	if !errors.As(err, &dangling) {
		t.Fatalf("expected DanglingReferenceError, got %v", err)
	}
	if dangling.EdgeID != "e9" || dangling.Endpoint != "target" || dangling.MissingID != "ghost" {
		t.Errorf("unexpected error details: %#v", dangling)
	}
}

func TestReachableFrom(t *testing.T) {
	g, _ := buildFromJSON(t, chainFile)

	tests := []struct {
		name  string
		start types.NodeID
		dir   Direction
		want  string
	}{
		{name: "forward from A", start: "A", dir: Forward, want: "A,B,C"},
		{name: "forward from C", start: "C", dir: Forward, want: "C"},
		{name: "both from C", start: "C", dir: Both, want: "A,B,C"},
		{name: "backward from C", start: "C", dir: Backward, want: "A,B,C"},
		{name: "backward from A", start: "A", dir: Backward, want: "A"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.ReachableFrom(tt.start, tt.dir, nil)
			if err != nil {
				t.Fatalf("ReachableFrom: %v", err)
			}
			if ids(got) != tt.want {
				t.Errorf("ReachableFrom = %s, want %s", ids(got), tt.want)
			}
		})
	}

	if _, err := g.ReachableFrom("missing", Forward, nil); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("unknown start should fail with ErrNodeNotFound, got %v", err)
	}
}

func TestReachableFromEdgeTypeFilter(t *testing.T) {
	src := strings.Replace(chainFile,
		`{"id": "e2", "type": "supplies", "source": "B", "target": "C", "properties": {}}`,
		`{"id": "e2", "type": "ownership", "source": "B", "target": "C", "properties": {}}`, 1)
	g, _ := buildFromJSON(t, src)

	got, err := g.ReachableFrom("A", Forward, []types.EdgeTypeTag{types.EdgeSupplies})
	if err != nil {
		t.Fatalf("ReachableFrom: %v", err)
	}
	if ids(got) != "A,B" {
		t.Errorf("filtered reachability = %s, want A,B", ids(got))
	}
}

func TestShortestPath(t *testing.T) {
	// Diamond with a shortcut: A->B->D, A->C->D, plus direct A->D.
	src := `{
		"omts_version": "1.0.0", "snapshot_date": "2026-01-01",
		"file_salt": "` + strings.Repeat("0", 64) + `",
		"nodes": [
			{"id": "A", "type": "organization"},
			{"id": "B", "type": "organization"},
			{"id": "C", "type": "organization"},
			{"id": "D", "type": "organization"}
		],
		"edges": [
			{"id": "e1", "type": "supplies", "source": "A", "target": "B", "properties": {}},
			{"id": "e2", "type": "supplies", "source": "A", "target": "C", "properties": {}},
			{"id": "e3", "type": "supplies", "source": "B", "target": "D", "properties": {}},
			{"id": "e4", "type": "supplies", "source": "C", "target": "D", "properties": {}},
			{"id": "e5", "type": "supplies", "source": "A", "target": "D", "properties": {}}
		]
	}`
	g, _ := buildFromJSON(t, src)

	path, err := g.ShortestPath("A", "D", Forward, nil)
	if err != nil {
		t.Fatalf("ShortestPath: %v", err)
	}
	if ids(path) != "A,D" {
		t.Errorf("path = %s, want the direct edge A,D", ids(path))
	}

	// Remove the shortcut: ties between A->B->D and A->C->D break toward
	// the lower edge insertion index, so B wins.
	srcNoShortcut := strings.Replace(src,
		`,
			{"id": "e5", "type": "supplies", "source": "A", "target": "D", "properties": {}}`, "", 1)
	g2, _ := buildFromJSON(t, srcNoShortcut)
	path2, err := g2.ShortestPath("A", "D", Forward, nil)
	if err != nil {
		t.Fatalf("ShortestPath: %v", err)
	}
	if ids(path2) != "A,B,D" {
		t.Errorf("path = %s, want A,B,D via the earlier edge", ids(path2))
	}

	// Unreachable returns nil without error.
	none, err := g2.ShortestPath("D", "A", Forward, nil)
	if err != nil {
		t.Fatalf("ShortestPath: %v", err)
	}
	if none != nil {
		t.Errorf("unreachable pair should return nil, got %s", ids(none))
	}

	// Self path.
	self, err := g2.ShortestPath("A", "A", Forward, nil)
	if err != nil {
		t.Fatalf("ShortestPath: %v", err)
	}
	if ids(self) != "A" {
		t.Errorf("self path = %s, want A", ids(self))
	}
}

func TestDetectCycles(t *testing.T) {
	src := `{
		"omts_version": "1.0.0", "snapshot_date": "2026-01-01",
		"file_salt": "` + strings.Repeat("0", 64) + `",
		"nodes": [
			{"id": "A", "type": "organization"},
			{"id": "B", "type": "organization"},
			{"id": "C", "type": "organization"},
			{"id": "D", "type": "organization"}
		],
		"edges": [
			{"id": "e1", "type": "supplies", "source": "A", "target": "B", "properties": {}},
			{"id": "e2", "type": "supplies", "source": "B", "target": "A", "properties": {}},
			{"id": "e3", "type": "supplies", "source": "C", "target": "C", "properties": {}},
			{"id": "e4", "type": "ownership", "source": "A", "target": "D", "properties": {}}
		]
	}`
	g, _ := buildFromJSON(t, src)

	cycles := g.DetectCycles(nil)
	if len(cycles) != 2 {
		t.Fatalf("expected 2 cycles (A,B and the C self-loop), got %d: %v", len(cycles), cycles)
	}

	found := map[string]bool{}
	for _, c := range cycles {
		found[ids(c)] = true
	}
	if !found["A,B"] {
		t.Errorf("missing A,B cycle, got %v", found)
	}
	if !found["C"] {
		t.Errorf("missing C self-loop, got %v", found)
	}

	// Filtering to ownership removes all cycles.
	if got := g.DetectCycles([]types.EdgeTypeTag{types.EdgeOwnership}); len(got) != 0 {
		t.Errorf("ownership-only subgraph should be acyclic, got %v", got)
	}
}

func TestVerticesAndEdgesOfType(t *testing.T) {
	g, _ := buildFromJSON(t, chainFile)
	if got := len(g.VerticesOfType(types.NodeOrganization)); got != 3 {
		t.Errorf("organizations = %d, want 3", got)
	}
	if got := len(g.EdgesOfType(types.EdgeSupplies)); got != 2 {
		t.Errorf("supplies edges = %d, want 2", got)
	}
	if got := len(g.VerticesOfType(types.NodeFacility)); got != 0 {
		t.Errorf("facilities = %d, want 0", got)
	}
}

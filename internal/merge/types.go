// Package merge combines multiple parsed files into one, collapsing nodes
// into merge groups via identifier predicates and same_as edges, merging
// properties field-by-field with conflict recording, and emitting a
// deterministically ordered output file.
package merge

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/BayFX/omts/internal/types"
)

// Merge error kinds, matched with errors.Is.
var (
	ErrNoInputFiles              = errors.New("merge requires at least one input file")
	ErrPostMergeValidationFailed = errors.New("post-merge L1 validation failed")
	ErrSaltGenerationFailed      = errors.New("could not generate file salt")
	ErrInternalData              = errors.New("internal data error during merge")
)

// SameAsThreshold gates which same_as edges feed the union-find:
// definite honours only definite edges, probable adds probable, possible
// honours everything. Absent or unrecognised confidence strings count as
// possible, the weakest level.
type SameAsThreshold string

const (
	ThresholdDefinite SameAsThreshold = "definite"
	ThresholdProbable SameAsThreshold = "probable"
	ThresholdPossible SameAsThreshold = "possible"
)

// Honours reports whether a same_as edge with the given confidence string
// (empty when absent) passes this threshold.
func (t SameAsThreshold) Honours(confidence string) bool {
	level := confidence
	switch level {
	case "definite", "probable":
	default:
		level = "possible"
	}
	switch t {
	case ThresholdDefinite:
		return level == "definite"
	case ThresholdProbable:
		return level == "definite" || level == "probable"
	case ThresholdPossible:
		return true
	}
	return level == "definite"
}

// ConflictEntry is one observed value with its provenance.
type ConflictEntry struct {
	Value      json.RawMessage `json:"value"`
	SourceFile string          `json:"source_file"`
}

// Conflict records a property the merge group disagreed on. The property is
// omitted from the merged output and the conflict appended to the _conflicts
// array. Entries are sorted by (source_file, value) and deduplicated;
// conflict records sort by field.
type Conflict struct {
	Field  string          `json:"field"`
	Values []ConflictEntry `json:"values"`
}

// Metadata is the provenance record written into the merged file's header
// extension under merge_metadata.
type Metadata struct {
	SourceFiles       []string `json:"source_files"`
	ReportingEntities []string `json:"reporting_entities"`
	Timestamp         string   `json:"timestamp"`
	MergedNodeCount   int      `json:"merged_node_count"`
	MergedEdgeCount   int      `json:"merged_edge_count"`
	ConflictCount     int      `json:"conflict_count"`
}

// Warning is a non-fatal finding from the pipeline.
type Warning struct {
	// RepresentativeOrdinal is the union-find representative of the group.
	RepresentativeOrdinal int
	// GroupSize is the number of nodes in the group.
	GroupSize int
	// Limit is the configured ceiling that was exceeded.
	Limit int
}

func (w Warning) String() string {
	return fmt.Sprintf("merge group (representative ordinal %d) has %d nodes, exceeding the limit of %d",
		w.RepresentativeOrdinal, w.GroupSize, w.Limit)
}

// Config tunes the pipeline.
type Config struct {
	// GroupSizeLimit caps a merge group before an oversized-group warning
	// fires. A runaway group usually means one bad identifier chained
	// unrelated entities together.
	GroupSizeLimit int
	// SameAsThreshold gates same_as edges.
	SameAsThreshold SameAsThreshold
	// DefaultSourceLabel labels inputs that carry no source name.
	DefaultSourceLabel string
}

// DefaultConfig returns the spec defaults: group limit 50, definite
// threshold.
func DefaultConfig() Config {
	return Config{
		GroupSizeLimit:     50,
		SameAsThreshold:    ThresholdDefinite,
		DefaultSourceLabel: "<unknown>",
	}
}

// Input pairs a parsed file with the label used in conflict provenance.
type Input struct {
	File   *types.File
	Source string
}

// Output is the result of a successful merge.
type Output struct {
	File          *types.File
	Metadata      Metadata
	Warnings      []Warning
	ConflictCount int
}

// Package omts is the reference library for the OMTS multi-tier
// supply-chain graph format. It exposes the parsed-file data model, the
// codec layer (JSON, CBOR, zstd), the graph query engine, the validation
// rule registry, and the diff, merge, and redaction engines.
//
// The package is a thin facade: each subsystem lives in its own internal
// package, and the aliases here are the supported public surface. All
// operations are pure functions over parsed files — no I/O, no logging, no
// shared state. Callers may freely parallelize across independent files.
package omts

import (
	"github.com/BayFX/omts/internal/codec"
	"github.com/BayFX/omts/internal/diff"
	"github.com/BayFX/omts/internal/graph"
	"github.com/BayFX/omts/internal/identity"
	"github.com/BayFX/omts/internal/merge"
	"github.com/BayFX/omts/internal/redact"
	"github.com/BayFX/omts/internal/types"
	"github.com/BayFX/omts/internal/validation"
)

// Data model types.
type (
	File           = types.File
	Node           = types.Node
	Edge           = types.Edge
	EdgeProperties = types.EdgeProperties
	Identifier     = types.Identifier
	Label          = types.Label
	ExtraMap       = types.ExtraMap

	NodeID       = types.NodeID
	NodeTypeTag  = types.NodeTypeTag
	EdgeTypeTag  = types.EdgeTypeTag
	CalendarDate = types.CalendarDate
	NullableDate = types.NullableDate
	SemVer       = types.SemVer
	FileSalt     = types.FileSalt

	DisclosureScope    = types.DisclosureScope
	Sensitivity        = types.Sensitivity
	VerificationStatus = types.VerificationStatus
)

// Node type tags.
const (
	NodeOrganization = types.NodeOrganization
	NodeFacility     = types.NodeFacility
	NodeGood         = types.NodeGood
	NodePerson       = types.NodePerson
	NodeAttestation  = types.NodeAttestation
	NodeConsignment  = types.NodeConsignment
	NodeBoundaryRef  = types.NodeBoundaryRef
)

// Edge type tags.
const (
	EdgeOwnership           = types.EdgeOwnership
	EdgeOperationalControl  = types.EdgeOperationalControl
	EdgeLegalParentage      = types.EdgeLegalParentage
	EdgeFormerIdentity      = types.EdgeFormerIdentity
	EdgeBeneficialOwnership = types.EdgeBeneficialOwnership
	EdgeSupplies            = types.EdgeSupplies
	EdgeSubcontracts        = types.EdgeSubcontracts
	EdgeTolls               = types.EdgeTolls
	EdgeDistributes         = types.EdgeDistributes
	EdgeBrokers             = types.EdgeBrokers
	EdgeOperates            = types.EdgeOperates
	EdgeProduces            = types.EdgeProduces
	EdgeComposedOf          = types.EdgeComposedOf
	EdgeSellsTo             = types.EdgeSellsTo
	EdgeAttestedBy          = types.EdgeAttestedBy
	EdgeSameAs              = types.EdgeSameAs
)

// Disclosure scopes and sensitivities.
const (
	ScopeInternal = types.ScopeInternal
	ScopePartner  = types.ScopePartner
	ScopePublic   = types.ScopePublic

	SensitivityPublic       = types.SensitivityPublic
	SensitivityRestricted   = types.SensitivityRestricted
	SensitivityConfidential = types.SensitivityConfidential
)

// CanonicalKey returns the canonical identifier string used for
// deduplication, indexing, and sorting.
func CanonicalKey(id *Identifier) string { return types.CanonicalKey(id) }

// GenerateFileSalt draws a fresh 64-hex-char salt from the platform CSPRNG.
func GenerateFileSalt() (FileSalt, error) { return types.GenerateFileSalt() }

// Codec layer.
type Encoding = codec.Encoding

const (
	EncodingJSON = codec.EncodingJSON
	EncodingCBOR = codec.EncodingCBOR
	EncodingZstd = codec.EncodingZstd
)

// Parse decodes an OMTS file from raw bytes, auto-detecting zstd, CBOR, and
// JSON. maxDecompressed bounds zstd output; nested zstd is rejected.
func Parse(b []byte, maxDecompressed int) (*File, Encoding, error) {
	return codec.Parse(b, maxDecompressed)
}

// EmitJSON encodes a file as canonical JSON, optionally pretty-printed.
func EmitJSON(f *File, pretty bool) ([]byte, error) { return codec.EncodeJSON(f, pretty) }

// EmitCBOR encodes a file as deterministic CBOR with the self-describe tag.
func EmitCBOR(f *File) ([]byte, error) { return codec.EncodeCBOR(f) }

// Compress wraps bytes in a zstd frame.
func Compress(b []byte) ([]byte, error) { return codec.Compress(b) }

// Graph engine.
type (
	Graph       = graph.Graph
	Direction   = graph.Direction
	SelectorSet = graph.SelectorSet
	KeyValue    = graph.KeyValue
)

const (
	Forward  = graph.Forward
	Backward = graph.Backward
	Both     = graph.Both
)

// BuildGraph constructs the indexed graph over a parsed file.
func BuildGraph(f *File) (*Graph, error) { return graph.Build(f) }

// Validation engine.
type (
	Diagnostic       = validation.Diagnostic
	Location         = validation.Location
	RuleID           = validation.RuleID
	Severity         = validation.Severity
	ValidationConfig = validation.Config
	ExternalData     = validation.External
)

const (
	SeverityError   = validation.SeverityError
	SeverityWarning = validation.SeverityWarning
	SeverityInfo    = validation.SeverityInfo
)

// Validate runs the enabled rule levels over a file. A nil external source
// disables L3 rules.
func Validate(f *File, cfg ValidationConfig, external ExternalData) []Diagnostic {
	return validation.Validate(f, cfg, external)
}

// DefaultValidationConfig enables L1 and L2.
func DefaultValidationConfig() ValidationConfig { return validation.DefaultConfig() }

// Diff engine.
type (
	DiffFilter = diff.Filter
	DiffResult = diff.Result
)

// Diff structurally compares two files.
func Diff(a, b *File) (*DiffResult, error) { return diff.Diff(a, b) }

// DiffFiltered structurally compares two files under a type/field filter.
func DiffFiltered(a, b *File, filter *DiffFilter) (*DiffResult, error) {
	return diff.DiffFiltered(a, b, filter)
}

// Merge pipeline.
type (
	MergeInput    = merge.Input
	MergeConfig   = merge.Config
	MergeOutput   = merge.Output
	MergeMetadata = merge.Metadata
	MergeWarning  = merge.Warning
)

// Merge combines multiple files into one, resolving node identity through
// identifier predicates and same_as edges.
func Merge(inputs []MergeInput, cfg MergeConfig) (*MergeOutput, error) {
	return merge.Merge(inputs, cfg)
}

// DefaultMergeConfig returns the spec defaults.
func DefaultMergeConfig() MergeConfig { return merge.DefaultConfig() }

// Redaction engine.

// Redact rewrites a file for release at targetScope, replacing unretained
// nodes with boundary_ref nodes and stripping over-sensitive identifiers.
func Redact(f *File, targetScope DisclosureScope, retain map[NodeID]bool) *File {
	return redact.Redact(f, targetScope, retain)
}

// Identity predicates.

// IdentifiersMatch reports whether two identifier records denote the same
// identifier for merge and diff purposes.
func IdentifiersMatch(a, b *Identifier) bool { return identity.IdentifiersMatch(a, b) }

// TemporalCompatible reports whether two identifiers' validity intervals
// overlap.
func TemporalCompatible(a, b *Identifier) bool { return identity.TemporalCompatible(a, b) }

package types

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// File is one parsed OMTS snapshot. Files are pure values: every
// transformation in this module returns a new File and leaves its input
// untouched.
type File struct {
	Version             SemVer
	SnapshotDate        CalendarDate
	FileSalt            FileSalt
	DisclosureScope     *DisclosureScope
	PreviousSnapshotRef *string
	SnapshotSequence    *uint64
	ReportingEntity     *NodeID
	Nodes               []Node
	Edges               []Edge
	Extra               ExtraMap
}

var fileKnownFields = []string{
	"omts_version", "snapshot_date", "file_salt", "disclosure_scope",
	"previous_snapshot_ref", "snapshot_sequence", "reporting_entity",
	"nodes", "edges",
}

// MarshalJSON emits the header fields in a fixed order, nodes, edges, then
// unknown header fields in sorted key order.
func (f File) MarshalJSON() ([]byte, error) {
	w := newObjectWriter()
	w.field("omts_version", string(f.Version))
	w.field("snapshot_date", string(f.SnapshotDate))
	w.field("file_salt", string(f.FileSalt))
	if f.DisclosureScope != nil {
		w.field("disclosure_scope", string(*f.DisclosureScope))
	}
	writeOptString(w, "previous_snapshot_ref", f.PreviousSnapshotRef)
	if f.SnapshotSequence != nil {
		w.field("snapshot_sequence", *f.SnapshotSequence)
	}
	if f.ReportingEntity != nil {
		w.field("reporting_entity", string(*f.ReportingEntity))
	}
	nodes := f.Nodes
	if nodes == nil {
		nodes = []Node{}
	}
	edges := f.Edges
	if edges == nil {
		edges = []Edge{}
	}
	w.field("nodes", nodes)
	w.field("edges", edges)
	w.extras(f.Extra)
	return w.finish(), nil
}

// UnmarshalJSON validates the header newtypes and captures unknown header
// fields into Extra.
func (f *File) UnmarshalJSON(data []byte) error {
	obj, err := decodeObject(data)
	if err != nil {
		return err
	}
	*f = File{}

	var rawVersion string
	if raw, ok := obj["omts_version"]; ok {
		if err := json.Unmarshal(raw, &rawVersion); err != nil {
			return fmt.Errorf("omts_version: %w", err)
		}
	}
	version, err := NewSemVer(rawVersion)
	if err != nil {
		return fmt.Errorf("omts_version: %w", err)
	}
	f.Version = version

	var rawDate string
	if raw, ok := obj["snapshot_date"]; ok {
		if err := json.Unmarshal(raw, &rawDate); err != nil {
			return fmt.Errorf("snapshot_date: %w", err)
		}
	}
	date, err := NewCalendarDate(rawDate)
	if err != nil {
		return fmt.Errorf("snapshot_date: %w", err)
	}
	f.SnapshotDate = date

	var rawSalt string
	if raw, ok := obj["file_salt"]; ok {
		if err := json.Unmarshal(raw, &rawSalt); err != nil {
			return fmt.Errorf("file_salt: %w", err)
		}
	}
	salt, err := NewFileSalt(rawSalt)
	if err != nil {
		return fmt.Errorf("file_salt: %w", err)
	}
	f.FileSalt = salt

	if raw, ok := obj["disclosure_scope"]; ok && !isJSONNull(raw) {
		var s DisclosureScope
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("disclosure_scope: %w", err)
		}
		if !s.Valid() {
			return fmt.Errorf("disclosure_scope %q is not one of internal, partner, public", s)
		}
		f.DisclosureScope = &s
	}
	if raw, ok := obj["previous_snapshot_ref"]; ok && !isJSONNull(raw) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("previous_snapshot_ref: %w", err)
		}
		f.PreviousSnapshotRef = &s
	}
	if raw, ok := obj["snapshot_sequence"]; ok && !isJSONNull(raw) {
		var seq uint64
		if err := json.Unmarshal(raw, &seq); err != nil {
			return fmt.Errorf("snapshot_sequence must be a non-negative integer: %w", err)
		}
		f.SnapshotSequence = &seq
	}
	if raw, ok := obj["reporting_entity"]; ok && !isJSONNull(raw) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("reporting_entity: %w", err)
		}
		re, err := NewNodeID(s)
		if err != nil {
			return fmt.Errorf("reporting_entity: %w", err)
		}
		f.ReportingEntity = &re
	}

	if raw, ok := obj["nodes"]; ok && !isJSONNull(raw) {
		if err := json.Unmarshal(raw, &f.Nodes); err != nil {
			return fmt.Errorf("nodes: %w", err)
		}
	}
	if raw, ok := obj["edges"]; ok && !isJSONNull(raw) {
		if err := json.Unmarshal(raw, &f.Edges); err != nil {
			return fmt.Errorf("edges: %w", err)
		}
	}

	for _, field := range fileKnownFields {
		delete(obj, field)
	}
	if len(obj) > 0 {
		f.Extra = ExtraMap(obj)
	}
	return nil
}

// Clone returns a deep copy of the file.
func (f File) Clone() File {
	out := f
	if f.DisclosureScope != nil {
		s := *f.DisclosureScope
		out.DisclosureScope = &s
	}
	out.PreviousSnapshotRef = clonePtr(f.PreviousSnapshotRef)
	out.SnapshotSequence = clonePtr(f.SnapshotSequence)
	out.ReportingEntity = clonePtr(f.ReportingEntity)
	if f.Nodes != nil {
		out.Nodes = make([]Node, len(f.Nodes))
		for i, n := range f.Nodes {
			out.Nodes[i] = n.Clone()
		}
	}
	if f.Edges != nil {
		out.Edges = make([]Edge, len(f.Edges))
		for i, e := range f.Edges {
			out.Edges[i] = e.Clone()
		}
	}
	out.Extra = f.Extra.Clone()
	return out
}

// NodeByID returns the first node with the given id, or nil.
func (f *File) NodeByID(id NodeID) *Node {
	for i := range f.Nodes {
		if f.Nodes[i].ID == id {
			return &f.Nodes[i]
		}
	}
	return nil
}

// GenerateFileSalt draws 32 bytes from the platform CSPRNG and hex-encodes
// them.
func GenerateFileSalt() (FileSalt, error) {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return FileSalt(hex.EncodeToString(buf[:])), nil
}

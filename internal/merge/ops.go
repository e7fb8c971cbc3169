package merge

import (
	"encoding/json"
	"sort"

	"github.com/BayFX/omts/internal/types"
)

// ScalarInput is one source's value for a property: a nil Raw means the
// source does not set the field.
type ScalarInput struct {
	Raw    json.RawMessage
	Source string
}

// MergeScalars folds N optional values into one. When every present value is
// JSON-equal (or none is present) the common value is agreed and returned;
// otherwise the field conflicts and the per-source entries come back sorted
// by (source_file, value) with exact duplicates removed.
func MergeScalars(inputs []ScalarInput) (agreed json.RawMessage, conflicts []ConflictEntry) {
	var present []ScalarInput
	for _, in := range inputs {
		if in.Raw != nil {
			present = append(present, in)
		}
	}
	if len(present) == 0 {
		return nil, nil
	}

	first := canonicalValue(present[0].Raw)
	allEqual := true
	for _, in := range present[1:] {
		if canonicalValue(in.Raw) != first {
			allEqual = false
			break
		}
	}
	if allEqual {
		return present[0].Raw, nil
	}

	entries := make([]ConflictEntry, 0, len(present))
	for _, in := range present {
		entries = append(entries, ConflictEntry{Value: in.Raw, SourceFile: in.Source})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].SourceFile != entries[j].SourceFile {
			return entries[i].SourceFile < entries[j].SourceFile
		}
		return canonicalValue(entries[i].Value) < canonicalValue(entries[j].Value)
	})
	deduped := entries[:0]
	for _, e := range entries {
		if len(deduped) > 0 {
			last := deduped[len(deduped)-1]
			if last.SourceFile == e.SourceFile && canonicalValue(last.Value) == canonicalValue(e.Value) {
				continue
			}
		}
		deduped = append(deduped, e)
	}
	return nil, deduped
}

// canonicalValue reduces a raw JSON value to a comparison string that is
// stable across whitespace and map-key order.
func canonicalValue(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return string(raw)
	}
	return string(out)
}

// MergeIdentifiers unions identifier sequences, deduplicating by canonical
// string (first occurrence wins) and sorting ascending by canonical string.
func MergeIdentifiers(inputs [][]types.Identifier) []types.Identifier {
	seen := make(map[string]bool)
	type keyed struct {
		key string
		id  types.Identifier
	}
	var collected []keyed
	for _, ids := range inputs {
		for i := range ids {
			key := types.CanonicalKey(&ids[i])
			if seen[key] {
				continue
			}
			seen[key] = true
			collected = append(collected, keyed{key: key, id: ids[i].Clone()})
		}
	}
	sort.SliceStable(collected, func(i, j int) bool { return collected[i].key < collected[j].key })
	if collected == nil {
		return nil
	}
	out := make([]types.Identifier, len(collected))
	for i, k := range collected {
		out[i] = k.id
	}
	return out
}

// MergeLabels unions label sequences, deduplicating by (key, value) and
// sorting by key, then value with absent values before present ones.
func MergeLabels(inputs [][]types.Label) []types.Label {
	type labelKey struct {
		key      string
		hasValue bool
		value    string
	}
	seen := make(map[labelKey]bool)
	var out []types.Label
	for _, labels := range inputs {
		for i := range labels {
			lk := labelKey{key: labels[i].Key}
			if labels[i].Value != nil {
				lk.hasValue = true
				lk.value = *labels[i].Value
			}
			if seen[lk] {
				continue
			}
			seen[lk] = true
			out = append(out, labels[i].Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Key != out[j].Key {
			return out[i].Key < out[j].Key
		}
		iv, jv := out[i].Value, out[j].Value
		switch {
		case iv == nil && jv == nil:
			return false
		case iv == nil:
			return true
		case jv == nil:
			return false
		}
		return *iv < *jv
	})
	return out
}

// mergeExtraMaps unions sub-fields of N extension maps under the scalar
// conflict policy. Conflicting keys are omitted and recorded with the given
// field prefix ("" for top-level extension fields).
func mergeExtraMaps(maps []ScalarMapInput, prefix string) (types.ExtraMap, []Conflict) {
	keys := make(map[string]bool)
	for _, m := range maps {
		for k := range m.Map {
			keys[k] = true
		}
	}
	if len(keys) == 0 {
		return nil, nil
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	out := make(types.ExtraMap)
	var conflicts []Conflict
	for _, k := range sorted {
		var inputs []ScalarInput
		for _, m := range maps {
			if raw, ok := m.Map[k]; ok {
				inputs = append(inputs, ScalarInput{Raw: raw, Source: m.Source})
			} else {
				inputs = append(inputs, ScalarInput{Source: m.Source})
			}
		}
		agreed, entries := MergeScalars(inputs)
		if entries != nil {
			conflicts = append(conflicts, Conflict{Field: prefix + k, Values: entries})
			continue
		}
		if agreed != nil {
			out[k] = agreed
		}
	}
	if len(out) == 0 {
		out = nil
	}
	return out, conflicts
}

// ScalarMapInput is one source's extension map.
type ScalarMapInput struct {
	Map    types.ExtraMap
	Source string
}

// sortConflicts orders conflict records by field for deterministic output.
func sortConflicts(conflicts []Conflict) {
	sort.SliceStable(conflicts, func(i, j int) bool { return conflicts[i].Field < conflicts[j].Field })
}

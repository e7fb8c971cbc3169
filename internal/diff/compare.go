package diff

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/BayFX/omts/internal/types"
)

// numericEpsilon bounds float comparison so re-serialised numbers do not
// read as changes.
const numericEpsilon = 1e-9

// normalizeDate zero-pads month and day of a dash-separated date string so
// "2026-2-9" compares equal to "2026-02-09". Non-date-shaped strings pass
// through unchanged.
func normalizeDate(s string) string {
	parts := strings.SplitN(s, "-", 3)
	if len(parts) != 3 {
		return s
	}
	pad := func(p string) string {
		n, err := strconv.Atoi(p)
		if err != nil {
			return p
		}
		return fmt.Sprintf("%02d", n)
	}
	return parts[0] + "-" + pad(parts[1]) + "-" + pad(parts[2])
}

// valuesEqual compares two raw JSON values semantically: numbers within
// epsilon, date-shaped strings after normalization, everything else
// structurally.
func valuesEqual(a, b json.RawMessage) bool {
	var av, bv any
	if json.Unmarshal(a, &av) != nil || json.Unmarshal(b, &bv) != nil {
		return string(a) == string(b)
	}
	return decodedEqual(av, bv)
}

func decodedEqual(av, bv any) bool {
	switch x := av.(type) {
	case float64:
		y, ok := bv.(float64)
		if !ok {
			return false
		}
		return math.Abs(x-y) < numericEpsilon
	case string:
		y, ok := bv.(string)
		if !ok {
			return false
		}
		if strings.Contains(x, "-") && strings.Contains(y, "-") {
			return normalizeDate(x) == normalizeDate(y)
		}
		return x == y
	}
	return cmp.Equal(av, bv)
}

// maybeChange appends a PropertyChange when the old and new values differ
// under semantic equality. Field names in ignore are skipped.
func maybeChange(field string, oldVal, newVal json.RawMessage, ignore map[string]bool, out *[]PropertyChange) {
	if ignore[field] {
		return
	}
	equal := false
	switch {
	case oldVal == nil && newVal == nil:
		equal = true
	case oldVal != nil && newVal != nil:
		equal = valuesEqual(oldVal, newVal)
	}
	if !equal {
		*out = append(*out, PropertyChange{Field: field, Old: oldVal, New: newVal})
	}
}

// scalarChanges diffs two field → raw value maps over the given field order,
// then any extension keys present on either side in sorted order.
func scalarChanges(fields []string, a, b map[string]json.RawMessage, aExtra, bExtra types.ExtraMap, ignore map[string]bool) []PropertyChange {
	var out []PropertyChange
	for _, f := range fields {
		maybeChange(f, a[f], b[f], ignore, &out)
	}

	extraKeys := make(map[string]bool, len(aExtra)+len(bExtra))
	for k := range aExtra {
		extraKeys[k] = true
	}
	for k := range bExtra {
		extraKeys[k] = true
	}
	sorted := make([]string, 0, len(extraKeys))
	for k := range extraKeys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)
	for _, k := range sorted {
		maybeChange(k, aExtra[k], bExtra[k], ignore, &out)
	}
	return out
}

// identifierFieldValues flattens the comparable fields of an identifier for
// field-level change reporting.
func identifierFieldValues(id *types.Identifier) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage)
	put := func(field string, v any) {
		raw, err := json.Marshal(v)
		if err == nil {
			out[field] = raw
		}
	}
	if id.Authority != nil {
		put("authority", *id.Authority)
	}
	if id.ValidFrom != nil {
		put("valid_from", string(*id.ValidFrom))
	}
	if id.ValidTo != nil {
		if id.ValidTo.Null {
			out["valid_to"] = json.RawMessage("null")
		} else {
			put("valid_to", string(id.ValidTo.Date))
		}
	}
	if id.Sensitivity != nil {
		put("sensitivity", string(*id.Sensitivity))
	}
	if id.VerificationStatus != nil {
		put("verification_status", string(*id.VerificationStatus))
	}
	if id.VerificationDate != nil {
		put("verification_date", string(*id.VerificationDate))
	}
	return out
}

var identifierDiffFields = []string{
	"authority", "valid_from", "valid_to", "sensitivity",
	"verification_status", "verification_date",
}

// diffIdentifierSets computes the set diff of two identifier sequences keyed
// by canonical string, with field-level changes on matched entries.
func diffIdentifierSets(a, b []types.Identifier) IdentifierSetDiff {
	var out IdentifierSetDiff

	aByKey := make(map[string]*types.Identifier, len(a))
	aOrder := make([]string, 0, len(a))
	for i := range a {
		key := types.CanonicalKey(&a[i])
		if _, dup := aByKey[key]; !dup {
			aByKey[key] = &a[i]
			aOrder = append(aOrder, key)
		}
	}
	bByKey := make(map[string]*types.Identifier, len(b))
	bOrder := make([]string, 0, len(b))
	for i := range b {
		key := types.CanonicalKey(&b[i])
		if _, dup := bByKey[key]; !dup {
			bByKey[key] = &b[i]
			bOrder = append(bOrder, key)
		}
	}

	for _, key := range aOrder {
		if _, ok := bByKey[key]; !ok {
			out.Removed = append(out.Removed, aByKey[key].Clone())
		}
	}
	for _, key := range bOrder {
		old, ok := aByKey[key]
		if !ok {
			out.Added = append(out.Added, bByKey[key].Clone())
			continue
		}
		oldFields := identifierFieldValues(old)
		newFields := identifierFieldValues(bByKey[key])
		var changes []IdentifierFieldChange
		for _, f := range identifierDiffFields {
			ov, nv := oldFields[f], newFields[f]
			equal := (ov == nil && nv == nil) || (ov != nil && nv != nil && valuesEqual(ov, nv))
			if !equal {
				changes = append(changes, IdentifierFieldChange{Field: f, Old: ov, New: nv})
			}
		}
		if len(changes) > 0 {
			out.Modified = append(out.Modified, IdentifierChange{Canonical: key, Changes: changes})
		}
	}
	return out
}

// diffLabelSets computes the set diff of two label sequences keyed by
// (key, value).
func diffLabelSets(a, b []types.Label) LabelSetDiff {
	key := func(l *types.Label) string {
		if l.Value == nil {
			return l.Key + "\x00"
		}
		return l.Key + "\x00" + *l.Value
	}
	var out LabelSetDiff
	aKeys := make(map[string]bool, len(a))
	for i := range a {
		aKeys[key(&a[i])] = true
	}
	bKeys := make(map[string]bool, len(b))
	for i := range b {
		bKeys[key(&b[i])] = true
	}
	for i := range a {
		if !bKeys[key(&a[i])] {
			out.Removed = append(out.Removed, a[i].Clone())
		}
	}
	for i := range b {
		if !aKeys[key(&b[i])] {
			out.Added = append(out.Added, b[i].Clone())
		}
	}
	return out
}

package types

import "strings"

// CanonicalKey builds the canonical identifier string used for deduplication,
// indexing, and sorting: "{scheme}:{value}" with scheme lowercased, value
// case-folded per the scheme rules, and "@{authority}" appended lowercased
// when authority is present.
//
// Value case-folding: lei, gln and duns values are always lowercased (those
// schemes are case-insensitive). Other schemes lowercase only pure-digit or
// all-uppercase values, which normalises the common transcription variants
// without destroying case-significant values.
func CanonicalKey(id *Identifier) string {
	scheme := strings.ToLower(id.Scheme)
	value := strings.TrimSpace(id.Value)

	switch scheme {
	case SchemeLEI, SchemeGLN, SchemeDUNS:
		value = strings.ToLower(value)
	default:
		if isAllDigits(value) || isAllUpper(value) {
			value = strings.ToLower(value)
		}
	}

	var b strings.Builder
	b.Grow(len(scheme) + 1 + len(value))
	b.WriteString(scheme)
	b.WriteByte(':')
	b.WriteString(value)
	if id.Authority != nil {
		b.WriteByte('@')
		b.WriteString(strings.ToLower(*id.Authority))
	}
	return b.String()
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// isAllUpper reports whether s contains at least one ASCII letter and no
// lowercase ASCII letters.
func isAllUpper(s string) bool {
	hasLetter := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			return false
		}
		if c >= 'A' && c <= 'Z' {
			hasLetter = true
		}
	}
	return hasLetter
}

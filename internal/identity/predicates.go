// Package identity holds the pure predicates that decide when two
// identifier records, or two edges, denote the same real-world thing. The
// merge and diff engines build their union-find passes on these.
package identity

import (
	"strings"

	"github.com/BayFX/omts/internal/types"
)

// IdentifiersMatch reports whether two identifier records should be treated
// as the same identifier. The predicate is symmetric: every comparison it
// performs (string equality, case-insensitive equality, interval overlap)
// is symmetric.
//
// Rules, applied in order:
//  1. internal-scheme identifiers never match anything — they are private to
//     a single reporting entity;
//  2. schemes must be equal;
//  3. values must be equal after trimming surrounding whitespace;
//  4. if either record carries authority, both must, case-insensitively
//     equal;
//  5. the validity intervals must be temporally compatible.
func IdentifiersMatch(a, b *types.Identifier) bool {
	if a.Scheme == types.SchemeInternal || b.Scheme == types.SchemeInternal {
		return false
	}
	if a.Scheme != b.Scheme {
		return false
	}
	if strings.TrimSpace(a.Value) != strings.TrimSpace(b.Value) {
		return false
	}
	if a.Authority != nil || b.Authority != nil {
		if a.Authority == nil || b.Authority == nil {
			return false
		}
		if !strings.EqualFold(*a.Authority, *b.Authority) {
			return false
		}
	}
	return TemporalCompatible(a, b)
}

// TemporalCompatible reports whether two identifiers' validity intervals
// overlap. A record with no temporal fields at all is compatible with
// anything. Disjointness requires a concrete valid_to on one side strictly
// before a concrete valid_from on the other; an explicit no-expiry null
// never causes disjointness.
func TemporalCompatible(a, b *types.Identifier) bool {
	aHasTemporal := a.ValidFrom != nil || a.ValidTo != nil
	bHasTemporal := b.ValidFrom != nil || b.ValidTo != nil
	if !aHasTemporal || !bHasTemporal {
		return true
	}
	if intervalsDisjoint(a.ValidTo, b.ValidFrom) {
		return false
	}
	if intervalsDisjoint(b.ValidTo, a.ValidFrom) {
		return false
	}
	return true
}

// intervalsDisjoint reports whether an interval ending at end lies strictly
// before one starting at start. Absent or explicitly-null ends are
// open-ended; an absent start is open-ended at the left.
func intervalsDisjoint(end *types.NullableDate, start *types.CalendarDate) bool {
	if start == nil {
		return false
	}
	if end == nil || end.Null {
		return false
	}
	return end.Date.Before(*start)
}

// IsLEIAnnulled reports whether an lei identifier carries GLEIF ANNULLED
// status in its extension map under entity_status. The comparison is
// case-sensitive: GLEIF status codes are all-caps.
func IsLEIAnnulled(id *types.Identifier) bool {
	if id.Scheme != types.SchemeLEI {
		return false
	}
	status, ok := id.Extra.GetString("entity_status")
	return ok && status == "ANNULLED"
}

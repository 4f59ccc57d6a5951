package stage

import "strings"

// Match reports whether two labels name the same stage.
//
// Both labels are resolved; equal canonical names match, then shared
// categories, then bidirectional substring containment. An empty label
// never matches.
func Match(a, b string) bool {
	return MatchKeys(Resolve(a), Resolve(b))
}

// MatchKeys is Match over already-resolved keys.
func MatchKeys(x, y Key) bool {
	if x.Empty() || y.Empty() {
		return false
	}
	if x.Name == y.Name {
		return true
	}
	if x.Categories.Overlaps(y.Categories) {
		return true
	}
	return strings.Contains(x.Name, y.Name) || strings.Contains(y.Name, x.Name)
}

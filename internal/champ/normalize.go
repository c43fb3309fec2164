package champ

import "strings"

// Normalize lower-cases name and drops every character outside a-z, so
// "Vel'Koz", "vel koz" and "velkoz" all map to the same key.
func Normalize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeAll normalizes every entry of names, dropping entries that normalize to ""
func NormalizeAll(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if key := Normalize(n); key != "" {
			out = append(out, key)
		}
	}
	return out
}

package baseline

import (
	"strings"
)

// keySep joins atoms into store keys. U+001F (unit separator) never occurs in
// text corpora, so distinct atom sequences never collide.
const keySep = "\x1f"

// Construction is an ordered sequence of atoms. In character mode every atom
// is a single rune; in token mode atoms are arbitrary strings.
type Construction []string

// Chars splits s into single-rune atoms.
func Chars(s string) Construction {
	c := make(Construction, 0, len(s))
	for _, r := range s {
		c = append(c, string(r))
	}
	return c
}

// Key returns the lookup key of the construction.
func (c Construction) Key() string {
	return strings.Join(c, keySep)
}

// String joins the atoms without a separator.
func (c Construction) String() string {
	return strings.Join(c, "")
}

// Join joins the atoms with sep.
func (c Construction) Join(sep string) string {
	return strings.Join(c, sep)
}

// Equal reports whether both constructions hold the same atoms.
func (c Construction) Equal(o Construction) bool {
	if len(c) != len(o) {
		return false
	}
	for i := range c {
		if c[i] != o[i] {
			return false
		}
	}
	return true
}

// FromKey rebuilds a construction from a key produced by Key.
func FromKey(key string) Construction {
	if key == "" {
		return Construction{}
	}
	return Construction(strings.Split(key, keySep))
}

// Concat concatenates parts into one construction.
func Concat(parts []Construction) Construction {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make(Construction, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// splitLocsOf returns the internal split offsets of a segmentation.
func splitLocsOf(parts []Construction) []int {
	if len(parts) < 2 {
		return nil
	}
	locs := make([]int, 0, len(parts)-1)
	i := 0
	for _, p := range parts[:len(parts)-1] {
		i += len(p)
		locs = append(locs, i)
	}
	return locs
}

// splitAt cuts c at the given offsets.
func splitAt(c Construction, locs []int) []Construction {
	parts := make([]Construction, 0, len(locs)+1)
	start := 0
	for _, loc := range locs {
		parts = append(parts, c[start:loc])
		start = loc
	}
	return append(parts, c[start:])
}

// JoinAll renders a segmentation, joining atoms with atomSep and
// constructions with sep.
func JoinAll(parts []Construction, atomSep, sep string) string {
	strs := make([]string, len(parts))
	for i, p := range parts {
		strs[i] = p.Join(atomSep)
	}
	return strings.Join(strs, sep)
}

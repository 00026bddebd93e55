// Package itemset defines the canonical itemset representation shared by the
// mining engine, the ranker, and the report writers.
package itemset

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
)

// Itemset is a strictly ascending, duplicate-free sequence of item ids.
// Construct with Canonical unless the input is already known to be canonical.
type Itemset []uint32

// Canonical returns a sorted, deduplicated copy of ids.
func Canonical(ids ...uint32) Itemset {
	out := make(Itemset, len(ids))
	copy(out, ids)
	slices.Sort(out)
	return slices.Compact(out)
}

// Valid reports whether s is strictly ascending.
func (s Itemset) Valid() bool {
	for i := 1; i < len(s); i++ {
		if s[i] <= s[i-1] {
			return false
		}
	}
	return true
}

// Len returns the number of items.
func (s Itemset) Len() int {
	return len(s)
}

// Last returns the largest item id. It panics on an empty itemset.
func (s Itemset) Last() uint32 {
	return s[len(s)-1]
}

// With returns a new itemset extending s by x. x must be greater than s.Last().
func (s Itemset) With(x uint32) Itemset {
	out := make(Itemset, len(s), len(s)+1)
	copy(out, s)
	return append(out, x)
}

// Contains reports whether item is a member of s.
func (s Itemset) Contains(item uint32) bool {
	_, found := slices.BinarySearch(s, item)
	return found
}

// Compare orders itemsets lexicographically by item id. A proper prefix
// sorts before any of its extensions.
func Compare(a, b Itemset) int {
	n := min(len(a), len(b))
	for i := range n {
		if c := cmp.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a), len(b))
}

// Equal reports whether a and b hold the same ids.
func Equal(a, b Itemset) bool {
	return slices.Equal(a, b)
}

// Key returns a string usable as a map key.
func (s Itemset) Key() string {
	return s.String()
}

// String renders the ids separated by single spaces.
func (s Itemset) String() string {
	var sb strings.Builder
	for i, id := range s {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strconv.FormatUint(uint64(id), 10))
	}
	return sb.String()
}

// Parse reads a space separated list of ids and returns it in canonical form.
func Parse(s string) (Itemset, error) {
	fields := strings.Fields(s)
	ids := make([]uint32, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return nil, err
		}
		ids = append(ids, uint32(v))
	}
	return Canonical(ids...), nil
}

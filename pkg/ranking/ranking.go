// Package ranking orders mined itemsets for output.
//
// The order is utility descending at cent precision, then ascending
// canonical itemset. Utilities that print the same at two decimals tie, so
// float noise from summation order never decides the output order.
package ranking

import (
	"cmp"
	"math"
	"slices"

	"github.com/eunmann/huimine/pkg/itemset"
)

// Entry is one discovered itemset with its exact utility and support.
type Entry struct {
	Items   itemset.Itemset
	Utility float64
	Support int
}

// Compare orders a before b when a ranks higher.
func Compare(a, b Entry) int {
	if c := cmp.Compare(cents(b.Utility), cents(a.Utility)); c != 0 {
		return c
	}
	return itemset.Compare(a.Items, b.Items)
}

// cents rounds a utility to the two decimals result files carry.
func cents(u float64) float64 {
	return math.Round(u * 100)
}

// Rank returns a sorted copy of entries.
func Rank(entries []Entry) []Entry {
	out := slices.Clone(entries)
	slices.SortFunc(out, Compare)
	return out
}

// IsRanked reports whether entries are already in rank order.
func IsRanked(entries []Entry) bool {
	return slices.IsSortedFunc(entries, Compare)
}

// TopN returns the first n entries of an already ranked slice.
func TopN(ranked []Entry, n int) []Entry {
	if n < 0 || n >= len(ranked) {
		return ranked
	}
	return ranked[:n]
}

// CountBySize returns how many entries exist for each itemset size.
func CountBySize(entries []Entry) map[int]int {
	counts := make(map[int]int)
	for _, e := range entries {
		counts[e.Items.Len()]++
	}
	return counts
}

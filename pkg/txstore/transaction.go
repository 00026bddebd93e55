// Package txstore parses and holds the immutable transaction corpus.
//
// Each input line is one transaction made of whitespace separated
// itemId:quantity:profit tokens. Transaction utility (TU) is computed once
// at parse time and never changes afterwards.
package txstore

import (
	"cmp"
	"slices"
)

// Entry is one item recorded in a transaction.
type Entry struct {
	Item     uint32
	Quantity int64
	Profit   float64
}

// Utility returns quantity × unit profit.
func (e Entry) Utility() float64 {
	return float64(e.Quantity) * e.Profit
}

// Transaction is an immutable parsed transaction.
type Transaction struct {
	// ID is the ordinal position among kept transactions.
	ID int32
	// Items is sorted by Item with unique ids.
	Items []Entry
	// TU is the sum of Utility over Items.
	TU float64
}

// NewTransaction builds a transaction from entries in any order. When an
// item id repeats, the later entry wins. It returns the number of entries
// that were replaced by a later duplicate.
func NewTransaction(id int32, entries []Entry) (Transaction, int) {
	items := make([]Entry, len(entries))
	copy(items, entries)

	// Stable so that among equal ids the last input entry stays last.
	slices.SortStableFunc(items, func(a, b Entry) int {
		return cmp.Compare(a.Item, b.Item)
	})

	out := items[:0]
	dups := 0
	for _, e := range items {
		if n := len(out); n > 0 && out[n-1].Item == e.Item {
			out[n-1] = e
			dups++
			continue
		}
		out = append(out, e)
	}

	tx := Transaction{ID: id, Items: out}
	for _, e := range out {
		tx.TU += e.Utility()
	}
	return tx, dups
}

// Find returns the entry for item, if present.
func (t *Transaction) Find(item uint32) (Entry, bool) {
	i, found := slices.BinarySearchFunc(t.Items, item, func(e Entry, target uint32) int {
		return cmp.Compare(e.Item, target)
	})
	if !found {
		return Entry{}, false
	}
	return t.Items[i], true
}

// Contains reports whether item appears in the transaction.
func (t *Transaction) Contains(item uint32) bool {
	_, ok := t.Find(item)
	return ok
}

// ItemUtility returns quantity × profit for item, or 0 if absent.
func (t *Transaction) ItemUtility(item uint32) float64 {
	e, ok := t.Find(item)
	if !ok {
		return 0
	}
	return e.Utility()
}

// Package itemindex maps promising items to the transactions that contain
// them. The index is built once per mining run, restricted to the caller's
// candidate items, and is read-only afterwards.
package itemindex

import (
	"fmt"
	"slices"

	"github.com/eunmann/huimine/pkg/txstore"
	"github.com/relab/bbhash"
)

// Index is an inverted index from item id to ascending transaction ids.
//
// Item ids are placed into dense slots by a minimal perfect hash over the
// candidate set. Every lookup verifies the slot's item id, since the hash
// maps unknown keys to arbitrary slots.
type Index struct {
	mph   *bbhash.BBHash2
	slots []uint32
	tids  [][]int32
	items []uint32
}

// Build indexes the transactions of store for the given candidate items.
// Duplicate candidates are ignored. The result is a pure function of its
// inputs.
func Build(store *txstore.Store, candidates []uint32) (*Index, error) {
	items := slices.Clone(candidates)
	slices.Sort(items)
	items = slices.Compact(items)

	idx := &Index{items: items}
	if len(items) == 0 {
		return idx, nil
	}

	keys := make([]uint64, len(items))
	for i, id := range items {
		keys[i] = mix(id)
	}
	mph, err := bbhash.New(keys, bbhash.Gamma(2.0))
	if err != nil {
		return nil, fmt.Errorf("build item MPHF: %w", err)
	}
	idx.mph = mph

	// BBHash returns 1-indexed values, so slot = Find(key) - 1.
	idx.slots = make([]uint32, len(items))
	idx.tids = make([][]int32, len(items))
	for _, id := range items {
		h := mph.Find(mix(id))
		if h == 0 || h > uint64(len(items)) {
			return nil, fmt.Errorf("MPHF lookup failed for item %d", id)
		}
		idx.slots[h-1] = id
	}

	for _, tx := range store.Transactions() {
		for _, e := range tx.Items {
			if slot, ok := idx.slot(e.Item); ok {
				idx.tids[slot] = append(idx.tids[slot], tx.ID)
			}
		}
	}

	return idx, nil
}

func (idx *Index) slot(item uint32) (int, bool) {
	if idx.mph == nil {
		return 0, false
	}
	h := idx.mph.Find(mix(item))
	if h == 0 || h > uint64(len(idx.slots)) {
		return 0, false
	}
	slot := int(h - 1)
	if idx.slots[slot] != item {
		return 0, false
	}
	return slot, true
}

// Tids returns the ascending ids of transactions containing item, or nil
// if item is not indexed. The returned slice must not be modified.
func (idx *Index) Tids(item uint32) []int32 {
	slot, ok := idx.slot(item)
	if !ok {
		return nil
	}
	return idx.tids[slot]
}

// Items returns the indexed item ids in ascending order.
func (idx *Index) Items() []uint32 {
	return idx.items
}

// Len returns the number of indexed items.
func (idx *Index) Len() int {
	return len(idx.items)
}

// Postings returns the total number of (item, transaction) pairs stored.
func (idx *Index) Postings() int64 {
	var n int64
	for _, t := range idx.tids {
		n += int64(len(t))
	}
	return n
}

// mix spreads small sequential item ids over the 64-bit key space
// (splitmix64 finalizer).
func mix(id uint32) uint64 {
	z := uint64(id) + 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

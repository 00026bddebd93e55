package mining

import (
	"context"
	"slices"

	"github.com/eunmann/huimine/pkg/txstore"
	"golang.org/x/sync/errgroup"
)

// ItemStats holds the Phase 1 aggregates of one item.
type ItemStats struct {
	Item    uint32
	TWU     float64
	Utility float64
	Support int
}

const ctxCheckEvery = 1024

// partitionSize is the number of transactions summed per partition. It is
// fixed so that float sums group the same way for every worker count.
const partitionSize = 4096

// aggregate computes per-item TWU, utility and support over all
// transactions. Transactions are split into fixed-size contiguous
// partitions, processed by at most workers goroutines, and the partial sums
// are merged in partition order. The result is identical for any worker
// count. The returned slice is sorted by item id.
func aggregate(ctx context.Context, store *txstore.Store, workers int) ([]ItemStats, error) {
	return aggregatePartitioned(ctx, store, workers, partitionSize)
}

func aggregatePartitioned(ctx context.Context, store *txstore.Store, workers, size int) ([]ItemStats, error) {
	txs := store.Transactions()
	if len(txs) == 0 {
		return nil, nil
	}
	parts := (len(txs) + size - 1) / size
	partials := make([]map[uint32]*ItemStats, parts)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, workers))
	for p := range parts {
		lo := p * size
		hi := min(lo+size, len(txs))
		g.Go(func() error {
			acc := make(map[uint32]*ItemStats)
			for i, tx := range txs[lo:hi] {
				if i%ctxCheckEvery == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				for _, e := range tx.Items {
					s, ok := acc[e.Item]
					if !ok {
						s = &ItemStats{Item: e.Item}
						acc[e.Item] = s
					}
					s.TWU += tx.TU
					s.Utility += e.Utility()
					s.Support++
				}
			}
			partials[p] = acc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := partials[0]
	for _, part := range partials[1:] {
		for item, s := range part {
			m, ok := merged[item]
			if !ok {
				merged[item] = s
				continue
			}
			m.TWU += s.TWU
			m.Utility += s.Utility
			m.Support += s.Support
		}
	}

	out := make([]ItemStats, 0, len(merged))
	for _, s := range merged {
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b ItemStats) int {
		switch {
		case a.Item < b.Item:
			return -1
		case a.Item > b.Item:
			return 1
		}
		return 0
	})
	return out, nil
}

// promising returns, in ascending order, the items whose TWU reaches
// minUtility. No itemset containing any other item can be high utility.
func promising(stats []ItemStats, minUtility float64) []uint32 {
	var items []uint32
	for _, s := range stats {
		if s.TWU >= minUtility {
			items = append(items, s.Item)
		}
	}
	return items
}

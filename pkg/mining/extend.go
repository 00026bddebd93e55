package mining

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/eunmann/huimine/pkg/humanfmt"
	"github.com/eunmann/huimine/pkg/itemindex"
	"github.com/eunmann/huimine/pkg/itemset"
	"github.com/eunmann/huimine/pkg/logging"
	"github.com/eunmann/huimine/pkg/membudget"
	"github.com/eunmann/huimine/pkg/ranking"
	"github.com/eunmann/huimine/pkg/txstore"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// node is a frontier itemset together with its common transactions and
// the itemset's utility in each of them. tids and utils are parallel.
type node struct {
	items itemset.Itemset
	tids  []int32
	utils []float64
}

// nodeOverhead approximates slice headers and allocator slack per node.
const nodeOverhead = 96

func (n *node) footprint() uint64 {
	return uint64(nodeOverhead + 4*len(n.items) + 4*len(n.tids) + 8*len(n.utils))
}

// LevelStats describes one generation of the level-wise search.
type LevelStats struct {
	Generation int           `json:"generation"`
	Phase      string        `json:"phase"`
	Size       int           `json:"size"`
	Frontier   int           `json:"frontier"`
	Leaves     int64         `json:"leaves"`
	Candidates int64         `json:"candidates"`
	Empty      int64         `json:"empty"`
	Pruned     int64         `json:"pruned"`
	Verified   int64         `json:"verified"`
	Found      int           `json:"found"`
	Next       int           `json:"next_frontier"`
	NextBytes  uint64        `json:"next_frontier_bytes"`
	Elapsed    time.Duration `json:"elapsed_ns"`
}

func (ls *LevelStats) add(o LevelStats) {
	ls.Leaves += o.Leaves
	ls.Candidates += o.Candidates
	ls.Empty += o.Empty
	ls.Pruned += o.Pruned
	ls.Verified += o.Verified
}

// extender grows frontiers one item at a time. It is built after the item
// index is complete and only reads shared state.
type extender struct {
	store      *txstore.Store
	index      *itemindex.Index
	promising  []uint32
	minUtility float64
	maxSize    int
	workers    int
	budget     *membudget.Budget
}

type chunkOutput struct {
	found    []ranking.Entry
	next     []node
	reserved uint64
	stats    LevelStats
}

// seed builds the size-1 frontier from the promising items.
func (e *extender) seed() ([]node, uint64, error) {
	frontier := make([]node, 0, len(e.promising))
	var reserved uint64
	for _, item := range e.promising {
		tids := e.index.Tids(item)
		utils := make([]float64, len(tids))
		for i, tid := range tids {
			utils[i] = e.store.At(tid).ItemUtility(item)
		}
		n := node{items: itemset.Itemset{item}, tids: tids, utils: utils}
		// tids are shared with the index, only utils are new.
		size := uint64(nodeOverhead + 8*len(utils))
		if !e.budget.TryReserve(size) {
			e.budget.Release(reserved)
			return nil, 0, fmt.Errorf("%w: seeding %d items needs more than %s",
				ErrFrontierBudget, len(e.promising), humanfmt.Bytes(int64(e.budget.Total())))
		}
		reserved += size
		frontier = append(frontier, n)
	}
	return frontier, reserved, nil
}

// level extends every node of frontier (all of size k) by each promising
// item greater than its last element. It returns the high-utility
// (k+1)-itemsets and, unless k+1 reached maxSize, the next frontier: all
// candidates whose transaction-weighted bound reaches minUtility.
func (e *extender) level(ctx context.Context, log zerolog.Logger, gen int, phase string, frontier []node) ([]ranking.Entry, []node, uint64, LevelStats, error) {
	start := time.Now()
	k := frontier[0].items.Len()
	stats := LevelStats{Generation: gen, Phase: phase, Size: k + 1, Frontier: len(frontier)}
	keepNext := k+1 < e.maxSize

	chunk := max(1, len(frontier)/(e.workers*8))
	nChunks := (len(frontier) + chunk - 1) / chunk
	outputs := make([]chunkOutput, nChunks)
	progress := logging.NewProgressTracker(phase, int64(len(frontier)), log)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for c := range nChunks {
		lo := c * chunk
		hi := min(lo+chunk, len(frontier))
		g.Go(func() error {
			return e.extendChunk(gctx, frontier[lo:hi], keepNext, &outputs[c], progress)
		})
	}
	err := g.Wait()

	var reserved uint64
	for i := range outputs {
		reserved += outputs[i].reserved
	}
	if err != nil {
		e.budget.Release(reserved)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, 0, stats, ctxErr
		}
		return nil, nil, 0, stats, err
	}

	var found []ranking.Entry
	var next []node
	for i := range outputs {
		found = append(found, outputs[i].found...)
		next = append(next, outputs[i].next...)
		stats.add(outputs[i].stats)
	}
	stats.Found = len(found)
	stats.Next = len(next)
	stats.NextBytes = reserved
	stats.Elapsed = time.Since(start)
	return found, next, reserved, stats, nil
}

func (e *extender) extendChunk(ctx context.Context, nodes []node, keepNext bool, out *chunkOutput, progress *logging.ProgressTracker) error {
	var (
		pos  []int
		tids []int32
	)
	for ni := range nodes {
		n := &nodes[ni]
		first, ok := slices.BinarySearch(e.promising, n.items.Last())
		if ok {
			first++
		}
		if first >= len(e.promising) {
			// No promising item sorts after this node's last item.
			out.stats.Leaves++
			progress.RecordSkip()
			continue
		}
		for _, x := range e.promising[first:] {
			if err := ctx.Err(); err != nil {
				return err
			}
			out.stats.Candidates++

			pos, tids = pos[:0], tids[:0]
			var bound float64
			itemindex.IntersectPositions(n.tids, e.index.Tids(x), func(p int, tid int32) bool {
				pos = append(pos, p)
				tids = append(tids, tid)
				bound += e.store.At(tid).TU
				return true
			})
			if len(tids) == 0 {
				out.stats.Empty++
				continue
			}
			if bound < e.minUtility {
				out.stats.Pruned++
				continue
			}
			out.stats.Verified++

			utils := make([]float64, len(tids))
			var utility float64
			for i, tid := range tids {
				u := n.utils[pos[i]] + e.store.At(tid).ItemUtility(x)
				utils[i] = u
				utility += u
			}
			items := n.items.With(x)
			if utility >= e.minUtility {
				out.found = append(out.found, ranking.Entry{Items: items, Utility: utility, Support: len(tids)})
			}
			if !keepNext {
				continue
			}

			child := node{items: items, tids: slices.Clone(tids), utils: utils}
			size := child.footprint()
			if !e.budget.TryReserve(size) {
				return fmt.Errorf("%w: size-%d frontier needs more than %s",
					ErrFrontierBudget, items.Len(), humanfmt.Bytes(int64(e.budget.Total())))
			}
			out.reserved += size
			out.next = append(out.next, child)
		}
		progress.RecordCompletion(1)
	}
	return nil
}

func levelPhase(size int) string {
	if size == 2 {
		return "pairs"
	}
	return fmt.Sprintf("level_%d", size)
}

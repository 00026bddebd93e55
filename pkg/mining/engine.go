// Package mining finds every itemset whose utility reaches a threshold.
//
// A run aggregates per-item transaction-weighted utility (TWU), discards
// items whose TWU is below the threshold, indexes the remaining items by
// transaction and then grows itemsets level by level. A candidate is
// verified only when the summed utility of its common transactions reaches
// the threshold, and every candidate passing that bound is extended further
// whether or not its own utility qualifies. The search is exact.
package mining

import (
	"context"
	"fmt"
	"time"

	"github.com/eunmann/huimine/internal/logctx"
	"github.com/eunmann/huimine/pkg/itemindex"
	"github.com/eunmann/huimine/pkg/itemset"
	"github.com/eunmann/huimine/pkg/logging"
	"github.com/eunmann/huimine/pkg/ranking"
	"github.com/eunmann/huimine/pkg/txstore"
)

// Result is the ranked output of one run.
type Result struct {
	MinUtility float64
	MaxSize    int

	// Entries are ranked by utility descending, ties by itemset.
	Entries []ranking.Entry

	// Items holds the Phase 1 aggregates of every item, sorted by id.
	Items []ItemStats

	Stats Stats
}

// Stats summarizes the work done by a run.
type Stats struct {
	Transactions      int           `json:"transactions"`
	DistinctItems     int           `json:"distinct_items"`
	PromisingItems    int           `json:"promising_items"`
	Postings          int64         `json:"postings"`
	SingletonsFound   int           `json:"singletons_found"`
	Levels            []LevelStats  `json:"levels"`
	Found             int           `json:"found"`
	PeakFrontierBytes uint64        `json:"peak_frontier_bytes"`
	AggregateElapsed  time.Duration `json:"aggregate_elapsed_ns"`
	Elapsed           time.Duration `json:"elapsed_ns"`
}

// Lookup returns the entry for items, if it was found.
func (r *Result) Lookup(items itemset.Itemset) (ranking.Entry, bool) {
	for _, e := range r.Entries {
		if itemset.Equal(e.Items, items) {
			return e, true
		}
	}
	return ranking.Entry{}, false
}

// Run mines store with the given parameters. It keeps no state between
// calls, so runs with different thresholds may share a store concurrently.
// On cancellation it returns the context error and no partial result.
func Run(ctx context.Context, store *txstore.Store, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	workers := p.workers()
	log := logctx.FromContext(ctx)

	log.Info().
		Int("max_size", p.MaxSize).
		Int("workers", workers).
		Int("transactions", store.Len()).
		Msg("mining started")

	res := &Result{MinUtility: p.MinUtility, MaxSize: p.MaxSize}
	res.Stats.Transactions = store.Len()

	p.Mem.SetPhase("aggregate")
	aggStart := time.Now()
	items, err := aggregate(ctx, store, workers)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	prom := promising(items, p.MinUtility)

	var found []ranking.Entry
	for _, s := range items {
		if s.TWU >= p.MinUtility && s.Utility >= p.MinUtility {
			found = append(found, ranking.Entry{
				Items:   itemset.Itemset{s.Item},
				Utility: s.Utility,
				Support: s.Support,
			})
		}
	}
	res.Items = items
	res.Stats.DistinctItems = len(items)
	res.Stats.PromisingItems = len(prom)
	res.Stats.SingletonsFound = len(found)
	res.Stats.AggregateElapsed = time.Since(aggStart)

	logging.PhaseComplete(log, "aggregate", res.Stats.AggregateElapsed).
		Int("distinct_items", len(items)).
		Int("promising_items", len(prom)).
		Int("found", len(found)).
		Log("aggregation complete")

	if p.MaxSize > 1 && len(prom) > 1 {
		levels, peak, err := extendAll(ctx, store, prom, p, workers, &found, &res.Stats)
		if err != nil {
			return nil, err
		}
		res.Stats.Levels = levels
		res.Stats.PeakFrontierBytes = peak
	}

	res.Entries = ranking.Rank(found)
	res.Stats.Found = len(res.Entries)
	res.Stats.Elapsed = time.Since(start)

	logging.PhaseComplete(log, "mine", res.Stats.Elapsed).
		Int("found", res.Stats.Found).
		Int("levels", len(res.Stats.Levels)).
		Bytes("peak_frontier_bytes", int64(res.Stats.PeakFrontierBytes)).
		Log("mining complete")

	return res, nil
}

// extendAll builds the item index and runs the level loop. Generation 1
// produces pairs; each later generation adds one item.
func extendAll(ctx context.Context, store *txstore.Store, prom []uint32, p Params, workers int, found *[]ranking.Entry, stats *Stats) ([]LevelStats, uint64, error) {
	log := logctx.FromContext(ctx)

	idxStart := time.Now()
	idx, err := itemindex.Build(store, prom)
	if err != nil {
		return nil, 0, fmt.Errorf("build item index: %w", err)
	}
	stats.Postings = idx.Postings()
	logging.PhaseComplete(log, "index", time.Since(idxStart)).
		Int("items", idx.Len()).
		Count("postings", idx.Postings()).
		Log("item index built")

	ext := &extender{
		store:      store,
		index:      idx,
		promising:  prom,
		minUtility: p.MinUtility,
		maxSize:    p.MaxSize,
		workers:    workers,
		budget:     p.Budget,
	}

	frontier, held, err := ext.seed()
	if err != nil {
		return nil, 0, err
	}
	defer func() { p.Budget.Release(held) }()
	peak := held

	var levels []LevelStats
	for gen := 1; len(frontier) > 0 && frontier[0].items.Len() < p.MaxSize; gen++ {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		phase := levelPhase(frontier[0].items.Len() + 1)
		p.Mem.SetPhase(phase)

		levelFound, next, nextHeld, ls, err := ext.level(ctx, log, gen, phase, frontier)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", phase, err)
		}
		peak = max(peak, held+nextHeld)
		p.Budget.Release(held)
		held = nextHeld
		frontier = next

		*found = append(*found, levelFound...)
		levels = append(levels, ls)

		logging.LevelComplete(log, phase, ls.Elapsed).
			Int("generation", gen).
			Int("size", ls.Size).
			Int("frontier", ls.Frontier).
			Count("leaves", ls.Leaves).
			Count("candidates", ls.Candidates).
			Count("empty", ls.Empty).
			Count("pruned", ls.Pruned).
			Count("verified", ls.Verified).
			Int("found", ls.Found).
			Int("next_frontier", ls.Next).
			Bytes("next_frontier_bytes", int64(ls.NextBytes)).
			Log("level complete")
		p.Mem.Snapshot("level_complete", p.Budget.InUse(), p.Budget.Total())
	}
	return levels, peak, nil
}

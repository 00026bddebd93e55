package ranking

import (
	"math/rand"
	"testing"

	"github.com/eunmann/huimine/pkg/itemset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankUtilityDescending(t *testing.T) {
	entries := []Entry{
		{Items: itemset.Itemset{1}, Utility: 10, Support: 1},
		{Items: itemset.Itemset{2}, Utility: 30, Support: 1},
		{Items: itemset.Itemset{3}, Utility: 20, Support: 1},
	}

	ranked := Rank(entries)
	require.Len(t, ranked, 3)
	assert.Equal(t, []float64{30, 20, 10}, []float64{ranked[0].Utility, ranked[1].Utility, ranked[2].Utility})
	assert.Equal(t, itemset.Itemset{1}, entries[0].Items, "Rank must not reorder its input")
}

func TestRankTieBreakCanonicalOrder(t *testing.T) {
	entries := []Entry{
		{Items: itemset.Itemset{2, 5}, Utility: 50},
		{Items: itemset.Itemset{1, 9}, Utility: 50},
		{Items: itemset.Itemset{2}, Utility: 50},
		{Items: itemset.Itemset{1}, Utility: 50},
		{Items: itemset.Itemset{7}, Utility: 80},
	}

	ranked := Rank(entries)
	want := []itemset.Itemset{{7}, {1}, {1, 9}, {2}, {2, 5}}
	for i, w := range want {
		assert.Equal(t, w, ranked[i].Items, "position %d", i)
	}
	assert.True(t, IsRanked(ranked))
}

func TestRankTieIgnoresSummationNoise(t *testing.T) {
	for _, noisy := range []float64{61.8 + 1e-12, 61.8 - 1e-12, 0.1 + 0.2 + 61.5 - 0.3 + 0.2 - 0.2} {
		entries := []Entry{
			{Items: itemset.Itemset{5}, Utility: noisy},
			{Items: itemset.Itemset{1, 4, 6, 9}, Utility: 61.8},
		}
		ranked := Rank(entries)
		assert.Equal(t, itemset.Itemset{1, 4, 6, 9}, ranked[0].Items, "utility %v", noisy)

		entries[0].Utility, entries[1].Utility = 61.8, noisy
		ranked = Rank(entries)
		assert.Equal(t, itemset.Itemset{1, 4, 6, 9}, ranked[0].Items, "utility %v", noisy)
	}

	distinct := Rank([]Entry{
		{Items: itemset.Itemset{1}, Utility: 61.80},
		{Items: itemset.Itemset{2}, Utility: 61.81},
	})
	assert.Equal(t, itemset.Itemset{2}, distinct[0].Items)
}

func TestRankDeterministicUnderShuffle(t *testing.T) {
	var entries []Entry
	for i := range 50 {
		entries = append(entries, Entry{
			Items:   itemset.Itemset{uint32(i % 7), uint32(10 + i)},
			Utility: float64(i % 5),
			Support: i,
		})
	}
	first := Rank(entries)

	rng := rand.New(rand.NewSource(7))
	for range 10 {
		rng.Shuffle(len(entries), func(i, j int) { entries[i], entries[j] = entries[j], entries[i] })
		assert.Equal(t, first, Rank(entries))
	}
}

func TestTopN(t *testing.T) {
	ranked := Rank([]Entry{
		{Items: itemset.Itemset{1}, Utility: 3},
		{Items: itemset.Itemset{2}, Utility: 2},
		{Items: itemset.Itemset{3}, Utility: 1},
	})

	assert.Len(t, TopN(ranked, 2), 2)
	assert.Len(t, TopN(ranked, 10), 3)
	assert.Len(t, TopN(ranked, -1), 3)
	assert.Empty(t, TopN(ranked, 0))
}

func TestCountBySize(t *testing.T) {
	counts := CountBySize([]Entry{
		{Items: itemset.Itemset{1}},
		{Items: itemset.Itemset{2}},
		{Items: itemset.Itemset{1, 2}},
	})
	assert.Equal(t, map[int]int{1: 2, 2: 1}, counts)
}

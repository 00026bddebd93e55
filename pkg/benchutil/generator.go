// Package benchutil provides synthetic transaction data for benchmarks and
// property tests.
package benchutil

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"math/rand"
	"strings"

	"github.com/eunmann/huimine/pkg/txstore"
)

// GeneratorConfig configures synthetic data generation.
type GeneratorConfig struct {
	// NumTransactions is the number of baskets to generate.
	NumTransactions int
	// NumItems is the size of the catalogue. Item ids are 1..NumItems.
	NumItems int
	// MeanBasket is the average number of distinct items per basket.
	MeanBasket int
	// MaxQuantity bounds the per-line quantity (inclusive).
	MaxQuantity int
	// Skew is the Zipf exponent of item popularity. Must be > 1; values
	// near 1 give a long tail, larger values concentrate on a few items.
	Skew float64
	// Seed for reproducible generation. 0 = use default seed.
	Seed int64
}

// DefaultConfig returns a retail-like configuration.
func DefaultConfig(numTransactions int) GeneratorConfig {
	return GeneratorConfig{
		NumTransactions: numTransactions,
		NumItems:        500,
		MeanBasket:      8,
		MaxQuantity:     12,
		Skew:            1.2,
		Seed:            BenchmarkSeed,
	}
}

// ShapeConfig returns a configuration for one of the names in Shapes.
func ShapeConfig(shape string, numTransactions int) GeneratorConfig {
	cfg := DefaultConfig(numTransactions)
	switch shape {
	case "sparse":
		cfg.NumItems = 5000
		cfg.MeanBasket = 4
		cfg.Skew = 1.05
	case "dense":
		cfg.NumItems = 40
		cfg.MeanBasket = 12
		cfg.Skew = 1.5
	}
	return cfg
}

// Generator generates synthetic retail transactions.
type Generator struct {
	cfg     GeneratorConfig
	rng     *rand.Rand
	zipf    *rand.Zipf
	profits []float64
}

// NewGenerator creates a new data generator. Unit profits are drawn once
// per item so every occurrence of an item carries the same profit.
func NewGenerator(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = BenchmarkSeed
	}
	cfg.NumItems = max(cfg.NumItems, 1)
	cfg.MeanBasket = max(cfg.MeanBasket, 1)
	cfg.MaxQuantity = max(cfg.MaxQuantity, 1)
	if cfg.Skew <= 1 {
		cfg.Skew = 1.01
	}

	rng := rand.New(rand.NewSource(seed))
	profits := make([]float64, cfg.NumItems+1)
	for i := 1; i <= cfg.NumItems; i++ {
		profits[i] = math.Round((0.25+rng.Float64()*19.75)*100) / 100
	}
	return &Generator{
		cfg:     cfg,
		rng:     rng,
		zipf:    rand.NewZipf(rng, cfg.Skew, 1, uint64(cfg.NumItems-1)),
		profits: profits,
	}
}

// Profit returns the unit profit assigned to item.
func (g *Generator) Profit(item uint32) float64 {
	if int(item) >= len(g.profits) {
		return 0
	}
	return g.profits[item]
}

// Generate returns NumTransactions transactions with ids 0..n-1.
func (g *Generator) Generate() []txstore.Transaction {
	txs := make([]txstore.Transaction, g.cfg.NumTransactions)
	for i := range txs {
		tx, _ := txstore.NewTransaction(int32(i), g.basket())
		txs[i] = tx
	}
	return txs
}

// Store returns the generated transactions as a store.
func (g *Generator) Store() *txstore.Store {
	return txstore.NewStore(g.Generate())
}

func (g *Generator) basket() []txstore.Entry {
	n := 1 + g.rng.Intn(2*g.cfg.MeanBasket)
	n = min(n, g.cfg.NumItems)
	seen := make(map[uint32]bool, n)
	entries := make([]txstore.Entry, 0, n)
	for len(entries) < n {
		item := uint32(g.zipf.Uint64()) + 1
		if seen[item] {
			// Popular items collide often; fall back to a uniform pick.
			item = uint32(g.rng.Intn(g.cfg.NumItems)) + 1
			if seen[item] {
				continue
			}
		}
		seen[item] = true
		entries = append(entries, txstore.Entry{
			Item:     item,
			Quantity: int64(1 + g.rng.Intn(g.cfg.MaxQuantity)),
			Profit:   g.profits[item],
		})
	}
	return entries
}

// Write renders transactions in the itemId:quantity:profit line format.
func Write(w io.Writer, txs []txstore.Transaction) error {
	bw := bufio.NewWriter(w)
	for _, tx := range txs {
		for i, e := range tx.Items {
			if i > 0 {
				bw.WriteByte(' ')
			}
			fmt.Fprintf(bw, "%d:%d:%.2f", e.Item, e.Quantity, e.Profit)
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// Lines returns transactions in the input line format.
func Lines(txs []txstore.Transaction) string {
	var sb strings.Builder
	_ = Write(&sb, txs)
	return sb.String()
}

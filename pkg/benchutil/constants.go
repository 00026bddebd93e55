package benchutil

// Shared constants for benchmarks across packages.

// BenchmarkSeed is the default seed for reproducible benchmark data generation.
const BenchmarkSeed = 42

// Standard benchmark sizes for quick runs.
var BenchmarkSizes = []int{1000, 10000, 50000}

// ScalingSizes are larger sizes for comprehensive scaling tests.
// Used with HUIMINE_LONG_BENCH=1 environment variable.
var ScalingSizes = []int{100000, 250000, 500000}

// Shapes are the standard catalogue shapes for benchmarking:
//   - retail: 500 items, Zipf-skewed popularity
//   - sparse: large catalogue, small baskets, long tail
//   - dense: tiny catalogue, large baskets, deep itemsets
var Shapes = []string{
	"retail",
	"sparse",
	"dense",
}

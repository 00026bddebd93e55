package benchutil

import (
	"os"
	"testing"
)

// SkipIfNoLongBench skips the benchmark if HUIMINE_LONG_BENCH is not set.
// Use this to gate long-running benchmarks that shouldn't run by default.
func SkipIfNoLongBench(b *testing.B) {
	if os.Getenv("HUIMINE_LONG_BENCH") == "" {
		b.Skip("set HUIMINE_LONG_BENCH=1 to run scaling benchmark")
	}
}

// ThresholdFraction returns the utility threshold equal to frac of the
// store's total utility, the usual way to scale thresholds with input size.
func ThresholdFraction(totalUtility, frac float64) float64 {
	return totalUtility * frac
}

package mining

import (
	"fmt"
	"math"
	"runtime"

	"github.com/eunmann/huimine/pkg/membudget"
	"github.com/eunmann/huimine/pkg/memdiag"
)

// DefaultMaxSize is the itemset size cap used when none is configured.
const DefaultMaxSize = 3

// Params controls one mining run.
type Params struct {
	// MinUtility is the inclusive utility threshold.
	MinUtility float64

	// MaxSize caps itemset size. 1 means single items only.
	MaxSize int

	// Workers is the number of goroutines used by each phase.
	// Zero or negative means runtime.NumCPU(); 1 runs sequentially.
	Workers int

	// Budget bounds frontier memory. Nil means unlimited.
	Budget *membudget.Budget

	// Mem receives a heap snapshot after each level. Nil disables it.
	Mem *memdiag.Tracker
}

// Validate reports parameter errors wrapped in ErrInvalidParams.
func (p Params) Validate() error {
	if math.IsNaN(p.MinUtility) || math.IsInf(p.MinUtility, 0) {
		return fmt.Errorf("%w: min utility must be finite, got %v", ErrInvalidParams, p.MinUtility)
	}
	if p.MinUtility < 0 {
		return fmt.Errorf("%w: min utility must be >= 0, got %v", ErrInvalidParams, p.MinUtility)
	}
	if p.MaxSize < 1 {
		return fmt.Errorf("%w: max size must be >= 1, got %d", ErrInvalidParams, p.MaxSize)
	}
	return nil
}

func (p Params) workers() int {
	if p.Workers <= 0 {
		return runtime.NumCPU()
	}
	return p.Workers
}

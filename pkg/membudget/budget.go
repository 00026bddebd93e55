// Package membudget bounds the memory held by the mining engine's
// level-wise frontier.
//
// Callers reserve an estimate before materialising frontier nodes and
// release it when a level is discarded. A nil *Budget is unlimited.
package membudget

import (
	"fmt"
	"sync/atomic"

	"github.com/eunmann/huimine/pkg/humanfmt"
)

// BudgetSource indicates how the memory budget was determined.
type BudgetSource string

const (
	// BudgetSourceAuto50Pct indicates the budget was set to 50% of detected RAM.
	BudgetSourceAuto50Pct BudgetSource = "auto-50pct"
	// BudgetSourceDefault indicates the budget used the fallback RAM value.
	BudgetSourceDefault BudgetSource = "default"
	// BudgetSourceCLI indicates the budget was set via CLI flag.
	BudgetSourceCLI BudgetSource = "cli"
	// BudgetSourceEnv indicates the budget was set via environment variable.
	BudgetSourceEnv BudgetSource = "env"
	// BudgetSourceConfig indicates the budget came from the config file.
	BudgetSourceConfig BudgetSource = "config"
)

// EnvVar overrides the automatic budget when set.
const EnvVar = "HUIMINE_MEM_BUDGET"

// Budget tracks reserved bytes against a fixed total.
// It is safe for concurrent use.
type Budget struct {
	total  uint64
	inUse  atomic.Uint64
	peak   atomic.Uint64
	source BudgetSource
}

// New creates a budget of total bytes.
func New(total uint64, source BudgetSource) *Budget {
	return &Budget{total: total, source: source}
}

// NewFromSystemRAM creates a Budget set to 50% of system RAM.
func NewFromSystemRAM() *Budget {
	ram := SystemRAM()
	if ram.Reliable {
		return New(ram.TotalBytes/2, BudgetSourceAuto50Pct)
	}
	return New(ram.TotalBytes/2, BudgetSourceDefault)
}

// Resolve picks the budget from a CLI value, then an environment value,
// then system RAM. Empty strings are skipped.
func Resolve(cliValue, envValue string) (*Budget, error) {
	if cliValue != "" {
		n, err := humanfmt.ParseBytes(cliValue)
		if err != nil {
			return nil, fmt.Errorf("parse --mem-budget: %w", err)
		}
		return New(n, BudgetSourceCLI), nil
	}
	if envValue != "" {
		n, err := humanfmt.ParseBytes(envValue)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", EnvVar, err)
		}
		return New(n, BudgetSourceEnv), nil
	}
	return NewFromSystemRAM(), nil
}

// Total returns the total budget in bytes.
func (b *Budget) Total() uint64 {
	if b == nil {
		return 0
	}
	return b.total
}

// InUse returns the currently reserved bytes.
func (b *Budget) InUse() uint64 {
	if b == nil {
		return 0
	}
	return b.inUse.Load()
}

// Peak returns the highest reservation level observed.
func (b *Budget) Peak() uint64 {
	if b == nil {
		return 0
	}
	return b.peak.Load()
}

// Source returns how the budget was determined.
func (b *Budget) Source() BudgetSource {
	if b == nil {
		return ""
	}
	return b.source
}

// TryReserve attempts to reserve n bytes without blocking.
// Returns false if it would exceed the budget.
func (b *Budget) TryReserve(n uint64) bool {
	if b == nil {
		return true
	}
	for {
		current := b.inUse.Load()
		next := current + n
		if next > b.total {
			return false
		}
		if b.inUse.CompareAndSwap(current, next) {
			b.notePeak(next)
			return true
		}
	}
}

func (b *Budget) notePeak(v uint64) {
	for {
		p := b.peak.Load()
		if v <= p || b.peak.CompareAndSwap(p, v) {
			return
		}
	}
}

// Release returns n bytes to the budget. Releasing more than is reserved
// clamps at zero.
func (b *Budget) Release(n uint64) {
	if b == nil {
		return
	}
	for {
		current := b.inUse.Load()
		next := uint64(0)
		if n < current {
			next = current - n
		}
		if b.inUse.CompareAndSwap(current, next) {
			return
		}
	}
}

// Stats returns current budget statistics.
type Stats struct {
	TotalBytes     uint64
	InUseBytes     uint64
	PeakBytes      uint64
	AvailableBytes uint64
	Source         BudgetSource
}

// Stats returns current budget statistics.
func (b *Budget) Stats() Stats {
	if b == nil {
		return Stats{}
	}
	inUse := b.inUse.Load()
	var available uint64
	if inUse < b.total {
		available = b.total - inUse
	}
	return Stats{
		TotalBytes:     b.total,
		InUseBytes:     inUse,
		PeakBytes:      b.peak.Load(),
		AvailableBytes: available,
		Source:         b.source,
	}
}

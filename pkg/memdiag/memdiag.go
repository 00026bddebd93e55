// Package memdiag logs heap statistics while a mining run grows its
// frontier.
//
// Enable with HUIMINE_MEM_DEBUG=1. HUIMINE_MEM_PPROF=1 additionally serves
// pprof on :6060.
package memdiag

import (
	"net/http"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	// Registers pprof handlers on DefaultServeMux for the pprof HTTP server.
	_ "net/http/pprof"

	"github.com/eunmann/huimine/pkg/humanfmt"
	"github.com/eunmann/huimine/pkg/logging"
)

const (
	EnvDebug = "HUIMINE_MEM_DEBUG"
	EnvPprof = "HUIMINE_MEM_PPROF"
)

// Config holds configuration for memory diagnostics.
type Config struct {
	Enabled      bool
	PprofEnabled bool
	PprofAddr    string

	// LogInterval is the period of background heap logging. Zero disables
	// the background loop; level snapshots are still logged.
	LogInterval time.Duration
}

// DefaultConfig reads the configuration from the environment.
func DefaultConfig() Config {
	return Config{
		Enabled:      os.Getenv(EnvDebug) == "1",
		PprofEnabled: os.Getenv(EnvPprof) == "1",
		PprofAddr:    ":6060",
		LogInterval:  5 * time.Second,
	}
}

// Stats is the subset of runtime.MemStats the miner reports.
type Stats struct {
	HeapAlloc  uint64
	HeapInuse  uint64
	HeapSys    uint64
	Sys        uint64
	TotalAlloc uint64
	NumGC      uint32
}

// Read returns current memory statistics.
func Read() Stats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return Stats{
		HeapAlloc:  m.HeapAlloc,
		HeapInuse:  m.HeapInuse,
		HeapSys:    m.HeapSys,
		Sys:        m.Sys,
		TotalAlloc: m.TotalAlloc,
		NumGC:      m.NumGC,
	}
}

// Tracker records the peak heap seen across snapshots and logs them
// tagged with the current mining phase. A nil *Tracker is a no-op.
type Tracker struct {
	config   Config
	stopCh   chan struct{}
	doneCh   chan struct{}
	started  atomic.Bool
	mu       sync.Mutex
	phase    string
	peakHeap uint64
}

// NewTracker creates a tracker. It does nothing unless config.Enabled.
func NewTracker(config Config) *Tracker {
	return &Tracker{
		config: config,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
		phase:  "init",
	}
}

// Enabled reports whether snapshots are logged.
func (t *Tracker) Enabled() bool {
	return t != nil && t.config.Enabled
}

// Start begins background logging and the optional pprof server.
func (t *Tracker) Start() {
	if !t.Enabled() || !t.started.CompareAndSwap(false, true) {
		return
	}

	log := logging.L()
	log.Info().Msg("memory diagnostics enabled")

	if t.config.PprofEnabled {
		go func() {
			log.Info().Str("addr", t.config.PprofAddr).Msg("starting pprof server")
			//nolint:gosec // diagnostics endpoint, opt-in via env
			if err := http.ListenAndServe(t.config.PprofAddr, nil); err != nil {
				log.Error().Err(err).Msg("pprof server failed")
			}
		}()
	}

	if t.config.LogInterval <= 0 {
		close(t.doneCh)
		return
	}
	go t.logLoop()
}

// Stop ends background logging.
func (t *Tracker) Stop() {
	if t == nil || !t.started.Load() {
		return
	}
	close(t.stopCh)
	<-t.doneCh
}

// SetPhase tags subsequent snapshots with phase.
func (t *Tracker) SetPhase(phase string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.phase = phase
	t.mu.Unlock()
	t.Snapshot("phase_change", 0, 0)
}

// Snapshot logs heap usage next to the frontier budget reservation.
// budgetInUse and budgetTotal may be zero when no budget applies.
func (t *Tracker) Snapshot(reason string, budgetInUse, budgetTotal uint64) {
	if !t.Enabled() {
		return
	}

	stats := Read()
	t.mu.Lock()
	phase := t.phase
	t.peakHeap = max(t.peakHeap, stats.HeapAlloc)
	peak := t.peakHeap
	t.mu.Unlock()

	ev := logging.L().Debug().
		Str("reason", reason).
		Str("phase", phase).
		Str("heap_alloc", humanfmt.Bytes(int64(stats.HeapAlloc))).
		Str("heap_inuse", humanfmt.Bytes(int64(stats.HeapInuse))).
		Str("sys_total", humanfmt.Bytes(int64(stats.Sys))).
		Str("peak_heap", humanfmt.Bytes(int64(peak))).
		Uint32("num_gc", stats.NumGC)
	if budgetTotal > 0 {
		ev = ev.
			Str("budget_inuse", humanfmt.Bytes(int64(budgetInUse))).
			Str("budget_total", humanfmt.Bytes(int64(budgetTotal)))
	}
	ev.Msg("memory stats")

	// Frontier reservations are estimates; flag runs where the real heap
	// is far past them.
	if budgetInUse > 64<<20 && stats.HeapAlloc > 3*budgetInUse {
		logging.L().Warn().
			Str("heap_alloc", humanfmt.Bytes(int64(stats.HeapAlloc))).
			Str("budget_inuse", humanfmt.Bytes(int64(budgetInUse))).
			Msg("heap usage far exceeds frontier reservation")
	}
}

// PeakHeap returns the largest heap allocation observed by snapshots.
func (t *Tracker) PeakHeap() uint64 {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.peakHeap
}

func (t *Tracker) logLoop() {
	defer close(t.doneCh)

	ticker := time.NewTicker(t.config.LogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopCh:
			t.Snapshot("shutdown", 0, 0)
			return
		case <-ticker.C:
			t.Snapshot("periodic", 0, 0)
		}
	}
}

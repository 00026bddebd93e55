package membudget

import (
	"runtime"
	"sync"
	"testing"
)

func TestBudgetBasic(t *testing.T) {
	budget := New(1000, BudgetSourceCLI)

	if budget.Total() != 1000 {
		t.Errorf("Total() = %d, want 1000", budget.Total())
	}
	if budget.Source() != BudgetSourceCLI {
		t.Errorf("Source() = %s, want %s", budget.Source(), BudgetSourceCLI)
	}
}

func TestTryReserveAndRelease(t *testing.T) {
	b := New(100, BudgetSourceCLI)

	if !b.TryReserve(60) {
		t.Fatal("TryReserve(60) failed on empty budget")
	}
	if b.TryReserve(50) {
		t.Fatal("TryReserve(50) succeeded past total")
	}
	if !b.TryReserve(40) {
		t.Fatal("TryReserve(40) failed with exactly 40 available")
	}

	b.Release(70)
	if got := b.InUse(); got != 30 {
		t.Errorf("InUse() = %d, want 30", got)
	}
	if got := b.Peak(); got != 100 {
		t.Errorf("Peak() = %d, want 100", got)
	}

	b.Release(1000)
	if got := b.InUse(); got != 0 {
		t.Errorf("InUse() after over-release = %d, want 0", got)
	}

	stats := b.Stats()
	if stats.AvailableBytes != 100 || stats.PeakBytes != 100 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestNilBudgetIsUnlimited(t *testing.T) {
	var b *Budget
	if !b.TryReserve(1 << 62) {
		t.Error("nil budget refused a reservation")
	}
	b.Release(10)
	if b.Total() != 0 || b.InUse() != 0 || b.Source() != "" {
		t.Error("nil budget accessors returned non-zero values")
	}
}

func TestConcurrentReserve(t *testing.T) {
	b := New(1000, BudgetSourceCLI)

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b.TryReserve(100) {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if granted != 10 {
		t.Errorf("granted %d reservations, want 10", granted)
	}
	if b.InUse() != 1000 {
		t.Errorf("InUse() = %d, want 1000", b.InUse())
	}
}

func TestResolve(t *testing.T) {
	b, err := Resolve("4GiB", "1GiB")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if b.Total() != 4*1024*1024*1024 || b.Source() != BudgetSourceCLI {
		t.Errorf("CLI value: total=%d source=%s", b.Total(), b.Source())
	}

	b, err = Resolve("", "512MiB")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if b.Total() != 512*1024*1024 || b.Source() != BudgetSourceEnv {
		t.Errorf("env value: total=%d source=%s", b.Total(), b.Source())
	}

	b, err = Resolve("", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if b.Source() != BudgetSourceAuto50Pct && b.Source() != BudgetSourceDefault {
		t.Errorf("auto source = %s", b.Source())
	}

	if _, err := Resolve("lots", ""); err == nil {
		t.Error("expected error for invalid CLI value")
	}
	if _, err := Resolve("", "-3G"); err == nil {
		t.Error("expected error for invalid env value")
	}
}

func TestSystemRAM(t *testing.T) {
	ram := SystemRAM()
	if ram.TotalBytes == 0 {
		t.Fatal("SystemRAM() returned 0 bytes")
	}

	switch runtime.GOOS {
	case "linux", "darwin", "windows", "freebsd", "openbsd", "netbsd", "dragonfly":
		if !ram.Reliable {
			t.Logf("memory detection not reliable on %s", runtime.GOOS)
		}
	default:
		if ram.Reliable || ram.TotalBytes != DefaultRAMBytes {
			t.Errorf("expected fallback on %s, got %+v", runtime.GOOS, ram)
		}
	}
}

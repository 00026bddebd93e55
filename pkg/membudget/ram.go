package membudget

// DefaultRAMBytes is the value assumed when the platform cannot report
// physical memory.
const DefaultRAMBytes uint64 = 4 * 1024 * 1024 * 1024

// RAM describes detected physical memory.
type RAM struct {
	TotalBytes uint64
	// Reliable is false when TotalBytes is the DefaultRAMBytes fallback.
	Reliable bool
}

// SystemRAM returns the total physical memory of the host.
func SystemRAM() RAM {
	bytes, ok := physicalMemory()
	if !ok || bytes == 0 {
		return RAM{TotalBytes: DefaultRAMBytes}
	}
	return RAM{TotalBytes: bytes, Reliable: true}
}

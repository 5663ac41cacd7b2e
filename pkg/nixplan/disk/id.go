package disk

import "sync/atomic"

// entryIDs hands out layout entry identifiers. IDs are never reused or
// recalculated, so an entry can always be found again even after the layout
// around it has been rewritten. The counter is atomic so the allocator stays
// safe if layouts are ever built from more than one goroutine.
var entryIDs atomic.Uint64

// NewEntryID returns the next unique layout entry id, starting from 1.
func NewEntryID() uint64 {
	return entryIDs.Add(1)
}

// resetEntryIDs rewinds the allocator. Tests use this to assert exact ids
// without interference from earlier allocations.
func resetEntryIDs() {
	entryIDs.Store(0)
}

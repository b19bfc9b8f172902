package marksweep

// BlockHandle is an opaque numeric handle that identifies a single managed block within the
// Collector that returned it. Handles are never reused within a single Collector, so a handle
// to a swept block simply stops resolving rather than aliasing a newer block.
type BlockHandle uint64

// NoBlock is the zero BlockHandle. It is never issued for a real block, which makes the zero
// value of a root slot mean "empty" during the mark phase.
const NoBlock BlockHandle = 0

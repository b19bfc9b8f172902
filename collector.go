package marksweep

import (
	"github.com/cockroachdb/errors"
	"github.com/marksweep/marksweep/gcutils"
	"github.com/marksweep/marksweep/internal/utils"
	"golang.org/x/exp/slog"
)

// Collector is a tracing memory manager: consumers request blocks with Alloc, register root
// slots with RegisterRoot, and periodically run Collect to reclaim every block that no root
// slot currently refers to.
//
// Marking is single-level only. The mark phase reads the current handle out of each
// registered slot and flags that block; it never decodes payload bytes, so a handle stored
// inside another block's payload confers no reachability. Consumers that need a
// payload-referenced block to survive can flag it themselves with Mark before calling
// Collect.
//
// A Collector owns every block it issues. Consumers only ever borrow payloads through
// PayloadBytes; block storage is released by sweep or by Destroy, never by the consumer.
type Collector struct {
	logger      *slog.Logger
	createFlags CreateFlags
	mutex       utils.OptionalRWMutex

	heapSizeLimit int
	granularity   uint
	heapBytes     int

	blocks blockList
	roots  rootList
}

// Alloc creates a new managed block with payloadSize bytes of zeroed payload and returns its
// handle. The block starts unmarked and unrooted: it will be reclaimed by the next Collect
// unless a registered root slot holds its handle by then.
//
// When a HeapSizeLimit is configured and the request would exceed it, Alloc returns an error
// wrapping gcutils.OutOfMemoryError and the collector is left unchanged.
func (c *Collector) Alloc(payloadSize int) (BlockHandle, error) {
	if payloadSize < 0 {
		return NoBlock, errors.Errorf("requested a block of %d bytes: sizes must be 0 or positive", payloadSize)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.logger.Debug("Collector::Alloc", slog.Int("Size", payloadSize))

	blockBytes := gcutils.AlignUp(payloadSize, c.granularity)
	if blockBytes == 0 {
		// Zero-size blocks still occupy a block record
		blockBytes = int(c.granularity)
	}

	if c.heapSizeLimit > 0 && c.heapBytes+blockBytes > c.heapSizeLimit {
		return NoBlock, errors.Wrapf(gcutils.OutOfMemoryError,
			"requested %d bytes with %d of %d heap bytes already live", blockBytes, c.heapBytes, c.heapSizeLimit)
	}

	block := c.blocks.allocateBlock(payloadSize, blockBytes)
	c.heapBytes += blockBytes

	gcutils.DebugValidate(&c.blocks)
	return block.handle, nil
}

// PayloadBytes returns the payload of a live block. The slice is borrowed: it remains valid
// only until the block is swept, and the collector never reads or interprets its contents.
func (c *Collector) PayloadBytes(handle BlockHandle) ([]byte, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	block, ok := c.blocks.getBlock(handle)
	if !ok {
		return nil, errors.Errorf("handle %d does not refer to a live block in this collector", handle)
	}

	return block.payload, nil
}

// Mark flags a single block so that it survives the next sweep. It is a no-op for NoBlock,
// for handles that no longer refer to a live block, and for blocks that are already flagged.
// The flag is consumed (reset) by the next Collect.
func (c *Collector) Mark(handle BlockHandle) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.markHandle(handle)
}

func (c *Collector) markHandle(handle BlockHandle) bool {
	if handle == NoBlock {
		return false
	}

	block, ok := c.blocks.getBlock(handle)
	if !ok || block.marked {
		return false
	}

	block.marked = true
	return true
}

// RegisterRoot records the address of a consumer-owned handle variable as a root slot. The
// slot's current value is not inspected here- it is read fresh during every mark phase, so
// the consumer may freely overwrite the slot between collections. Registering the same slot
// again creates a second independent entry. A nil slot is ignored.
func (c *Collector) RegisterRoot(slot *BlockHandle) {
	if slot == nil {
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.logger.Debug("Collector::RegisterRoot")
	c.roots.push(slot)
}

// UnregisterRoot removes the most recently added root entry recorded for this slot address.
// It is a silent no-op when the slot was never registered.
func (c *Collector) UnregisterRoot(slot *BlockHandle) {
	if slot == nil {
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.logger.Debug("Collector::UnregisterRoot")
	c.roots.remove(slot)
}

// Collect runs a full mark/sweep cycle synchronously: every block whose handle is currently
// stored in a registered root slot (or was flagged with Mark since the last cycle) survives,
// every other block is reclaimed, and all mark flags are reset for the next cycle.
//
// Repeating Collect with no intervening allocation, registration, or slot change is a no-op:
// the same set of blocks is marked again and nothing new is swept.
func (c *Collector) Collect() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.collect()
}

func (c *Collector) collect() {
	marked := 0
	for r := c.roots.head; r != nil; r = r.next {
		if c.markHandle(*r.slot) {
			marked++
		}
	}

	retained, swept, freedBytes := c.blocks.sweep()
	c.heapBytes -= freedBytes

	gcutils.DebugValidate(&c.blocks)

	c.logger.Debug("Collector::Collect",
		slog.Int("Marked", marked),
		slog.Int("Retained", retained),
		slog.Int("Swept", swept),
		slog.Int("FreedBytes", freedBytes),
	)
}

// Destroy tears the collector down: it runs one final Collect, reports any blocks that are
// still live (these are reachable from roots the consumer never unregistered), and then
// unconditionally releases every remaining block and root entry. The collector is empty
// afterward and may not be used again.
func (c *Collector) Destroy() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.logger.Debug("Collector::Destroy")
	c.collect()

	for b := c.blocks.head; b != nil; b = b.next {
		c.logger.Debug("unfreed block at teardown",
			slog.Uint64("Handle", uint64(b.handle)),
			slog.Int("Size", len(b.payload)),
		)
	}

	c.blocks.clear()
	c.roots.clear()
	c.heapBytes = 0
}

// IsLive returns whether the handle still refers to a live block in this collector.
func (c *Collector) IsLive(handle BlockHandle) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	_, ok := c.blocks.getBlock(handle)
	return ok
}

// LiveCount returns the number of live managed blocks.
func (c *Collector) LiveCount() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.blocks.count
}

// RootCount returns the number of registered root entries, counting duplicate registrations
// separately.
func (c *Collector) RootCount() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.roots.count
}

// HeapBytes returns the number of bytes currently charged against the heap size limit.
func (c *Collector) HeapBytes() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.heapBytes
}

// Validate performs internal consistency checks on the collector's block list, handle table,
// root registry, and heap accounting. These checks walk every live block, so they may be
// expensive. When the collector is functioning correctly it should not be possible for this
// method to return an error, but it may assist in diagnosing issues.
func (c *Collector) Validate() error {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	err := c.blocks.Validate()
	if err != nil {
		return err
	}

	err = c.roots.Validate()
	if err != nil {
		return err
	}

	chargedBytes := 0
	for b := c.blocks.head; b != nil; b = b.next {
		chargedBytes += b.blockBytes
	}
	if chargedBytes != c.heapBytes {
		return errors.Errorf("the collector lists %d live heap bytes but its blocks are charged %d", c.heapBytes, chargedBytes)
	}

	return nil
}

// AddDetailedStatistics folds this collector's current state into the provided statistics.
func (c *Collector) AddDetailedStatistics(stats *gcutils.DetailedStatistics) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	stats.RootCount += c.roots.count
	c.blocks.AddDetailedStatistics(stats)
}

// CalculateStatistics walks the live-block list and produces full statistics for this
// collector.
func (c *Collector) CalculateStatistics() gcutils.DetailedStatistics {
	var stats gcutils.DetailedStatistics
	stats.Clear()

	c.AddDetailedStatistics(&stats)
	return stats
}

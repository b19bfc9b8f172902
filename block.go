package marksweep

import (
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/marksweep/marksweep/gcutils"
)

var blockAllocator = sync.Pool{
	New: func() any {
		return &managedBlock{}
	},
}

type managedBlock struct {
	handle  BlockHandle
	payload []byte
	// blockBytes is the number of bytes charged against the heap limit for this block, the
	// payload length rounded up to the collector's allocation granularity
	blockBytes int
	marked     bool
	next       *managedBlock
}

// blockList is the intrusive singly-linked list of every live managed block, paired with the
// handle table that resolves consumer-facing handles back to block records. New blocks are
// pushed at the head; sweep unlinks in place.
type blockList struct {
	count int
	head  *managedBlock

	nextHandle BlockHandle
	handleKey  *swiss.Map[BlockHandle, *managedBlock]
}

func (l *blockList) Init() {
	l.handleKey = swiss.NewMap[BlockHandle, *managedBlock](42)
}

func (l *blockList) allocateBlock(payloadSize, blockBytes int) *managedBlock {
	b := blockAllocator.Get().(*managedBlock)
	b.payload = make([]byte, payloadSize)
	b.blockBytes = blockBytes
	b.marked = false
	b.handle = BlockHandle(atomic.AddUint64((*uint64)(&l.nextHandle), 1))

	b.next = l.head
	l.head = b
	l.count++
	l.handleKey.Put(b.handle, b)

	return b
}

func (l *blockList) freeBlock(b *managedBlock) {
	l.handleKey.Delete(b.handle)
	b.handle = NoBlock
	b.payload = nil
	b.blockBytes = 0
	b.marked = false
	b.next = nil
	blockAllocator.Put(b)
}

func (l *blockList) getBlock(handle BlockHandle) (*managedBlock, bool) {
	return l.handleKey.Get(handle)
}

// sweep walks the live list once: marked blocks have their flag reset and stay, unmarked
// blocks are unlinked and their records recycled. Returns the number of survivors, the number
// of reclaimed blocks, and the heap bytes they gave back.
func (l *blockList) sweep() (retained, swept, freedBytes int) {
	curr := &l.head
	for *curr != nil {
		b := *curr
		if b.marked {
			b.marked = false
			retained++
			curr = &b.next
		} else {
			*curr = b.next
			swept++
			freedBytes += b.blockBytes
			l.count--
			l.freeBlock(b)
		}
	}

	return retained, swept, freedBytes
}

// clear releases every remaining block unconditionally, mark state included.
func (l *blockList) clear() {
	for l.head != nil {
		b := l.head
		l.head = b.next
		l.freeBlock(b)
	}
	l.count = 0
}

func (l *blockList) Validate() error {
	actualCount := 0

	for b := l.head; b != nil; b = b.next {
		if b.handle == NoBlock {
			return errors.New("a block in the live list has no handle")
		}

		mapped, ok := l.handleKey.Get(b.handle)
		if !ok {
			return errors.Errorf("block %d is in the live list but missing from the handle table", b.handle)
		}
		if mapped != b {
			return errors.Errorf("handle %d resolves to a different block record than the one in the live list", b.handle)
		}

		if b.blockBytes < len(b.payload) {
			return errors.Errorf("block %d is charged %d heap bytes for a %d-byte payload", b.handle, b.blockBytes, len(b.payload))
		}

		actualCount++
	}

	if actualCount != l.count {
		return errors.Errorf("the listed number of live blocks (%d) does not match the actual number of blocks (%d)", l.count, actualCount)
	}

	if l.handleKey.Count() != l.count {
		return errors.Errorf("the handle table holds %d entries but the live list holds %d blocks", l.handleKey.Count(), l.count)
	}

	return nil
}

func (l *blockList) AddDetailedStatistics(stats *gcutils.DetailedStatistics) {
	for b := l.head; b != nil; b = b.next {
		stats.AddBlock(len(b.payload), b.blockBytes)
	}
}

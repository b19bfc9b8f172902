package marksweep

import (
	"sync"

	"github.com/cockroachdb/errors"
)

var rootAllocator = sync.Pool{
	New: func() any {
		return &rootEntry{}
	},
}

// rootEntry records the address of a single consumer-owned slot. The slot's value is never
// inspected at registration time, only at mark time.
type rootEntry struct {
	slot *BlockHandle
	next *rootEntry
}

// rootList is the registry of root slots, newest first. Duplicate registrations of the same
// slot are kept as independent entries; remove takes the most recently added match.
type rootList struct {
	count int
	head  *rootEntry
}

func (l *rootList) push(slot *BlockHandle) {
	r := rootAllocator.Get().(*rootEntry)
	r.slot = slot

	r.next = l.head
	l.head = r
	l.count++
}

func (l *rootList) remove(slot *BlockHandle) bool {
	curr := &l.head
	for *curr != nil {
		r := *curr
		if r.slot == slot {
			*curr = r.next
			l.count--
			l.freeEntry(r)
			return true
		}
		curr = &r.next
	}

	return false
}

func (l *rootList) freeEntry(r *rootEntry) {
	r.slot = nil
	r.next = nil
	rootAllocator.Put(r)
}

func (l *rootList) clear() {
	for l.head != nil {
		r := l.head
		l.head = r.next
		l.freeEntry(r)
	}
	l.count = 0
}

func (l *rootList) Validate() error {
	actualCount := 0

	for r := l.head; r != nil; r = r.next {
		if r.slot == nil {
			return errors.New("a registered root entry has a nil slot address")
		}
		actualCount++
	}

	if actualCount != l.count {
		return errors.Errorf("the listed number of root entries (%d) does not match the actual number of entries (%d)", l.count, actualCount)
	}

	return nil
}

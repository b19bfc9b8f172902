package marksweep

import (
	"github.com/cockroachdb/errors"
	"github.com/marksweep/marksweep/gcutils"
	"github.com/marksweep/marksweep/internal/utils"
	"golang.org/x/exp/slog"
)

// CreateFlags indicate specific collector behaviors to activate or deactivate
type CreateFlags int32

var createFlagsMapping = make(map[CreateFlags]string)

func (f CreateFlags) String() string {
	return createFlagsMapping[f]
}

const (
	// CollectorCreateExternallySynchronized ensures that this collector will not be
	// synchronized internally. The consumer must guarantee it is used from only one thread at
	// a time or is synchronized by some other mechanism, but performance may improve because
	// internal mutexes are not used.
	CollectorCreateExternallySynchronized CreateFlags = 1 << iota
)

func init() {
	createFlagsMapping[CollectorCreateExternallySynchronized] = "CollectorCreateExternallySynchronized"
}

const (
	// defaultAllocationGranularity is the value used as the AllocationGranularity when none is
	// provided via CreateOptions. Heap accounting rounds every payload up to this many bytes.
	defaultAllocationGranularity uint = 8
)

// CreateOptions contains optional settings when creating a collector
type CreateOptions struct {
	// Flags indicates specific collector behaviors to activate or deactivate
	Flags CreateFlags

	// HeapSizeLimit can be left as 0, indicating no limit. If it is provided, it is the
	// maximum number of bytes that may be live in this collector at once.
	//
	// The limit is enforced at runtime: Alloc returns an out of memory error when attempting
	// to allocate beyond the limit, and the consumer can recover by running Collect and
	// retrying.
	HeapSizeLimit int

	// AllocationGranularity is the accounting granularity for the managed heap- every
	// payload's charge against HeapSizeLimit is rounded up to a multiple of this value. It
	// must be a power of two. When 0, it defaults to 8.
	AllocationGranularity uint
}

// New creates a new Collector with an empty live-block list and an empty root registry.
//
// logger - Destination for the collector's debug output. When nil, slog.Default() is used
//
// options - Optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, options CreateOptions) (*Collector, error) {
	if logger == nil {
		logger = slog.Default()
	}

	granularity := options.AllocationGranularity
	if granularity == 0 {
		granularity = defaultAllocationGranularity
	}
	err := gcutils.CheckPow2(granularity, "CreateOptions.AllocationGranularity")
	if err != nil {
		return nil, err
	}

	if options.HeapSizeLimit < 0 {
		return nil, errors.Errorf("CreateOptions.HeapSizeLimit is %d: the limit must be 0 or positive", options.HeapSizeLimit)
	}

	useMutex := options.Flags&CollectorCreateExternallySynchronized == 0

	collector := &Collector{
		logger:      logger,
		createFlags: options.Flags,
		mutex:       utils.OptionalRWMutex{UseMutex: useMutex},

		heapSizeLimit: options.HeapSizeLimit,
		granularity:   granularity,
	}
	collector.blocks.Init()

	return collector, nil
}

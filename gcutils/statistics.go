package gcutils

import "math"

// Statistics is a bare-bones accounting of a set of managed blocks: how many there are and
// how much memory they occupy
type Statistics struct {
	// BlockCount is the number of live managed blocks
	BlockCount int
	// BlockBytes is the number of bytes charged to the managed heap for those blocks, after
	// rounding each block up to the collector's allocation granularity
	BlockBytes int
	// PayloadBytes is the number of bytes of payload the consumer actually requested.
	// PayloadBytes is always less than or equal to BlockBytes
	PayloadBytes int
}

func (s *Statistics) Clear() {
	s.BlockCount = 0
	s.BlockBytes = 0
	s.PayloadBytes = 0
}

func (s *Statistics) AddStatistics(other *Statistics) {
	s.BlockCount += other.BlockCount
	s.BlockBytes += other.BlockBytes
	s.PayloadBytes += other.PayloadBytes
}

// DetailedStatistics extends Statistics with root-registry data and payload size extremes.
// Collecting it requires a full walk of the live-block list, so it is more expensive to
// produce than Statistics
type DetailedStatistics struct {
	Statistics
	// RootCount is the number of entries in the root registry, counting duplicate
	// registrations of the same slot separately
	RootCount int
	// PayloadSizeMin is the smallest requested payload size among live blocks, or
	// math.MaxInt when there are none
	PayloadSizeMin int
	// PayloadSizeMax is the largest requested payload size among live blocks
	PayloadSizeMax int
}

func (s *DetailedStatistics) Clear() {
	s.Statistics.Clear()
	s.RootCount = 0
	s.PayloadSizeMin = math.MaxInt
	s.PayloadSizeMax = 0
}

// AddBlock folds a single live block into the statistics. payloadSize is the size the
// consumer requested, blockBytes the granularity-rounded size charged to the heap.
func (s *DetailedStatistics) AddBlock(payloadSize, blockBytes int) {
	s.BlockCount++
	s.BlockBytes += blockBytes
	s.PayloadBytes += payloadSize

	if payloadSize < s.PayloadSizeMin {
		s.PayloadSizeMin = payloadSize
	}

	if payloadSize > s.PayloadSizeMax {
		s.PayloadSizeMax = payloadSize
	}
}

func (s *DetailedStatistics) AddDetailedStatistics(other *DetailedStatistics) {
	s.Statistics.AddStatistics(&other.Statistics)
	s.RootCount += other.RootCount

	if other.PayloadSizeMin < s.PayloadSizeMin {
		s.PayloadSizeMin = other.PayloadSizeMin
	}

	if other.PayloadSizeMax > s.PayloadSizeMax {
		s.PayloadSizeMax = other.PayloadSizeMax
	}
}

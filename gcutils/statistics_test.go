package gcutils_test

import (
	"math"
	"testing"

	"github.com/marksweep/marksweep/gcutils"
	"github.com/stretchr/testify/require"
)

func TestDetailedStatisticsAddBlock(t *testing.T) {
	var stats gcutils.DetailedStatistics
	stats.Clear()

	require.Equal(t, math.MaxInt, stats.PayloadSizeMin)
	require.Equal(t, 0, stats.PayloadSizeMax)

	stats.AddBlock(100, 104)
	stats.AddBlock(7, 8)

	require.Equal(t, gcutils.DetailedStatistics{
		Statistics: gcutils.Statistics{
			BlockCount:   2,
			BlockBytes:   112,
			PayloadBytes: 107,
		},
		RootCount:      0,
		PayloadSizeMin: 7,
		PayloadSizeMax: 100,
	}, stats)
}

func TestDetailedStatisticsMerge(t *testing.T) {
	var first gcutils.DetailedStatistics
	first.Clear()
	first.AddBlock(10, 16)
	first.RootCount = 2

	var second gcutils.DetailedStatistics
	second.Clear()
	second.AddBlock(50, 56)
	second.RootCount = 1

	first.AddDetailedStatistics(&second)

	require.Equal(t, 2, first.BlockCount)
	require.Equal(t, 72, first.BlockBytes)
	require.Equal(t, 60, first.PayloadBytes)
	require.Equal(t, 3, first.RootCount)
	require.Equal(t, 10, first.PayloadSizeMin)
	require.Equal(t, 50, first.PayloadSizeMax)
}

func TestStatisticsClear(t *testing.T) {
	stats := gcutils.Statistics{
		BlockCount:   5,
		BlockBytes:   100,
		PayloadBytes: 90,
	}
	stats.Clear()

	require.Equal(t, gcutils.Statistics{}, stats)
}

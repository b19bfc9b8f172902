package marksweep_test

import (
	"io"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/marksweep/marksweep"
	"github.com/marksweep/marksweep/gcutils"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func testCollector(t *testing.T, options marksweep.CreateOptions) *marksweep.Collector {
	logger := slog.New(slog.NewJSONHandler(io.Discard))

	collector, err := marksweep.New(logger, options)
	require.NoError(t, err)

	return collector
}

func TestAllocReturnsUsablePayload(t *testing.T) {
	collector := testCollector(t, marksweep.CreateOptions{})
	defer collector.Destroy()

	handle, err := collector.Alloc(64)
	require.NoError(t, err)
	require.NotEqual(t, marksweep.NoBlock, handle)

	payload, err := collector.PayloadBytes(handle)
	require.NoError(t, err)
	require.Len(t, payload, 64)

	for i := range payload {
		payload[i] = byte(i)
	}

	payloadAgain, err := collector.PayloadBytes(handle)
	require.NoError(t, err)
	require.Equal(t, payload, payloadAgain)

	require.True(t, collector.IsLive(handle))
	require.Equal(t, 1, collector.LiveCount())
	require.NoError(t, collector.Validate())
}

func TestAllocChargesGranularRoundedBytes(t *testing.T) {
	collector := testCollector(t, marksweep.CreateOptions{})
	defer collector.Destroy()

	_, err := collector.Alloc(0)
	require.NoError(t, err)
	require.Equal(t, 8, collector.HeapBytes())

	_, err = collector.Alloc(5)
	require.NoError(t, err)
	require.Equal(t, 16, collector.HeapBytes())

	_, err = collector.Alloc(9)
	require.NoError(t, err)
	require.Equal(t, 32, collector.HeapBytes())

	require.NoError(t, collector.Validate())
}

func TestAllocCustomGranularity(t *testing.T) {
	collector := testCollector(t, marksweep.CreateOptions{
		AllocationGranularity: 64,
	})
	defer collector.Destroy()

	_, err := collector.Alloc(1)
	require.NoError(t, err)
	require.Equal(t, 64, collector.HeapBytes())
}

func TestAllocNegativeSize(t *testing.T) {
	collector := testCollector(t, marksweep.CreateOptions{})
	defer collector.Destroy()

	handle, err := collector.Alloc(-1)
	require.Error(t, err)
	require.Equal(t, marksweep.NoBlock, handle)
	require.Equal(t, 0, collector.LiveCount())
}

func TestAllocOutOfMemoryIsRecoverable(t *testing.T) {
	collector := testCollector(t, marksweep.CreateOptions{
		HeapSizeLimit: 32,
	})
	defer collector.Destroy()

	first, err := collector.Alloc(16)
	require.NoError(t, err)
	second, err := collector.Alloc(16)
	require.NoError(t, err)
	require.True(t, collector.IsLive(first))
	require.True(t, collector.IsLive(second))

	handle, err := collector.Alloc(1)
	require.Error(t, err)
	require.True(t, errors.Is(err, gcutils.OutOfMemoryError))
	require.Equal(t, marksweep.NoBlock, handle)

	// The failed request must not have disturbed the collector
	require.Equal(t, 2, collector.LiveCount())
	require.Equal(t, 32, collector.HeapBytes())
	require.NoError(t, collector.Validate())

	// Nothing is rooted, so one cycle frees the whole heap and the retry succeeds
	collector.Collect()

	handle, err = collector.Alloc(1)
	require.NoError(t, err)
	require.True(t, collector.IsLive(handle))
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard))

	_, err := marksweep.New(logger, marksweep.CreateOptions{
		AllocationGranularity: 3,
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, gcutils.PowerOfTwoError))

	_, err = marksweep.New(logger, marksweep.CreateOptions{
		HeapSizeLimit: -1,
	})
	require.Error(t, err)
}

func TestNewWithNilLogger(t *testing.T) {
	collector, err := marksweep.New(nil, marksweep.CreateOptions{})
	require.NoError(t, err)
	defer collector.Destroy()

	_, err = collector.Alloc(8)
	require.NoError(t, err)
}

func TestPayloadBytesUnknownHandle(t *testing.T) {
	collector := testCollector(t, marksweep.CreateOptions{})
	defer collector.Destroy()

	_, err := collector.PayloadBytes(marksweep.BlockHandle(12345))
	require.Error(t, err)

	_, err = collector.PayloadBytes(marksweep.NoBlock)
	require.Error(t, err)
}

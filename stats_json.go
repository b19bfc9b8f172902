package marksweep

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/marksweep/marksweep/gcutils"
)

// BuildStatsString writes a JSON report of the collector's current state: aggregate
// statistics plus one entry per live block. It is intended for diagnostics and leak hunting,
// not as a stable machine-readable format.
func (c *Collector) BuildStatsString(writer *jwriter.Writer) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var stats gcutils.DetailedStatistics
	stats.Clear()
	stats.RootCount = c.roots.count
	c.blocks.AddDetailedStatistics(&stats)

	obj := writer.Object()
	defer obj.End()

	general := obj.Name("General").Object()
	general.Name("BlockCount").Int(stats.BlockCount)
	general.Name("BlockBytes").Int(stats.BlockBytes)
	general.Name("PayloadBytes").Int(stats.PayloadBytes)
	general.Name("RootCount").Int(stats.RootCount)
	general.Name("HeapSizeLimit").Int(c.heapSizeLimit)
	general.End()

	blocks := obj.Name("Blocks").Array()
	for b := c.blocks.head; b != nil; b = b.next {
		blockObj := blocks.Object()
		b.printParameters(&blockObj)
		blockObj.End()
	}
	blocks.End()
}

func (b *managedBlock) printParameters(json *jwriter.ObjectState) {
	json.Name("Handle").Int(int(b.handle))
	json.Name("Size").Int(len(b.payload))
	json.Name("BlockBytes").Int(b.blockBytes)
}

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func drainCollect(c *Collector) []prometheus.Metric {
	ch := make(chan prometheus.Metric, 32)
	go func() {
		c.Collect(ch)
		close(ch)
	}()
	var out []prometheus.Metric
	for m := range ch {
		out = append(out, m)
	}
	return out
}

func TestDescribeEmitsSixDescriptors(t *testing.T) {
	c := New('A')
	ch := make(chan *prometheus.Desc, 32)
	go func() {
		c.Describe(ch)
		close(ch)
	}()
	var n int
	for range ch {
		n++
	}
	if n != 6 {
		t.Errorf("Describe emitted %d descriptors, want 6", n)
	}
}

func TestCollectReflectsRecordedCounters(t *testing.T) {
	c := New('A')
	c.RecordSent("H")
	c.RecordSent("H")
	c.RecordSent("B")
	c.RecordAcked()
	c.RecordTimedOut()
	c.RecordChunkRetransmit()
	c.SetNeighborCount(3)
	c.SetPathLength(2)

	metrics := drainCollect(c)
	// 2 distinct message types sent + 5 scalar metrics.
	if len(metrics) != 7 {
		t.Fatalf("Collect emitted %d metrics, want 7", len(metrics))
	}
}

func TestCollectEmitsOnlyScalarsWithNoSends(t *testing.T) {
	c := New('A')
	metrics := drainCollect(c)
	if len(metrics) != 5 {
		t.Fatalf("Collect emitted %d metrics with no sends, want 5", len(metrics))
	}
}

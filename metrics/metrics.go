// Package metrics exposes node-level counters and gauges as a Prometheus
// collector. The Describe/Collect split and the mutex-guarded counter map
// follow runZeroInc-sockstats's TCPInfoCollector pattern, repurposed from
// per-connection TCP statistics to per-node protocol counters.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector is a custom prometheus.Collector tracking the Netrajaal node's
// frame-level activity: sends, acks, timeouts, chunk retransmits, and the
// current neighbor/path state.
type Collector struct {
	mu sync.Mutex

	framesSent       map[string]uint64 // keyed by message type
	framesAcked      uint64
	framesTimedOut   uint64
	chunkRetransmits uint64
	neighborCount    int
	pathLength       int

	framesSentDesc       *prometheus.Desc
	framesAckedDesc      *prometheus.Desc
	framesTimedOutDesc   *prometheus.Desc
	chunkRetransmitsDesc *prometheus.Desc
	neighborCountDesc    *prometheus.Desc
	pathLengthDesc       *prometheus.Desc
}

// New builds a Collector. addr labels every metric with the node's own
// address so a shared Prometheus instance can scrape several nodes.
func New(addr byte) *Collector {
	constLabels := prometheus.Labels{"node": string(rune(addr))}
	return &Collector{
		framesSent: make(map[string]uint64),

		framesSentDesc: prometheus.NewDesc(
			"netrajaal_frames_sent_total", "Scan, heartbeat and path frames sent by the periodic tasks, by message type.",
			[]string{"type"}, constLabels,
		),
		framesAckedDesc: prometheus.NewDesc(
			"netrajaal_frames_acked_total", "Frames that received an ack within budget.",
			nil, constLabels,
		),
		framesTimedOutDesc: prometheus.NewDesc(
			"netrajaal_frames_timed_out_total", "Frames whose retry budget was exhausted without an ack.",
			nil, constLabels,
		),
		chunkRetransmitsDesc: prometheus.NewDesc(
			"netrajaal_chunk_retransmits_total", "Individual chunks resent during a repair round.",
			nil, constLabels,
		),
		neighborCountDesc: prometheus.NewDesc(
			"netrajaal_neighbors", "Number of distinct neighbors seen via scan.",
			nil, constLabels,
		),
		pathLengthDesc: prometheus.NewDesc(
			"netrajaal_path_length_hops", "Hop count of the currently installed shortest path to CC, or -1 if none.",
			nil, constLabels,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(descs chan<- *prometheus.Desc) {
	descs <- c.framesSentDesc
	descs <- c.framesAckedDesc
	descs <- c.framesTimedOutDesc
	descs <- c.chunkRetransmitsDesc
	descs <- c.neighborCountDesc
	descs <- c.pathLengthDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(metrics chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for msgType, count := range c.framesSent {
		metrics <- prometheus.MustNewConstMetric(c.framesSentDesc, prometheus.CounterValue, float64(count), msgType)
	}
	metrics <- prometheus.MustNewConstMetric(c.framesAckedDesc, prometheus.CounterValue, float64(c.framesAcked))
	metrics <- prometheus.MustNewConstMetric(c.framesTimedOutDesc, prometheus.CounterValue, float64(c.framesTimedOut))
	metrics <- prometheus.MustNewConstMetric(c.chunkRetransmitsDesc, prometheus.CounterValue, float64(c.chunkRetransmits))
	metrics <- prometheus.MustNewConstMetric(c.neighborCountDesc, prometheus.GaugeValue, float64(c.neighborCount))

	pathLength := -1
	if c.pathLength > 0 {
		pathLength = c.pathLength
	}
	metrics <- prometheus.MustNewConstMetric(c.pathLengthDesc, prometheus.GaugeValue, float64(pathLength))
}

// RecordSent increments the per-type sent counter.
func (c *Collector) RecordSent(msgType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.framesSent[msgType]++
}

// RecordAcked increments the acked counter.
func (c *Collector) RecordAcked() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.framesAcked++
}

// RecordTimedOut increments the exhausted-retries counter.
func (c *Collector) RecordTimedOut() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.framesTimedOut++
}

// RecordChunkRetransmit increments the chunk-repair counter.
func (c *Collector) RecordChunkRetransmit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chunkRetransmits++
}

// SetNeighborCount updates the current neighbor-set size.
func (c *Collector) SetNeighborCount(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.neighborCount = n
}

// SetPathLength updates the current shortest-path hop count; pass 0 when no
// path is installed.
func (c *Collector) SetPathLength(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pathLength = n
}

// Package chunked implements the Netrajaal chunked transfer engine (C6,
// spec.md §4.6): payloads that do not fit in one frame are split into
// fixed-size chunks, pushed best-effort, and repaired over successive End
// rounds driven by the receiver's reported missing list. Structurally
// grounded on the teacher's MCU.RetrieveDictionary offset/chunk-loop with a
// safety limit, redirected from "pull a dictionary from the MCU in chunks"
// to "push an oversize payload to a peer in chunks".
package chunked

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"netrajaal/protocol"
)

// UnitSender is the minimal C5 surface the engine needs; satisfied by
// *sender.Sender.
type UnitSender interface {
	SendSingle(ctx context.Context, msgType protocol.MsgType, payload string, dest byte) (ok bool, missing []int)
}

// Metrics is the minimal collector surface the engine reports into;
// satisfied by *metrics.Collector.
type Metrics interface {
	RecordChunkRetransmit()
}

// Engine is the C6 chunked transfer engine.
type Engine struct {
	sender  UnitSender
	metrics Metrics
	entry   *logrus.Entry
}

// noopMetrics discards every report; used when New is called without a
// collector.
type noopMetrics struct{}

func (noopMetrics) RecordChunkRetransmit() {}

// New builds an Engine that pushes oversize payloads through sender.
// metrics may be nil, in which case chunk retransmits are simply not
// reported.
func New(sender UnitSender, metrics Metrics, entry *logrus.Entry) *Engine {
	if entry == nil {
		entry = logrus.NewEntry(logrus.StandardLogger())
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Engine{sender: sender, metrics: metrics, entry: entry.WithField("component", "chunked")}
}

// Send implements spec.md §4.6: payloads under FrameSize delegate straight
// to the unit sender; larger payloads are split, sent as Begin + best-effort
// Intermediate chunks, then repaired over up to ChunkedRepairRounds End
// rounds.
func (e *Engine) Send(ctx context.Context, msgType protocol.MsgType, payload string, dest byte) bool {
	if len(payload) < protocol.FrameSize {
		ok, _ := e.sender.SendSingle(ctx, msgType, payload, dest)
		return ok
	}

	tid := protocol.RandTag()
	chunks := split(payload, protocol.ChunkPayloadSize)

	beginPayload := fmt.Sprintf("%c:%s:%d", msgType, tid, len(chunks))
	if ok, _ := e.sender.SendSingle(ctx, protocol.TypeBegin, beginPayload, dest); !ok {
		e.entry.WithField("tid", tid).Warn("begin failed, aborting transfer")
		return false
	}

	for i, chunk := range chunks {
		chunkPayload := fmt.Sprintf("%s:%d:%s", tid, i, chunk)
		// Best-effort: no retry at this level (spec.md §4.6 step 4).
		e.sender.SendSingle(ctx, protocol.TypeIntermediate, chunkPayload, dest)
	}

	for round := 0; round < protocol.ChunkedRepairRounds; round++ {
		ok, missing := e.sender.SendSingle(ctx, protocol.TypeEnd, tid, dest)
		if !ok {
			e.entry.WithField("tid", tid).Warn("end failed, aborting transfer")
			return false
		}
		if len(missing) == 1 && missing[0] == -1 {
			return true
		}
		for _, m := range missing {
			if m < 0 || m >= len(chunks) {
				continue
			}
			chunkPayload := fmt.Sprintf("%s:%d:%s", tid, m, chunks[m])
			e.sender.SendSingle(ctx, protocol.TypeIntermediate, chunkPayload, dest)
			e.metrics.RecordChunkRetransmit()
		}
	}

	e.entry.WithField("tid", tid).Warn("repair rounds exhausted")
	return false
}

// split divides s into chunks of at most size bytes, the last possibly
// shorter.
func split(s string, size int) []string {
	chunks := make([]string, 0, (len(s)+size-1)/size)
	for len(s) > size {
		chunks = append(chunks, s[:size])
		s = s[size:]
	}
	chunks = append(chunks, s)
	return chunks
}

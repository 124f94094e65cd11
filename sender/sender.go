// Package sender implements the Netrajaal reliable unit sender (C5,
// spec.md §4.5): construct a MID, write the frame, and for ack-requiring
// types retry with a progressive per-probe backoff until an ack is
// observed in the message log or the retry budget is exhausted. The
// retry/probe shape is a restructuring of the teacher's
// HostTransport.waitForAck select-over-timeout idiom into the spec's
// nested retry-then-probe loop.
package sender

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"netrajaal/msglog"
	"netrajaal/protocol"
)

// Link is the minimal transport surface the sender needs; satisfied by
// *link.Link, and narrowed here so tests can supply a fake.
type Link interface {
	Write(frame []byte) error
}

// Metrics is the minimal collector surface the sender reports into;
// satisfied by *metrics.Collector, and narrowed here so tests can supply a
// fake rather than import the metrics package.
type Metrics interface {
	RecordAcked()
	RecordTimedOut()
}

// Sender is the C5 reliable unit sender, bound to one node's address, link,
// and message log.
type Sender struct {
	link    Link
	log     *msglog.Log
	clock   protocol.Clock
	addr    byte
	metrics Metrics
	entry   *logrus.Entry
}

// noopMetrics discards every report; used when New is called without a
// collector.
type noopMetrics struct{}

func (noopMetrics) RecordAcked()    {}
func (noopMetrics) RecordTimedOut() {}

// New builds a Sender for a node identified by addr, writing through link
// and recording history in log. metrics may be nil, in which case acks and
// timeouts are simply not reported.
func New(link Link, log *msglog.Log, clock protocol.Clock, addr byte, metrics Metrics, entry *logrus.Entry) *Sender {
	if entry == nil {
		entry = logrus.NewEntry(logrus.StandardLogger())
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Sender{link: link, log: log, clock: clock, addr: addr, metrics: metrics, entry: entry.WithField("component", "sender")}
}

// SendSingle implements spec.md §4.5's algorithm exactly: construct the
// MID, decide whether an ack is required, and either fire-and-forget or
// retry up to UnitSendRetries times with UnitSendAckProbes progressively
// backed-off probes per retry.
func (s *Sender) SendSingle(ctx context.Context, msgType protocol.MsgType, payload string, dest byte) (ok bool, missing []int) {
	mid := protocol.NewMID(msgType, s.addr, dest)
	frame := protocol.Encode(mid, payload)
	midStr := mid.String()

	if !protocol.AckNeeded(msgType, dest) {
		if err := s.link.Write(frame); err != nil {
			s.entry.WithError(err).WithField("mid", midStr).Warn("write failed")
			return false, nil
		}
		s.log.RecordSent(midStr, payload, s.clock.NowMS())
		return true, nil
	}

	idx := s.log.RecordUnacked(midStr, payload, s.clock.NowMS())
	ackSleep := time.Duration(protocol.AckSleep) * time.Millisecond

	for r := 0; r < protocol.UnitSendRetries; r++ {
		if err := s.link.Write(frame); err != nil {
			s.entry.WithError(err).WithField("mid", midStr).Warn("write failed, retrying")
		}

		if !sleepCtx(ctx, ackSleep) {
			return false, nil
		}

		for i := 0; i < protocol.UnitSendAckProbes; i++ {
			if _, m, found := s.log.AckTime(midStr); found {
				if err := s.log.PromoteToSent(idx); err != nil {
					s.entry.WithError(err).Warn("promote to sent failed")
				}
				s.metrics.RecordAcked()
				return true, m
			}
			if !sleepCtx(ctx, ackSleep*time.Duration(i+1)) {
				return false, nil
			}
		}
	}

	s.entry.WithField("mid", midStr).Debug("unit send exhausted retries")
	s.metrics.RecordTimedOut()
	return false, nil
}

// sleepCtx waits for d or ctx cancellation, reporting which happened
// first. It is the one suspension point of the retry loop, the Go
// equivalent of the cooperative scheduler's sleep calls (spec.md §5).
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

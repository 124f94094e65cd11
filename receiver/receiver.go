// Package receiver implements the Netrajaal inbound frame pipeline (C7,
// spec.md §4.7): parse, apply the simulated-loss filter, apply the
// destination filter, log, dispatch by type, and schedule an ack when the
// inbound type requires one. Modeled on the teacher's
// Transport.Receive/parseFrame state-machine shape and
// HostTransport.dispatchMessage's routing idea, but dispatch keys on a
// message-type byte rather than a VLQ command ID, and there is no
// synchronization/CRC recovery because this wire format has none.
package receiver

import (
	"math/rand"

	"github.com/sirupsen/logrus"

	"netrajaal/msglog"
	"netrajaal/protocol"
)

// Link is the minimal transport surface the receiver needs to send ack
// replies; satisfied by *link.Link.
type Link interface {
	Write(frame []byte) error
}

// Reassembler is the C8 surface the receiver drives.
type Reassembler interface {
	Begin(sender byte, payload string) error
	Add(sender byte, payload string) error
	End(sender byte, tid string) (complete bool, payloadOrMissing string)
	InnerType(sender byte, tid string) (protocol.MsgType, bool)
}

// Discovery is the C9 surface the receiver drives for scan/path frames.
type Discovery interface {
	OnScan(sender byte, payload string)
	OnPath(sender byte, payload string)
}

// Receiver is the C7 inbound pipeline, bound to one node's address.
type Receiver struct {
	addr  byte
	link  Link
	log   *msglog.Log
	clock protocol.Clock
	ra    Reassembler
	disc  Discovery
	entry *logrus.Entry

	// OnHeartbeat is invoked for every accepted 'H' frame.
	OnHeartbeat func(sender byte, payload string)
	// OnComplete is invoked once a chunked transfer reassembles fully.
	OnComplete func(innerType protocol.MsgType, sender byte, tid string, payload string)
}

// New builds a Receiver for a node identified by addr.
func New(addr byte, link Link, log *msglog.Log, clock protocol.Clock, ra Reassembler, disc Discovery, entry *logrus.Entry) *Receiver {
	if entry == nil {
		entry = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Receiver{
		addr:  addr,
		link:  link,
		log:   log,
		clock: clock,
		ra:    ra,
		disc:  disc,
		entry: entry.WithField("component", "receiver"),
	}
}

// Process runs one inbound line through the full C7 pipeline.
func (r *Receiver) Process(line []byte) {
	frame, err := protocol.Parse(line)
	if err != nil {
		r.entry.WithError(err).Debug("drop: malformed frame")
		return
	}

	if r.dropForFlakiness() {
		r.entry.WithField("mid", frame.MID.String()).Debug("drop: simulated loss")
		return
	}

	if frame.MID.Dst != protocol.Broadcast && frame.MID.Dst != r.addr {
		return
	}
	unicast := frame.MID.Dst != protocol.Broadcast

	r.log.RecordRecv(frame.MID, frame.Payload, r.clock.NowMS())
	r.entry.WithField("mid", frame.MID.String()).
		WithField("payload", protocol.Ellipsize(frame.Payload)).
		Debug("frame accepted")

	var ackPayload string
	sendAck := false

	switch frame.MID.Type {
	case protocol.TypeHeartbeat:
		if r.OnHeartbeat != nil {
			r.OnHeartbeat(frame.MID.Src, frame.Payload)
		}
		if unicast {
			sendAck, ackPayload = true, frame.MID.String()
		}

	case protocol.TypeBegin:
		if err := r.ra.Begin(frame.MID.Src, frame.Payload); err != nil {
			r.entry.WithError(err).Warn("begin-chunk failed")
		}
		if unicast {
			sendAck, ackPayload = true, frame.MID.String()
		}

	case protocol.TypeIntermediate:
		if err := r.ra.Add(frame.MID.Src, frame.Payload); err != nil {
			r.entry.WithError(err).Debug("add-chunk failed")
		}
		// Intermediate frames are never acked (spec.md §4.5 step 2).

	case protocol.TypeEnd:
		tid := frame.Payload
		innerType, _ := r.ra.InnerType(frame.MID.Src, tid)
		complete, result := r.ra.End(frame.MID.Src, tid)
		if complete {
			if r.OnComplete != nil {
				r.OnComplete(innerType, frame.MID.Src, tid, result)
			}
			ackPayload = frame.MID.String() + ":-1"
		} else {
			ackPayload = frame.MID.String() + ":" + result
		}
		if unicast {
			sendAck = true
		}

	case protocol.TypeScan:
		if r.disc != nil {
			r.disc.OnScan(frame.MID.Src, frame.Payload)
		}

	case protocol.TypeSpath:
		if r.disc != nil {
			r.disc.OnPath(frame.MID.Src, frame.Payload)
		}

	default:
		r.entry.WithField("type", string(rune(frame.MID.Type))).Debug("unhandled message type")
	}

	if sendAck {
		ackMID := protocol.NewMID(protocol.TypeAck, r.addr, frame.MID.Src)
		if err := r.link.Write(protocol.Encode(ackMID, ackPayload)); err != nil {
			r.entry.WithError(err).Warn("ack write failed")
		}
	}
}

// dropForFlakiness implements spec.md §4.7 step 2's test-mode loss knob:
// uniform(1,100) <= Flakiness drops the frame.
func (r *Receiver) dropForFlakiness() bool {
	if protocol.Flakiness <= 0 {
		return false
	}
	return rand.Intn(100)+1 <= protocol.Flakiness
}

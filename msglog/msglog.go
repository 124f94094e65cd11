// Package msglog implements the Netrajaal sent/unacked/received message log
// (C4, spec.md §4.4). It is the mutex-protected record-keeping the sender
// (C5) and receiver (C7) consult to correlate acks with outbound frames,
// grounded on the teacher's HostTransport habit of guarding shared maps with
// a single mutex rather than introducing a database or external store.
package msglog

import (
	"errors"
	"strconv"
	"strings"
	"sync"

	"netrajaal/protocol"
)

// ErrBadIndex is returned by PromoteToSent for an out-of-range or
// already-promoted index.
var ErrBadIndex = errors.New("msglog: bad unacked index")

// Entry is one outbound record: the MID string it was sent under, its
// payload, and the send timestamp in milliseconds.
type Entry struct {
	MID       string
	Payload   string
	Timestamp int64
}

// RecvEntry is one inbound record, keyed by the frame's parsed MID so
// AckTime can check the frame's type without re-parsing the string.
type RecvEntry struct {
	MID       protocol.MID
	Payload   string
	Timestamp int64
}

// Log is the C4 message log: independent sent/unacked/received histories,
// all guarded by one mutex since every task shares the same Node (spec.md
// §5's "no locks required" single-threaded model becomes "one mutex" in
// concurrent Go).
type Log struct {
	mu sync.Mutex

	sent     []Entry
	unacked  []Entry
	promoted []bool

	recv []RecvEntry
}

// New returns an empty message log.
func New() *Log {
	return &Log{}
}

// RecordSent appends an entry to the sent log (frames that needed no ack,
// or an unacked frame once its ack has been confirmed).
func (l *Log) RecordSent(mid, payload string, ts int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent = append(l.sent, Entry{MID: mid, Payload: payload, Timestamp: ts})
	return len(l.sent) - 1
}

// RecordUnacked appends an entry to the unacked log and returns its index,
// to be passed to PromoteToSent once an ack is observed.
func (l *Log) RecordUnacked(mid, payload string, ts int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unacked = append(l.unacked, Entry{MID: mid, Payload: payload, Timestamp: ts})
	l.promoted = append(l.promoted, false)
	return len(l.unacked) - 1
}

// PromoteToSent moves the unacked entry at index into the sent log. The
// unacked record itself is left in place (marked promoted) rather than
// removed, so indices handed out earlier by RecordUnacked stay valid and
// never silently retarget a different entry.
func (l *Log) PromoteToSent(index int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 || index >= len(l.unacked) {
		return ErrBadIndex
	}
	if l.promoted[index] {
		return ErrBadIndex
	}
	l.promoted[index] = true
	e := l.unacked[index]
	l.sent = append(l.sent, e)
	return nil
}

// RecordRecv appends an entry to the received log with its arrival
// timestamp.
func (l *Log) RecordRecv(mid protocol.MID, payload string, ts int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recv = append(l.recv, RecvEntry{MID: mid, Payload: payload, Timestamp: ts})
}

// AckTime scans the received log for an 'A' frame whose payload begins with
// sentMID (the first MIDLen bytes). If found, it reports the ack's arrival
// timestamp and the parsed missing-list suffix, if any: no suffix yields a
// nil missing list, a ":-1" suffix yields []int{-1} (transfer complete), and
// a ":3,7,19" suffix yields []int{3,7,19}.
func (l *Log) AckTime(sentMID string) (ackTS int64, missing []int, found bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, r := range l.recv {
		if r.MID.Type != protocol.TypeAck {
			continue
		}
		if len(r.Payload) < protocol.MIDLen {
			continue
		}
		if r.Payload[:protocol.MIDLen] != sentMID {
			continue
		}
		return r.Timestamp, parseMissing(r.Payload[protocol.MIDLen:]), true
	}
	return 0, nil, false
}

// parseMissing parses the optional ":"-prefixed comma-separated suffix of
// an ack payload. An empty or malformed suffix yields a nil list.
func parseMissing(suffix string) []int {
	if !strings.HasPrefix(suffix, ":") {
		return nil
	}
	parts := strings.Split(suffix[1:], ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

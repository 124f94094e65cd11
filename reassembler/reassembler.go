// Package reassembler implements the Netrajaal chunked-transfer reassembly
// state machine (C8, spec.md §4.8): track in-flight transfers by sender and
// transfer ID, accumulate chunks, and report what is missing so chunked.Send
// knows what to repair.
package reassembler

import (
	"errors"
	"sort"
	"strconv"
	"strings"

	"netrajaal/protocol"
)

// ErrMalformed is returned when a Begin/Add payload does not match the
// "innerType:tid:count" / "tid:index:data" shape spec.md §4.8 requires.
var ErrMalformed = errors.New("reassembler: malformed payload")

// ErrUnknownTransfer is returned by Add when no Begin has been recorded for
// the (sender, tid) pair.
var ErrUnknownTransfer = errors.New("reassembler: unknown transfer")

// key identifies one in-flight transfer. Keying by (sender, tid) rather
// than tid alone avoids cross-sender collisions when two neighbors happen
// to draw the same 3-letter transfer tag concurrently (spec.md §9's third
// open question).
type key struct {
	sender byte
	tid    string
}

// transfer holds one chunked transfer's accumulated state.
type transfer struct {
	innerType protocol.MsgType
	count     int
	chunks    map[int]string
}

// Reassembler is the C8 state machine. It is not safe for concurrent use
// without external synchronization; callers (receiver, node) serialize
// access the same way the rest of a Node's state is serialized.
type Reassembler struct {
	transfers map[key]*transfer
}

// New returns an empty reassembler.
func New() *Reassembler {
	return &Reassembler{transfers: make(map[key]*transfer)}
}

// Begin parses a Begin frame payload of the form "innerType:tid:count" and
// initializes the transfer's chunk map.
func (r *Reassembler) Begin(sender byte, payload string) error {
	parts := strings.SplitN(payload, ":", 3)
	if len(parts) != 3 || len(parts[0]) != 1 {
		return ErrMalformed
	}
	count, err := strconv.Atoi(parts[2])
	if err != nil || count < 0 {
		return ErrMalformed
	}
	k := key{sender: sender, tid: parts[1]}
	r.transfers[k] = &transfer{
		innerType: protocol.MsgType(parts[0][0]),
		count:     count,
		chunks:    make(map[int]string, count),
	}
	return nil
}

// Add parses an Intermediate frame payload of the form "tid:index:data" and
// stores the chunk. Unknown tids are logged by the caller and dropped here
// (returns ErrUnknownTransfer). Duplicate indices are tolerated; the first
// one received wins.
func (r *Reassembler) Add(sender byte, payload string) error {
	parts := strings.SplitN(payload, ":", 3)
	if len(parts) != 3 {
		return ErrMalformed
	}
	index, err := strconv.Atoi(parts[1])
	if err != nil || index < 0 {
		return ErrMalformed
	}
	k := key{sender: sender, tid: parts[0]}
	t, ok := r.transfers[k]
	if !ok {
		return ErrUnknownTransfer
	}
	if _, exists := t.chunks[index]; !exists {
		t.chunks[index] = parts[2]
	}
	return nil
}

// Missing returns the indices in [0, count) not yet received for the given
// transfer. An unknown transfer yields an empty slice (defensive, per
// spec.md §4.8).
func (r *Reassembler) Missing(sender byte, tid string) []int {
	t, ok := r.transfers[key{sender: sender, tid: tid}]
	if !ok {
		return nil
	}
	missing := make([]int, 0)
	for i := 0; i < t.count; i++ {
		if _, ok := t.chunks[i]; !ok {
			missing = append(missing, i)
		}
	}
	return missing
}

// End finalizes a transfer: if any chunk is missing, it returns the
// truncated missing list; otherwise it recompiles the payload in index
// order, clears the transfer, and returns it.
func (r *Reassembler) End(sender byte, tid string) (complete bool, payloadOrMissing string) {
	k := key{sender: sender, tid: tid}
	t, ok := r.transfers[k]
	if !ok {
		return false, ""
	}

	missing := r.Missing(sender, tid)
	if len(missing) > 0 {
		return false, TruncateMissing(missing)
	}

	var b strings.Builder
	for i := 0; i < t.count; i++ {
		b.WriteString(t.chunks[i])
	}
	delete(r.transfers, k)
	return true, b.String()
}

// InnerType reports the original message type a transfer's reassembled
// payload should be dispatched as, for a still-open transfer. A successful
// End deletes the transfer, so callers read it before calling End. Returns
// ok=false for an unknown tid.
func (r *Reassembler) InnerType(sender byte, tid string) (protocol.MsgType, bool) {
	t, ok := r.transfers[key{sender: sender, tid: tid}]
	if !ok {
		return 0, false
	}
	return t.innerType, true
}

// TruncateMissing joins missing indices as a comma-separated decimal
// string, adding each next index only while the resulting ack payload
// still fits within FrameSize once the MID and its ':' are accounted for
// (spec.md §4.8's truncation rule: overhead budget 1 + 2*MIDLen).
func TruncateMissing(missing []int) string {
	sorted := append([]int(nil), missing...)
	sort.Ints(sorted)

	overhead := 1 + 2*protocol.MIDLen
	budget := protocol.FrameSize - overhead

	var b strings.Builder
	for i, m := range sorted {
		piece := strconv.Itoa(m)
		if i > 0 {
			piece = "," + piece
		}
		if b.Len()+len(piece) > budget {
			break
		}
		b.WriteString(piece)
	}
	return b.String()
}

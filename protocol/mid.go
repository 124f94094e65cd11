package protocol

import (
	"crypto/rand"
	"errors"
)

// ErrInvalidMID is returned when a MID does not match the fixed TSDRRR
// layout described in spec.md §3.
var ErrInvalidMID = errors.New("protocol: invalid message ID")

// MID is the fixed 6-byte message identifier: Type, Source, Destination,
// then a 3-letter random collision-avoidance tag.
type MID struct {
	Type Type
	Src  byte
	Dst  byte // a letter, or protocol.Broadcast
	Tag  string
}

// Type is an alias kept for readability at call sites that only care about
// the wire byte, not the whole MsgType enum semantics.
type Type = MsgType

// NewMID builds a MID with a freshly drawn random tag.
func NewMID(t MsgType, src, dst byte) MID {
	return MID{Type: t, Src: src, Dst: dst, Tag: RandTag()}
}

// String renders the MID in its 6-byte wire form: T S D R R R.
func (m MID) String() string {
	b := make([]byte, 0, MIDLen)
	b = append(b, byte(m.Type), m.Src, m.Dst)
	b = append(b, m.Tag...)
	return string(b)
}

// ParseMID validates and decodes a 6-byte MID per spec.md §4.3's parse
// rules: all positions uppercase letters except position 2 (destination),
// which may also be the broadcast marker.
func ParseMID(s string) (MID, error) {
	if len(s) != MIDLen {
		return MID{}, ErrInvalidMID
	}
	for i := 0; i < MIDLen; i++ {
		c := s[i]
		if i == 2 && c == Broadcast {
			continue
		}
		if c < 'A' || c > 'Z' {
			return MID{}, ErrInvalidMID
		}
	}
	return MID{
		Type: MsgType(s[0]),
		Src:  s[1],
		Dst:  s[2],
		Tag:  s[3:6],
	}, nil
}

// RandTag draws 3 independent uppercase letters from a cryptographically
// random source. The prototype used a seeded math/rand PRNG (boot.py's
// get_rand()); a collision-avoidance tag has no confidentiality
// requirement, but crypto/rand costs nothing extra here and rules out any
// cross-process seed correlation between nodes booted at the same instant.
func RandTag() string {
	var buf [3]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand.Read on a real OS does not fail in practice; panicking
		// here would turn a vanishingly unlikely platform error into a
		// protocol outage, so fall back to an all-'A' tag and let the
		// collision-avoidance property degrade gracefully instead.
		return "AAA"
	}
	out := make([]byte, 3)
	for i, b := range buf {
		out[i] = 'A' + b%26
	}
	return string(out)
}

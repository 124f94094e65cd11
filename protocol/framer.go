package protocol

import (
	"errors"
	"strings"
)

// ErrFrameTooShort and ErrFrameMalformed are the two parse-failure modes
// described in spec.md §4.3.
var (
	ErrFrameTooShort  = errors.New("protocol: frame shorter than minimum length")
	ErrFrameMalformed = errors.New("protocol: frame header malformed")
)

// Frame is the decoded result of parsing one inbound line: a MID plus its
// trimmed payload.
type Frame struct {
	MID     MID
	Payload string
}

// Encode renders mid ";" payload "\n" exactly as spec.md §4.3 and §6
// define the wire frame. The caller is responsible for keeping the result
// within FrameSize and ensuring payload never contains '\n' (spec.md §9's
// no-byte-stuffing assumption).
func Encode(mid MID, payload string) []byte {
	var b strings.Builder
	b.Grow(MIDLen + 1 + len(payload) + 1)
	b.WriteString(mid.String())
	b.WriteByte(';')
	b.WriteString(payload)
	b.WriteByte('\n')
	return []byte(b.String())
}

// Parse decodes one inbound line (without its trailing '\n', which the
// Link layer has already stripped) per spec.md §4.3's rules:
//   - length >= 8
//   - positions 0..5 are uppercase letters, except position 2 may be '*'
//   - position 6 is ';'
//   - the remainder is the payload, trimmed of trailing whitespace
func Parse(line []byte) (Frame, error) {
	const minLen = 8
	if len(line) < minLen {
		return Frame{}, ErrFrameTooShort
	}
	mid, err := ParseMID(string(line[:MIDLen]))
	if err != nil {
		return Frame{}, ErrFrameMalformed
	}
	if line[MIDLen] != ';' {
		return Frame{}, ErrFrameMalformed
	}
	payload := strings.TrimRight(string(line[MIDLen+1:]), " \t\r\n")
	return Frame{MID: mid, Payload: payload}, nil
}

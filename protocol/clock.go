package protocol

import (
	"fmt"
	"time"
)

// Clock gives the core a millisecond-resolution monotonic time source
// (C1, spec.md §4.1). The out-of-scope hardware RTC is never consulted
// directly by the core; it only ever sees this interface.
type Clock interface {
	// NowMS returns monotonic milliseconds since some fixed reference
	// point (the clock's construction time, in the default implementation).
	NowMS() int64
}

// MonotonicClock implements Clock on top of the Go runtime's monotonic
// clock reading, which time.Now() already carries — no third-party clock
// library improves on this for a process-local, monotonic-only need.
type MonotonicClock struct {
	start time.Time
}

// NewMonotonicClock returns a Clock whose epoch is the moment it was
// constructed, mirroring the prototype's clock_start captured at boot.
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{start: time.Now()}
}

// NowMS implements Clock.
func (c *MonotonicClock) NowMS() int64 {
	return time.Since(c.start).Milliseconds()
}

// FormatClock renders milliseconds-since-boot as "MM:SS", the wall-clock
// formatter used by the original prototype's get_human_ts() for log lines.
func FormatClock(ms int64) string {
	total := ms / 1000
	m := (total / 60) % 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d", m, s)
}

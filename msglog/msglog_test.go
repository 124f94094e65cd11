package msglog

import (
	"testing"

	"netrajaal/protocol"
)

func TestRecordSentAndUnacked(t *testing.T) {
	l := New()
	si := l.RecordSent("HABXYZ", "payload", 100)
	ui := l.RecordUnacked("HCBAAA", "payload2", 200)
	if si != 0 || ui != 0 {
		t.Fatalf("unexpected indices si=%d ui=%d", si, ui)
	}
}

func TestPromoteToSentMovesEntry(t *testing.T) {
	l := New()
	idx := l.RecordUnacked("HCBAAA", "p", 10)
	if err := l.PromoteToSent(idx); err != nil {
		t.Fatalf("PromoteToSent: %v", err)
	}
	if err := l.PromoteToSent(idx); err == nil {
		t.Error("expected error promoting already-promoted index")
	}
}

func TestPromoteToSentBadIndex(t *testing.T) {
	l := New()
	if err := l.PromoteToSent(0); err == nil {
		t.Error("expected error for out-of-range index")
	}
	if err := l.PromoteToSent(-1); err == nil {
		t.Error("expected error for negative index")
	}
}

func TestAckTimeNoSuffix(t *testing.T) {
	l := New()
	mid := protocol.NewMID(protocol.TypeAck, 'A', 'B')
	l.RecordRecv(mid, "HCBAAA", 500)

	ts, missing, found := l.AckTime("HCBAAA")
	if !found || ts != 500 || missing != nil {
		t.Errorf("AckTime = %d, %v, %v", ts, missing, found)
	}
}

func TestAckTimeCompleteSentinel(t *testing.T) {
	l := New()
	mid := protocol.NewMID(protocol.TypeAck, 'A', 'B')
	l.RecordRecv(mid, "HEBAAA:-1", 700)

	_, missing, found := l.AckTime("HEBAAA")
	if !found {
		t.Fatal("expected found")
	}
	if len(missing) != 1 || missing[0] != -1 {
		t.Errorf("missing = %v, want [-1]", missing)
	}
}

func TestAckTimeMissingList(t *testing.T) {
	l := New()
	mid := protocol.NewMID(protocol.TypeAck, 'A', 'B')
	l.RecordRecv(mid, "HEBAAA:3,7,19", 900)

	_, missing, found := l.AckTime("HEBAAA")
	if !found {
		t.Fatal("expected found")
	}
	want := []int{3, 7, 19}
	if len(missing) != len(want) {
		t.Fatalf("missing = %v, want %v", missing, want)
	}
	for i := range want {
		if missing[i] != want[i] {
			t.Errorf("missing[%d] = %d, want %d", i, missing[i], want[i])
		}
	}
}

func TestAckTimeNotFound(t *testing.T) {
	l := New()
	_, _, found := l.AckTime("HCBAAA")
	if found {
		t.Error("expected not found in empty log")
	}
}

func TestAckTimeIgnoresNonAckFrames(t *testing.T) {
	l := New()
	mid := protocol.NewMID(protocol.TypeHeartbeat, 'A', 'B')
	l.RecordRecv(mid, "HCBAAA", 100)

	_, _, found := l.AckTime("HCBAAA")
	if found {
		t.Error("non-ack frame should not satisfy AckTime")
	}
}

package node

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"netrajaal/config"
	"netrajaal/link"
	"netrajaal/protocol"
)

// fakePort is an in-memory host/serial.Port backed by an io.Pipe, the same
// shape link's own tests use, so Node can be exercised without a real
// device.
type fakePort struct {
	r *io.PipeReader
	w *io.PipeWriter

	mu      sync.Mutex
	written [][]byte
}

func newFakePort() *fakePort {
	r, w := io.Pipe()
	return &fakePort{r: r, w: w}
}

func (p *fakePort) Read(b []byte) (int, error) { return p.r.Read(b) }

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	p.written = append(p.written, append([]byte(nil), b...))
	p.mu.Unlock()
	return len(b), nil
}

func (p *fakePort) Close() error {
	p.r.Close()
	return p.w.Close()
}

func (p *fakePort) Flush() error { return nil }

func (p *fakePort) writtenCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.written)
}

func newTestNode(t *testing.T, addr string, isCC bool) (*Node, *fakePort) {
	t.Helper()
	port := newFakePort()
	l := link.New(port, nil)
	cfg := config.Default()
	cfg.Identity.Address = addr
	cfg.Identity.CC = isCC

	n, err := New(cfg, l, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return n, port
}

func TestNewRejectsBadAddress(t *testing.T) {
	port := newFakePort()
	l := link.New(port, nil)
	defer l.Close()
	cfg := config.Default()
	cfg.Identity.Address = "bad"

	if _, err := New(cfg, l, nil); err == nil {
		t.Error("expected error for invalid address")
	}
}

func TestSendBroadcastScanWritesOneFrame(t *testing.T) {
	n, port := newTestNode(t, "B", false)
	defer n.link.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ok := n.Send(ctx, protocol.TypeScan, "HELLO", protocol.Broadcast)
	if !ok {
		t.Fatal("expected broadcast send to succeed")
	}
	if port.writtenCount() != 1 {
		t.Errorf("expected one frame written, got %d", port.writtenCount())
	}
}

func TestLogStatusDoesNotPanic(t *testing.T) {
	n, _ := newTestNode(t, "B", false)
	defer n.link.Close()

	n.discovery.OnScan('A', "A")
	n.LogStatus()
}

func TestOnCompleteEventWithoutImageStoreDoesNotPanic(t *testing.T) {
	n, _ := newTestNode(t, "B", false)
	defer n.link.Close()

	n.onComplete(protocol.TypeEvent, 'A', "TID", "payload")
}

func TestRunStopsCleanlyOnContextCancel(t *testing.T) {
	n, _ := newTestNode(t, "B", false)
	defer n.link.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		n.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestNewSeedsDiscoveryFromStaticPeers(t *testing.T) {
	port := newFakePort()
	l := link.New(port, nil)
	defer l.Close()
	cfg := config.Default()
	cfg.Identity.Address = "B"
	cfg.Routing.StaticPeers = []string{"A", "C"}

	n, err := New(cfg, l, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	neighbors := n.discovery.Neighbors()
	if len(neighbors) != 2 {
		t.Fatalf("expected 2 seeded neighbors, got %d: %+v", len(neighbors), neighbors)
	}
	seen := map[byte]bool{}
	for _, nb := range neighbors {
		seen[nb.Addr] = true
	}
	if !seen['A'] || !seen['C'] {
		t.Errorf("expected neighbors A and C, got %+v", neighbors)
	}
}

func TestCCNodeAdvertisesOwnAddress(t *testing.T) {
	n, _ := newTestNode(t, "C", true)
	defer n.link.Close()

	if !n.IsCC {
		t.Fatal("expected IsCC true")
	}
	adv, ok := n.discovery.Advertisement()
	if !ok || adv != "C" {
		t.Errorf("CC Advertisement = %q, %v, want \"C\", true", adv, ok)
	}
}

package link

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"
)

// fakePort is an in-memory serial.Port backed by an io.Pipe, used so link
// tests never touch a real device.
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
	cp := append([]byte(nil), b...)
	p.written = append(p.written, cp)
	p.mu.Unlock()
	return len(b), nil
}

func (p *fakePort) Close() error {
	p.r.Close()
	return p.w.Close()
}

func (p *fakePort) Flush() error { return nil }

// feed writes raw bytes into the "radio" side of the pipe, simulating
// inbound serial data.
func (p *fakePort) feed(b []byte) {
	go p.w.Write(b)
}

func (p *fakePort) writtenFrames() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written
}

func TestLinkReadFrameYieldsOneLine(t *testing.T) {
	port := newFakePort()
	l := New(port, nil)
	defer l.Close()

	port.feed([]byte("HABXYZ;hello\n"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	line, err := l.ReadFrame(ctx)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if string(line) != "HABXYZ;hello" {
		t.Errorf("ReadFrame = %q, want %q", line, "HABXYZ;hello")
	}
}

func TestLinkReadFrameSplitAcrossWrites(t *testing.T) {
	port := newFakePort()
	l := New(port, nil)
	defer l.Close()

	port.feed([]byte("HABXYZ;par"))
	time.Sleep(10 * time.Millisecond)
	port.feed([]byte("tial\n"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	line, err := l.ReadFrame(ctx)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if string(line) != "HABXYZ;partial" {
		t.Errorf("ReadFrame = %q, want %q", line, "HABXYZ;partial")
	}
}

func TestLinkReadFrameMultipleLines(t *testing.T) {
	port := newFakePort()
	l := New(port, nil)
	defer l.Close()

	port.feed([]byte("HABAAA;one\nHABBBB;two\n"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	first, err := l.ReadFrame(ctx)
	if err != nil {
		t.Fatalf("ReadFrame first: %v", err)
	}
	second, err := l.ReadFrame(ctx)
	if err != nil {
		t.Fatalf("ReadFrame second: %v", err)
	}
	if string(first) != "HABAAA;one" || string(second) != "HABBBB;two" {
		t.Errorf("got %q, %q", first, second)
	}
}

func TestLinkWriteSendsFullFrame(t *testing.T) {
	port := newFakePort()
	l := New(port, nil)
	defer l.Close()

	frame := []byte("HABXYZ;payload\n")
	if err := l.Write(frame); err != nil {
		t.Fatalf("Write: %v", err)
	}

	frames := port.writtenFrames()
	if len(frames) != 1 || string(frames[0]) != string(frame) {
		t.Errorf("written frames = %v, want [%q]", frames, frame)
	}
}

func TestLinkReadFrameContextCancelled(t *testing.T) {
	port := newFakePort()
	l := New(port, nil)
	defer l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := l.ReadFrame(ctx); err == nil {
		t.Error("expected error from cancelled context")
	}
}

func TestLinkWriteAfterCloseFails(t *testing.T) {
	port := newFakePort()
	l := New(port, nil)
	l.Close()

	if err := l.Write([]byte("HABXYZ;x\n")); err == nil {
		t.Error("expected error writing to closed link")
	}
}

// Package link implements the Netrajaal line-oriented byte transport (C2,
// spec.md §4.2) on top of the out-of-scope physical serial driver
// (host/serial). It writes complete frames and delivers inbound frames
// terminated by '\n', reading ahead in a background goroutine the way the
// teacher's HostTransport.readLoop does.
package link

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"netrajaal/host/serial"
	"netrajaal/protocol"
)

// ErrClosed is returned by Write/ReadFrame once the link has been closed.
var ErrClosed = errors.New("link: closed")

// inboundBufSize is the FifoBuffer capacity used while hunting for a
// newline; frames are bounded by protocol.FrameSize, so a few multiples of
// that comfortably covers one frame plus whatever the next one has already
// trickled in.
const inboundBufSize = 4096

// Link is the C2 transport: write a complete frame, or block until one
// inbound line arrives.
type Link struct {
	port serial.Port
	log  *logrus.Entry

	writeMu sync.Mutex

	lines    chan []byte
	readErrs chan error

	closeOnce sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// New wraps an already-open serial.Port and starts the background reader.
func New(port serial.Port, log *logrus.Entry) *Link {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	l := &Link{
		port:     port,
		log:      log.WithField("component", "link"),
		lines:    make(chan []byte, 8),
		readErrs: make(chan error, 1),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	go l.readLoop()
	return l
}

// Write transmits a complete frame. It is safe to call from multiple
// goroutines; writes are serialized so frames from concurrent tasks are
// never interleaved on the wire (spec.md §5).
func (l *Link) Write(frame []byte) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	select {
	case <-l.stopCh:
		return ErrClosed
	default:
	}

	n, err := l.port.Write(frame)
	if err != nil {
		return err
	}
	if n != len(frame) {
		return io.ErrShortWrite
	}
	return nil
}

// ReadFrame blocks until one newline-terminated line has arrived (returned
// without the trailing '\n'), the context is done, or the link is closed.
func (l *Link) ReadFrame(ctx context.Context) ([]byte, error) {
	select {
	case line := <-l.lines:
		return line, nil
	case err := <-l.readErrs:
		return nil, err
	case <-l.stopCh:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the background reader and closes the underlying port.
func (l *Link) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.stopCh)
		// Closing the port unblocks a reader stuck in port.Read.
		err = l.port.Close()
		<-l.doneCh
	})
	return err
}

// readLoop reads raw bytes from the serial port, buffers them in a
// FifoBuffer, and emits one complete line per '\n' encountered — the same
// background-reader-plus-channel-handoff shape as HostTransport.readLoop,
// simplified to a delimiter scan instead of sync-byte/CRC resynchronization.
func (l *Link) readLoop() {
	defer close(l.doneCh)

	fifo := protocol.NewFifoBuffer(inboundBufSize)
	raw := make([]byte, 256)

	for {
		select {
		case <-l.stopCh:
			return
		default:
		}

		n, err := l.port.Read(raw)
		if n > 0 {
			if fifo.Write(raw[:n]) < n {
				l.log.Warn("inbound buffer full, dropping bytes")
			}
			l.drainLines(fifo)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			select {
			case l.readErrs <- err:
			case <-l.stopCh:
			default:
				l.log.WithError(err).Warn("serial read error, continuing")
			}
		}
	}
}

// drainLines extracts every complete '\n'-terminated line currently
// buffered and publishes it on l.lines.
func (l *Link) drainLines(fifo *protocol.FifoBuffer) {
	for {
		data := fifo.Data()
		idx := indexByte(data, '\n')
		if idx < 0 {
			return
		}
		line := make([]byte, idx)
		copy(line, data[:idx])
		fifo.Pop(idx + 1) // consume the line and its newline

		select {
		case l.lines <- line:
		case <-l.stopCh:
			return
		}
	}
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

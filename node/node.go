// Package node implements the Netrajaal cooperative scheduler (C10,
// spec.md §4.10): the single aggregate owning a node's link, message log,
// reassembler, discovery state, and metrics, plus the goroutines that
// drive its periodic tasks. The prototype's single-threaded cooperative
// event loop becomes several goroutines synchronized through this one
// struct, modeled on the teacher's HostTransport field shape (stop/done
// channels, a background reader goroutine, mutex-protected shared state)
// generalized from "one reader plus one ack-waiter" to N independent
// periodic tasks sharing one Link.
package node

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"netrajaal/chunked"
	"netrajaal/config"
	"netrajaal/discovery"
	"netrajaal/link"
	"netrajaal/metrics"
	"netrajaal/msglog"
	"netrajaal/protocol"
	"netrajaal/reassembler"
	"netrajaal/receiver"
	"netrajaal/sender"
	"netrajaal/sensor"
)

const (
	scanPeriod      = 10 * time.Second
	heartbeatPeriod = 30 * time.Second
	spathPeriod     = 300 * time.Second
)

// Node is the C10 scheduler: one node's complete mutable state plus its
// cooperative tasks.
type Node struct {
	Addr byte
	IsCC bool

	link        *link.Link
	log         *msglog.Log
	clock       protocol.Clock
	sender      *sender.Sender
	chunked     *chunked.Engine
	reassembler *reassembler.Reassembler
	discovery   *discovery.Discovery
	receiver    *receiver.Receiver
	metrics     *metrics.Collector
	entry       *logrus.Entry

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New builds a Node from configuration and an already-open Link.
func New(cfg *config.Node, l *link.Link, entry *logrus.Entry) (*Node, error) {
	addr, err := cfg.AddressByte()
	if err != nil {
		return nil, err
	}
	if entry == nil {
		entry = logrus.NewEntry(logrus.StandardLogger())
	}
	entry = entry.WithField("node", string(rune(addr)))

	clock := protocol.NewMonotonicClock()
	msgLog := msglog.New()
	mx := metrics.New(addr)
	snd := sender.New(l, msgLog, clock, addr, mx, entry)
	ra := reassembler.New()
	disc := discovery.New(addr, cfg.Identity.CC, snd, entry)
	for _, peer := range cfg.Routing.StaticPeers {
		if len(peer) == 1 {
			disc.SeedNeighbor(peer[0])
		}
	}
	engine := chunked.New(snd, mx, entry)

	n := &Node{
		Addr:        addr,
		IsCC:        cfg.Identity.CC,
		link:        l,
		log:         msgLog,
		clock:       clock,
		sender:      snd,
		chunked:     engine,
		reassembler: ra,
		discovery:   disc,
		metrics:     mx,
		entry:       entry,
		stopCh:      make(chan struct{}),
	}

	rcv := receiver.New(addr, l, msgLog, clock, ra, disc, entry)
	rcv.OnHeartbeat = n.onHeartbeat
	rcv.OnComplete = n.onComplete
	n.receiver = rcv

	protocol.Flakiness = cfg.Routing.Flakiness

	return n, nil
}

// Metrics returns the node's Prometheus collector, for registration with a
// metrics registry in cmd/netrajaal-node.
func (n *Node) Metrics() *metrics.Collector {
	return n.metrics
}

// Send pushes an arbitrary payload to dest through the chunked transfer
// engine, which delegates to the unit sender for sub-frame payloads.
func (n *Node) Send(ctx context.Context, msgType protocol.MsgType, payload string, dest byte) bool {
	return n.chunked.Send(ctx, msgType, payload, dest)
}

// Run starts the cooperative tasks and blocks until ctx is done or Stop is
// called.
func (n *Node) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	n.wg.Add(2)
	go n.radioRead(ctx)
	go n.sendScanLoop(ctx)

	if !n.IsCC {
		n.wg.Add(1)
		go n.sendHeartbeatLoop(ctx)
	}

	n.wg.Add(1)
	go n.sendSpathLoop(ctx)

	select {
	case <-ctx.Done():
	case <-n.stopCh:
	}
	cancel() // unblocks radioRead's pending ReadFrame
	n.Stop()
}

// Stop signals every task to exit and waits for them to finish.
func (n *Node) Stop() {
	n.stopOnce.Do(func() { close(n.stopCh) })
	n.wg.Wait()
}

// radioRead is the continuous task: read and dispatch every inbound frame
// (spec.md §4.10's radio_read).
func (n *Node) radioRead(ctx context.Context) {
	defer n.wg.Done()
	for {
		select {
		case <-n.stopCh:
			return
		default:
		}

		line, err := n.link.ReadFrame(ctx)
		if err != nil {
			if errors.Is(err, link.ErrClosed) || ctx.Err() != nil {
				return
			}
			n.entry.WithError(err).Warn("read frame failed")
			continue
		}
		n.receiver.Process(line)
	}
}

// sendScanLoop broadcasts a Scan frame every scanPeriod.
func (n *Node) sendScanLoop(ctx context.Context) {
	defer n.wg.Done()
	ticker := time.NewTicker(scanPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-n.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.sender.SendSingle(ctx, protocol.TypeScan, n.discovery.SelfIdentifier(), protocol.Broadcast)
			n.metrics.RecordSent(string(rune(protocol.TypeScan)))
		}
	}
}

// sendHeartbeatLoop sends a Heartbeat to the first hop of the current
// shortest path to CC every heartbeatPeriod, skipping entirely when no path
// is installed (spec.md §4.9's last rule). Non-CC nodes only.
func (n *Node) sendHeartbeatLoop(ctx context.Context) {
	defer n.wg.Done()
	ticker := time.NewTicker(heartbeatPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-n.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			hop, ok := n.discovery.NextHop()
			if !ok {
				continue
			}
			payload := protocol.FormatClock(n.clock.NowMS())
			n.sender.SendSingle(ctx, protocol.TypeHeartbeat, payload, hop)
			n.metrics.RecordSent(string(rune(protocol.TypeHeartbeat)))
		}
	}
}

// sendSpathLoop re-advertises this node's path to CC to every known
// neighbor every spathPeriod, but only while there is something to
// advertise (CC always does; other nodes only once they have installed a
// path — spec.md §4.10's "only on CC/advertisers").
func (n *Node) sendSpathLoop(ctx context.Context) {
	defer n.wg.Done()
	ticker := time.NewTicker(spathPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-n.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			adv, ok := n.discovery.Advertisement()
			if !ok {
				continue
			}
			for _, nb := range n.discovery.Neighbors() {
				n.sender.SendSingle(ctx, protocol.TypeSpath, adv, nb.Addr)
				n.metrics.RecordSent(string(rune(protocol.TypeSpath)))
			}
		}
	}
}

// onHeartbeat is the receiver callback for inbound Heartbeat frames; the
// spec leaves aggregation to the upper layer, so this just logs liveness.
func (n *Node) onHeartbeat(sender byte, payload string) {
	n.entry.WithField("from", string(rune(sender))).WithField("payload", payload).Debug("heartbeat received")
}

// onComplete is the receiver callback for a fully reassembled chunked
// transfer. Event-typed transfers are handed to the registered image
// store, if any (spec.md §1's person-detection/image-capture expansion);
// everything else is just logged.
func (n *Node) onComplete(innerType protocol.MsgType, sender byte, tid string, payload string) {
	n.entry.WithField("from", string(rune(sender))).
		WithField("tid", tid).
		WithField("payload", protocol.Ellipsize(payload)).
		Info("chunked transfer complete")

	if innerType == protocol.TypeEvent && sensor.HasImageStore() {
		name := string(rune(sender)) + "-" + tid
		if err := sensor.MustImageStore().Save(name, []byte(payload)); err != nil {
			n.entry.WithError(err).Warn("image store save failed")
		}
	}
}

// LogStatus implements spec.md §4.10's optional on-demand log_status task:
// a one-shot summary of this node's current discovery state.
func (n *Node) LogStatus() {
	neighbors := n.discovery.Neighbors()
	adv, hasAdv := n.discovery.Advertisement()
	hop, hasHop := n.discovery.NextHop()

	n.metrics.SetNeighborCount(len(neighbors))
	if hasAdv && !n.IsCC {
		// adv is "self,hop1,...,CC"; the installed path is everything after self.
		n.metrics.SetPathLength(strings.Count(adv, ","))
	} else {
		n.metrics.SetPathLength(0)
	}

	fields := logrus.Fields{
		"neighbors": len(neighbors),
		"next_hop":  "none",
	}
	if hasHop {
		fields["next_hop"] = string(rune(hop))
	}
	n.entry.WithFields(fields).Info("status")
}

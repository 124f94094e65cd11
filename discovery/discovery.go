// Package discovery implements the Netrajaal neighbor-scan and
// shortest-path-to-CC pathing logic (C9, spec.md §4.9). The prototype's
// module-level shortest_path_to_cc/seen_neighbours globals become fields on
// one struct per the spec's own Design Note §9 ("global mutable state
// becomes a single owned aggregate").
package discovery

import (
	"context"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"netrajaal/protocol"
)

// UnitSender is the minimal C5 surface discovery needs to re-advertise a
// newly installed path; satisfied by *sender.Sender.
type UnitSender interface {
	SendSingle(ctx context.Context, msgType protocol.MsgType, payload string, dest byte) (ok bool, missing []int)
}

// Neighbor is one entry in the seen-neighbours set: the address the scan
// frame actually arrived from, paired with the self-identifier payload it
// announced (spec.md §8 S5 appends the announced payload, not the address,
// so both are kept).
type Neighbor struct {
	Addr       byte
	Identifier string
}

// Discovery is the C9 scan/path state machine, bound to one node's address.
type Discovery struct {
	mu sync.Mutex

	addr byte
	isCC bool

	neighbors []Neighbor
	path      []string // shortest_path_to_cc, ordered hop-by-hop, path[0] is the next hop

	sender UnitSender
	entry  *logrus.Entry
}

// New builds a Discovery for a node identified by addr. isCC marks this
// node as the coordinator, which ignores inbound Path frames (spec.md §4.9).
func New(addr byte, isCC bool, sender UnitSender, entry *logrus.Entry) *Discovery {
	if entry == nil {
		entry = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Discovery{addr: addr, isCC: isCC, sender: sender, entry: entry.WithField("component", "discovery")}
}

// SelfIdentifier is the payload this node announces in its own Scan frames.
func (d *Discovery) SelfIdentifier() string {
	return string(rune(d.addr))
}

// OnScan handles an inbound Scan frame: if the sending address has not
// been seen before, append its announced identifier to the neighbor set
// (spec.md §8 S5).
func (d *Discovery) OnScan(sender byte, payload string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.addNeighborLocked(sender, payload)
}

// SeedNeighbor pre-populates the neighbor set with an address an operator
// already knows is reachable, without waiting for a Scan frame to arrive
// from it (config.Routing.StaticPeers). Identical in effect to an OnScan
// from that address announcing its own wire address as its identifier.
func (d *Discovery) SeedNeighbor(addr byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.addNeighborLocked(addr, string(rune(addr)))
}

func (d *Discovery) addNeighborLocked(addr byte, identifier string) {
	for _, n := range d.neighbors {
		if n.Addr == addr {
			return
		}
	}
	d.neighbors = append(d.neighbors, Neighbor{Addr: addr, Identifier: identifier})
}

// OnPath handles an inbound Path frame per spec.md §4.9: CC nodes ignore
// it; empty payloads and cycles (my_addr already in the chain) are
// rejected; a strictly shorter chain than the currently known path
// replaces it and is re-advertised, prefixed with this node's own address,
// to every known neighbor.
func (d *Discovery) OnPath(sender byte, payload string) {
	if d.isCC {
		return
	}
	if payload == "" {
		return
	}
	chain := strings.Split(payload, ",")
	myTok := d.SelfIdentifier()
	for _, c := range chain {
		if c == myTok {
			d.entry.WithField("chain", payload).Debug("path rejected: cycle")
			return
		}
	}

	d.mu.Lock()
	if len(d.path) != 0 && len(chain) >= len(d.path) {
		d.mu.Unlock()
		return
	}
	d.path = chain
	neighbors := append([]Neighbor(nil), d.neighbors...)
	d.mu.Unlock()

	advertisement := myTok + "," + strings.Join(chain, ",")
	for _, n := range neighbors {
		if d.sender != nil {
			d.sender.SendSingle(context.Background(), protocol.TypeSpath, advertisement, n.Addr)
		}
	}
}

// NextHop reports the first hop of the current shortest path to CC, if
// any, for heartbeat routing (spec.md §4.9's last rule).
func (d *Discovery) NextHop() (byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.path) == 0 || len(d.path[0]) == 0 {
		return 0, false
	}
	return d.path[0][0], true
}

// Advertisement returns the payload this node should send in its own
// periodic Path frame: a CC node always advertises just its own address;
// any other node only has something to advertise once it has installed a
// path toward CC.
func (d *Discovery) Advertisement() (string, bool) {
	if d.isCC {
		return d.SelfIdentifier(), true
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.path) == 0 {
		return "", false
	}
	return d.SelfIdentifier() + "," + strings.Join(d.path, ","), true
}

// Neighbors returns a snapshot of the known neighbor set.
func (d *Discovery) Neighbors() []Neighbor {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Neighbor(nil), d.neighbors...)
}

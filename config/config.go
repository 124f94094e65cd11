// Package config loads Netrajaal node configuration from a TOML file, in
// the convention xendarboh-katzenpost uses for its mailproxy/client
// configuration (a single [Section]-delimited TOML document, decoded with
// github.com/BurntSushi/toml). CLI flag overrides are applied by
// cmd/netrajaal-node, not by this package.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Node is the static configuration of one Netrajaal relay node.
type Node struct {
	Identity Identity
	Serial   Serial
	Routing  Routing
}

// Identity names this node on the mesh.
type Identity struct {
	// Address is the node's single-letter wire address (spec.md §3).
	Address string
	// CC marks this node as the coordinator; CC nodes ignore inbound Path
	// frames and always advertise their own address (spec.md §4.9).
	CC bool
}

// Serial configures the physical UART link.
type Serial struct {
	Device      string
	Baud        int
	ReadTimeout int
}

// Routing carries static knowledge an operator may want to seed a node
// with instead of waiting for it to discover the mesh on its own.
type Routing struct {
	// StaticPeers are addresses assumed reachable without a prior scan.
	StaticPeers []string
	// Flakiness is the synthetic inbound-drop percentage (spec.md §4.7
	// step 2); zero in production, non-zero only under test.
	Flakiness int
}

// Default returns a Node configuration with the spec's default protocol
// constants (spec.md §6) and no identity assigned.
func Default() *Node {
	return &Node{
		Serial: Serial{
			Baud:        57600,
			ReadTimeout: 100,
		},
	}
}

// Load decodes a TOML configuration file at path into a new Node.
func Load(path string) (*Node, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, nil
}

// AddressByte validates and returns Identity.Address as its single wire
// byte.
func (n *Node) AddressByte() (byte, error) {
	if len(n.Identity.Address) != 1 {
		return 0, fmt.Errorf("config: identity.address must be exactly one letter, got %q", n.Identity.Address)
	}
	b := n.Identity.Address[0]
	if b < 'A' || b > 'Z' {
		return 0, fmt.Errorf("config: identity.address must be an uppercase letter, got %q", n.Identity.Address)
	}
	return b, nil
}

// Package onion builds and tears down four-layer onion-encrypted RPC
// envelopes for a decentralized storage-node swarm.
package onion

import "strconv"

// ServiceNode is a storage swarm member as advertised by the seed directory.
type ServiceNode struct {
	PublicIP          string `json:"public_ip"`
	StoragePort       uint16 `json:"storage_port"`
	StorageLMQPort    uint16 `json:"storage_lmq_port"`
	ServiceNodePubkey string `json:"service_node_pubkey"`
	OperatorAddress   string `json:"operator_address"`
	PubkeyX25519      string `json:"pubkey_x25519"`
	PubkeyEd25519     string `json:"pubkey_ed25519"`
	SwarmID           uint64 `json:"swarm_id"`
}

func (n ServiceNode) String() string {
	return n.PublicIP + ":" + strconv.Itoa(int(n.StoragePort))
}

// ServerEndpoint is a V1 file/open-group server target: host and path only.
type ServerEndpoint struct {
	Host         string `json:"host"`
	Target       string `json:"target"`
	PubkeyX25519 string `json:"pubkey_x25519"`
}

func (s ServerEndpoint) String() string {
	return s.Host + s.Target
}

// ServerEndpointV2 additionally carries an explicit port and protocol,
// needed for servers that don't answer on the implicit default.
type ServerEndpointV2 struct {
	Host         string `json:"host"`
	Target       string `json:"target"`
	Port         uint16 `json:"port"`
	Protocol     string `json:"protocol"`
	PubkeyX25519 string `json:"pubkey_x25519"`
}

func (s ServerEndpointV2) String() string {
	return s.Host + s.Target
}

// hopKind tags which variant a NextHop currently holds. NextHop is
// implemented as a tagged struct rather than an interface so callers can
// copy it by value and branch on IsNode/IsServer/IsServerV2 without a type
// assertion.
type hopKind int

const (
	hopNode hopKind = iota
	hopServer
	hopServerV2
)

// NextHop names a single routing destination: a storage node, a V1 server,
// or a V2 server. Exactly one of the embedded fields is meaningful,
// selected by kind.
type NextHop struct {
	kind     hopKind
	node     ServiceNode
	server   ServerEndpoint
	serverV2 ServerEndpointV2
}

// NewNodeHop wraps a storage node as a routing destination.
func NewNodeHop(n ServiceNode) NextHop { return NextHop{kind: hopNode, node: n} }

// NewServerHop wraps a V1 server as a routing destination.
func NewServerHop(s ServerEndpoint) NextHop { return NextHop{kind: hopServer, server: s} }

// NewServerV2Hop wraps a V2 server as a routing destination.
func NewServerV2Hop(s ServerEndpointV2) NextHop { return NextHop{kind: hopServerV2, serverV2: s} }

// IsNode reports whether the hop is a storage node.
func (h NextHop) IsNode() bool { return h.kind == hopNode }

// Node returns the wrapped storage node. Panics if the hop isn't a Node.
func (h NextHop) Node() ServiceNode {
	if h.kind != hopNode {
		panic("onion: Node() called on a non-Node hop")
	}
	return h.node
}

// IsServer reports whether the hop is a V1 server.
func (h NextHop) IsServer() bool { return h.kind == hopServer }

// Server returns the wrapped V1 server. Panics if the hop isn't a Server.
func (h NextHop) Server() ServerEndpoint {
	if h.kind != hopServer {
		panic("onion: Server() called on a non-Server hop")
	}
	return h.server
}

// IsServerV2 reports whether the hop is a V2 server.
func (h NextHop) IsServerV2() bool { return h.kind == hopServerV2 }

// ServerV2 returns the wrapped V2 server. Panics if the hop isn't a ServerV2.
func (h NextHop) ServerV2() ServerEndpointV2 {
	if h.kind != hopServerV2 {
		panic("onion: ServerV2() called on a non-ServerV2 hop")
	}
	return h.serverV2
}

// PubkeyX25519 returns the hop's hex-encoded X25519 public key regardless
// of which variant it holds.
func (h NextHop) PubkeyX25519() string {
	switch h.kind {
	case hopNode:
		return h.node.PubkeyX25519
	case hopServer:
		return h.server.PubkeyX25519
	case hopServerV2:
		return h.serverV2.PubkeyX25519
	default:
		return ""
	}
}

func (h NextHop) String() string {
	switch h.kind {
	case hopNode:
		return h.node.String()
	case hopServer:
		return h.server.String()
	case hopServerV2:
		return h.serverV2.String()
	default:
		return "<unset hop>"
	}
}

// OnionPath is the three relay hops plus the final target a request
// traverses: node_1 (guard) -> node_2 -> node_3 -> target.
type OnionPath struct {
	Node1  NextHop
	Node2  NextHop
	Node3  NextHop
	Target NextHop
}


package mavlink

import "fmt"

// NodeID is a MAVLink system or component id, 0..255, or the wildcard ANY
// used in filters.
type NodeID int

// ANY matches any concrete NodeID value during filtering.
const ANY NodeID = -1

// DefaultNodeID is used when the caller does not specify a system/component
// pair of its own.
var DefaultNodeID = Identity{SystemID: NodeID(DefaultSystemID), ComponentID: NodeID(DefaultComponentID)}

// Matches reports whether the receiver (typically a filter, which may be
// ANY) matches a concrete id.
func (n NodeID) Matches(id NodeID) bool {
	return n == ANY || n == id
}

// Identity is the (system_id, component_id) pair found in every message
// header: who sent it, or who a filter should accept.
type Identity struct {
	SystemID    NodeID
	ComponentID NodeID
}

// Matches reports whether this identity (used as a filter; fields may be
// ANY) matches a concrete header identity.
func (i Identity) Matches(other Identity) bool {
	return i.SystemID.Matches(other.SystemID) && i.ComponentID.Matches(other.ComponentID)
}

// String renders the identity as "system/component" for logging.
func (i Identity) String() string {
	return fmt.Sprintf("%d/%d", i.SystemID, i.ComponentID)
}

// PeerAddress is the transport-level identity of the other endpoint of a
// byte stream or datagram: a 32-bit address, a 16-bit port, and whether the
// link is a serial line (which has no real port namespace). It is a small
// comparable struct, usable directly as a map key in the runtime's
// connection table.
type PeerAddress struct {
	Address  uint32
	Port     uint16
	IsSerial bool
}

// BroadcastPeer is the distinguished address meaning "every known peer" when
// handed to a connection-oriented transport, and an error on a
// connection-less one.
var BroadcastPeer = PeerAddress{Address: 0, Port: 0, IsSerial: false}

// IsBroadcast reports whether this address is the distinguished broadcast
// address.
func (p PeerAddress) IsBroadcast() bool {
	return p == BroadcastPeer
}

// String renders the peer address for logging.
func (p PeerAddress) String() string {
	if p.IsSerial {
		return fmt.Sprintf("serial:%d", p.Address)
	}
	return fmt.Sprintf("%d:%d", p.Address, p.Port)
}

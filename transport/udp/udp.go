// Package udp implements a connectionless Transport over net.PacketConn.
// Because UDP is message-oriented while the stream parser reads a frame a
// few bytes at a time, each datagram is buffered internally and served out
// across however many Receive calls it takes to drain it.
package udp

import (
	"errors"
	"net"
	"sync"

	"github.com/gomav/mavlink"
	"github.com/gomav/mavlink/transport"
)

const maxDatagram = 65507

// Conn wraps a net.PacketConn as a Transport.
type Conn struct {
	pc net.PacketConn

	writeMu sync.Mutex

	readMu      sync.Mutex
	pending     []byte
	pendingPeer mavlink.PeerAddress
}

var _ transport.Transport = (*Conn)(nil)

var errShortDatagram = errors.New("udp: datagram shorter than requested read")

// Listen opens a UDP socket bound to addr.
func Listen(addr string) (*Conn, error) {
	pc, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, &transport.NetworkError{Op: "listen", Err: err}
	}
	return NewConn(pc), nil
}

// NewConn wraps an already-bound net.PacketConn.
func NewConn(pc net.PacketConn) *Conn {
	return &Conn{pc: pc}
}

// Send writes one datagram to peer. The broadcast peer is unsupported on a
// connectionless transport.
func (c *Conn) Send(data []byte, peer mavlink.PeerAddress) error {
	if peer.IsBroadcast() {
		return transport.ErrBroadcastUnsupported
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	addr := &net.UDPAddr{IP: ipFromAddr(peer.Address), Port: int(peer.Port)}
	if _, err := c.pc.WriteTo(data, addr); err != nil {
		return &transport.NetworkError{Op: "send", Err: err}
	}
	return nil
}

// Receive reads exactly len(buf) bytes, fetching a fresh datagram as
// needed, and returns the sender's address.
func (c *Conn) Receive(buf []byte) (mavlink.PeerAddress, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	need := len(buf)
	if len(c.pending) == 0 {
		if err := c.fetch(); err != nil {
			return mavlink.PeerAddress{}, err
		}
	}
	if len(c.pending) < need {
		c.pending = nil
		if err := c.fetch(); err != nil {
			return mavlink.PeerAddress{}, err
		}
		if len(c.pending) < need {
			return mavlink.PeerAddress{}, &transport.NetworkError{Op: "receive", Err: errShortDatagram}
		}
	}

	copy(buf, c.pending[:need])
	c.pending = c.pending[need:]
	return c.pendingPeer, nil
}

func (c *Conn) fetch() error {
	tmp := make([]byte, maxDatagram)
	n, addr, err := c.pc.ReadFrom(tmp)
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			return transport.ErrClosed
		}
		return &transport.NetworkError{Op: "receive", Err: err}
	}
	c.pending = tmp[:n]
	c.pendingPeer = peerFromAddr(addr)
	return nil
}

// Close closes the underlying socket.
func (c *Conn) Close() error {
	return c.pc.Close()
}

// MarkResync discards any buffered remainder of the current datagram.
func (c *Conn) MarkResync() {
	c.readMu.Lock()
	c.pending = nil
	c.readMu.Unlock()
}

// IsConnectionOriented always reports false.
func (c *Conn) IsConnectionOriented() bool { return false }

func ipFromAddr(a uint32) net.IP {
	return net.IPv4(byte(a>>24), byte(a>>16), byte(a>>8), byte(a))
}

func peerFromAddr(a net.Addr) mavlink.PeerAddress {
	udpAddr, ok := a.(*net.UDPAddr)
	if !ok {
		return mavlink.PeerAddress{}
	}
	var addr uint32
	ip4 := udpAddr.IP.To4()
	if ip4 != nil {
		addr = uint32(ip4[0])<<24 | uint32(ip4[1])<<16 | uint32(ip4[2])<<8 | uint32(ip4[3])
	}
	return mavlink.PeerAddress{Address: addr, Port: uint16(udpAddr.Port)}
}

// Package tcp implements a connection-oriented Transport over net.Conn.
package tcp

import (
	"errors"
	"io"
	"net"
	"sync"

	"github.com/gomav/mavlink"
	"github.com/gomav/mavlink/transport"
)

// Conn wraps a single net.Conn as a Transport. Its peer address is fixed
// for the life of the connection (there is only one remote on a TCP
// stream).
type Conn struct {
	nc   net.Conn
	peer mavlink.PeerAddress

	writeMu sync.Mutex
}

var _ transport.Transport = (*Conn)(nil)

// Dial opens a client connection to addr and wraps it as a Transport,
// reporting peer on every Receive. A zero-value peer is replaced with one
// derived from the dialed remote address.
func Dial(addr string, peer mavlink.PeerAddress) (*Conn, error) {
	nc, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, &transport.NetworkError{Op: "dial", Err: err}
	}
	if peer == (mavlink.PeerAddress{}) {
		peer = peerFromAddr(nc.RemoteAddr())
	}
	return NewConn(nc, peer), nil
}

// NewConn wraps an already-established net.Conn.
func NewConn(nc net.Conn, peer mavlink.PeerAddress) *Conn {
	return &Conn{nc: nc, peer: peer}
}

// Send writes data to the connection's sole remote, or to every currently
// known client if Send is called through a Server's broadcast path (a bare
// Conn only ever has one remote, so a broadcast peer here is equivalent to
// addressing that remote directly).
func (c *Conn) Send(data []byte, peer mavlink.PeerAddress) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.nc.Write(data); err != nil {
		return &transport.NetworkError{Op: "send", Err: err}
	}
	return nil
}

// Receive reads exactly len(buf) bytes from the connection.
func (c *Conn) Receive(buf []byte) (mavlink.PeerAddress, error) {
	if _, err := io.ReadFull(c.nc, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF || errors.Is(err, net.ErrClosed) {
			return mavlink.PeerAddress{}, transport.ErrClosed
		}
		return mavlink.PeerAddress{}, &transport.NetworkError{Op: "receive", Err: err}
	}
	return c.peer, nil
}

// Close closes the underlying net.Conn.
func (c *Conn) Close() error {
	return c.nc.Close()
}

// MarkResync is a no-op: TCP has no datagram boundary to discard.
func (c *Conn) MarkResync() {}

// IsConnectionOriented always reports true.
func (c *Conn) IsConnectionOriented() bool { return true }

// peerFromAddr derives a PeerAddress from a net.Addr, used by both Dial
// callers that want one computed automatically and by Server.
func peerFromAddr(a net.Addr) mavlink.PeerAddress {
	tcpAddr, ok := a.(*net.TCPAddr)
	if !ok {
		return mavlink.PeerAddress{}
	}
	var addr uint32
	ip4 := tcpAddr.IP.To4()
	if ip4 != nil {
		addr = uint32(ip4[0])<<24 | uint32(ip4[1])<<16 | uint32(ip4[2])<<8 | uint32(ip4[3])
	}
	return mavlink.PeerAddress{Address: addr, Port: uint16(tcpAddr.Port)}
}

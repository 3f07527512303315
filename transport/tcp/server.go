package tcp

import (
	"errors"
	"io"
	"net"
	"sync"

	"github.com/gomav/mavlink"
	"github.com/gomav/mavlink/transport"
)

// Server listens for TCP clients and presents them as a single shared
// Transport: Receive serves one client connection to completion (until it
// disconnects) before moving on to the next accepted one, and Send can
// address a specific known client or the broadcast peer to fan out to all
// of them. Running one network.Runtime per Server.Accept result instead
// gives true concurrent multi-client service; this shared-Transport shape
// exists because spec.md's Transport interface is built around one
// Receive loop feeding one stream parser.
type Server struct {
	ln net.Listener

	mu      sync.Mutex
	clients map[mavlink.PeerAddress]net.Conn

	current     net.Conn
	currentPeer mavlink.PeerAddress
}

var _ transport.Transport = (*Server)(nil)

// Listen opens a TCP listener on addr.
func Listen(addr string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, &transport.NetworkError{Op: "listen", Err: err}
	}
	return &Server{ln: ln, clients: make(map[mavlink.PeerAddress]net.Conn)}, nil
}

// Accept blocks for the next client connection and returns it as a
// standalone Conn, for callers that want one network.Runtime per client
// instead of the shared-Transport model.
func (s *Server) Accept() (*Conn, error) {
	nc, err := s.ln.Accept()
	if err != nil {
		return nil, &transport.NetworkError{Op: "accept", Err: err}
	}
	peer := peerFromAddr(nc.RemoteAddr())
	return NewConn(nc, peer), nil
}

// Send writes to a specific known client, or to every currently connected
// client when peer is the broadcast address.
func (s *Server) Send(data []byte, peer mavlink.PeerAddress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if peer.IsBroadcast() {
		var firstErr error
		for _, nc := range s.clients {
			if _, err := nc.Write(data); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		if firstErr != nil {
			return &transport.NetworkError{Op: "broadcast", Err: firstErr}
		}
		return nil
	}

	nc, ok := s.clients[peer]
	if !ok {
		return &transport.NetworkError{Op: "send", Err: net.ErrClosed}
	}
	if _, err := nc.Write(data); err != nil {
		return &transport.NetworkError{Op: "send", Err: err}
	}
	return nil
}

// Receive reads exactly len(buf) bytes from the currently active client,
// accepting a new one whenever there is none or the active client
// disconnects.
func (s *Server) Receive(buf []byte) (mavlink.PeerAddress, error) {
	for {
		s.mu.Lock()
		current := s.current
		s.mu.Unlock()

		if current == nil {
			nc, err := s.ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return mavlink.PeerAddress{}, transport.ErrClosed
				}
				return mavlink.PeerAddress{}, &transport.NetworkError{Op: "accept", Err: err}
			}
			peer := peerFromAddr(nc.RemoteAddr())
			s.mu.Lock()
			s.clients[peer] = nc
			s.current = nc
			s.currentPeer = peer
			s.mu.Unlock()
			continue
		}

		_, err := io.ReadFull(current, buf)
		if err == nil {
			s.mu.Lock()
			peer := s.currentPeer
			s.mu.Unlock()
			return peer, nil
		}

		s.mu.Lock()
		delete(s.clients, s.currentPeer)
		s.current = nil
		s.mu.Unlock()

		if err == io.EOF || err == io.ErrUnexpectedEOF {
			continue
		}
		return mavlink.PeerAddress{}, &transport.NetworkError{Op: "receive", Err: err}
	}
}

// Close closes the listener and every currently connected client.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, nc := range s.clients {
		nc.Close()
	}
	return s.ln.Close()
}

// MarkResync is a no-op: TCP has no datagram boundary to discard.
func (s *Server) MarkResync() {}

// IsConnectionOriented always reports true.
func (s *Server) IsConnectionOriented() bool { return true }

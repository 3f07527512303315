// Package transport defines the abstract byte endpoint the stream parser
// and network runtime read from and write to, plus its error taxonomy.
// Concrete implementations live in the transport/{memory,tcp,udp,serial}
// subpackages; spec.md treats all of them as external collaborators.
package transport

import (
	"errors"

	"github.com/gomav/mavlink"
)

// Transport is an abstract byte endpoint. Implementations must be safe for
// concurrent Send calls (spec.md §5: "the runtime itself does not lock
// around send").
type Transport interface {
	// Send writes data addressed to peer. peer may be the distinguished
	// broadcast address, meaning "fan out to every known client" on a
	// connection-oriented transport, or an error on a connectionless one.
	Send(data []byte, peer mavlink.PeerAddress) error

	// Receive blocks until exactly len(buf) bytes have been read, returning
	// the peer the bytes came from.
	Receive(buf []byte) (mavlink.PeerAddress, error)

	// Close is idempotent; it wakes any blocked Receive with ErrClosed.
	Close() error

	// MarkResync tells the transport the parser discarded a byte; datagram
	// transports should discard the remainder of the current packet so the
	// next Receive starts at a fresh datagram boundary. The default
	// behavior (if an implementation has nothing to do) is a no-op.
	MarkResync()

	// IsConnectionOriented reports whether this transport preserves framed
	// boundaries across multiple logical clients (true for TCP/serial-like
	// transports, false for UDP-like ones).
	IsConnectionOriented() bool
}

// ErrClosed is returned by Receive once Close has been called or the
// remote end has closed the stream.
var ErrClosed = errors.New("transport: closed")

// NetworkError wraps a lower-level I/O failure that is not a clean close;
// the network runtime surfaces it to every connection's pending and future
// receivers, per spec.md §7.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return "transport: " + e.Op + ": " + e.Err.Error() }
func (e *NetworkError) Unwrap() error  { return e.Err }

// ErrBroadcastUnsupported is returned by a connectionless transport's Send when asked
// to deliver to the broadcast peer, which it cannot express.
var ErrBroadcastUnsupported = errors.New("transport: broadcast not supported on a connectionless transport")

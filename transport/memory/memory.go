// Package memory provides an in-process, in-memory duplex transport, used
// by tests and by anything exercising the core without real I/O.
package memory

import (
	"io"
	"sync"

	"github.com/gomav/mavlink"
	"github.com/gomav/mavlink/transport"
)

// Endpoint is one side of an in-memory duplex pipe. Two Endpoints created
// by NewPair are each other's sole remote peer.
type Endpoint struct {
	self   mavlink.PeerAddress
	remote mavlink.PeerAddress

	r *io.PipeReader
	w *io.PipeWriter

	mu     sync.Mutex
	closed bool
}

var _ transport.Transport = (*Endpoint)(nil)

// NewPair returns two endpoints wired to each other: writes on one arrive
// as reads on the other, tagged with the writer's own peer address.
func NewPair(selfA, selfB mavlink.PeerAddress) (*Endpoint, *Endpoint) {
	ar, aw := io.Pipe()
	br, bw := io.Pipe()

	a := &Endpoint{self: selfA, remote: selfB, r: br, w: aw}
	b := &Endpoint{self: selfB, remote: selfA, r: ar, w: bw}
	return a, b
}

// Send writes data to the paired endpoint. peer must be the remote's
// address or the broadcast address; any other address is an error since a
// pipe has exactly one remote.
func (e *Endpoint) Send(data []byte, peer mavlink.PeerAddress) error {
	if !peer.IsBroadcast() && peer != e.remote {
		return &transport.NetworkError{Op: "send", Err: io.ErrClosedPipe}
	}
	if _, err := e.w.Write(data); err != nil {
		return &transport.NetworkError{Op: "send", Err: err}
	}
	return nil
}

// Receive reads exactly len(buf) bytes, returning the remote's address.
func (e *Endpoint) Receive(buf []byte) (mavlink.PeerAddress, error) {
	if _, err := io.ReadFull(e.r, buf); err != nil {
		if err == io.EOF || err == io.ErrClosedPipe {
			return mavlink.PeerAddress{}, transport.ErrClosed
		}
		return mavlink.PeerAddress{}, &transport.NetworkError{Op: "receive", Err: err}
	}
	return e.remote, nil
}

// Close closes both directions of the pipe; safe to call more than once.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.r.Close()
	e.w.Close()
	return nil
}

// MarkResync is a no-op: a byte-stream pipe has no packet boundary to
// discard.
func (e *Endpoint) MarkResync() {}

// IsConnectionOriented always reports true: a pipe is a single dedicated
// stream between exactly two endpoints.
func (e *Endpoint) IsConnectionOriented() bool { return true }

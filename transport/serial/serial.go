// Package serial implements a UART Transport over a single serial line.
// Two constructors are provided, both satisfying the same interface: one
// backed by go.bug.st/serial (cgo-free, cross-platform), one by
// github.com/tarm/serial for environments where the former is unavailable.
package serial

import (
	"io"
	"sync"

	legacy "github.com/tarm/serial"
	bugst "go.bug.st/serial"

	"github.com/gomav/mavlink"
	"github.com/gomav/mavlink/transport"
)

// Port is a UART Transport. A serial line has exactly one remote, so Send's
// peer argument is ignored, and Receive always reports self as the peer.
type Port struct {
	rwc  io.ReadWriteCloser
	self mavlink.PeerAddress

	writeMu sync.Mutex
}

var _ transport.Transport = (*Port)(nil)

// NewSerial opens device at baud using go.bug.st/serial.
func NewSerial(device string, baud int, self mavlink.PeerAddress) (*Port, error) {
	mode := &bugst.Mode{BaudRate: baud, DataBits: 8, Parity: bugst.NoParity, StopBits: bugst.OneStopBit}
	p, err := bugst.Open(device, mode)
	if err != nil {
		return nil, &transport.NetworkError{Op: "open", Err: err}
	}
	return &Port{rwc: p, self: self}, nil
}

// NewLegacySerial opens device at baud using github.com/tarm/serial,
// mirroring the teacher's own USOCK constructor (clear-then-reopen config
// shape, 8N1, no read timeout).
func NewLegacySerial(device string, baud int, self mavlink.PeerAddress) (*Port, error) {
	cfg := &legacy.Config{
		Name:        device,
		Baud:        baud,
		Size:        8,
		Parity:      legacy.ParityNone,
		StopBits:    legacy.Stop1,
		ReadTimeout: 0,
	}
	p, err := legacy.OpenPort(cfg)
	if err != nil {
		return nil, &transport.NetworkError{Op: "open", Err: err}
	}
	return &Port{rwc: p, self: self}, nil
}

// Send writes data to the serial line; peer is not used to route (there is
// only one remote) but a non-broadcast mismatch against self is accepted
// silently since serial has no addressing of its own.
func (p *Port) Send(data []byte, peer mavlink.PeerAddress) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if _, err := p.rwc.Write(data); err != nil {
		return &transport.NetworkError{Op: "send", Err: err}
	}
	return nil
}

// Receive reads exactly len(buf) bytes from the line.
func (p *Port) Receive(buf []byte) (mavlink.PeerAddress, error) {
	if _, err := io.ReadFull(p.rwc, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF || err == io.ErrClosedPipe {
			return mavlink.PeerAddress{}, transport.ErrClosed
		}
		return mavlink.PeerAddress{}, &transport.NetworkError{Op: "receive", Err: err}
	}
	return p.self, nil
}

// Close closes the underlying port.
func (p *Port) Close() error {
	return p.rwc.Close()
}

// MarkResync is a no-op: a UART byte stream has no datagram boundary.
func (p *Port) MarkResync() {}

// IsConnectionOriented reports true: serial is a dedicated point-to-point
// line, same as is_serial in PeerAddress.
func (p *Port) IsConnectionOriented() bool { return true }

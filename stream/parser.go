// Package stream implements the MAVLink frame reassembler: magic-byte
// resync, header read, length-driven body read, and extra-CRC
// verification, yielding parsed messages referencing a MessageSet's
// compiled definitions.
package stream

import (
	"encoding/binary"
	"errors"

	"github.com/gomav/mavlink"
	"github.com/gomav/mavlink/crc"
	"github.com/gomav/mavlink/transport"
)

const (
	magicV1 = 0xFE
	magicV2 = 0xFD

	signedFlag = 0x01
)

// ErrInterrupted is returned when the underlying transport reports a clean
// local shutdown (transport.ErrClosed).
var ErrInterrupted = errors.New("stream: interrupted")

// Parser reads framed messages off a Transport, resynchronizing on magic
// bytes and discarding any frame that fails CRC or references an unknown
// message id.
type Parser struct {
	t  transport.Transport
	ms *mavlink.MessageSet

	acceptV1 bool
}

// New returns a Parser reading from t, resolving message ids against ms.
// acceptV1 controls whether 0xFE-framed messages are accepted in addition
// to 0xFD ones; the magic byte itself always determines per-frame framing.
func New(t transport.Transport, ms *mavlink.MessageSet, acceptV1 bool) *Parser {
	return &Parser{t: t, ms: ms, acceptV1: acceptV1}
}

// Next blocks until it has parsed and CRC-validated one full frame,
// silently discarding and resynchronizing past anything that doesn't parse
// (unknown message ids, CRC mismatches, and any non-magic byte). It returns
// ErrInterrupted if the transport was closed, or the transport's own error
// otherwise.
func (p *Parser) Next() (*mavlink.Message, mavlink.PeerAddress, error) {
	one := make([]byte, 1)
	for {
		peer, err := p.t.Receive(one)
		if err != nil {
			return nil, mavlink.PeerAddress{}, p.translate(err)
		}

		magic := one[0]
		isV1 := magic == magicV1
		isV2 := magic == magicV2
		if !isV2 && !(isV1 && p.acceptV1) {
			p.t.MarkResync()
			continue
		}

		msg, ok, err := p.readFrame(magic, isV1, peer)
		if err != nil {
			return nil, mavlink.PeerAddress{}, err
		}
		if !ok {
			p.t.MarkResync()
			continue
		}
		return msg, peer, nil
	}
}

func (p *Parser) translate(err error) error {
	if errors.Is(err, transport.ErrClosed) {
		return ErrInterrupted
	}
	return err
}

// readFrame reads the remainder of one candidate frame after its magic
// byte has already been consumed, returning ok=false (not an error) for any
// locally-absorbed failure (unknown id, CRC mismatch).
func (p *Parser) readFrame(magic byte, isV1 bool, peer mavlink.PeerAddress) (*mavlink.Message, bool, error) {
	headerRest := 5
	if !isV1 {
		headerRest = 9
	}
	rest := make([]byte, headerRest)
	if _, err := p.t.Receive(rest); err != nil {
		return nil, false, p.translate(err)
	}

	var payloadLen int
	var msgID int
	var hasSignature bool

	if isV1 {
		payloadLen = int(rest[0])
		msgID = int(rest[4])
	} else {
		payloadLen = int(rest[0])
		incompat := rest[1]
		msgID = int(rest[6]) | int(rest[7])<<8 | int(rest[8])<<16
		hasSignature = incompat&signedFlag != 0
	}

	def, err := p.ms.DefinitionByID(msgID)
	if err != nil {
		if err := p.drain(payloadLen + 2 + signatureLen(hasSignature)); err != nil {
			return nil, false, p.translate(err)
		}
		return nil, false, nil
	}

	msg, err := p.ms.CreateByID(msgID)
	if err != nil {
		return nil, false, nil
	}
	raw := msg.Raw()

	headerStart := 0
	if isV1 {
		headerStart = mavlink.V1HeaderOffset
	}
	raw[headerStart] = magic
	copy(raw[headerStart+1:headerStart+1+headerRest], rest)

	payloadStart := mavlink.HeaderSize
	payload := raw[payloadStart : payloadStart+payloadLen]
	if _, err := p.t.Receive(payload); err != nil {
		return nil, false, p.translate(err)
	}

	crcBytes := make([]byte, 2)
	if _, err := p.t.Receive(crcBytes); err != nil {
		return nil, false, p.translate(err)
	}

	if hasSignature {
		if err := p.drain(13); err != nil {
			return nil, false, p.translate(err)
		}
	}

	c := crc.New()
	if isV1 {
		c.AccumulateBytes(raw[mavlink.V1HeaderOffset+1 : payloadStart+payloadLen])
	} else {
		c.AccumulateBytes(raw[1 : payloadStart+payloadLen])
	}
	c.Accumulate(def.CRCExtra())
	want := binary.LittleEndian.Uint16(crcBytes)
	if c.CRC16() != want {
		return nil, false, nil
	}

	msg.SetSourcePeer(peer)
	msg.MarkParsed(isV1, payloadStart+payloadLen)
	return msg, true, nil
}

func (p *Parser) drain(n int) error {
	if n <= 0 {
		return nil
	}
	buf := make([]byte, n)
	_, err := p.t.Receive(buf)
	return err
}

func signatureLen(has bool) int {
	if has {
		return 13
	}
	return 0
}

package mavlink

// Header is a read-only view over a finalized message's framing bytes. It
// does not copy: it reads directly from the owning Message's buffer, the
// same role the Header<T> template plays in
// original_source/include/mav/MessageDefinition.h, generalized here to a
// value type parameterized at construction by v1/v2 instead of by a C++
// template parameter.
type Header struct {
	buf []byte
	v1  bool
}

// v2 field offsets relative to the start of the v2 header (buf[0]).
const (
	offMagic        = 0
	offLenV2        = 1
	offIncompatV2   = 2
	offCompatV2     = 3
	offSeqV2        = 4
	offSystemIDV2   = 5
	offComponentIDV2 = 6
	offMsgIDV2      = 7 // 3 bytes, little-endian
)

// v1 field offsets relative to V1HeaderOffset (buf[4]), i.e. the v1 header
// is nested inside the tail of the v2-sized header region.
const (
	offLenV1         = 1
	offSeqV1         = 2
	offSystemIDV1    = 3
	offComponentIDV1 = 4
	offMsgIDV1       = 5 // 1 byte
)

// Magic returns the frame's leading magic byte (0xFD for v2, 0xFE for v1).
func (h Header) Magic() byte {
	if h.v1 {
		return h.buf[V1HeaderOffset]
	}
	return h.buf[offMagic]
}

// Len returns the payload length field from the header.
func (h Header) Len() int {
	if h.v1 {
		return int(h.buf[V1HeaderOffset+offLenV1])
	}
	return int(h.buf[offLenV2])
}

// Seq returns the frame's sequence byte.
func (h Header) Seq() byte {
	if h.v1 {
		return h.buf[V1HeaderOffset+offSeqV1]
	}
	return h.buf[offSeqV2]
}

// SystemID returns the sender's system id from the header.
func (h Header) SystemID() NodeID {
	if h.v1 {
		return NodeID(h.buf[V1HeaderOffset+offSystemIDV1])
	}
	return NodeID(h.buf[offSystemIDV2])
}

// ComponentID returns the sender's component id from the header.
func (h Header) ComponentID() NodeID {
	if h.v1 {
		return NodeID(h.buf[V1HeaderOffset+offComponentIDV1])
	}
	return NodeID(h.buf[offComponentIDV2])
}

// Source returns the sender's (system, component) identity.
func (h Header) Source() Identity {
	return Identity{SystemID: h.SystemID(), ComponentID: h.ComponentID()}
}

// MsgID returns the 24-bit (v2) or 8-bit (v1) message id.
func (h Header) MsgID() int {
	if h.v1 {
		return int(h.buf[V1HeaderOffset+offMsgIDV1])
	}
	b := h.buf[offMsgIDV2 : offMsgIDV2+3]
	return int(b[0]) | int(b[1])<<8 | int(b[2])<<16
}

// IncompatFlags returns the v2 incompat_flags byte, or 0 for v1 (which has
// no such field).
func (h Header) IncompatFlags() byte {
	if h.v1 {
		return 0
	}
	return h.buf[offIncompatV2]
}

// Signed reports whether the v2 incompat_flags signature bit is set.
func (h Header) Signed() bool {
	return h.IncompatFlags()&0x01 != 0
}

// IsV1 reports whether this header describes a v1 frame.
func (h Header) IsV1() bool { return h.v1 }

// HeaderBytes returns the raw header length in bytes for this framing.
func (h Header) HeaderBytes() int {
	if h.v1 {
		return 6
	}
	return HeaderSize
}

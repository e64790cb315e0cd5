package wire

import (
	"encoding/binary"
	"fmt"
)

// ICMPType is the ICMP message type.
type ICMPType uint8

const (
	ICMPTypeEchoReply       ICMPType = 0
	ICMPTypeEchoRequest     ICMPType = 8
	ICMPTypeDestUnreachable ICMPType = 3
	ICMPTypeTimeExceeded    ICMPType = 11
)

// ICMP codes used by this router. DestUnreachable carries
// NetUnreachable (no route), HostUnreachable (next-hop resolution
// abandoned) or PortUnreachable (no listener); the only TimeExceeded
// code used is TTLExceeded.
const (
	ICMPCodeNetUnreachable  uint8 = 0
	ICMPCodeHostUnreachable uint8 = 1
	ICMPCodePortUnreachable uint8 = 3
	ICMPCodeTTLExceeded     uint8 = 0
)

const icmpHeaderLen = 8

// ICMPEcho is a parsed echo request/reply message.
type ICMPEcho struct {
	Type       ICMPType
	ID         uint16
	Seq        uint16
	DataOffset int
	Raw        []byte
}

// ParseICMPEcho decodes an echo request/reply ICMP message, including
// its trailing data. It returns an error if b is too short to contain
// the 8-byte echo header.
func ParseICMPEcho(b []byte) (*ICMPEcho, error) {
	if len(b) < icmpHeaderLen {
		return nil, fmt.Errorf("parse icmp echo: short message (%d bytes)", len(b))
	}
	t := ICMPType(b[0])
	if t != ICMPTypeEchoRequest && t != ICMPTypeEchoReply {
		return nil, fmt.Errorf("parse icmp echo: unexpected type %d", t)
	}
	return &ICMPEcho{
		Type:       t,
		ID:         binary.BigEndian.Uint16(b[4:6]),
		Seq:        binary.BigEndian.Uint16(b[6:8]),
		DataOffset: icmpHeaderLen,
		Raw:        b,
	}, nil
}

// Data returns the echo payload following the 8-byte header.
func (e *ICMPEcho) Data() []byte {
	return e.Raw[e.DataOffset:]
}

// MarshalICMPEcho builds a complete echo request/reply message,
// including a checksum covering the whole message (header and data),
// matching the behavior expected of a conformant echo responder.
func MarshalICMPEcho(t ICMPType, id, seq uint16, data []byte) []byte {
	out := make([]byte, icmpHeaderLen+len(data))
	out[0] = uint8(t)
	out[1] = 0
	binary.BigEndian.PutUint16(out[4:6], id)
	binary.BigEndian.PutUint16(out[6:8], seq)
	copy(out[icmpHeaderLen:], data)
	cksum := Checksum(out, 2)
	binary.BigEndian.PutUint16(out[2:4], cksum)
	return out
}

// MarshalICMPError builds a destination-unreachable or time-exceeded
// message embedding the offending datagram's header plus its first 8
// payload bytes, per RFC 792.
func MarshalICMPError(t ICMPType, code uint8, offendingIP []byte) []byte {
	embedded := embedOriginal(offendingIP)
	out := make([]byte, icmpHeaderLen+len(embedded))
	out[0] = uint8(t)
	out[1] = code
	// bytes 4:8 (unused/MTU field) stay zero for DestUnreachable/TimeExceeded
	copy(out[icmpHeaderLen:], embedded)
	cksum := Checksum(out, 2)
	binary.BigEndian.PutUint16(out[2:4], cksum)
	return out
}

// embedOriginal copies the offending datagram's header and first 8
// payload bytes into a fixed OriginalDatagramLen buffer, zero-padding
// if the datagram is shorter than that.
func embedOriginal(ipBytes []byte) []byte {
	buf := make([]byte, OriginalDatagramLen)
	n := len(ipBytes)
	if n > OriginalDatagramLen {
		n = OriginalDatagramLen
	}
	copy(buf, ipBytes[:n])
	return buf
}

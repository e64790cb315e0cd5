package wire

import (
	"encoding/binary"
	"fmt"
	"net"
)

// IPProtocol identifies the IPv4 payload protocol.
type IPProtocol uint8

const (
	ProtoICMP IPProtocol = 1
	ProtoTCP  IPProtocol = 6
	ProtoUDP  IPProtocol = 17
)

// IPv4HeaderLen is the length of a header with no options, the only
// form this router produces or accepts (spec Non-goals exclude IPv4
// options).
const IPv4HeaderLen = 20

// OriginalDatagramLen is the amount of an offending datagram embedded
// in an ICMP error message: its header plus the first 8 payload bytes.
const OriginalDatagramLen = IPv4HeaderLen + 8

// IPv4Header is a parsed, bounds-checked view of an IPv4 datagram. Raw
// aliases the buffer passed to ParseIPv4.
type IPv4Header struct {
	TOS        uint8
	TotalLen   uint16
	ID         uint16
	FlagsFrag  uint16
	TTL        uint8
	Protocol   IPProtocol
	Checksum   uint16
	Src        net.IP
	Dst        net.IP
	Raw        []byte
	PayloadOff int
}

// ParseIPv4 decodes the fixed 20-byte IPv4 header at the front of b.
// It rejects anything other than version 4, IHL 5 (no options), and a
// total length that does not exceed len(b). It does not itself
// validate the header checksum; call ValidateChecksum on the returned
// header bytes for that.
func ParseIPv4(b []byte) (*IPv4Header, error) {
	if len(b) < IPv4HeaderLen {
		return nil, fmt.Errorf("parse ipv4: short header (%d bytes)", len(b))
	}
	verIHL := b[0]
	version := verIHL >> 4
	ihl := verIHL & 0x0f
	if version != 4 {
		return nil, fmt.Errorf("parse ipv4: unsupported version %d", version)
	}
	if ihl != 5 {
		return nil, fmt.Errorf("parse ipv4: unsupported header length %d (options unsupported)", ihl)
	}
	totalLen := binary.BigEndian.Uint16(b[2:4])
	if int(totalLen) > len(b) {
		return nil, fmt.Errorf("parse ipv4: total length %d exceeds buffer (%d bytes)", totalLen, len(b))
	}
	if totalLen < IPv4HeaderLen {
		return nil, fmt.Errorf("parse ipv4: total length %d shorter than header", totalLen)
	}
	h := &IPv4Header{
		TOS:        b[1],
		TotalLen:   totalLen,
		ID:         binary.BigEndian.Uint16(b[4:6]),
		FlagsFrag:  binary.BigEndian.Uint16(b[6:8]),
		TTL:        b[8],
		Protocol:   IPProtocol(b[9]),
		Checksum:   binary.BigEndian.Uint16(b[10:12]),
		Src:        net.IPv4(b[12], b[13], b[14], b[15]),
		Dst:        net.IPv4(b[16], b[17], b[18], b[19]),
		Raw:        b[:totalLen],
		PayloadOff: IPv4HeaderLen,
	}
	return h, nil
}

// Payload returns the bytes following the header, up to TotalLen.
func (h *IPv4Header) Payload() []byte {
	return h.Raw[h.PayloadOff:h.TotalLen]
}

// SetTTL rewrites the TTL field in Raw and recomputes the header
// checksum in place. Callers must have their own copy of the
// underlying bytes if the original must be preserved.
func (h *IPv4Header) SetTTL(ttl uint8) {
	h.TTL = ttl
	h.Raw[8] = ttl
	h.Checksum = Checksum(h.Raw[:IPv4HeaderLen], 10)
	binary.BigEndian.PutUint16(h.Raw[10:12], h.Checksum)
}

// MarshalIPv4 builds a complete IPv4 datagram (header plus payload)
// with a freshly computed header checksum.
func MarshalIPv4(tos uint8, id uint16, flagsFrag uint16, ttl uint8, proto IPProtocol, src, dst net.IP, payload []byte) []byte {
	totalLen := IPv4HeaderLen + len(payload)
	out := make([]byte, totalLen)
	out[0] = 0x45
	out[1] = tos
	binary.BigEndian.PutUint16(out[2:4], uint16(totalLen))
	binary.BigEndian.PutUint16(out[4:6], id)
	binary.BigEndian.PutUint16(out[6:8], flagsFrag)
	out[8] = ttl
	out[9] = uint8(proto)
	src4 := src.To4()
	dst4 := dst.To4()
	copy(out[12:16], src4)
	copy(out[16:20], dst4)
	copy(out[20:], payload)
	cksum := Checksum(out[:IPv4HeaderLen], 10)
	binary.BigEndian.PutUint16(out[10:12], cksum)
	return out
}

package wire

import (
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// EtherType identifies the payload carried by an Ethernet II frame.
type EtherType uint16

const (
	EtherTypeIPv4 EtherType = 0x0800
	EtherTypeARP  EtherType = 0x0806
)

// BroadcastHW is the all-ones link-layer broadcast address.
var BroadcastHW = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// EthernetFrame is a parsed view over a link-layer frame. Payload
// aliases the buffer passed to ParseEthernet and must be copied by
// the caller before the buffer is reused or released.
type EthernetFrame struct {
	Dst, Src net.HardwareAddr
	Type     EtherType
	Payload  []byte
}

// ParseEthernet decodes the 14-byte Ethernet II header at the front of
// b. A short or truncated frame yields an error rather than a bounds
// violation.
func ParseEthernet(b []byte) (*EthernetFrame, error) {
	var eth layers.Ethernet
	if err := eth.DecodeFromBytes(b, gopacket.NilDecodeFeedback); err != nil {
		return nil, fmt.Errorf("parse ethernet: %w", err)
	}
	return &EthernetFrame{
		Dst:     eth.DstMAC,
		Src:     eth.SrcMAC,
		Type:    EtherType(eth.EthernetType),
		Payload: eth.Payload,
	}, nil
}

// MarshalEthernet builds a complete Ethernet II frame carrying payload.
// A frame shorter than 60 bytes is zero-padded to that minimum, so the
// Payload that ParseEthernet later returns includes the padding.
func MarshalEthernet(dst, src net.HardwareAddr, etherType EtherType, payload []byte) ([]byte, error) {
	eth := layers.Ethernet{
		DstMAC:       dst,
		SrcMAC:       src,
		EthernetType: layers.EthernetType(etherType),
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, &eth, gopacket.Payload(payload)); err != nil {
		return nil, fmt.Errorf("marshal ethernet: %w", err)
	}
	out := make([]byte, len(buf.Bytes()))
	copy(out, buf.Bytes())
	return out, nil
}

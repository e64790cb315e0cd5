package wire

import (
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// ARPOp is the ARP operation code.
type ARPOp uint16

const (
	ARPRequest ARPOp = 1
	ARPReply   ARPOp = 2
)

// hwAddrLen and protoAddrLen are the only lengths this router ever
// produces or accepts for Ethernet/IPv4 ARP: 6-byte MAC, 4-byte IPv4.
const (
	hwAddrLen    = 6
	protoAddrLen = 4
)

// ARPMessage is a parsed IPv4-over-Ethernet ARP packet.
type ARPMessage struct {
	Op          ARPOp
	SenderHW    net.HardwareAddr
	SenderProto net.IP
	TargetHW    net.HardwareAddr
	TargetProto net.IP
}

// ParseARP decodes an ARP packet, rejecting anything other than the
// Ethernet/IPv4 combination this router understands.
func ParseARP(b []byte) (*ARPMessage, error) {
	var arp layers.ARP
	if err := arp.DecodeFromBytes(b, gopacket.NilDecodeFeedback); err != nil {
		return nil, fmt.Errorf("parse arp: %w", err)
	}
	if arp.AddrType != layers.LinkTypeEthernet || arp.Protocol != layers.EthernetTypeIPv4 {
		return nil, fmt.Errorf("parse arp: unsupported hw/proto %v/%v", arp.AddrType, arp.Protocol)
	}
	if arp.HwAddressSize != hwAddrLen || arp.ProtAddressSize != protoAddrLen {
		return nil, fmt.Errorf("parse arp: unexpected address lengths %d/%d", arp.HwAddressSize, arp.ProtAddressSize)
	}
	return &ARPMessage{
		Op:          ARPOp(arp.Operation),
		SenderHW:    net.HardwareAddr(arp.SourceHwAddress),
		SenderProto: net.IP(arp.SourceProtAddress),
		TargetHW:    net.HardwareAddr(arp.DstHwAddress),
		TargetProto: net.IP(arp.DstProtAddress),
	}, nil
}

// MarshalARP serializes an ARP message. TargetHW may be nil for a
// request (conventionally the zero hardware address).
func MarshalARP(msg *ARPMessage) ([]byte, error) {
	targetHW := msg.TargetHW
	if targetHW == nil {
		targetHW = make(net.HardwareAddr, hwAddrLen)
	}
	arp := layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     hwAddrLen,
		ProtAddressSize:   protoAddrLen,
		Operation:         uint16(msg.Op),
		SourceHwAddress:   []byte(msg.SenderHW),
		SourceProtAddress: msg.SenderProto.To4(),
		DstHwAddress:      []byte(targetHW),
		DstProtAddress:    msg.TargetProto.To4(),
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, &arp); err != nil {
		return nil, fmt.Errorf("marshal arp: %w", err)
	}
	out := make([]byte, len(buf.Bytes()))
	copy(out, buf.Bytes())
	return out, nil
}

// BuildARPQuery constructs an ARP request for targetProto, sent from
// senderHW/senderProto.
func BuildARPQuery(senderHW net.HardwareAddr, senderProto net.IP, targetProto net.IP) *ARPMessage {
	return &ARPMessage{
		Op:          ARPRequest,
		SenderHW:    senderHW,
		SenderProto: senderProto,
		TargetHW:    nil,
		TargetProto: targetProto,
	}
}

// BuildARPReply constructs an ARP reply answering query, sent from
// senderHW/senderProto (the replying router's own identity).
func BuildARPReply(query *ARPMessage, senderHW net.HardwareAddr, senderProto net.IP) *ARPMessage {
	return &ARPMessage{
		Op:          ARPReply,
		SenderHW:    senderHW,
		SenderProto: senderProto,
		TargetHW:    query.SenderHW,
		TargetProto: query.SenderProto,
	}
}

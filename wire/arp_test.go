package wire_test

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipv4router/wire"
)

func TestARP_QueryRoundTrip(t *testing.T) {
	senderHW := net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	senderIP := net.IPv4(10, 0, 0, 1)
	targetIP := net.IPv4(10, 0, 0, 2)

	query := wire.BuildARPQuery(senderHW, senderIP, targetIP)
	b, err := wire.MarshalARP(query)
	require.NoError(t, err)

	parsed, err := wire.ParseARP(b)
	require.NoError(t, err)

	assert.Equal(t, wire.ARPRequest, parsed.Op)
	assert.Equal(t, senderHW, parsed.SenderHW)
	assert.True(t, senderIP.Equal(parsed.SenderProto))
	assert.True(t, targetIP.Equal(parsed.TargetProto))
}

func TestARP_ReplyAnswersQuery(t *testing.T) {
	askerHW := net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	askerIP := net.IPv4(10, 0, 0, 1)
	targetIP := net.IPv4(10, 0, 0, 2)
	query := wire.BuildARPQuery(askerHW, askerIP, targetIP)

	responderHW := net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02}
	reply := wire.BuildARPReply(query, responderHW, targetIP)

	assert.Equal(t, wire.ARPReply, reply.Op)
	assert.Equal(t, askerHW, reply.TargetHW)
	assert.True(t, askerIP.Equal(reply.TargetProto))
	assert.Equal(t, responderHW, reply.SenderHW)
}

func TestARP_RejectsUnsupportedLengths(t *testing.T) {
	// Ethernet/IPv4 ARP declaring 2-byte hardware and protocol addresses,
	// with enough address bytes for those lengths.
	b := []byte{0x00, 0x01, 0x08, 0x00, 0x02, 0x02, 0x00, 0x01}
	b = append(b, make([]byte, 8)...)
	_, err := wire.ParseARP(b)
	assert.Error(t, err)
}

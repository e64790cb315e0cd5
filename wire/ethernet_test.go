package wire_test

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipv4router/wire"
)

func TestEthernet_RoundTrip(t *testing.T) {
	dst := net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02}
	src := net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	payload := []byte{0xde, 0xad, 0xbe, 0xef}

	frame, err := wire.MarshalEthernet(dst, src, wire.EtherTypeIPv4, payload)
	require.NoError(t, err)

	parsed, err := wire.ParseEthernet(frame)
	require.NoError(t, err)

	assert.Equal(t, dst, parsed.Dst)
	assert.Equal(t, src, parsed.Src)
	assert.Equal(t, wire.EtherTypeIPv4, parsed.Type)
	// A frame below the 60-byte Ethernet minimum comes back zero-padded.
	want := append(append([]byte{}, payload...), make([]byte, 60-14-len(payload))...)
	assert.Equal(t, want, parsed.Payload)
}

func TestEthernet_ParseShortFrame(t *testing.T) {
	_, err := wire.ParseEthernet([]byte{0x01, 0x02})
	assert.Error(t, err)
}

package wire_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipv4router/wire"
)

func TestICMPEcho_RoundTrip(t *testing.T) {
	data := []byte("ping-data")
	b := wire.MarshalICMPEcho(wire.ICMPTypeEchoRequest, 7, 42, data)

	echo, err := wire.ParseICMPEcho(b)
	require.NoError(t, err)

	assert.Equal(t, wire.ICMPTypeEchoRequest, echo.Type)
	assert.Equal(t, uint16(7), echo.ID)
	assert.Equal(t, uint16(42), echo.Seq)
	assert.Equal(t, data, echo.Data())
	assert.True(t, wire.ValidateChecksum(b))
}

func TestICMPError_EmbedsOriginalDatagram(t *testing.T) {
	original := make([]byte, 40)
	for i := range original {
		original[i] = byte(i)
	}
	msg := wire.MarshalICMPError(wire.ICMPTypeTimeExceeded, wire.ICMPCodeTTLExceeded, original)

	assert.True(t, wire.ValidateChecksum(msg))
	assert.Equal(t, 8+wire.OriginalDatagramLen, len(msg))
	assert.Equal(t, original[:wire.OriginalDatagramLen], msg[8:])
}

func TestICMPError_PadsShortOriginal(t *testing.T) {
	short := []byte{0x45, 0x00, 0x00, 0x14}
	msg := wire.MarshalICMPError(wire.ICMPTypeDestUnreachable, wire.ICMPCodeHostUnreachable, short)

	assert.Equal(t, 8+wire.OriginalDatagramLen, len(msg))
	assert.True(t, wire.ValidateChecksum(msg))
}

package router_test

import (
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	router "ipv4router"
	mock_router "ipv4router/mock"
	"ipv4router/wire"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func newTestHandler(t *testing.T, tx router.Transmitter) (*router.Handler, *router.InterfaceTable, *router.RouteTable) {
	t.Helper()
	ifaces, err := router.NewInterfaceTable([]router.InterfaceRecord{
		{Name: "eth0", LinkAddr: mustMAC(t, "02:00:00:00:00:01"), NetAddr: net.IPv4(10, 0, 0, 1)},
		{Name: "eth1", LinkAddr: mustMAC(t, "02:00:00:00:00:02"), NetAddr: net.IPv4(10, 1, 0, 1)},
	})
	require.NoError(t, err)

	routes := router.NewRouteTable()
	require.NoError(t, routes.Insert(router.RouteRecord{
		Destination: net.IPv4(10, 2, 0, 0),
		Mask:        net.CIDRMask(16, 32),
		Gateway:     net.IPv4(10, 1, 0, 254),
		Interface:   "eth1",
	}))

	cache := router.NewResolutionCache(8, time.Minute, time.Second, 5)
	h := router.NewHandler(ifaces, routes, cache, tx, testLogger())
	return h, ifaces, routes
}

func buildEchoFrame(t *testing.T, srcHW net.HardwareAddr, srcIP, dstIP net.IP) []byte {
	t.Helper()
	echo := wire.MarshalICMPEcho(wire.ICMPTypeEchoRequest, 1, 1, []byte("ping"))
	datagram := wire.MarshalIPv4(0, 1, 0, 64, wire.ProtoICMP, srcIP, dstIP, echo)
	frame, err := wire.MarshalEthernet(mustMAC(t, "02:00:00:00:00:01"), srcHW, wire.EtherTypeIPv4, datagram)
	require.NoError(t, err)
	return frame
}

func TestHandler_EchoRequestToRouter(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	tx := mock_router.NewMockTransmitter(ctrl)

	h, _, _ := newTestHandler(t, tx)

	hostHW := mustMAC(t, "02:00:00:00:00:ff")
	frame := buildEchoFrame(t, hostHW, net.IPv4(10, 0, 0, 99), net.IPv4(10, 0, 0, 1))

	tx.EXPECT().Transmit("eth0", gomock.Any()).DoAndReturn(func(iface string, out []byte) error {
		eth, err := wire.ParseEthernet(out)
		require.NoError(t, err)
		ip, err := wire.ParseIPv4(eth.Payload)
		require.NoError(t, err)
		assert.True(t, ip.Src.Equal(net.IPv4(10, 0, 0, 1)))
		echo, err := wire.ParseICMPEcho(ip.Payload())
		require.NoError(t, err)
		assert.Equal(t, wire.ICMPTypeEchoReply, echo.Type)
		return nil
	})

	h.Handle("eth0", frame)
}

func TestHandler_ForwardWithCacheMiss_SendsARPQueryOnEveryInterface(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	tx := mock_router.NewMockTransmitter(ctrl)

	h, _, _ := newTestHandler(t, tx)

	hostHW := mustMAC(t, "02:00:00:00:00:ff")
	frame := buildTransitFrame(t, hostHW, net.IPv4(10, 0, 0, 99), net.IPv4(10, 2, 0, 5))

	checkQuery := func(iface string, out []byte) error {
		eth, err := wire.ParseEthernet(out)
		require.NoError(t, err)
		assert.Equal(t, wire.EtherTypeARP, eth.Type)
		arp, err := wire.ParseARP(eth.Payload)
		require.NoError(t, err)
		assert.Equal(t, wire.ARPRequest, arp.Op)
		assert.True(t, arp.TargetProto.Equal(net.IPv4(10, 1, 0, 254)))
		return nil
	}
	tx.EXPECT().Transmit("eth0", gomock.Any()).DoAndReturn(checkQuery)
	tx.EXPECT().Transmit("eth1", gomock.Any()).DoAndReturn(checkQuery)

	h.Handle("eth0", frame)
}

func TestHandler_ARPReply_FlushesQueuedFrameOutRouteInterface(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	tx := mock_router.NewMockTransmitter(ctrl)

	h, _, _ := newTestHandler(t, tx)

	hostHW := mustMAC(t, "02:00:00:00:00:ff")
	frame := buildTransitFrame(t, hostHW, net.IPv4(10, 0, 0, 99), net.IPv4(10, 2, 0, 5))

	// Cache miss queues the frame and broadcasts a query out every interface.
	tx.EXPECT().Transmit(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	h.Handle("eth0", frame)

	nextHopHW := mustMAC(t, "02:00:00:00:00:aa")
	reply := wire.BuildARPReply(
		wire.BuildARPQuery(mustMAC(t, "02:00:00:00:00:02"), net.IPv4(10, 1, 0, 1), net.IPv4(10, 1, 0, 254)),
		nextHopHW, net.IPv4(10, 1, 0, 254),
	)
	arpPayload, err := wire.MarshalARP(reply)
	require.NoError(t, err)
	replyFrame, err := wire.MarshalEthernet(mustMAC(t, "02:00:00:00:00:02"), nextHopHW, wire.EtherTypeARP, arpPayload)
	require.NoError(t, err)

	tx.EXPECT().Transmit("eth1", gomock.Any()).DoAndReturn(func(iface string, out []byte) error {
		eth, err := wire.ParseEthernet(out)
		require.NoError(t, err)
		assert.Equal(t, wire.EtherTypeIPv4, eth.Type)
		assert.Equal(t, nextHopHW, eth.Dst)
		assert.Equal(t, mustMAC(t, "02:00:00:00:00:02"), eth.Src)
		ip, err := wire.ParseIPv4(eth.Payload)
		require.NoError(t, err)
		assert.True(t, ip.Dst.Equal(net.IPv4(10, 2, 0, 5)))
		return nil
	})

	h.Handle("eth1", replyFrame)
}

func TestHandler_ForwardWithCacheHit_TransmitsImmediately(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	tx := mock_router.NewMockTransmitter(ctrl)

	ifaces, err := router.NewInterfaceTable([]router.InterfaceRecord{
		{Name: "eth0", LinkAddr: mustMAC(t, "02:00:00:00:00:01"), NetAddr: net.IPv4(10, 0, 0, 1)},
		{Name: "eth1", LinkAddr: mustMAC(t, "02:00:00:00:00:02"), NetAddr: net.IPv4(10, 1, 0, 1)},
	})
	require.NoError(t, err)
	routes := router.NewRouteTable()
	require.NoError(t, routes.Insert(router.RouteRecord{
		Destination: net.IPv4(10, 2, 0, 0),
		Mask:        net.CIDRMask(16, 32),
		Gateway:     net.IPv4(10, 1, 0, 254),
		Interface:   "eth1",
	}))
	cache := router.NewResolutionCache(8, time.Minute, time.Second, 5)
	cache.Insert(net.IPv4(10, 1, 0, 254), mustMAC(t, "02:00:00:00:00:aa"), time.Now())
	h := router.NewHandler(ifaces, routes, cache, tx, testLogger())

	hostHW := mustMAC(t, "02:00:00:00:00:ff")
	frame := buildTransitFrame(t, hostHW, net.IPv4(10, 0, 0, 99), net.IPv4(10, 2, 0, 5))

	tx.EXPECT().Transmit("eth1", gomock.Any()).DoAndReturn(func(iface string, out []byte) error {
		eth, err := wire.ParseEthernet(out)
		require.NoError(t, err)
		assert.Equal(t, wire.EtherTypeIPv4, eth.Type)
		assert.Equal(t, mustMAC(t, "02:00:00:00:00:aa"), eth.Dst)
		ip, err := wire.ParseIPv4(eth.Payload)
		require.NoError(t, err)
		assert.Equal(t, uint8(63), ip.TTL)
		return nil
	})

	h.Handle("eth0", frame)
}

func TestHandler_NoRoute_SendsNetUnreachable(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	tx := mock_router.NewMockTransmitter(ctrl)
	h, _, _ := newTestHandler(t, tx)

	hostHW := mustMAC(t, "02:00:00:00:00:ff")
	frame := buildTransitFrame(t, hostHW, net.IPv4(10, 0, 0, 99), net.IPv4(192, 168, 1, 1))

	tx.EXPECT().Transmit("eth0", gomock.Any()).DoAndReturn(func(iface string, out []byte) error {
		eth, err := wire.ParseEthernet(out)
		require.NoError(t, err)
		ip, err := wire.ParseIPv4(eth.Payload)
		require.NoError(t, err)
		assert.Equal(t, wire.ProtoICMP, ip.Protocol)
		return nil
	})

	h.Handle("eth0", frame)
}

func buildTransitFrame(t *testing.T, srcHW net.HardwareAddr, srcIP, dstIP net.IP) []byte {
	t.Helper()
	payload := []byte("payload-bytes")
	datagram := wire.MarshalIPv4(0, 1, 0, 64, wire.ProtoUDP, srcIP, dstIP, payload)
	frame, err := wire.MarshalEthernet(mustMAC(t, "02:00:00:00:00:01"), srcHW, wire.EtherTypeIPv4, datagram)
	require.NoError(t, err)
	return frame
}

package router_test

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	router "ipv4router"
)

func TestRouteTable_LongestPrefixMatch(t *testing.T) {
	rt := router.NewRouteTable()

	require.NoError(t, rt.Insert(router.RouteRecord{
		Destination: net.IPv4(10, 0, 0, 0),
		Mask:        net.CIDRMask(8, 32),
		Gateway:     net.IPv4(0, 0, 0, 0),
		Interface:   "eth0",
	}))
	require.NoError(t, rt.Insert(router.RouteRecord{
		Destination: net.IPv4(10, 1, 0, 0),
		Mask:        net.CIDRMask(16, 32),
		Gateway:     net.IPv4(10, 0, 0, 254),
		Interface:   "eth1",
	}))

	route, ok := rt.Lookup(net.IPv4(10, 1, 2, 3))
	require.True(t, ok)
	assert.Equal(t, "eth1", route.Interface)
	assert.True(t, route.Gateway.Equal(net.IPv4(10, 0, 0, 254)))

	route, ok = rt.Lookup(net.IPv4(10, 5, 0, 0))
	require.True(t, ok)
	assert.Equal(t, "eth0", route.Interface)
	assert.True(t, route.DirectlyConnected())

	_, ok = rt.Lookup(net.IPv4(192, 168, 1, 1))
	assert.False(t, ok)
}

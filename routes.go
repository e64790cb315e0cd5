package router

import (
	"fmt"
	"net"
	"net/netip"
	"sync"

	"github.com/gaissmai/bart"
)

// RouteRecord is one entry in the routing table: the outgoing
// interface for a destination prefix, and the next-hop gateway to
// resolve for it. A zero gateway means the destination is directly
// connected, and the datagram's own destination address is the one to
// resolve.
type RouteRecord struct {
	Destination net.IP
	Mask        net.IPMask
	Gateway     net.IP
	Interface   string
}

// DirectlyConnected reports whether this route has no next-hop
// gateway, meaning the resolution key is the datagram's destination
// rather than r.Gateway.
func (r RouteRecord) DirectlyConnected() bool {
	return r.Gateway == nil || r.Gateway.IsUnspecified()
}

// RouteTable is a longest-prefix-match routing table backed by a
// balanced routing trie.
type RouteTable struct {
	mu   sync.RWMutex
	trie *bart.Table[RouteRecord]
}

// NewRouteTable returns an empty routing table.
func NewRouteTable() *RouteTable {
	return &RouteTable{trie: new(bart.Table[RouteRecord])}
}

// Insert adds or replaces the route covering prefix.
func (t *RouteTable) Insert(rec RouteRecord) error {
	ones, _ := rec.Mask.Size()
	addr, ok := netip.AddrFromSlice(rec.Destination.To4())
	if !ok {
		return fmt.Errorf("route table: invalid destination %v", rec.Destination)
	}
	prefix := netip.PrefixFrom(addr, ones)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.trie.Insert(prefix, rec)
	return nil
}

// Lookup returns the longest-prefix-matching route for dst, if any.
func (t *RouteTable) Lookup(dst net.IP) (RouteRecord, bool) {
	addr, ok := netip.AddrFromSlice(dst.To4())
	if !ok {
		return RouteRecord{}, false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.trie.Lookup(addr)
}

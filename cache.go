package router

import (
	"net"
	"sync"
	"time"
)

// Binding is a resolved IPv4-to-link-layer-address mapping, valid
// until Expires.
type Binding struct {
	IP      net.IP
	HW      net.HardwareAddr
	Expires time.Time
}

// PendingFrame is one forwarded datagram waiting on an outstanding
// resolution request. Bytes holds the IPv4 datagram as it will be
// transmitted once resolved: TTL already decremented and the header
// checksum already recomputed. RecvIface and SrcLinkAddr describe the
// frame's original sender, used only if resolution is abandoned and a
// host-unreachable notice must be sent back to them.
type PendingFrame struct {
	Bytes       []byte
	RecvIface   string
	SrcLinkAddr net.HardwareAddr
}

// PendingRequest tracks one outstanding resolution for IP, reachable
// via OutIface, and the frames queued behind it. SenderHW is OutIface's
// own link address, used to source a successfully flushed frame.
type PendingRequest struct {
	IP       net.IP
	OutIface string
	SenderHW net.HardwareAddr
	Frames   []*PendingFrame
	Sent     int
	LastSent time.Time
}

// ResolutionCache holds resolved bindings and outstanding resolution
// requests. It is safe for concurrent use; Sweep returns the work a
// caller must act on (retry or give up) so that transmission happens
// outside the cache's lock.
type ResolutionCache struct {
	mu            sync.Mutex
	bindings      map[string]*Binding
	requests      []*PendingRequest
	capacity      int
	bindingTTL    time.Duration
	retryInterval time.Duration
	maxAttempts   int
}

// NewResolutionCache builds an empty cache with the given tunables.
func NewResolutionCache(capacity int, bindingTTL, retryInterval time.Duration, maxAttempts int) *ResolutionCache {
	return &ResolutionCache{
		bindings:      make(map[string]*Binding, capacity),
		capacity:      capacity,
		bindingTTL:    bindingTTL,
		retryInterval: retryInterval,
		maxAttempts:   maxAttempts,
	}
}

// Lookup returns the live binding for ip, if one exists and has not
// expired.
func (c *ResolutionCache) Lookup(ip net.IP, now time.Time) (net.HardwareAddr, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.bindings[ip.String()]
	if !ok || now.After(b.Expires) {
		return nil, false
	}
	return b.HW, true
}

// QueueForResolution enqueues frame behind the outstanding request for
// ip, creating one (and reporting that a fresh ARP query must be sent)
// if none yet exists.
func (c *ResolutionCache) QueueForResolution(ip net.IP, outIface string, senderHW net.HardwareAddr, frame *PendingFrame, now time.Time) (req *PendingRequest, isNew bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.requests {
		if r.IP.Equal(ip) && r.OutIface == outIface {
			r.Frames = append(r.Frames, frame)
			return r, false
		}
	}
	r := &PendingRequest{
		IP:       ip,
		OutIface: outIface,
		SenderHW: senderHW,
		Frames:   []*PendingFrame{frame},
		Sent:     1,
		LastSent: now,
	}
	c.requests = append(c.requests, r)
	return r, true
}

// Insert records a resolved binding, evicting the oldest binding if
// the cache is at capacity, and returns the requests (if any) that
// were queued awaiting this resolution, so the caller can flush their
// frames out each request's OutIface/SenderHW.
func (c *ResolutionCache) Insert(ip net.IP, hw net.HardwareAddr, now time.Time) []*PendingRequest {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.bindings) >= c.capacity {
		if _, exists := c.bindings[ip.String()]; !exists {
			c.evictOldestLocked()
		}
	}
	c.bindings[ip.String()] = &Binding{IP: ip, HW: hw, Expires: now.Add(c.bindingTTL)}

	var flushed []*PendingRequest
	remaining := c.requests[:0]
	for _, r := range c.requests {
		if r.IP.Equal(ip) {
			flushed = append(flushed, r)
			continue
		}
		remaining = append(remaining, r)
	}
	c.requests = remaining
	return flushed
}

func (c *ResolutionCache) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	first := true
	for k, b := range c.bindings {
		if first || b.Expires.Before(oldest) {
			oldestKey = k
			oldest = b.Expires
			first = false
		}
	}
	if oldestKey != "" {
		delete(c.bindings, oldestKey)
	}
}

// Sweep scans outstanding requests once: requests whose retry
// interval has elapsed and have not yet hit maxAttempts are returned
// in retry (with Sent/LastSent already advanced); requests whose retry
// interval has elapsed and that have reached maxAttempts are removed
// from the cache and returned in gaveUp for the caller to notify about.
func (c *ResolutionCache) Sweep(now time.Time) (retry, gaveUp []*PendingRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := append([]*PendingRequest(nil), c.requests...)
	remaining := c.requests[:0]
	for _, r := range snapshot {
		if now.Sub(r.LastSent) < c.retryInterval {
			remaining = append(remaining, r)
			continue
		}
		if r.Sent >= c.maxAttempts {
			gaveUp = append(gaveUp, r)
			continue
		}
		r.Sent++
		r.LastSent = now
		remaining = append(remaining, r)
		retry = append(retry, r)
	}
	c.requests = remaining
	return retry, gaveUp
}

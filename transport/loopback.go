package transport

import (
	"context"
	"fmt"
)

// Loopback is an in-memory Transport useful for local testing and
// demonstration: received frames come only from Inject, and
// transmitted frames are discarded, mirroring the teacher's example
// capture loop without requiring a real adapter.
type Loopback struct {
	inbound chan Frame
}

// NewLoopback returns a Loopback transport with the given inbound
// queue depth.
func NewLoopback(queueDepth int) *Loopback {
	return &Loopback{inbound: make(chan Frame, queueDepth)}
}

// Inject enqueues a frame as if it had arrived on iface, for tests and
// demos driving the router from outside.
func (l *Loopback) Inject(iface string, frame []byte) error {
	select {
	case l.inbound <- Frame{Iface: iface, Bytes: frame}:
		return nil
	default:
		return fmt.Errorf("loopback: inbound queue full")
	}
}

// Receive implements Transport.
func (l *Loopback) Receive(ctx context.Context) (Frame, error) {
	select {
	case f := <-l.inbound:
		return f, nil
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

// Transmit implements Transport. A real adapter would write to the
// wire; Loopback simply drops the frame, since nothing consumes
// frames transmitted on a simulated interface.
func (l *Loopback) Transmit(iface string, frame []byte) error {
	return nil
}

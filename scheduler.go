package router

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler periodically sweeps a ResolutionCache, resending ARP
// queries for outstanding requests and giving up on requests that have
// exhausted their retry budget.
type Scheduler struct {
	ifaces *InterfaceTable
	cache  *ResolutionCache
	tx     Transmitter
	log    *slog.Logger
	tick   time.Duration
}

// NewScheduler builds a Scheduler that sweeps cache every tick,
// transmitting retries and give-up notifications through tx.
func NewScheduler(ifaces *InterfaceTable, cache *ResolutionCache, tx Transmitter, log *slog.Logger, tick time.Duration) *Scheduler {
	return &Scheduler{ifaces: ifaces, cache: cache, tx: tx, log: log, tick: tick}
}

// Run sweeps the cache on every tick until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.sweepOnce(now)
		}
	}
}

func (s *Scheduler) sweepOnce(now time.Time) {
	retry, gaveUp := s.cache.Sweep(now)
	for _, r := range retry {
		s.resendQuery(r)
	}
	for _, r := range gaveUp {
		s.giveUp(r)
	}
}

func (s *Scheduler) resendQuery(r *PendingRequest) {
	broadcastARPQuery(s.ifaces, s.tx, s.log, r.IP)
	s.log.Debug("resent arp query", "ip", r.IP, "attempt", r.Sent)
}

func (s *Scheduler) giveUp(r *PendingRequest) {
	s.log.Warn("giving up resolution", "ip", r.IP, "attempts", r.Sent, "queued_frames", len(r.Frames))
	for _, f := range r.Frames {
		notifyHostUnreachable(s.ifaces, s.tx, s.log, f)
	}
}

package router

//go:generate mockgen -source=handler.go -destination=mock/transmitter.go -package=mock_router

import (
	"log/slog"
	"net"
	"time"

	"ipv4router/wire"
)

// Transmitter is the outbound half of the transport boundary: send a
// complete link-layer frame out iface.
type Transmitter interface {
	Transmit(iface string, frame []byte) error
}

// Handler classifies and forwards inbound link-layer frames: ARP
// requests/replies and IPv4 datagrams addressed to the router or
// passing through it.
type Handler struct {
	ifaces *InterfaceTable
	routes *RouteTable
	cache  *ResolutionCache
	tx     Transmitter
	log    *slog.Logger
}

// NewHandler builds a Handler wired to the given tables and
// transmitter.
func NewHandler(ifaces *InterfaceTable, routes *RouteTable, cache *ResolutionCache, tx Transmitter, log *slog.Logger) *Handler {
	return &Handler{ifaces: ifaces, routes: routes, cache: cache, tx: tx, log: log}
}

// Handle classifies one inbound frame received on recvIface and acts
// on it. Malformed or unsupported frames are logged and dropped, never
// returned as a fatal error.
func (h *Handler) Handle(recvIface string, frame []byte) {
	eth, err := wire.ParseEthernet(frame)
	if err != nil {
		h.log.Debug("drop frame: bad ethernet header", "iface", recvIface, "err", err)
		return
	}
	switch eth.Type {
	case wire.EtherTypeARP:
		h.handleARP(recvIface, eth)
	case wire.EtherTypeIPv4:
		h.handleIPv4(recvIface, eth)
	default:
		h.log.Debug("drop frame: unsupported ethertype", "iface", recvIface, "ethertype", eth.Type)
	}
}

func (h *Handler) handleARP(recvIface string, eth *wire.EthernetFrame) {
	msg, err := wire.ParseARP(eth.Payload)
	if err != nil {
		h.log.Debug("drop arp: parse failed", "iface", recvIface, "err", err)
		return
	}
	switch msg.Op {
	case wire.ARPRequest:
		h.replyARP(recvIface, msg)
	case wire.ARPReply:
		h.handleARPReply(msg)
	default:
		h.log.Debug("drop arp: unsupported op", "op", msg.Op)
	}
}

func (h *Handler) replyARP(recvIface string, query *wire.ARPMessage) {
	iface, ok := h.ifaces.ByAddr(query.TargetProto)
	if !ok {
		h.log.Debug("drop arp request: not for us", "target", query.TargetProto)
		return
	}
	reply := wire.BuildARPReply(query, iface.LinkAddr, iface.NetAddr)
	payload, err := wire.MarshalARP(reply)
	if err != nil {
		h.log.Error("marshal arp reply", "err", err)
		return
	}
	frame, err := wire.MarshalEthernet(query.SenderHW, iface.LinkAddr, wire.EtherTypeARP, payload)
	if err != nil {
		h.log.Error("marshal ethernet arp reply", "err", err)
		return
	}
	h.transmitOrWarn(recvIface, frame)
}

func (h *Handler) handleARPReply(msg *wire.ARPMessage) {
	requests := h.cache.Insert(msg.SenderProto, msg.SenderHW, time.Now())
	if len(requests) == 0 {
		h.log.Debug("arp reply: binding learned, nothing queued", "ip", msg.SenderProto)
		return
	}
	for _, r := range requests {
		for _, f := range r.Frames {
			frame, err := wire.MarshalEthernet(msg.SenderHW, r.SenderHW, wire.EtherTypeIPv4, f.Bytes)
			if err != nil {
				h.log.Error("marshal flushed frame", "err", err)
				continue
			}
			h.transmitOrWarn(r.OutIface, frame)
		}
	}
}

func (h *Handler) handleIPv4(recvIface string, eth *wire.EthernetFrame) {
	ip, err := wire.ParseIPv4(eth.Payload)
	if err != nil {
		h.log.Debug("drop ipv4: parse failed", "iface", recvIface, "err", err)
		return
	}
	if !wire.ValidateChecksum(ip.Raw[:wire.IPv4HeaderLen]) {
		h.log.Debug("drop ipv4: bad checksum", "iface", recvIface, "src", ip.Src)
		return
	}

	if _, local := h.ifaces.ByAddr(ip.Dst); local {
		h.handleLocal(recvIface, eth, ip)
		return
	}

	h.forward(recvIface, eth, ip)
}

func (h *Handler) handleLocal(recvIface string, eth *wire.EthernetFrame, ip *wire.IPv4Header) {
	switch ip.Protocol {
	case wire.ProtoICMP:
		echo, err := wire.ParseICMPEcho(ip.Payload())
		if err != nil {
			h.log.Debug("drop icmp: not an echo request", "src", ip.Src, "err", err)
			return
		}
		if echo.Type != wire.ICMPTypeEchoRequest {
			h.log.Debug("drop icmp: unexpected type", "type", echo.Type)
			return
		}
		h.replyEcho(recvIface, eth, ip, echo)
	default:
		h.replyPortUnreachable(recvIface, eth, ip)
	}
}

func (h *Handler) replyEcho(recvIface string, eth *wire.EthernetFrame, ip *wire.IPv4Header, echo *wire.ICMPEcho) {
	iface, ok := h.ifaces.ByAddr(ip.Dst)
	if !ok {
		return
	}
	reply := wire.MarshalICMPEcho(wire.ICMPTypeEchoReply, echo.ID, echo.Seq, echo.Data())
	datagram := wire.MarshalIPv4(0, 0, 0, 64, wire.ProtoICMP, iface.NetAddr, ip.Src, reply)
	frame, err := wire.MarshalEthernet(eth.Src, iface.LinkAddr, wire.EtherTypeIPv4, datagram)
	if err != nil {
		h.log.Error("marshal echo reply", "err", err)
		return
	}
	h.transmitOrWarn(recvIface, frame)
}

// replyPortUnreachable notifies the sender of a local datagram with no
// listener. Unlike sendICMPError (used for transit drops, where the
// receiving interface is the right source), the network source here
// is the datagram's own original destination and the link source is
// the original frame's link destination, since ip.Dst need not be the
// address of the interface the datagram happened to arrive on.
func (h *Handler) replyPortUnreachable(recvIface string, eth *wire.EthernetFrame, ip *wire.IPv4Header) {
	msg := wire.MarshalICMPError(wire.ICMPTypeDestUnreachable, wire.ICMPCodePortUnreachable, ip.Raw)
	datagram := wire.MarshalIPv4(0, 0, 0, 64, wire.ProtoICMP, ip.Dst, ip.Src, msg)
	frame, err := wire.MarshalEthernet(eth.Src, eth.Dst, wire.EtherTypeIPv4, datagram)
	if err != nil {
		h.log.Error("marshal port unreachable", "err", err)
		return
	}
	h.transmitOrWarn(recvIface, frame)
}

func (h *Handler) forward(recvIface string, eth *wire.EthernetFrame, ip *wire.IPv4Header) {
	newTTL := ip.TTL - 1
	if ip.TTL == 0 {
		newTTL = 0
	}
	ip.SetTTL(newTTL)
	if newTTL == 0 {
		h.sendICMPError(recvIface, eth, ip, wire.ICMPTypeTimeExceeded, wire.ICMPCodeTTLExceeded)
		return
	}

	route, ok := h.routes.Lookup(ip.Dst)
	if !ok {
		h.sendICMPError(recvIface, eth, ip, wire.ICMPTypeDestUnreachable, wire.ICMPCodeNetUnreachable)
		return
	}

	resolveKey := ip.Dst
	if !route.DirectlyConnected() {
		resolveKey = route.Gateway
	}

	if hw, ok := h.cache.Lookup(resolveKey, time.Now()); ok {
		frame, err := wire.MarshalEthernet(hw, h.outIfaceLinkAddr(route.Interface), wire.EtherTypeIPv4, ip.Raw)
		if err != nil {
			h.log.Error("marshal forwarded frame", "err", err)
			return
		}
		h.transmitOrWarn(route.Interface, frame)
		return
	}

	h.queueAndResolve(recvIface, eth, ip, route, resolveKey)
}

func (h *Handler) queueAndResolve(recvIface string, eth *wire.EthernetFrame, ip *wire.IPv4Header, route RouteRecord, resolveKey net.IP) {
	outIface, ok := h.ifaces.ByName(route.Interface)
	if !ok {
		h.log.Error("route names unknown interface", "interface", route.Interface)
		return
	}
	queued := make([]byte, len(ip.Raw))
	copy(queued, ip.Raw)
	frame := &PendingFrame{
		Bytes:       queued,
		RecvIface:   recvIface,
		SrcLinkAddr: eth.Src,
	}
	_, isNew := h.cache.QueueForResolution(resolveKey, route.Interface, outIface.LinkAddr, frame, time.Now())
	if !isNew {
		return
	}
	broadcastARPQuery(h.ifaces, h.tx, h.log, resolveKey)
}

// broadcastARPQuery transmits an ARP request for target out every
// router interface, each sourced from that interface's own identity.
// A resolution query is broadcast per interface, not just the one the
// route names, since the router cannot know in advance which segment
// the target actually sits on.
func broadcastARPQuery(ifaces *InterfaceTable, tx Transmitter, log *slog.Logger, target net.IP) {
	for _, iface := range ifaces.All() {
		query := wire.BuildARPQuery(iface.LinkAddr, iface.NetAddr, target)
		payload, err := wire.MarshalARP(query)
		if err != nil {
			log.Error("marshal arp query", "iface", iface.Name, "err", err)
			continue
		}
		frame, err := wire.MarshalEthernet(wire.BroadcastHW, iface.LinkAddr, wire.EtherTypeARP, payload)
		if err != nil {
			log.Error("marshal ethernet arp query", "iface", iface.Name, "err", err)
			continue
		}
		if err := tx.Transmit(iface.Name, frame); err != nil {
			log.Warn("transmit arp query failed", "iface", iface.Name, "ip", target, "err", err)
		}
	}
}

func (h *Handler) outIfaceLinkAddr(name string) net.HardwareAddr {
	if iface, ok := h.ifaces.ByName(name); ok {
		return iface.LinkAddr
	}
	return nil
}

func (h *Handler) sendICMPError(recvIface string, eth *wire.EthernetFrame, ip *wire.IPv4Header, t wire.ICMPType, code uint8) {
	iface, ok := h.ifaces.ByName(recvIface)
	if !ok {
		h.log.Error("icmp error: unknown receiving interface", "iface", recvIface)
		return
	}
	msg := wire.MarshalICMPError(t, code, ip.Raw)
	datagram := wire.MarshalIPv4(0, 0, 0, 64, wire.ProtoICMP, iface.NetAddr, ip.Src, msg)
	frame, err := wire.MarshalEthernet(eth.Src, iface.LinkAddr, wire.EtherTypeIPv4, datagram)
	if err != nil {
		h.log.Error("marshal icmp error", "err", err)
		return
	}
	h.transmitOrWarn(recvIface, frame)
}

func (h *Handler) transmitOrWarn(iface string, frame []byte) {
	if err := h.tx.Transmit(iface, frame); err != nil {
		h.log.Warn("transmit failed", "iface", iface, "err", err)
	}
}

// notifyHostUnreachable sends a destination-host-unreachable message
// back toward a queued frame's original sender, used when resolution
// of its next hop has been abandoned.
func notifyHostUnreachable(ifaces *InterfaceTable, tx Transmitter, log *slog.Logger, f *PendingFrame) {
	origIP, err := wire.ParseIPv4(f.Bytes)
	if err != nil {
		log.Error("give up: cannot parse queued frame", "err", err)
		return
	}
	iface, ok := ifaces.ByName(f.RecvIface)
	if !ok {
		log.Error("give up: unknown receiving interface", "iface", f.RecvIface)
		return
	}
	msg := wire.MarshalICMPError(wire.ICMPTypeDestUnreachable, wire.ICMPCodeHostUnreachable, origIP.Raw)
	datagram := wire.MarshalIPv4(0, 0, 0, 64, wire.ProtoICMP, iface.NetAddr, origIP.Src, msg)
	frame, err := wire.MarshalEthernet(f.SrcLinkAddr, iface.LinkAddr, wire.EtherTypeIPv4, datagram)
	if err != nil {
		log.Error("marshal give-up notice", "err", err)
		return
	}
	if err := tx.Transmit(f.RecvIface, frame); err != nil {
		log.Warn("transmit give-up notice failed", "iface", f.RecvIface, "err", err)
	}
}

package node

import (
	"time"

	"github.com/cenkalti/fileshare/internal/framer"
	"github.com/cenkalti/fileshare/internal/probe"
	"github.com/cenkalti/fileshare/internal/wire"
)

// datagramLoop reads inbound peer datagrams and dispatches each to a
// fresh goroutine, so a slow BLOCK write never delays a PING reply.
func (n *Node) datagramLoop() {
	buf := make([]byte, n.config.MTU+4096)
	for {
		nRead, addr, err := n.udpConn.ReadFromUDP(buf)
		if err != nil {
			return // socket closed during shutdown
		}
		n.transfer.RecordDownload(int64(nRead))

		raw := make([]byte, nRead)
		copy(raw, buf[:nRead])
		sender := n.resolveSender(addr)
		go n.handleDatagram(sender, raw)
	}
}

func (n *Node) handleDatagram(sender string, raw []byte) {
	msg, err := framer.SplitDatagram(raw)
	if err != nil {
		n.log.Warningln("unterminated datagram from", sender, ":", err)
		return
	}
	decoded, err := wire.DecodeDatagram(msg)
	if err != nil {
		n.log.Warningln("protocol violation from", sender, ":", err)
		return
	}

	switch m := decoded.(type) {
	case wire.DownloadRequest:
		go n.sendFile(m.Filename, sender)
	case wire.Block:
		n.handleBlock(sender, m)
	case wire.CorruptedBlock:
		n.handleCorruptedBlock(sender, m)
	case wire.Ping:
		n.handlePing(sender, m)
	case wire.Presponse:
		n.handlePresponse(sender, m)
	default:
		n.log.Warningln("unhandled datagram type from", sender)
	}
}

func (n *Node) handlePing(sender string, m wire.Ping) {
	if err := n.sendDatagram(sender, wire.EncodePresponse(m.T0)); err != nil {
		n.log.Errorln("presponse to", sender, "failed:", err)
	}
}

func (n *Node) handlePresponse(sender string, m wire.Presponse) {
	rtt := nowSeconds() - m.T0
	n.probes.Record(sender, rtt)
}

// pingSender adapts the node's datagram transport into a probe.Sender.
func (n *Node) pingSender() probe.Sender {
	return func(peer string, t0 float64) error {
		return n.sendDatagram(peer, wire.EncodePing(t0))
	}
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

package node

import (
	"io/ioutil"

	"github.com/cenkalti/fileshare/internal/blockxfer"
	"github.com/cenkalti/fileshare/internal/wire"
)

// sendFile splits the file, digests and caches each block, and streams
// BLOCK datagrams to requester.
func (n *Node) sendFile(filename, requester string) {
	if err := blockxfer.ValidateBlockSize(filename, n.config.BlockSize, n.config.MTU); err != nil {
		n.log.Errorln("cannot serve", filename, "to", requester, ":", err)
		return
	}

	data, err := ioutil.ReadFile(n.filePath(filename))
	if err != nil {
		n.log.Errorln("cannot serve", filename, "to", requester, ":", err)
		return
	}

	blocks, err := blockxfer.Split(filename, data, n.config.BlockSize)
	if err != nil {
		n.log.Errorln("cannot split", filename, ":", err)
		return
	}

	for _, b := range blocks {
		digest := b.Digest()
		n.sendCache.Put(b.Filename, b.Index, b.Payload, digest)
		msg := wire.EncodeBlock(wire.Block{
			Filename: b.Filename,
			Index:    b.Index,
			Total:    b.Total,
			Digest:   digest,
			Payload:  b.Payload,
		})
		if err := n.sendDatagram(requester, msg); err != nil {
			n.log.Errorln("sending block", b.Index, "of", filename, "to", requester, "failed:", err)
			return
		}
	}
	n.log.Infof("sent %d block(s) of %s to %s", len(blocks), filename, requester)
}

// handleCorruptedBlock resends an identical BLOCK datagram from cache,
// or gives up on the transfer if the block was already evicted.
func (n *Node) handleCorruptedBlock(requester string, m wire.CorruptedBlock) {
	entry, err := n.sendCache.MustGet(m.Filename, m.Index)
	if err != nil {
		n.log.Errorln("cannot resend block", m.Index, "of", m.Filename, "to", requester, ":", err)
		return
	}
	msg := wire.EncodeBlock(wire.Block{
		Filename: m.Filename,
		Index:    m.Index,
		Total:    m.Total,
		Digest:   entry.Digest,
		Payload:  entry.Payload,
	})
	if err := n.sendDatagram(requester, msg); err != nil {
		n.log.Errorln("resending block", m.Index, "of", m.Filename, "to", requester, "failed:", err)
	}
}

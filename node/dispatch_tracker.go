package node

import (
	"io"

	"github.com/cenkalti/fileshare/internal/framer"
	"github.com/cenkalti/fileshare/internal/wire"
)

// streamLoop reads framed messages from the tracker connection and
// dispatches each to a fresh goroutine. It returns (with an error) only
// when the connection is lost, which is fatal to the node.
func (n *Node) streamLoop() error {
	scanner := framer.NewScanner(n.trackerConn)
	for {
		msg, ok := framer.Next(scanner)
		if !ok {
			if err := scanner.Err(); err != nil && err != io.EOF {
				return err
			}
			return io.ErrClosedPipe
		}
		buf := make([]byte, len(msg))
		copy(buf, msg)
		go n.handleTrackerMessage(buf)
	}
}

func (n *Node) handleTrackerMessage(msg []byte) {
	decoded, err := wire.DecodeFromTracker(msg)
	if err != nil {
		n.log.Warningln("protocol violation from tracker, discarding:", err)
		return
	}

	switch m := decoded.(type) {
	case wire.FileFound:
		n.handleFileFound(m)
	case wire.FileNotFound:
		n.log.Infoln("file not found:", m.Filename)
	case wire.BFound:
		n.handleBFound(m)
	case wire.BNotFound:
		n.log.Debugln("no partial holders for", m.Filename)
	case wire.AlreadyFile:
		n.log.Infoln("already have file:", m.Filename)
	case wire.Registered:
		n.log.Infoln("registered with tracker", m.TrackerName)
	default:
		n.log.Warningln("unhandled tracker message type")
	}
}

// handleFileFound selects the fastest advertised owner and asks it to
// start sending blocks.
func (n *Node) handleFileFound(m wire.FileFound) {
	peer, err := n.probes.Fastest(m.Peers, n.pingSender(), n.config.ProbeTimeout)
	if err != nil {
		n.log.Errorln("probe round failed for", m.Filename, ":", err)
		return
	}
	n.log.Infof("fetching %s from %s", m.Filename, peer)
	n.beginDownload(m.Filename)
	if err := n.sendDatagram(peer, wire.EncodeDownloadRequest(m.Filename)); err != nil {
		n.log.Errorln("download request to", peer, "failed:", err)
	}
}

// handleBFound records partial-block holders for future multi-source
// planning; it does not by itself issue any download requests. B_FOUND
// arrives independently of FILE_FOUND, so this only updates the local
// ledger mirror rather than triggering a fetch.
func (n *Node) handleBFound(m wire.BFound) {
	n.mu.Lock()
	n.ledger[m.Filename] = m.Holders
	n.mu.Unlock()
	n.log.Debugf("%s has %d partial-block holder(s)", m.Filename, len(m.Holders))
}

// knownHolders returns the most recently reported partial-block holders
// for filename, or nil if none have been reported.
func (n *Node) knownHolders(filename string) []wire.Holder {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ledger[filename]
}

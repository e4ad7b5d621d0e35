package node

import (
	"encoding/base64"
	"io/ioutil"
	"sync"

	uuid "github.com/satori/go.uuid"

	"github.com/cenkalti/fileshare/internal/bitfield"
	"github.com/cenkalti/fileshare/internal/blockxfer"
	"github.com/cenkalti/fileshare/internal/wire"
)

// receiveState tracks one in-flight download's pending blocks, scoped to
// a single filename. round identifies this particular fetch of filename
// for log correlation; done makes DONE go out at most once per round. A
// round lasts until reassembly removes it, so a fresh GET of a file
// whose earlier round is still present (for instance one that gave up
// after MaxBlockRetries) continues that round, keeping its blocks and
// retry counts. have tracks which indices have arrived as a
// compact bitmap, checked to detect completion without rescanning
// blocks; it is allocated once total is known, from the first valid
// BLOCK.
type receiveState struct {
	mu      sync.Mutex
	round   string
	total   int
	blocks  map[int][]byte
	have    *bitfield.Bitfield
	retries map[int]int
	done    bool
}

func newReceiveState() *receiveState {
	return &receiveState{
		round:   newRoundID(),
		blocks:  make(map[int][]byte),
		retries: make(map[int]int),
	}
}

// newRoundID mints a short, unique download-round identifier the same
// way session.Session.add mints torrent IDs: a v1 UUID, URL-safe
// base64-encoded.
func newRoundID() string {
	id := uuid.NewV1()
	return base64.RawURLEncoding.EncodeToString(id[:])
}

func (n *Node) beginDownload(filename string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.downloads[filename]; !ok {
		st := newReceiveState()
		n.downloads[filename] = st
		n.log.Debugf("download round %s started for %s", st.round, filename)
	}
}

func (n *Node) downloadState(filename string) *receiveState {
	n.mu.Lock()
	defer n.mu.Unlock()
	st, ok := n.downloads[filename]
	if !ok {
		st = newReceiveState()
		n.downloads[filename] = st
	}
	return st
}

func (n *Node) finishDownload(filename string) {
	n.mu.Lock()
	delete(n.downloads, filename)
	n.mu.Unlock()
}

// handleBlock validates an inbound block against its digest, requests a
// resend on mismatch, and reassembles the file once every block has
// arrived.
func (n *Node) handleBlock(sender string, b wire.Block) {
	if b.Total < 1 || b.Index < 1 || b.Index > b.Total {
		n.log.Warningln("discarding block with out-of-range index/total from", sender, ":", b.Index, "/", b.Total)
		return
	}

	recomputed := blockxfer.Digest(b.Payload)
	if recomputed != b.Digest {
		st := n.downloadState(b.Filename)
		st.mu.Lock()
		retries := st.retries[b.Index]
		st.mu.Unlock()
		if retries >= n.config.MaxBlockRetries {
			n.log.Errorln("block", b.Index, "of", b.Filename, "from", sender, "exceeded max retries, giving up")
			return
		}
		st.mu.Lock()
		st.retries[b.Index]++
		st.mu.Unlock()
		if err := n.sendDatagram(sender, wire.EncodeCorruptedBlock(b.Filename, b.Index, b.Total)); err != nil {
			n.log.Errorln("reporting corrupted block to", sender, "failed:", err)
		}
		return
	}

	st := n.downloadState(b.Filename)
	st.mu.Lock()
	if st.done {
		st.mu.Unlock()
		return
	}
	if st.have == nil {
		st.total = b.Total
		st.have = bitfield.New(b.Total)
	} else if b.Total != st.total {
		st.mu.Unlock()
		n.log.Warningln("discarding block from", sender, "with total", b.Total, "inconsistent with round's established total", st.total)
		return
	}
	st.blocks[b.Index] = b.Payload
	st.have.Set(b.Index)
	complete := st.have.All()
	if complete {
		st.done = true
	}
	st.mu.Unlock()

	if err := n.writeTracker(wire.EncodeGotBlock(b.Filename, b.Index)); err != nil {
		n.log.Errorln("announcing block to tracker failed:", err)
	}

	if complete {
		n.reassemble(b.Filename, st)
	}
}

// reassemble concatenates blocks in index order, writes the result to
// disk, sends DONE exactly once, and drops the pending entries.
func (n *Node) reassemble(filename string, st *receiveState) {
	st.mu.Lock()
	total := st.total
	blocks := st.blocks
	st.mu.Unlock()

	data, err := blockxfer.Assemble(blocks, total)
	if err != nil {
		n.log.Errorln("reassembly of", filename, "failed:", err)
		return
	}
	if err := ioutil.WriteFile(n.filePath(filename), data, 0o644); err != nil {
		n.log.Errorln("writing", filename, "failed:", err)
		return
	}

	n.log.Debugf("download round %s of %s reassembled, sending DONE", st.round, filename)
	if err := n.writeTracker(wire.EncodeDone(filename)); err != nil {
		n.log.Errorln("announcing completion to tracker failed:", err)
	}
	n.finishDownload(filename)
	n.log.Infoln("download complete:", filename)
}

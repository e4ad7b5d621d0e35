// Package node implements the peer runtime: one stream connection to
// the tracker, one shared-port datagram endpoint, and three concurrent
// activities reading from them plus standard input.
package node

import (
	"fmt"
	"io/ioutil"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cenkalti/fileshare/internal/blockxfer"
	"github.com/cenkalti/fileshare/internal/framer"
	"github.com/cenkalti/fileshare/internal/identity"
	"github.com/cenkalti/fileshare/internal/logger"
	"github.com/cenkalti/fileshare/internal/probe"
	"github.com/cenkalti/fileshare/internal/sendcache"
	"github.com/cenkalti/fileshare/internal/stats"
	"github.com/cenkalti/fileshare/internal/wire"
)

// Node is one participant in the network: it both serves files it owns
// and fetches files it doesn't.
type Node struct {
	config Config
	log    logger.Logger

	trackerConn net.Conn
	udpConn     *net.UDPConn

	sendCache *sendcache.Cache
	probes    *probe.Tracker
	transfer  *stats.Transfer
	resolver  identity.Resolver

	mu        sync.Mutex
	addrCache map[string]*net.UDPAddr
	downloads map[string]*receiveState
	ledger    map[string][]wire.Holder // filename -> known partial-block holders, from B_FOUND
	closed    bool
	exitC     chan struct{}
}

// New returns a Node that has not yet connected to anything.
func New(config Config) *Node {
	return &Node{
		config:    config,
		log:       logger.New("node"),
		sendCache: sendcache.New(config.SendCacheSize),
		probes:    probe.New(),
		transfer:  stats.NewTransfer(),
		resolver:  identity.DefaultResolver,
		addrCache: make(map[string]*net.UDPAddr),
		downloads: make(map[string]*receiveState),
		ledger:    make(map[string][]wire.Holder),
		exitC:     make(chan struct{}),
	}
}

// Run dials the tracker, binds the datagram endpoint, registers the
// node's current file set, and runs until EXIT is requested or the
// tracker connection is lost. It blocks until shutdown.
func (n *Node) Run() error {
	// A short placeholder name here only catches a block size that's
	// oversized regardless of filename; sendFile re-validates against
	// the real filename before streaming blocks, since a longer name
	// eats into the same MTU budget.
	if err := blockxfer.ValidateBlockSize("any", n.config.BlockSize, n.config.MTU); err != nil {
		return err
	}

	conn, err := net.Dial("tcp", n.config.TrackerAddr)
	if err != nil {
		return fmt.Errorf("node: dial tracker: %w", err)
	}
	n.trackerConn = conn

	bindIP := net.IPv4zero
	if n.config.BindAddr != "" {
		bindIP = net.ParseIP(n.config.BindAddr)
	}
	udpConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: bindIP, Port: n.config.ListenPort})
	if err != nil {
		return fmt.Errorf("node: bind datagram endpoint: %w", err)
	}
	n.udpConn = udpConn

	files, err := n.ownedFiles()
	if err != nil {
		return err
	}
	if err := n.writeTracker(wire.EncodeRegister(files)); err != nil {
		return err
	}
	n.log.Infof("registered %d file(s) with tracker", len(files))

	streamErrC := make(chan error, 1)
	go func() { streamErrC <- n.streamLoop() }()
	go n.datagramLoop()
	go n.commandLoop()
	go n.transfer.RunTicker(5*time.Second, n.exitC)

	select {
	case err := <-streamErrC:
		// Tracker connection loss is fatal to the node.
		n.shutdown()
		return err
	case <-n.exitC:
		n.shutdown()
		return nil
	}
}

func (n *Node) ownedFiles() ([]string, error) {
	entries, err := ioutil.ReadDir(n.config.FilesDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, e.Name())
		}
	}
	return files, nil
}

func (n *Node) filePath(filename string) string {
	return filepath.Join(n.config.FilesDir, filename)
}

// requestExit is called by the command loop on an EXIT command.
func (n *Node) requestExit() {
	n.writeTracker(wire.EncodeExit())
	close(n.exitC)
}

func (n *Node) shutdown() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	n.mu.Unlock()

	if n.udpConn != nil {
		n.udpConn.Close()
	}
	if n.trackerConn != nil {
		n.trackerConn.Close()
	}
	n.log.Infoln("shut down")
}

func (n *Node) writeTracker(msg []byte) error {
	_, err := n.trackerConn.Write(framer.Encode(msg))
	return err
}

// peerAddr resolves peer to a UDP address, caching the result.
func (n *Node) peerAddr(peer string) (*net.UDPAddr, error) {
	n.mu.Lock()
	if addr, ok := n.addrCache[peer]; ok {
		n.mu.Unlock()
		return addr, nil
	}
	n.mu.Unlock()

	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", peer, n.config.ListenPort))
	if err != nil {
		return nil, err
	}
	n.mu.Lock()
	n.addrCache[peer] = addr
	n.mu.Unlock()
	return addr, nil
}

// sendDatagram frames and sends msg to peer.
func (n *Node) sendDatagram(peer string, msg []byte) error {
	addr, err := n.peerAddr(peer)
	if err != nil {
		return err
	}
	framed := framer.Encode(msg)
	nWritten, err := n.udpConn.WriteToUDP(framed, addr)
	if err == nil {
		n.transfer.RecordUpload(int64(nWritten))
	}
	return err
}

// resolveSender turns a datagram's source address into a stable peer
// name via reverse DNS.
func (n *Node) resolveSender(addr *net.UDPAddr) string {
	return identity.FromAddr(addr.String(), n.resolver)
}

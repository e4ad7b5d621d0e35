// Package tracker implements the rendezvous service: it accepts stream
// connections from nodes, resolves each to a stable peer name, and runs
// one handler goroutine per connected peer against a shared
// trackerstate.State.
package tracker

import (
	"io"
	"net"

	"github.com/cenkalti/fileshare/internal/framer"
	"github.com/cenkalti/fileshare/internal/identity"
	"github.com/cenkalti/fileshare/internal/logger"
	"github.com/cenkalti/fileshare/internal/trackerstate"
	"github.com/cenkalti/fileshare/internal/wire"
)

// Tracker accepts node connections and serves directory lookups.
type Tracker struct {
	config Config
	state  *trackerstate.State
	log    logger.Logger

	listener net.Listener
}

// New returns a Tracker ready to ListenAndServe.
func New(config Config) *Tracker {
	return &Tracker{
		config: config,
		state:  trackerstate.New(),
		log:    logger.New("tracker"),
	}
}

// ListenAndServe binds the configured address and serves connections
// until the listener is closed (see Close).
func (t *Tracker) ListenAndServe() error {
	ln, err := net.Listen("tcp", t.config.ListenAddr)
	if err != nil {
		return err
	}
	t.listener = ln
	t.log.Infof("tracker %q listening on %s", t.config.Name, t.config.ListenAddr)
	return t.serve(ln)
}

// Close stops accepting new connections.
func (t *Tracker) Close() error {
	if t.listener == nil {
		return nil
	}
	return t.listener.Close()
}

func (t *Tracker) serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go t.handleConn(conn)
	}
}

func (t *Tracker) handleConn(conn net.Conn) {
	peer := identity.FromConn(conn, identity.DefaultResolver)
	log := logger.New("tracker <- " + peer)
	log.Infoln("peer connected")

	defer func() {
		t.state.Exit(peer)
		conn.Close()
		log.Infoln("peer disconnected")
	}()

	scanner := framer.NewScanner(conn)
	for {
		msg, ok := framer.Next(scanner)
		if !ok {
			if err := scanner.Err(); err != nil && err != io.EOF {
				log.Errorln("framing error:", err)
			}
			return
		}
		if t.dispatch(peer, msg, conn, log) {
			return
		}
	}
}

// dispatch handles one decoded node->tracker message. It returns true if
// the connection should be closed (EXIT was received).
func (t *Tracker) dispatch(peer string, msg []byte, conn net.Conn, log logger.Logger) bool {
	decoded, err := wire.DecodeFromNode(msg)
	if err != nil {
		log.Warningln("protocol violation, discarding:", err)
		return false
	}

	switch m := decoded.(type) {
	case wire.Register:
		t.state.Register(peer, m.Files)
		writeMessage(conn, wire.EncodeRegistered(t.config.Name), log)
	case wire.Get:
		t.handleGet(peer, m.Filename, conn, log)
	case wire.GotBlock:
		t.state.GotBlock(peer, m.Filename, m.Index)
	case wire.Done:
		t.state.Done(peer, m.Filename)
	case wire.Exit:
		return true
	default:
		log.Warningln("unhandled node message type")
	}
	return false
}

func (t *Tracker) handleGet(peer, filename string, conn net.Conn, log logger.Logger) {
	owns, owners, holders := t.state.GetSnapshot(peer, filename)

	if owns {
		writeMessage(conn, wire.EncodeAlreadyFile(filename), log)
	} else if len(owners) > 0 {
		writeMessage(conn, wire.EncodeFileFound(filename, owners), log)
	} else {
		writeMessage(conn, wire.EncodeFileNotFound(filename), log)
	}

	if len(holders) > 0 {
		wireHolders := make([]wire.Holder, len(holders))
		for i, h := range holders {
			wireHolders[i] = wire.Holder{Peer: h.Peer, Index: h.Index}
		}
		writeMessage(conn, wire.EncodeBFound(filename, wireHolders), log)
	} else {
		writeMessage(conn, wire.EncodeBNotFound(filename), log)
	}
}

func writeMessage(w io.Writer, msg []byte, log logger.Logger) {
	if _, err := w.Write(framer.Encode(msg)); err != nil {
		log.Errorln("write error:", err)
	}
}

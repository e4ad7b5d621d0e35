package tracker

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/cenkalti/fileshare/internal/framer"
	"github.com/cenkalti/fileshare/internal/wire"
)

func startTestTracker(t *testing.T) (*Tracker, string) {
	t.Helper()
	tr := New(Config{Name: "T", ListenAddr: "127.0.0.1:0"})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	tr.listener = ln
	go tr.serve(ln)
	t.Cleanup(func() { tr.Close() })
	return tr, ln.Addr().String()
}

func mustDial(t *testing.T, addr string) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	return conn
}

func readOne(t *testing.T, conn net.Conn) []byte {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	s := bufio.NewScanner(conn)
	s.Split(framer.Split)
	for s.Scan() {
		if len(s.Bytes()) == 0 {
			continue
		}
		out := make([]byte, len(s.Bytes()))
		copy(out, s.Bytes())
		return out
	}
	t.Fatalf("no message received: %v", s.Err())
	return nil
}

func send(t *testing.T, conn net.Conn, msg []byte) {
	t.Helper()
	if _, err := conn.Write(framer.Encode(msg)); err != nil {
		t.Fatal(err)
	}
}

func TestGetFindsFullOwner(t *testing.T) {
	_, addr := startTestTracker(t)

	// The tracker names peers by host, so A dials from a second loopback
	// address; from the same host as B it would be B's own file and the
	// reply would be ALREADY_FILE.
	dialer := net.Dialer{LocalAddr: &net.TCPAddr{IP: net.ParseIP("127.0.0.2")}}
	connA, err := dialer.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer connA.Close()
	send(t, connA, wire.EncodeRegister([]string{"hello.txt"}))
	time.Sleep(50 * time.Millisecond) // let the tracker process REGISTER

	connB := mustDial(t, addr)
	defer connB.Close()
	send(t, connB, wire.EncodeGet("hello.txt"))

	first := readOne(t, connB)
	decoded, err := wire.DecodeFromTracker(first)
	if err != nil {
		t.Fatal(err)
	}
	ff, ok := decoded.(wire.FileFound)
	if !ok {
		t.Fatalf("got %#v, want FileFound", decoded)
	}
	if ff.Filename != "hello.txt" || len(ff.Peers) != 1 {
		t.Fatalf("got %#v", ff)
	}

	second := readOne(t, connB)
	decoded2, err := wire.DecodeFromTracker(second)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := decoded2.(wire.BNotFound); !ok {
		t.Fatalf("got %#v, want BNotFound", decoded2)
	}
}

func TestRegisterAcknowledged(t *testing.T) {
	_, addr := startTestTracker(t)

	conn := mustDial(t, addr)
	defer conn.Close()
	send(t, conn, wire.EncodeRegister([]string{"f.txt"}))

	msg := readOne(t, conn)
	decoded, err := wire.DecodeFromTracker(msg)
	if err != nil {
		t.Fatal(err)
	}
	ack, ok := decoded.(wire.Registered)
	if !ok {
		t.Fatalf("got %#v, want Registered", decoded)
	}
	if ack.TrackerName != "T" {
		t.Fatalf("got tracker name %q, want %q", ack.TrackerName, "T")
	}
}

func TestGetOnOwnFileReturnsAlreadyFile(t *testing.T) {
	_, addr := startTestTracker(t)

	conn := mustDial(t, addr)
	defer conn.Close()
	send(t, conn, wire.EncodeRegister([]string{"f.txt"}))
	readOne(t, conn) // REGISTERED ack
	send(t, conn, wire.EncodeGet("f.txt"))

	msg := readOne(t, conn)
	decoded, err := wire.DecodeFromTracker(msg)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := decoded.(wire.AlreadyFile); !ok {
		t.Fatalf("got %#v, want AlreadyFile", decoded)
	}
}

func TestExitThenGetReturnsFileNotFound(t *testing.T) {
	_, addr := startTestTracker(t)

	connA := mustDial(t, addr)
	send(t, connA, wire.EncodeRegister([]string{"a.txt", "b.txt"}))
	time.Sleep(50 * time.Millisecond)
	send(t, connA, wire.EncodeExit())
	time.Sleep(50 * time.Millisecond)
	connA.Close()

	connC := mustDial(t, addr)
	defer connC.Close()
	send(t, connC, wire.EncodeGet("a.txt"))

	msg := readOne(t, connC)
	decoded, err := wire.DecodeFromTracker(msg)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := decoded.(wire.FileNotFound); !ok {
		t.Fatalf("got %#v, want FileNotFound", decoded)
	}
}

func TestGotBlockThenGetReportsBFound(t *testing.T) {
	_, addr := startTestTracker(t)

	connA := mustDial(t, addr)
	defer connA.Close()
	send(t, connA, wire.EncodeGotBlock("big.bin", 1))
	time.Sleep(50 * time.Millisecond)

	connB := mustDial(t, addr)
	defer connB.Close()
	send(t, connB, wire.EncodeGet("big.bin"))

	first := readOne(t, connB)
	if _, err := wire.DecodeFromTracker(first); err != nil {
		t.Fatal(err)
	}

	second := readOne(t, connB)
	decoded, err := wire.DecodeFromTracker(second)
	if err != nil {
		t.Fatal(err)
	}
	bf, ok := decoded.(wire.BFound)
	if !ok {
		t.Fatalf("got %#v, want BFound", decoded)
	}
	if len(bf.Holders) != 1 || bf.Holders[0].Index != 1 {
		t.Fatalf("got %#v", bf)
	}
}

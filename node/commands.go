package node

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cenkalti/fileshare/internal/wire"
)

func stdinReader() io.Reader {
	return os.Stdin
}

// commandLoop reads user commands from stdin: `GET <filename>` and
// `EXIT` (case-insensitive).
func (n *Node) commandLoop() {
	n.commandLoopFrom(stdinReader())
}

func (n *Node) commandLoopFrom(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := n.handleCommand(line); err != nil {
			fmt.Println(err)
		}
		select {
		case <-n.exitC:
			return
		default:
		}
	}
}

func (n *Node) handleCommand(line string) error {
	upper := strings.ToUpper(line)
	switch {
	case upper == "EXIT":
		n.requestExit()
		return nil
	case strings.HasPrefix(upper, "GET "):
		filename := strings.TrimSpace(line[len("GET "):])
		if filename == "" {
			return fmt.Errorf("usage: GET <filename>")
		}
		return n.writeTracker(wire.EncodeGet(filename))
	default:
		return fmt.Errorf("unrecognized command: %s", line)
	}
}

// Command node runs one peer: it registers its served files with the
// tracker, serves blocks to other peers, and accepts `GET <filename>` /
// `EXIT` commands on standard input. Argument parsing is intentionally
// minimal.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/cenkalti/fileshare/internal/logger"
	"github.com/cenkalti/fileshare/node"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to node YAML config")
		trackerAddr = flag.String("tracker", "", "override the configured tracker address")
		filesDir    = flag.String("dir", "", "override the configured files directory")
	)
	flag.Parse()

	cfg, err := node.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "node: load config:", err)
		os.Exit(1)
	}
	if *trackerAddr != "" {
		cfg.TrackerAddr = *trackerAddr
	}
	if *filesDir != "" {
		cfg.FilesDir = *filesDir
	}

	log := logger.New("node/main")
	n := node.New(*cfg)
	if err := n.Run(); err != nil {
		log.Errorln("exited:", err)
		os.Exit(1)
	}
}

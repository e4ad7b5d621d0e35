// Command tracker runs the directory/block-ledger rendezvous service.
// Argument parsing is intentionally minimal: just enough flags to point
// at a config file and override the listen address.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/cenkalti/fileshare/internal/logger"
	"github.com/cenkalti/fileshare/tracker"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to tracker YAML config")
		listenAddr = flag.String("addr", "", "override the configured listen address")
	)
	flag.Parse()

	cfg, err := tracker.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "tracker: load config:", err)
		os.Exit(1)
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}

	log := logger.New("tracker/main")
	t := tracker.New(*cfg)
	if err := t.ListenAndServe(); err != nil {
		log.Errorln("exited:", err)
		os.Exit(1)
	}
}

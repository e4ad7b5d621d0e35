package node

import (
	"io/ioutil"
	"os"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v2"

	"github.com/cenkalti/fileshare/internal/blockxfer"
)

// Config holds one node's runtime settings.
type Config struct {
	// Name is loaded from the config file but not read by the node and
	// never sent on the wire: the tracker and other peers always name
	// this node by reverse DNS of the address it connects from.
	Name string `yaml:"name"`

	// TrackerAddr is the tracker's stream address, host:port.
	TrackerAddr string `yaml:"tracker_addr"`

	// ListenPort is the shared well-known datagram port every peer binds
	// to.
	ListenPort int `yaml:"listen_port"`

	// BindAddr optionally restricts the datagram endpoint to a single
	// local address instead of all interfaces. Mostly useful for running
	// more than one node on the same host (e.g. in tests).
	BindAddr string `yaml:"bind_addr"`

	// FilesDir is where served files are read from and downloaded files
	// are written to.
	FilesDir string `yaml:"files_dir"`

	// BlockSize is the maximum block payload size.
	BlockSize int `yaml:"block_size"`

	// MTU bounds the encoded size of a single datagram.
	MTU int `yaml:"mtu"`

	// ProbeTimeout bounds how long fastest() waits for PRESPONSEs.
	ProbeTimeout time.Duration `yaml:"probe_timeout"`

	// MaxBlockRetries bounds how many times a single block is
	// retransmitted before the download is reported as failed to the
	// user; not specified numerically by the protocol, set here as a
	// concrete, documented choice.
	MaxBlockRetries int `yaml:"max_block_retries"`

	// SendCacheSize bounds the sender-side LRU cache of recently sent
	// blocks (0 = unbounded).
	SendCacheSize int `yaml:"send_cache_size"`
}

// DefaultListenPort is the shared datagram port used when no config
// overrides it.
const DefaultListenPort = 9090

// DefaultConfig holds the out-of-the-box settings.
var DefaultConfig = Config{
	ListenPort:      DefaultListenPort,
	FilesDir:        ".",
	BlockSize:       blockxfer.DefaultBlockSize,
	MTU:             blockxfer.DefaultMTU,
	ProbeTimeout:    2 * time.Second,
	MaxBlockRetries: 5,
	SendCacheSize:   256,
}

// LoadConfig reads filename as YAML over DefaultConfig, resolving
// FilesDir through the user's home directory.
func LoadConfig(filename string) (*Config, error) {
	c := DefaultConfig
	b, err := ioutil.ReadFile(filename)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}
	dir, err := homedir.Expand(c.FilesDir)
	if err != nil {
		return nil, err
	}
	c.FilesDir = dir
	return &c, nil
}

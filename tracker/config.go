package tracker

import (
	"io/ioutil"
	"os"

	"gopkg.in/yaml.v2"
)

// Config holds the tracker's runtime settings: defaults overridden by
// an optional YAML file.
type Config struct {
	// Name is advertised to nodes in REGISTERED replies.
	Name string `yaml:"name"`
	// ListenAddr is the TCP address the tracker accepts node control
	// connections on.
	ListenAddr string `yaml:"listen_addr"`
}

// DefaultConfig is used when no config file is given.
var DefaultConfig = Config{
	Name:       "tracker",
	ListenAddr: ":5050",
}

// LoadConfig reads filename as YAML over DefaultConfig. A missing file
// is not an error; the caller gets DefaultConfig back.
func LoadConfig(filename string) (*Config, error) {
	c := DefaultConfig
	b, err := ioutil.ReadFile(filename)
	if os.IsNotExist(err) {
		return &c, nil
	}
	if err != nil {
		return nil, err
	}
	if err = yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

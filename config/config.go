package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config captures the daemon's startup settings.
type Config struct {
	// ListenAddress is the host:port the JSON-RPC/metrics server binds.
	ListenAddress string `toml:"ListenAddress"`
	// DataDir holds the LevelDB snapshot. Empty selects the in-memory
	// backend, which loses all state on shutdown.
	DataDir string `toml:"DataDir"`
	// LocalDomain is this chain's domain identifier; it is stamped as the
	// origin of every dispatched message and is immutable once state has
	// been persisted.
	LocalDomain uint32 `toml:"LocalDomain"`
	// NetworkName labels log lines and metrics, nothing more.
	NetworkName string `toml:"NetworkName"`
}

const defaultListenAddress = ":8645"

// Load reads the configuration from the given path, writing a default file
// first when none exists.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := &Config{}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s has unknown field %s", path, undecoded[0])
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the loaded settings for internal consistency.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ListenAddress) == "" {
		return fmt.Errorf("ListenAddress is required")
	}
	if c.LocalDomain == 0 {
		return fmt.Errorf("LocalDomain must be a non-zero domain identifier")
	}
	return nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{
		ListenAddress: defaultListenAddress,
		DataDir:       "./outbox-data",
		LocalDomain:   1000,
		NetworkName:   "outbox-local",
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cryptogogue/volwal/pkg/storage"
	"gopkg.in/yaml.v3"
)

// Version is the version of the wallet, set at build time.
var Version string

// DefaultConfigPath is the default path to the config file.
const DefaultConfigPath = "./config/volwal.yml"

// Config top level struct representing the config
// for the wallet.
type Config struct {
	ApplicationConfiguration ApplicationConfiguration `yaml:"ApplicationConfiguration"`
}

// Default returns configuration used when no file is given.
func Default() Config {
	return Config{
		ApplicationConfiguration: ApplicationConfiguration{
			DBConfiguration: storage.DBConfiguration{
				Type: "boltdb",
				BoltDBOptions: storage.BoltDBOptions{
					FilePath: "./data/volwal.bolt",
				},
			},
			Wallet: Wallet{
				ScryptN:    DefaultScryptN,
				ScryptR:    DefaultScryptR,
				ScryptP:    DefaultScryptP,
				BcryptCost: DefaultBcryptCost,
			},
			Node: Node{
				Timeout:   DefaultNodeTimeout,
				CacheSize: DefaultNodeCacheSize,
			},
		},
	}
}

// LoadFile loads config from the provided path. Unset values are taken
// from Default.
func LoadFile(configPath string) (Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return Config{}, fmt.Errorf("config '%s' doesn't exist", configPath)
	}

	configData, err := os.ReadFile(configPath)
	if err != nil {
		return Config{}, fmt.Errorf("unable to read config: %w", err)
	}
	return Parse(configData)
}

// Parse decodes YAML configuration on top of Default and validates it.
func Parse(data []byte) (Config, error) {
	config := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	err := decoder.Decode(&config)
	if err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	err = config.ApplicationConfiguration.Validate()
	if err != nil {
		return Config{}, err
	}
	return config, nil
}

// Node contains settings used to query the node for account information.
type Node struct {
	Timeout   time.Duration `yaml:"Timeout"`
	CacheSize int           `yaml:"CacheSize"`
}

// Node defaults.
const (
	DefaultNodeTimeout   = 10 * time.Second
	DefaultNodeCacheSize = 64
)

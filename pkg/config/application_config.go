package config

import (
	"errors"
	"fmt"

	"github.com/cryptogogue/volwal/pkg/storage"
	"go.uber.org/zap/zapcore"
)

// ApplicationConfiguration config specific to the wallet.
type ApplicationConfiguration struct {
	LogLevel        string                  `yaml:"LogLevel"`
	LogPath         string                  `yaml:"LogPath"`
	DBConfiguration storage.DBConfiguration `yaml:"DBConfiguration"`
	Wallet          Wallet                  `yaml:"Wallet"`
	Node            Node                    `yaml:"Node"`
	Prometheus      BasicService            `yaml:"Prometheus"`
	Pprof           BasicService            `yaml:"Pprof"`
}

// Wallet contains key derivation settings for wallet secrets.
type Wallet struct {
	ScryptN    int `yaml:"ScryptN"`
	ScryptR    int `yaml:"ScryptR"`
	ScryptP    int `yaml:"ScryptP"`
	BcryptCost int `yaml:"BcryptCost"`
}

// Wallet defaults, scrypt parameters are the ones NEP-2 uses.
const (
	DefaultScryptN    = 16384
	DefaultScryptR    = 8
	DefaultScryptP    = 8
	DefaultBcryptCost = 10
)

// Validate checks ApplicationConfiguration for internal consistency and
// returns an error if any invalid settings are found.
func (a *ApplicationConfiguration) Validate() error {
	if len(a.LogLevel) > 0 {
		if _, err := zapcore.ParseLevel(a.LogLevel); err != nil {
			return fmt.Errorf("invalid LogLevel: %w", err)
		}
	}
	switch a.DBConfiguration.Type {
	case "inmemory", "boltdb", "leveldb":
	default:
		return fmt.Errorf("unknown DB type: %q", a.DBConfiguration.Type)
	}
	if err := a.Wallet.Validate(); err != nil {
		return err
	}
	if a.Node.Timeout <= 0 {
		return errors.New("node timeout must be positive")
	}
	if a.Node.CacheSize <= 0 {
		return errors.New("node cache size must be positive")
	}
	if err := a.Prometheus.Validate(); err != nil {
		return fmt.Errorf("invalid Prometheus: %w", err)
	}
	if err := a.Pprof.Validate(); err != nil {
		return fmt.Errorf("invalid Pprof: %w", err)
	}
	return nil
}

// Validate checks key derivation parameters.
func (w Wallet) Validate() error {
	if w.ScryptN <= 1 || w.ScryptN&(w.ScryptN-1) != 0 {
		return fmt.Errorf("ScryptN must be a power of two greater than 1, got %d", w.ScryptN)
	}
	if w.ScryptR <= 0 || w.ScryptP <= 0 {
		return fmt.Errorf("ScryptR and ScryptP must be positive, got %d and %d", w.ScryptR, w.ScryptP)
	}
	if w.BcryptCost < 4 || w.BcryptCost > 31 {
		return fmt.Errorf("BcryptCost must be in [4, 31], got %d", w.BcryptCost)
	}
	return nil
}

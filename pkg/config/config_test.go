package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.ApplicationConfiguration.Validate())
	require.Equal(t, "boltdb", cfg.ApplicationConfiguration.DBConfiguration.Type)
	require.Equal(t, DefaultScryptN, cfg.ApplicationConfiguration.Wallet.ScryptN)
}

func TestLoadFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "volwal.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
ApplicationConfiguration:
  LogLevel: debug
  DBConfiguration:
    Type: inmemory
  Wallet:
    ScryptN: 1024
  Node:
    Timeout: 2s
  Prometheus:
    Enabled: true
    Addresses:
      - "localhost:2112"
`), 0o600))
	cfg, err := LoadFile(path)
	require.NoError(t, err)
	app := cfg.ApplicationConfiguration
	require.Equal(t, "debug", app.LogLevel)
	require.Equal(t, "inmemory", app.DBConfiguration.Type)
	require.Equal(t, 1024, app.Wallet.ScryptN)
	require.Equal(t, DefaultScryptR, app.Wallet.ScryptR)
	require.Equal(t, 2*time.Second, app.Node.Timeout)
	require.Equal(t, DefaultNodeCacheSize, app.Node.CacheSize)
	require.Equal(t, BasicService{Enabled: true, Addresses: []string{"localhost:2112"}}, app.Prometheus)
	require.False(t, app.Pprof.Enabled)
}

func TestParse(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)

	testCases := map[string]string{
		"unknown field": "ApplicationConfiguration: {Bogus: 1}",
		"log level":     "ApplicationConfiguration: {LogLevel: loud}",
		"db type":       "ApplicationConfiguration: {DBConfiguration: {Type: redis}}",
		"scrypt n":      "ApplicationConfiguration: {Wallet: {ScryptN: 1000}}",
		"scrypt r":      "ApplicationConfiguration: {Wallet: {ScryptR: 0}}",
		"bcrypt":        "ApplicationConfiguration: {Wallet: {BcryptCost: 2}}",
		"timeout":       "ApplicationConfiguration: {Node: {Timeout: 0s}}",
		"cache":         "ApplicationConfiguration: {Node: {CacheSize: 0}}",
		"syntax":        "ApplicationConfiguration: [",
		"no addresses":  "ApplicationConfiguration: {Prometheus: {Enabled: true}}",
		"bad address":   "ApplicationConfiguration: {Pprof: {Enabled: true, Addresses: [localhost]}}",
	}
	for name, data := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			require.Error(t, err)
		})
	}
}

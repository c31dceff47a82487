/*
Package storage provides key-value stores used to persist wallet state.
*/
package storage

import (
	"errors"
	"fmt"
)

// ErrKeyNotFound is an error returned by Store implementations
// when a certain key is not found.
var ErrKeyNotFound = errors.New("key not found")

type (
	// Store is the underlying KV backend for the wallet data.
	Store interface {
		Get([]byte) ([]byte, error)
		// PutChangeSet atomically applies all the changes, nil values
		// denote deletion.
		PutChangeSet(puts map[string][]byte) error
		// Seek iterates over keys with the given prefix in ascending order
		// until f returns false. Key and value slices should not be modified.
		Seek(prefix []byte, f func(k, v []byte) bool)
		Close() error
	}

	// DBConfiguration describes configuration for DB. Supported: 'inmemory',
	// 'leveldb', 'boltdb'.
	DBConfiguration struct {
		Type           string         `yaml:"Type"`
		LevelDBOptions LevelDBOptions `yaml:"LevelDBOptions"`
		BoltDBOptions  BoltDBOptions  `yaml:"BoltDBOptions"`
	}
)

// NewStore creates storage with preselected in configuration database type.
func NewStore(cfg DBConfiguration) (Store, error) {
	var store Store
	var err error
	switch cfg.Type {
	case "leveldb":
		store, err = NewLevelDBStore(cfg.LevelDBOptions)
	case "inmemory":
		store = NewMemoryStore()
	case "boltdb":
		store, err = NewBoltDBStore(cfg.BoltDBOptions)
	default:
		return nil, fmt.Errorf("unknown storage: %s", cfg.Type)
	}
	return store, err
}

// Put is a helper storing a single key.
func Put(s Store, key, value []byte) error {
	return s.PutChangeSet(map[string][]byte{string(key): value})
}

// Delete is a helper removing a single key.
func Delete(s Store, key []byte) error {
	return s.PutChangeSet(map[string][]byte{string(key): nil})
}

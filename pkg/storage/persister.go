package storage

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Persister stores JSON-encoded values under string keys of a Store.
type Persister struct {
	store Store
}

// NewPersister creates a persister over the store.
func NewPersister(s Store) *Persister {
	return &Persister{store: s}
}

// Store returns the underlying store.
func (p *Persister) Store() Store {
	return p.store
}

// Load decodes the value stored under the key into v. It returns false
// without touching v if the key is missing.
func (p *Persister) Load(key string, v any) (bool, error) {
	data, err := p.store.Get([]byte(key))
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// Persist stores a single value.
func (p *Persister) Persist(key string, v any) error {
	return p.PersistAll(map[string]any{key: v})
}

// PersistAll encodes and stores all the values in one change set, so either
// all of them are saved or none is.
func (p *Persister) PersistAll(vals map[string]any) error {
	puts := make(map[string][]byte, len(vals))
	for k, v := range vals {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", k, err)
		}
		puts[k] = data
	}
	return p.store.PutChangeSet(puts)
}

// Keys lists the stored keys starting with the prefix in ascending order.
func (p *Persister) Keys(prefix string) []string {
	var res []string
	p.store.Seek([]byte(prefix), func(k, _ []byte) bool {
		res = append(res, string(k))
		return true
	})
	return res
}

// Clear removes all the given keys.
func (p *Persister) Clear(keys ...string) error {
	puts := make(map[string][]byte, len(keys))
	for _, k := range keys {
		puts[k] = nil
	}
	return p.store.PutChangeSet(puts)
}

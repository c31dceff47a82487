package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeFactory struct {
	name   string
	create func(t *testing.T) Store
}

var storeFactories = []storeFactory{
	{"inmemory", func(t *testing.T) Store { return NewMemoryStore() }},
	{"boltdb", func(t *testing.T) Store {
		s, err := NewBoltDBStore(BoltDBOptions{FilePath: filepath.Join(t.TempDir(), "test_bolt_db")})
		require.NoError(t, err)
		return s
	}},
	{"leveldb", func(t *testing.T) Store {
		s, err := NewLevelDBStore(LevelDBOptions{DataDirectoryPath: t.TempDir()})
		require.NoError(t, err)
		return s
	}},
}

func TestStores(t *testing.T) {
	for _, sf := range storeFactories {
		t.Run(sf.name, func(t *testing.T) {
			t.Run("GetPut", func(t *testing.T) { testGetPut(t, sf.create(t)) })
			t.Run("ChangeSet", func(t *testing.T) { testChangeSet(t, sf.create(t)) })
			t.Run("Seek", func(t *testing.T) { testSeek(t, sf.create(t)) })
		})
	}
}

func testGetPut(t *testing.T, s Store) {
	var (
		key   = []byte("sparse")
		value = []byte("rocks")
	)
	_, err := s.Get(key)
	require.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, Put(s, key, value))
	newVal, err := s.Get(key)
	require.NoError(t, err)
	assert.Equal(t, value, newVal)

	require.NoError(t, Delete(s, key))
	_, err = s.Get(key)
	require.ErrorIs(t, err, ErrKeyNotFound)
	require.NoError(t, s.Close())
}

func testChangeSet(t *testing.T, s Store) {
	require.NoError(t, Put(s, []byte("gone"), []byte{1}))
	require.NoError(t, s.PutChangeSet(map[string][]byte{
		"a":    {1},
		"b":    {2},
		"gone": nil,
	}))
	for k, v := range map[string][]byte{"a": {1}, "b": {2}} {
		val, err := s.Get([]byte(k))
		require.NoError(t, err)
		require.Equal(t, v, val)
	}
	_, err := s.Get([]byte("gone"))
	require.ErrorIs(t, err, ErrKeyNotFound)
	require.NoError(t, s.Close())
}

func testSeek(t *testing.T, s Store) {
	require.NoError(t, s.PutChangeSet(map[string][]byte{
		"p.2": {2},
		"p.1": {1},
		"p.3": {3},
		"q.1": {4},
	}))
	var keys []string
	s.Seek([]byte("p."), func(k, v []byte) bool {
		keys = append(keys, string(k))
		return true
	})
	require.Equal(t, []string{"p.1", "p.2", "p.3"}, keys)

	keys = keys[:0]
	s.Seek([]byte("p."), func(k, v []byte) bool {
		keys = append(keys, string(k))
		return len(keys) < 2
	})
	require.Equal(t, []string{"p.1", "p.2"}, keys)
	require.NoError(t, s.Close())
}

func TestNewStore(t *testing.T) {
	s, err := NewStore(DBConfiguration{Type: "inmemory"})
	require.NoError(t, err)
	require.IsType(t, &MemoryStore{}, s)

	s, err = NewStore(DBConfiguration{Type: "boltdb", BoltDBOptions: BoltDBOptions{FilePath: filepath.Join(t.TempDir(), "sub", "bolt")}})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = NewStore(DBConfiguration{Type: "nope"})
	require.Error(t, err)
}

func TestBoltDBReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bolt")
	s, err := NewBoltDBStore(BoltDBOptions{FilePath: path})
	require.NoError(t, err)
	require.NoError(t, Put(s, []byte("k"), []byte("v")))
	require.NoError(t, s.Close())

	ro, err := NewBoltDBStore(BoltDBOptions{FilePath: path, ReadOnly: true})
	require.NoError(t, err)
	v, err := ro.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), v)
	require.NoError(t, ro.Close())
}

func TestPersister(t *testing.T) {
	type flags struct {
		Prompt bool `json:"prompt"`
	}
	p := NewPersister(NewMemoryStore())
	require.NotNil(t, p.Store())

	var f = flags{Prompt: true}
	ok, err := p.Load("flags", &f)
	require.NoError(t, err)
	require.False(t, ok)
	require.True(t, f.Prompt)

	require.NoError(t, p.PersistAll(map[string]any{
		"flags": flags{},
		"name":  "main",
	}))
	ok, err = p.Load("flags", &f)
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, f.Prompt)

	var name string
	ok, err = p.Load("name", &name)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "main", name)

	require.Error(t, p.Persist("bad", make(chan int)))
	require.NoError(t, Put(p.Store(), []byte("garbage"), []byte("{")))
	_, err = p.Load("garbage", &name)
	require.Error(t, err)

	require.Equal(t, []string{"flags"}, p.Keys("f"))
	require.Equal(t, []string{"flags", "garbage", "name"}, p.Keys(""))
	require.Empty(t, p.Keys("x"))

	require.NoError(t, p.Clear("flags", "name"))
	require.Equal(t, []string{"garbage"}, p.Keys(""))
	ok, err = p.Load("name", &name)
	require.NoError(t, err)
	require.False(t, ok)
}

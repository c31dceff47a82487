package wallet

import (
	"errors"
	"testing"

	"github.com/cryptogogue/volwal/pkg/config"
	"github.com/cryptogogue/volwal/pkg/storage"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
)

var testParams = config.Wallet{
	ScryptN:    1024,
	ScryptR:    1,
	ScryptP:    1,
	BcryptCost: bcrypt.MinCost,
}

const pass = "one"

var testSecrets = Secrets{
	PhraseOrKey:   "abandon ability able",
	PrivateKeyHex: "c0ffee",
	PublicKeyHex:  "beef",
}

// failingStore fails change sets after being armed.
type failingStore struct {
	storage.Store
	fail bool
}

func (s *failingStore) PutChangeSet(puts map[string][]byte) error {
	if s.fail {
		return errors.New("disk is on fire")
	}
	return s.Store.PutChangeSet(puts)
}

func newTestState(t *testing.T, s storage.Store) *AppState {
	st, err := New(storage.NewPersister(s), testParams, zaptest.NewLogger(t))
	require.NoError(t, err)
	return st
}

func newPopulatedState(t *testing.T, s storage.Store) *AppState {
	st := newTestState(t, s)
	require.NoError(t, st.SetPassword(pass, true))
	require.NoError(t, st.AffirmNetwork("main", "volition", "http://localhost:9090"))
	require.NoError(t, st.ImportAccount("main", "alice", "master", pass, testSecrets))
	_, err := st.AddPendingAccount("main", pass, testSecrets)
	require.NoError(t, err)
	return st
}

func TestDefaults(t *testing.T) {
	st := newTestState(t, storage.NewMemoryStore())
	require.False(t, st.HasUser())
	require.False(t, st.IsLoggedIn())
	require.Equal(t, defaultFlags(), st.Flags())
	require.Empty(t, st.NetworkNames())
	require.False(t, st.CheckPassword(""))
	require.False(t, st.CheckPassword("any"))

	_, err := New(storage.NewPersister(storage.NewMemoryStore()), config.Wallet{}, nil)
	require.Error(t, err)
}

func TestPassword(t *testing.T) {
	st := newTestState(t, storage.NewMemoryStore())
	require.NoError(t, st.SetPassword(pass, false))
	require.True(t, st.HasUser())
	require.False(t, st.IsLoggedIn())
	require.True(t, st.CheckPassword(pass))
	require.False(t, st.CheckPassword(""))
	require.NoError(t, st.AssertPassword(pass))
	require.ErrorIs(t, st.AssertPassword("two"), ErrInvalidPassword)

	ok, err := st.Login("two")
	require.NoError(t, err)
	require.False(t, ok)
	require.False(t, st.IsLoggedIn())

	ok, err = st.Login(pass)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, st.IsLoggedIn())

	require.NoError(t, st.Logout())
	require.False(t, st.IsLoggedIn())
}

func TestNetworks(t *testing.T) {
	st := newTestState(t, storage.NewMemoryStore())
	require.NoError(t, st.AffirmNetwork("test", "volition", "http://a"))
	require.NoError(t, st.AffirmNetwork("main", "volition", "http://b"))
	require.False(t, st.Flags().PromptFirstNetwork)
	require.Equal(t, []string{"main", "test"}, st.NetworkNames())

	require.NoError(t, st.AffirmNetwork("test", "other", "http://c"))
	n, err := st.Network("test")
	require.NoError(t, err)
	require.Equal(t, "http://c", n.NodeURL)
	require.Equal(t, "volition", n.Identity)

	// Returned networks are copies.
	n.NodeURL = "http://d"
	n, err = st.Network("test")
	require.NoError(t, err)
	require.Equal(t, "http://c", n.NodeURL)

	require.NoError(t, st.DeleteNetwork("test"))
	_, err = st.Network("test")
	require.ErrorIs(t, err, ErrNetworkNotFound)
	require.ErrorIs(t, st.DeleteNetwork("test"), ErrNetworkNotFound)
}

func TestAccounts(t *testing.T) {
	st := newTestState(t, storage.NewMemoryStore())
	require.NoError(t, st.SetPassword(pass, true))
	require.ErrorIs(t, st.ImportAccount("main", "alice", "master", pass, testSecrets), ErrNetworkNotFound)
	require.NoError(t, st.AffirmNetwork("main", "volition", "http://localhost"))
	require.ErrorIs(t, st.ImportAccount("main", "alice", "master", "two", testSecrets), ErrInvalidPassword)
	require.NoError(t, st.ImportAccount("main", "alice", "master", pass, testSecrets))
	require.False(t, st.Flags().PromptFirstAccount)

	n, err := st.Network("main")
	require.NoError(t, err)
	require.Equal(t, []string{"alice"}, n.AccountNames())
	require.NotContains(t, n.Accounts["alice"].Keys["master"].PrivateKeyHexAES, testSecrets.PrivateKeyHex)

	sec, err := st.DecryptKey("main", "alice", "master", pass)
	require.NoError(t, err)
	require.Equal(t, testSecrets, sec)
	_, err = st.DecryptKey("main", "alice", "master", "two")
	require.ErrorIs(t, err, ErrDecrypt)
	_, err = st.DecryptKey("main", "bob", "master", pass)
	require.ErrorIs(t, err, ErrAccountNotFound)
	_, err = st.DecryptKey("main", "alice", "spare", pass)
	require.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, st.SetAccountInventoryNonce("main", "alice", 7))
	nonce, err := st.AccountInventoryNonce("main", "alice")
	require.NoError(t, err)
	require.EqualValues(t, 7, nonce)
	require.ErrorIs(t, st.SetAccountInventoryNonce("main", "bob", 1), ErrAccountNotFound)

	id, err := st.AddPendingAccount("main", pass, testSecrets)
	require.NoError(t, err)
	n, err = st.Network("main")
	require.NoError(t, err)
	require.Contains(t, n.PendingAccounts, id)
	require.NoError(t, st.DeletePendingAccount("main", id))
	n, err = st.Network("main")
	require.NoError(t, err)
	require.NotContains(t, n.PendingAccounts, id)
}

func TestFlags(t *testing.T) {
	st := newTestState(t, storage.NewMemoryStore())
	require.NoError(t, st.SetFlag(PromptFirstTransaction, false))
	require.False(t, st.Flags().PromptFirstTransaction)
	require.True(t, st.Flags().PromptFirstAccount)
	require.ErrorIs(t, st.SetFlag("bogus", true), ErrUnknownFlag)
}

func TestReload(t *testing.T) {
	s := storage.NewMemoryStore()
	newPopulatedState(t, s)

	st := newTestState(t, s)
	require.True(t, st.HasUser())
	require.True(t, st.IsLoggedIn())
	require.False(t, st.Flags().PromptFirstNetwork)
	sec, err := st.DecryptKey("main", "alice", "master", pass)
	require.NoError(t, err)
	require.Equal(t, testSecrets, sec)
}

func TestDeleteStorage(t *testing.T) {
	s := storage.NewMemoryStore()
	st := newPopulatedState(t, s)
	require.NoError(t, storage.Put(s, []byte(StorePrefix+"legacy"), []byte("{}")))
	require.NoError(t, storage.Put(s, []byte("other"), []byte("{}")))
	require.NoError(t, st.DeleteStorage())

	keys := st.persister.Keys("")
	require.Equal(t, []string{"other"}, keys)
	require.False(t, st.HasUser())
	require.Empty(t, st.NetworkNames())

	st = newTestState(t, s)
	require.False(t, st.HasUser())
	require.False(t, st.IsLoggedIn())
	require.Equal(t, defaultFlags(), st.Flags())
}

func TestChangePassword(t *testing.T) {
	s := storage.NewMemoryStore()
	st := newPopulatedState(t, s)

	require.ErrorIs(t, st.ChangePassword("two", "three"), ErrInvalidPassword)
	require.NoError(t, st.ChangePassword(pass, "two"))
	require.True(t, st.CheckPassword("two"))
	require.False(t, st.CheckPassword(pass))

	sec, err := st.DecryptKey("main", "alice", "master", "two")
	require.NoError(t, err)
	require.Equal(t, testSecrets, sec)
	_, err = st.DecryptKey("main", "alice", "master", pass)
	require.ErrorIs(t, err, ErrDecrypt)

	n, err := st.Network("main")
	require.NoError(t, err)
	for _, pa := range n.PendingAccounts {
		plain, err := decrypt(pa.PrivateKeyHexAES, "two")
		require.NoError(t, err)
		require.Equal(t, testSecrets.PrivateKeyHex, plain)
	}

	// Persisted together.
	st = newTestState(t, s)
	require.True(t, st.CheckPassword("two"))
	sec, err = st.DecryptKey("main", "alice", "master", "two")
	require.NoError(t, err)
	require.Equal(t, testSecrets, sec)
}

func TestChangePasswordAtomic(t *testing.T) {
	t.Run("corrupted key", func(t *testing.T) {
		s := storage.NewMemoryStore()
		st := newPopulatedState(t, s)
		require.NoError(t, st.ImportAccount("main", "bob", "master", pass, testSecrets))
		st.networks["main"].Accounts["bob"].Keys["master"].PrivateKeyHexAES = "garbage"

		require.ErrorIs(t, st.ChangePassword(pass, "two"), ErrDecrypt)
		require.True(t, st.CheckPassword(pass))
		sec, err := st.DecryptKey("main", "alice", "master", pass)
		require.NoError(t, err)
		require.Equal(t, testSecrets, sec)

		reloaded := newTestState(t, s)
		require.True(t, reloaded.CheckPassword(pass))
		sec, err = reloaded.DecryptKey("main", "alice", "master", pass)
		require.NoError(t, err)
		require.Equal(t, testSecrets, sec)
	})
	t.Run("store failure", func(t *testing.T) {
		s := &failingStore{Store: storage.NewMemoryStore()}
		st := newPopulatedState(t, s)
		s.fail = true

		require.Error(t, st.ChangePassword(pass, "two"))
		require.True(t, st.CheckPassword(pass))
		sec, err := st.DecryptKey("main", "alice", "master", pass)
		require.NoError(t, err)
		require.Equal(t, testSecrets, sec)

		s.fail = false
		reloaded := newTestState(t, s)
		require.True(t, reloaded.CheckPassword(pass))
	})
}

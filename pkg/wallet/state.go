/*
Package wallet implements local wallet state: networks, accounts with their
encrypted keys, the password hash and the login session.
*/
package wallet

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/cryptogogue/volwal/pkg/config"
	"github.com/cryptogogue/volwal/pkg/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Storage keys. All of them share StorePrefix.
const (
	StorePrefix = ".vol_"

	StoreFlags        = ".vol_flags"
	StoreNetworks     = ".vol_networks"
	StorePasswordHash = ".vol_password_hash"
	StoreSession      = ".vol_session"
)

var (
	// ErrInvalidPassword is returned when the password doesn't match the
	// stored hash.
	ErrInvalidPassword = errors.New("invalid wallet password")
	// ErrNetworkNotFound is returned for unknown network names.
	ErrNetworkNotFound = errors.New("network not found")
	// ErrAccountNotFound is returned for unknown account names.
	ErrAccountNotFound = errors.New("account not found")
	// ErrKeyNotFound is returned for unknown key names.
	ErrKeyNotFound = errors.New("key not found")
	// ErrUnknownFlag is returned by SetFlag for unknown flags.
	ErrUnknownFlag = errors.New("unknown flag")
)

// Flag names a first-run prompt flag.
type Flag string

// Known flags.
const (
	PromptFirstNetwork     Flag = "promptFirstNetwork"
	PromptFirstAccount     Flag = "promptFirstAccount"
	PromptFirstTransaction Flag = "promptFirstTransaction"
)

type (
	// Flags are first-run prompts state.
	Flags struct {
		PromptFirstNetwork     bool `json:"promptFirstNetwork"`
		PromptFirstAccount     bool `json:"promptFirstAccount"`
		PromptFirstTransaction bool `json:"promptFirstTransaction"`
	}

	// Key is an account key with its secrets encrypted by the wallet
	// password.
	Key struct {
		PhraseOrKeyAES   string `json:"phraseOrKeyAES"`
		PrivateKeyHexAES string `json:"privateKeyHexAES"`
		PublicKeyHex     string `json:"publicKeyHex"`
	}

	// Account is a named account of a network.
	Account struct {
		Keys           map[string]*Key `json:"keys"`
		InventoryNonce uint64          `json:"inventoryNonce"`
	}

	// PendingAccount is an account creation request not yet confirmed by
	// the network.
	PendingAccount struct {
		RequestID string `json:"requestID"`
		Key
	}

	// Network is a named network the wallet knows about.
	Network struct {
		NodeURL         string                     `json:"nodeURL"`
		Identity        string                     `json:"identity"`
		Accounts        map[string]*Account        `json:"accounts"`
		PendingAccounts map[string]*PendingAccount `json:"pendingAccounts"`
	}

	session struct {
		IsLoggedIn bool `json:"isLoggedIn"`
	}
)

// AppState is the persistent wallet state. It's safe for concurrent use.
type AppState struct {
	log       *zap.Logger
	params    config.Wallet
	persister *storage.Persister

	lock         sync.RWMutex
	flags        Flags
	networks     map[string]*Network
	passwordHash string
	session      session
}

func defaultFlags() Flags {
	return Flags{
		PromptFirstNetwork:     true,
		PromptFirstAccount:     true,
		PromptFirstTransaction: true,
	}
}

// New loads wallet state from the persister, missing values get their
// defaults.
func New(p *storage.Persister, params config.Wallet, log *zap.Logger) (*AppState, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	s := &AppState{
		log:       log,
		params:    params,
		persister: p,
		flags:     defaultFlags(),
		networks:  make(map[string]*Network),
	}
	for key, v := range map[string]any{
		StoreFlags:        &s.flags,
		StoreNetworks:     &s.networks,
		StorePasswordHash: &s.passwordHash,
		StoreSession:      &s.session,
	} {
		if _, err := p.Load(key, v); err != nil {
			return nil, err
		}
	}
	if s.networks == nil {
		s.networks = make(map[string]*Network)
	}
	for _, n := range s.networks {
		n.normalize()
	}
	return s, nil
}

func (n *Network) normalize() {
	if n.Accounts == nil {
		n.Accounts = make(map[string]*Account)
	}
	if n.PendingAccounts == nil {
		n.PendingAccounts = make(map[string]*PendingAccount)
	}
	for _, a := range n.Accounts {
		if a.Keys == nil {
			a.Keys = make(map[string]*Key)
		}
	}
}

// Copy returns a deep copy of the network.
func (n *Network) Copy() *Network {
	c := &Network{
		NodeURL:         n.NodeURL,
		Identity:        n.Identity,
		Accounts:        make(map[string]*Account, len(n.Accounts)),
		PendingAccounts: make(map[string]*PendingAccount, len(n.PendingAccounts)),
	}
	for name, a := range n.Accounts {
		ac := &Account{
			Keys:           make(map[string]*Key, len(a.Keys)),
			InventoryNonce: a.InventoryNonce,
		}
		for kn, k := range a.Keys {
			kc := *k
			ac.Keys[kn] = &kc
		}
		c.Accounts[name] = ac
	}
	for id, pa := range n.PendingAccounts {
		pc := *pa
		c.PendingAccounts[id] = &pc
	}
	return c
}

// AccountNames returns sorted account names of the network.
func (n *Network) AccountNames() []string {
	names := make([]string, 0, len(n.Accounts))
	for name := range n.Accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func copyNetworks(networks map[string]*Network) map[string]*Network {
	res := make(map[string]*Network, len(networks))
	for name, n := range networks {
		res[name] = n.Copy()
	}
	return res
}

// AffirmNetwork adds a network or updates the node URL of an existing one.
func (s *AppState) AffirmNetwork(name, identity, nodeURL string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	flags := s.flags
	flags.PromptFirstNetwork = false
	networks := copyNetworks(s.networks)
	if n, ok := networks[name]; ok {
		n.NodeURL = nodeURL
	} else {
		networks[name] = &Network{
			NodeURL:         nodeURL,
			Identity:        identity,
			Accounts:        make(map[string]*Account),
			PendingAccounts: make(map[string]*PendingAccount),
		}
	}
	err := s.persister.PersistAll(map[string]any{
		StoreFlags:    flags,
		StoreNetworks: networks,
	})
	if err != nil {
		return err
	}
	s.flags = flags
	s.networks = networks
	s.log.Info("network affirmed", zap.String("name", name), zap.String("url", nodeURL))
	return nil
}

// DeleteNetwork removes the network with all of its accounts.
func (s *AppState) DeleteNetwork(name string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.networks[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNetworkNotFound, name)
	}
	networks := copyNetworks(s.networks)
	delete(networks, name)
	if err := s.persister.Persist(StoreNetworks, networks); err != nil {
		return err
	}
	s.networks = networks
	return nil
}

// Network returns a copy of the named network.
func (s *AppState) Network(name string) (*Network, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	n, ok := s.networks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNetworkNotFound, name)
	}
	return n.Copy(), nil
}

// NetworkNames returns sorted network names.
func (s *AppState) NetworkNames() []string {
	s.lock.RLock()
	defer s.lock.RUnlock()

	names := make([]string, 0, len(s.networks))
	for name := range s.networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetPassword replaces the password hash and optionally logs in. Existing
// secrets are not touched, use ChangePassword for that.
func (s *AppState) SetPassword(password string, login bool) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.params.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	vals := map[string]any{StorePasswordHash: string(hash)}
	if login {
		vals[StoreSession] = session{IsLoggedIn: true}
	}
	if err := s.persister.PersistAll(vals); err != nil {
		return err
	}
	s.passwordHash = string(hash)
	if login {
		s.session.IsLoggedIn = true
	}
	return nil
}

// CheckPassword reports whether the password matches the stored hash. It
// is always false for an empty password or when no password is set.
func (s *AppState) CheckPassword(password string) bool {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.checkPassword(password)
}

func (s *AppState) checkPassword(password string) bool {
	if len(password) == 0 || len(s.passwordHash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)) == nil
}

// AssertPassword returns ErrInvalidPassword if the password doesn't match.
func (s *AppState) AssertPassword(password string) error {
	if !s.CheckPassword(password) {
		return ErrInvalidPassword
	}
	return nil
}

// ChangePassword re-encrypts every key and pending account key with the
// new password and replaces the password hash. Either everything is
// changed or nothing is.
func (s *AppState) ChangePassword(password, newPassword string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if !s.checkPassword(password) {
		return ErrInvalidPassword
	}
	staged := copyNetworks(s.networks)
	for netName, n := range staged {
		for accName, a := range n.Accounts {
			for keyName, k := range a.Keys {
				if err := s.reencrypt(k, password, newPassword); err != nil {
					return fmt.Errorf("network %s, account %s, key %s: %w", netName, accName, keyName, err)
				}
			}
		}
		for id, pa := range n.PendingAccounts {
			if err := s.reencrypt(&pa.Key, password, newPassword); err != nil {
				return fmt.Errorf("network %s, pending account %s: %w", netName, id, err)
			}
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.params.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	err = s.persister.PersistAll(map[string]any{
		StoreNetworks:     staged,
		StorePasswordHash: string(hash),
	})
	if err != nil {
		return err
	}
	s.networks = staged
	s.passwordHash = string(hash)
	s.log.Info("wallet password changed")
	return nil
}

func (s *AppState) reencrypt(k *Key, password, newPassword string) error {
	for _, field := range []*string{&k.PhraseOrKeyAES, &k.PrivateKeyHexAES} {
		plain, err := decrypt(*field, password)
		if err != nil {
			return err
		}
		sealed, err := encrypt(plain, newPassword, s.params)
		if err != nil {
			return err
		}
		*field = sealed
	}
	return nil
}

// Login starts a session if the password is correct and returns the
// resulting login state.
func (s *AppState) Login(password string) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	sess := session{IsLoggedIn: s.checkPassword(password)}
	if err := s.persister.Persist(StoreSession, sess); err != nil {
		return false, err
	}
	s.session = sess
	return sess.IsLoggedIn, nil
}

// Logout ends the session.
func (s *AppState) Logout() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.persister.Persist(StoreSession, session{}); err != nil {
		return err
	}
	s.session = session{}
	return nil
}

// IsLoggedIn reports the session state.
func (s *AppState) IsLoggedIn() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.session.IsLoggedIn
}

// HasUser reports whether a password has been set.
func (s *AppState) HasUser() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.passwordHash) > 0
}

// Flags returns the current flags.
func (s *AppState) Flags() Flags {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.flags
}

// SetFlag sets the flag to the value.
func (s *AppState) SetFlag(name Flag, value bool) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	flags := s.flags
	switch name {
	case PromptFirstNetwork:
		flags.PromptFirstNetwork = value
	case PromptFirstAccount:
		flags.PromptFirstAccount = value
	case PromptFirstTransaction:
		flags.PromptFirstTransaction = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFlag, name)
	}
	if err := s.persister.Persist(StoreFlags, flags); err != nil {
		return err
	}
	s.flags = flags
	return nil
}

// DeleteStorage removes all the wallet data and resets the state to
// defaults.
func (s *AppState) DeleteStorage() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	keys := append([]string{StoreFlags, StoreNetworks, StorePasswordHash, StoreSession}, s.persister.Keys(StorePrefix)...)
	if err := s.persister.Clear(keys...); err != nil {
		return err
	}
	s.flags = defaultFlags()
	s.networks = make(map[string]*Network)
	s.passwordHash = ""
	s.session = session{}
	s.log.Info("wallet storage deleted")
	return nil
}

// Secrets are the plain text key secrets.
type Secrets struct {
	PhraseOrKey   string
	PrivateKeyHex string
	PublicKeyHex  string
}

// seal encrypts secrets, the public key is derived from the private one
// when missing.
func (s *AppState) seal(sec Secrets, password string) (Key, error) {
	if len(sec.PublicKeyHex) == 0 {
		pub, err := PublicKeyHex(sec.PrivateKeyHex)
		if err != nil {
			return Key{}, err
		}
		sec.PublicKeyHex = pub
	}
	phrase, err := encrypt(sec.PhraseOrKey, password, s.params)
	if err != nil {
		return Key{}, err
	}
	priv, err := encrypt(sec.PrivateKeyHex, password, s.params)
	if err != nil {
		return Key{}, err
	}
	return Key{
		PhraseOrKeyAES:   phrase,
		PrivateKeyHexAES: priv,
		PublicKeyHex:     sec.PublicKeyHex,
	}, nil
}

// ImportAccount stores the key under the account of the network, creating
// the account if needed.
func (s *AppState) ImportAccount(network, account, keyName, password string, sec Secrets) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if !s.checkPassword(password) {
		return ErrInvalidPassword
	}
	if _, ok := s.networks[network]; !ok {
		return fmt.Errorf("%w: %s", ErrNetworkNotFound, network)
	}
	key, err := s.seal(sec, password)
	if err != nil {
		return err
	}
	networks := copyNetworks(s.networks)
	n := networks[network]
	a, ok := n.Accounts[account]
	if !ok {
		a = &Account{Keys: make(map[string]*Key)}
		n.Accounts[account] = a
	}
	a.Keys[keyName] = &key
	flags := s.flags
	flags.PromptFirstAccount = false

	err = s.persister.PersistAll(map[string]any{
		StoreFlags:    flags,
		StoreNetworks: networks,
	})
	if err != nil {
		return err
	}
	s.networks = networks
	s.flags = flags
	s.log.Info("account imported", zap.String("network", network), zap.String("account", account))
	return nil
}

// AddPendingAccount stores an account request and returns its ID.
func (s *AppState) AddPendingAccount(network, password string, sec Secrets) (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if !s.checkPassword(password) {
		return "", ErrInvalidPassword
	}
	if _, ok := s.networks[network]; !ok {
		return "", fmt.Errorf("%w: %s", ErrNetworkNotFound, network)
	}
	key, err := s.seal(sec, password)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	networks := copyNetworks(s.networks)
	networks[network].PendingAccounts[id] = &PendingAccount{RequestID: id, Key: key}
	if err := s.persister.Persist(StoreNetworks, networks); err != nil {
		return "", err
	}
	s.networks = networks
	return id, nil
}

// DeletePendingAccount removes the account request.
func (s *AppState) DeletePendingAccount(network, requestID string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.networks[network]; !ok {
		return fmt.Errorf("%w: %s", ErrNetworkNotFound, network)
	}
	networks := copyNetworks(s.networks)
	delete(networks[network].PendingAccounts, requestID)
	if err := s.persister.Persist(StoreNetworks, networks); err != nil {
		return err
	}
	s.networks = networks
	return nil
}

// DecryptKey returns plain text secrets of the account key.
func (s *AppState) DecryptKey(network, account, keyName, password string) (Secrets, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	a, err := s.account(network, account)
	if err != nil {
		return Secrets{}, err
	}
	k, ok := a.Keys[keyName]
	if !ok {
		return Secrets{}, fmt.Errorf("%w: %s", ErrKeyNotFound, keyName)
	}
	phrase, err := decrypt(k.PhraseOrKeyAES, password)
	if err != nil {
		return Secrets{}, err
	}
	priv, err := decrypt(k.PrivateKeyHexAES, password)
	if err != nil {
		return Secrets{}, err
	}
	return Secrets{PhraseOrKey: phrase, PrivateKeyHex: priv, PublicKeyHex: k.PublicKeyHex}, nil
}

func (s *AppState) account(network, account string) (*Account, error) {
	n, ok := s.networks[network]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNetworkNotFound, network)
	}
	a, ok := n.Accounts[account]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, account)
	}
	return a, nil
}

// AccountInventoryNonce returns the locally stored inventory nonce.
func (s *AppState) AccountInventoryNonce(network, account string) (uint64, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	a, err := s.account(network, account)
	if err != nil {
		return 0, err
	}
	return a.InventoryNonce, nil
}

// SetAccountInventoryNonce sets the locally stored inventory nonce.
func (s *AppState) SetAccountInventoryNonce(network, account string, nonce uint64) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, err := s.account(network, account); err != nil {
		return err
	}
	networks := copyNetworks(s.networks)
	networks[network].Accounts[account].InventoryNonce = nonce
	if err := s.persister.Persist(StoreNetworks, networks); err != nil {
		return err
	}
	s.networks = networks
	return nil
}

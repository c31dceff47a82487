/*
Package account provides per-account state used when debugging accounts and
crafting transactions: node-side information, locally stored inventory
nonce and pending transactions.
*/
package account

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/cryptogogue/volwal/pkg/transaction"
	"github.com/cryptogogue/volwal/pkg/wallet"
)

// ErrAccountNotFound is returned for accounts unknown to the wallet or
// the node.
var ErrAccountNotFound = errors.New("account not found")

// Info is account information reported by the node.
type Info struct {
	Balance        uint64 `json:"balance"`
	Nonce          uint64 `json:"nonce"`
	InventoryNonce uint64 `json:"inventoryNonce"`
}

// Source provides account information.
type Source interface {
	AccountInfo(ctx context.Context, nodeURL, accountID string) (*Info, error)
}

// State is the state of a single wallet account. It's not safe for
// concurrent use.
type State struct {
	wallet    *wallet.AppState
	networkID string
	accountID string
	network   *wallet.Network
	keyName   string

	info    *Info
	pending []*transaction.Transaction
}

// NewState looks up the account in the wallet.
func NewState(w *wallet.AppState, networkID, accountID string) (*State, error) {
	n, err := w.Network(networkID)
	if err != nil {
		return nil, err
	}
	a, ok := n.Accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, accountID)
	}
	s := &State{
		wallet:    w,
		networkID: networkID,
		accountID: accountID,
		network:   n,
	}
	keys := make([]string, 0, len(a.Keys))
	for k := range a.Keys {
		keys = append(keys, k)
	}
	if len(keys) > 0 {
		sort.Strings(keys)
		s.keyName = keys[0]
	}
	return s, nil
}

// NetworkID returns the network name.
func (s *State) NetworkID() string { return s.networkID }

// AccountID returns the account name.
func (s *State) AccountID() string { return s.accountID }

// Network returns the account's network.
func (s *State) Network() *wallet.Network { return s.network }

// AccountURL returns the node URL of the account.
func (s *State) AccountURL() string {
	return AccountURL(s.network.NodeURL, s.accountID)
}

// Refresh fetches account information from the source.
func (s *State) Refresh(ctx context.Context, src Source) error {
	info, err := src.AccountInfo(ctx, s.network.NodeURL, s.accountID)
	if err != nil {
		return err
	}
	s.info = info
	return nil
}

// HasInfo reports whether node information has been fetched.
func (s *State) HasInfo() bool {
	return s.info != nil
}

// Balance returns the account balance, zero until refreshed.
func (s *State) Balance() uint64 {
	if s.info == nil {
		return 0
	}
	return s.info.Balance
}

// Nonce returns the transaction nonce reported by the node, zero until
// refreshed.
func (s *State) Nonce() uint64 {
	if s.info == nil {
		return 0
	}
	return s.info.Nonce
}

// InventoryNonce returns the locally stored inventory nonce.
func (s *State) InventoryNonce() uint64 {
	n, err := s.wallet.AccountInventoryNonce(s.networkID, s.accountID)
	if err != nil {
		return 0
	}
	return n
}

// NodeInventoryNonce returns the inventory nonce reported by the node or
// the local one if there is no node information yet.
func (s *State) NodeInventoryNonce() uint64 {
	if s.info == nil {
		return s.InventoryNonce()
	}
	return s.info.InventoryNonce
}

// SetInventoryNonce stores the local inventory nonce, zero forces the
// inventory to be reloaded from scratch.
func (s *State) SetInventoryNonce(nonce uint64) error {
	return s.wallet.SetAccountInventoryNonce(s.networkID, s.accountID, nonce)
}

// KeyName returns the key used to sign transactions.
func (s *State) KeyName() string { return s.keyName }

// SetKeyName selects the key used to sign transactions.
func (s *State) SetKeyName(name string) error {
	if _, ok := s.network.Accounts[s.accountID].Keys[name]; !ok {
		return fmt.Errorf("%w: %s", wallet.ErrKeyNotFound, name)
	}
	s.keyName = name
	return nil
}

// PushTransaction adds a transaction to the pending list.
func (s *State) PushTransaction(tx *transaction.Transaction) {
	s.pending = append(s.pending, tx)
}

// PendingTransactions returns pending transactions in submission order.
func (s *State) PendingTransactions() []*transaction.Transaction {
	res := make([]*transaction.Transaction, len(s.pending))
	copy(res, s.pending)
	return res
}

// ClearPendingTransactions forgets all pending transactions.
func (s *State) ClearPendingTransactions() {
	s.pending = nil
}

// AssetsUtilized returns sorted identifiers of assets locked by pending
// transactions.
func (s *State) AssetsUtilized() []string {
	seen := make(map[string]struct{})
	res := []string{}
	for _, tx := range s.pending {
		for _, id := range tx.AssetsUtilized {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			res = append(res, id)
		}
	}
	sort.Strings(res)
	return res
}

// Maker returns maker information for the next transaction. The nonce
// accounts for pending transactions.
func (s *State) Maker() transaction.Maker {
	return transaction.Maker{
		AccountName: s.accountID,
		KeyName:     s.keyName,
		Nonce:       s.Nonce() + uint64(len(s.pending)),
	}
}

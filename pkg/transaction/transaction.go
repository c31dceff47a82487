/*
Package transaction contains transaction bodies and envelopes produced by the
wallet along with the base form controller driving their composition.
*/
package transaction

import (
	"encoding/json"
	"sort"

	"github.com/google/uuid"
)

// Maker identifies the account and key issuing a transaction.
type Maker struct {
	AccountName string `json:"accountName"`
	KeyName     string `json:"keyName"`
	Nonce       uint64 `json:"nonce"`
}

// MakerSource provides maker information for new transactions.
type MakerSource interface {
	Maker() Maker
}

// ConstParam is a typed constant invocation argument.
type ConstParam struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// StringConstType is the only constant parameter type supported for now.
const StringConstType = "STRING"

// Invocation is a single method call inside a RUN_SCRIPT body.
type Invocation struct {
	MethodName  string                `json:"methodName"`
	Weight      uint64                `json:"weight"`
	Maturity    uint64                `json:"maturity"`
	AssetParams map[string]string     `json:"assetParams"`
	ConstParams map[string]ConstParam `json:"constParams"`
}

// Body is the part of the transaction submitted to the node.
type Body struct {
	Type  Type  `json:"type"`
	Maker Maker `json:"maker"`

	Weight      uint64       `json:"weight,omitempty"`
	Maturity    uint64       `json:"maturity,omitempty"`
	Invocations []Invocation `json:"invocations,omitempty"`

	AccountName      string   `json:"accountName,omitempty"`
	AssetIdentifiers []string `json:"assetIdentifiers,omitempty"`
}

// MarshalJSON implements json.Marshaler. RUN_SCRIPT bodies always carry
// weight and maturity, other types only when set.
func (b Body) MarshalJSON() ([]byte, error) {
	type plain Body
	if b.Type != RunScriptType {
		return json.Marshal(plain(b))
	}
	return json.Marshal(struct {
		plain
		Weight   uint64 `json:"weight"`
		Maturity uint64 `json:"maturity"`
	}{plain(b), b.Weight, b.Maturity})
}

// Transaction is an envelope carrying the body together with wallet-side
// metadata that is never sent to the node.
type Transaction struct {
	UUID string `json:"uuid"`
	Type Type   `json:"type"`
	Body *Body  `json:"body"`

	// AssetsUtilized lists assets locked by this transaction until it's
	// accepted or rejected.
	AssetsUtilized []string `json:"assetsUtilized,omitempty"`
}

// New creates an envelope with a random UUID.
func New(body *Body) *Transaction {
	return &Transaction{
		UUID: uuid.NewString(),
		Type: body.Type,
		Body: body,
	}
}

// SetAssetsUtilized stores a sorted copy of the given asset identifiers.
func (t *Transaction) SetAssetsUtilized(ids []string) {
	res := make([]string, len(ids))
	copy(res, ids)
	sort.Strings(res)
	t.AssetsUtilized = res
}

// BodyJSON returns JSON encoding of the body.
func (t *Transaction) BodyJSON() ([]byte, error) {
	return json.Marshal(t.Body)
}

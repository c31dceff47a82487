package crafting

import (
	"github.com/cryptogogue/volwal/pkg/binding"
	"github.com/cryptogogue/volwal/pkg/schema"
	"github.com/cryptogogue/volwal/pkg/transaction"
)

// Invocation is one, possibly incomplete, call of a method within a crafting
// transaction. It's mutated only through its Controller; parameter keys are
// fixed at creation to the method's declared names.
type Invocation struct {
	method      *schema.Method
	assetParams map[string]schema.AssetID
	constParams map[string]transaction.ConstParam
	binding     *binding.MethodBinding
	utilized    AssetSet

	hasParams bool
	hasErrors bool
}

func newInvocation(m *schema.Method) *Invocation {
	inv := &Invocation{
		method:      m,
		assetParams: make(map[string]schema.AssetID, len(m.AssetArgs)),
		constParams: make(map[string]transaction.ConstParam, len(m.ConstArgs)),
		binding:     binding.NewMethodBinding(m),
		utilized:    make(AssetSet),
	}
	for _, p := range m.AssetArgs {
		inv.assetParams[p.Name] = schema.Unset
	}
	for _, p := range m.ConstArgs {
		inv.constParams[p.Name] = transaction.ConstParam{Type: transaction.StringConstType}
	}
	return inv
}

// Method returns the invoked method.
func (inv *Invocation) Method() *schema.Method {
	return inv.method
}

// AssetParam returns the value of an asset parameter, Unset if nothing is
// assigned yet.
func (inv *Invocation) AssetParam(name string) (schema.AssetID, bool) {
	id, ok := inv.assetParams[name]
	return id, ok
}

// AssetParams returns a copy of asset parameters.
func (inv *Invocation) AssetParams() map[string]schema.AssetID {
	res := make(map[string]schema.AssetID, len(inv.assetParams))
	for k, v := range inv.assetParams {
		res[k] = v
	}
	return res
}

// ConstParam returns the value of a constant parameter.
func (inv *Invocation) ConstParam(name string) (transaction.ConstParam, bool) {
	p, ok := inv.constParams[name]
	return p, ok
}

// ConstParams returns a copy of constant parameters.
func (inv *Invocation) ConstParams() map[string]transaction.ConstParam {
	res := make(map[string]transaction.ConstParam, len(inv.constParams))
	for k, v := range inv.constParams {
		res[k] = v
	}
	return res
}

// Eligible returns assets that can be offered for the parameter.
func (inv *Invocation) Eligible(param string) []schema.AssetID {
	return inv.binding.Eligible(param)
}

// Binding returns the invocation's method binding.
func (inv *Invocation) Binding() *binding.MethodBinding {
	return inv.binding
}

// Utilized returns assets claimed by this invocation.
func (inv *Invocation) Utilized() AssetSet {
	return inv.utilized.Clone()
}

// HasParams reports whether every asset parameter has a value.
func (inv *Invocation) HasParams() bool {
	return inv.hasParams
}

// HasErrors reports whether a complete assignment was rejected by the
// method binding.
func (inv *Invocation) HasErrors() bool {
	return inv.hasErrors
}

func (inv *Invocation) check() {
	inv.hasParams = true
	for _, p := range inv.method.AssetArgs {
		if inv.assetParams[p.Name] == schema.Unset {
			inv.hasParams = false
			break
		}
	}
	inv.hasErrors = inv.hasParams && !inv.binding.CheckParams(inv.assetParams)
}

func (inv *Invocation) toTransaction() transaction.Invocation {
	res := transaction.Invocation{
		MethodName:  inv.method.Name,
		Weight:      inv.method.Weight,
		Maturity:    inv.method.Maturity,
		AssetParams: make(map[string]string, len(inv.assetParams)),
		ConstParams: inv.ConstParams(),
	}
	for k, v := range inv.assetParams {
		res.AssetParams[k] = string(v)
	}
	return res
}

// holds checks whether any asset parameter is set to the asset.
func (inv *Invocation) holds(id schema.AssetID) bool {
	for _, v := range inv.assetParams {
		if v == id {
			return true
		}
	}
	return false
}

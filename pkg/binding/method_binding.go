/*
Package binding computes which assets of a pool are eligible for the
parameters of schema methods and checks parameter assignments against that
index.
*/
package binding

import (
	"github.com/cryptogogue/volwal/pkg/schema"
)

// Filter decides whether an asset may be offered as a candidate value.
type Filter func(id schema.AssetID) bool

// MethodBinding is an eligibility index for a single method: for every asset
// parameter it holds the list of pool assets that match the parameter
// qualifier and pass the filter.
type MethodBinding struct {
	method   *schema.Method
	eligible map[string][]schema.AssetID
	index    map[string]map[schema.AssetID]struct{}
	valid    bool
}

// NewMethodBinding creates an empty binding for the method. It has no
// eligible assets until Rebuild is called.
func NewMethodBinding(m *schema.Method) *MethodBinding {
	b := &MethodBinding{method: m}
	b.reset()
	return b
}

func (b *MethodBinding) reset() {
	b.eligible = make(map[string][]schema.AssetID, len(b.method.AssetArgs))
	b.index = make(map[string]map[schema.AssetID]struct{}, len(b.method.AssetArgs))
	b.valid = len(b.method.AssetArgs) == 0
}

// Method returns the method this binding was created for.
func (b *MethodBinding) Method() *schema.Method {
	return b.method
}

// Rebuild recomputes eligible assets for every asset parameter against the
// pool. A nil filter accepts everything.
func (b *MethodBinding) Rebuild(pool *schema.AssetPool, filter Filter) {
	b.reset()
	for _, p := range b.method.AssetArgs {
		var (
			list []schema.AssetID
			set  = make(map[schema.AssetID]struct{})
		)
		for _, a := range pool.Assets() {
			if filter != nil && !filter(a.ID) {
				continue
			}
			if !p.Matches(a) {
				continue
			}
			list = append(list, a.ID)
			set[a.ID] = struct{}{}
		}
		b.eligible[p.Name] = list
		b.index[p.Name] = set
	}
	b.valid = b.match() == len(b.method.AssetArgs)
}

// Eligible returns assets that may be assigned to the parameter, in pool
// order.
func (b *MethodBinding) Eligible(param string) []schema.AssetID {
	src := b.eligible[param]
	res := make([]schema.AssetID, len(src))
	copy(res, src)
	return res
}

// IsEligible checks whether the asset may be assigned to the parameter.
func (b *MethodBinding) IsEligible(param string, id schema.AssetID) bool {
	_, ok := b.index[param][id]
	return ok
}

// Valid reports whether there is at least one complete assignment of
// distinct assets to all asset parameters.
func (b *MethodBinding) Valid() bool {
	return b.valid
}

// CheckParams validates a complete parameter assignment: every asset
// parameter must be set to an eligible asset and no asset may be used twice.
func (b *MethodBinding) CheckParams(params map[string]schema.AssetID) bool {
	var used = make(map[schema.AssetID]struct{}, len(params))
	for _, p := range b.method.AssetArgs {
		id, ok := params[p.Name]
		if !ok || id == schema.Unset {
			return false
		}
		if !b.IsEligible(p.Name, id) {
			return false
		}
		if _, ok := used[id]; ok {
			return false
		}
		used[id] = struct{}{}
	}
	return true
}

// match returns the size of the maximum matching between asset parameters
// and eligible assets (Kuhn's augmenting paths).
func (b *MethodBinding) match() int {
	var (
		owner = make(map[schema.AssetID]int)
		size  int
	)
	var augment func(pi int, seen map[schema.AssetID]bool) bool
	augment = func(pi int, seen map[schema.AssetID]bool) bool {
		for _, id := range b.eligible[b.method.AssetArgs[pi].Name] {
			if seen[id] {
				continue
			}
			seen[id] = true
			prev, taken := owner[id]
			if !taken || augment(prev, seen) {
				owner[id] = pi
				return true
			}
		}
		return false
	}
	for pi := range b.method.AssetArgs {
		if augment(pi, make(map[schema.AssetID]bool)) {
			size++
		}
	}
	return size
}

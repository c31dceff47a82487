package crafting

import (
	"sort"

	"github.com/cryptogogue/volwal/pkg/schema"
)

// AssetSet is a set of asset identifiers.
type AssetSet map[schema.AssetID]struct{}

// Add puts the asset into the set.
func (s AssetSet) Add(id schema.AssetID) {
	s[id] = struct{}{}
}

// Remove drops the asset from the set.
func (s AssetSet) Remove(id schema.AssetID) {
	delete(s, id)
}

// Has checks whether the asset is in the set. It's safe to call on a nil
// set.
func (s AssetSet) Has(id schema.AssetID) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns set elements in ascending order.
func (s AssetSet) Sorted() []schema.AssetID {
	res := make([]schema.AssetID, 0, len(s))
	for id := range s {
		res = append(res, id)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

// Clone returns a copy of the set.
func (s AssetSet) Clone() AssetSet {
	res := make(AssetSet, len(s))
	for id := range s {
		res[id] = struct{}{}
	}
	return res
}

package schema

import (
	"errors"
	"fmt"
)

// AssetID identifies a single asset in an inventory.
type AssetID string

// Unset is a sentinel AssetID used for asset parameters that have no value
// assigned yet.
const Unset AssetID = ""

// ErrDuplicateAsset is returned when an asset pool is constructed with
// several assets sharing the same identifier.
var ErrDuplicateAsset = errors.New("duplicate asset identifier")

// Asset is a single inventory item. Assets are immutable once they're
// placed into an AssetPool.
type Asset struct {
	ID     AssetID           `yaml:"id" json:"assetID"`
	Type   string            `yaml:"type" json:"type"`
	Tags   []string          `yaml:"tags,omitempty" json:"tags,omitempty"`
	Fields map[string]string `yaml:"fields,omitempty" json:"fields,omitempty"`
}

// HasTag checks whether the asset is marked with the given tag.
func (a *Asset) HasTag(tag string) bool {
	for _, t := range a.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AssetPool is an immutable, iteration-order-stable collection of assets.
// Order is the order assets were given to NewAssetPool.
type AssetPool struct {
	order  []AssetID
	assets map[AssetID]*Asset
}

// NewAssetPool creates a pool from the given assets keeping their order.
func NewAssetPool(assets ...*Asset) (*AssetPool, error) {
	p := &AssetPool{
		order:  make([]AssetID, 0, len(assets)),
		assets: make(map[AssetID]*Asset, len(assets)),
	}
	for _, a := range assets {
		if a == nil {
			continue
		}
		if a.ID == Unset {
			return nil, errors.New("asset with empty identifier")
		}
		if _, ok := p.assets[a.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAsset, a.ID)
		}
		p.order = append(p.order, a.ID)
		p.assets[a.ID] = a
	}
	return p, nil
}

// Get returns an asset by its identifier.
func (p *AssetPool) Get(id AssetID) (*Asset, bool) {
	if p == nil {
		return nil, false
	}
	a, ok := p.assets[id]
	return a, ok
}

// Has checks whether the pool contains an asset with the given identifier.
func (p *AssetPool) Has(id AssetID) bool {
	_, ok := p.Get(id)
	return ok
}

// Len returns the number of assets in the pool.
func (p *AssetPool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.order)
}

// IDs returns asset identifiers in pool order.
func (p *AssetPool) IDs() []AssetID {
	if p == nil {
		return nil
	}
	res := make([]AssetID, len(p.order))
	copy(res, p.order)
	return res
}

// Assets returns all assets in pool order.
func (p *AssetPool) Assets() []*Asset {
	if p == nil {
		return nil
	}
	res := make([]*Asset, 0, len(p.order))
	for _, id := range p.order {
		res = append(res, p.assets[id])
	}
	return res
}

package inventory

import (
	"github.com/cryptogogue/volwal/pkg/schema"
)

// ViewController tracks the assets shown on the inventory screen and the
// user's current selection.
type ViewController struct {
	inventory *Service
	filter    func(schema.AssetID) bool
	selection []schema.AssetID
}

// NewViewController creates a view over the inventory.
func NewViewController(inv *Service) *ViewController {
	return &ViewController{inventory: inv}
}

// Inventory returns the underlying inventory service.
func (v *ViewController) Inventory() *Service {
	return v.inventory
}

// SetFilterFunc sets the visibility predicate; nil shows every asset.
func (v *ViewController) SetFilterFunc(f func(schema.AssetID) bool) {
	v.filter = f
}

// IsVisible applies the current filter to a single asset.
func (v *ViewController) IsVisible(id schema.AssetID) bool {
	return v.filter == nil || v.filter(id)
}

// VisibleAssets returns assets passing the filter in pool order.
func (v *ViewController) VisibleAssets() []*schema.Asset {
	var res []*schema.Asset
	for _, a := range v.inventory.Assets().Assets() {
		if v.IsVisible(a.ID) {
			res = append(res, a)
		}
	}
	return res
}

// ToggleAssetSelection adds the asset to the selection or removes it if it
// was already selected.
func (v *ViewController) ToggleAssetSelection(id schema.AssetID) {
	for i, sel := range v.selection {
		if sel == id {
			v.selection = append(v.selection[:i], v.selection[i+1:]...)
			return
		}
	}
	v.selection = append(v.selection, id)
}

// IsSelected checks whether the asset is selected.
func (v *ViewController) IsSelected(id schema.AssetID) bool {
	for _, sel := range v.selection {
		if sel == id {
			return true
		}
	}
	return false
}

// ClearSelection drops the whole selection.
func (v *ViewController) ClearSelection() {
	v.selection = nil
}

// HasSelection reports whether anything is selected.
func (v *ViewController) HasSelection() bool {
	return len(v.selection) > 0
}

// Selection returns selected assets in selection order, skipping the ones
// no longer present in the pool.
func (v *ViewController) Selection() []schema.AssetID {
	pool := v.inventory.Assets()
	res := make([]schema.AssetID, 0, len(v.selection))
	for _, id := range v.selection {
		if pool.Has(id) {
			res = append(res, id)
		}
	}
	return res
}

package inventory

import (
	"sort"

	"github.com/cryptogogue/volwal/pkg/schema"
)

// TagController keeps user-defined tags attached to assets and the set of
// tags hidden from the inventory view.
type TagController struct {
	assets map[string]map[schema.AssetID]struct{}
	hidden map[string]bool
}

// NewTagController creates an empty tag controller.
func NewTagController() *TagController {
	return &TagController{
		assets: make(map[string]map[schema.AssetID]struct{}),
		hidden: make(map[string]bool),
	}
}

// AffirmTag makes sure the tag exists even if no asset carries it.
func (c *TagController) AffirmTag(tag string) {
	if _, ok := c.assets[tag]; !ok {
		c.assets[tag] = make(map[schema.AssetID]struct{})
	}
}

// DeleteTag removes the tag from every asset.
func (c *TagController) DeleteTag(tag string) {
	delete(c.assets, tag)
	delete(c.hidden, tag)
}

// TagAssets attaches the tag to the assets.
func (c *TagController) TagAssets(tag string, ids ...schema.AssetID) {
	c.AffirmTag(tag)
	for _, id := range ids {
		c.assets[tag][id] = struct{}{}
	}
}

// UntagAssets detaches the tag from the assets.
func (c *TagController) UntagAssets(tag string, ids ...schema.AssetID) {
	for _, id := range ids {
		delete(c.assets[tag], id)
	}
}

// HasTag checks whether the asset carries the tag.
func (c *TagController) HasTag(id schema.AssetID, tag string) bool {
	_, ok := c.assets[tag][id]
	return ok
}

// SetTagVisible shows or hides assets carrying the tag.
func (c *TagController) SetTagVisible(tag string, visible bool) {
	if visible {
		delete(c.hidden, tag)
		return
	}
	c.hidden[tag] = true
}

// IsTagVisible reports whether the tag is shown.
func (c *TagController) IsTagVisible(tag string) bool {
	return !c.hidden[tag]
}

// IsAssetVisible returns false if the asset carries any hidden tag.
func (c *TagController) IsAssetVisible(id schema.AssetID) bool {
	for tag := range c.hidden {
		if c.HasTag(id, tag) {
			return false
		}
	}
	return true
}

// Tags returns all known tags sorted by name.
func (c *TagController) Tags() []string {
	res := make([]string, 0, len(c.assets))
	for tag := range c.assets {
		res = append(res, tag)
	}
	sort.Strings(res)
	return res
}

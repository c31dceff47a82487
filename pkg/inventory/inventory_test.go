package inventory

import (
	"testing"

	"github.com/cryptogogue/volwal/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestService(t *testing.T) *Service {
	pool, err := schema.NewAssetPool(
		&schema.Asset{ID: "A", Type: "ore"},
		&schema.Asset{ID: "B", Type: "coal"},
	)
	require.NoError(t, err)
	s, err := schema.New(&schema.Method{Name: "noop"})
	require.NoError(t, err)
	return New(s, pool, zaptest.NewLogger(t))
}

func TestServiceChanges(t *testing.T) {
	s := newTestService(t)
	require.Equal(t, uint64(0), s.Version())
	require.Equal(t, 2, s.Assets().Len())
	_, ok := s.Schema().Method("noop")
	require.True(t, ok)

	old := s.Assets()
	require.NoError(t, s.AddAssets(&schema.Asset{ID: "C", Type: "gem"}))
	require.Equal(t, uint64(1), s.Version())
	require.Equal(t, []schema.AssetID{"A", "B", "C"}, s.Assets().IDs())
	// Snapshots are not modified in place.
	require.Equal(t, 2, old.Len())

	require.Error(t, s.AddAssets(&schema.Asset{ID: "A"}))
	require.Equal(t, uint64(1), s.Version())

	s.RemoveAssets("B", "Z")
	require.Equal(t, uint64(2), s.Version())
	require.Equal(t, []schema.AssetID{"A", "C"}, s.Assets().IDs())

	require.NoError(t, s.SetAssets(&schema.Asset{ID: "X"}))
	require.Equal(t, []schema.AssetID{"X"}, s.Assets().IDs())

	require.Error(t, s.SetAssets(&schema.Asset{ID: "X"}, &schema.Asset{ID: "X"}))
	require.Equal(t, uint64(3), s.Version())
}

func TestServiceSubscribe(t *testing.T) {
	s := newTestService(t)

	var first, second []uint64
	cancelFirst := s.Subscribe(func(ev Event) { first = append(first, ev.Version) })
	cancelSecond := s.Subscribe(func(ev Event) {
		second = append(second, ev.Version)
		require.Equal(t, ev.Assets, s.Assets())
	})

	s.RemoveAssets("A")
	cancelFirst()
	cancelFirst()
	s.RemoveAssets("B")
	cancelSecond()
	s.RemoveAssets()

	assert.Equal(t, []uint64{1}, first)
	assert.Equal(t, []uint64{1, 2}, second)
}

func TestNewDefaults(t *testing.T) {
	s := New(nil, nil, nil)
	require.Equal(t, 0, s.Assets().Len())
	require.Nil(t, s.Schema())
}

func TestTagController(t *testing.T) {
	c := NewTagController()
	c.TagAssets("shiny", "A", "B")
	c.AffirmTag("empty")
	require.Equal(t, []string{"empty", "shiny"}, c.Tags())
	require.True(t, c.HasTag("A", "shiny"))
	require.True(t, c.IsAssetVisible("A"))

	c.SetTagVisible("shiny", false)
	require.False(t, c.IsTagVisible("shiny"))
	require.False(t, c.IsAssetVisible("A"))
	require.True(t, c.IsAssetVisible("C"))

	c.UntagAssets("shiny", "A")
	require.True(t, c.IsAssetVisible("A"))
	require.False(t, c.IsAssetVisible("B"))

	c.SetTagVisible("shiny", true)
	require.True(t, c.IsAssetVisible("B"))

	c.DeleteTag("shiny")
	require.Equal(t, []string{"empty"}, c.Tags())
}

func TestViewController(t *testing.T) {
	s := newTestService(t)
	v := NewViewController(s)
	require.Equal(t, s, v.Inventory())
	require.Len(t, v.VisibleAssets(), 2)

	v.SetFilterFunc(func(id schema.AssetID) bool { return id != "A" })
	vis := v.VisibleAssets()
	require.Len(t, vis, 1)
	require.Equal(t, schema.AssetID("B"), vis[0].ID)

	require.False(t, v.HasSelection())
	v.ToggleAssetSelection("B")
	v.ToggleAssetSelection("A")
	require.True(t, v.IsSelected("A"))
	require.Equal(t, []schema.AssetID{"B", "A"}, v.Selection())
	v.ToggleAssetSelection("B")
	require.Equal(t, []schema.AssetID{"A"}, v.Selection())

	s.RemoveAssets("A")
	require.Empty(t, v.Selection())
	require.True(t, v.HasSelection())
	v.ClearSelection()
	require.False(t, v.HasSelection())
}

/*
Package crafting implements composition of crafting (RUN_SCRIPT)
transactions: an ordered list of method invocations whose asset arguments
are picked from the account inventory so that no asset is used twice.
*/
package crafting

import (
	"errors"
	"fmt"

	"github.com/cryptogogue/volwal/pkg/binding"
	"github.com/cryptogogue/volwal/pkg/inventory"
	"github.com/cryptogogue/volwal/pkg/schema"
	"github.com/cryptogogue/volwal/pkg/transaction"
	"go.uber.org/zap"
)

var (
	// ErrMethodNotFound is returned for method names absent from the schema.
	ErrMethodNotFound = errors.New("method not found")
	// ErrNotBatchable is returned when a batch invocation is requested for a
	// method that doesn't have exactly one asset parameter.
	ErrNotBatchable = errors.New("method must have exactly one asset parameter for batch invocation")
	// ErrIndexOutOfRange is returned for invalid invocation indexes.
	ErrIndexOutOfRange = errors.New("invocation index out of range")
	// ErrUnknownInvocation is returned when an invocation doesn't belong to
	// the controller.
	ErrUnknownInvocation = errors.New("unknown invocation")
	// ErrUnknownParam is returned for parameter names the method doesn't
	// declare.
	ErrUnknownParam = errors.New("unknown parameter")
	// ErrAssetUtilized is returned when an asset is already claimed by
	// another invocation.
	ErrAssetUtilized = errors.New("asset is utilized by another invocation")
	// ErrAssetNotFound is returned for assets absent from the inventory.
	ErrAssetNotFound = errors.New("asset not found")
)

// Inventory is the live source of assets and methods the controller works
// with. Subscribe callbacks must be invoked on the goroutine driving the
// controller.
type Inventory interface {
	Assets() *schema.AssetPool
	Schema() *schema.Schema
	Subscribe(func(inventory.Event)) func()
}

// Controller composes a crafting transaction. It owns invocations and the
// ledger of utilized assets and keeps method bindings in sync with the
// inventory. Controller is not safe for concurrent use.
type Controller struct {
	transaction.FormController

	inventory   Inventory
	binding     *binding.Binding
	invocations []*Invocation
	ledger      *ledger

	// Pool snapshot and ledger version bindings were built against.
	builtPool   *schema.AssetPool
	builtLedger uint64
	built       bool

	cancel func()
	closed bool
	log    *zap.Logger
}

// NewController creates a controller over the inventory and subscribes to
// its changes. Close must be called to cancel the subscription.
func NewController(inv Inventory, maker transaction.MakerSource, log *zap.Logger) *Controller {
	c := &Controller{
		inventory: inv,
		binding:   binding.New(),
		ledger:    newLedger(),
	}
	c.Initialize(c, transaction.RunScriptType, maker, log)
	c.log = c.Logger()
	c.refreshBinding()
	c.cancel = inv.Subscribe(c.onInventoryChange)
	return c
}

// Close cancels inventory subscription. Notifications delivered after Close
// are ignored.
func (c *Controller) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
}

func (c *Controller) onInventoryChange(ev inventory.Event) {
	if c.closed {
		return
	}
	c.log.Debug("refreshing crafting bindings", zap.Uint64("inventory version", ev.Version))
	c.commit()
}

// commit brings bindings in sync with the inventory and the ledger and
// recomputes derived validity. It's called after every completed change.
func (c *Controller) commit() {
	if !c.built || c.builtPool != c.inventory.Assets() || c.builtLedger != c.ledger.version {
		c.refreshBinding()
	}
	c.Validate()
}

func (c *Controller) refreshBinding() {
	pool := c.inventory.Assets()
	c.binding.Rebuild(c.inventory.Schema(), pool, func(id schema.AssetID) bool {
		return c.eligible(id, nil)
	})
	for _, inv := range c.invocations {
		inv := inv
		inv.binding.Rebuild(pool, func(id schema.AssetID) bool {
			return c.eligible(id, inv.utilized)
		})
	}
	c.builtPool = pool
	c.builtLedger = c.ledger.version
	c.built = true
	bindingRebuilds.Inc()
}

// eligible decides whether the asset may be offered to an invocation owning
// the given set of assets: assets claimed elsewhere are rejected, the
// invocation's own ones stay visible to it.
func (c *Controller) eligible(id schema.AssetID, own AssetSet) bool {
	if own.Has(id) {
		return true
	}
	return !c.ledger.isUtilized(id)
}

func (c *Controller) makeInvocation(methodName string) (*Invocation, error) {
	m, ok := c.binding.Method(methodName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMethodNotFound, methodName)
	}
	inv := newInvocation(m)
	inv.binding.Rebuild(c.inventory.Assets(), func(id schema.AssetID) bool {
		return c.eligible(id, inv.utilized)
	})
	return inv, nil
}

// AddInvocation appends a new invocation of the method with no parameters
// set and returns it for the caller to populate.
func (c *Controller) AddInvocation(methodName string) (*Invocation, error) {
	inv, err := c.makeInvocation(methodName)
	if err != nil {
		return nil, err
	}
	c.invocations = append(c.invocations, inv)
	c.commit()
	c.log.Debug("invocation added",
		zap.String("method", methodName),
		zap.Int("invocations", len(c.invocations)))
	return inv, nil
}

// AddBatchInvocation appends one invocation of a single-asset-parameter
// method per selected asset, skipping assets already utilized. Assets are
// processed in selection order.
func (c *Controller) AddBatchInvocation(methodName string, selection []schema.AssetID) ([]*Invocation, error) {
	m, ok := c.binding.Method(methodName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMethodNotFound, methodName)
	}
	if len(m.AssetArgs) != 1 {
		return nil, fmt.Errorf("%w: %s has %d", ErrNotBatchable, methodName, len(m.AssetArgs))
	}
	pool := c.inventory.Assets()
	for _, id := range selection {
		if !pool.Has(id) {
			return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, id)
		}
	}

	var (
		param = m.AssetArgs[0].Name
		added []*Invocation
	)
	for _, id := range selection {
		if c.ledger.isUtilized(id) {
			continue
		}
		inv, err := c.makeInvocation(methodName)
		if err != nil {
			return nil, err
		}
		inv.assetParams[param] = id
		c.ledger.claim(id, inv)
		c.invocations = append(c.invocations, inv)
		added = append(added, inv)
	}
	c.commit()
	c.log.Debug("batch invocation added",
		zap.String("method", methodName),
		zap.Int("selected", len(selection)),
		zap.Int("added", len(added)))
	return added, nil
}

// RemoveInvocation removes the invocation at the index releasing every asset
// it utilized.
func (c *Controller) RemoveInvocation(index int) error {
	if index < 0 || index >= len(c.invocations) {
		return fmt.Errorf("%w: %d, have %d", ErrIndexOutOfRange, index, len(c.invocations))
	}
	inv := c.invocations[index]
	c.ledger.releaseAll(inv)

	res := make([]*Invocation, 0, len(c.invocations)-1)
	res = append(res, c.invocations[:index]...)
	c.invocations = append(res, c.invocations[index+1:]...)
	c.commit()
	c.log.Debug("invocation removed",
		zap.String("method", inv.method.Name),
		zap.Int("index", index))
	return nil
}

// SetAssetParam assigns an asset (or Unset) to the invocation parameter.
// The previous value is released before the new one is claimed; assigning
// the current value is a no-op.
func (c *Controller) SetAssetParam(inv *Invocation, param string, id schema.AssetID) error {
	if c.indexOf(inv) < 0 {
		return ErrUnknownInvocation
	}
	prev, ok := inv.assetParams[param]
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownParam, inv.method.Name, param)
	}
	if id == prev {
		return nil
	}
	if id != schema.Unset {
		if owner, ok := c.ledger.owner(id); ok && owner != inv {
			return fmt.Errorf("%w: %s", ErrAssetUtilized, id)
		}
		if !c.inventory.Assets().Has(id) {
			return fmt.Errorf("%w: %s", ErrAssetNotFound, id)
		}
	}

	inv.assetParams[param] = id
	if prev != schema.Unset && !inv.holds(prev) {
		c.ledger.release(prev)
	}
	if id != schema.Unset && !inv.utilized.Has(id) {
		c.ledger.claim(id, inv)
	}
	c.commit()
	return nil
}

// SetConstParam sets the value of a constant parameter.
func (c *Controller) SetConstParam(inv *Invocation, param string, value string) error {
	if c.indexOf(inv) < 0 {
		return ErrUnknownInvocation
	}
	p, ok := inv.constParams[param]
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownParam, inv.method.Name, param)
	}
	p.Value = value
	inv.constParams[param] = p
	c.commit()
	return nil
}

// Reset drops all invocations and releases every asset.
func (c *Controller) Reset() {
	c.ledger.clear()
	c.invocations = nil
	c.commit()
}

func (c *Controller) indexOf(inv *Invocation) int {
	for i := range c.invocations {
		if c.invocations[i] == inv {
			return i
		}
	}
	return -1
}

// Invocations returns invocations in addition order.
func (c *Controller) Invocations() []*Invocation {
	res := make([]*Invocation, len(c.invocations))
	copy(res, c.invocations)
	return res
}

// Invocation returns the invocation at the index.
func (c *Controller) Invocation(index int) (*Invocation, error) {
	if index < 0 || index >= len(c.invocations) {
		return nil, fmt.Errorf("%w: %d, have %d", ErrIndexOutOfRange, index, len(c.invocations))
	}
	return c.invocations[index], nil
}

// Binding returns the schema-level binding, it tells which methods can be
// invoked with assets still available.
func (c *Controller) Binding() *binding.Binding {
	return c.binding
}

// AssetsUtilized returns a copy of the global utilized set.
func (c *Controller) AssetsUtilized() AssetSet {
	return c.ledger.set()
}

// IsUtilized checks whether any invocation claims the asset.
func (c *Controller) IsUtilized(id schema.AssetID) bool {
	return c.ledger.isUtilized(id)
}

// IsSelected checks whether the asset is assigned to the parameter.
func (c *Controller) IsSelected(inv *Invocation, param string, id schema.AssetID) bool {
	v, ok := inv.assetParams[param]
	return ok && v == id
}

// CanAddInvocation is true when every invocation has all parameters set and
// no errors.
func (c *Controller) CanAddInvocation() bool {
	for _, inv := range c.invocations {
		if inv.hasErrors || !inv.hasParams {
			return false
		}
	}
	return true
}

// HasErrors is true when any invocation has errors.
func (c *Controller) HasErrors() bool {
	for _, inv := range c.invocations {
		if inv.hasErrors {
			return true
		}
	}
	return false
}

// CheckComplete implements transaction.Hooks.
func (c *Controller) CheckComplete() bool {
	for _, inv := range c.invocations {
		inv.check()
	}
	return len(c.invocations) > 0 && c.CanAddInvocation()
}

// ComposeBody implements transaction.Hooks. Body weight is one (the
// transaction itself) plus weights of all invoked methods, maturity is the
// maximum one.
func (c *Controller) ComposeBody() (*transaction.Body, error) {
	var (
		body     = c.FormatBody()
		weight   = uint64(1)
		maturity uint64
	)
	body.Invocations = make([]transaction.Invocation, 0, len(c.invocations))
	for _, inv := range c.invocations {
		weight += inv.method.Weight
		if inv.method.Maturity > maturity {
			maturity = inv.method.Maturity
		}
		body.Invocations = append(body.Invocations, inv.toTransaction())
	}
	body.Weight = weight
	body.Maturity = maturity
	composedInvocations.Add(float64(len(c.invocations)))
	return body, nil
}

// DecorateTransaction implements transaction.Hooks.
func (c *Controller) DecorateTransaction(tx *transaction.Transaction) {
	ids := c.ledger.set().Sorted()
	res := make([]string, len(ids))
	for i := range ids {
		res[i] = string(ids[i])
	}
	tx.SetAssetsUtilized(res)
}

package crafting

import (
	"github.com/cryptogogue/volwal/pkg/schema"
)

// ledger is the authoritative record of which invocation holds which asset.
// Every change bumps the version so that observers can detect staleness
// without comparing set contents.
type ledger struct {
	owners  map[schema.AssetID]*Invocation
	version uint64
}

func newLedger() *ledger {
	return &ledger{owners: make(map[schema.AssetID]*Invocation)}
}

func (l *ledger) owner(id schema.AssetID) (*Invocation, bool) {
	inv, ok := l.owners[id]
	return inv, ok
}

func (l *ledger) isUtilized(id schema.AssetID) bool {
	_, ok := l.owners[id]
	return ok
}

// claim assigns the asset to the invocation, it's a caller's duty to check
// that the asset is free.
func (l *ledger) claim(id schema.AssetID, inv *Invocation) {
	l.owners[id] = inv
	inv.utilized.Add(id)
	l.version++
}

func (l *ledger) release(id schema.AssetID) {
	inv, ok := l.owners[id]
	if !ok {
		return
	}
	delete(l.owners, id)
	inv.utilized.Remove(id)
	l.version++
}

func (l *ledger) releaseAll(inv *Invocation) {
	for id := range inv.utilized {
		l.release(id)
	}
}

func (l *ledger) clear() {
	if len(l.owners) == 0 {
		return
	}
	for _, inv := range l.owners {
		inv.utilized = make(AssetSet)
	}
	l.owners = make(map[schema.AssetID]*Invocation)
	l.version++
}

func (l *ledger) set() AssetSet {
	res := make(AssetSet, len(l.owners))
	for id := range l.owners {
		res.Add(id)
	}
	return res
}

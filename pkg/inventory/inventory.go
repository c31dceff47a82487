/*
Package inventory provides a live view of an account's assets: a versioned
asset pool paired with the method schema, change notifications and the
helpers the inventory screen uses for tagging and selection.
*/
package inventory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cryptogogue/volwal/pkg/schema"
	"go.uber.org/zap"
)

// Event describes a committed change of the asset pool.
type Event struct {
	// Version is the pool version after the change.
	Version uint64
	// Assets is the new pool snapshot.
	Assets *schema.AssetPool
}

// Service holds the current asset pool and schema. Every change of the pool
// replaces the snapshot, bumps the version and notifies subscribers.
type Service struct {
	log *zap.Logger

	mtx     sync.RWMutex
	schema  *schema.Schema
	pool    *schema.AssetPool
	version uint64

	subMtx  sync.Mutex
	subs    map[uint64]func(Event)
	nextSub uint64
}

// New creates an inventory service.
func New(s *schema.Schema, pool *schema.AssetPool, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if pool == nil {
		pool, _ = schema.NewAssetPool()
	}
	return &Service{
		log:    log,
		schema: s,
		pool:   pool,
		subs:   make(map[uint64]func(Event)),
	}
}

// Schema returns the method schema.
func (s *Service) Schema() *schema.Schema {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.schema
}

// Assets returns the current pool snapshot. Snapshots are immutable.
func (s *Service) Assets() *schema.AssetPool {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.pool
}

// Version returns the current pool version. It starts at zero and is
// incremented on every change.
func (s *Service) Version() uint64 {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.version
}

// SetAssets replaces the whole pool.
func (s *Service) SetAssets(assets ...*schema.Asset) error {
	pool, err := schema.NewAssetPool(assets...)
	if err != nil {
		return err
	}
	s.replace(pool)
	return nil
}

// AddAssets appends assets to the end of the pool.
func (s *Service) AddAssets(assets ...*schema.Asset) error {
	pool, err := schema.NewAssetPool(append(s.Assets().Assets(), assets...)...)
	if err != nil {
		return fmt.Errorf("can't add assets: %w", err)
	}
	s.replace(pool)
	return nil
}

// RemoveAssets drops assets with the given identifiers from the pool.
// Unknown identifiers are ignored.
func (s *Service) RemoveAssets(ids ...schema.AssetID) {
	var drop = make(map[schema.AssetID]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	var keep []*schema.Asset
	for _, a := range s.Assets().Assets() {
		if !drop[a.ID] {
			keep = append(keep, a)
		}
	}
	pool, _ := schema.NewAssetPool(keep...)
	s.replace(pool)
}

func (s *Service) replace(pool *schema.AssetPool) {
	s.mtx.Lock()
	s.pool = pool
	s.version++
	ev := Event{Version: s.version, Assets: pool}
	s.mtx.Unlock()

	s.log.Debug("inventory changed",
		zap.Uint64("version", ev.Version),
		zap.Int("assets", pool.Len()))
	s.notify(ev)
}

// Subscribe registers a callback invoked synchronously, on the goroutine
// that changed the pool, after every committed change. The returned
// function cancels exactly this subscription and may be called many times.
func (s *Service) Subscribe(fn func(Event)) func() {
	s.subMtx.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMtx.Unlock()

	return func() {
		s.subMtx.Lock()
		delete(s.subs, id)
		s.subMtx.Unlock()
	}
}

func (s *Service) notify(ev Event) {
	s.subMtx.Lock()
	var (
		ids = make([]uint64, 0, len(s.subs))
		fns = make(map[uint64]func(Event), len(s.subs))
	)
	for id, fn := range s.subs {
		ids = append(ids, id)
		fns[id] = fn
	}
	s.subMtx.Unlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		fns[id](ev)
	}
}

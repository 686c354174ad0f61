// Package cache holds the in-memory interaction records the UI renders from.
//
// The cache performs no I/O. Every write notifies listeners synchronously,
// after the cache lock is released and in subscription order.
package cache

import (
	"sync"

	"github.com/critiqapp/critiq-sync/internal/domain"
)

// Listener receives a change after every write.
// Listeners run on the writing goroutine and must not call back into the engine.
type Listener func(domain.InteractionChange)

type subscription struct {
	id       uint64
	entityID string // empty for SubscribeAll
	fn       Listener
}

// Cache maps (entity, kind) keys to interaction records.
type Cache struct {
	mu      sync.RWMutex
	records map[domain.Key]domain.InteractionRecord

	subMu  sync.RWMutex
	subs   []subscription
	nextID uint64
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{records: make(map[domain.Key]domain.InteractionRecord)}
}

// Get returns the record for the key, or the default record if none exists.
func (c *Cache) Get(entityID string, kind domain.Kind) domain.InteractionRecord {
	key := domain.Key{EntityID: entityID, Kind: kind}

	c.mu.RLock()
	rec, ok := c.records[key]
	c.mu.RUnlock()

	if !ok {
		return domain.DefaultRecord(key)
	}
	return rec.Clone()
}

// Set applies patch to the key's record and returns the result.
func (c *Cache) Set(entityID string, kind domain.Kind, patch domain.RecordPatch) domain.InteractionRecord {
	key := domain.Key{EntityID: entityID, Kind: kind}

	c.mu.Lock()
	prev, ok := c.records[key]
	if !ok {
		prev = domain.DefaultRecord(key)
	}
	next := prev.Clone()
	patch.Apply(&next)
	c.records[key] = next
	c.mu.Unlock()

	c.notify(domain.InteractionChange{Previous: prev, Current: next.Clone()})
	return next.Clone()
}

// Replace stores rec as a whole, overwriting any existing record.
func (c *Cache) Replace(rec domain.InteractionRecord) {
	rec = rec.Clone()
	key := rec.Key()

	c.mu.Lock()
	prev, ok := c.records[key]
	if !ok {
		prev = domain.DefaultRecord(key)
	}
	c.records[key] = rec
	c.mu.Unlock()

	c.notify(domain.InteractionChange{Previous: prev, Current: rec.Clone()})
}

// Snapshot maps entity id to state for every record of kind.
func (c *Cache) Snapshot(kind domain.Kind) map[string]bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]bool)
	for key, rec := range c.records {
		if key.Kind == kind {
			out[key.EntityID] = rec.State
		}
	}
	return out
}

// Records returns copies of every record of kind.
func (c *Cache) Records(kind domain.Kind) []domain.InteractionRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []domain.InteractionRecord
	for key, rec := range c.records {
		if key.Kind == kind {
			out = append(out, rec.Clone())
		}
	}
	return out
}

// Reset drops every record without notifying.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.records = make(map[domain.Key]domain.InteractionRecord)
	c.mu.Unlock()
}

// Subscribe registers fn for changes to entityID. The returned func cancels the subscription.
func (c *Cache) Subscribe(entityID string, fn Listener) (cancel func()) {
	return c.subscribe(entityID, fn)
}

// SubscribeAll registers fn for every change.
func (c *Cache) SubscribeAll(fn Listener) (cancel func()) {
	return c.subscribe("", fn)
}

func (c *Cache) subscribe(entityID string, fn Listener) func() {
	c.subMu.Lock()
	c.nextID++
	id := c.nextID
	c.subs = append(c.subs, subscription{id: id, entityID: entityID, fn: fn})
	c.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subMu.Lock()
			defer c.subMu.Unlock()
			for i, s := range c.subs {
				if s.id == id {
					c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (c *Cache) notify(change domain.InteractionChange) {
	c.subMu.RLock()
	targets := make([]Listener, 0, len(c.subs))
	for _, s := range c.subs {
		if s.entityID == "" || s.entityID == change.Current.EntityID {
			targets = append(targets, s.fn)
		}
	}
	c.subMu.RUnlock()

	for _, fn := range targets {
		fn(change)
	}
}

package ply

import (
	"container/list"
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/zeebo/xxh3"
)

// DefaultPlanCacheSize is the number of plans kept by DefaultPlanCache
const DefaultPlanCacheSize = 256

// DefaultPlanCache is shared by streams that are not given their own cache
var DefaultPlanCache = NewPlanCache(DefaultPlanCacheSize)

// PlanCache keeps compiled plans keyed by format and type signature, evicting
// the least recently used plan once full. It is safe for concurrent use.
type PlanCache struct {
	mu        sync.Mutex
	capacity  int
	items     map[[16]byte]*list.Element
	evictList *list.List

	hits   atomic.Int64
	misses atomic.Int64
}

type planEntry struct {
	key  [16]byte
	sig  string
	plan *Plan
}

// NewPlanCache creates a cache holding at most capacity plans. A capacity
// below one uses DefaultPlanCacheSize.
func NewPlanCache(capacity int) *PlanCache {
	if capacity < 1 {
		capacity = DefaultPlanCacheSize
	}
	return &PlanCache{
		capacity:  capacity,
		items:     make(map[[16]byte]*list.Element),
		evictList: list.New(),
	}
}

// Get returns the plan for the signature, compiling it on a miss
func (c *PlanCache) Get(f Format, types []Type) *Plan {
	p, _ := c.lookup(f, types)
	return p
}

// lookup returns the plan and whether it was already cached. Compilation
// happens outside the lock; when two callers race on the same signature the
// first insert wins and the other plan is dropped.
func (c *PlanCache) lookup(f Format, types []Type) (*Plan, bool) {
	sig := signature(f, types)
	key := signatureKey(sig)

	c.mu.Lock()
	if p, ok := c.get(key, sig); ok {
		c.mu.Unlock()
		c.hits.Add(1)
		return p, true
	}
	c.mu.Unlock()
	c.misses.Add(1)

	compiled := Compile(f, types)

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.get(key, sig); ok {
		return p, true
	}
	if ent, ok := c.items[key]; ok {
		// hash collision with a different signature
		c.removeElement(ent)
	}
	c.items[key] = c.evictList.PushFront(&planEntry{key: key, sig: sig, plan: compiled})
	for c.evictList.Len() > c.capacity {
		c.removeElement(c.evictList.Back())
	}
	return compiled, false
}

func (c *PlanCache) get(key [16]byte, sig string) (*Plan, bool) {
	ent, ok := c.items[key]
	if !ok {
		return nil, false
	}
	e := ent.Value.(*planEntry)
	if e.sig != sig {
		return nil, false
	}
	c.evictList.MoveToFront(ent)
	return e.plan, true
}

func (c *PlanCache) removeElement(e *list.Element) {
	c.evictList.Remove(e)
	delete(c.items, e.Value.(*planEntry).key)
}

// Len returns the number of cached plans
func (c *PlanCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

// Stats returns lookup hits and misses since creation
func (c *PlanCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Purge drops every cached plan
func (c *PlanCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[[16]byte]*list.Element)
	c.evictList.Init()
}

// signatureKey hashes a signature with 128-bit xxh3
func signatureKey(sig string) [16]byte {
	hash := xxh3.HashString128(sig)
	var key [16]byte
	binary.BigEndian.PutUint64(key[0:8], hash.Hi)
	binary.BigEndian.PutUint64(key[8:16], hash.Lo)
	return key
}

// File: pool/cache.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Cache is the per-thread block cache sitting in front of the global pool.
// It is owned by one goroutine at a time and needs no synchronization; only
// refills and drains touch shared state, through the pool's CAS stacks.

package pool

import (
	"log/slog"

	"github.com/momentics/hioload-mem/api"
)

// cacheClass is a fixed array of blocks used as a stack; cursor indexes the
// top element and is -1 when empty.
type cacheClass struct {
	blocks    []*Block
	cursor    int
	high, low int
}

func (cc *cacheClass) cached() int { return cc.cursor + 1 }

// Cache holds, per size class, between zero and high+low blocks. It is not
// safe for concurrent use.
type Cache struct {
	pool    *Pool
	slot    *Slot
	classes []cacheClass
	closed  bool

	refills       int64
	drains        int64
	drainFailures int64
}

// NewCache builds a cache and eagerly pulls HighWater blocks per class from
// the global pool. A shortfall only lowers the starting cursor.
func (p *Pool) NewCache() *Cache {
	c := &Cache{
		pool:    p,
		slot:    p.NewSlot(),
		classes: make([]cacheClass, len(p.classes)),
	}
	for i, sc := range p.classes {
		c.classes[i] = cacheClass{
			blocks: make([]*Block, sc.high+sc.low),
			cursor: -1,
			high:   sc.high,
			low:    sc.low,
		}
	}
	c.initialize()
	return c
}

func (c *Cache) initialize() {
	if c.pool.closed.Load() {
		return
	}
	for i := range c.classes {
		cc := &c.classes[i]
		for cc.cached() < cc.high {
			b := c.pull(i)
			if b == nil {
				c.pool.log.Debug("cache started below high water",
					slog.Int("class", i),
					slog.Int("cached", cc.cached()),
					slog.Int("high", cc.high))
				break
			}
			c.push(i, b)
		}
	}
}

// Allocate returns a block with at least size usable bytes.
// api.ErrOversize and api.ErrExhausted are ordinary outcomes. A cache whose
// refill leaves it in an unusable state panics with api.ErrAllocatorBreakdown.
func (c *Cache) Allocate(size int) (*Block, error) {
	cls, err := c.pool.ClassOf(size)
	if err != nil {
		return nil, err
	}
	if c.closed || c.pool.closed.Load() {
		return nil, api.ErrPoolClosed
	}
	if err := c.decWaterMark(cls); err != nil {
		return nil, err
	}
	cc := &c.classes[cls]
	if cc.cursor < 0 || cc.cursor >= len(cc.blocks) {
		c.breakdown(cls, "cursor out of range after refill")
	}
	b := cc.blocks[cc.cursor]
	cc.blocks[cc.cursor] = nil
	cc.cursor--
	b.markLive()
	return b, nil
}

// Free hands b back to the cache. b must come from Allocate on a cache of
// the same pool and must not be used afterwards.
func (c *Cache) Free(b *Block) {
	if b == nil {
		return
	}
	if b.pool != c.pool {
		c.pool.log.Error("free of foreign block ignored")
		return
	}
	if c.pool.closed.Load() {
		return
	}
	if !b.markFree() && c.pool.cfg.DetectDoubleFree {
		_ = c.pool.doubleFree(b)
		return
	}
	if c.closed {
		// The hazard slot is gone; go straight to the global list.
		c.pool.log.Warn("free through closed cache", slog.Int("class", int(b.class)))
		if err := c.pool.releaseUnowned(b); err != nil {
			c.pool.log.Warn("block dropped on free", slog.Int("class", int(b.class)), slog.Any("err", err))
		}
		return
	}
	cls := b.Class()
	if cls >= len(c.classes) {
		c.breakdown(cls, "block header carries unknown class")
	}
	c.incWaterMark(cls)
	cc := &c.classes[cls]
	if cc.cursor == len(cc.blocks)-1 {
		// Drain failed and the slot is still full: bypass the cache.
		if err := c.pool.release(c.slot, b); err != nil {
			c.pool.log.Warn("block dropped on free", slog.Int("class", cls), slog.Any("err", err))
		}
		return
	}
	c.push(cls, b)
}

// decWaterMark refills class cls with up to low+1 blocks once fewer than
// low remain. Reports api.ErrExhausted when nothing is cached and the
// global list is empty too.
func (c *Cache) decWaterMark(cls int) error {
	cc := &c.classes[cls]
	if cc.cached() >= cc.low {
		return nil
	}
	c.refills++
	for want := cc.low + 1; want > 0 && cc.cursor < len(cc.blocks)-1; want-- {
		b := c.pull(cls)
		if b == nil {
			break
		}
		c.push(cls, b)
	}
	if cc.cursor < 0 {
		return c.pool.exhausted(cls)
	}
	return nil
}

// incWaterMark drains class cls down to high once its array is full. A
// failed drain is logged and retried on the next free.
func (c *Cache) incWaterMark(cls int) {
	cc := &c.classes[cls]
	if cc.cursor < len(cc.blocks)-1 {
		return
	}
	c.drains++
	for cc.cursor >= cc.high {
		b := cc.blocks[cc.cursor]
		if err := c.pool.release(c.slot, b); err != nil {
			c.drainFailures++
			c.pool.log.Warn("cache drain failed",
				slog.Int("class", cls),
				slog.Int("cached", cc.cached()),
				slog.Any("err", err))
			return
		}
		cc.blocks[cc.cursor] = nil
		cc.cursor--
	}
}

// flush returns every cached block of class cls to the global pool and
// reports how many moved.
func (c *Cache) flush(cls int) int {
	cc := &c.classes[cls]
	moved := 0
	for cc.cursor >= 0 {
		if err := c.pool.release(c.slot, cc.blocks[cc.cursor]); err != nil {
			c.drainFailures++
			break
		}
		cc.blocks[cc.cursor] = nil
		cc.cursor--
		moved++
	}
	return moved
}

// pull takes one block of class cls from the global pool.
func (c *Cache) pull(cls int) *Block {
	b := c.pool.allocClass(c.slot, cls)
	if b != nil && int(b.class) != cls {
		c.breakdown(cls, "global free list returned a block of another class")
	}
	return b
}

func (c *Cache) push(cls int, b *Block) {
	cc := &c.classes[cls]
	cc.cursor++
	cc.blocks[cc.cursor] = b
}

func (c *Cache) breakdown(cls int, reason string) {
	err := api.NewError(api.ErrCodeAllocatorBreakdown, "pool: "+reason).
		WithContext("class", cls)
	if cls >= 0 && cls < len(c.classes) {
		err = err.WithContext("cursor", c.classes[cls].cursor)
	}
	c.pool.log.Error("allocator breakdown", slog.Int("class", cls), slog.String("reason", reason))
	panic(err)
}

// Stats returns the cache accounting. Only the owner may call it.
func (c *Cache) Stats() api.CacheStats {
	st := api.CacheStats{
		Classes:       make([]api.CacheClassStats, len(c.classes)),
		Refills:       c.refills,
		Drains:        c.drains,
		DrainFailures: c.drainFailures,
	}
	for i := range c.classes {
		cc := &c.classes[i]
		st.Classes[i] = api.CacheClassStats{
			Cursor: cc.cursor,
			Cached: cc.cached(),
			High:   cc.high,
			Low:    cc.low,
		}
	}
	return st
}

// Close drains every cached block back to the global pool, best effort,
// and releases the hazard slot. The cache is unusable afterwards.
func (c *Cache) Close() {
	if c.closed {
		return
	}
	c.closed = true
	for i := range c.classes {
		cc := &c.classes[i]
		for ; cc.cursor >= 0; cc.cursor-- {
			b := cc.blocks[cc.cursor]
			cc.blocks[cc.cursor] = nil
			if err := c.pool.release(c.slot, b); err != nil {
				c.drainFailures++
			}
		}
	}
	c.pool.ReleaseSlot(c.slot)
}

// File: pool/pool.go
// Package pool implements lock-free slab allocation with size class support.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import (
	"log/slog"
	"sync/atomic"

	"github.com/momentics/hioload-mem/api"
	"github.com/momentics/hioload-mem/core/concurrency"
	"github.com/momentics/hioload-mem/core/hazard"
)

// FreeNode links one free Block into a class stack. Nodes and blocks have
// independent lifetimes: a node wraps a different block on every cycle.
type FreeNode = concurrency.Node[*Block]

// Slot is a hazard slot guarding FreeNodes. Every goroutine touching the
// pool directly needs its own.
type Slot = hazard.Slot[FreeNode]

// sizeClass owns one slab and the free list of its blocks.
type sizeClass struct {
	id        uint8
	level     uint
	blockSize int
	capacity  int
	high, low int

	slab   slab
	blocks []Block
	nodes  []FreeNode
	free   *concurrency.Stack[*Block]
}

// Pool is the global, fixed-capacity size-class pool. All shared state is
// mutated through CAS only.
type Pool struct {
	cfg     Config
	log     *slog.Logger
	classes []*sizeClass
	hazards *hazard.Registry[FreeNode]
	spare   *concurrency.Stack[*Block] // nodes not wrapping any block

	nodeAllocs  atomic.Int64
	doubleFrees atomic.Int64
	closed      atomic.Bool
}

// NewPool validates cfg, maps one slab per class and seeds every class
// stack with all of its blocks. The pool never grows afterwards.
func NewPool(cfg Config) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "pool"))

	p := &Pool{
		cfg:     cfg,
		log:     log,
		hazards: hazard.NewRegistry[FreeNode](),
	}
	p.spare = concurrency.NewStack[*Block](p.hazards)

	n := cfg.NumClasses()
	p.classes = make([]*sizeClass, n)
	for i := 0; i < n; i++ {
		p.classes[i] = p.initClass(i)
	}
	log.Debug("pool initialized",
		slog.Int("classes", n),
		slog.Int("min_block", p.classes[0].blockSize),
		slog.Int("max_block", p.classes[n-1].blockSize),
		slog.Int("slab_bytes", cfg.SlabBytes))
	return p, nil
}

func (p *Pool) initClass(i int) *sizeClass {
	level := p.cfg.MinLevel + uint(i)
	size := 1 << level
	count := p.cfg.SlabBytes >> level

	c := &sizeClass{
		id:        uint8(i),
		level:     level,
		blockSize: size,
		capacity:  count,
		slab:      newSlab(count*size, p.cfg.UseMmap, p.log),
		blocks:    make([]Block, count),
		nodes:     make([]FreeNode, count),
		free:      concurrency.NewStack[*Block](p.hazards),
	}
	c.high, c.low = p.cfg.watermarks(i, count)

	mem := c.slab.mem
	for j := range c.blocks {
		b := &c.blocks[j]
		b.buf = mem[j*size : (j+1)*size : (j+1)*size]
		b.class = c.id
		b.pool = p
		b.init(c.id)
		c.nodes[j].Value = b
	}
	// Seed in reverse so the first pop yields the lowest address.
	for j := count - 1; j >= 0; j-- {
		c.free.Push(&c.nodes[j])
	}
	return c
}

// NewSlot claims a hazard slot for a new owner.
func (p *Pool) NewSlot() *Slot {
	return p.hazards.Acquire(p.hazards.NewOwner())
}

// ReleaseSlot hands s back to the registry.
func (p *Pool) ReleaseSlot(s *Slot) {
	p.hazards.Release(s)
}

// NumClasses returns the number of size classes.
func (p *Pool) NumClasses() int { return len(p.classes) }

// BlockSize returns the block size of class cls, header included.
func (p *Pool) BlockSize(cls int) int { return p.classes[cls].blockSize }

// Capacity returns the number of blocks carved for class cls.
func (p *Pool) Capacity(cls int) int { return p.classes[cls].capacity }

// Watermarks returns the cache high and low marks of class cls.
func (p *Pool) Watermarks(cls int) (high, low int) {
	c := p.classes[cls]
	return c.high, c.low
}

// MaxPayload returns the largest request the pool accepts.
func (p *Pool) MaxPayload() int {
	return p.classes[len(p.classes)-1].blockSize - HeaderSize
}

// ClassOf maps a request size to its class id.
func (p *Pool) ClassOf(size int) (int, error) {
	return classFor(size, p.cfg.MinLevel, p.cfg.MaxLevel)
}

// Alloc takes a block for size bytes straight from the global free list.
func (p *Pool) Alloc(slot *Slot, size int) (*Block, error) {
	cls, err := p.ClassOf(size)
	if err != nil {
		return nil, err
	}
	if p.closed.Load() {
		return nil, api.ErrPoolClosed
	}
	b := p.allocClass(slot, cls)
	if b == nil {
		return nil, p.exhausted(cls)
	}
	b.markLive()
	return b, nil
}

// Free returns a block taken with Alloc to the global free list.
func (p *Pool) Free(slot *Slot, b *Block) error {
	if b == nil || b.pool != p {
		return api.ErrForeignBlock
	}
	if p.closed.Load() {
		return api.ErrPoolClosed
	}
	if !b.markFree() && p.cfg.DetectDoubleFree {
		return p.doubleFree(b)
	}
	return p.release(slot, b)
}

// allocClass pops one free block of class cls, or nil when the class is drained.
func (p *Pool) allocClass(slot *Slot, cls int) *Block {
	n := p.classes[cls].free.Pop(slot)
	if n == nil {
		return nil
	}
	b := n.Value
	n.Value = nil
	p.spare.Push(n)
	return b
}

// release wraps b in a spare node and pushes it on its class stack. It
// never waits on the class stack itself, so it succeeds even when the
// class is drained dry. The slab header is not touched.
func (p *Pool) release(slot *Slot, b *Block) error {
	if b.pool != p || int(b.class) >= len(p.classes) {
		return api.NewError(api.ErrCodeForeignBlock, "pool: block does not belong to this pool")
	}
	if p.closed.Load() {
		return api.ErrPoolClosed
	}
	n := p.spare.Pop(slot)
	if n == nil {
		n = &FreeNode{}
		p.nodeAllocs.Add(1)
	}
	n.Value = b
	p.classes[b.class].free.Push(n)
	return nil
}

// releaseUnowned is release for callers without a hazard slot of their own.
func (p *Pool) releaseUnowned(b *Block) error {
	slot := p.NewSlot()
	defer p.ReleaseSlot(slot)
	return p.release(slot, b)
}

func (p *Pool) exhausted(cls int) error {
	return api.NewError(api.ErrCodeExhausted, "pool: size class exhausted").
		WithContext("class", cls).
		WithContext("block_size", p.classes[cls].blockSize)
}

func (p *Pool) doubleFree(b *Block) error {
	p.doubleFrees.Add(1)
	p.log.Error("double free detected",
		slog.Int("class", int(b.class)),
		slog.Uint64("generation", uint64(b.Generation())))
	return api.NewError(api.ErrCodeDoubleFree, "pool: block freed twice").
		WithContext("class", int(b.class)).
		WithContext("generation", b.Generation())
}

// Stats returns a point-in-time snapshot. Counts are approximate while
// other goroutines are active.
func (p *Pool) Stats() api.PoolStats {
	st := api.PoolStats{
		Classes:     make([]api.ClassStats, len(p.classes)),
		SpareNodes:  p.spare.Len(),
		NodeAllocs:  p.nodeAllocs.Load(),
		HazardSlots: p.hazards.Len(),
		DoubleFrees: p.doubleFrees.Load(),
	}
	for i, c := range p.classes {
		st.Classes[i] = api.ClassStats{
			ID:        i,
			BlockSize: c.blockSize,
			Capacity:  c.capacity,
			Free:      c.free.Len(),
		}
	}
	return st
}

// Close releases every slab in bulk. Blocks and caches must not be used
// afterwards; further allocations fail with api.ErrPoolClosed.
func (p *Pool) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	var first error
	for _, c := range p.classes {
		if err := c.slab.release(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

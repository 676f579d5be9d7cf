// File: pool/allocator.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Allocator is the context object tying a Pool to its per-thread caches.

package pool

import (
	"errors"
	"log/slog"

	"github.com/momentics/hioload-mem/api"
	"github.com/momentics/hioload-mem/core/concurrency"
	"github.com/momentics/hioload-mem/core/hazard"
)

// lease links one idle shared-path cache into the allocator's idle stack.
type lease = concurrency.Node[*Cache]

// Allocator resolves callers to caches. Goroutines on a hot path Attach a
// dedicated Cache; occasional callers use Allocate/Free, which borrow an
// idle cache from a lock-free stack of leases. Idle leases are never
// dropped, so every cached block stays reachable.
type Allocator struct {
	pool    *Pool
	hazards *hazard.Registry[lease]
	idle    *concurrency.Stack[*Cache]
}

// New builds the pool described by cfg.
func New(cfg Config) (*Allocator, error) {
	p, err := NewPool(cfg)
	if err != nil {
		return nil, err
	}
	reg := hazard.NewRegistry[lease]()
	return &Allocator{
		pool:    p,
		hazards: reg,
		idle:    concurrency.NewStack[*Cache](reg),
	}, nil
}

// Pool exposes the global size-class pool.
func (a *Allocator) Pool() *Pool { return a.pool }

// Attach returns a cache owned by the calling goroutine until Close.
func (a *Allocator) Attach() *Cache {
	return a.pool.NewCache()
}

// Allocate serves size bytes from a borrowed cache. Before reporting
// api.ErrExhausted it pulls the class back out of every idle lease, so
// the error means the class is consumed by live blocks or busy caches.
func (a *Allocator) Allocate(size int) (*Block, error) {
	l := a.borrow()
	defer a.idle.Push(l)

	b, err := l.Value.Allocate(size)
	if !errors.Is(err, api.ErrExhausted) {
		return b, err
	}
	cls, cerr := a.pool.ClassOf(size)
	if cerr != nil {
		return nil, err
	}
	if a.reclaimIdle(cls) == 0 {
		return nil, err
	}
	return l.Value.Allocate(size)
}

// Free returns b through a borrowed cache.
func (a *Allocator) Free(b *Block) {
	l := a.borrow()
	l.Value.Free(b)
	a.idle.Push(l)
}

func (a *Allocator) borrow() *lease {
	slot := a.hazards.Acquire(a.hazards.NewOwner())
	l := a.idle.Pop(slot)
	a.hazards.Release(slot)
	if l != nil {
		return l
	}
	return &lease{Value: a.pool.NewCache()}
}

// takeIdle pops every idle lease.
func (a *Allocator) takeIdle() []*lease {
	slot := a.hazards.Acquire(a.hazards.NewOwner())
	defer a.hazards.Release(slot)
	var out []*lease
	for l := a.idle.Pop(slot); l != nil; l = a.idle.Pop(slot) {
		out = append(out, l)
	}
	return out
}

// reclaimIdle flushes class cls of every idle lease to the global pool and
// reports how many blocks moved.
func (a *Allocator) reclaimIdle(cls int) int {
	moved := 0
	for _, l := range a.takeIdle() {
		moved += l.Value.flush(cls)
		a.idle.Push(l)
	}
	if moved > 0 {
		a.pool.log.Debug("reclaimed blocks from idle caches",
			slog.Int("class", cls), slog.Int("blocks", moved))
	}
	return moved
}

// Close drains idle leases and releases the slabs. Attached caches and
// borrowed leases must be idle.
func (a *Allocator) Close() error {
	for _, l := range a.takeIdle() {
		l.Value.Close()
	}
	return a.pool.Close()
}

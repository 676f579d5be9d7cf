// File: core/hazard/registry.go
// Package hazard implements hazard-pointer slots for safe memory reclamation.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A Registry is an append-only list of slots. Each slot is claimed by exactly
// one owner at a time and publishes the single value that owner is about to
// dereference. Reclaimers scan the list before reusing a value.

package hazard

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// Free marks a slot that no owner holds.
const Free uint64 = 0

// DefaultScanPasses bounds how many times Acquire rescans the list for a
// released slot before publishing a new one.
const DefaultScanPasses = 100

// Slot is a single (owner, watched value) pair.
type Slot[T any] struct {
	owner atomic.Uint64
	_     cpu.CacheLinePad
	value atomic.Pointer[T]
	_     cpu.CacheLinePad
	next  *Slot[T] // immutable once published
}

// Owner returns the id currently holding the slot, or Free.
func (s *Slot[T]) Owner() uint64 { return s.owner.Load() }

// Set announces that the owner is about to dereference v.
func (s *Slot[T]) Set(v *T) { s.value.Store(v) }

// Clear withdraws the announcement.
func (s *Slot[T]) Clear() { s.value.Store(nil) }

// Load returns the watched value.
func (s *Slot[T]) Load() *T { return s.value.Load() }

// Registry is the process- or pool-wide list of hazard slots.
type Registry[T any] struct {
	head       atomic.Pointer[Slot[T]]
	_          cpu.CacheLinePad
	size       atomic.Int64
	nextOwner  atomic.Uint64
	scanPasses int
}

// NewRegistry creates an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{scanPasses: DefaultScanPasses}
}

// NewOwner returns a fresh owner id. Ids are never Free.
func (r *Registry[T]) NewOwner() uint64 {
	return r.nextOwner.Add(1)
}

// Acquire claims a slot for owner. Released slots are reused first; after
// scanPasses unsuccessful passes a new slot is prepended to the list.
func (r *Registry[T]) Acquire(owner uint64) *Slot[T] {
	if owner == Free {
		panic("hazard: owner id 0 is reserved")
	}
	for pass := 0; pass < r.scanPasses; pass++ {
		for s := r.head.Load(); s != nil; s = s.next {
			if s.owner.Load() == Free && s.owner.CompareAndSwap(Free, owner) {
				return s
			}
		}
		if r.head.Load() == nil {
			break
		}
	}

	s := &Slot[T]{}
	s.owner.Store(owner)
	for {
		head := r.head.Load()
		s.next = head
		if r.head.CompareAndSwap(head, s) {
			r.size.Add(1)
			return s
		}
	}
}

// Release clears the slot and hands it back for reuse. The slot itself
// stays in the list for the registry's lifetime.
func (r *Registry[T]) Release(s *Slot[T]) {
	s.value.Store(nil)
	s.owner.Store(Free)
}

// Conflict reports whether some owner other than exclude currently watches v.
func (r *Registry[T]) Conflict(exclude uint64, v *T) bool {
	for s := r.head.Load(); s != nil; s = s.next {
		id := s.owner.Load()
		if id == Free || id == exclude {
			continue
		}
		if s.value.Load() == v {
			return true
		}
	}
	return false
}

// Len returns the number of slots ever published.
func (r *Registry[T]) Len() int {
	return int(r.size.Load())
}

// Claimed returns the number of slots currently held by an owner.
func (r *Registry[T]) Claimed() int {
	n := 0
	for s := r.head.Load(); s != nil; s = s.next {
		if s.owner.Load() != Free {
			n++
		}
	}
	return n
}

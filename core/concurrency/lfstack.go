// File: core/concurrency/lfstack.go
// Package concurrency implements an intrusive lock-free LIFO stack.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Stack is a Treiber stack whose pop is protected by hazard pointers, so a
// node can be recycled (pushed onto any stack sharing the registry) as soon
// as Pop returns it.

package concurrency

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"

	"github.com/momentics/hioload-mem/core/hazard"
	ic "github.com/momentics/hioload-mem/internal/concurrency"
)

// Node is the intrusive link carried by every stack element.
type Node[T any] struct {
	next  atomic.Pointer[Node[T]]
	Value T
}

// Next returns the successor link. Only meaningful while the node is owned.
func (n *Node[T]) Next() *Node[T] { return n.next.Load() }

// popStage marks points inside Pop where tests inject interleavings.
type popStage int

const (
	stageCandidate popStage = iota // head loaded, no hazard yet
	stageProtected                 // hazard announced and re-validated
	stageUnlinked                  // CAS succeeded, before the reclamation barrier
)

// Stack is a lock-free LIFO of *Node[T].
type Stack[T any] struct {
	head    atomic.Pointer[Node[T]]
	_       cpu.CacheLinePad
	size    atomic.Int64
	hazards *hazard.Registry[Node[T]]

	hook func(owner uint64, st popStage, n *Node[T])
}

// NewStack creates an empty stack protected by reg. Stacks that exchange
// nodes must share one registry.
func NewStack[T any](reg *hazard.Registry[Node[T]]) *Stack[T] {
	return &Stack[T]{hazards: reg}
}

// Registry returns the hazard registry guarding the stack.
func (s *Stack[T]) Registry() *hazard.Registry[Node[T]] { return s.hazards }

// Push links n on top of the stack.
func (s *Stack[T]) Push(n *Node[T]) {
	for {
		head := s.head.Load()
		n.next.Store(head)
		if s.head.CompareAndSwap(head, n) {
			s.size.Add(1)
			return
		}
	}
}

// Pop unlinks the top node, or returns nil if the stack was observed empty.
// slot must be owned by the calling goroutine.
//
// After the unlink Pop waits until no other owner still announces the node,
// so the caller may reuse it immediately.
func (s *Stack[T]) Pop(slot *hazard.Slot[Node[T]]) *Node[T] {
	self := slot.Owner()
	for {
		cand := s.head.Load()
		if cand == nil {
			slot.Clear()
			return nil
		}
		s.trace(self, stageCandidate, cand)

		// Announce, then re-read head until it is stable under the hazard.
		// A node popped and recycled between the load and the announcement
		// is caught here.
		for {
			slot.Set(cand)
			head := s.head.Load()
			if head == cand {
				break
			}
			cand = head
			if cand == nil {
				slot.Clear()
				return nil
			}
		}
		s.trace(self, stageProtected, cand)

		next := cand.next.Load()
		if !s.head.CompareAndSwap(cand, next) {
			continue
		}
		s.size.Add(-1)
		s.trace(self, stageUnlinked, cand)

		var bo ic.Backoff
		for s.hazards.Conflict(self, cand) {
			bo.Wait()
		}
		slot.Clear()
		cand.next.Store(nil)
		return cand
	}
}

// Empty reports whether the stack was observed empty.
func (s *Stack[T]) Empty() bool { return s.head.Load() == nil }

// Len returns the approximate number of nodes on the stack.
func (s *Stack[T]) Len() int {
	n := s.size.Load()
	if n < 0 {
		return 0
	}
	return int(n)
}

func (s *Stack[T]) trace(owner uint64, st popStage, n *Node[T]) {
	if s.hook != nil {
		s.hook(owner, st, n)
	}
}

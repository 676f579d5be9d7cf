// Package hazard
// Author: momentics <momentics@gmail.com>
//
// Hazard pointers: per-owner announcements of "about to dereference" used to
// defer reuse of nodes unlinked from lock-free structures.
//
// The registry never shrinks. Slots are released for reuse when their owner
// goes away, so the list length is bounded by the peak number of concurrent
// owners. Owners must use a slot from one goroutine at a time.
//
//	reg := hazard.NewRegistry[node]()
//	slot := reg.Acquire(reg.NewOwner())
//	defer reg.Release(slot)
//
//	slot.Set(n)
//	// ... re-validate n is still reachable, then dereference ...
//	slot.Clear()
package hazard

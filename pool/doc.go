// Package pool
// Author: momentics <momentics@gmail.com>
//
// Memory layer of hioload-mem: a fixed set of power-of-two size classes,
// each backed by one slab and one lock-free free list, fronted by
// per-thread caches with high/low watermarks.
//
// Blocks move between three owners only:
//
//	global free list --refill--> cache --Allocate--> caller
//	caller --Free--> cache --drain--> global free list
//
// The global lists are manipulated with CAS and hazard pointers only; a
// Cache is owned by a single goroutine and is never locked. The pool never
// grows: exhausting a class is reported as api.ErrExhausted.
//
//	alloc, err := pool.New(pool.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	c := alloc.Attach()
//	defer c.Close()
//
//	b, err := c.Allocate(1500)
//	if err != nil {
//	    return err
//	}
//	copy(b.Bytes(), frame)
//	c.Free(b)
package pool

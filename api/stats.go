// File: api/stats.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Accounting DTOs exposed by the allocator for observability.

package api

// ClassStats describes one size class of the global pool.
type ClassStats struct {
	ID        int // class id (0 = smallest)
	BlockSize int // bytes per block, header included
	Capacity  int // blocks carved from the slab
	Free      int // blocks currently on the global free list
}

// PoolStats aggregates global pool accounting.
type PoolStats struct {
	Classes     []ClassStats
	SpareNodes  int   // free-list nodes parked on the spare stack
	NodeAllocs  int64 // nodes allocated after init because the spare stack ran dry
	HazardSlots int   // slots ever published in the hazard registry
	DoubleFrees int64 // frees rejected by header-tag checks
}

// FreeBlocks returns the total number of blocks on global free lists.
func (s PoolStats) FreeBlocks() int {
	n := 0
	for _, c := range s.Classes {
		n += c.Free
	}
	return n
}

// CacheClassStats describes one class slot of a thread-local cache.
type CacheClassStats struct {
	Cursor int
	Cached int
	High   int
	Low    int
}

// CacheStats aggregates thread-local cache accounting.
type CacheStats struct {
	Classes       []CacheClassStats
	Refills       int64
	Drains        int64
	DrainFailures int64
}

// CachedBlocks returns the total number of blocks held by the cache.
func (s CacheStats) CachedBlocks() int {
	n := 0
	for _, c := range s.Classes {
		n += c.Cached
	}
	return n
}

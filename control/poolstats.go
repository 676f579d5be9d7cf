// control/poolstats.go
// Author: momentics <momentics@gmail.com>
//
// Flattening of allocator accounting into metrics keys and debug probes.

package control

import (
	"strconv"

	"github.com/momentics/hioload-mem/api"
)

// StatsSource is anything that can report global pool accounting.
type StatsSource interface {
	Stats() api.PoolStats
}

func classKey(id int, field string) string {
	return "pool.class." + strconv.Itoa(id) + "." + field
}

// PublishPoolStats writes st into reg under the pool.* namespace.
func PublishPoolStats(reg *MetricsRegistry, st api.PoolStats) {
	m := map[string]any{
		"pool.classes":      len(st.Classes),
		"pool.free_blocks":  st.FreeBlocks(),
		"pool.spare_nodes":  st.SpareNodes,
		"pool.node_allocs":  st.NodeAllocs,
		"pool.hazard_slots": st.HazardSlots,
		"pool.double_frees": st.DoubleFrees,
	}
	capacity := 0
	for _, c := range st.Classes {
		m[classKey(c.ID, "block_size")] = c.BlockSize
		m[classKey(c.ID, "capacity")] = c.Capacity
		m[classKey(c.ID, "free")] = c.Free
		capacity += c.Capacity
	}
	m["pool.capacity"] = capacity
	reg.SetMany(m)
}

// PublishCacheStats writes one cache's counters under cache.<name>.*.
func PublishCacheStats(reg *MetricsRegistry, name string, st api.CacheStats) {
	prefix := "cache." + name + "."
	reg.SetMany(map[string]any{
		prefix + "cached":         st.CachedBlocks(),
		prefix + "refills":        st.Refills,
		prefix + "drains":         st.Drains,
		prefix + "drain_failures": st.DrainFailures,
	})
}

// RegisterPoolProbes exposes live pool accounting through dp, together
// with the platform probes.
func RegisterPoolProbes(dp *DebugProbes, src StatsSource) {
	dp.RegisterProbe("pool.free_blocks", func() any {
		return src.Stats().FreeBlocks()
	})
	dp.RegisterProbe("pool.hazard_slots", func() any {
		return src.Stats().HazardSlots
	})
	dp.RegisterProbe("pool.classes", func() any {
		return src.Stats().Classes
	})
	RegisterPlatformProbes(dp)
}

package control

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-mem/api"
)

type fixedStats api.PoolStats

func (f fixedStats) Stats() api.PoolStats { return api.PoolStats(f) }

func sampleStats() api.PoolStats {
	return api.PoolStats{
		Classes: []api.ClassStats{
			{ID: 0, BlockSize: 128, Capacity: 8, Free: 5},
			{ID: 1, BlockSize: 256, Capacity: 4, Free: 4},
		},
		SpareNodes:  3,
		NodeAllocs:  1,
		HazardSlots: 2,
	}
}

func TestPublishPoolStats_FlattensClasses(t *testing.T) {
	reg := NewMetricsRegistry()
	PublishPoolStats(reg, sampleStats())

	snap := reg.GetSnapshot()
	assert.Equal(t, 2, snap["pool.classes"])
	assert.Equal(t, 9, snap["pool.free_blocks"])
	assert.Equal(t, 12, snap["pool.capacity"])
	assert.Equal(t, 256, snap["pool.class.1.block_size"])
	assert.Equal(t, 5, snap["pool.class.0.free"])
	assert.Equal(t, int64(1), snap["pool.node_allocs"])
	assert.False(t, reg.Updated().IsZero())
}

func TestPublishCacheStats_UsesNamePrefix(t *testing.T) {
	reg := NewMetricsRegistry()
	PublishCacheStats(reg, "w0", api.CacheStats{
		Classes: []api.CacheClassStats{{Cached: 3}, {Cached: 2}},
		Refills: 7,
	})
	v, ok := reg.Get("cache.w0.cached")
	require.True(t, ok)
	assert.Equal(t, 5, v)
	v, _ = reg.Get("cache.w0.refills")
	assert.Equal(t, int64(7), v)
}

func TestRegisterPoolProbes_DumpsLiveState(t *testing.T) {
	dp := NewDebugProbes()
	RegisterPoolProbes(dp, fixedStats(sampleStats()))

	state := dp.DumpState()
	assert.Equal(t, 9, state["pool.free_blocks"])
	assert.Equal(t, 2, state["pool.hazard_slots"])
	assert.Equal(t, runtime.NumCPU(), state["platform.cpus"])
	assert.Contains(t, state, "platform.page_size")
	assert.Positive(t, state["platform.cache_line"])
}

func TestDumpState_IsolatesPanicsAndReentrancy(t *testing.T) {
	dp := NewDebugProbes()
	dp.RegisterProbe("ok", func() any { return 1 })
	dp.RegisterProbe("boom", func() any { panic("bad hook") })
	dp.RegisterProbe("self", func() any {
		dp.RegisterProbe("late", func() any { return 2 })
		return "registered"
	})

	state := dp.DumpState()
	assert.Equal(t, 1, state["ok"])
	assert.Equal(t, PanicReport{Value: "bad hook"}, state["boom"])
	assert.Equal(t, "registered", state["self"])
	assert.NotContains(t, state, "late", "entries added during a dump show up next time")

	assert.Equal(t, []string{"boom", "late", "ok", "self"}, dp.ProbeNames())
	dp.UnregisterProbe("boom")
	assert.NotContains(t, dp.DumpState(), "boom")
}

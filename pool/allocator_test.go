package pool

import (
	"encoding/binary"
	"errors"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-mem/api"
)

func stressConfig() Config {
	return Config{
		MinLevel:         6,
		MaxLevel:         10,
		SlabBytes:        1 << 14,
		DetectDoubleFree: true,
		UseMmap:          true,
	}
}

func totalCapacity(p *Pool) int {
	n := 0
	for i := 0; i < p.NumClasses(); i++ {
		n += p.Capacity(i)
	}
	return n
}

func waitGroupOrFail(t *testing.T, wg *sync.WaitGroup, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatal("timeout waiting for workers")
	}
}

func TestAllocator_CapacityCoversEveryPayloadSize(t *testing.T) {
	a := newTestAllocator(t, stressConfig())
	c := a.Attach()
	defer c.Close()

	maxPayload := a.Pool().MaxPayload()
	for s := 1; s <= maxPayload; s++ {
		b, err := c.Allocate(s)
		require.NoError(t, err, "size %d", s)
		require.GreaterOrEqual(t, b.Cap(), s)
		require.Len(t, b.Bytes(), b.Cap())
		c.Free(b)
	}

	_, err := c.Allocate(maxPayload + 1)
	assert.ErrorIs(t, err, api.ErrOversize)
}

// M workers run K allocate/free cycles each; once every cache is closed the
// global lists hold every block again.
func TestAllocator_ConcurrentCyclesLeakNothing(t *testing.T) {
	const workers = 8
	const cycles = 5000

	a := newTestAllocator(t, stressConfig())
	p := a.Pool()
	require.Equal(t, totalCapacity(p), p.Stats().FreeBlocks())

	var exhausted atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(seed uint64) {
			defer wg.Done()
			c := a.Attach()
			defer c.Close()
			rng := rand.New(rand.NewPCG(seed, seed*31+1))
			var live []*Block
			for i := 0; i < cycles; i++ {
				if len(live) > 0 && (len(live) > 16 || rng.IntN(2) == 0) {
					j := rng.IntN(len(live))
					c.Free(live[j])
					live[j] = live[len(live)-1]
					live = live[:len(live)-1]
					continue
				}
				b, err := c.Allocate(1 + rng.IntN(p.MaxPayload()))
				if errors.Is(err, api.ErrExhausted) {
					exhausted.Add(1)
					continue
				}
				if !assert.NoError(t, err) {
					return
				}
				live = append(live, b)
			}
			for _, b := range live {
				c.Free(b)
			}
		}(uint64(w) + 1)
	}
	waitGroupOrFail(t, &wg, 30*time.Second)

	st := p.Stats()
	assert.Equal(t, totalCapacity(p), st.FreeBlocks())
	assert.Zero(t, st.DoubleFrees)
	t.Logf("exhausted outcomes: %d, node allocs: %d", exhausted.Load(), st.NodeAllocs)
}

// No block is ever held by two callers at once: each allocation claims the
// block in a shared map and stamps its payload with the owner's id.
func TestAllocator_BlocksAreExclusivelyOwned(t *testing.T) {
	const workers = 8
	const cycles = 3000

	a := newTestAllocator(t, stressConfig())
	maxPayload := a.Pool().MaxPayload()

	var owners sync.Map // *Block -> owner id
	var violations atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			c := a.Attach()
			defer c.Close()
			rng := rand.New(rand.NewPCG(id, 99))
			for i := 0; i < cycles; i++ {
				b, err := c.Allocate(8 + rng.IntN(maxPayload-8))
				if errors.Is(err, api.ErrExhausted) {
					runtime.Gosched()
					continue
				}
				if !assert.NoError(t, err) {
					return
				}
				if !b.Live() {
					violations.Add(1)
				}
				if prev, loaded := owners.LoadOrStore(b, id); loaded {
					t.Errorf("block held by %v handed to %d", prev, id)
					violations.Add(1)
					continue
				}
				gen := b.Generation()
				binary.LittleEndian.PutUint64(b.Bytes(), id)
				if i%7 == 0 {
					runtime.Gosched()
				}
				if binary.LittleEndian.Uint64(b.Bytes()) != id || b.Generation() != gen {
					violations.Add(1)
				}
				owners.Delete(b)
				c.Free(b)
			}
		}(uint64(w) + 1)
	}
	waitGroupOrFail(t, &wg, 30*time.Second)
	assert.Zero(t, violations.Load())
}

// 128 blocks of 128 bytes through the shared path: every allocation
// succeeds even with collections and P migrations in between, the 129th is
// Exhausted, and a free makes room again.
func TestAllocator_SharedPathExhaustionScenario(t *testing.T) {
	a := newTestAllocator(t, singleClassConfig(7, 128))

	seen := make(map[*Block]bool)
	var held []*Block
	for i := 0; i < 128; i++ {
		if i%16 == 0 {
			runtime.GC()
			runtime.Gosched()
		}
		b, err := a.Allocate(100)
		require.NoError(t, err, "allocation %d, global free %d", i, a.Pool().Stats().FreeBlocks())
		require.False(t, seen[b], "handle %d handed out twice", i)
		seen[b] = true
		held = append(held, b)
	}

	_, err := a.Allocate(100)
	require.ErrorIs(t, err, api.ErrExhausted)

	a.Free(held[5])
	b, err := a.Allocate(100)
	require.NoError(t, err)
	assert.Same(t, held[5], b)
}

// Blocks parked in an idle lease are pulled back before the shared path
// reports Exhausted.
func TestAllocator_ReclaimsIdleLeasesBeforeExhausted(t *testing.T) {
	a := newTestAllocator(t, singleClassConfig(7, 128))
	high, _ := a.Pool().Watermarks(0)

	first, second := a.borrow(), a.borrow()
	a.idle.Push(first)
	a.idle.Push(second)
	require.Equal(t, 128-2*high, a.Pool().Stats().Classes[0].Free)

	for i := 0; i < 128; i++ {
		_, err := a.Allocate(100)
		require.NoError(t, err, "allocation %d", i)
	}
	_, err := a.Allocate(100)
	assert.ErrorIs(t, err, api.ErrExhausted)
	assert.Zero(t, first.Value.Stats().CachedBlocks()+second.Value.Stats().CachedBlocks())
}

func TestAllocator_SharedPathServesConcurrentCallers(t *testing.T) {
	a := newTestAllocator(t, stressConfig())

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				b, err := a.Allocate(100)
				if !assert.NoError(t, err) {
					return
				}
				assert.True(t, b.Live())
				assert.GreaterOrEqual(t, b.Cap(), 100)
				a.Free(b)
			}
		}()
	}
	waitGroupOrFail(t, &wg, 10*time.Second)

	_, err := a.Allocate(a.Pool().MaxPayload() + 1)
	assert.ErrorIs(t, err, api.ErrOversize)

	require.NoError(t, a.Close())
	assert.Equal(t, totalCapacity(a.Pool()), a.Pool().Stats().FreeBlocks(), "close drains idle leases")
}

func TestAllocator_ClosedRejectsAllocate(t *testing.T) {
	a := newTestAllocator(t, stressConfig())
	require.NoError(t, a.Close())
	_, err := a.Allocate(10)
	assert.ErrorIs(t, err, api.ErrPoolClosed)
	require.NoError(t, a.Close(), "close is idempotent")
}

func BenchmarkAllocator_SharedPath(b *testing.B) {
	cfg := DefaultConfig()
	cfg.Logger = quietLogger()
	a := newTestAllocator(b, cfg)
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			blk, err := a.Allocate(256)
			if err != nil {
				continue
			}
			a.Free(blk)
		}
	})
}

// File: facade/hioload.go
// Unified facade layer for hioload-mem.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// HioloadMem aggregates the size-class pool, its metrics registry and debug
// probes behind one handle. The package-level functions operate on a lazily
// initialized process-wide instance; tests and embedders that need isolation
// construct their own with New.

package facade

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/momentics/hioload-mem/api"
	"github.com/momentics/hioload-mem/control"
	"github.com/momentics/hioload-mem/pool"
)

// Config holds parameters immutable per run.
type Config struct {
	Pool          pool.Config // size classes, slabs and watermarks
	EnableMetrics bool        // publish pool accounting on Stats
	EnableDebug   bool        // register debug probes
}

// DefaultConfig returns default configuration values.
func DefaultConfig() *Config {
	return &Config{
		Pool:          pool.DefaultConfig(),
		EnableMetrics: true,
		EnableDebug:   true,
	}
}

// HioloadMem is the main facade type.
type HioloadMem struct {
	alloc   *pool.Allocator
	metrics *control.MetricsRegistry
	debug   *control.DebugProbes
	config  *Config

	mu     sync.Mutex
	closed bool
}

// Ensure compliance with api.GracefulShutdown.
var _ api.GracefulShutdown = (*HioloadMem)(nil)

// New builds the pool described by cfg and wires metrics and probes.
func New(cfg *Config) (*HioloadMem, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	alloc, err := pool.New(cfg.Pool)
	if err != nil {
		return nil, fmt.Errorf("pool init failure: %w", err)
	}
	h := &HioloadMem{
		alloc:   alloc,
		metrics: control.NewMetricsRegistry(),
		debug:   control.NewDebugProbes(),
		config:  cfg,
	}
	if cfg.EnableDebug {
		control.RegisterPoolProbes(h.debug, alloc.Pool())
	}
	return h, nil
}

// Allocator exposes the underlying allocator.
func (h *HioloadMem) Allocator() *pool.Allocator { return h.alloc }

// Attach returns a cache owned by the calling goroutine until its Close.
func (h *HioloadMem) Attach() *pool.Cache { return h.alloc.Attach() }

// Allocate serves size bytes through a borrowed cache.
func (h *HioloadMem) Allocate(size int) (*pool.Block, error) {
	return h.alloc.Allocate(size)
}

// Free returns b through a borrowed cache.
func (h *HioloadMem) Free(b *pool.Block) { h.alloc.Free(b) }

// Stats publishes the current pool accounting and returns the metrics
// snapshot. With metrics disabled the snapshot is whatever was Set manually.
func (h *HioloadMem) Stats() map[string]any {
	if h.config.EnableMetrics {
		control.PublishPoolStats(h.metrics, h.alloc.Pool().Stats())
	}
	return h.metrics.GetSnapshot()
}

// GetMetrics returns the metrics registry.
func (h *HioloadMem) GetMetrics() *control.MetricsRegistry { return h.metrics }

// GetDebugAPI returns the debug probe registry.
func (h *HioloadMem) GetDebugAPI() api.Debug { return h.debug }

// Shutdown releases every slab. Blocks and caches must be idle.
func (h *HioloadMem) Shutdown() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	return h.alloc.Close()
}

var (
	defaultOnce sync.Once
	defaultInst *HioloadMem
	defaultErr  error
)

// PoolInit lazily builds the process-wide instance with DefaultConfig.
// Repeat calls are no-ops and return the first outcome.
func PoolInit() error {
	return PoolInitWith(nil)
}

// PoolInitWith is PoolInit with an explicit configuration. Only the first
// call of either function decides the configuration.
func PoolInitWith(cfg *Config) error {
	defaultOnce.Do(func() {
		defaultInst, defaultErr = New(cfg)
		if defaultErr != nil {
			slog.Error("process-wide pool init failed", slog.Any("err", defaultErr))
		}
	})
	return defaultErr
}

// Default returns the process-wide instance, initializing it if needed.
func Default() (*HioloadMem, error) {
	if err := PoolInit(); err != nil {
		return nil, err
	}
	return defaultInst, nil
}

// Allocate serves size bytes from the process-wide instance.
func Allocate(size int) (*pool.Block, error) {
	h, err := Default()
	if err != nil {
		return nil, err
	}
	return h.Allocate(size)
}

// Free returns b to the process-wide instance.
func Free(b *pool.Block) {
	if h, err := Default(); err == nil {
		h.Free(b)
	}
}

// Attach returns a dedicated cache on the process-wide instance.
func Attach() (*pool.Cache, error) {
	h, err := Default()
	if err != nil {
		return nil, err
	}
	return h.Attach(), nil
}

// Stats returns the metrics snapshot of the process-wide instance.
func Stats() map[string]any {
	h, err := Default()
	if err != nil {
		return nil
	}
	return h.Stats()
}

package pool

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// singleClassConfig describes one class of exactly blocks blocks of 1<<level bytes.
func singleClassConfig(level uint, blocks int) Config {
	return Config{
		MinLevel:  level,
		MaxLevel:  level,
		SlabBytes: blocks << level,
		UseMmap:   true,
		Logger:    quietLogger(),
	}
}

func newTestPool(t testing.TB, cfg Config) *Pool {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = quietLogger()
	}
	p, err := NewPool(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func newTestAllocator(t testing.TB, cfg Config) *Allocator {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = quietLogger()
	}
	a, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

// assertCursorsInBounds checks cursor in [-1, high+low-1] for every class.
func assertCursorsInBounds(t testing.TB, c *Cache) {
	t.Helper()
	for i, cc := range c.Stats().Classes {
		require.GreaterOrEqual(t, cc.Cursor, -1, "class %d", i)
		require.LessOrEqual(t, cc.Cursor, cc.High+cc.Low-1, "class %d", i)
	}
}

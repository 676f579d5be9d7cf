package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/momentics/hioload-mem/api"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.NumClasses())
}

func TestConfig_Validate(t *testing.T) {
	base := DefaultConfig()
	cases := map[string]func(c *Config){
		"min level too small": func(c *Config) { c.MinLevel = 2 },
		"max below min":       func(c *Config) { c.MaxLevel = c.MinLevel - 1 },
		"max level too large": func(c *Config) { c.MaxLevel = 31 },
		"slab too small":      func(c *Config) { c.SlabBytes = 1 << 15 },
		"only high water":     func(c *Config) { c.HighWater = make([]int, 10) },
		"short tables": func(c *Config) {
			c.HighWater, c.LowWater = []int{8}, []int{2}
		},
		"high not above low": func(c *Config) {
			c.HighWater, c.LowWater = make([]int, 10), make([]int, 10)
			for i := range c.HighWater {
				c.HighWater[i], c.LowWater[i] = 4, 4
			}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base
			mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), api.ErrInvalidConfig)
		})
	}
}

func TestDefaultWatermarks(t *testing.T) {
	cases := []struct{ capacity, high, low int }{
		{1, 2, 1},
		{16, 2, 1},
		{128, 16, 4},
		{8192, 64, 16},
	}
	for _, tc := range cases {
		h, l := defaultWatermarks(tc.capacity)
		assert.Equal(t, tc.high, h, "capacity=%d", tc.capacity)
		assert.Equal(t, tc.low, l, "capacity=%d", tc.capacity)
		assert.Greater(t, h, l)
	}
}

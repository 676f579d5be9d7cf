// File: pool/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Allocator configuration and watermark tables.

package pool

import (
	"fmt"
	"log/slog"

	"github.com/momentics/hioload-mem/api"
)

const (
	// minUsableLevel keeps the smallest block larger than its header.
	minUsableLevel = 4
	// maxUsableLevel caps blocks at 1 GiB.
	maxUsableLevel = 30
	// maxClasses is bounded by the one-byte class tag in the block header.
	maxClasses = 255
)

// Config holds parameters immutable per pool.
// Block size of class i is 1 << (MinLevel + i).
type Config struct {
	MinLevel  uint // Level of the smallest class
	MaxLevel  uint // Level of the largest class
	SlabBytes int  // Byte budget of each class slab; blocks per class = SlabBytes >> level

	// Optional per-class watermark overrides. Both must be set together and
	// hold one entry per class, with HighWater[i] > LowWater[i] >= 1.
	HighWater []int
	LowWater  []int

	DetectDoubleFree bool         // Check the header state tag on every free
	UseMmap          bool         // Back slabs with anonymous mappings where the platform allows
	Logger           *slog.Logger // Defaults to slog.Default()
}

// DefaultConfig returns default configuration values:
// ten classes from 128 B to 64 KiB, 1 MiB of blocks each.
func DefaultConfig() Config {
	return Config{
		MinLevel:  7,       // 128 B
		MaxLevel:  16,      // 64 KiB
		SlabBytes: 1 << 20, // 1 MiB per class
		UseMmap:   true,
	}
}

// NumClasses returns the number of size classes described by c.
func (c Config) NumClasses() int {
	if c.MaxLevel < c.MinLevel {
		return 0
	}
	return int(c.MaxLevel-c.MinLevel) + 1
}

// Validate reports the first inconsistency in c.
func (c Config) Validate() error {
	switch {
	case c.MinLevel < minUsableLevel:
		return invalidConfig("MinLevel below %d leaves no room for the block header", minUsableLevel)
	case c.MaxLevel > maxUsableLevel:
		return invalidConfig("MaxLevel above %d", maxUsableLevel)
	case c.MaxLevel < c.MinLevel:
		return invalidConfig("MaxLevel %d below MinLevel %d", c.MaxLevel, c.MinLevel)
	case c.NumClasses() > maxClasses:
		return invalidConfig("too many size classes: %d", c.NumClasses())
	case c.SlabBytes < 1<<c.MaxLevel:
		return invalidConfig("SlabBytes %d cannot hold one %d-byte block", c.SlabBytes, 1<<c.MaxLevel)
	}
	if (c.HighWater == nil) != (c.LowWater == nil) {
		return invalidConfig("HighWater and LowWater must be set together")
	}
	if c.HighWater == nil {
		return nil
	}
	n := c.NumClasses()
	if len(c.HighWater) != n || len(c.LowWater) != n {
		return invalidConfig("watermark tables need %d entries", n)
	}
	for i := 0; i < n; i++ {
		if c.LowWater[i] < 1 || c.HighWater[i] <= c.LowWater[i] {
			return invalidConfig("class %d: need HighWater > LowWater >= 1, got %d/%d",
				i, c.HighWater[i], c.LowWater[i])
		}
	}
	return nil
}

// watermarks returns the high/low marks of class i holding capacity blocks.
func (c Config) watermarks(i, capacity int) (high, low int) {
	if c.HighWater != nil {
		return c.HighWater[i], c.LowWater[i]
	}
	return defaultWatermarks(capacity)
}

// defaultWatermarks sizes a cache slot to an eighth of the class, within
// [2, 64] blocks, and refills once it drops under a quarter of that.
func defaultWatermarks(capacity int) (high, low int) {
	high = capacity / 8
	if high < 2 {
		high = 2
	}
	if high > 64 {
		high = 64
	}
	low = high / 4
	if low < 1 {
		low = 1
	}
	return high, low
}

func invalidConfig(format string, args ...any) error {
	return api.NewError(api.ErrCodeInvalidConfig, fmt.Sprintf("pool: "+format, args...))
}

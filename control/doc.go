// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics and debug introspection for hioload-mem.
//
// Provides concurrent-safe state handling primitives including:
//   - a flat metrics registry with snapshot reads
//   - publication of allocator pool and cache accounting into it
//   - named debug probes, including platform probes
//
// This package is cross-platform and build-tag-partitioned as needed.
package control
